package handler

import (
	"net/http"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/service"
	"notes-share-server/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// SharedNoteHandler is the externally reachable read path for a shared
// note. It composes the share service and the sync adapter's read path and
// owns no state itself, so its answers are only as fresh as the remote
// document: a token can validate while the note behind it is already gone.
type SharedNoteHandler struct {
	shares *service.ShareService
	sync   *service.SyncService
	logger *zap.Logger
}

func NewSharedNoteHandler(shares *service.ShareService, sync *service.SyncService, logger *zap.Logger) *SharedNoteHandler {
	return &SharedNoteHandler{
		shares: shares,
		sync:   sync,
		logger: logger,
	}
}

func (h *SharedNoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	value := mux.Vars(r)["token"]

	result := h.shares.Validate(r.Context(), value)
	if !result.Valid {
		// One generic body for unknown, revoked and expired tokens so an
		// unauthenticated viewer cannot tell the causes apart.
		response.Raw(w, http.StatusNotFound, domain.ShareValidation{
			Valid: false,
			Error: "This link is invalid or no longer available",
		})
		return
	}

	go h.shares.IncrementView(value)

	fetched, err := h.sync.Fetch(r.Context())
	if err != nil {
		h.logger.Warn("shared note fetch failed", zap.Error(err))
		h.placeholder(w, result.NoteTitle)
		return
	}

	for i := range fetched.Notes {
		if fetched.Notes[i].ID == result.NoteID {
			n := fetched.Notes[i]
			response.Raw(w, http.StatusOK, domain.SharedNote{
				Title:     n.Title,
				Content:   n.Content,
				UpdatedAt: &n.UpdatedAt,
				Available: true,
			})
			return
		}
	}

	h.placeholder(w, result.NoteTitle)
}

// placeholder is served with 200 on purpose: the link itself is valid, so
// a "content temporarily unavailable" page beats a broken-link experience.
func (h *SharedNoteHandler) placeholder(w http.ResponseWriter, title string) {
	response.Raw(w, http.StatusOK, domain.SharedNote{
		Title:     title,
		Available: false,
		Message:   "This note's content is temporarily unavailable. Please try again later.",
	})
}
