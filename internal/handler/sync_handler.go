package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"notes-share-server/internal/gist"
	"notes-share-server/internal/service"
	"notes-share-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

type SyncHandler struct {
	sync      *service.SyncService
	notes     *service.NoteService
	scheduler *service.PushScheduler
	validate  *validator.Validate
}

func NewSyncHandler(sync *service.SyncService, notes *service.NoteService, scheduler *service.PushScheduler) *SyncHandler {
	return &SyncHandler{
		sync:      sync,
		notes:     notes,
		scheduler: scheduler,
		validate:  validator.New(),
	}
}

type configureSyncRequest struct {
	DocumentID string `json:"documentId" validate:"required"`
	Token      string `json:"token"`
}

type createDocumentRequest struct {
	Token string `json:"token" validate:"required"`
}

type pullRequest struct {
	Merge *bool `json:"merge"`
}

func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.sync.Status())
}

// Configure sets remote addressing. Any pending debounced push is
// cancelled first so stale data cannot land in the newly configured
// document.
func (h *SyncHandler) Configure(w http.ResponseWriter, r *http.Request) {
	var req configureSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "documentId required")
		return
	}

	h.scheduler.Cancel()
	h.sync.Configure(req.DocumentID, req.Token)
	response.Success(w, h.sync.Status())
}

// Pull fetches the remote collection and imports it locally. Merge mode
// (the default) only adds unknown notes; merge=false replaces the local
// collection.
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	var req pullRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}
	merge := req.Merge == nil || *req.Merge

	fetched, err := h.sync.Fetch(r.Context())
	if err != nil {
		response.Error(w, remoteErrorStatus(err), err.Error())
		return
	}

	count := h.notes.ImportNotes(fetched.Notes, merge)
	response.Success(w, map[string]interface{}{
		"count":    count,
		"fallback": fetched.Fallback,
	})
}

// Push flushes the current collection to the remote document immediately,
// bypassing the debounce window.
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	h.scheduler.Cancel()

	saved, err := h.sync.Save(r.Context(), h.notes.Notes())
	if err != nil {
		response.Error(w, remoteErrorStatus(err), err.Error())
		return
	}

	response.Success(w, map[string]interface{}{"fallback": saved.Fallback})
}

func (h *SyncHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req createDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "token required")
		return
	}

	id, err := h.sync.CreateDocument(r.Context(), req.Token)
	if err != nil {
		response.Error(w, remoteErrorStatus(err), err.Error())
		return
	}

	response.Created(w, map[string]string{"documentId": id})
}

func remoteErrorStatus(err error) int {
	switch {
	case errors.Is(err, gist.ErrNotConfigured):
		return http.StatusBadRequest
	case errors.Is(err, gist.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, gist.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, gist.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gist.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}
