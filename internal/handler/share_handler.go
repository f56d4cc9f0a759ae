package handler

import (
	"encoding/json"
	"net/http"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/service"
	"notes-share-server/pkg/response"

	"github.com/go-playground/validator/v10"
)

// ShareHandler owns the public share token API. The wire shapes here are a
// compatibility contract with the web client and are written directly
// where they differ from the standard envelope.
type ShareHandler struct {
	shares   *service.ShareService
	validate *validator.Validate
}

func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{
		shares:   shares,
		validate: validator.New(),
	}
}

// Create handles POST /share: mints (or rotates) the token for a note.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return
	}

	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, "noteId required")
		return
	}

	token, err := h.shares.Create(r.Context(), req.NoteID, req.NoteTitle)
	if err != nil {
		response.InternalError(w, "Failed to create share token")
		return
	}

	response.Created(w, token)
}

// Validate handles GET /share?token=T. A successful validation fires the
// view counter asynchronously; the response never waits on it.
func (h *ShareHandler) Validate(w http.ResponseWriter, r *http.Request) {
	value := r.URL.Query().Get("token")
	if value == "" {
		response.Raw(w, http.StatusBadRequest, domain.ShareValidation{Valid: false, Error: "token required"})
		return
	}

	result := h.shares.Validate(r.Context(), value)
	if !result.Valid {
		response.Raw(w, http.StatusNotFound, result)
		return
	}

	go h.shares.IncrementView(value)
	response.Raw(w, http.StatusOK, result)
}

// Revoke handles DELETE /share?noteId=N.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	noteID := r.URL.Query().Get("noteId")
	if noteID == "" {
		response.BadRequest(w, "noteId required")
		return
	}

	if !h.shares.Revoke(r.Context(), noteID) {
		response.NotFound(w, "Token not found")
		return
	}

	response.Success(w, nil)
}

// List returns the full token collection, revoked entries included. This
// is the owner-facing management surface, not part of the public contract.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	tokens := h.shares.Tokens(r.Context())
	response.Success(w, map[string]interface{}{
		"tokens": tokens,
		"count":  len(tokens),
	})
}
