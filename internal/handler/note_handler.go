package handler

import (
	"encoding/json"
	"net/http"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/service"
	"notes-share-server/pkg/response"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
)

type NoteHandler struct {
	service  *service.NoteService
	validate *validator.Validate
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	note := h.service.Create(&req)
	response.Created(w, note)
}

// List handles GET /notes?folder=F&q=Q. An empty folder filter returns
// everything; a non-empty q switches to search.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	folder := r.URL.Query().Get("folder")
	query := r.URL.Query().Get("q")

	var notes []domain.Note
	if query != "" {
		notes = h.service.Search(query, folder)
	} else {
		notes = h.service.List(folder)
	}

	response.Success(w, notes)
}

func (h *NoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	note, ok := h.service.Get(mux.Vars(r)["id"])
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}

	note, ok := h.service.Update(mux.Vars(r)["id"], &req)
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.service.Delete(mux.Vars(r)["id"]) {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, map[string]string{"message": "Note deleted"})
}

func (h *NoteHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	note, ok := h.service.ToggleFavorite(mux.Vars(r)["id"])
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req domain.TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, ok := h.service.AddTag(mux.Vars(r)["id"], req.Tag)
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	note, ok := h.service.RemoveTag(vars["id"], vars["tag"])
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}

func (h *NoteHandler) Move(w http.ResponseWriter, r *http.Request) {
	var req domain.MoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	note, ok := h.service.MoveToFolder(mux.Vars(r)["id"], req.FolderID)
	if !ok {
		response.NotFound(w, "Note not found")
		return
	}
	response.Success(w, note)
}
