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

type FolderHandler struct {
	service  *service.NoteService
	validate *validator.Validate
}

func NewFolderHandler(service *service.NoteService) *FolderHandler {
	return &FolderHandler{
		service:  service,
		validate: validator.New(),
	}
}

func (h *FolderHandler) List(w http.ResponseWriter, r *http.Request) {
	response.Success(w, h.service.Folders())
}

func (h *FolderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	response.Created(w, h.service.CreateFolder(req.Name))
}

func (h *FolderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if domain.IsReservedFolder(id) {
		response.BadRequest(w, "Cannot delete a reserved folder")
		return
	}
	if !h.service.DeleteFolder(id) {
		response.NotFound(w, "Folder not found")
		return
	}

	response.Success(w, map[string]string{"message": "Folder deleted"})
}
