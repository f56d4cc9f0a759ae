package domain

import "time"

// Reserved folder IDs. These are virtual folders computed from note
// attributes; they are never stored and cannot be deleted.
const (
	FolderAll       = "all"
	FolderFavorites = "favorites"
)

type FolderIcon string

const (
	IconInbox  FolderIcon = "inbox"
	IconStar   FolderIcon = "star"
	IconFolder FolderIcon = "folder"
)

// Note field names stay camelCase on the wire for compatibility with
// payloads written by the web client.
type Note struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	FolderID   string    `json:"folderId"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"isFavorite"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type Folder struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Icon FolderIcon `json:"icon"`
}

func DefaultFolders() []Folder {
	return []Folder{
		{ID: FolderAll, Name: "All Notes", Icon: IconInbox},
		{ID: FolderFavorites, Name: "Favorites", Icon: IconStar},
	}
}

func IsReservedFolder(id string) bool {
	return id == FolderAll || id == FolderFavorites
}

type CreateNoteRequest struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	FolderID string   `json:"folderId"`
	Tags     []string `json:"tags"`
}

// UpdateNoteRequest carries a partial update; nil fields are left untouched.
type UpdateNoteRequest struct {
	Title      *string `json:"title"`
	Content    *string `json:"content"`
	FolderID   *string `json:"folderId"`
	IsFavorite *bool   `json:"isFavorite"`
}

type CreateFolderRequest struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

type TagRequest struct {
	Tag string `json:"tag" validate:"required,min=1,max=50"`
}

type MoveNoteRequest struct {
	FolderID string `json:"folderId" validate:"required"`
}
