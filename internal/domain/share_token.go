package domain

import "time"

// ShareToken grants unauthenticated read access to a single note. At most
// one active token exists per note; creating a new one rotates the string
// in place. Timestamps are epoch milliseconds, matching the web client's
// token payloads.
type ShareToken struct {
	Token     string `json:"token"`
	NoteID    string `json:"noteId"`
	NoteTitle string `json:"noteTitle"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt"`
	Revoked   bool   `json:"revoked"`
	ViewCount int    `json:"viewCount"`
}

func (t *ShareToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && *t.ExpiresAt < now.UnixMilli()
}

// ShareValidation is the tagged outcome of a token lookup. Validation never
// fails with an error; invalid tokens always produce Valid=false plus a
// reason string.
type ShareValidation struct {
	Valid     bool   `json:"valid"`
	NoteID    string `json:"noteId,omitempty"`
	NoteTitle string `json:"noteTitle,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	Error     string `json:"error,omitempty"`
}

type CreateShareRequest struct {
	NoteID    string `json:"noteId" validate:"required"`
	NoteTitle string `json:"noteTitle"`
}

// SharedNote is the public read-only view served for a validated token.
// Available=false marks the degraded placeholder used when the note's
// content cannot currently be resolved.
type SharedNote struct {
	Title     string     `json:"title"`
	Content   string     `json:"content,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Available bool       `json:"available"`
	Message   string     `json:"message,omitempty"`
}
