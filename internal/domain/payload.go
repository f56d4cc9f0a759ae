package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// SchemaVersion is written into every payload envelope. There is no
// migration logic; unknown or missing versions are tolerated by falling
// back to an empty collection.
const SchemaVersion = 1

// NotesPayload is the envelope stored in the remote document's notes file.
type NotesPayload struct {
	SchemaVersion int       `json:"schemaVersion"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Notes         []Note    `json:"notes"`
	Folders       []Folder  `json:"folders"`
}

// TokensPayload is the envelope stored in the remote document's share
// tokens file.
type TokensPayload struct {
	SchemaVersion int          `json:"schemaVersion"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Tokens        []ShareToken `json:"tokens"`
}

func NewNotesPayload(notes []Note) NotesPayload {
	if notes == nil {
		notes = []Note{}
	}
	return NotesPayload{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Notes:         notes,
		Folders:       []Folder{},
	}
}

func NewTokensPayload(tokens []ShareToken) TokensPayload {
	if tokens == nil {
		tokens = []ShareToken{}
	}
	return TokensPayload{
		SchemaVersion: SchemaVersion,
		UpdatedAt:     time.Now().UTC(),
		Tokens:        tokens,
	}
}

// ParseNotesPayload normalizes the two shapes the notes document has been
// written in over time: the versioned envelope and the legacy bare array.
// An empty document yields an empty collection.
func ParseNotesPayload(raw []byte) ([]Note, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []Note{}, nil
	}

	if raw[0] == '[' {
		var notes []Note
		if err := json.Unmarshal(raw, &notes); err != nil {
			return nil, err
		}
		if notes == nil {
			notes = []Note{}
		}
		return notes, nil
	}

	var payload NotesPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.Notes == nil {
		return []Note{}, nil
	}
	return payload.Notes, nil
}

// ParseTokensPayload reads the share token envelope. Tokens were never
// written as a bare array, so only the wrapped form is accepted.
func ParseTokensPayload(raw []byte) ([]ShareToken, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []ShareToken{}, nil
	}

	var payload TokensPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}
	if payload.Tokens == nil {
		return []ShareToken{}, nil
	}
	return payload.Tokens, nil
}
