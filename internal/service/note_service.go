package service

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const noteStateKey = "notes"

var tagPattern = regexp.MustCompile(`<[^>]+>`)

// ChangeNotifier receives note mutation events, e.g. for pushing live
// updates to connected clients. Implementations must not block.
type ChangeNotifier interface {
	NoteChanged(note *domain.Note)
	NoteDeleted(id string)
	NotesReloaded()
}

// SyncTrigger schedules a debounced remote push after a local mutation.
type SyncTrigger interface {
	Schedule()
}

type noteState struct {
	Notes   []domain.Note   `json:"notes"`
	Folders []domain.Folder `json:"folders"`
}

// NoteService is the authoritative in-process holder of the note and
// folder collections. Every mutation writes the full state through to the
// local store; write failures are logged and swallowed because the
// in-memory state stays the source of truth for the running process.
type NoteService struct {
	store    repository.LocalStore
	logger   *zap.Logger
	notifier ChangeNotifier
	trigger  SyncTrigger

	mu      sync.RWMutex
	notes   []domain.Note
	folders []domain.Folder
}

func NewNoteService(store repository.LocalStore, logger *zap.Logger) *NoteService {
	s := &NoteService{
		store:   store,
		logger:  logger,
		folders: domain.DefaultFolders(),
	}

	var saved noteState
	found, err := store.Get(noteStateKey, &saved)
	if err != nil {
		logger.Warn("failed to load local note state", zap.Error(err))
	}
	if found {
		s.notes = saved.Notes
		if len(saved.Folders) > 0 {
			s.folders = saved.Folders
		}
	}

	return s
}

func (s *NoteService) SetNotifier(n ChangeNotifier) {
	s.notifier = n
}

func (s *NoteService) SetSyncTrigger(t SyncTrigger) {
	s.trigger = t
}

func (s *NoteService) Create(req *domain.CreateNoteRequest) *domain.Note {
	now := time.Now().UTC()

	folderID := req.FolderID
	if folderID == "" {
		folderID = domain.FolderAll
	}

	note := domain.Note{
		ID:         uuid.New().String(),
		Title:      req.Title,
		Content:    req.Content,
		FolderID:   folderID,
		Tags:       dedupeTags(req.Tags),
		IsFavorite: false,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	// Newest-first presentation order is insertion order here.
	s.notes = append([]domain.Note{note}, s.notes...)
	s.persist()
	s.mu.Unlock()

	s.noteChanged(&note)
	return cloneNote(&note)
}

func (s *NoteService) Get(id string) (*domain.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := range s.notes {
		if s.notes[i].ID == id {
			return cloneNote(&s.notes[i]), true
		}
	}
	return nil, false
}

// Update merges the non-nil fields of req into the note and bumps
// updatedAt. Returns false when the id is unknown; the collection is left
// untouched in that case.
func (s *NoteService) Update(id string, req *domain.UpdateNoteRequest) (*domain.Note, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, false
	}

	note := &s.notes[idx]
	if req.Title != nil {
		note.Title = *req.Title
	}
	if req.Content != nil {
		note.Content = *req.Content
	}
	if req.FolderID != nil {
		note.FolderID = *req.FolderID
	}
	if req.IsFavorite != nil {
		note.IsFavorite = *req.IsFavorite
	}
	touch(note)
	s.persist()
	updated := cloneNote(note)
	s.mu.Unlock()

	s.noteChanged(updated)
	return updated, true
}

func (s *NoteService) Delete(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.notes = append(s.notes[:idx], s.notes[idx+1:]...)
	s.persist()
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.NoteDeleted(id)
	}
	if s.trigger != nil {
		s.trigger.Schedule()
	}
	return true
}

// List filters by folder: "" and "all" return everything, "favorites"
// returns favorite notes, any other value matches folderId exactly.
func (s *NoteService) List(folderID string) []domain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Note, 0, len(s.notes))
	for i := range s.notes {
		if noteInFolder(&s.notes[i], folderID) {
			out = append(out, *cloneNote(&s.notes[i]))
		}
	}
	return out
}

// Search matches a case-insensitive substring against the title or the
// tag-stripped content, scoped to the given folder filter.
func (s *NoteService) Search(query, folderID string) []domain.Note {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.List(folderID)
	}
	lower := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Note, 0)
	for i := range s.notes {
		n := &s.notes[i]
		if !noteInFolder(n, folderID) {
			continue
		}
		if strings.Contains(strings.ToLower(n.Title), lower) ||
			strings.Contains(strings.ToLower(stripTags(n.Content)), lower) {
			out = append(out, *cloneNote(n))
		}
	}
	return out
}

func (s *NoteService) ToggleFavorite(id string) (*domain.Note, bool) {
	return s.mutate(id, func(n *domain.Note) {
		n.IsFavorite = !n.IsFavorite
	})
}

func (s *NoteService) AddTag(id, tag string) (*domain.Note, bool) {
	return s.mutate(id, func(n *domain.Note) {
		for _, t := range n.Tags {
			if t == tag {
				return
			}
		}
		n.Tags = append(n.Tags, tag)
	})
}

func (s *NoteService) RemoveTag(id, tag string) (*domain.Note, bool) {
	return s.mutate(id, func(n *domain.Note) {
		kept := n.Tags[:0]
		for _, t := range n.Tags {
			if t != tag {
				kept = append(kept, t)
			}
		}
		n.Tags = kept
	})
}

func (s *NoteService) MoveToFolder(id, folderID string) (*domain.Note, bool) {
	return s.mutate(id, func(n *domain.Note) {
		n.FolderID = folderID
	})
}

// Notes returns a snapshot of the full collection, e.g. for a remote push.
func (s *NoteService) Notes() []domain.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Note, 0, len(s.notes))
	for i := range s.notes {
		out = append(out, *cloneNote(&s.notes[i]))
	}
	return out
}

// ImportNotes applies a remotely fetched collection. With merge=true only
// notes with unknown ids are added; with merge=false the collection is
// replaced wholesale. Returns the resulting collection size.
func (s *NoteService) ImportNotes(imported []domain.Note, merge bool) int {
	s.mu.Lock()
	if merge {
		existing := make(map[string]bool, len(s.notes))
		for i := range s.notes {
			existing[s.notes[i].ID] = true
		}
		fresh := make([]domain.Note, 0, len(imported))
		for i := range imported {
			if !existing[imported[i].ID] {
				fresh = append(fresh, imported[i])
			}
		}
		s.notes = append(fresh, s.notes...)
	} else {
		s.notes = append([]domain.Note(nil), imported...)
	}
	count := len(s.notes)
	s.persist()
	s.mu.Unlock()

	if s.notifier != nil {
		s.notifier.NotesReloaded()
	}
	return count
}

func (s *NoteService) Folders() []domain.Folder {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Folder(nil), s.folders...)
}

func (s *NoteService) CreateFolder(name string) *domain.Folder {
	folder := domain.Folder{
		ID:   uuid.New().String(),
		Name: name,
		Icon: domain.IconFolder,
	}

	s.mu.Lock()
	s.folders = append(s.folders, folder)
	s.persist()
	s.mu.Unlock()

	return &folder
}

// DeleteFolder removes a folder and reassigns its member notes to the
// virtual "all" folder so no note is left orphaned. Reserved folders are
// not deletable.
func (s *NoteService) DeleteFolder(id string) bool {
	if domain.IsReservedFolder(id) {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.folders {
		if s.folders[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	s.folders = append(s.folders[:idx], s.folders[idx+1:]...)
	for i := range s.notes {
		if s.notes[i].FolderID == id {
			s.notes[i].FolderID = domain.FolderAll
		}
	}
	s.persist()
	return true
}

func (s *NoteService) mutate(id string, fn func(*domain.Note)) (*domain.Note, bool) {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return nil, false
	}
	note := &s.notes[idx]
	fn(note)
	touch(note)
	s.persist()
	updated := cloneNote(note)
	s.mu.Unlock()

	s.noteChanged(updated)
	return updated, true
}

func (s *NoteService) indexOf(id string) int {
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

// persist is called with the write lock held.
func (s *NoteService) persist() {
	state := noteState{Notes: s.notes, Folders: s.folders}
	if state.Notes == nil {
		state.Notes = []domain.Note{}
	}
	if err := s.store.Set(noteStateKey, state); err != nil {
		s.logger.Warn("failed to persist notes locally", zap.Error(err))
	}
}

func (s *NoteService) noteChanged(note *domain.Note) {
	if s.notifier != nil {
		s.notifier.NoteChanged(note)
	}
	if s.trigger != nil {
		s.trigger.Schedule()
	}
}

// touch bumps updatedAt, keeping it strictly increasing per note even when
// two mutations land within the clock's resolution.
func touch(n *domain.Note) {
	now := time.Now().UTC()
	if !now.After(n.UpdatedAt) {
		now = n.UpdatedAt.Add(time.Nanosecond)
	}
	n.UpdatedAt = now
}

func cloneNote(n *domain.Note) *domain.Note {
	c := *n
	c.Tags = append([]string(nil), n.Tags...)
	return &c
}

func noteInFolder(n *domain.Note, folderID string) bool {
	switch folderID {
	case "", domain.FolderAll:
		return true
	case domain.FolderFavorites:
		return n.IsFavorite
	default:
		return n.FolderID == folderID
	}
}

func stripTags(content string) string {
	return tagPattern.ReplaceAllString(content, " ")
}

func dedupeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
