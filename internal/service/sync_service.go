package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/gist"
	"notes-share-server/internal/repository"

	"go.uber.org/zap"
)

const (
	notesFileName    = "notes.json"
	notesCacheKey    = "notes_cache"
	notesDescription = "notes-share-server - synced notes"
)

// DocumentStore is the remote document access used by the sync and share
// services. *gist.Client satisfies it.
type DocumentStore interface {
	GetDocument(ctx context.Context, id, credential string) (*gist.Document, error)
	UpdateDocument(ctx context.Context, id, credential, description string, files map[string]string) error
	CreateDocument(ctx context.Context, credential, description string, files map[string]string) (string, error)
}

// FetchResult carries the fetched collection. Fallback marks a degraded
// read served from the local cache instead of the remote document.
type FetchResult struct {
	Notes    []domain.Note
	Fallback bool
}

// SaveResult mirrors FetchResult for the write path: Fallback means the
// payload landed in the local cache because the remote write failed.
type SaveResult struct {
	Fallback bool
}

type SyncStatus struct {
	Configured bool   `json:"configured"`
	Writable   bool   `json:"writable"`
	DocumentID string `json:"documentId,omitempty"`
}

type cachedNotes struct {
	Notes    []domain.Note `json:"notes"`
	CachedAt time.Time     `json:"cachedAt"`
}

// SyncService synchronizes the full note collection with one remote JSON
// document. It never sends deltas: every save overwrites the document
// whole, and concurrent writers race last-write-wins. That lost-update
// hazard is inherent to the document-store protocol and deliberately not
// papered over here.
type SyncService struct {
	client   DocumentStore
	store    repository.LocalStore
	logger   *zap.Logger
	cacheTTL time.Duration

	mu         sync.RWMutex
	documentID string
	credential string
}

func NewSyncService(client DocumentStore, store repository.LocalStore, cacheTTL time.Duration, logger *zap.Logger) *SyncService {
	return &SyncService{
		client:   client,
		store:    store,
		logger:   logger,
		cacheTTL: cacheTTL,
	}
}

// Configure sets remote addressing. A document ID without a credential is
// valid and yields read-only behavior.
func (s *SyncService) Configure(documentID, credential string) {
	s.mu.Lock()
	s.documentID = documentID
	s.credential = credential
	s.mu.Unlock()
}

func (s *SyncService) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SyncStatus{
		Configured: s.documentID != "",
		Writable:   s.documentID != "" && s.credential != "",
		DocumentID: s.documentID,
	}
}

func (s *SyncService) Writable() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.documentID != "" && s.credential != ""
}

// Fetch reads the remote note collection. A missing document or missing
// notes file yields an empty collection, not an error. Remote failures and
// malformed payloads fall back to the cached snapshot when one is fresh
// enough; otherwise the typed error is returned so the caller can tell
// not-found, rate-limited, unauthorized and unreachable apart.
func (s *SyncService) Fetch(ctx context.Context) (*FetchResult, error) {
	s.mu.RLock()
	documentID, credential := s.documentID, s.credential
	s.mu.RUnlock()

	if documentID == "" {
		return nil, gist.ErrNotConfigured
	}

	doc, err := s.client.GetDocument(ctx, documentID, credential)
	if err != nil {
		if errors.Is(err, gist.ErrNotFound) {
			if cached, ok := s.cachedFetch(); ok {
				return &FetchResult{Notes: cached, Fallback: true}, nil
			}
			// A configured but empty document reads as an empty
			// collection, distinguished from an unreachable remote.
			return &FetchResult{Notes: []domain.Note{}}, nil
		}
		return s.fetchFallback(err)
	}

	notes, err := domain.ParseNotesPayload([]byte(doc.Files[notesFileName]))
	if err != nil {
		s.logger.Warn("malformed remote notes payload", zap.Error(err))
		return s.fetchFallback(gist.ErrMalformedPayload)
	}

	s.writeCache(notes)
	return &FetchResult{Notes: notes}, nil
}

func (s *SyncService) fetchFallback(cause error) (*FetchResult, error) {
	if cached, ok := s.cachedFetch(); ok {
		s.logger.Warn("remote fetch failed, serving cached snapshot", zap.Error(cause))
		return &FetchResult{Notes: cached, Fallback: true}, nil
	}
	return nil, cause
}

// Save overwrites the remote document with the full collection. Remote
// failures are not surfaced as errors: the payload is parked in the local
// cache and the result is marked as a fallback, so local edits are never
// lost even when sync is broken.
func (s *SyncService) Save(ctx context.Context, notes []domain.Note) (*SaveResult, error) {
	s.mu.RLock()
	documentID, credential := s.documentID, s.credential
	s.mu.RUnlock()

	if documentID == "" {
		return nil, gist.ErrNotConfigured
	}
	if credential == "" {
		return nil, gist.ErrUnauthorized
	}

	content, err := json.MarshalIndent(domain.NewNotesPayload(notes), "", "  ")
	if err != nil {
		return nil, err
	}

	files := map[string]string{notesFileName: string(content)}
	if err := s.client.UpdateDocument(ctx, documentID, credential, notesDescription, files); err != nil {
		s.logger.Warn("remote save failed, keeping payload in local cache", zap.Error(err))
		s.writeCache(notes)
		return &SaveResult{Fallback: true}, nil
	}

	s.writeCache(notes)
	return &SaveResult{}, nil
}

// CreateDocument provisions a new empty remote document for first-time
// setup and returns its identifier. It does not change the configured
// addressing.
func (s *SyncService) CreateDocument(ctx context.Context, credential string) (string, error) {
	content, err := json.MarshalIndent(domain.NewNotesPayload(nil), "", "  ")
	if err != nil {
		return "", err
	}
	files := map[string]string{notesFileName: string(content)}
	return s.client.CreateDocument(ctx, credential, notesDescription, files)
}

// cachedFetch returns the cached snapshot if it is within the staleness
// ceiling. The save path writes the cache regardless of age.
func (s *SyncService) cachedFetch() ([]domain.Note, bool) {
	var cached cachedNotes
	found, err := s.store.Get(notesCacheKey, &cached)
	if err != nil {
		s.logger.Warn("failed to read notes cache", zap.Error(err))
		return nil, false
	}
	if !found || time.Since(cached.CachedAt) > s.cacheTTL {
		return nil, false
	}
	if cached.Notes == nil {
		cached.Notes = []domain.Note{}
	}
	return cached.Notes, true
}

func (s *SyncService) writeCache(notes []domain.Note) {
	if notes == nil {
		notes = []domain.Note{}
	}
	if err := s.store.Set(notesCacheKey, cachedNotes{Notes: notes, CachedAt: time.Now().UTC()}); err != nil {
		s.logger.Warn("failed to write notes cache", zap.Error(err))
	}
}
