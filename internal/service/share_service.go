package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/repository"

	"go.uber.org/zap"
)

const (
	tokensFileName    = "share-tokens.json"
	tokensCacheKey    = "share_tokens_cache"
	tokensDescription = "notes-share-server - share tokens"
	untitledNote      = "Untitled Note"
)

type cachedTokens struct {
	Tokens   []domain.ShareToken `json:"tokens"`
	CachedAt time.Time           `json:"cachedAt"`
}

// ShareService is the single source of truth for "is this note publicly
// viewable under this token". The collection is loaded lazily once per
// process from the remote document (local cache as fallback) and every
// mutation writes the whole collection back. Like the note sync path this
// is last-write-wins across processes; the token store is low-write-volume
// and real concurrency control is not worth its cost for a personal tool.
type ShareService struct {
	client   DocumentStore
	store    repository.LocalStore
	logger   *zap.Logger
	cacheTTL time.Duration

	mu         sync.Mutex
	documentID string
	credential string
	tokens     []domain.ShareToken
	loaded     bool
}

func NewShareService(client DocumentStore, store repository.LocalStore, documentID, credential string, cacheTTL time.Duration, logger *zap.Logger) *ShareService {
	return &ShareService{
		client:     client,
		store:      store,
		logger:     logger,
		cacheTTL:   cacheTTL,
		documentID: documentID,
		credential: credential,
	}
}

// generateToken returns 256 bits of CSPRNG randomness, hex encoded to 64
// characters.
func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// Create mints a share token for the note. If the note already holds a
// token it is rotated in place: the old string becomes permanently
// invalid, revocation and view count reset.
func (s *ShareService) Create(ctx context.Context, noteID, noteTitle string) (*domain.ShareToken, error) {
	value, err := generateToken()
	if err != nil {
		return nil, err
	}
	if noteTitle == "" {
		noteTitle = untitledNote
	}

	token := domain.ShareToken{
		Token:     value,
		NoteID:    noteID,
		NoteTitle: noteTitle,
		CreatedAt: time.Now().UnixMilli(),
		ExpiresAt: nil,
		Revoked:   false,
		ViewCount: 0,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	if idx := s.indexByNote(noteID); idx >= 0 {
		s.tokens[idx] = token
	} else {
		s.tokens = append(s.tokens, token)
	}
	s.persist(ctx)

	out := token
	return &out, nil
}

// Validate looks the token up by exact match. It never returns an error:
// unknown, revoked and expired tokens all produce a tagged invalid result.
func (s *ShareService) Validate(ctx context.Context, value string) *domain.ShareValidation {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	for i := range s.tokens {
		t := &s.tokens[i]
		if t.Token != value || t.Revoked {
			continue
		}
		if t.Expired(time.Now()) {
			return &domain.ShareValidation{Valid: false, Error: "Token has expired"}
		}
		return &domain.ShareValidation{
			Valid:     true,
			NoteID:    t.NoteID,
			NoteTitle: t.NoteTitle,
			CreatedAt: t.CreatedAt,
		}
	}
	return &domain.ShareValidation{Valid: false, Error: "Invalid or revoked token"}
}

// IncrementView bumps the view counter for a token. Best-effort: callers
// fire it on successful validation and a lost increment under failure is
// acceptable.
func (s *ShareService) IncrementView(value string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	for i := range s.tokens {
		if s.tokens[i].Token == value {
			s.tokens[i].ViewCount++
			s.persist(ctx)
			return
		}
	}
}

// Revoke disables the active token for a note. Revoking an already-revoked
// token is a no-op success so clients can retry freely; only a note with
// no token at all reports false.
func (s *ShareService) Revoke(ctx context.Context, noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	idx := s.indexByNote(noteID)
	if idx < 0 {
		return false
	}
	if !s.tokens[idx].Revoked {
		s.tokens[idx].Revoked = true
		s.persist(ctx)
	}
	return true
}

// TokenFor returns the active (non-revoked) token for a note, if any.
func (s *ShareService) TokenFor(ctx context.Context, noteID string) (*domain.ShareToken, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	idx := s.indexByNote(noteID)
	if idx < 0 || s.tokens[idx].Revoked {
		return nil, false
	}
	out := s.tokens[idx]
	return &out, true
}

// Tokens returns a snapshot of the whole collection, revoked entries
// included.
func (s *ShareService) Tokens(ctx context.Context) []domain.ShareToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureLoaded(ctx)

	return append([]domain.ShareToken(nil), s.tokens...)
}

// ensureLoaded populates the in-memory collection once per process:
// remote document first, cached snapshot as fallback, empty otherwise.
// Called with the lock held.
func (s *ShareService) ensureLoaded(ctx context.Context) {
	if s.loaded {
		return
	}
	s.loaded = true

	if s.documentID != "" {
		doc, err := s.client.GetDocument(ctx, s.documentID, s.credential)
		if err == nil {
			tokens, perr := domain.ParseTokensPayload([]byte(doc.Files[tokensFileName]))
			if perr == nil {
				s.tokens = tokens
				s.writeCache()
				return
			}
			s.logger.Warn("malformed share token payload", zap.Error(perr))
		} else {
			s.logger.Warn("failed to load share tokens from remote", zap.Error(err))
		}
	}

	var cached cachedTokens
	found, err := s.store.Get(tokensCacheKey, &cached)
	if err != nil {
		s.logger.Warn("failed to read share token cache", zap.Error(err))
	}
	if found && time.Since(cached.CachedAt) <= s.cacheTTL {
		s.tokens = cached.Tokens
	}
	if s.tokens == nil {
		s.tokens = []domain.ShareToken{}
	}
}

// persist writes the whole collection through: local cache always, remote
// document best-effort. Called with the lock held.
func (s *ShareService) persist(ctx context.Context) {
	s.writeCache()

	if s.documentID == "" || s.credential == "" {
		return
	}
	content, err := json.MarshalIndent(domain.NewTokensPayload(s.tokens), "", "  ")
	if err != nil {
		s.logger.Warn("failed to encode share tokens", zap.Error(err))
		return
	}
	files := map[string]string{tokensFileName: string(content)}
	if err := s.client.UpdateDocument(ctx, s.documentID, s.credential, tokensDescription, files); err != nil {
		s.logger.Warn("failed to save share tokens to remote", zap.Error(err))
	}
}

func (s *ShareService) writeCache() {
	if err := s.store.Set(tokensCacheKey, cachedTokens{Tokens: s.tokens, CachedAt: time.Now().UTC()}); err != nil {
		s.logger.Warn("failed to write share token cache", zap.Error(err))
	}
}

func (s *ShareService) indexByNote(noteID string) int {
	for i := range s.tokens {
		if s.tokens[i].NoteID == noteID {
			return i
		}
	}
	return -1
}
