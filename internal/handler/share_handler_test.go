package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/gist"
	"notes-share-server/internal/middleware"
	"notes-share-server/internal/repository"
	"notes-share-server/internal/service"
	"notes-share-server/pkg/response"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// stubDocStore is written and read concurrently once the async view
// counter is in play, hence the lock.
type stubDocStore struct {
	mu   sync.Mutex
	docs map[string]map[string]string
}

func newStubDocStore() *stubDocStore {
	return &stubDocStore{docs: make(map[string]map[string]string)}
}

func (s *stubDocStore) GetDocument(_ context.Context, id, _ string) (*gist.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	files, ok := s.docs[id]
	if !ok {
		return nil, gist.ErrNotFound
	}
	copied := make(map[string]string, len(files))
	for name, content := range files {
		copied[name] = content
	}
	return &gist.Document{ID: id, Files: copied}, nil
}

func (s *stubDocStore) UpdateDocument(_ context.Context, id, _, _ string, files map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.docs[id]
	if !ok {
		return gist.ErrNotFound
	}
	for name, content := range files {
		existing[name] = content
	}
	return nil
}

func (s *stubDocStore) CreateDocument(_ context.Context, _, _ string, files map[string]string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs["doc-new"] = files
	return "doc-new", nil
}

func (s *stubDocStore) setFile(t *testing.T, id, name string, v interface{}) {
	t.Helper()
	content, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.docs[id] == nil {
		s.docs[id] = make(map[string]string)
	}
	s.docs[id][name] = string(content)
}

// newShareTestRouter wires the public share surface the way the server does,
// backed by an in-memory remote document with one synced note.
func newShareTestRouter(t *testing.T) http.Handler {
	t.Helper()

	docs := newStubDocStore()
	docs.setFile(t, "doc-1", "notes.json", domain.NewNotesPayload([]domain.Note{{
		ID:        "note-groceries",
		Title:     "Groceries",
		Content:   "<p>milk and eggs</p>",
		UpdatedAt: time.Now().UTC(),
	}}))
	docs.setFile(t, "doc-1", "share-tokens.json", domain.NewTokensPayload(nil))

	dir := t.TempDir()
	// The shared-note handler bumps view counts from a fire-and-forget
	// goroutine that writes into the store directory. Remove the directory
	// ourselves with retries (cleanups run LIFO, so this runs before
	// TempDir's own RemoveAll) so that cleanup never races a late write.
	t.Cleanup(func() {
		for i := 0; i < 400; i++ {
			if err := os.RemoveAll(dir); err == nil {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	})

	store, err := repository.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := zap.NewNop()

	syncSvc := service.NewSyncService(docs, store, 5*time.Minute, logger)
	syncSvc.Configure("doc-1", "secret")
	shareSvc := service.NewShareService(docs, store, "doc-1", "secret", 5*time.Minute, logger)

	shareHandler := NewShareHandler(shareSvc)
	sharedNoteHandler := NewSharedNoteHandler(shareSvc, syncSvc, logger)

	r := mux.NewRouter()
	r.Use(middleware.CORSMiddleware("*", "GET, POST, PUT, DELETE, OPTIONS", "Content-Type"))
	r.HandleFunc("/share", shareHandler.Validate).Methods("GET", "OPTIONS")
	r.HandleFunc("/share", shareHandler.Create).Methods("POST", "OPTIONS")
	r.HandleFunc("/share", shareHandler.Revoke).Methods("DELETE", "OPTIONS")
	r.HandleFunc("/shared/{token}", sharedNoteHandler.Get).Methods("GET", "OPTIONS")
	return r
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestShareLifecycle(t *testing.T) {
	router := newShareTestRouter(t)

	// Share the note.
	rec := doRequest(t, router, http.MethodPost, "/share",
		`{"noteId":"note-groceries","noteTitle":"Groceries"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}

	var created response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("create: bad body: %v", err)
	}
	if !created.Success {
		t.Fatalf("create: expected success envelope, got %s", rec.Body.String())
	}
	tokenData, _ := json.Marshal(created.Data)
	var token domain.ShareToken
	if err := json.Unmarshal(tokenData, &token); err != nil {
		t.Fatalf("create: bad token payload: %v", err)
	}
	if len(token.Token) != 64 {
		t.Fatalf("create: expected 64 char token, got %q", token.Token)
	}

	// Validate it.
	rec = doRequest(t, router, http.MethodGet, "/share?token="+token.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("validate: expected 200, got %d", rec.Code)
	}
	var validation domain.ShareValidation
	if err := json.Unmarshal(rec.Body.Bytes(), &validation); err != nil {
		t.Fatal(err)
	}
	if !validation.Valid || validation.NoteTitle != "Groceries" {
		t.Fatalf("validate: unexpected result %+v", validation)
	}

	// Read the shared note.
	rec = doRequest(t, router, http.MethodGet, "/shared/"+token.Token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("shared: expected 200, got %d", rec.Code)
	}
	var shared domain.SharedNote
	if err := json.Unmarshal(rec.Body.Bytes(), &shared); err != nil {
		t.Fatal(err)
	}
	if !shared.Available || !strings.Contains(shared.Content, "milk") {
		t.Fatalf("shared: unexpected body %+v", shared)
	}

	// Revoke and confirm the token is dead.
	rec = doRequest(t, router, http.MethodDelete, "/share?noteId=note-groceries", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("revoke: expected 200, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/share?token="+token.Token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("validate after revoke: expected 404, got %d", rec.Code)
	}
	rec = doRequest(t, router, http.MethodGet, "/shared/"+token.Token, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("shared after revoke: expected 404, got %d", rec.Code)
	}
}

func TestShareCreateRequiresNoteID(t *testing.T) {
	router := newShareTestRouter(t)

	rec := doRequest(t, router, http.MethodPost, "/share", `{"noteTitle":"nameless"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var resp response.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Success || resp.Error == "" {
		t.Errorf("expected error envelope, got %s", rec.Body.String())
	}
}

func TestShareValidateRequiresToken(t *testing.T) {
	router := newShareTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/share", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var validation domain.ShareValidation
	if err := json.Unmarshal(rec.Body.Bytes(), &validation); err != nil {
		t.Fatal(err)
	}
	if validation.Valid {
		t.Error("expected invalid result")
	}
}

func TestShareRevokeUnknownNote(t *testing.T) {
	router := newShareTestRouter(t)

	rec := doRequest(t, router, http.MethodDelete, "/share?noteId=never-shared", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSharedNoteHidesRevocationCause(t *testing.T) {
	router := newShareTestRouter(t)

	rec := doRequest(t, router, http.MethodGet, "/shared/unknown-token", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	var validation domain.ShareValidation
	if err := json.Unmarshal(rec.Body.Bytes(), &validation); err != nil {
		t.Fatal(err)
	}
	if validation.Error != "This link is invalid or no longer available" {
		t.Errorf("unexpected message: %q", validation.Error)
	}
}

func TestSharePreflight(t *testing.T) {
	router := newShareTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/share", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("missing allow-origin header")
	}
	if !strings.Contains(rec.Header().Get("Access-Control-Allow-Methods"), "DELETE") {
		t.Errorf("unexpected allow-methods: %q", rec.Header().Get("Access-Control-Allow-Methods"))
	}
}
