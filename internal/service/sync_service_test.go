package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"notes-share-server/internal/domain"
	"notes-share-server/internal/gist"

	"go.uber.org/zap"
)

type fakeDocStore struct {
	docs       map[string]map[string]string
	failGet    error
	failUpdate error
	updates    int
}

func newFakeDocStore() *fakeDocStore {
	return &fakeDocStore{docs: make(map[string]map[string]string)}
}

func (f *fakeDocStore) GetDocument(_ context.Context, id, _ string) (*gist.Document, error) {
	if f.failGet != nil {
		return nil, f.failGet
	}
	files, ok := f.docs[id]
	if !ok {
		return nil, gist.ErrNotFound
	}
	return &gist.Document{ID: id, Files: files}, nil
}

func (f *fakeDocStore) UpdateDocument(_ context.Context, id, _, _ string, files map[string]string) error {
	if f.failUpdate != nil {
		return f.failUpdate
	}
	existing, ok := f.docs[id]
	if !ok {
		return gist.ErrNotFound
	}
	for name, content := range files {
		existing[name] = content
	}
	f.updates++
	return nil
}

func (f *fakeDocStore) CreateDocument(_ context.Context, _, _ string, files map[string]string) (string, error) {
	id := "doc-new"
	f.docs[id] = files
	return id, nil
}

func (f *fakeDocStore) seedNotes(t *testing.T, id string, notes []domain.Note) {
	t.Helper()
	content, err := json.Marshal(domain.NewNotesPayload(notes))
	if err != nil {
		t.Fatal(err)
	}
	f.docs[id] = map[string]string{notesFileName: string(content)}
}

func newTestSyncService(docs *fakeDocStore) *SyncService {
	return NewSyncService(docs, newMemStore(), 5*time.Minute, zap.NewNop())
}

func TestSyncService_NotConfigured(t *testing.T) {
	svc := newTestSyncService(newFakeDocStore())

	if _, err := svc.Fetch(context.Background()); !errors.Is(err, gist.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
	if _, err := svc.Save(context.Background(), nil); !errors.Is(err, gist.ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestSyncService_SaveRequiresCredential(t *testing.T) {
	svc := newTestSyncService(newFakeDocStore())
	svc.Configure("doc-1", "")

	if _, err := svc.Save(context.Background(), nil); !errors.Is(err, gist.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestSyncService_SaveFetchRoundtrip(t *testing.T) {
	docs := newFakeDocStore()
	docs.seedNotes(t, "doc-1", nil)

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "secret")

	notes := []domain.Note{{ID: "n1", Title: "Groceries", Content: "<p>milk</p>"}}
	saved, err := svc.Save(context.Background(), notes)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved.Fallback {
		t.Error("expected direct save, got fallback")
	}

	got, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Fallback {
		t.Error("expected direct fetch, got fallback")
	}
	if len(got.Notes) != 1 || got.Notes[0].Title != "Groceries" {
		t.Errorf("unexpected fetched notes: %+v", got.Notes)
	}
}

func TestSyncService_FetchMissingDocumentIsEmpty(t *testing.T) {
	svc := newTestSyncService(newFakeDocStore())
	svc.Configure("doc-missing", "")

	got, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if got.Fallback {
		t.Error("expected clean empty result, got fallback")
	}
	if got.Notes == nil || len(got.Notes) != 0 {
		t.Errorf("expected empty collection, got %+v", got.Notes)
	}
}

func TestSyncService_FetchFallsBackToCache(t *testing.T) {
	docs := newFakeDocStore()
	docs.seedNotes(t, "doc-1", []domain.Note{{ID: "n1", Title: "cached"}})

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "")

	// Warm the cache, then break the remote.
	if _, err := svc.Fetch(context.Background()); err != nil {
		t.Fatalf("warmup fetch: %v", err)
	}
	docs.failGet = gist.ErrUnreachable

	got, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !got.Fallback {
		t.Error("expected fallback flag on cached read")
	}
	if len(got.Notes) != 1 || got.Notes[0].Title != "cached" {
		t.Errorf("unexpected cached notes: %+v", got.Notes)
	}
}

func TestSyncService_FetchUnreachableWithoutCache(t *testing.T) {
	docs := newFakeDocStore()
	docs.failGet = gist.ErrUnreachable

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "")

	if _, err := svc.Fetch(context.Background()); !errors.Is(err, gist.ErrUnreachable) {
		t.Errorf("expected ErrUnreachable, got %v", err)
	}
}

func TestSyncService_FetchMalformedPayload(t *testing.T) {
	docs := newFakeDocStore()
	docs.docs["doc-1"] = map[string]string{notesFileName: "{not json"}

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "")

	if _, err := svc.Fetch(context.Background()); !errors.Is(err, gist.ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestSyncService_FetchLegacyBareArray(t *testing.T) {
	docs := newFakeDocStore()
	docs.docs["doc-1"] = map[string]string{notesFileName: `[{"id":"n1","title":"legacy"}]`}

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "")

	got, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got.Notes) != 1 || got.Notes[0].Title != "legacy" {
		t.Errorf("unexpected notes from bare array: %+v", got.Notes)
	}
}

func TestSyncService_SaveFailureParksPayload(t *testing.T) {
	docs := newFakeDocStore()
	docs.seedNotes(t, "doc-1", nil)
	docs.failUpdate = gist.ErrUnreachable

	svc := newTestSyncService(docs)
	svc.Configure("doc-1", "secret")

	notes := []domain.Note{{ID: "n1", Title: "unsaved"}}
	saved, err := svc.Save(context.Background(), notes)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !saved.Fallback {
		t.Error("expected fallback flag on failed remote save")
	}

	// The parked payload must be readable back through the fetch fallback.
	docs.failGet = gist.ErrUnreachable
	got, err := svc.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !got.Fallback || len(got.Notes) != 1 || got.Notes[0].Title != "unsaved" {
		t.Errorf("expected parked payload from cache, got %+v", got)
	}
}

func TestSyncService_Status(t *testing.T) {
	svc := newTestSyncService(newFakeDocStore())

	if st := svc.Status(); st.Configured || st.Writable {
		t.Errorf("expected unconfigured status, got %+v", st)
	}

	svc.Configure("doc-1", "")
	if st := svc.Status(); !st.Configured || st.Writable {
		t.Errorf("expected read-only status, got %+v", st)
	}

	svc.Configure("doc-1", "secret")
	if st := svc.Status(); !st.Configured || !st.Writable || st.DocumentID != "doc-1" {
		t.Errorf("expected writable status, got %+v", st)
	}
}

func TestSyncService_CreateDocument(t *testing.T) {
	docs := newFakeDocStore()
	svc := newTestSyncService(docs)

	id, err := svc.CreateDocument(context.Background(), "secret")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected document id")
	}
	if _, ok := docs.docs[id][notesFileName]; !ok {
		t.Error("expected notes file in created document")
	}
}
