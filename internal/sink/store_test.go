package sink

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/dgallion1/corpusgest/internal/pathstore"
)

type memStore struct {
	mu      sync.Mutex
	records map[string]Record
	hashes  map[string]string
	fail    error
	closed  bool
}

func newMemStore() *memStore {
	return &memStore{records: map[string]Record{}, hashes: map[string]string{}}
}

func (m *memStore) Upsert(_ context.Context, records []Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	for _, r := range records {
		m.records[r.Path] = r
	}
	return nil
}

func (m *memStore) ImportHash(_ context.Context, mount string) (string, error) {
	return m.hashes[mount], nil
}

func (m *memStore) SetImportHash(_ context.Context, mount, hash string) error {
	m.hashes[mount] = hash
	return nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

func TestMultiStore_FanOutAndMarkers(t *testing.T) {
	a, b := newMemStore(), newMemStore()
	m := NewMultiStore(a, b)
	ctx := context.Background()

	recs, err := Records(indexedTree(t))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if err := m.Upsert(ctx, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(a.records) != 4 || len(b.records) != 4 {
		t.Errorf("expected both stores written, got %d and %d", len(a.records), len(b.records))
	}

	if err := m.SetImportHash(ctx, "/books/al-kafi", "abc"); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	if h, _ := m.ImportHash(ctx, "/books/al-kafi"); h != "abc" {
		t.Errorf("expected agreed hash, got %q", h)
	}
	b.hashes["/books/al-kafi"] = "other"
	if h, _ := m.ImportHash(ctx, "/books/al-kafi"); h != "" {
		t.Errorf("expected empty hash on disagreement, got %q", h)
	}

	if _, err := m.Search("x", 1); !errors.Is(err, ErrNoSearch) {
		t.Errorf("expected ErrNoSearch, got %v", err)
	}

	b.fail = errors.New("disk full")
	if err := m.Upsert(ctx, recs); err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected wrapped store error, got %v", err)
	}

	if err := m.Close(); err != nil || !a.closed || !b.closed {
		t.Errorf("expected all stores closed, err=%v", err)
	}
}

func TestSQLiteStore_UpsertIsIdempotent(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "corpus.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	recs, err := Records(indexedTree(t))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	for range 2 {
		if err := s.Upsert(ctx, recs); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != len(recs) {
		t.Errorf("expected %d rows after re-import, got %d", len(recs), n)
	}

	kind, data, err := s.Get(ctx, "/books/al-kafi:1:1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if kind != KindChapterContent {
		t.Errorf("expected chapter_content, got %q", kind)
	}
	var body struct {
		VerseCount int `json:"verse_count"`
	}
	if err := json.Unmarshal(data, &body); err != nil || body.VerseCount != 2 {
		t.Errorf("expected verse_count 2, got %d (%v)", body.VerseCount, err)
	}

	if err := s.SetImportHash(ctx, "/books/al-kafi", "h1"); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	if h, err := s.ImportHash(ctx, "/books/al-kafi"); err != nil || h != "h1" {
		t.Errorf("expected h1, got %q (%v)", h, err)
	}
	if h, err := s.ImportHash(ctx, "/books/quran"); err != nil || h != "" {
		t.Errorf("expected no hash, got %q (%v)", h, err)
	}

	// A sibling mount sharing the name prefix must survive pruning.
	other := Catalog("/books/al-kafi-ha", en("x"), nil)
	if err := s.Upsert(ctx, []Record{other}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Prune(ctx, "/books/al-kafi"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("expected only the sibling mount left, got %d rows", n)
	}
}

func TestPathstoreStore_KeysAndUpsert(t *testing.T) {
	var mu sync.Mutex
	puts := map[string]string{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.EscapedPath(), "/kv/")
		switch r.Method {
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			puts[key] = string(body)
			mu.Unlock()
		case http.MethodGet:
			mu.Lock()
			body, ok := puts[key]
			mu.Unlock()
			if !ok {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			var req pathstore.NodeRequest
			json.Unmarshal([]byte(body), &req)
			json.NewEncoder(w).Encode(map[string]any{"key_path": key, "value": req.Value})
		case http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		}
	}))
	defer srv.Close()

	s := NewPathstoreStore(pathstore.NewClient(srv.URL, "k"), "/corpora/", 4)
	defer s.Close()
	ctx := context.Background()

	if got := s.Key("/books/al-kafi:1:2"); got != "corpora/books/al-kafi/1/2" {
		t.Errorf("unexpected key %q", got)
	}

	recs, err := Records(indexedTree(t))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(puts) != len(recs) {
		t.Errorf("expected %d puts, got %d", len(recs), len(puts))
	}
	if !strings.Contains(puts["corpora/books/al-kafi/1/1"], `"chapter_content"`) {
		t.Errorf("expected chapter_content body, got %s", puts["corpora/books/al-kafi/1/1"])
	}

	if err := s.SetImportHash(ctx, "/books/al-kafi", "deadbeef"); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	if h, err := s.ImportHash(ctx, "/books/al-kafi"); err != nil || h != "deadbeef" {
		t.Errorf("expected deadbeef, got %q (%v)", h, err)
	}
	if err := s.Prune(ctx, "/books/al-kafi"); err != nil {
		t.Errorf("prune: %v", err)
	}
}

func TestSQLiteStore_PruneNonASCIIMount(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	recs := []Record{
		{Path: "/كتب/الكافي", Kind: KindChapterList},
		{Path: "/كتب/الكافي:1", Kind: KindChapterList},
		{Path: "/كتب/الكافي:1:1", Kind: KindChapterContent},
		{Path: "/كتب/الكافي2", Kind: KindChapterList},
	}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Prune(ctx, "/كتب/الكافي"); err != nil {
		t.Fatalf("prune: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 record left after prune, got %d", n)
	}
	if kind, _, err := s.Get(ctx, "/كتب/الكافي2"); err != nil || kind != KindChapterList {
		t.Errorf("expected sibling mount to survive prune, got %q (%v)", kind, err)
	}
}

func TestSearchStore_IndexAndQuery(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "search.bleve")
	s, err := OpenSearch(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	ctx := context.Background()

	recs, err := Records(indexedTree(t))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	if err := s.Upsert(ctx, recs); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	hits, err := s.Search("first", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 || hits[0].Path != "/books/al-kafi:1:1:1" {
		t.Fatalf("expected first hadith hit, got %+v", hits)
	}
	if hits[0].Breadcrumb != "Volume 1 > Chapter 1" {
		t.Errorf("unexpected breadcrumb %q", hits[0].Breadcrumb)
	}

	if err := s.Prune(ctx, "/books/al-kafi"); err != nil {
		t.Fatalf("prune: %v", err)
	}
	hits, err = s.Search("first", 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after prune, got %+v", hits)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// Reopening finds the existing index.
	s, err = OpenSearch(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	s.Close()
}

func TestPostgresStore_Upsert(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, url, "test_")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	recs, err := Records(indexedTree(t))
	if err != nil {
		t.Fatalf("records: %v", err)
	}
	for range 2 {
		if err := s.Upsert(ctx, recs); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := s.SetImportHash(ctx, "/books/al-kafi", "h"); err != nil {
		t.Fatalf("set hash: %v", err)
	}
	if h, err := s.ImportHash(ctx, "/books/al-kafi"); err != nil || h != "h" {
		t.Errorf("expected h, got %q (%v)", h, err)
	}
	if err := s.Prune(ctx, "/books/al-kafi"); err != nil {
		t.Fatalf("prune: %v", err)
	}
}

func TestOpen_RequiresAStore(t *testing.T) {
	log := slog.New(slog.DiscardHandler)
	if _, err := Open(context.Background(), Options{}, log); err == nil {
		t.Fatal("expected error with no sink configured")
	}

	m, err := Open(context.Background(), Options{SQLitePath: filepath.Join(t.TempDir(), "c.db")}, log)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer m.Close()
	if len(m.stores) != 1 {
		t.Errorf("expected 1 store, got %d", len(m.stores))
	}
}
