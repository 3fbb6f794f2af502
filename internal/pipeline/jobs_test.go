package pipeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
)

func TestContentHashHex_Consistency(t *testing.T) {
	data := []byte("hello world")
	h1 := ContentHashHex(data)
	h2 := ContentHashHex(data)
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %q and %q", h1, h2)
	}
	// SHA-256 of "hello world" is well-known.
	want := "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9"
	if h1 != want {
		t.Errorf("expected hash %q, got %q", want, h1)
	}
}

func TestImportHash_CoversSideFiles(t *testing.T) {
	dir := t.TempDir()
	meta := filepath.Join(dir, "quran-data.xml")
	tr := filepath.Join(dir, "en.txt")
	os.WriteFile(meta, []byte("<quran/>"), 0o644)
	os.WriteFile(tr, []byte("one\n"), 0o644)

	req := Request{Builder: builder.Options{
		Metadata:     meta,
		Translations: []builder.TranslationFile{{Name: "sarwar", Lang: "en", Path: tr}},
	}}
	data := []byte("text")
	h1, err := importHash(req, builder.FormatQuran, data)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h2, _ := importHash(req, builder.FormatQuran, data); h1 != h2 {
		t.Error("expected stable hash")
	}

	os.WriteFile(tr, []byte("changed\n"), 0o644)
	if h3, _ := importHash(req, builder.FormatQuran, data); h3 == h1 {
		t.Error("expected translation change to change the hash")
	}

	titled := req
	titled.Titles = doctree.Titles{doctree.LangEN: "Quran"}
	hT, _ := importHash(titled, builder.FormatQuran, data)
	hU, _ := importHash(req, builder.FormatQuran, data)
	if hT == hU {
		t.Error("expected title override to change the hash")
	}

	ruled := req
	ruled.Rules = config.IndexRules{CrumbLanguage: doctree.LangAR, Countable: []string{"verse"}}
	hR, _ := importHash(ruled, builder.FormatQuran, data)
	if hR == hU {
		t.Error("expected index rules to change the hash")
	}
	reordered := ruled
	reordered.Rules.Countable = []string{"verse"}
	if h, _ := importHash(reordered, builder.FormatQuran, data); h != hR {
		t.Error("expected equal rules to hash equally")
	}
	ruled.Rules.Countable = []string{"hadith", "verse"}
	reordered.Rules.Countable = []string{"verse", "hadith"}
	hA, _ := importHash(ruled, builder.FormatQuran, data)
	hB, _ := importHash(reordered, builder.FormatQuran, data)
	if hA != hB {
		t.Error("expected countable order not to change the hash")
	}

	translated := req
	translated.Builder.Translator = "Muhammad Sarwar"
	if h, _ := importHash(translated, builder.FormatQuran, data); h == hU {
		t.Error("expected translator to change the hash")
	}

	req.Builder.Metadata = filepath.Join(dir, "missing.xml")
	if _, err := importHash(req, builder.FormatQuran, data); err == nil {
		t.Error("expected error for missing side file")
	}
}

func TestJob_StateTransitions(t *testing.T) {
	job := NewJob(Request{Corpus: "quran", MountPath: "/books/quran"}, nil)
	if job.ID == "" || job.Status != StatusQueued {
		t.Fatalf("unexpected new job %+v", job.Snapshot())
	}

	transitions := []struct {
		status JobStatus
		phase  string
	}{
		{StatusBuilding, "building"},
		{StatusIndexing, "indexing"},
		{StatusStoring, "storing"},
		{StatusCompleted, "done"},
	}

	for _, tr := range transitions {
		before := job.UpdatedAt
		// Small sleep to ensure time difference is detectable.
		time.Sleep(time.Millisecond)
		job.SetStatus(tr.status, tr.phase)

		if job.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, job.Status)
		}
		if job.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, job.Phase)
		}
		if !job.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
	if !job.Status.Done() || StatusStoring.Done() {
		t.Error("unexpected Done() result")
	}
}

func TestJob_UniqueIDs(t *testing.T) {
	a := NewJob(Request{}, nil)
	b := NewJob(Request{}, nil)
	if a.ID == b.ID {
		t.Errorf("expected distinct job ids, got %s twice", a.ID)
	}
}

func TestJob_AddError(t *testing.T) {
	job := &Job{ID: "err-test", UpdatedAt: time.Now()}
	job.AddError("store /q:1 failed")
	job.AddError("store /q:2 failed")

	snap := job.Snapshot()
	if len(snap.Progress.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(snap.Progress.Errors))
	}
	if snap.Progress.Errors[0] != "store /q:1 failed" {
		t.Errorf("expected first error %q, got %q", "store /q:1 failed", snap.Progress.Errors[0])
	}
	snap.Progress.Errors[0] = "mutated"
	if job.Snapshot().Progress.Errors[0] == "mutated" {
		t.Error("snapshot must not alias job errors")
	}
}

func TestJob_Progress(t *testing.T) {
	job := &Job{ID: "progress-test", UpdatedAt: time.Now()}
	diags := []indexer.Diagnostic{{Path: "/b:3", Expected: 3, Found: 4}}
	job.SetIndexed(3, 10, diags)
	job.SetRecords(4)
	job.AddStored(2)
	job.AddStored(2)

	snap := job.Snapshot()
	if snap.Progress.Nodes != 3 || snap.Progress.Leaves != 10 || snap.Progress.Warnings != 1 {
		t.Errorf("unexpected index progress %+v", snap.Progress)
	}
	if snap.Progress.Records != 4 || snap.Progress.Stored != 4 {
		t.Errorf("expected 4 of 4 stored, got %+v", snap.Progress)
	}
	got := job.Diagnostics()
	got[0].Path = "mutated"
	if job.Diagnostics()[0].Path != "/b:3" {
		t.Error("Diagnostics must return a copy")
	}
}

func TestJob_FileData(t *testing.T) {
	data := []byte("file content here")
	job := NewJob(Request{}, data)
	got := job.FileData()
	if string(got) != string(data) {
		t.Errorf("expected file data %q, got %q", data, got)
	}
}

func TestJob_SnapshotErrorsNotNil(t *testing.T) {
	// Snapshot should always return non-nil errors slice.
	job := &Job{ID: "snap-test", UpdatedAt: time.Now()}
	snap := job.Snapshot()
	if snap.Progress.Errors == nil {
		t.Error("expected non-nil errors slice in snapshot")
	}
	if len(snap.Progress.Errors) != 0 {
		t.Errorf("expected empty errors, got %d", len(snap.Progress.Errors))
	}
}

func TestJobStore_PutGet(t *testing.T) {
	store := NewJobStore(time.Hour)
	job := &Job{ID: "store-1", UpdatedAt: time.Now()}
	store.Put(job)

	got := store.Get("store-1")
	if got == nil {
		t.Fatal("expected to get job back")
	}
	if got.ID != "store-1" {
		t.Errorf("expected ID %q, got %q", "store-1", got.ID)
	}
}

func TestJobStore_GetMissing(t *testing.T) {
	store := NewJobStore(time.Hour)
	if store.Get("nonexistent") != nil {
		t.Error("expected nil for missing job")
	}
}

func TestJobStore_TTLCleanup(t *testing.T) {
	store := NewJobStore(50 * time.Millisecond)

	expired := &Job{ID: "old", UpdatedAt: time.Now()}
	store.Put(expired)

	// Wait for the TTL to pass.
	time.Sleep(100 * time.Millisecond)

	// Add a fresh job.
	fresh := &Job{ID: "new", UpdatedAt: time.Now()}
	store.Put(fresh)

	store.Cleanup()

	if store.Get("old") != nil {
		t.Error("expected expired job to be cleaned up")
	}
	if store.Get("new") == nil {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestJobStore_CleanupEmpty(t *testing.T) {
	store := NewJobStore(time.Hour)
	// Should not panic on empty store.
	store.Cleanup()
}
