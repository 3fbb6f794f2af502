package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("WORKER_COUNT", "-1")
	t.Setenv("JOB_TTL", "bogus")
	t.Setenv("SQLITE_PATH", "")
	cfg := Load()

	if cfg.Port != "8090" {
		t.Errorf("expected port 8090, got %s", cfg.Port)
	}
	if cfg.WorkerCount != 4 {
		t.Errorf("expected worker count 4, got %d", cfg.WorkerCount)
	}
	if cfg.JobTTL != time.Hour {
		t.Errorf("expected 1h TTL, got %v", cfg.JobTTL)
	}
	if cfg.SequenceScope != ScopeSiblings {
		t.Errorf("expected siblings scope, got %s", cfg.SequenceScope)
	}
	if err := cfg.Validate(); err == nil {
		t.Error("expected error with no sink configured")
	}
}

func TestValidate(t *testing.T) {
	base := Config{SQLitePath: "c.db", SequenceScope: ScopeSiblings}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := base.ValidateServer(); err == nil {
		t.Error("expected server validation to require an API key")
	}

	ps := Config{PathstoreURL: "http://x", SequenceScope: ScopeSiblings}
	if err := ps.Validate(); err == nil || !strings.Contains(err.Error(), "PATHSTORE_API_KEY") {
		t.Errorf("expected pathstore key error, got %v", err)
	}

	bad := base
	bad.SequenceScope = "global"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown scope")
	}
}

func TestConfig_Helpers(t *testing.T) {
	c := Config{CORSOrigins: " http://a , ,http://b", LogLevel: "debug"}
	if got := c.Origins(); len(got) != 2 || got[1] != "http://b" {
		t.Errorf("unexpected origins %v", got)
	}
	if c.Level() != slog.LevelDebug {
		t.Errorf("expected debug, got %v", c.Level())
	}
	c.LogLevel = "loud"
	if c.Level() != slog.LevelInfo {
		t.Errorf("expected info fallback, got %v", c.Level())
	}
}

const manifestYAML = `
catalog:
  path: /books
  titles: {en: books}
corpora:
  - name: quran
    file: quran-simple.txt
    format: quran
    mount_path: /books/quran
    metadata: quran-data.xml
    titles: {en: The Noble Quran, ar: القرآن الكريم}
    translations:
      - {name: sarwar, lang: en, path: /abs/en.sarwar.txt}
    no_sequence_check: true
  - name: al-kafi
    file: kafi.json
    mount_path: /books/al-kafi
    sequence_pattern: 'Chapter (\d+)'
    sequence_scope: corpus
    countable: [hadith]
    replace: true
`

func TestLoadManifest_ResolvesPaths(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "corpora.yaml")
	if err := os.WriteFile(path, []byte(manifestYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.Corpora) != 2 {
		t.Fatalf("expected 2 corpora, got %d", len(m.Corpora))
	}
	q := m.Corpora[0]
	if q.File != filepath.Join(dir, "quran-simple.txt") || q.Metadata != filepath.Join(dir, "quran-data.xml") {
		t.Errorf("expected paths resolved against manifest dir, got %s %s", q.File, q.Metadata)
	}
	if q.Translations[0].Path != "/abs/en.sarwar.txt" {
		t.Errorf("expected absolute path kept, got %s", q.Translations[0].Path)
	}
	if q.Titles[doctree.LangAR] != "القرآن الكريم" {
		t.Errorf("unexpected titles %v", q.Titles)
	}
	if !m.Corpora[1].Replace || m.Catalog.Path != "/books" {
		t.Errorf("unexpected manifest %+v", m)
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"no corpora", "catalog: {path: /books}\n", "corpora"},
		{"unknown key", "corpora:\n  - {name: a, file: a.md, mount_path: /a, colour: red}\n", "colour"},
		{"bad mount", "corpora:\n  - {name: a, file: a.md, mount_path: a}\n", "mount_path"},
		{"colon mount", "corpora:\n  - {name: a, file: a.md, mount_path: '/a:1'}\n", "mount_path"},
		{"quran needs metadata", "corpora:\n  - {name: q, file: q.txt, format: quran, mount_path: /q}\n", "metadata"},
		{"bad format", "corpora:\n  - {name: a, file: a.csv, format: csv, mount_path: /a}\n", "format"},
		{"pattern without group", "corpora:\n  - {name: a, file: a.md, mount_path: /a, sequence_pattern: 'Chapter'}\n", "sequence_pattern"},
		{"bad scope", "corpora:\n  - {name: a, file: a.md, mount_path: /a, sequence_scope: global}\n", "sequence_scope"},
		{"bad name", "corpora:\n  - {name: 'A B', file: a.md, mount_path: /a}\n", "name"},
		{"duplicate mount", "corpora:\n  - {name: a, file: a.md, mount_path: /a}\n  - {name: b, file: b.md, mount_path: /a}\n", "duplicate mount_path"},
		{"translation missing path", "corpora:\n  - {name: q, file: q.txt, format: quran, metadata: m.xml, mount_path: /q, translations: [{name: x, lang: en}]}\n", "path"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected %q in error, got %v", tt.want, err)
			}
		})
	}
}

func TestIndexRules_Options(t *testing.T) {
	opts, err := IndexRules{}.Options(ScopeCorpus, doctree.LangEN)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(opts) != 2 {
		t.Errorf("expected scope and crumb options, got %d", len(opts))
	}

	if _, err := (IndexRules{SequencePattern: "("}).Options("", ""); err == nil {
		t.Error("expected error for bad pattern")
	}
	if _, err := (IndexRules{SequenceScope: "global"}).Options("", ""); err == nil {
		t.Error("expected error for unknown scope")
	}

	// Only hadiths are counted.
	opts, err = IndexRules{NoSequenceCheck: true, Countable: []string{"hadith"}}.Options("", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	root := doctree.NewLeaves(doctree.KindChapter, doctree.Titles{doctree.LangEN: "Chapter 1"},
		doctree.NewLeaf(doctree.KindVerse, "v"),
		doctree.NewLeaf(doctree.KindHadith, "h"),
	)
	res, err := indexer.New(opts...).IndexTree(root, "/c")
	if err != nil {
		t.Fatalf("index: %v", err)
	}
	if res.Leaves != 1 || root.Items()[1].Path != "/c:1" {
		t.Errorf("expected only the hadith indexed, got %d leaves, path %q", res.Leaves, root.Items()[1].Path)
	}
}
