package builder

import (
	"strings"
	"testing"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

func TestTextBuilder_ChapterBlocks(t *testing.T) {
	input := "Chapter 1\nfirst verse\nsecond verse\n\n\n\nChapter 2\n   \nChapter 3\nonly verse\n"
	root, err := (&TextBuilder{}).Build(strings.NewReader(input), "dir/notes.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Title(doctree.LangEN) != "notes" {
		t.Errorf("expected title %q, got %q", "notes", root.Title(doctree.LangEN))
	}
	chapters := root.Children()
	if len(chapters) != 3 {
		t.Fatalf("expected 3 chapters, got %d", len(chapters))
	}
	if got := len(chapters[0].Items()); got != 2 {
		t.Errorf("expected 2 verses in chapter 1, got %d", got)
	}
	if _, ok := chapters[1].Content.(doctree.Empty); !ok {
		t.Errorf("expected title-only block to be empty, got %T", chapters[1].Content)
	}
	if chapters[2].Items()[0].Text != "only verse" {
		t.Errorf("unexpected verse %q", chapters[2].Items()[0].Text)
	}
}

func TestTextBuilder_EmptyInput(t *testing.T) {
	root, err := (&TextBuilder{}).Build(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children()) != 0 {
		t.Errorf("expected 0 chapters, got %d", len(root.Children()))
	}
}

func TestPagesTree_KeepsBlankPages(t *testing.T) {
	root := pagesTree("scan", []string{"para one\n\npara two", "  ", "last"})
	pages := root.Children()
	if len(pages) != 3 {
		t.Fatalf("expected 3 pages, got %d", len(pages))
	}
	if len(pages[0].Items()) != 2 {
		t.Errorf("expected 2 verses on page 1, got %d", len(pages[0].Items()))
	}
	if _, ok := pages[1].Content.(doctree.Empty); !ok {
		t.Errorf("expected blank page to be empty, got %T", pages[1].Content)
	}
	if pages[2].Title(doctree.LangEN) != "Page 3" {
		t.Errorf("expected %q, got %q", "Page 3", pages[2].Title(doctree.LangEN))
	}
}
