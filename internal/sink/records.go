// Package sink projects indexed corpus trees into storage records and
// upserts them, keyed by path, into one or more stores.
package sink

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgallion1/corpusgest/internal/doctree"
)

// RecordKind names the two record shapes a tree is split into.
type RecordKind string

const (
	KindChapterList    RecordKind = "chapter_list"
	KindChapterContent RecordKind = "chapter_content"
)

// ErrNotIndexed is returned when a tree reaches the sink without paths.
var ErrNotIndexed = errors.New("tree is not indexed")

// ChapterRef is one child entry of a chapter_list record.
type ChapterRef struct {
	Index           int               `json:"index"`
	Path            string            `json:"path"`
	Kind            doctree.Kind      `json:"kind"`
	Titles          doctree.Titles    `json:"titles,omitempty"`
	VerseCount      int               `json:"verse_count,omitempty"`
	VerseStartIndex int               `json:"verse_start_index,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
}

// Verse is one leaf item of a chapter_content record.
type Verse struct {
	Kind         doctree.Kind          `json:"kind"`
	Index        int                   `json:"index,omitempty"`
	LocalIndex   int                   `json:"local_index,omitempty"`
	Path         string                `json:"path,omitempty"`
	Text         string                `json:"text"`
	ChainText    string                `json:"chain_text,omitempty"`
	SajdaType    string                `json:"sajda_type,omitempty"`
	Translations []doctree.Translation `json:"translations"`
}

// Record is the stored form of one node, keyed by Path.
type Record struct {
	Path            string            `json:"-"`
	Kind            RecordKind        `json:"-"`
	Index           int               `json:"index,omitempty"`
	Titles          doctree.Titles    `json:"titles,omitempty"`
	Descriptions    doctree.Titles    `json:"descriptions,omitempty"`
	Meta            map[string]string `json:"meta,omitempty"`
	Crumbs          []doctree.Crumb   `json:"crumbs"`
	VerseCount      int               `json:"verse_count"`
	VerseStartIndex int               `json:"verse_start_index"`

	Chapters []ChapterRef `json:"chapters,omitempty"`
	Verses   []Verse      `json:"verses,omitempty"`
}

// Data is the JSON body stored under the record's path.
func (r Record) Data() ([]byte, error) {
	return json.Marshal(r)
}

// Records walks an indexed tree and returns one record per node in
// pre-order: chapter_list for branches, chapter_content for leaf-bearing
// and empty nodes.
func Records(root *doctree.Node) ([]Record, error) {
	if root == nil || root.Path == "" {
		return nil, ErrNotIndexed
	}

	var out []Record
	var err error
	doctree.Walk(root, func(n *doctree.Node, depth int) bool {
		if err != nil {
			return false
		}
		if n.Path == "" {
			err = fmt.Errorf("node %q at depth %d: %w", n.Title(doctree.LangEN), depth, ErrNotIndexed)
			return false
		}
		out = append(out, record(n))
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func record(n *doctree.Node) Record {
	r := Record{
		Path:            n.Path,
		Index:           n.Index,
		Titles:          n.Titles,
		Descriptions:    n.Descriptions,
		Meta:            n.Meta,
		Crumbs:          n.Crumbs,
		VerseCount:      n.VerseCount,
		VerseStartIndex: n.VerseStartIndex,
	}
	if r.Crumbs == nil {
		r.Crumbs = []doctree.Crumb{}
	}

	if _, ok := n.Content.(*doctree.Branch); ok {
		r.Kind = KindChapterList
		children := n.Children()
		r.Chapters = make([]ChapterRef, 0, len(children))
		for _, c := range children {
			r.Chapters = append(r.Chapters, ChapterRef{
				Index:           c.Index,
				Path:            c.Path,
				Kind:            c.Kind,
				Titles:          c.Titles,
				VerseCount:      c.VerseCount,
				VerseStartIndex: c.VerseStartIndex,
				Meta:            c.Meta,
			})
		}
		return r
	}

	r.Kind = KindChapterContent
	items := n.Items()
	r.Verses = make([]Verse, 0, len(items))
	for _, l := range items {
		tr := l.Translations
		if tr == nil {
			tr = []doctree.Translation{}
		}
		r.Verses = append(r.Verses, Verse{
			Kind:         l.Kind,
			Index:        l.Index,
			LocalIndex:   l.LocalIndex,
			Path:         l.Path,
			Text:         l.Text,
			ChainText:    l.ChainText,
			SajdaType:    l.SajdaType,
			Translations: tr,
		})
	}
	return r
}

// CatalogEntry names one mounted corpus in the catalog record.
type CatalogEntry struct {
	Path   string
	Titles doctree.Titles
}

// Catalog builds the chapter_list record listing every mounted corpus.
func Catalog(path string, titles doctree.Titles, entries []CatalogEntry) Record {
	r := Record{
		Path:     path,
		Kind:     KindChapterList,
		Titles:   titles,
		Crumbs:   []doctree.Crumb{},
		Chapters: make([]ChapterRef, 0, len(entries)),
	}
	for i, e := range entries {
		r.Chapters = append(r.Chapters, ChapterRef{
			Index:  i + 1,
			Path:   e.Path,
			Kind:   doctree.KindChapterList,
			Titles: e.Titles,
		})
	}
	return r
}
