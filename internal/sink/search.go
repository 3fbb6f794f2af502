package sink

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/dgallion1/corpusgest/internal/doctree"
)

// SearchStore indexes every verse and chapter title in a bleve index so
// imported corpora can be checked with full-text queries.
type SearchStore struct {
	index bleve.Index
}

type searchDoc struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Title       string `json:"title,omitempty"`
	Text        string `json:"text,omitempty"`
	Translation string `json:"translation,omitempty"`
	Breadcrumb  string `json:"breadcrumb,omitempty"`
}

// Hit is one search result.
type Hit struct {
	Path       string  `json:"path"`
	Kind       string  `json:"kind"`
	Text       string  `json:"text,omitempty"`
	Title      string  `json:"title,omitempty"`
	Breadcrumb string  `json:"breadcrumb,omitempty"`
	Score      float64 `json:"score"`
}

// OpenSearch opens the index at dir, creating it on first use.
func OpenSearch(dir string) (*SearchStore, error) {
	if _, err := os.Stat(dir); err == nil {
		index, err := bleve.Open(dir)
		if err != nil {
			return nil, fmt.Errorf("open search index: %w", err)
		}
		return &SearchStore{index: index}, nil
	}

	mapping := bleve.NewIndexMapping()
	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("path", bleve.NewKeywordFieldMapping())
	doc.AddFieldMappingsAt("kind", bleve.NewKeywordFieldMapping())
	mapping.DefaultMapping = doc

	index, err := bleve.New(dir, mapping)
	if err != nil {
		return nil, fmt.Errorf("create search index: %w", err)
	}
	return &SearchStore{index: index}, nil
}

func breadcrumb(crumbs []doctree.Crumb) string {
	parts := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		if t := c.Titles[doctree.LangEN]; t != "" {
			parts = append(parts, t)
		} else {
			parts = append(parts, c.IndexedTitles[doctree.LangEN])
		}
	}
	return strings.Join(parts, " > ")
}

func (s *SearchStore) Upsert(ctx context.Context, records []Record) error {
	batch := s.index.NewBatch()
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		crumb := breadcrumb(r.Crumbs)
		if err := batch.Index(r.Path, searchDoc{
			Path:       r.Path,
			Kind:       string(r.Kind),
			Title:      r.Titles[doctree.LangEN],
			Breadcrumb: crumb,
		}); err != nil {
			return fmt.Errorf("index %s: %w", r.Path, err)
		}

		for _, v := range r.Verses {
			if v.Path == "" {
				continue
			}
			var tr []string
			for _, t := range v.Translations {
				tr = append(tr, t.Text)
			}
			if err := batch.Index(v.Path, searchDoc{
				Path:        v.Path,
				Kind:        string(v.Kind),
				Text:        v.Text,
				Translation: strings.Join(tr, "\n"),
				Breadcrumb:  crumb,
			}); err != nil {
				return fmt.Errorf("index %s: %w", v.Path, err)
			}
		}
	}
	if err := s.index.Batch(batch); err != nil {
		return fmt.Errorf("commit search batch: %w", err)
	}
	return nil
}

// Search runs a match query over titles, text and translations.
func (s *SearchStore) Search(query string, size int) ([]Hit, error) {
	if size <= 0 || size > 100 {
		size = 10
	}
	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = size
	req.Fields = []string{"*"}

	res, err := s.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hit := Hit{Path: h.ID, Score: h.Score}
		if v, ok := h.Fields["kind"].(string); ok {
			hit.Kind = v
		}
		if v, ok := h.Fields["text"].(string); ok {
			hit.Text = v
		}
		if v, ok := h.Fields["title"].(string); ok {
			hit.Title = v
		}
		if v, ok := h.Fields["breadcrumb"].(string); ok {
			hit.Breadcrumb = v
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func (s *SearchStore) Prune(ctx context.Context, mount string) error {
	exact := bleve.NewTermQuery(mount)
	exact.SetField("path")
	below := bleve.NewPrefixQuery(mount + ":")
	below.SetField("path")
	q := bleve.NewDisjunctionQuery(exact, below)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		req := bleve.NewSearchRequest(q)
		req.Size = 1000
		res, err := s.index.Search(req)
		if err != nil {
			return fmt.Errorf("prune %s: %w", mount, err)
		}
		if len(res.Hits) == 0 {
			return nil
		}
		batch := s.index.NewBatch()
		for _, h := range res.Hits {
			batch.Delete(h.ID)
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("prune %s: %w", mount, err)
		}
	}
}

func (s *SearchStore) Close() error {
	err := s.index.Close()
	if errors.Is(err, bleve.ErrorIndexClosed) {
		return nil
	}
	return err
}
