package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/dgallion1/corpusgest/internal/pathstore"
)

const importMarker = "_import"

// PathstoreStore writes each record as a pathstore node. Corpus paths map
// onto key segments, so /books/al-kafi:1:2 becomes <prefix>/books/al-kafi/1/2.
type PathstoreStore struct {
	client        *pathstore.Client
	prefix        string
	maxConcurrent int
}

func NewPathstoreStore(c *pathstore.Client, prefix string, maxConcurrent int) *PathstoreStore {
	if maxConcurrent <= 0 {
		maxConcurrent = 10
	}
	return &PathstoreStore{client: c, prefix: strings.Trim(prefix, "/"), maxConcurrent: maxConcurrent}
}

// Key converts a corpus path to a pathstore key.
func (s *PathstoreStore) Key(path string) string {
	var segs []string
	if s.prefix != "" {
		segs = append(segs, s.prefix)
	}
	for _, part := range strings.FieldsFunc(path, func(r rune) bool { return r == '/' || r == ':' }) {
		segs = append(segs, url.PathEscape(part))
	}
	return strings.Join(segs, "/")
}

func (s *PathstoreStore) Upsert(ctx context.Context, records []Record) error {
	sem := make(chan struct{}, s.maxConcurrent)
	errs := make(chan error, len(records))

	for _, r := range records {
		sem <- struct{}{}
		go func(r Record) {
			defer func() { <-sem }()
			errs <- s.client.PutNode(ctx, s.Key(r.Path), pathstore.NodeRequest{
				Value: map[string]any{
					"kind": r.Kind,
					"path": r.Path,
					"data": r,
				},
				MergeMode: "replace",
				Source:    "corpusgest",
			})
		}(r)
	}

	var first error
	for range records {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (s *PathstoreStore) Prune(ctx context.Context, mount string) error {
	return s.client.DeleteNode(ctx, s.Key(mount), true)
}

func (s *PathstoreStore) ImportHash(ctx context.Context, mount string) (string, error) {
	node, err := s.client.GetNode(ctx, s.Key(mount)+"/"+importMarker)
	if err != nil || node == nil {
		return "", err
	}
	var v struct {
		Hash string `json:"content_hash"`
	}
	if err := json.Unmarshal(node.Value, &v); err != nil {
		return "", fmt.Errorf("decode import marker: %w", err)
	}
	return v.Hash, nil
}

func (s *PathstoreStore) SetImportHash(ctx context.Context, mount, hash string) error {
	return s.client.PutNode(ctx, s.Key(mount)+"/"+importMarker, pathstore.NodeRequest{
		Value:  map[string]string{"content_hash": hash},
		Source: "corpusgest",
	})
}

func (s *PathstoreStore) Close() error {
	s.client.Close()
	return nil
}
