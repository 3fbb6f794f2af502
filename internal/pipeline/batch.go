package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
	"github.com/dgallion1/corpusgest/internal/sink"
)

// Outcome is the result of one corpus in a batch import.
type Outcome struct {
	JobSnapshot
	Diagnostics []indexer.Diagnostic `json:"diagnostics"`
}

// OK reports whether the corpus is fully stored.
func (o Outcome) OK() bool {
	return o.Status == StatusCompleted || o.Status == StatusUnchanged
}

// RunBatch imports jobs concurrently, at most limit at a time, and returns
// one outcome per job in input order. Each corpus succeeds or fails on its
// own; an error in one never stops the others.
func RunBatch(ctx context.Context, w *Worker, jobs []*Job, limit int) []Outcome {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, job := range jobs {
		g.Go(func() error {
			w.Process(gctx, job)
			return nil
		})
	}
	g.Wait()

	out := make([]Outcome, len(jobs))
	for i, job := range jobs {
		out[i] = Outcome{JobSnapshot: job.Snapshot(), Diagnostics: job.Diagnostics()}
	}
	return out
}

// WriteCatalog stores a chapter-list record at path linking every corpus
// in outcomes that has records in the store, in order. Failed corpora are
// left out.
func WriteCatalog(ctx context.Context, store sink.Store, path string, titles doctree.Titles, outcomes []Outcome) error {
	var entries []sink.CatalogEntry
	for _, o := range outcomes {
		if o.Status == StatusFailed {
			continue
		}
		entries = append(entries, sink.CatalogEntry{Path: o.MountPath, Titles: o.Titles})
	}
	if err := store.Upsert(ctx, []sink.Record{sink.Catalog(path, titles, entries)}); err != nil {
		return fmt.Errorf("write catalog %s: %w", path, err)
	}
	return nil
}
