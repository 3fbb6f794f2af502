package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
	"github.com/dgallion1/corpusgest/internal/metrics"
	"github.com/dgallion1/corpusgest/internal/sink"
)

// Store is the sink a worker writes records and import markers to.
type Store interface {
	sink.Store
	sink.Marker
	sink.Pruner
}

// Worker processes a single corpus import job.
type Worker struct {
	store     Store
	log       *slog.Logger
	metrics   *metrics.Metrics
	batchSize int
	backoff   func(attempt int) time.Duration
}

func NewWorker(store Store, m *metrics.Metrics, log *slog.Logger, batchSize int) *Worker {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Worker{
		store:     store,
		log:       log,
		metrics:   m,
		batchSize: batchSize,
		backoff:   Backoff,
	}
}

// Process runs the full import pipeline for a job. The outcome is recorded
// on the job; a failure never affects other jobs.
func (w *Worker) Process(ctx context.Context, job *Job) {
	req := job.Request()
	log := w.log.With("job_id", job.ID, "corpus", req.Corpus, "mount_path", req.MountPath)
	status := w.process(ctx, job, req, log)
	w.metrics.RecordImport(string(status))
	log.Info("import finished", "status", status)
}

func (w *Worker) process(ctx context.Context, job *Job, req Request, log *slog.Logger) JobStatus {
	fail := func(phase string, err error) JobStatus {
		log.Error(phase+" failed", "error", err)
		job.AddError(fmt.Sprintf("%s: %s", phase, err))
		job.SetStatus(StatusFailed, phase)
		return StatusFailed
	}

	// Phase 1: Build
	job.SetStatus(StatusBuilding, "building")
	start := time.Now()
	root, format, err := Build(req, job.FileData())
	if err != nil {
		return fail("building", err)
	}
	hash, err := importHash(req, format, job.FileData())
	if err != nil {
		return fail("building", err)
	}
	job.SetBuilt(root.Titles, hash)
	w.metrics.ObservePhase("building", time.Since(start))

	// Phase 1.5: Skip unchanged
	if !req.Force {
		prev, err := w.store.ImportHash(ctx, req.MountPath)
		if err != nil {
			log.Warn("import marker check failed, proceeding", "error", err)
		} else if prev == hash {
			log.Info("corpus unchanged since last import, skipping", "content_hash", hash)
			job.SetStatus(StatusUnchanged, "done")
			return StatusUnchanged
		}
	}

	// Phase 2: Index
	job.SetStatus(StatusIndexing, "indexing")
	start = time.Now()
	res, err := Index(root, req.MountPath, req.Indexer, log)
	if err != nil {
		return fail("indexing", err)
	}
	job.SetIndexed(res.Nodes, res.Leaves, res.Diagnostics)
	w.metrics.RecordIndexed(req.Corpus, res.Nodes, res.Leaves, len(res.Diagnostics))
	w.metrics.ObservePhase("indexing", time.Since(start))
	log.Info("indexed corpus", "nodes", res.Nodes, "leaves", res.Leaves, "warnings", len(res.Diagnostics))

	records, err := sink.Records(root)
	if err != nil {
		return fail("indexing", err)
	}
	job.SetRecords(len(records))

	// Phase 3: Store
	job.SetStatus(StatusStoring, "storing")
	start = time.Now()
	if req.Replace {
		if err := w.withRetry(ctx, log, "prune", func() error { return w.store.Prune(ctx, req.MountPath) }); err != nil {
			return fail("storing", fmt.Errorf("prune: %w", err))
		}
		log.Info("pruned mount before replace")
	}

	stored := 0
	hadErrors := false
	for lo := 0; lo < len(records); lo += w.batchSize {
		hi := min(lo+w.batchSize, len(records))
		batch := records[lo:hi]
		err := w.withRetry(ctx, log, "upsert", func() error { return w.store.Upsert(ctx, batch) })
		if err != nil {
			log.Error("store failed", "first_path", batch[0].Path, "records", len(batch), "error", err)
			job.AddError(fmt.Sprintf("store %s (+%d): %s", batch[0].Path, len(batch)-1, err))
			hadErrors = true
			if ctx.Err() != nil {
				break
			}
			continue
		}
		stored += len(batch)
		job.AddStored(len(batch))
		w.metrics.RecordsStored.Add(float64(len(batch)))
	}
	w.metrics.ObservePhase("storing", time.Since(start))
	log.Info("storage complete", "stored", stored, "total", len(records))

	switch {
	case hadErrors && stored > 0:
		job.SetStatus(StatusPartial, "done")
		return StatusPartial
	case hadErrors:
		job.SetStatus(StatusFailed, "storing")
		return StatusFailed
	}

	// Only a complete import is marked, so a partial one is retried in full.
	if err := w.store.SetImportHash(ctx, req.MountPath, hash); err != nil {
		log.Warn("import marker write failed", "error", err)
	}
	job.SetStatus(StatusCompleted, "done")
	return StatusCompleted
}

// withRetry runs op, retrying retryable errors with backoff.
func (w *Worker) withRetry(ctx context.Context, log *slog.Logger, what string, op func() error) error {
	var lastErr error
	for attempt := range MaxRetries {
		lastErr = op()
		if lastErr == nil || !IsRetryable(lastErr) || attempt == MaxRetries-1 {
			return lastErr
		}
		w.metrics.StoreRetriesTotal.Inc()
		log.Warn("retryable store error", "op", what, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(w.backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

// Build reads data into a raw tree with the request's builder and applies
// its title and description overrides. It also returns the format used.
func Build(req Request, data []byte) (*doctree.Node, string, error) {
	format := req.Format
	if format == "" {
		f, err := builder.FormatForFile(req.Filename)
		if err != nil {
			return nil, "", err
		}
		format = f
	}
	b, err := builder.ForFormat(format, req.Builder)
	if err != nil {
		return nil, "", err
	}
	root, err := b.Build(bytes.NewReader(data), req.Filename)
	if err != nil {
		return nil, "", err
	}
	if req.Titles != nil {
		root.Titles = req.Titles.Clone()
	}
	if req.Descriptions != nil {
		root.WithDescriptions(req.Descriptions.Clone())
	}
	return root, format, nil
}

// Index indexes root as a corpus mounted at mount with a fresh Indexer and
// logs every sequence warning with its position and titles.
func Index(root *doctree.Node, mount string, opts []indexer.Option, log *slog.Logger) (*indexer.Result, error) {
	opts = append(opts[:len(opts):len(opts)], indexer.WithLogger(log))
	res, err := indexer.New(opts...).IndexTree(root, mount)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Diagnostics {
		log.Warn("chapter sequence mismatch",
			"path", d.Path,
			"local_index", d.LocalIndex,
			"counters", d.Counters,
			"previous", d.Previous,
			"found", d.Found,
			"expected", d.Expected,
			"previous_title", d.PreviousTitles[doctree.LangEN],
			"title", d.Titles[doctree.LangEN],
		)
	}
	return res, nil
}
