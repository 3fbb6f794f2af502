package pipeline

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/metrics"
)

func testConfig(workers, queue int) config.Config {
	return config.Config{
		WorkerCount:    workers,
		MaxQueueSize:   queue,
		StoreBatchSize: 10,
		JobTTL:         time.Hour,
	}
}

func TestOrchestrator_ProcessesSubmittedJobs(t *testing.T) {
	store := newFakeStore()
	o := NewOrchestrator(testConfig(2, 10), store, metrics.New(), slog.New(slog.DiscardHandler))
	o.Start(context.Background())
	defer o.Stop()

	job := notesJob(nil)
	if err := o.Submit(job); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if o.GetJob(job.ID) != job {
		t.Fatal("expected job to be retrievable by id")
	}

	deadline := time.Now().Add(5 * time.Second)
	for !job.Snapshot().Status.Done() {
		if time.Now().After(deadline) {
			t.Fatalf("job still %s", job.Snapshot().Status)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := job.Snapshot().Status; got != StatusCompleted {
		t.Errorf("expected completed, got %s", got)
	}
	if o.Store() != Store(store) {
		t.Error("expected orchestrator to expose its store")
	}
}

func TestOrchestrator_QueueFull(t *testing.T) {
	m := metrics.New()
	o := NewOrchestrator(testConfig(0, 1), newFakeStore(), m, slog.New(slog.DiscardHandler))

	first, second := notesJob(nil), notesJob(nil)
	if err := o.Submit(first); err != nil {
		t.Fatalf("expected first job queued, got %v", err)
	}
	if err := o.Submit(second); err == nil {
		t.Fatal("expected queue full error")
	}
	if got := second.Snapshot().Status; got != StatusFailed {
		t.Errorf("expected rejected job failed, got %s", got)
	}
	if o.QueueDepth() != 1 {
		t.Errorf("expected queue depth 1, got %d", o.QueueDepth())
	}
	if got := testutil.ToFloat64(m.QueueDepth); got != 1 {
		t.Errorf("expected queue depth gauge 1, got %v", got)
	}
}

func TestOrchestrator_StopFailsQueuedJobs(t *testing.T) {
	m := metrics.New()
	o := NewOrchestrator(testConfig(0, 5), newFakeStore(), m, slog.New(slog.DiscardHandler))
	job := notesJob(nil)
	if err := o.Submit(job); err != nil {
		t.Fatal(err)
	}

	o.Stop()

	snap := job.Snapshot()
	if snap.Status != StatusFailed || snap.Phase != "shutdown" {
		t.Errorf("expected failed at shutdown, got %s/%s", snap.Status, snap.Phase)
	}
	if got := testutil.ToFloat64(m.ImportsTotal.WithLabelValues(string(StatusFailed))); got != 1 {
		t.Errorf("expected 1 failed import recorded, got %v", got)
	}
}
