package pipeline

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/indexer"
)

// JobStatus represents the state of an import job.
type JobStatus string

const (
	StatusQueued    JobStatus = "queued"
	StatusBuilding  JobStatus = "building"
	StatusIndexing  JobStatus = "indexing"
	StatusStoring   JobStatus = "storing"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusPartial   JobStatus = "partial"
	StatusUnchanged JobStatus = "unchanged"
)

// Done reports whether s is a final status.
func (s JobStatus) Done() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusPartial, StatusUnchanged:
		return true
	}
	return false
}

// Request describes one corpus import.
type Request struct {
	Corpus    string
	Format    string // blank: guessed from Filename
	Filename  string
	MountPath string

	// Titles and Descriptions replace the built root's when set.
	Titles       doctree.Titles
	Descriptions doctree.Titles

	Builder builder.Options
	Indexer []indexer.Option
	// Rules are the effective rules behind Indexer, kept for the import hash.
	Rules config.IndexRules

	// Replace prunes the mount before storing.
	Replace bool
	// Force imports even when the content hash matches the last import.
	Force bool
}

// Job tracks the state of a single corpus import.
type Job struct {
	mu sync.Mutex

	ID        string `json:"job_id"`
	Corpus    string `json:"corpus"`
	MountPath string `json:"mount_path"`
	Filename  string `json:"filename"`

	Status JobStatus      `json:"status"`
	Phase  string         `json:"phase"`
	Titles doctree.Titles `json:"titles,omitempty"`

	Progress Progress `json:"progress"`

	ContentHash string    `json:"content_hash,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Internal: not serialized.
	req         Request
	fileData    []byte
	diagnostics []indexer.Diagnostic
	errors      []string
}

// Progress tracks processing progress.
type Progress struct {
	Nodes    int      `json:"nodes"`
	Leaves   int      `json:"leaves"`
	Records  int      `json:"records"`
	Stored   int      `json:"stored"`
	Warnings int      `json:"warnings"`
	Errors   []string `json:"errors"`
}

// NewJob queues req with the source document's bytes.
func NewJob(req Request, data []byte) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.NewString(),
		Corpus:    req.Corpus,
		MountPath: req.MountPath,
		Filename:  req.Filename,
		Status:    StatusQueued,
		Phase:     "queued",
		CreatedAt: now,
		UpdatedAt: now,
		req:       req,
		fileData:  data,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

// Cleanup removes expired jobs.
func (s *JobStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	for id, job := range s.jobs {
		job.mu.Lock()
		updated := job.UpdatedAt
		job.mu.Unlock()
		if now.Sub(updated) > s.ttl {
			delete(s.jobs, id)
		}
	}
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetBuilt records the root titles and content hash of the built tree.
func (j *Job) SetBuilt(titles doctree.Titles, hash string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Titles = titles.Clone()
	j.ContentHash = hash
	j.UpdatedAt = time.Now()
}

// SetIndexed records the indexer's totals and warnings.
func (j *Job) SetIndexed(nodes, leaves int, diags []indexer.Diagnostic) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Nodes = nodes
	j.Progress.Leaves = leaves
	j.Progress.Warnings = len(diags)
	j.diagnostics = diags
	j.UpdatedAt = time.Now()
}

// SetRecords records how many records the tree projected to.
func (j *Job) SetRecords(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Records = n
	j.UpdatedAt = time.Now()
}

// AddStored adds to the stored record count.
func (j *Job) AddStored(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Stored += n
	j.UpdatedAt = time.Now()
}

// Diagnostics returns a copy of the sequence warnings found while indexing.
func (j *Job) Diagnostics() []indexer.Diagnostic {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]indexer.Diagnostic, len(j.diagnostics))
	copy(out, j.diagnostics)
	return out
}

// FileData returns the raw file bytes.
func (j *Job) FileData() []byte {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.fileData
}

// Request returns the import settings the job was created with.
func (j *Job) Request() Request {
	return j.req
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID          string         `json:"job_id"`
	Corpus      string         `json:"corpus"`
	MountPath   string         `json:"mount_path"`
	Filename    string         `json:"filename"`
	Status      JobStatus      `json:"status"`
	Phase       string         `json:"phase"`
	Titles      doctree.Titles `json:"titles,omitempty"`
	ContentHash string         `json:"content_hash,omitempty"`
	Progress    Progress       `json:"progress"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := make([]string, len(j.Progress.Errors))
	copy(errs, j.Progress.Errors)
	p := j.Progress
	p.Errors = errs
	return JobSnapshot{
		ID:          j.ID,
		Corpus:      j.Corpus,
		MountPath:   j.MountPath,
		Filename:    j.Filename,
		Status:      j.Status,
		Phase:       j.Phase,
		Titles:      j.Titles.Clone(),
		ContentHash: j.ContentHash,
		Progress:    p,
	}
}

// ContentHashHex computes SHA-256 of content and returns hex string.
func ContentHashHex(data []byte) string {
	h := sha256.Sum256(data)
	return fmt.Sprintf("%x", h[:])
}

// importHash fingerprints everything an import's output depends on: the
// source bytes, the side files the builder reads, the format, the title
// overrides, the builder options and the indexing rules.
func importHash(req Request, format string, data []byte) (string, error) {
	h := sha256.New()
	fmt.Fprintf(h, "format=%s\n", format)

	rules := req.Rules
	rules.Countable = slices.Sorted(slices.Values(rules.Countable))
	settings, err := json.Marshal(struct {
		Titles       doctree.Titles    `json:"titles"`
		Descriptions doctree.Titles    `json:"descriptions"`
		Translator   string            `json:"translator"`
		PDFFallback  bool              `json:"pdf_fallback"`
		Rules        config.IndexRules `json:"rules"`
	}{req.Titles, req.Descriptions, req.Builder.Translator, req.Builder.PDFFallback, rules})
	if err != nil {
		return "", err
	}
	h.Write(settings)
	h.Write([]byte{0})
	h.Write(data)

	if err := hashFile(h, req.Builder.Metadata); err != nil {
		return "", err
	}
	for _, t := range req.Builder.Translations {
		fmt.Fprintf(h, "\n%s|%s\n", t.Name, t.Lang)
		if err := hashFile(h, t.Path); err != nil {
			return "", err
		}
	}
	return fmt.Sprintf("%x", h.Sum(nil)), nil
}

func hashFile(w io.Writer, path string) error {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("hash %s: %w", path, err)
	}
	sum := sha256.Sum256(b)
	_, err = w.Write(sum[:])
	return err
}
