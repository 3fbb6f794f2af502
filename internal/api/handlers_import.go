package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/corpusgest/internal/builder"
	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/doctree"
	"github.com/dgallion1/corpusgest/internal/pipeline"
)

var errQuranUpload = errors.New("quran imports read side files from disk; use the corpusgest CLI")

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	// Limit total request size.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+1024*1024) // extra 1MB for form overhead

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	filename := sanitizeFilename(header.Filename)
	req, err := s.importRequest(r, r.FormValue("corpus"), r.FormValue("mount_path"), filename)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Read file data.
	data, err := io.ReadAll(io.LimitReader(file, s.cfg.MaxUploadBytes+1))
	if err != nil {
		jsonError(w, "failed to read file", http.StatusInternalServerError)
		return
	}
	if int64(len(data)) > s.cfg.MaxUploadBytes {
		jsonError(w, fmt.Sprintf("file exceeds max size (%d bytes)", s.cfg.MaxUploadBytes), http.StatusRequestEntityTooLarge)
		return
	}

	job := pipeline.NewJob(req, data)
	if err := s.orchestrator.Submit(job); err != nil {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":     job.ID,
		"corpus":     job.Corpus,
		"mount_path": job.MountPath,
		"status":     pipeline.StatusQueued,
		"poll_url":   fmt.Sprintf("/api/import/%s/status", job.ID),
	})
}

// importRequest validates the form's corpus settings the same way a
// manifest entry is validated.
func (s *Server) importRequest(r *http.Request, name, mount, filename string) (pipeline.Request, error) {
	c := config.Corpus{
		Name:       name,
		File:       filename,
		Format:     strings.ToLower(r.FormValue("format")),
		MountPath:  mount,
		Translator: r.FormValue("translator"),
		IndexRules: config.IndexRules{
			SequencePattern: r.FormValue("sequence_pattern"),
			NoSequenceCheck: r.FormValue("no_sequence_check") == "true",
			SequenceScope:   r.FormValue("sequence_scope"),
			CrumbLanguage:   r.FormValue("crumb_language"),
			Countable:       splitList(r.FormValue("countable")),
		},
		Replace: r.FormValue("replace") == "true",
	}
	if c.Format == builder.FormatQuran {
		return pipeline.Request{}, errQuranUpload
	}
	if c.Format == "" {
		if _, err := builder.FormatForFile(filename); err != nil {
			return pipeline.Request{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(filename))
		}
	}
	var err error
	if c.Titles, err = formTitles(r, "titles"); err != nil {
		return pipeline.Request{}, err
	}
	if c.Descriptions, err = formTitles(r, "descriptions"); err != nil {
		return pipeline.Request{}, err
	}
	if err := c.Validate(); err != nil {
		return pipeline.Request{}, err
	}
	return pipeline.NewRequest(c, s.cfg, r.FormValue("force") == "true")
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job.Snapshot())
}

func (s *Server) handleImportDiagnostics(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	diags := job.Diagnostics()
	messages := make([]string, len(diags))
	for i, d := range diags {
		messages[i] = d.String()
	}
	snap := job.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"job_id":      snap.ID,
		"status":      snap.Status,
		"diagnostics": diags,
		"messages":    messages,
	})
}

// handleBatchImport queues one job per uploaded file. Each file is mounted
// under mount_prefix by its slugged base name.
func (s *Server) handleBatchImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes*10+10*1024*1024)

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		jsonError(w, "invalid multipart form: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	prefix := strings.TrimSuffix(r.FormValue("mount_prefix"), "/")
	if prefix == "" {
		jsonError(w, "mount_prefix is required", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		jsonError(w, "at least one file is required", http.StatusBadRequest)
		return
	}

	var results []map[string]any
	for _, fh := range files {
		filename := sanitizeFilename(fh.Filename)
		name := slug(filename)
		req, err := s.importRequest(r, name, prefix+"/"+name, filename)
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		f, err := fh.Open()
		if err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "failed to open file",
			})
			continue
		}

		data, err := io.ReadAll(io.LimitReader(f, s.cfg.MaxUploadBytes+1))
		f.Close()
		if err != nil || int64(len(data)) > s.cfg.MaxUploadBytes {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    "file too large or read error",
			})
			continue
		}

		job := pipeline.NewJob(req, data)
		if err := s.orchestrator.Submit(job); err != nil {
			results = append(results, map[string]any{
				"filename": filename,
				"error":    err.Error(),
			})
			continue
		}

		results = append(results, map[string]any{
			"filename":   filename,
			"job_id":     job.ID,
			"corpus":     job.Corpus,
			"mount_path": job.MountPath,
			"status":     pipeline.StatusQueued,
			"poll_url":   fmt.Sprintf("/api/import/%s/status", job.ID),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]any{"jobs": results})
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func formTitles(r *http.Request, field string) (doctree.Titles, error) {
	v := r.FormValue(field)
	if v == "" {
		return nil, nil
	}
	var t doctree.Titles
	if err := json.Unmarshal([]byte(v), &t); err != nil {
		return nil, fmt.Errorf("%s must be a JSON object of language to text: %w", field, err)
	}
	return t, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

var nonSlug = regexp.MustCompile(`[^a-z0-9_-]+`)

// slug turns a filename into a corpus name: its lower-cased base name with
// runs of other characters replaced by '-'.
func slug(filename string) string {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	s := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(base), "-"), "-")
	if s == "" {
		s = "corpus"
	}
	return s
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(name)
	// Remove any path separators that might have survived.
	name = strings.ReplaceAll(name, "/", "_")
	name = strings.ReplaceAll(name, "\\", "_")
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." {
		name = "unnamed"
	}
	return name
}
