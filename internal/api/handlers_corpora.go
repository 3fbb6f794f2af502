package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/corpusgest/internal/config"
)

// handleDeleteCorpus removes every record under a mount path and forgets
// its import marker, so the next import of it is never skipped.
func (s *Server) handleDeleteCorpus(w http.ResponseWriter, r *http.Request) {
	mount := r.URL.Query().Get("mount_path")
	if err := config.ValidateMountPath(mount); err != nil {
		jsonError(w, "mount_path: "+err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	store := s.orchestrator.Store()
	if err := store.Prune(ctx, mount); err != nil {
		s.log.Error("prune failed", "mount_path", mount, "error", err)
		jsonError(w, "failed to delete corpus: "+err.Error(), http.StatusInternalServerError)
		return
	}
	markerCleared := true
	if err := store.SetImportHash(ctx, mount, ""); err != nil {
		s.log.Warn("import marker reset failed", "mount_path", mount, "error", err)
		markerCleared = false
	}
	s.log.Info("corpus deleted", "mount_path", mount)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"mount_path":     mount,
		"deleted":        true,
		"marker_cleared": markerCleared,
	})
}
