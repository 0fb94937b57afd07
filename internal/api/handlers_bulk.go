package api

import (
	"net/http"
	"time"

	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/jobs"
	"github.com/enricharr/enricharr/internal/models"
)

func (s *Server) handleTriggerBulk(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Force bool `json:"force,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}

	// Fast-path rejection; the persisted claim inside the worker is the
	// authoritative guard against concurrent runs.
	latest, err := s.bulkRepo.Latest()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to check run state")
		return
	}
	if latest != nil && latest.Active() {
		httputil.WriteConflict(w, "run_already_active", "a bulk run is already in progress")
		return
	}

	if _, err := s.jobQueue.EnqueueUnique(jobs.TaskBulkEnrich,
		jobs.BulkEnrichPayload{Force: req.Force}, "bulk:enrich"); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "ENQUEUE_FAILED", "failed to enqueue bulk run")
		return
	}

	httputil.WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"triggered": true,
		"resuming":  latest != nil && latest.Resumable() && !req.Force,
	})
}

func (s *Server) handleBulkStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.bulkRepo.Latest()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load run state")
		return
	}

	resp := map[string]interface{}{}
	if latest == nil {
		resp["status"] = models.BulkIdle
	} else {
		resp["run"] = latest
		resp["status"] = latest.Status
	}
	if latest == nil || !latest.Active() {
		if next := s.bulkScheduler.NextRun(); !next.IsZero() {
			resp["next_scheduled_run"] = next.Format(time.RFC3339)
		}
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
