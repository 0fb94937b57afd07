package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/models"
)

// handleAutoSelect runs the resolve+select pipeline for a single target,
// the same path the bulk scheduler takes per target.
func (s *Server) handleAutoSelect(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "target id must be a uuid")
		return
	}

	var req struct {
		Capabilities []string `json:"capabilities"`
		Force        bool     `json:"force,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := httputil.ReadJSON(r, &req); err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
			return
		}
	}

	target, err := s.targetRepo.GetByID(targetID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "target not found")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load target")
		return
	}

	caps := make([]models.Capability, 0, len(req.Capabilities))
	for _, c := range req.Capabilities {
		capability := models.Capability(c)
		if !capability.Valid() {
			httputil.WriteError(w, http.StatusBadRequest, "INVALID_CAPABILITY", "unknown capability: "+c)
			return
		}
		caps = append(caps, capability)
	}
	if len(caps) == 0 {
		caps = models.AllCapabilities
	}

	result, err := s.orchestrator.Resolve(r.Context(), target, caps, req.Force)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "RESOLVE_FAILED", err.Error())
		return
	}

	orders, err := s.priorityRepo.Orders()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load priority orders")
		return
	}

	statuses := make(map[models.Capability]string, len(caps))
	for _, capability := range caps {
		status, err := s.selector.Apply(r.Context(), result, capability, orders)
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to apply selection")
			return
		}
		statuses[capability] = status
	}

	s.wsHub.Broadcast("resolve:complete", map[string]interface{}{
		"target_id":  target.ID,
		"candidates": len(result.Candidates),
	})
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"target_id": target.ID,
		"statuses":  statuses,
		"outcomes":  result.Outcomes,
	})
}
