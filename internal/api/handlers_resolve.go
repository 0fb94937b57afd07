package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/models"
)

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID     string   `json:"target_id"`
		Capabilities []string `json:"capabilities"`
		Force        bool     `json:"force,omitempty"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	targetID, err := uuid.Parse(req.TargetID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "target_id must be a uuid")
		return
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

	s.wsHub.Broadcast("resolve:complete", map[string]interface{}{
		"target_id":  target.ID,
		"candidates": len(result.Candidates),
	})
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (s *Server) handleTestCandidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "candidate_id must be a uuid")
		return
	}

	candidate := s.orchestrator.Cache().FindCandidate(candidateID)
	if candidate == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "candidate not found or expired; resolve again")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, s.verifier.Test(r.Context(), candidate))
}

func (s *Server) handleCommitSelection(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "target id must be a uuid")
		return
	}

	var req struct {
		Capability  string `json:"capability"`
		CandidateID string `json:"candidate_id"`
		Override    bool   `json:"override,omitempty"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	capability := models.Capability(req.Capability)
	if !capability.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_CAPABILITY", "unknown capability: "+req.Capability)
		return
	}
	candidateID, err := uuid.Parse(req.CandidateID)
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "candidate_id must be a uuid")
		return
	}

	candidate := s.orchestrator.Cache().FindCandidateForTarget(targetID, candidateID)
	if candidate == nil {
		httputil.WriteError(w, http.StatusNotFound, "NOT_FOUND", "candidate not found or expired; resolve again")
		return
	}
	if candidate.Capability != capability {
		httputil.WriteError(w, http.StatusBadRequest, "CAPABILITY_MISMATCH", "candidate does not satisfy the requested capability")
		return
	}

	// Probe-gated capabilities: a failed test must never produce a commit.
	if capability.RequiresProbe() {
		probe := s.verifier.Test(r.Context(), candidate)
		if !probe.Success {
			httputil.WriteError(w, http.StatusBadGateway, string(probe.ErrorClass), "candidate failed availability probe")
			return
		}
	}

	sel := &models.SelectionState{
		TargetID:   targetID,
		Capability: capability,
		Provider:   candidate.Provider,
		URL:        candidate.URL,
		Value:      candidate.Value,
	}
	out, err := s.selectionRepo.Commit(r.Context(), sel, req.Override)
	if err != nil {
		if errors.Is(err, models.ErrLockedConflict) {
			httputil.WriteConflict(w, "locked_conflict", "selection is locked; pass override to replace it")
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to commit selection")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (s *Server) handleToggleLock(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "target id must be a uuid")
		return
	}

	var req struct {
		Capability string `json:"capability"`
		Locked     bool   `json:"locked"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	capability := models.Capability(req.Capability)
	if !capability.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_CAPABILITY", "unknown capability: "+req.Capability)
		return
	}

	sel, err := s.selectionRepo.SetLock(r.Context(), targetID, capability, req.Locked)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to update lock")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sel)
}

func (s *Server) handleListSelections(w http.ResponseWriter, r *http.Request) {
	targetID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_ID", "target id must be a uuid")
		return
	}
	sels, err := s.selectionRepo.ListForTarget(r.Context(), targetID)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list selections")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, sels)
}
