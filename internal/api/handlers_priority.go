package api

import (
	"errors"
	"net/http"

	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/models"
	"github.com/enricharr/enricharr/internal/repository"
)

func (s *Server) handleGetPriority(w http.ResponseWriter, r *http.Request) {
	capability := models.Capability(r.PathValue("capability"))
	if !capability.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_CAPABILITY", "unknown capability")
		return
	}

	order, err := s.priorityRepo.GetOrder(capability)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to load priority order")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"capability": capability,
		"order":      order,
		"enabled":    s.registry.EnabledNamesFor(capability),
	})
}

func (s *Server) handleUpdatePriority(w http.ResponseWriter, r *http.Request) {
	capability := models.Capability(r.PathValue("capability"))
	if !capability.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_CAPABILITY", "unknown capability")
		return
	}

	var req struct {
		Order []string `json:"order"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	enabled := s.registry.EnabledNamesFor(capability)
	if err := s.priorityRepo.Reorder(capability, req.Order, enabled); err != nil {
		if errors.Is(err, models.ErrInvalidPriorityOrder) {
			httputil.WriteError(w, http.StatusUnprocessableEntity, "invalid_priority_order", err.Error())
			return
		}
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to persist priority order")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"capability": capability,
		"order":      req.Order,
	})
}

func (s *Server) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}

	mode := models.PolicyMode(req.Mode)
	if !mode.Valid() {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_MODE", "mode must be balanced or custom")
		return
	}
	if err := s.settingsRepo.Set(repository.SettingPolicyMode, string(mode)); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to persist policy mode")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"mode": string(mode)})
}
