package api

import (
	"net/http"
	"strconv"

	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/models"
)

func (s *Server) handleListTargets(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	targets, err := s.targetRepo.ListBatch(offset, limit)
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to list targets")
		return
	}
	total, err := s.targetRepo.Count()
	if err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to count targets")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"targets": targets,
		"total":   total,
	})
}

func (s *Server) handleCreateTarget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title  string  `json:"title"`
		Year   *int    `json:"year,omitempty"`
		TMDBID *string `json:"tmdb_id,omitempty"`
		IMDBId *string `json:"imdb_id,omitempty"`
		TVDBID *string `json:"tvdb_id,omitempty"`
	}
	if err := httputil.ReadJSON(r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "INVALID_JSON", "invalid request body")
		return
	}
	if req.Title == "" {
		httputil.WriteError(w, http.StatusBadRequest, "MISSING_TITLE", "title is required")
		return
	}

	target := &models.Target{
		Title:  req.Title,
		Year:   req.Year,
		TMDBID: req.TMDBID,
		IMDBId: req.IMDBId,
		TVDBID: req.TVDBID,
	}
	if err := s.targetRepo.Create(target); err != nil {
		httputil.WriteError(w, http.StatusInternalServerError, "INTERNAL", "failed to create target")
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, target)
}
