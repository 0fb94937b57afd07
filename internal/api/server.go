package api

import (
	"net/http"

	"github.com/enricharr/enricharr/internal/aggregator"
	"github.com/enricharr/enricharr/internal/config"
	"github.com/enricharr/enricharr/internal/db"
	"github.com/enricharr/enricharr/internal/httputil"
	"github.com/enricharr/enricharr/internal/jobs"
	"github.com/enricharr/enricharr/internal/providers"
	"github.com/enricharr/enricharr/internal/repository"
	"github.com/enricharr/enricharr/internal/scheduler"
	"github.com/enricharr/enricharr/internal/version"
)

type Server struct {
	config       *config.Config
	db           *db.DB
	registry     *providers.Registry
	orchestrator *aggregator.Orchestrator
	selector     *aggregator.AutoSelector
	verifier     *aggregator.Verifier
	targetRepo   *repository.TargetRepository
	selectionRepo *repository.SelectionRepository
	priorityRepo  *repository.PriorityRepository
	bulkRepo      *repository.BulkRunRepository
	settingsRepo  *repository.SettingsRepository
	jobQueue      *jobs.Queue
	bulkScheduler *scheduler.Scheduler
	wsHub         *WSHub
	router        *http.ServeMux
}

// Deps bundles the wired engine components the server fronts.
type Deps struct {
	Config        *config.Config
	DB            *db.DB
	Registry      *providers.Registry
	Orchestrator  *aggregator.Orchestrator
	Selector      *aggregator.AutoSelector
	Verifier      *aggregator.Verifier
	TargetRepo    *repository.TargetRepository
	SelectionRepo *repository.SelectionRepository
	PriorityRepo  *repository.PriorityRepository
	BulkRepo      *repository.BulkRunRepository
	SettingsRepo  *repository.SettingsRepository
	JobQueue      *jobs.Queue
	BulkScheduler *scheduler.Scheduler
	WSHub         *WSHub
}

func NewServer(d Deps) *Server {
	s := &Server{
		config:        d.Config,
		db:            d.DB,
		registry:      d.Registry,
		orchestrator:  d.Orchestrator,
		selector:      d.Selector,
		verifier:      d.Verifier,
		targetRepo:    d.TargetRepo,
		selectionRepo: d.SelectionRepo,
		priorityRepo:  d.PriorityRepo,
		bulkRepo:      d.BulkRepo,
		settingsRepo:  d.SettingsRepo,
		jobQueue:      d.JobQueue,
		bulkScheduler: d.BulkScheduler,
		wsHub:         d.WSHub,
		router:        http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("GET /api/v1/status", s.handleStatus)
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Targets (minimal registry; library scanning stays external)
	s.router.HandleFunc("GET /api/v1/targets", s.handleListTargets)
	s.router.HandleFunc("POST /api/v1/targets", s.handleCreateTarget)
	s.router.HandleFunc("GET /api/v1/targets/{id}/selections", s.handleListSelections)

	// Resolution pipeline
	s.router.HandleFunc("POST /api/v1/resolve", s.handleResolve)
	s.router.HandleFunc("POST /api/v1/candidates/test", s.handleTestCandidate)
	s.router.HandleFunc("POST /api/v1/targets/{id}/selection", s.handleCommitSelection)
	s.router.HandleFunc("POST /api/v1/targets/{id}/autoselect", s.handleAutoSelect)
	s.router.HandleFunc("PUT /api/v1/targets/{id}/lock", s.handleToggleLock)

	// Priority & policy configuration
	s.router.HandleFunc("GET /api/v1/priority/{capability}", s.handleGetPriority)
	s.router.HandleFunc("PUT /api/v1/priority/{capability}", s.handleUpdatePriority)
	s.router.HandleFunc("PUT /api/v1/settings/policy", s.handleSetPolicy)

	// Bulk enrichment
	s.router.HandleFunc("POST /api/v1/bulk/trigger", s.handleTriggerBulk)
	s.router.HandleFunc("GET /api/v1/bulk/status", s.handleBulkStatus)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	type providerStatus struct {
		Name         string   `json:"name"`
		Enabled      bool     `json:"enabled"`
		RequiresAuth bool     `json:"requires_auth"`
		Capabilities []string `json:"capabilities"`
	}
	var ps []providerStatus
	for _, p := range s.registry.All() {
		cfg := s.registry.Config(p.Name())
		var caps []string
		for _, c := range p.Capabilities() {
			caps = append(caps, string(c))
		}
		ps = append(ps, providerStatus{
			Name:         p.Name(),
			Enabled:      cfg.Enabled,
			RequiresAuth: p.RequiresAuth(),
			Capabilities: caps,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"version":     version.Version,
		"providers":   ps,
		"policy_mode": s.settingsRepo.PolicyMode(),
		"ws_clients":  s.wsHub.ClientCount(),
	})
}
