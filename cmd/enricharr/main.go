package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/enricharr/enricharr/internal/aggregator"
	"github.com/enricharr/enricharr/internal/api"
	"github.com/enricharr/enricharr/internal/config"
	"github.com/enricharr/enricharr/internal/db"
	"github.com/enricharr/enricharr/internal/jobs"
	"github.com/enricharr/enricharr/internal/models"
	"github.com/enricharr/enricharr/internal/providers"
	"github.com/enricharr/enricharr/internal/ratelimit"
	"github.com/enricharr/enricharr/internal/repository"
	"github.com/enricharr/enricharr/internal/scheduler"
	"github.com/enricharr/enricharr/internal/version"
)

func main() {
	log.Printf("Enricharr %s starting...", version.Version)

	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer database.Close()

	if err := db.Migrate(database, "migrations"); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	cfg.MergeFromDB(database.DB)

	// Redis backs the job queue; fail fast if it is unreachable.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatalf("redis connection failed: %v", err)
	}
	cancelPing()
	rdb.Close()

	// ──────────────────── Providers ────────────────────

	registry := providers.NewRegistry()
	registry.Register(providers.NewTMDBProvider(cfg.TMDBAPIKey, cfg.Language), providers.Config{
		Enabled: cfg.TMDBAPIKey != "", APIKey: cfg.TMDBAPIKey, Language: cfg.Language, Region: cfg.Region,
	})
	registry.Register(providers.NewFanartTVProvider(cfg.FanartTVAPIKey), providers.Config{
		Enabled: cfg.FanartTVAPIKey != "", APIKey: cfg.FanartTVAPIKey, Language: cfg.Language,
	})
	registry.Register(providers.NewTVDBProvider(cfg.TVDBAPIKey), providers.Config{
		Enabled: cfg.TVDBAPIKey != "", APIKey: cfg.TVDBAPIKey, Language: cfg.Language,
	})
	registry.Register(providers.NewOMDbProvider(cfg.OMDbAPIKey), providers.Config{
		Enabled: cfg.OMDbAPIKey != "", APIKey: cfg.OMDbAPIKey,
	})
	registry.Register(providers.NewYouTubeProvider(cfg.YouTubeAPIKey, cfg.Region), providers.Config{
		Enabled: cfg.YouTubeAPIKey != "", APIKey: cfg.YouTubeAPIKey, Region: cfg.Region,
	})
	for _, p := range registry.All() {
		log.Printf("provider %s enabled=%v", p.Name(), registry.Config(p.Name()).Enabled)
	}

	// ──────────────────── Repositories ────────────────────

	targetRepo := repository.NewTargetRepository(database.DB)
	selectionRepo := repository.NewSelectionRepository(database.DB)
	priorityRepo := repository.NewPriorityRepository(database.DB)
	bulkRepo := repository.NewBulkRunRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)

	// A run left in 'running' by a crash would block every future trigger.
	if released, err := bulkRepo.ReleaseStale(); err != nil {
		log.Printf("[bulk] releasing stale runs failed: %v", err)
	} else if released > 0 {
		log.Printf("[bulk] released %d stale run(s) from previous process", released)
	}

	// ──────────────────── Aggregation engine ────────────────────

	limiter := ratelimit.New()
	cache := aggregator.NewResultCache(cfg.CacheTTL)
	weights := aggregator.DefaultWeights()
	orchestrator := aggregator.NewOrchestrator(registry, limiter, cache, priorityRepo, weights)
	orchestrator.SetTimeouts(cfg.CallTimeout, cfg.RunDeadline)

	verifier := aggregator.NewVerifier()
	selector := aggregator.NewAutoSelector(selectionRepo, verifier, weights, settingsRepo.PolicyMode)
	if raw, err := settingsRepo.Get(repository.SettingBalancedOverrides); err == nil && raw != "" {
		for _, c := range strings.Split(raw, ",") {
			capability := models.Capability(strings.TrimSpace(c))
			if capability.Valid() {
				selector.BalancedOverrides[capability] = true
			}
		}
	}

	// ──────────────────── Jobs & scheduling ────────────────────

	queue := jobs.NewQueue(cfg.RedisAddr)
	wsHub := api.NewWSHub()
	enrich := jobs.NewBulkEnrichHandler(targetRepo, bulkRepo, orchestrator, selector, priorityRepo, wsHub, nil)
	jobs.RegisterHandlers(queue, enrich)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := queue.Start(ctx); err != nil {
		log.Fatalf("job queue failed to start: %v", err)
	}

	bulkScheduler := scheduler.New(func() {
		if _, err := queue.EnqueueUnique(jobs.TaskBulkEnrich, jobs.BulkEnrichPayload{}, "bulk:enrich"); err != nil {
			log.Printf("[scheduler] bulk trigger failed: %v", err)
		}
	})
	if spec, _ := settingsRepo.Get(repository.SettingBulkCron); spec != "" {
		cfg.BulkCronSpec = spec
	}
	if err := bulkScheduler.Start(cfg.BulkCronSpec); err != nil {
		log.Fatalf("scheduler failed to start: %v", err)
	}

	// ──────────────────── HTTP ────────────────────

	srv := api.NewServer(api.Deps{
		Config:        cfg,
		DB:            database,
		Registry:      registry,
		Orchestrator:  orchestrator,
		Selector:      selector,
		Verifier:      verifier,
		TargetRepo:    targetRepo,
		SelectionRepo: selectionRepo,
		PriorityRepo:  priorityRepo,
		BulkRepo:      bulkRepo,
		SettingsRepo:  settingsRepo,
		JobQueue:      queue,
		BulkScheduler: bulkScheduler,
		WSHub:         wsHub,
	})

	httpServer := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("listening on :%d", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("shutting down...")
	bulkScheduler.Stop()
	queue.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(shutdownCtx)
}
