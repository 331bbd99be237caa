// Package main is the entry point for the PM1 simulation server.
// It only handles dependency injection and server initialization.
// NO business logic belongs here.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ziv044/PM1/internal/agents"
	"github.com/ziv044/PM1/internal/clock"
	"github.com/ziv044/PM1/internal/config"
	"github.com/ziv044/PM1/internal/geo"
	"github.com/ziv044/PM1/internal/infra/oracle"
	"github.com/ziv044/PM1/internal/infra/storage"
	"github.com/ziv044/PM1/internal/kpi"
	"github.com/ziv044/PM1/internal/meetings"
	"github.com/ziv044/PM1/internal/network"
	"github.com/ziv044/PM1/internal/platform/logger"
	"github.com/ziv044/PM1/internal/platform/metrics"
	"github.com/ziv044/PM1/internal/sim"
	"github.com/ziv044/PM1/internal/world"
)

func main() {
	cfg := config.Load()
	appLogger := logger.NewLogger()
	appLogger.Info("Initializing PM1 simulation server...")

	db, err := storage.InitSQLite(cfg.ArchiveDBPath)
	if err != nil {
		appLogger.Error("Failed to initialize SQLite: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	games := storage.NewGameManager(db, cfg.DataDir)
	game, active, err := games.Active()
	if err != nil {
		appLogger.Error("Failed to read game index: %v", err)
		os.Exit(1)
	}
	if !active {
		game, err = games.Create("October 7th")
		if err != nil {
			appLogger.Error("Failed to create game: %v", err)
			os.Exit(1)
		}
		if err := games.SetActive(game.ID); err != nil {
			appLogger.Error("Failed to activate game: %v", err)
			os.Exit(1)
		}
		appLogger.Info("Created new game %s", game.ID)
	} else {
		appLogger.Info("Resuming game %s (%s)", game.ID, game.Name)
	}

	state := world.NewState()
	registry := agents.NewRegistry()
	kpis := kpi.NewStore()
	mapState := geo.NewMapState(appLogger)
	gameClock := clock.New(cfg.StartTime, cfg.ClockSpeed)

	provider := buildProvider(cfg, appLogger)
	budget := oracle.NewBudgetGate(cfg.TokenBudget)
	oracleService := oracle.NewService(provider, budget, cfg.MaxTokens, appLogger)
	if !oracleService.Available() {
		appLogger.Warn("No oracle API key configured; agents will not act until one is set")
	}

	gateway := sim.NewDecisionGateway(registry, state, mapState, oracleService, appLogger)
	scheduler := sim.NewEntityScheduler(registry, gateway, state, gameClock,
		cfg.StaggerDelay, cfg.MeetingPausePoll, appLogger)
	archive := storage.NewEventArchive(db, game.ID)
	engine := sim.NewRuleEngine(0)
	resolver := sim.NewResolver(state, kpis, mapState, registry, engine,
		oracleService, gateway, gameClock, archive, cfg.ArchiveAfterMinutes, appLogger)
	orchestrator := meetings.NewOrchestrator(state, registry, oracleService, gameClock, appLogger)

	snapshots := storage.NewSnapshotStore(cfg.DataDir, game.ID)
	saver := storage.NewGameSaver(snapshots, games, game.ID,
		state, kpis, mapState, registry, orchestrator, gameClock)
	if snapshots.Exists() {
		if err := saver.Load(); err != nil {
			appLogger.Error("Failed to load saved game: %v", err)
			os.Exit(1)
		}
		appLogger.Info("Restored game state: %d live events, %d agents",
			state.EventCount(), len(registry.AllProfiles()))
	} else {
		agents.SeedDefaults(registry)
		kpi.SeedDefaults(kpis)
		appLogger.Info("Seeded fresh scenario: %d agents", len(registry.AllProfiles()))
	}

	coordinator := sim.NewCoordinator(state, kpis, mapState, registry, gameClock,
		scheduler, resolver, orchestrator, saver, sim.CoordinatorConfig{
			ResolveInterval:     cfg.ResolverInterval,
			ResolveInitialDelay: cfg.ResolverInitialDelay,
			SaveInterval:        cfg.SaveInterval,
		}, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	api := network.NewControlAPI(coordinator, state, registry, kpis, mapState, appLogger)
	hub := network.NewHub(api, appLogger)
	go hub.Run(ctx)
	hub.StartEventPoller(ctx, state, mapState, 0)
	timeline := network.NewTimelineHandler(state, archive, appLogger)

	mux := http.NewServeMux()
	api.Register(mux)
	mux.HandleFunc("/api/timeline", timeline.HandleTimeline)
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		network.ServeWS(hub, w, r)
	})
	mux.HandleFunc("/metrics", metrics.PrometheusHandler())
	mux.HandleFunc("/api/metrics", metrics.Handler())

	if err := coordinator.Start(ctx); err != nil {
		appLogger.Error("Failed to start simulation: %v", err)
		os.Exit(1)
	}

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}
	go func() {
		appLogger.Info("Listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed: %v", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
		appLogger.Info("Shutdown signal received")
	case <-ctx.Done():
	}

	coordinator.Stop()
	server.Shutdown(context.Background())
	appLogger.Info("Server stopped cleanly")
}

// buildProvider selects the oracle backend from configuration.
func buildProvider(cfg *config.Config, log *logger.Logger) oracle.Provider {
	switch cfg.OracleProvider {
	case "openai":
		log.Info("Oracle provider: OpenAI (%s)", cfg.OpenAIModel)
		return oracle.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OracleBaseURL)
	default:
		log.Info("Oracle provider: Anthropic (%s)", cfg.AnthropicModel)
		return oracle.NewAnthropicProvider(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.OracleBaseURL)
	}
}
