package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/daybrief/daybrief/internal/aggregator"
	"github.com/daybrief/daybrief/internal/api"
	"github.com/daybrief/daybrief/internal/config"
	"github.com/daybrief/daybrief/internal/health"
	"github.com/daybrief/daybrief/internal/platform/logger"
	"github.com/daybrief/daybrief/internal/provider"
	"github.com/daybrief/daybrief/internal/services"
	"github.com/daybrief/daybrief/internal/store"
	"github.com/daybrief/daybrief/internal/store/postgres"
	"github.com/daybrief/daybrief/internal/store/sqlite"
	"github.com/daybrief/daybrief/internal/synth"
)

func main() {
	dbDriver := flag.String("db-driver", "", "Override DB_DRIVER (sqlite, postgres)")
	flag.Parse()

	log := logger.New("briefing-service")

	cfg, err := config.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *dbDriver != "" {
		cfg.DBDriver = *dbDriver
		if err := cfg.ResolveDefaults(); err != nil {
			log.Fatal().Err(err).Msg("Invalid db-driver override")
		}
	}

	log.Info().
		Str("db_driver", cfg.DBDriver).
		Int("http_port", cfg.HTTPPort).
		Msg("Briefing service starting…")

	// -------- Storage layer -----------------
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var db *sql.DB
	switch cfg.DBDriver {
	case "postgres":
		db, err = postgres.Bootstrap(ctx, cfg.PostgresDSN, 30*time.Second)
		if err != nil {
			log.Fatal().Err(err).Msg("Postgres unavailable")
		}
		if err := postgres.EnsureSchema(db); err != nil {
			log.Fatal().Err(err).Msg("Schema migration failed")
		}
	default:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatal().Err(err).Msg("SQLite unavailable")
		}
		if err := sqlite.EnsureSchema(db); err != nil {
			log.Fatal().Err(err).Msg("Schema migration failed")
		}
	}
	defer func() { _ = db.Close() }()

	var st store.Store
	if cfg.DBDriver == "postgres" {
		st = postgres.New(db)
	} else {
		st = sqlite.New(db)
	}

	// -------- Provider clients --------------
	gmail := provider.NewGmailClient(cfg.GmailBaseURL, cfg.ProviderTimeout)
	calendar := provider.NewCalendarClient(cfg.CalendarBaseURL, cfg.ProviderTimeout)
	github := provider.NewGitHubClient(cfg.GitHubBaseURL, cfg.ProviderTimeout)
	clients := []provider.Client{
		github,
		provider.NewSlackClient(cfg.SlackBaseURL, cfg.ProviderTimeout),
		provider.NewNotionClient(cfg.NotionBaseURL, cfg.ProviderTimeout),
		gmail,
		calendar,
		provider.NewLinkedInClient(cfg.LinkedInBaseURL, cfg.ProviderTimeout),
		provider.NewZoomClient(cfg.ZoomBaseURL, cfg.ProviderTimeout),
	}

	// -------- Pipeline ----------------------
	agg := aggregator.New(st.Credentials(), clients, cfg.ProviderTimeout, log)
	svc := services.NewBriefingService(agg, synth.NewRuleBased(), st, log)

	// -------- Health monitor ----------------
	var checkers []health.HealthChecker
	if pinger, ok := st.(store.HealthPinger); ok {
		checkers = append(checkers, health.NewStoreChecker(pinger, log))
	}
	svcHealth := health.NewServiceHealthChecker(log, checkers...)
	for _, c := range checkers {
		go c.Start(ctx, 30*time.Second)
	}
	go svcHealth.Start(ctx, 30*time.Second)

	// -------- Router & Server ---------------
	router := api.NewRouter(
		api.NewQueryHandler(svc, st.QueryLogs()),
		api.NewCredentialHandler(st.Credentials()),
		api.NewAgentHandler(st.Credentials(), gmail, calendar, github, cfg.ProviderTimeout, log),
		api.NewHealthHandler(svcHealth.IsHealthy),
		log,
	)
	server := &http.Server{
		Addr:         cfg.GetHTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	<-ctx.Done()

	log.Info().Msg("Shutting down server…")
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}
