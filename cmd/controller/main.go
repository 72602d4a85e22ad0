// Package main is the entry point for the sponte controller.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sponte/internal/agents"
	"sponte/internal/auth"
	"sponte/internal/config"
	"sponte/internal/controller"
	"sponte/internal/controller/handlers"
	"sponte/internal/generator"
	"sponte/internal/google"
	"sponte/internal/logger"
	"sponte/internal/notifier"
	"sponte/internal/observability"
	"sponte/internal/onboarding"
	"sponte/internal/reports"
	"sponte/internal/scheduler"
	"sponte/internal/store"
	"sponte/internal/store/postgres"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// oauthStateTTL bounds how long a user has to finish Google consent.
const oauthStateTTL = 10 * time.Minute

func main() {
	// Parse flags
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	configPath := flag.String("config", "", "Path to config file (default: sponte.yaml in current directory)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel)
	slog.SetDefault(logg)
	fatal := func(msg string, err error) {
		logg.Error(msg, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		fatal("failed to connect to database", err)
	}
	defer db.Close()

	if *migrateFlag {
		logg.Info("running database migrations")
		version, err := postgres.Migrate(db.DB())
		if err != nil {
			fatal("migration failed", err)
		}
		logg.Info("migrations completed", "schema_version", version)
	}

	// Tracing
	shutdownTracer, err := observability.InitTracer(ctx, "sponte-controller", cfg.OTelEndpoint)
	if err != nil {
		fatal("failed to init tracing", err)
	}
	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logg.Warn("failed to shutdown tracer", "error", err)
		}
	}()

	// Metrics
	metricsHandler, shutdownMetrics, err := observability.InitMetrics("sponte-controller")
	if err != nil {
		fatal("failed to init metrics", err)
	}
	defer func() {
		if err := shutdownMetrics(context.Background()); err != nil {
			logg.Warn("failed to shutdown metrics", "error", err)
		}
	}()
	if err := observability.InitInstruments(); err != nil {
		fatal("failed to create instruments", err)
	}
	err = observability.RegisterDraftsGauge(
		func(ctx context.Context) (int64, error) { return db.CountOutputs(ctx, store.OutputDraft) },
		func(err error) { logg.Warn("failed to count drafts", "error", err) },
	)
	if err != nil {
		logg.Warn("failed to register drafts gauge", "error", err)
	}

	// Outbound calls share one traced client.
	outbound := &http.Client{
		Timeout:   30 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	sealer, err := auth.NewSealer(cfg.SecretKey)
	if err != nil {
		fatal("failed to create token sealer", err)
	}
	oauth := google.NewOAuthService(google.OAuthConfig{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
	}, auth.NewStateStore(oauthStateTTL), sealer, db, outbound, logg)
	if !oauth.Configured() {
		logg.Warn("google oauth not configured, posting and insights are disabled")
	}
	business := google.NewBusinessClient(cfg.GoogleBusinessBaseURL, oauth)

	gen := generator.New(generator.Config{
		APIKey:  cfg.AnthropicAPIKey,
		BaseURL: cfg.AnthropicBaseURL,
		Model:   cfg.AnthropicModel,
	}, logg)
	mail := notifier.New(notifier.Config{
		APIKey:  cfg.ResendAPIKey,
		BaseURL: cfg.ResendBaseURL,
		From:    cfg.EmailFrom,
	}, outbound, logg)

	agentSvc := agents.NewService(db, gen, business, logg)
	reportSvc := reports.NewService(db, reports.NewBuilder(db, business, logg), mail, cfg.FrontendURL, logg)
	onboardingSvc := onboarding.NewService(db, mail, cfg.FrontendURL, logg)

	var jobs handlers.JobRunner
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(cfg.SchedulerLocation, scheduler.DefaultJobTimeout, logg)
		err := sched.RegisterDefaults(scheduler.Deps{
			Agents:     agents.NewOrchestrator(agentSvc, logg),
			Reports:    reportSvc,
			Tasks:      agentSvc,
			StaleAfter: cfg.StaleTaskTimeout,
		})
		if err != nil {
			fatal("failed to register scheduler jobs", err)
		}
		sched.Start()
		jobs = sched
		logg.Info("scheduler started", "timezone", cfg.SchedulerLocation.String())
	} else {
		logg.Info("scheduler disabled")
	}

	h := handlers.New(handlers.Deps{
		Store:       db,
		Agents:      agentSvc,
		Onboarding:  onboardingSvc,
		Reports:     reportSvc,
		OAuth:       oauth,
		Jobs:        jobs,
		FrontendURL: cfg.FrontendURL,
		Logger:      logg,
	})
	opts := controller.Options{
		SystemSecret:   cfg.SystemSecret,
		RateLimit:      cfg.RateLimit,
		RateLimitBurst: cfg.RateLimitBurst,
		CORSOrigins:    cfg.CORSOrigins,
		MetricsHandler: metricsHandler,
	}
	if cfg.SystemSecret == "" {
		logg.Warn("SYSTEM_SECRET not set, internal endpoints are disabled")
	}

	// Start Server
	srv := controller.New(cfg.Addr(), controller.NewHandler(h, db, opts), opts)
	go func() {
		logg.Info("sponte controller starting", "addr", cfg.Addr())
		if err := srv.Run(ctx); err != nil {
			logg.Error("server stopped", "error", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logg.Info("shutting down controller")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logg.Error("server forced to shutdown", "error", err)
	}
	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			logg.Error("scheduler jobs did not finish", "error", err)
		}
	}
	onboardingSvc.Wait()
	logg.Info("controller exited properly")
}
