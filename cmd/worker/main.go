package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"

	pgRepo "policy-watch/internal/infra/adapter/persistence/postgres"
	"policy-watch/internal/infra/db"
	"policy-watch/internal/infra/fetcher"
	"policy-watch/internal/infra/scraper"
	workerPkg "policy-watch/internal/infra/worker"
	"policy-watch/internal/observability/logging"
	"policy-watch/internal/observability/tracing"
	"policy-watch/internal/pkg/config"
	"policy-watch/internal/resilience/circuitbreaker"
	"policy-watch/internal/resilience/retry"
	monitorUC "policy-watch/internal/usecase/monitor"
)

// runTimeout caps one whole monitoring run. Individual source checks are
// bounded separately by CHECK_TIMEOUT.
const runTimeout = 30 * time.Minute

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.InitTracerProvider(ctx)
	if err != nil {
		logger.Error("failed to initialize tracing", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", slog.Any("error", err))
		}
	}()

	database := initDatabase(ctx, logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("scrape_parallelism", workerConfig.ScrapeParallelism),
		slog.Duration("check_timeout", workerConfig.CheckTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	svc := setupMonitorService(logger, database, workerConfig)

	syncSeeds(ctx, logger, svc)

	// Start the ops server (health probes + Prometheus metrics)
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("ops server failed", slog.Any("error", err))
		}
	}()

	startCronWorker(ctx, logger, svc, workerConfig, workerMetrics, healthServer)
}

// initDatabase opens the connection pool and applies migrations.
func initDatabase(ctx context.Context, logger *slog.Logger) *sql.DB {
	database, err := db.Open(ctx)
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}

	return database
}

// setupMonitorService wires the repositories, fetchers, and scraper registry
// into the monitor service.
func setupMonitorService(logger *slog.Logger, database *sql.DB, workerConfig *workerPkg.WorkerConfig) *monitorUC.Service {
	monitorRepo := pgRepo.NewMonitorRepo(database)
	changeRepo := pgRepo.NewChangeLogRepo(database)

	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		logger.Error("failed to load fetcher configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("fetcher configured",
		slog.Duration("timeout", fetchConfig.Timeout),
		slog.Int64("max_body_size", fetchConfig.MaxBodySize))

	httpClient := newHTTPClient(fetchConfig.Timeout)
	pageFetcher := fetcher.NewWithResilience(httpClient, fetchConfig,
		retry.PageScrapeConfig(), circuitbreaker.PageScrapeConfig())
	feedFetcher := fetcher.NewWithResilience(httpClient, fetchConfig,
		retry.FeedFetchConfig(), circuitbreaker.FeedFetchConfig())

	registry := scraper.NewRegistry(pageFetcher, feedFetcher, registryConfigFromEnv())
	logger.Info("scraper registry initialized",
		slog.Any("source_types", registry.SourceTypes()))

	return monitorUC.NewService(monitorRepo, changeRepo, registry, nil, monitorUC.Config{
		Parallelism:  workerConfig.ScrapeParallelism,
		CheckTimeout: workerConfig.CheckTimeout,
	})
}

// syncSeeds loads the monitor seed file and creates any monitors not yet in
// the database. A missing seed file is allowed; an invalid one is fatal so a
// bad deploy fails loudly.
func syncSeeds(ctx context.Context, logger *slog.Logger, svc *monitorUC.Service) {
	path := os.Getenv("MONITOR_SEEDS_PATH")
	if path == "" {
		path = "config/monitors.yaml"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Info("no monitor seed file, skipping sync", slog.String("path", path))
		return
	}

	seeds, err := config.LoadMonitorSeeds(path)
	if err != nil {
		logger.Error("failed to load monitor seeds", slog.String("path", path), slog.Any("error", err))
		os.Exit(1)
	}

	created, err := svc.SyncSeeds(ctx, seeds)
	if err != nil {
		logger.Error("failed to sync monitor seeds", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("monitor seeds synced",
		slog.String("path", path),
		slog.Int("declared", len(seeds)),
		slog.Int("created", created))
}

// registryConfigFromEnv loads scraper registry settings from the environment.
//
// Environment variables:
//   - BULLETIN_AGENCY_KEYWORD: Agency filter for bulletin table rows
//   - MCO_ALLOW_HOSTS: Comma-separated extra hosts allowed for MCO links
func registryConfigFromEnv() scraper.RegistryConfig {
	cfg := scraper.DefaultRegistryConfig()

	if keyword := os.Getenv("BULLETIN_AGENCY_KEYWORD"); keyword != "" {
		cfg.BulletinAgencyKeyword = keyword
	}

	if hosts := os.Getenv("MCO_ALLOW_HOSTS"); hosts != "" {
		for _, h := range strings.Split(hosts, ",") {
			if h = strings.TrimSpace(h); h != "" {
				cfg.MCOAllowHosts = append(cfg.MCOAllowHosts, h)
			}
		}
	}

	return cfg
}

// newHTTPClient creates the shared HTTP client with connection pooling.
// TLS 1.2+ is enforced.
func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// startCronWorker starts the cron scheduler and blocks until shutdown.
func startCronWorker(ctx context.Context, logger *slog.Logger, svc *monitorUC.Service, cfg *workerPkg.WorkerConfig, metrics *workerPkg.WorkerMetrics, healthServer *workerPkg.HealthServer) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		runMonitorJob(logger, svc, metrics)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after the scheduler is running
	healthServer.SetReady(true)
	logger.Info("worker started",
		slog.String("schedule", cfg.CronSchedule),
		slog.String("timezone", cfg.Timezone))

	<-ctx.Done()

	healthServer.SetReady(false)
	logger.Info("worker shutting down")

	// Let an in-flight job finish
	stopCtx := c.Stop()
	<-stopCtx.Done()
	logger.Info("worker stopped")
}

// runMonitorJob executes a single monitoring run with timeout and metrics.
func runMonitorJob(logger *slog.Logger, svc *monitorUC.Service, metrics *workerPkg.WorkerMetrics) {
	startTime := time.Now()
	metrics.RecordJobRun("started")
	logger.Info("monitoring run started")

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	report, err := svc.Run(ctx, monitorUC.Options{})
	if err != nil {
		logger.Error("monitoring run failed", slog.Any("error", err))
		metrics.RecordJobRun("failure")
		metrics.RecordJobDuration(time.Since(startTime).Seconds())
		return
	}

	metrics.RecordJobRun("success")
	metrics.RecordJobDuration(time.Since(startTime).Seconds())
	metrics.RecordSourcesChecked(report.SourcesChecked)
	metrics.RecordLastSuccess()

	runLogger := logging.WithRunID(logger, report.RunID)
	runLogger.Info("monitoring run completed",
		slog.Int("sources_checked", report.SourcesChecked),
		slog.Int("changes_detected", report.ChangesDetected),
		slog.Int("ingestions_succeeded", report.IngestionsSucceeded),
		slog.Int("ingestions_failed", report.IngestionsFailed),
		slog.Int("source_errors", report.SourceErrors),
		slog.Duration("duration", report.Duration()),
	)
}
