// Package main provides the operator CLI for source monitoring.
//
// Usage:
//
//	monitorctl list [--frequency f]
//	monitorctl status
//	monitorctl changes [--limit n]
//	monitorctl check [--frequency f] [--source s] [--force] [--dry-run]
//	monitorctl test-scrape <url> --type <sourceType>
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"policy-watch/internal/domain/entity"
	pgRepo "policy-watch/internal/infra/adapter/persistence/postgres"
	"policy-watch/internal/infra/db"
	"policy-watch/internal/infra/fetcher"
	"policy-watch/internal/infra/scraper"
	"policy-watch/internal/observability/logging"
	"policy-watch/internal/repository"
	"policy-watch/internal/resilience/circuitbreaker"
	"policy-watch/internal/resilience/retry"
	monitorUC "policy-watch/internal/usecase/monitor"
)

const commandTimeout = 10 * time.Minute

func main() {
	logger := logging.NewTextLogger()
	slog.SetDefault(logger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(ctx, logger, os.Args[2:])
	case "status":
		err = runStatus(ctx, logger, os.Args[2:])
	case "changes":
		err = runChanges(ctx, logger, os.Args[2:])
	case "check":
		err = runCheck(ctx, logger, os.Args[2:])
	case "test-scrape":
		err = runTestScrape(ctx, logger, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "Usage: monitorctl <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  list         List active monitors [--frequency f]")
	fmt.Fprintln(os.Stderr, "  status       Show aggregate monitor counts")
	fmt.Fprintln(os.Stderr, "  changes      Show recent detected changes [--limit n]")
	fmt.Fprintln(os.Stderr, "  check        Run monitoring checks [--frequency f] [--source s] [--force] [--dry-run]")
	fmt.Fprintln(os.Stderr, "  test-scrape  Scrape a URL without persisting: test-scrape <url> --type <sourceType>")
}

// newService opens the database and wires a monitor service for one command.
// The returned cleanup closes the pool.
func newService(ctx context.Context, logger *slog.Logger) (*monitorUC.Service, func(), error) {
	database, err := db.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}

	cleanup := func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}

	svc := buildService(logger, pgRepo.NewMonitorRepo(database), pgRepo.NewChangeLogRepo(database))
	return svc, cleanup, nil
}

// newOfflineService wires a monitor service with no database behind it.
// Only test-scrape may use it; every repository call would fail.
func newOfflineService(logger *slog.Logger) *monitorUC.Service {
	return buildService(logger, nil, nil)
}

func buildService(logger *slog.Logger, monitorRepo repository.MonitorRepository, changeRepo repository.ChangeLogRepository) *monitorUC.Service {
	fetchConfig, err := fetcher.LoadConfigFromEnv()
	if err != nil {
		// LoadConfigFromEnv is fail-open for env values; only a broken
		// default can land here.
		logger.Error("failed to load fetcher configuration", slog.Any("error", err))
		os.Exit(1)
	}

	httpClient := &http.Client{
		Timeout: fetchConfig.Timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		},
	}
	pageFetcher := fetcher.NewWithResilience(httpClient, fetchConfig,
		retry.PageScrapeConfig(), circuitbreaker.PageScrapeConfig())
	feedFetcher := fetcher.NewWithResilience(httpClient, fetchConfig,
		retry.FeedFetchConfig(), circuitbreaker.FeedFetchConfig())

	registry := scraper.NewRegistry(pageFetcher, feedFetcher, scraper.DefaultRegistryConfig())

	return monitorUC.NewService(monitorRepo, changeRepo, registry, nil, monitorUC.Config{
		Parallelism: 1,
	})
}

func runList(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	frequency := fs.String("frequency", "", "Filter by check frequency (weekly, monthly, quarterly, annually)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	monitors, err := svc.ListMonitors(ctx, entity.CheckFrequency(*frequency))
	if err != nil {
		return err
	}

	if len(monitors) == 0 {
		fmt.Println("No active monitors.")
		return nil
	}

	fmt.Printf("Active monitors: %d\n\n", len(monitors))
	for _, m := range monitors {
		fmt.Printf("%s  [%s, %s]\n", m.SourceName, m.SourceType, m.CheckFrequency)
		fmt.Printf("   URL: %s\n", m.SourceURL)
		fmt.Printf("   Last checked: %s\n", formatTimePtr(m.LastCheckedAt))
		fmt.Printf("   Last change:  %s\n", formatTimePtr(m.LastChangeDetectedAt))
		if m.AutoIngest {
			fmt.Printf("   Auto-ingest:  enabled\n")
		}
		if len(m.FilterKeywords) > 0 {
			fmt.Printf("   Keywords:     %s\n", strings.Join(m.FilterKeywords, ", "))
		}
		fmt.Println()
	}

	return nil
}

func runStatus(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	status, err := svc.Status(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("Monitors: %d total, %d active\n", status.TotalMonitors, status.ActiveMonitors)
	if len(status.ByFrequency) > 0 {
		fmt.Println("\nActive by frequency:")
		for _, freq := range []entity.CheckFrequency{
			entity.FrequencyWeekly,
			entity.FrequencyMonthly,
			entity.FrequencyQuarterly,
			entity.FrequencyAnnually,
		} {
			if count, ok := status.ByFrequency[freq]; ok {
				fmt.Printf("  %-10s %d\n", freq, count)
			}
		}
	}

	return nil
}

func runChanges(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("changes", flag.ExitOnError)
	limit := fs.Int("limit", 20, "Maximum number of changes to show")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	changes, err := svc.RecentChanges(ctx, *limit)
	if err != nil {
		return err
	}

	if len(changes) == 0 {
		fmt.Println("No changes recorded.")
		return nil
	}

	fmt.Printf("Recent changes: %d\n\n", len(changes))
	for _, c := range changes {
		fmt.Printf("%s  monitor #%d\n", c.DetectedAt.Format(time.RFC3339), c.MonitorID)
		fmt.Printf("   %s\n", c.ChangeSummary)
		fmt.Printf("   Items: +%d / -%d   Ingestion: %s\n", c.ItemsAdded, c.ItemsRemoved, c.IngestionStatus)
		if c.IngestionError != nil {
			fmt.Printf("   Ingestion error: %s\n", *c.IngestionError)
		}
		fmt.Println()
	}

	return nil
}

func runCheck(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	frequency := fs.String("frequency", "", "Only check monitors with this frequency")
	source := fs.String("source", "", "Check a single monitor by source name")
	force := fs.Bool("force", false, "Check even when the frequency threshold has not elapsed")
	dryRun := fs.Bool("dry-run", false, "Detect and record changes but skip ingestion")
	if err := fs.Parse(args); err != nil {
		return err
	}

	svc, cleanup, err := newService(ctx, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	report, err := svc.Run(ctx, monitorUC.Options{
		Frequency:  entity.CheckFrequency(*frequency),
		SourceName: *source,
		Force:      *force,
		DryRun:     *dryRun,
	})
	if err != nil {
		return err
	}

	printReport(report)
	return nil
}

func runTestScrape(ctx context.Context, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("test-scrape", flag.ExitOnError)
	sourceType := fs.String("type", "", "Source type to scrape with (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() != 1 {
		return fmt.Errorf("test-scrape requires exactly one URL argument")
	}
	if *sourceType == "" {
		return fmt.Errorf("--type is required")
	}
	rawURL := fs.Arg(0)

	// test-scrape touches no persistent state, so no database is needed.
	svc := newOfflineService(logger)

	result, err := svc.TestScrape(ctx, rawURL, *sourceType)
	if err != nil {
		return err
	}

	fmt.Printf("Scraped %s as %s\n", rawURL, *sourceType)
	fmt.Printf("Content hash: %s\n", result.ContentHash)
	fmt.Printf("HTTP status:  %d\n", result.Metadata.HTTPStatus)
	fmt.Printf("Items: %d\n\n", len(result.Items))

	for i, item := range result.Items {
		fmt.Printf("%d. %s\n", i+1, item.Title)
		fmt.Printf("   URL: %s\n", item.URL)
		if item.Date != nil {
			fmt.Printf("   Date: %s\n", item.Date.Format("2006-01-02"))
		}
		if item.Description != "" {
			fmt.Printf("   %s\n", item.Description)
		}
		fmt.Println()
	}

	return nil
}

func printReport(report *monitorUC.RunReport) {
	fmt.Printf("Run %s finished in %s\n", report.RunID, report.Duration().Round(time.Millisecond))
	fmt.Printf("Checked: %d   Changes: %d   Errors: %d\n",
		report.SourcesChecked, report.ChangesDetected, report.SourceErrors)
	if report.IngestionsSucceeded > 0 || report.IngestionsFailed > 0 {
		fmt.Printf("Ingestions: %d succeeded, %d failed\n",
			report.IngestionsSucceeded, report.IngestionsFailed)
	}
	fmt.Println()

	for _, r := range report.Results {
		switch {
		case r.Error != "":
			fmt.Printf("  %-30s ERROR: %s\n", r.SourceName, r.Error)
		case !r.Checked:
			fmt.Printf("  %-30s skipped (%s)\n", r.SourceName, r.SkipReason)
		case r.ChangeDetected:
			fmt.Printf("  %-30s %s (+%d/-%d) ingestion=%s\n",
				r.SourceName, r.ChangeType, r.ItemsAdded, r.ItemsRemoved, r.IngestionStatus)
		default:
			fmt.Printf("  %-30s unchanged\n", r.SourceName)
		}
	}
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format(time.RFC3339)
}
