// Package monitor implements the source-monitoring use cases: the
// scheduled check run over all monitored government sources, seed
// synchronization, and the read paths behind the operator CLI.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"policy-watch/internal/domain/entity"
	"policy-watch/internal/infra/scraper"
	"policy-watch/internal/observability/metrics"
	"policy-watch/internal/repository"
)

var tracer = otel.Tracer("policy-watch/usecase/monitor")

// sourceAuthority is recorded on every ingested document. All monitored
// sources are primary government publications.
const sourceAuthority = "primary"

// Config holds run-behavior settings for the monitor service.
type Config struct {
	// Parallelism bounds concurrent scrapes within one run. Values below 1
	// mean sequential checks. Persistence is always sequential regardless.
	Parallelism int

	// CheckTimeout bounds one source's whole scrape, on top of the
	// fetcher's per-request timeout. Zero disables the bound.
	CheckTimeout time.Duration
}

// Options selects which monitors one run covers and how it behaves.
// SourceName targets a single monitor and takes precedence over Frequency.
type Options struct {
	Frequency  entity.CheckFrequency
	SourceName string

	// Force checks monitors even when their frequency threshold has not
	// elapsed yet.
	Force bool

	// DryRun suppresses the ingestion hand-off. Check state and change
	// rows are still persisted; detected changes are logged with
	// ingestion status pending so a later run can pick them up.
	DryRun bool
}

// Service orchestrates source monitoring runs.
type Service struct {
	monitors repository.MonitorRepository
	changes  repository.ChangeLogRepository
	registry *scraper.Registry
	ingestor Ingestor
	cfg      Config
}

// NewService creates a monitor Service. ingestor may be nil when no
// ingestion pipeline is wired.
func NewService(
	monitors repository.MonitorRepository,
	changes repository.ChangeLogRepository,
	registry *scraper.Registry,
	ingestor Ingestor,
	cfg Config,
) *Service {
	return &Service{
		monitors: monitors,
		changes:  changes,
		registry: registry,
		ingestor: ingestor,
		cfg:      cfg,
	}
}

// scrapeOutcome carries one monitor's fetch-phase result into the
// sequential persistence phase.
type scrapeOutcome struct {
	result *entity.ScraperResult
	err    error
}

// Run executes one monitoring run and always produces a report: a single
// source's failure becomes a report entry, never a run failure. Only
// option validation and the initial monitor load can fail the run itself.
func (s *Service) Run(ctx context.Context, opts Options) (*RunReport, error) {
	ctx, span := tracer.Start(ctx, "monitor.run")
	defer span.End()

	started := time.Now()
	logger := slog.Default()

	mons, err := s.loadMonitors(ctx, opts)
	if err != nil {
		return nil, err
	}

	report := &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: started,
		Results:   make([]SourceRunResult, len(mons)),
	}
	span.SetAttributes(
		attribute.String("run.id", report.RunID),
		attribute.Int("run.monitors", len(mons)),
		attribute.Bool("run.force", opts.Force),
		attribute.Bool("run.dry_run", opts.DryRun),
	)

	s.refreshMonitorGauge(mons)

	now := time.Now()
	due := make([]bool, len(mons))
	for i, m := range mons {
		due[i] = opts.Force || m.IsDue(now)
	}

	outcomes := s.scrapeDue(ctx, mons, due)

	for i, m := range mons {
		if err := ctx.Err(); err != nil {
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("run aborted: %w", err)
		}
		s.settleMonitor(ctx, m, due[i], outcomes[i], opts, report, &report.Results[i])
	}

	report.FinishedAt = time.Now()
	metrics.RecordRun(report.Duration())

	logger.Info("monitoring run completed",
		slog.String("run_id", report.RunID),
		slog.Int("monitors", len(mons)),
		slog.Int("checked", report.SourcesChecked),
		slog.Int("changes", report.ChangesDetected),
		slog.Int("ingestions_succeeded", report.IngestionsSucceeded),
		slog.Int("ingestions_failed", report.IngestionsFailed),
		slog.Int("source_errors", report.SourceErrors),
		slog.Duration("duration", report.Duration()),
	)

	return report, nil
}

// loadMonitors resolves the run's monitor set from the options.
func (s *Service) loadMonitors(ctx context.Context, opts Options) ([]*entity.SourceMonitor, error) {
	if opts.SourceName != "" {
		m, err := s.monitors.GetMonitorByName(ctx, opts.SourceName)
		if err != nil {
			return nil, fmt.Errorf("load monitor %q: %w", opts.SourceName, err)
		}
		if m == nil {
			return nil, fmt.Errorf("%w: monitor %q", entity.ErrNotFound, opts.SourceName)
		}
		if !m.IsActive {
			return nil, fmt.Errorf("%w: monitor %q is inactive", entity.ErrInvalidInput, opts.SourceName)
		}
		return []*entity.SourceMonitor{m}, nil
	}

	if opts.Frequency != "" && !opts.Frequency.Valid() {
		return nil, fmt.Errorf("%w: invalid frequency %q", entity.ErrInvalidInput, opts.Frequency)
	}

	mons, err := s.monitors.GetMonitors(ctx, opts.Frequency)
	if err != nil {
		return nil, fmt.Errorf("load monitors: %w", err)
	}
	return mons, nil
}

// scrapeDue runs the fetch+detect-eligible scrapes, bounded by the
// configured parallelism. Failures are captured per monitor; only context
// cancellation stops the group early, and even then the collected
// outcomes are returned so the caller can settle what finished.
func (s *Service) scrapeDue(ctx context.Context, mons []*entity.SourceMonitor, due []bool) []*scrapeOutcome {
	parallelism := s.cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}

	outcomes := make([]*scrapeOutcome, len(mons))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(parallelism)

	for i, m := range mons {
		if !due[i] {
			continue
		}
		i, m := i, m
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			result, err := s.scrapeOne(egCtx, m)
			outcomes[i] = &scrapeOutcome{result: result, err: err}
			return nil
		})
	}

	// The only group error is context cancellation, which the sequential
	// phase surfaces via ctx.Err.
	_ = eg.Wait()

	return outcomes
}

// scrapeOne checks a single monitor's source: scraper lookup, keyword
// propagation, the scrape itself.
func (s *Service) scrapeOne(ctx context.Context, m *entity.SourceMonitor) (*entity.ScraperResult, error) {
	ctx, span := tracer.Start(ctx, "monitor.check",
		trace.WithAttributes(
			attribute.String("source.name", m.SourceName),
			attribute.String("source.type", m.SourceType),
		))
	defer span.End()

	sc, err := s.registry.Scraper(m.SourceType)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if s.cfg.CheckTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.CheckTimeout)
		defer cancel()
	}
	ctx = scraper.WithKeywords(ctx, m.FilterKeywords)

	start := time.Now()
	result, err := sc.Scrape(ctx, m.SourceURL)
	metrics.RecordScrape(m.SourceType, time.Since(start))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return result, nil
}

// settleMonitor runs the sequential per-monitor phase: status update,
// change detection bookkeeping, ingestion, change-log row.
func (s *Service) settleMonitor(
	ctx context.Context,
	m *entity.SourceMonitor,
	wasDue bool,
	outcome *scrapeOutcome,
	opts Options,
	report *RunReport,
	result *SourceRunResult,
) {
	logger := slog.Default()

	result.SourceName = m.SourceName
	result.SourceType = m.SourceType

	if !wasDue {
		result.SkipReason = "not due"
		metrics.RecordSourceCheck(m.SourceName, "skipped")
		return
	}

	if outcome == nil {
		// Cancelled before this monitor's scrape started.
		result.SkipReason = "run cancelled"
		metrics.RecordSourceCheck(m.SourceName, "skipped")
		return
	}

	if outcome.err != nil {
		result.Error = outcome.err.Error()
		report.SourceErrors++
		metrics.RecordSourceCheck(m.SourceName, "error")
		metrics.RecordScrapeError(m.SourceName, errorKind(outcome.err))
		logger.Warn("source check failed",
			slog.String("source", m.SourceName),
			slog.String("source_type", m.SourceType),
			slog.String("kind", errorKind(outcome.err)),
			slog.Any("error", outcome.err))
		return
	}

	result.Checked = true
	report.SourcesChecked++

	detection := scraper.DetectChanges(previousResult(m), outcome.result)

	checkedAt := time.Now()
	if err := s.monitors.UpdateStatus(ctx, m.ID, detection.NewHash, detection.HasChanges, checkedAt); err != nil {
		result.Error = err.Error()
		report.SourceErrors++
		metrics.RecordSourceCheck(m.SourceName, "error")
		logger.Error("failed to update monitor status",
			slog.String("source", m.SourceName),
			slog.Any("error", err))
		return
	}

	if !detection.HasChanges {
		metrics.RecordSourceCheck(m.SourceName, "unchanged")
		return
	}

	report.ChangesDetected++
	result.ChangeDetected = true
	result.ChangeType = detection.ChangeType
	result.ItemsAdded = len(detection.NewItems)
	result.ItemsRemoved = len(detection.RemovedItems)
	metrics.RecordSourceCheck(m.SourceName, "changed")
	metrics.RecordChangeDetected(m.SourceName, string(detection.ChangeType))

	logger.Info("change detected",
		slog.String("source", m.SourceName),
		slog.String("change_type", string(detection.ChangeType)),
		slog.String("summary", detection.Summary),
		slog.Int("items_added", result.ItemsAdded),
		slog.Int("items_removed", result.ItemsRemoved))

	status, attempted, ingestErr := s.ingestChange(ctx, m, detection, opts.DryRun)
	result.IngestionStatus = status
	metrics.RecordIngestion(string(status))
	switch status {
	case entity.IngestionSuccess:
		report.IngestionsSucceeded++
	case entity.IngestionFailed:
		report.IngestionsFailed++
	}

	row := &entity.SourceChangeLog{
		MonitorID:       m.ID,
		DetectedAt:      checkedAt,
		PreviousHash:    detection.PreviousHash,
		NewHash:         detection.NewHash,
		ChangeSummary:   detection.Summary,
		ItemsAdded:      len(detection.NewItems),
		ItemsRemoved:    len(detection.RemovedItems),
		AutoIngested:    attempted,
		IngestionStatus: status,
		IngestionError:  ingestErr,
	}
	if _, err := s.changes.LogChange(ctx, row); err != nil {
		result.Error = err.Error()
		report.SourceErrors++
		logger.Error("failed to write change log row",
			slog.String("source", m.SourceName),
			slog.Any("error", err))
	}
}

// ingestChange decides and, when eligible, performs the ingestion hand-off
// for a detected change. It reports the final ingestion status, whether an
// ingestion call was actually made, and the failure text if any.
func (s *Service) ingestChange(
	ctx context.Context,
	m *entity.SourceMonitor,
	detection *entity.ChangeDetection,
	dryRun bool,
) (entity.IngestionStatus, bool, *string) {
	switch {
	case dryRun:
		return entity.IngestionPending, false, nil
	case !m.AutoIngest:
		return entity.IngestionSkipped, false, nil
	case s.ingestor == nil:
		slog.Warn("auto-ingest enabled but no ingestor configured",
			slog.String("source", m.SourceName))
		return entity.IngestionSkipped, false, nil
	case len(detection.NewItems) == 0:
		return entity.IngestionSkipped, false, nil
	}

	class, err := s.registry.DocumentClass(m.SourceType)
	if err != nil {
		text := err.Error()
		return entity.IngestionFailed, false, &text
	}

	res, err := s.ingestor.IngestScrapedItems(ctx, detection.NewItems,
		class.DocumentType, sourceAuthority, string(class.LegalWeight))
	if err != nil {
		text := err.Error()
		return entity.IngestionFailed, true, &text
	}
	if len(res.Errors) > 0 {
		text := strings.Join(res.Errors, "; ")
		return entity.IngestionFailed, true, &text
	}

	slog.Info("ingestion completed",
		slog.String("source", m.SourceName),
		slog.Int("documents_processed", res.DocumentsProcessed),
		slog.Int("documents_skipped", res.DocumentsSkipped),
		slog.Int("chunks_created", res.ChunksCreated))
	return entity.IngestionSuccess, true, nil
}

// previousResult reconstructs the comparison baseline from stored monitor
// state: hash only, nil item list. Nil when the monitor has never been
// checked.
func previousResult(m *entity.SourceMonitor) *entity.ScraperResult {
	if m.LastContentHash == nil {
		return nil
	}
	return &entity.ScraperResult{ContentHash: *m.LastContentHash}
}

// refreshMonitorGauge updates the active-monitor gauge from the loaded set.
func (s *Service) refreshMonitorGauge(mons []*entity.SourceMonitor) {
	counts := make(map[entity.CheckFrequency]int)
	for _, m := range mons {
		counts[m.CheckFrequency]++
	}
	for frequency, count := range counts {
		metrics.UpdateActiveMonitors(string(frequency), count)
	}
}

// SyncSeeds creates monitors from seed definitions that do not exist yet,
// matching on the unique source name. Existing monitors are left untouched
// so operator edits survive restarts. Returns the number created.
func (s *Service) SyncSeeds(ctx context.Context, seeds []*entity.SourceMonitor) (int, error) {
	created := 0
	for _, seed := range seeds {
		existing, err := s.monitors.GetMonitorByName(ctx, seed.SourceName)
		if err != nil {
			return created, fmt.Errorf("look up seed monitor %q: %w", seed.SourceName, err)
		}
		if existing != nil {
			continue
		}
		if err := s.monitors.Create(ctx, seed); err != nil {
			return created, fmt.Errorf("create seed monitor %q: %w", seed.SourceName, err)
		}
		created++
		slog.Info("monitor created from seed",
			slog.String("source", seed.SourceName),
			slog.String("source_type", seed.SourceType),
			slog.String("frequency", string(seed.CheckFrequency)))
	}
	return created, nil
}

// ListMonitors returns active monitors, optionally filtered by frequency.
func (s *Service) ListMonitors(ctx context.Context, frequency entity.CheckFrequency) ([]*entity.SourceMonitor, error) {
	if frequency != "" && !frequency.Valid() {
		return nil, fmt.Errorf("%w: invalid frequency %q", entity.ErrInvalidInput, frequency)
	}
	return s.monitors.GetMonitors(ctx, frequency)
}

// Status returns aggregate monitor counts.
func (s *Service) Status(ctx context.Context) (*repository.MonitorStatus, error) {
	return s.monitors.Status(ctx)
}

// RecentChanges returns the most recent change rows, newest first.
func (s *Service) RecentChanges(ctx context.Context, limit int) ([]*entity.SourceChangeLog, error) {
	if limit < 1 {
		limit = 20
	}
	return s.changes.RecentChanges(ctx, limit)
}

// TestScrape runs a one-off scrape of an arbitrary URL with the named
// source type's scraper, without touching any persisted state. Used by the
// operator CLI to validate extraction rules against a live page.
func (s *Service) TestScrape(ctx context.Context, rawURL, sourceType string) (*entity.ScraperResult, error) {
	sc, err := s.registry.Scraper(sourceType)
	if err != nil {
		return nil, err
	}
	return sc.Scrape(ctx, rawURL)
}
