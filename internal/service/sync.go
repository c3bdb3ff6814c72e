package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/archive"
	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider"
	"github.com/castlemilk/shorted.com.au-sub001/internal/repository"
)

// terminatedReason is recorded on runs ended by a termination request.
const terminatedReason = "terminated due to timeout"

const (
	defaultJobType       = "price_sync"
	defaultBatchSize     = 500
	defaultFlushInterval = 10
	defaultLookbackRuns  = 30
)

// SyncService orchestrates one sync invocation: it resumes or creates the
// day's run, walks the checkpointed catalog slice for this batch, fetches
// missing rows through the provider chain and finalizes or suspends the run.
// Entities are handled strictly sequentially; all pacing lives in the chain.
type SyncService struct {
	runs     *repository.RunRepository
	prices   *repository.PriceRepository
	catalog  Catalog
	chain    *provider.Chain
	retry    *RetryPolicy
	term     *TerminationHandler
	archiver archive.Archiver
	logger   *logger.Logger

	jobType       string
	batchSize     int
	flushInterval int
	lookbackRuns  int
	backfillStart time.Time
	loc           *time.Location

	now func() time.Time
}

// SyncConfig holds configuration for the sync service.
type SyncConfig struct {
	// JobType namespaces runs, e.g. "price_sync".
	JobType string
	// BatchSize caps entities handled per invocation.
	BatchSize int
	// FlushInterval is how many entities to handle between checkpoint writes.
	FlushInterval int
	// LookbackRuns is how many recent runs to scan when rebuilding failure counts.
	LookbackRuns int
	// BackfillStart is the first date fetched for symbols with no history.
	BackfillStart time.Time
	// Location is the market timezone used to derive the run's calendar day.
	Location *time.Location
}

// NewSyncService creates a sync service.
// Parameters:
//   - runs: run repository (checkpoint store).
//   - prices: price repository (time-series store).
//   - catalog: source of the symbol list.
//   - chain: ordered provider chain.
//   - retry: failure-count policy shared across runs of this process.
//   - term: cooperative termination handler.
//   - archiver: raw payload archive, nil to disable archiving.
//   - log: fallback logger when the context carries none.
//   - cfg: sync settings; zero fields fall back to defaults.
// Returns:
//   - *SyncService: configured service.
func NewSyncService(
	runs *repository.RunRepository,
	prices *repository.PriceRepository,
	catalog Catalog,
	chain *provider.Chain,
	retry *RetryPolicy,
	term *TerminationHandler,
	archiver archive.Archiver,
	log *logger.Logger,
	cfg *SyncConfig,
) *SyncService {
	s := &SyncService{
		runs:          runs,
		prices:        prices,
		catalog:       catalog,
		chain:         chain,
		retry:         retry,
		term:          term,
		archiver:      archiver,
		logger:        log,
		jobType:       cfg.JobType,
		batchSize:     cfg.BatchSize,
		flushInterval: cfg.FlushInterval,
		lookbackRuns:  cfg.LookbackRuns,
		backfillStart: cfg.BackfillStart,
		loc:           cfg.Location,
		now:           time.Now,
	}
	if s.jobType == "" {
		s.jobType = defaultJobType
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	if s.flushInterval <= 0 {
		s.flushInterval = defaultFlushInterval
	}
	if s.lookbackRuns <= 0 {
		s.lookbackRuns = defaultLookbackRuns
	}
	if s.backfillStart.IsZero() {
		s.backfillStart = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	return s
}

// log returns a logger from context if available, otherwise returns the default logger
func (s *SyncService) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return s.logger
}

type entityOutcome int

const (
	outcomeSynced entityOutcome = iota
	outcomeUpToDate
	outcomeFailed
	outcomeSkipped
)

// Run executes one invocation of the sync job and returns the run it worked
// on. The run ends in exactly one state: completed when the catalog snapshot
// is exhausted, partial when the batch budget ran out first, failed on
// termination or an infrastructure error. Entity-level failures never fail
// the run; they are recorded in the checkpoint and retried on later runs.
// Parameters:
//   - ctx: request context. Cancellation aborts the run as failed.
// Returns:
//   - *domain.SyncRun: the run with its final checkpoint, nil if no run was created.
//   - error: non-nil only for infrastructure failures.
func (s *SyncService) Run(ctx context.Context) (*domain.SyncRun, error) {
	ctx = logger.SetComponent(ctx, "sync")
	ctx = logger.SetJobType(ctx, s.jobType)

	today := domain.Day(s.now().In(s.loc))

	symbols, err := s.catalog.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	// Catalog order is part of the checkpoint contract: resume_index is an
	// offset into this snapshot.
	sort.Strings(symbols)

	run, resumed, err := s.runs.FindOrCreate(ctx, s.jobType, today, domain.NewCheckpoint(symbols, s.batchSize))
	if err != nil {
		return nil, fmt.Errorf("failed to find or create run: %w", err)
	}
	ctx = logger.SetRunID(ctx, run.ID)

	recent, err := s.runs.Recent(ctx, s.lookbackRuns)
	if err != nil {
		return run, s.abort(ctx, run, fmt.Errorf("failed to load recent runs: %w", err))
	}
	s.retry.Rehydrate(recent)

	cp := &run.Checkpoint
	if cp.BatchSize <= 0 {
		cp.BatchSize = s.batchSize
	}

	s.log(ctx).WithFields(logger.Fields{
		"run_date":       today.Format("2006-01-02"),
		"resumed":        resumed,
		"entities_total": cp.EntitiesTotal,
		"resume_index":   cp.ResumeIndex,
		"batch_size":     cp.BatchSize,
	}).Info("Starting sync invocation")

	if cp.EntitiesTotal == 0 {
		s.log(ctx).Warn("Catalog is empty, nothing to sync")
	}

	var (
		handled    int
		sinceFlush int
		terminated bool

		synced, upToDate, failed, skipped int
	)

	for cp.ResumeIndex < len(cp.Catalog) && handled < cp.BatchSize {
		symbol := cp.Catalog[cp.ResumeIndex]

		// A previous invocation may have handled this symbol without
		// persisting the advanced cursor. Never process an entity twice
		// within one run.
		if cp.Processed(symbol) {
			cp.ResumeIndex++
			continue
		}

		outcome, err := s.syncEntity(logger.SetSymbol(ctx, symbol), run, symbol, today)
		if err != nil {
			return run, s.abort(ctx, run, err)
		}

		cp.ResumeIndex++
		handled++
		sinceFlush++

		switch outcome {
		case outcomeSynced:
			synced++
		case outcomeUpToDate:
			upToDate++
		case outcomeFailed:
			failed++
		case outcomeSkipped:
			skipped++
		}

		if sinceFlush >= s.flushInterval {
			if err := s.runs.UpdateCheckpoint(ctx, run); err != nil {
				return run, s.abort(ctx, run, fmt.Errorf("failed to flush checkpoint: %w", err))
			}
			sinceFlush = 0
		}

		// Cooperative termination: the flag is polled between entities so
		// work in flight is never interrupted.
		if s.term != nil && s.term.Terminating() {
			terminated = true
			break
		}
	}

	summary := logger.Fields{
		"handled":      handled,
		"synced":       synced,
		"up_to_date":   upToDate,
		"failed":       failed,
		"skipped":      skipped,
		"resume_index": cp.ResumeIndex,
	}

	if terminated {
		s.log(ctx).WithFields(summary).Warn("Termination requested, finalizing run as failed")
		if err := s.runs.Finalize(ctx, run, domain.RunStatusFailed, terminatedReason); err != nil {
			return run, fmt.Errorf("failed to finalize terminated run: %w", err)
		}
		return run, nil
	}

	if cp.Exhausted() {
		if err := s.runs.Finalize(ctx, run, domain.RunStatusCompleted, ""); err != nil {
			return run, fmt.Errorf("failed to finalize completed run: %w", err)
		}
		s.log(ctx).WithFields(summary).Info("Run completed, catalog exhausted")
		return run, nil
	}

	if err := s.runs.Suspend(ctx, run); err != nil {
		return run, fmt.Errorf("failed to suspend run: %w", err)
	}
	s.log(ctx).WithFields(summary).WithField("remaining", len(cp.Catalog)-cp.ResumeIndex).
		Info("Batch budget exhausted, run suspended for the next invocation")
	return run, nil
}

// syncEntity handles one symbol and records its verdict in the checkpoint.
// The returned error is reserved for conditions that must abort the whole
// run; ordinary fetch or storage failures are folded into the verdict.
func (s *SyncService) syncEntity(ctx context.Context, run *domain.SyncRun, symbol string, today time.Time) (entityOutcome, error) {
	cp := &run.Checkpoint

	// Permanently failed symbols are skipped without any provider call. The
	// terminal count is re-recorded so the verdict stays visible to future
	// rehydration even as older runs age out of the lookback window.
	if s.retry.PermanentlyFailed(symbol) {
		count := s.retry.Count(symbol)
		cp.MarkFailed(symbol, count)
		s.log(ctx).WithField("failures", count).Warn("Skipping permanently failed symbol")
		return outcomeSkipped, nil
	}

	start := s.backfillStart
	last, err := s.prices.LastDate(ctx, symbol)
	switch {
	case err == nil:
		if !last.Before(today) {
			cp.MarkProcessed(symbol)
			s.log(ctx).Debug("Symbol already up to date")
			return outcomeUpToDate, nil
		}
		start = last.AddDate(0, 0, 1)
	case errors.Is(err, repository.ErrNoData):
		// First sync for this symbol, backfill from the configured start.
	default:
		count := s.retry.RecordFailure(symbol)
		cp.MarkFailed(symbol, count)
		s.log(ctx).WithError(err).Error("Failed to read last ingested date")
		return outcomeFailed, nil
	}

	points, providerName, err := s.chain.Fetch(ctx, symbol, start, today)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		count := s.retry.RecordFailure(symbol)
		cp.MarkFailed(symbol, count)
		lg := s.log(ctx).WithField("failures", count).WithError(err)
		if s.retry.PermanentlyFailed(symbol) {
			lg.Error("Symbol reached the failure threshold, skipping until its next success")
		} else {
			lg.Warn("All providers failed for symbol")
		}
		return outcomeFailed, nil
	}

	// An empty series with no error means the providers know the symbol but
	// have nothing new for the window, e.g. today's close not yet published.
	if len(points) == 0 {
		s.retry.RecordSuccess(symbol)
		cp.MarkProcessed(symbol)
		s.log(ctx).Debug("No new rows, symbol is up to date")
		return outcomeUpToDate, nil
	}

	if err := s.prices.UpsertBatch(ctx, points); err != nil {
		count := s.retry.RecordFailure(symbol)
		cp.MarkFailed(symbol, count)
		s.log(ctx).WithField("failures", count).WithError(err).Error("Failed to store fetched rows")
		return outcomeFailed, nil
	}

	s.archivePayload(ctx, symbol, providerName, today, points)

	s.retry.RecordSuccess(symbol)
	cp.MarkSuccessful(symbol)
	s.log(ctx).WithFields(logger.Fields{
		"rows":               len(points),
		logger.FieldProvider: providerName,
		"from":               start.Format("2006-01-02"),
		"to":                 today.Format("2006-01-02"),
	}).Info("Symbol synced")
	return outcomeSynced, nil
}

// archivePayload stores the fetched rows as a JSON object in the archive.
// Archiving is best effort and never affects the entity's verdict.
func (s *SyncService) archivePayload(ctx context.Context, symbol, providerName string, day time.Time, points []domain.PricePoint) {
	if s.archiver == nil {
		return
	}
	payload, err := json.Marshal(points)
	if err != nil {
		s.log(ctx).WithError(err).Warn("Failed to encode archive payload")
		return
	}
	key := archive.KeyFor(s.jobType, day, symbol, providerName)
	if err := s.archiver.Store(ctx, key, payload, "application/json"); err != nil {
		s.log(ctx).WithField("key", key).WithError(err).Warn("Failed to archive raw payload")
		return
	}
	s.log(ctx).WithField("key", key).Debug("Archived raw payload")
}

// abort finalizes the run as failed after an infrastructure error. The
// finalize itself is best effort; the original cause is always returned.
func (s *SyncService) abort(ctx context.Context, run *domain.SyncRun, cause error) error {
	s.log(ctx).WithError(cause).Error("Aborting run")
	if err := s.runs.Finalize(ctx, run, domain.RunStatusFailed, cause.Error()); err != nil {
		s.log(ctx).WithError(err).Error("Failed to finalize aborted run")
	}
	return cause
}
