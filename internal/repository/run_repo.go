package repository

import (
	"context"
	"errors"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RunRepository handles sync run persistence, including checkpoint state.
type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a new RunRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *RunRepository: repository instance bound to db.
func NewRunRepository(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

// FindOrCreate returns the run to execute for (jobType, day). A run that is
// still resumable (running or partial) is reactivated and returned with its
// persisted checkpoint; otherwise a fresh run is created with the given
// checkpoint. The day must already be normalized to a civil date.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobType: job type identifier, e.g. "price_sync".
//   - day: civil date of the run.
//   - checkpoint: initial checkpoint used when a new run is created.
// Returns:
//   - *domain.SyncRun: the run to execute.
//   - bool: true when an existing run was resumed.
//   - error: non-nil if the lookup or insert fails.
func (r *RunRepository) FindOrCreate(ctx context.Context, jobType string, day time.Time, checkpoint domain.Checkpoint) (*domain.SyncRun, bool, error) {
	var run domain.SyncRun
	err := r.db.WithContext(ctx).
		Where("job_type = ? AND run_date = ? AND status IN ?", jobType, day,
			[]domain.RunStatus{domain.RunStatusRunning, domain.RunStatusPartial}).
		Order("started_at DESC").
		First(&run).Error
	if err == nil {
		if run.Status == domain.RunStatusPartial {
			run.Status = domain.RunStatusRunning
			if err := r.db.WithContext(ctx).Model(&domain.SyncRun{}).
				Where("id = ?", run.ID).
				Update("status", domain.RunStatusRunning).Error; err != nil {
				return nil, false, err
			}
		}
		return &run, true, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	run = domain.SyncRun{
		ID:         uuid.New().String(),
		JobType:    jobType,
		RunDate:    day,
		Status:     domain.RunStatusRunning,
		Checkpoint: checkpoint,
		StartedAt:  time.Now().UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&run).Error; err != nil {
		return nil, false, err
	}
	return &run, false, nil
}

// UpdateCheckpoint persists the run's current checkpoint. Called periodically
// during execution so progress survives a crash between flushes.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run whose checkpoint should be written.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) UpdateCheckpoint(ctx context.Context, run *domain.SyncRun) error {
	return r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("id = ?", run.ID).
		Update("checkpoint", run.Checkpoint).Error
}

// Suspend marks the run partial and persists the checkpoint. A partial run is
// picked up again by FindOrCreate on the next invocation for the same day.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run to suspend.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Suspend(ctx context.Context, run *domain.SyncRun) error {
	run.Status = domain.RunStatusPartial
	return r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":     domain.RunStatusPartial,
			"checkpoint": run.Checkpoint,
		}).Error
}

// Finalize moves the run to a terminal status, persisting the final
// checkpoint, the completion time and an optional error message.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - run: run to finalize.
//   - status: terminal status (completed or failed).
//   - errMsg: failure description; empty for completed runs.
// Returns:
//   - error: non-nil if the update fails.
func (r *RunRepository) Finalize(ctx context.Context, run *domain.SyncRun, status domain.RunStatus, errMsg string) error {
	now := time.Now().UTC()
	run.Status = status
	run.Error = errMsg
	run.CompletedAt = &now
	return r.db.WithContext(ctx).Model(&domain.SyncRun{}).
		Where("id = ?", run.ID).
		Updates(map[string]interface{}{
			"status":       status,
			"checkpoint":   run.Checkpoint,
			"error":        errMsg,
			"completed_at": now,
		}).Error
}

// GetByID retrieves a run by its ID.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - id: run ID.
// Returns:
//   - *domain.SyncRun: run record if found.
//   - error: non-nil if lookup fails.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.SyncRun, error) {
	var run domain.SyncRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Latest retrieves the most recently started run, optionally filtered by job type.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobType: job type to filter by; empty means any.
// Returns:
//   - *domain.SyncRun: most recent run if any exists.
//   - error: non-nil if lookup fails.
func (r *RunRepository) Latest(ctx context.Context, jobType string) (*domain.SyncRun, error) {
	query := r.db.WithContext(ctx)
	if jobType != "" {
		query = query.Where("job_type = ?", jobType)
	}
	var run domain.SyncRun
	if err := query.Order("started_at DESC").First(&run).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

// Recent retrieves runs ordered newest first.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - limit: maximum number of runs to return.
// Returns:
//   - []domain.SyncRun: matching runs.
//   - error: non-nil if the query fails.
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	var runs []domain.SyncRun
	if err := r.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}

// List retrieves runs newest first with optional filters.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - jobType: job type filter; empty means any.
//   - status: status filter; empty means any.
//   - limit: maximum number of runs to return.
// Returns:
//   - []domain.SyncRun: matching runs.
//   - error: non-nil if the query fails.
func (r *RunRepository) List(ctx context.Context, jobType string, status domain.RunStatus, limit int) ([]domain.SyncRun, error) {
	query := r.db.WithContext(ctx)
	if jobType != "" {
		query = query.Where("job_type = ?", jobType)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}
	var runs []domain.SyncRun
	if err := query.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
