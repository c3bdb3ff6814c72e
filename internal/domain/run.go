package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// RunStatus represents the lifecycle state of a sync run.
// Values include RunStatusRunning, RunStatusPartial, RunStatusCompleted, and RunStatusFailed.
type RunStatus string

const (
	// RunStatusRunning marks a run with an invocation actively working on it.
	RunStatusRunning RunStatus = "running"
	// RunStatusPartial marks a run that stopped cleanly with catalog entries
	// still unprocessed; the next invocation picks it up where it left off.
	RunStatusPartial RunStatus = "partial"
	// RunStatusCompleted marks a run that exhausted its catalog.
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed marks a run ended by termination or an infrastructure error.
	RunStatusFailed RunStatus = "failed"
)

// Terminal reports whether the status can never transition again.
// Partial runs are suspended, not terminal: they are resumed by the next
// invocation on the same day.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// Resumable reports whether a run in this status may be picked up by a new
// invocation instead of creating a fresh run.
func (s RunStatus) Resumable() bool {
	return s == RunStatusRunning || s == RunStatusPartial
}

// Checkpoint tracks incremental progress of a sync run. It is embedded in the
// run row as a JSON column so a later invocation can continue from where the
// previous one stopped.
type Checkpoint struct {
	// Catalog is the sorted symbol list snapshotted when the run was created.
	// Resumption iterates this snapshot, never a live catalog, so ResumeIndex
	// stays meaningful even if symbols are added mid-day.
	Catalog []string `json:"catalog"`
	// EntitiesTotal is the catalog size at run creation.
	EntitiesTotal int `json:"entities_total"`
	// EntitiesProcessed holds every symbol this run has handled so far,
	// whether it was synced, skipped as up to date, or skipped as broken.
	EntitiesProcessed []string `json:"entities_processed"`
	// EntitiesSuccessful holds the processed symbols that ingested at least
	// one new record.
	EntitiesSuccessful []string `json:"entities_successful"`
	// EntitiesFailed maps a symbol to its consecutive-failure count as of its
	// most recent attempt.
	EntitiesFailed map[string]int `json:"entities_failed"`
	// BatchSize caps how many symbols one invocation handles.
	BatchSize int `json:"batch_size"`
	// ResumeIndex is the offset into Catalog where the next invocation continues.
	ResumeIndex int `json:"resume_index"`
}

// NewCheckpoint builds the initial checkpoint for a fresh run over the given
// catalog snapshot.
func NewCheckpoint(catalog []string, batchSize int) Checkpoint {
	return Checkpoint{
		Catalog:            catalog,
		EntitiesTotal:      len(catalog),
		EntitiesProcessed:  []string{},
		EntitiesSuccessful: []string{},
		EntitiesFailed:     map[string]int{},
		BatchSize:          batchSize,
	}
}

// Processed reports whether the symbol was already handled by this run.
func (c *Checkpoint) Processed(symbol string) bool {
	for _, s := range c.EntitiesProcessed {
		if s == symbol {
			return true
		}
	}
	return false
}

// MarkProcessed records that this run handled the symbol.
func (c *Checkpoint) MarkProcessed(symbol string) {
	if !c.Processed(symbol) {
		c.EntitiesProcessed = append(c.EntitiesProcessed, symbol)
	}
}

// MarkSuccessful records a symbol that ingested new data. Any failure entry
// for it is cleared.
func (c *Checkpoint) MarkSuccessful(symbol string) {
	c.MarkProcessed(symbol)
	for _, s := range c.EntitiesSuccessful {
		if s == symbol {
			delete(c.EntitiesFailed, symbol)
			return
		}
	}
	c.EntitiesSuccessful = append(c.EntitiesSuccessful, symbol)
	delete(c.EntitiesFailed, symbol)
}

// MarkFailed records the symbol's current consecutive-failure count.
func (c *Checkpoint) MarkFailed(symbol string, count int) {
	c.MarkProcessed(symbol)
	if c.EntitiesFailed == nil {
		c.EntitiesFailed = map[string]int{}
	}
	c.EntitiesFailed[symbol] = count
}

// Exhausted reports whether the resume offset has reached the end of the
// catalog snapshot.
func (c *Checkpoint) Exhausted() bool {
	return c.ResumeIndex >= len(c.Catalog)
}

// Value implements the driver.Valuer interface for database serialization.
// Parameters: none.
// Returns:
//   - driver.Value: JSON-encoded string representation of the checkpoint.
//   - error: non-nil if marshaling fails.
func (c Checkpoint) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
// Parameters:
//   - value: raw database value to decode.
// Returns:
//   - error: non-nil if decoding fails or the type is unexpected.
func (c *Checkpoint) Scan(value interface{}) error {
	if value == nil {
		*c = Checkpoint{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan Checkpoint")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, c)
}

// SyncRun represents one logical execution of a sync job for a job type and
// calendar day. A run may span several physical invocations; the embedded
// checkpoint carries the progress between them.
type SyncRun struct {
	ID          string     `gorm:"type:text;primaryKey" json:"id"`
	JobType     string     `gorm:"type:text;not null;index:idx_sync_runs_job_day" json:"job_type"`
	RunDate     time.Time  `gorm:"type:date;not null;index:idx_sync_runs_job_day" json:"run_date"`
	Status      RunStatus  `gorm:"type:text;index:idx_sync_runs_status;default:running" json:"status"`
	Checkpoint  Checkpoint `gorm:"type:text" json:"checkpoint"`
	Error       string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for SyncRun.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (SyncRun) TableName() string {
	return "sync_runs"
}

// Day normalizes a timestamp to its calendar date, midnight UTC. The civil
// date is taken in t's own location, so callers pick the market timezone by
// converting first.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
