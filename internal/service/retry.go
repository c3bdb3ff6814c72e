package service

import (
	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
)

// RetryPolicy tracks consecutive failure counts per entity and decides when
// an entity is permanently failed. Counts survive process restarts: they are
// rehydrated from the failed-entity lists of recent runs, so a symbol that
// failed three times across three different days stays skipped until it
// succeeds again.
type RetryPolicy struct {
	counts      map[string]int
	maxFailures int
}

// NewRetryPolicy creates a RetryPolicy.
// Parameters:
//   - maxFailures: consecutive failures after which an entity is permanently failed.
// Returns:
//   - *RetryPolicy: policy with no recorded failures.
func NewRetryPolicy(maxFailures int) *RetryPolicy {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &RetryPolicy{
		counts:      make(map[string]int),
		maxFailures: maxFailures,
	}
}

// Rehydrate rebuilds failure counts from historical runs. Runs must be
// ordered newest first; for each entity only the most recent verdict counts.
// A processed entity with no failure entry was handled cleanly (synced, up to
// date, or nothing published yet), so it clears any older count the same way
// a recorded success does.
// Parameters:
//   - runs: recent runs ordered newest first, any job type.
// Returns: none.
func (p *RetryPolicy) Rehydrate(runs []domain.SyncRun) {
	p.counts = make(map[string]int)
	seen := make(map[string]bool)
	for _, run := range runs {
		for symbol, count := range run.Checkpoint.EntitiesFailed {
			if !seen[symbol] {
				seen[symbol] = true
				p.counts[symbol] = count
			}
		}
		for _, symbol := range run.Checkpoint.EntitiesProcessed {
			if !seen[symbol] {
				seen[symbol] = true
			}
		}
	}
}

// RecordFailure increments an entity's failure count.
// Parameters:
//   - symbol: entity identifier.
// Returns:
//   - int: the new consecutive failure count.
func (p *RetryPolicy) RecordFailure(symbol string) int {
	p.counts[symbol]++
	return p.counts[symbol]
}

// RecordSuccess resets an entity's failure count to zero. Entities are
// self-healing: one success clears any history.
// Parameters:
//   - symbol: entity identifier.
// Returns: none.
func (p *RetryPolicy) RecordSuccess(symbol string) {
	delete(p.counts, symbol)
}

// Count returns an entity's current consecutive failure count.
func (p *RetryPolicy) Count(symbol string) int {
	return p.counts[symbol]
}

// PermanentlyFailed reports whether an entity has reached the failure
// threshold and must be skipped without any provider call.
func (p *RetryPolicy) PermanentlyFailed(symbol string) bool {
	return p.counts[symbol] >= p.maxFailures
}
