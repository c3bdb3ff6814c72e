package provider

import (
	"context"
	"sync"
	"time"
)

// Pacer enforces a minimum delay between consecutive calls to one provider.
// Consecutive failures stretch the delay: every streakThreshold failures the
// delay is multiplied by factor, capped at maxDelay. A success resets the
// delay to baseDelay.
//
// The sync engine processes entities sequentially, but the pacer is safe for
// concurrent use so a status endpoint can read its state.
type Pacer struct {
	mu              sync.Mutex
	name            string
	baseDelay       time.Duration
	maxDelay        time.Duration
	factor          float64
	streakThreshold int

	currentDelay time.Duration
	streak       int
	lastCall     time.Time
}

// NewPacer creates a Pacer for one provider.
// Parameters:
//   - name: provider identifier, used for logging.
//   - baseDelay: minimum delay between calls when healthy.
//   - maxDelay: ceiling for the escalated delay.
//   - factor: multiplier applied per completed failure streak.
//   - streakThreshold: consecutive failures per escalation step.
// Returns:
//   - *Pacer: initialized pacer starting at baseDelay.
func NewPacer(name string, baseDelay, maxDelay time.Duration, factor float64, streakThreshold int) *Pacer {
	if factor < 1 {
		factor = 1
	}
	if streakThreshold < 1 {
		streakThreshold = 1
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Pacer{
		name:            name,
		baseDelay:       baseDelay,
		maxDelay:        maxDelay,
		factor:          factor,
		streakThreshold: streakThreshold,
		currentDelay:    baseDelay,
	}
}

// Wait blocks until the provider's next call slot. The first call is
// immediate; subsequent calls wait out the current delay measured from the
// previous call.
// Parameters:
//   - ctx: context for cancellation; a canceled context aborts the wait.
// Returns:
//   - error: ctx.Err() when the context is done before the slot opens.
func (p *Pacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if !p.lastCall.IsZero() {
		if elapsed := now.Sub(p.lastCall); elapsed < p.currentDelay {
			wait = p.currentDelay - elapsed
		}
	}
	// Claim the slot before sleeping so concurrent callers space out.
	p.lastCall = now.Add(wait)
	p.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// OnSuccess records a successful call, resetting the failure streak and the
// delay back to baseDelay.
func (p *Pacer) OnSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streak = 0
	p.currentDelay = p.baseDelay
}

// OnFailure records a failed call. Every streakThreshold consecutive failures
// the delay escalates by factor, up to maxDelay.
func (p *Pacer) OnFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.streak++
	if p.streak%p.streakThreshold != 0 {
		return
	}
	escalated := time.Duration(float64(p.currentDelay) * p.factor)
	if escalated > p.maxDelay {
		escalated = p.maxDelay
	}
	p.currentDelay = escalated
}

// Delay returns the current inter-call delay.
func (p *Pacer) Delay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentDelay
}

// Streak returns the current consecutive failure count.
func (p *Pacer) Streak() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streak
}

// Name returns the provider identifier this pacer guards.
func (p *Pacer) Name() string {
	return p.name
}
