package service

import (
	"os"
	"os/signal"
	"sync/atomic"

	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
)

// TerminationHandler converts shutdown signals into a cooperative stop flag.
// It never interrupts work in flight: the orchestrator polls Terminating
// between entities and finalizes the run at the next safe boundary.
type TerminationHandler struct {
	terminating atomic.Bool
	sigCh       chan os.Signal
}

// NewTerminationHandler creates a handler with the flag unset.
func NewTerminationHandler() *TerminationHandler {
	return &TerminationHandler{}
}

// Listen registers the given signals and sets the stop flag when the first
// one arrives. Safe to call once; the spawned goroutine exits after the
// first signal.
// Parameters:
//   - signals: OS signals to treat as termination requests (e.g. SIGTERM, SIGINT).
// Returns: none.
func (h *TerminationHandler) Listen(signals ...os.Signal) {
	h.sigCh = make(chan os.Signal, 1)
	signal.Notify(h.sigCh, signals...)
	go func() {
		sig, ok := <-h.sigCh
		if !ok {
			return
		}
		logger.Warn("received signal %s, requesting termination at next entity boundary", sig)
		h.terminating.Store(true)
	}()
}

// Trigger sets the stop flag without a signal, for programmatic shutdown.
func (h *TerminationHandler) Trigger() {
	h.terminating.Store(true)
}

// Terminating reports whether a stop has been requested.
func (h *TerminationHandler) Terminating() bool {
	return h.terminating.Load()
}

// Close unregisters the signal channel.
func (h *TerminationHandler) Close() {
	if h.sigCh != nil {
		signal.Stop(h.sigCh)
		close(h.sigCh)
	}
}
