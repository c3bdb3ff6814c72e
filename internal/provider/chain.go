package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
)

// Chain tries providers in configured order until one returns a series.
//
// Classification of provider errors:
//   - NotFoundError: the symbol is not listed on that source; the next
//     provider is tried and the pacer is not penalized.
//   - RateLimitError and ProviderError: the pacer records a failure (which
//     may escalate its delay) and the next provider is tried.
//
// An empty series with a nil error is a success and stops the chain.
type Chain struct {
	providers []pacedProvider
}

type pacedProvider struct {
	provider Provider
	pacer    *Pacer
}

// NewChain creates an empty provider chain.
func NewChain() *Chain {
	return &Chain{}
}

// Add appends a provider with its pacer to the end of the chain.
// Parameters:
//   - p: provider implementation.
//   - pacer: pacer guarding calls to p.
// Returns:
//   - *Chain: the chain, for chaining Add calls.
func (c *Chain) Add(p Provider, pacer *Pacer) *Chain {
	c.providers = append(c.providers, pacedProvider{provider: p, pacer: pacer})
	return c
}

// Len returns the number of providers in the chain.
func (c *Chain) Len() int {
	return len(c.providers)
}

// Names returns provider names in chain order.
func (c *Chain) Names() []string {
	names := make([]string, 0, len(c.providers))
	for _, pp := range c.providers {
		names = append(names, pp.provider.Name())
	}
	return names
}

// Fetch fetches a symbol's daily series from the first provider that can
// serve it, honoring each provider's pacing before the call.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: exchange-local symbol code.
//   - start: inclusive window start date.
//   - end: inclusive window end date.
// Returns:
//   - []domain.PricePoint: fetched bars; may be empty when up to date.
//   - string: name of the provider that served the request.
//   - error: non-nil when every provider failed; wraps all provider errors.
func (c *Chain) Fetch(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, string, error) {
	if len(c.providers) == 0 {
		return nil, "", errors.New("provider chain is empty")
	}

	var failures []error
	for _, pp := range c.providers {
		if err := pp.pacer.Wait(ctx); err != nil {
			return nil, "", err
		}

		points, err := pp.provider.FetchDailySeries(ctx, symbol, start, end)
		if err == nil {
			pp.pacer.OnSuccess()
			return points, pp.provider.Name(), nil
		}

		// Cancellation is not a provider fault; surface it to the caller.
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}

		var notFound *NotFoundError
		if errors.As(err, &notFound) {
			logger.CtxDebug(ctx, "provider %s has no listing for %s, trying next", pp.provider.Name(), symbol)
			failures = append(failures, err)
			continue
		}

		pp.pacer.OnFailure()
		logger.CtxWarn(ctx, "provider %s failed for %s (streak %d, delay %s): %v",
			pp.provider.Name(), symbol, pp.pacer.Streak(), pp.pacer.Delay(), err)
		failures = append(failures, err)
	}

	return nil, "", fmt.Errorf("all providers failed for %s: %w", symbol, errors.Join(failures...))
}
