package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
)

// Provider fetches daily price series from one upstream market data source.
type Provider interface {
	// Name returns the stable identifier for this provider.
	// Parameters: none.
	// Returns:
	//   - string: provider identifier, e.g. "yahoo".
	Name() string

	// FetchDailySeries fetches daily bars for a symbol within [start, end].
	// An empty slice with a nil error means the provider knows the symbol but
	// has no bars in the window (e.g. today's close not yet published).
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - symbol: exchange-local symbol code, e.g. "BHP".
	//   - start: inclusive window start date.
	//   - end: inclusive window end date.
	// Returns:
	//   - []domain.PricePoint: bars ordered by date ascending.
	//   - error: RateLimitError, NotFoundError or ProviderError on failure.
	FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error)
}

// RateLimitError indicates the provider throttled the request.
type RateLimitError struct {
	Provider   string
	RetryAfter time.Duration
	Err        error
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited, retry after %s", e.Provider, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited", e.Provider)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// NotFoundError indicates the provider does not know the symbol. It is not
// counted against the provider's health: the symbol may simply not be listed
// on that source.
type NotFoundError struct {
	Provider string
	Symbol   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: symbol %s not found", e.Provider, e.Symbol)
}

// ProviderError indicates any other upstream failure: transport errors,
// server errors, or undecodable responses.
type ProviderError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: request failed with HTTP %d: %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
