package eodhd

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider"
	"github.com/go-resty/resty/v2"
)

const (
	// ProviderName identifies this provider in configuration and stored rows.
	ProviderName = "eodhd"

	// symbolSuffix maps plain ASX codes onto EODHD's exchange-qualified form.
	symbolSuffix = ".AU"

	dateLayout = "2006-01-02"
)

// Adapter implements the Provider interface against the EODHD end-of-day API.
type Adapter struct {
	client   *resty.Client
	baseURL  string
	apiToken string
}

// NewAdapter creates an EODHD adapter.
// Parameters:
//   - baseURL: API base URL; empty uses the public endpoint.
//   - apiToken: account API token sent with every request.
//   - timeout: per-request timeout.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(baseURL, apiToken string, timeout time.Duration) *Adapter {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeader("Accept", "application/json")

	if baseURL == "" {
		baseURL = "https://eodhd.com"
	}

	return &Adapter{
		client:   client,
		baseURL:  baseURL,
		apiToken: apiToken,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return ProviderName
}

// eodBar is one daily bar in the EODHD JSON response.
type eodBar struct {
	Date          string  `json:"date"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	Close         float64 `json:"close"`
	AdjustedClose float64 `json:"adjusted_close"`
	Volume        int64   `json:"volume"`
}

// FetchDailySeries fetches daily bars for an ASX symbol within [start, end].
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - symbol: plain ASX code, e.g. "BHP".
//   - start: inclusive window start date.
//   - end: inclusive window end date.
// Returns:
//   - []domain.PricePoint: decoded bars; empty when the window has no trading data yet.
//   - error: typed provider error on failure.
func (a *Adapter) FetchDailySeries(ctx context.Context, symbol string, start, end time.Time) ([]domain.PricePoint, error) {
	url := fmt.Sprintf("%s/api/eod/%s", a.baseURL, symbol+symbolSuffix)

	params := map[string]string{
		"api_token": a.apiToken,
		"fmt":       "json",
		"period":    "d",
	}
	if !start.IsZero() {
		params["from"] = start.Format(dateLayout)
	}
	if !end.IsZero() {
		params["to"] = end.Format(dateLayout)
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(url)
	if err != nil {
		return nil, &provider.ProviderError{Provider: ProviderName, Err: err}
	}

	switch {
	// 402 is EODHD's signal for an exhausted request quota.
	case resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() == http.StatusPaymentRequired:
		return nil, &provider.RateLimitError{Provider: ProviderName}
	case resp.StatusCode() == http.StatusNotFound:
		return nil, &provider.NotFoundError{Provider: ProviderName, Symbol: symbol}
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		return nil, &provider.ProviderError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected response: %s", truncate(resp.Body(), 200)),
		}
	}

	var bars []eodBar
	if err := json.Unmarshal(resp.Body(), &bars); err != nil {
		return nil, &provider.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("failed to decode eod response: %w", err),
		}
	}

	points := []domain.PricePoint{}
	for _, bar := range bars {
		day, err := time.Parse(dateLayout, bar.Date)
		if err != nil {
			return nil, &provider.ProviderError{
				Provider: ProviderName,
				Err:      fmt.Errorf("bad bar date %q: %w", bar.Date, err),
			}
		}
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}
		adjClose := bar.AdjustedClose
		if adjClose == 0 {
			adjClose = bar.Close
		}
		points = append(points, domain.PricePoint{
			Symbol:   symbol,
			Date:     day,
			Open:     bar.Open,
			High:     bar.High,
			Low:      bar.Low,
			Close:    bar.Close,
			AdjClose: adjClose,
			Volume:   bar.Volume,
			Source:   ProviderName,
		})
	}
	return points, nil
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
