package yahoo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/provider"
	"github.com/go-resty/resty/v2"
)

const (
	// ProviderName identifies this provider in configuration and stored rows.
	ProviderName = "yahoo"

	// symbolSuffix maps plain ASX codes onto Yahoo's exchange-qualified form.
	symbolSuffix = ".AX"
)

// Adapter implements the Provider interface against the Yahoo Finance chart API.
type Adapter struct {
	client  *resty.Client
	baseURL string
	loc     *time.Location
}

// NewAdapter creates a Yahoo Finance adapter.
// Parameters:
//   - baseURL: API base URL; empty uses the public endpoint.
//   - timeout: per-request timeout.
//   - loc: exchange time zone used to date bars.
// Returns:
//   - *Adapter: initialized adapter.
func NewAdapter(baseURL string, timeout time.Duration, loc *time.Location) *Adapter {
	client := resty.New()
	client.SetTimeout(timeout)
	// Yahoo rejects requests without a browser-like user agent.
	client.SetHeader("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")
	client.SetHeader("Accept", "application/json")

	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	if loc == nil {
		loc = time.UTC
	}

	return &Adapter{
		client:  client,
		baseURL: baseURL,
		loc:     loc,
	}
}

// Name returns the provider identifier.
func (a *Adapter) Name() string {
	return ProviderName
}

// Chart API response structures
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Timestamps []int64 `json:"timestamp"`
	Indicators struct {
		Quote []quoteBlock `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

// quoteBlock carries parallel arrays; entries are null on halted days.
type quoteBlock struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
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
	url := fmt.Sprintf("%s/v8/finance/chart/%s", a.baseURL, symbol+symbolSuffix)

	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"period1":  strconv.FormatInt(a.periodStart(start), 10),
			"period2":  strconv.FormatInt(a.periodEnd(end), 10),
			"interval": "1d",
			"events":   "div,split",
		}).
		Get(url)
	if err != nil {
		return nil, &provider.ProviderError{Provider: ProviderName, Err: err}
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, &provider.RateLimitError{
			Provider:   ProviderName,
			RetryAfter: retryAfter(resp),
		}
	case resp.StatusCode() == http.StatusNotFound:
		return nil, &provider.NotFoundError{Provider: ProviderName, Symbol: symbol}
	case resp.StatusCode() < 200 || resp.StatusCode() >= 300:
		return nil, &provider.ProviderError{
			Provider:   ProviderName,
			StatusCode: resp.StatusCode(),
			Err:        fmt.Errorf("unexpected response: %s", truncate(resp.Body(), 200)),
		}
	}

	var payload chartResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, &provider.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("failed to decode chart response: %w", err),
		}
	}

	if payload.Chart.Error != nil {
		if payload.Chart.Error.Code == "Not Found" {
			return nil, &provider.NotFoundError{Provider: ProviderName, Symbol: symbol}
		}
		return nil, &provider.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("chart error %s: %s", payload.Chart.Error.Code, payload.Chart.Error.Description),
		}
	}
	if len(payload.Chart.Result) == 0 {
		return nil, &provider.ProviderError{
			Provider: ProviderName,
			Err:      fmt.Errorf("chart response has no result"),
		}
	}

	return a.decodeBars(symbol, payload.Chart.Result[0], start, end), nil
}

// decodeBars converts the chart result's parallel arrays into price points,
// skipping halted days (null quote entries) and bars outside the window.
func (a *Adapter) decodeBars(symbol string, result chartResult, start, end time.Time) []domain.PricePoint {
	points := []domain.PricePoint{}
	if len(result.Timestamps) == 0 {
		return points
	}

	var quote quoteBlock
	if len(result.Indicators.Quote) > 0 {
		quote = result.Indicators.Quote[0]
	}
	var adj []*float64
	if len(result.Indicators.AdjClose) > 0 {
		adj = result.Indicators.AdjClose[0].AdjClose
	}

	for i, ts := range result.Timestamps {
		open := floatAt(quote.Open, i)
		high := floatAt(quote.High, i)
		low := floatAt(quote.Low, i)
		closePrice := floatAt(quote.Close, i)
		if open == nil || high == nil || low == nil || closePrice == nil {
			continue
		}

		day := domain.Day(time.Unix(ts, 0).In(a.loc))
		if !start.IsZero() && day.Before(start) {
			continue
		}
		if !end.IsZero() && day.After(end) {
			continue
		}

		adjClose := *closePrice
		if v := floatAt(adj, i); v != nil {
			adjClose = *v
		}
		var volume int64
		if v := intAt(quote.Volume, i); v != nil {
			volume = *v
		}

		points = append(points, domain.PricePoint{
			Symbol:   symbol,
			Date:     day,
			Open:     *open,
			High:     *high,
			Low:      *low,
			Close:    *closePrice,
			AdjClose: adjClose,
			Volume:   volume,
			Source:   ProviderName,
		})
	}
	return points
}

// periodStart converts the window's start date to the exchange-local epoch
// second of that day's midnight.
func (a *Adapter) periodStart(start time.Time) int64 {
	if start.IsZero() {
		return 0
	}
	return time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, a.loc).Unix()
}

// periodEnd converts the window's end date to an exclusive upper bound: the
// exchange-local midnight of the following day.
func (a *Adapter) periodEnd(end time.Time) int64 {
	if end.IsZero() {
		end = time.Now().In(a.loc)
	}
	return time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, a.loc).AddDate(0, 0, 1).Unix()
}

func retryAfter(resp *resty.Response) time.Duration {
	header := resp.Header().Get("Retry-After")
	if header == "" {
		return 0
	}
	secs, err := strconv.Atoi(header)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func truncate(body []byte, limit int) string {
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}

func floatAt(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func intAt(values []*int64, i int) *int64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}
