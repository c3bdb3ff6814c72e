package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/provider"
)

func sydney(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Australia/Sydney")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	return loc
}

func day(value string) time.Time {
	d, _ := time.Parse("2006-01-02", value)
	return d
}

// TestFetchDailySeriesDecodesBars verifies path construction, null handling
// for halted days and adjusted close mapping.
func TestFetchDailySeriesDecodesBars(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if r.URL.Query().Get("interval") != "1d" {
			t.Errorf("interval = %q, want 1d", r.URL.Query().Get("interval"))
		}
		// 1748822400 = 2025-06-02 10:00 AEST, 1748908800 = 2025-06-03 10:00 AEST,
		// 1748995200 = 2025-06-04 10:00 AEST (halted: null quote entries).
		fmt.Fprint(w, `{
			"chart": {
				"result": [{
					"timestamp": [1748822400, 1748908800, 1748995200],
					"indicators": {
						"quote": [{
							"open":   [45.0, 45.6, null],
							"high":   [45.9, 46.2, null],
							"low":    [44.8, 45.1, null],
							"close":  [45.5, 45.9, null],
							"volume": [1200000, 980000, null]
						}],
						"adjclose": [{"adjclose": [44.9, 45.3, null]}]
					}
				}],
				"error": null
			}
		}`)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
	points, err := adapter.FetchDailySeries(context.Background(), "BHP", day("2025-06-02"), day("2025-06-04"))
	if err != nil {
		t.Fatalf("FetchDailySeries failed: %v", err)
	}

	if gotPath != "/v8/finance/chart/BHP.AX" {
		t.Errorf("path = %q, want /v8/finance/chart/BHP.AX", gotPath)
	}
	if len(points) != 2 {
		t.Fatalf("got %d points, want 2 (halted day must be skipped)", len(points))
	}
	first := points[0]
	if got := first.Date.Format("2006-01-02"); got != "2025-06-02" {
		t.Errorf("first bar date = %s, want 2025-06-02", got)
	}
	if first.Close != 45.5 {
		t.Errorf("close = %v, want 45.5", first.Close)
	}
	if first.AdjClose != 44.9 {
		t.Errorf("adj close = %v, want 44.9", first.AdjClose)
	}
	if first.Volume != 1200000 {
		t.Errorf("volume = %d, want 1200000", first.Volume)
	}
	if first.Source != ProviderName {
		t.Errorf("source = %q, want %q", first.Source, ProviderName)
	}
}

// TestFetchDailySeriesDatesBarsInExchangeTimezone verifies bars are dated by
// the Sydney wall clock. During daylight saving, the exchange-morning epoch
// lands on the previous UTC day.
func TestFetchDailySeriesDatesBarsInExchangeTimezone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 1736114400 = 2025-01-06 09:00 AEDT = 2025-01-05 22:00 UTC.
		fmt.Fprint(w, `{
			"chart": {
				"result": [{
					"timestamp": [1736114400],
					"indicators": {
						"quote": [{
							"open": [40.0], "high": [40.5], "low": [39.8],
							"close": [40.2], "volume": [500000]
						}],
						"adjclose": [{"adjclose": [40.2]}]
					}
				}],
				"error": null
			}
		}`)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
	points, err := adapter.FetchDailySeries(context.Background(), "BHP", day("2025-01-06"), day("2025-01-06"))
	if err != nil {
		t.Fatalf("FetchDailySeries failed: %v", err)
	}
	if len(points) != 1 {
		t.Fatalf("got %d points, want 1", len(points))
	}
	if got := points[0].Date.Format("2006-01-02"); got != "2025-01-06" {
		t.Errorf("bar date = %s, want 2025-01-06 (Sydney day, not UTC day)", got)
	}
}

// TestFetchDailySeriesEmptyWindow verifies a result with no timestamps is a
// success with an empty series.
func TestFetchDailySeriesEmptyWindow(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chart":{"result":[{"timestamp":[],"indicators":{"quote":[{}]}}],"error":null}}`)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
	points, err := adapter.FetchDailySeries(context.Background(), "BHP", day("2025-06-02"), day("2025-06-02"))
	if err != nil {
		t.Fatalf("FetchDailySeries failed: %v", err)
	}
	if len(points) != 0 {
		t.Errorf("got %d points, want 0", len(points))
	}
}

// TestFetchDailySeriesRateLimited verifies 429 maps to RateLimitError with
// the Retry-After hint.
func TestFetchDailySeriesRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
	_, err := adapter.FetchDailySeries(context.Background(), "BHP", day("2025-06-02"), day("2025-06-02"))

	var rateLimited *provider.RateLimitError
	if !errors.As(err, &rateLimited) {
		t.Fatalf("err = %v, want RateLimitError", err)
	}
	if rateLimited.RetryAfter != 30*time.Second {
		t.Errorf("retry after = %s, want 30s", rateLimited.RetryAfter)
	}
}

// TestFetchDailySeriesNotFound verifies both the HTTP 404 and the in-body
// chart error map to NotFoundError.
func TestFetchDailySeriesNotFound(t *testing.T) {
	testCases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			},
		},
		{
			name: "chart error body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`)
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(tc.handler)
			defer server.Close()

			adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
			_, err := adapter.FetchDailySeries(context.Background(), "XYZ", day("2025-06-02"), day("2025-06-02"))

			var notFound *provider.NotFoundError
			if !errors.As(err, &notFound) {
				t.Fatalf("err = %v, want NotFoundError", err)
			}
			if notFound.Symbol != "XYZ" {
				t.Errorf("symbol = %q, want XYZ", notFound.Symbol)
			}
		})
	}
}

// TestFetchDailySeriesServerError verifies 5xx maps to ProviderError with the
// status code attached.
func TestFetchDailySeriesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	adapter := NewAdapter(server.URL, 5*time.Second, sydney(t))
	_, err := adapter.FetchDailySeries(context.Background(), "BHP", day("2025-06-02"), day("2025-06-02"))

	var upstream *provider.ProviderError
	if !errors.As(err, &upstream) {
		t.Fatalf("err = %v, want ProviderError", err)
	}
	if upstream.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", upstream.StatusCode)
	}
}
