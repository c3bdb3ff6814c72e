package archive

import (
	"testing"
	"time"
)

// TestKeyFor verifies the prefix layout used to list a whole run's payloads.
func TestKeyFor(t *testing.T) {
	day := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	got := KeyFor("price_sync", day, "BHP", "yahoo")
	want := "price_sync/2025-06-02/BHP.yahoo.json"
	if got != want {
		t.Errorf("KeyFor = %q, want %q", got, want)
	}
}

// TestNormalizeEndpoint verifies protocol prefixes and paths are stripped.
func TestNormalizeEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
		want     string
	}{
		{name: "bare host", endpoint: "minio.local:9000", want: "minio.local:9000"},
		{name: "https prefix", endpoint: "https://minio.local:9000", want: "minio.local:9000"},
		{name: "trailing path", endpoint: "http://minio.local:9000/archive/", want: "minio.local:9000"},
		{name: "empty", endpoint: "", want: ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeEndpoint(tc.endpoint); got != tc.want {
				t.Errorf("normalizeEndpoint(%q) = %q, want %q", tc.endpoint, got, tc.want)
			}
		})
	}
}
