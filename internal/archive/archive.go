package archive

import (
	"context"
	"fmt"
	"time"
)

// Archiver persists raw provider payloads so a day's sync can be audited or
// replayed without re-hitting the upstream APIs.
type Archiver interface {
	// EnsureBucket creates the target bucket if it does not exist yet.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	// Returns:
	//   - error: non-nil if the bucket cannot be created or checked.
	EnsureBucket(ctx context.Context) error

	// Store writes one payload under the given key, overwriting any previous
	// version.
	// Parameters:
	//   - ctx: context for cancellation and deadlines.
	//   - key: object key, usually built with KeyFor.
	//   - payload: serialized payload bytes.
	//   - contentType: MIME type of the payload.
	// Returns:
	//   - error: non-nil if the write fails.
	Store(ctx context.Context, key string, payload []byte, contentType string) error

	// URL returns the location of an archived object for logging.
	// Parameters:
	//   - key: object key.
	// Returns:
	//   - string: object URL.
	URL(key string) string
}

// KeyFor builds the archive key for one entity's fetched payload. Keys are
// partitioned by job type and day so a whole run can be listed with a prefix.
// Parameters:
//   - jobType: job type identifier, e.g. "price_sync".
//   - day: run date.
//   - symbol: entity symbol.
//   - provider: provider that served the payload.
// Returns:
//   - string: object key, e.g. "price_sync/2025-06-02/BHP.yahoo.json".
func KeyFor(jobType string, day time.Time, symbol, provider string) string {
	return fmt.Sprintf("%s/%s/%s.%s.json", jobType, day.Format("2006-01-02"), symbol, provider)
}

// New creates an Archiver from configuration.
// Parameters:
//   - cfg: archive configuration including endpoint, credentials, and bucket.
// Returns:
//   - Archiver: initialized archive client.
//   - error: non-nil if the client cannot be created.
func New(cfg *Config) (Archiver, error) {
	return NewS3Archive(cfg)
}
