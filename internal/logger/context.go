package logger

import (
	"context"
	"sync"
)

// contextKey is an unexported type so the logger entry cannot collide with
// other context values.
type contextKey struct{}

var loggerKey = contextKey{}

var (
	defaultLogger   *Logger
	defaultLoggerMu sync.RWMutex
)

func init() {
	defaultLogger = New(nil)
}

// ============================================
// Default logger
// ============================================

// GetDefault returns the process-wide default logger.
func GetDefault() *Logger {
	defaultLoggerMu.RLock()
	defer defaultLoggerMu.RUnlock()
	return defaultLogger
}

func getDefaultLogger() *Logger {
	return GetDefault()
}

// SetDefaultLogger replaces the default logger used when a context carries
// none. Call once from main before any goroutines start logging.
// Parameters:
//   - l: logger to install; nil is ignored.
// Returns: none.
func SetDefaultLogger(l *Logger) {
	if l != nil {
		defaultLoggerMu.Lock()
		defaultLogger = l
		defaultLoggerMu.Unlock()
	}
}

// ============================================
// Context carriage
// ============================================

// WithContext returns a context carrying this logger.
// Parameters:
//   - ctx: parent context.
// Returns:
//   - context.Context: child context carrying the logger.
func (l *Logger) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger carried by the context, or the default
// logger when the context carries none.
// Parameters:
//   - ctx: context to inspect; nil is tolerated.
// Returns:
//   - *Logger: never nil.
func FromContext(ctx context.Context) *Logger {
	if ctx != nil {
		if l, ok := ctx.Value(loggerKey).(*Logger); ok {
			return l
		}
	}
	return GetDefault()
}

// WithField returns a context whose logger carries one extra field. The
// parent context's logger is not modified.
func WithField(ctx context.Context, key string, value interface{}) context.Context {
	l := FromContext(ctx).WithField(key, value)
	return l.WithContext(ctx)
}

// WithFields returns a context whose logger carries the extra fields. The
// parent context's logger is not modified.
func WithFields(ctx context.Context, fields Fields) context.Context {
	l := FromContext(ctx).WithFields(fields)
	return l.WithContext(ctx)
}

// ============================================
// Tracing field setters
// ============================================

// SetRequestID stamps the API request ID on the context's logger.
func SetRequestID(ctx context.Context, id string) context.Context {
	return WithField(ctx, FieldRequestID, id)
}

// SetRunID stamps the sync run ID on the context's logger.
func SetRunID(ctx context.Context, id string) context.Context {
	return WithField(ctx, FieldRunID, id)
}

// SetJobType stamps the job type on the context's logger.
func SetJobType(ctx context.Context, jobType string) context.Context {
	return WithField(ctx, FieldJobType, jobType)
}

// SetProvider stamps the provider name on the context's logger.
func SetProvider(ctx context.Context, name string) context.Context {
	return WithField(ctx, FieldProvider, name)
}

// SetSymbol stamps the symbol under processing on the context's logger.
func SetSymbol(ctx context.Context, symbol string) context.Context {
	return WithField(ctx, FieldSymbol, symbol)
}

// SetComponent stamps the emitting component on the context's logger.
func SetComponent(ctx context.Context, name string) context.Context {
	return WithField(ctx, FieldComponent, name)
}

// FieldString reads a string field back from the context's logger. Missing
// or non-string fields come back empty.
func FieldString(ctx context.Context, key string) string {
	val, ok := FromContext(ctx).Data[key]
	if !ok {
		return ""
	}
	str, _ := val.(string)
	return str
}
