package logger

import "context"

// Entry accumulates metric fields for a single log line. Tracing fields live
// on the context logger; an Entry only carries the measurements attached at
// the emit site.
//
// Example:
//
//	logger.With(logger.Fields{logger.FieldCount: rows}).Info(ctx, "Series stored")
type Entry struct {
	fields Fields
}

// With opens an Entry carrying the given metric fields.
func With(fields Fields) *Entry {
	e := &Entry{fields: make(Fields, len(fields))}
	for k, v := range fields {
		e.fields[k] = v
	}
	return e
}

// With returns a copy of the Entry with extra fields merged in. Later keys
// win on collision.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

// WithField returns a copy of the Entry with one extra field.
func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

// WithDuration attaches elapsed wall time in milliseconds.
func (e *Entry) WithDuration(ms int64) *Entry {
	return e.WithField(FieldDurationMs, ms)
}

// WithCount attaches a record count.
func (e *Entry) WithCount(count int) *Entry {
	return e.WithField(FieldCount, count)
}

// Debug emits the entry at Debug level through the context's logger.
func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Debugf(format, args...)
}

// Info emits the entry at Info level through the context's logger.
func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Infof(format, args...)
}

// Warn emits the entry at Warn level through the context's logger.
func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Warnf(format, args...)
}

// Error emits the entry at Error level through the context's logger.
func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Errorf(format, args...)
}
