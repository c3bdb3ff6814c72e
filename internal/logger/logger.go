package logger

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// timestampLayout keeps log timestamps millisecond-precise and sortable.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// rotator is the closable file sink, retained so Sync can flush it on exit.
var (
	rotator   io.Closer
	rotatorMu sync.Mutex
)

// Logger wraps a logrus.Entry so call sites get structured fields and
// context propagation without touching logrus directly.
type Logger struct {
	*logrus.Entry
}

// Config is the explicit logger configuration used by the sync binary.
type Config struct {
	Level       string    // debug, info, warn, error
	Format      string    // json or text
	Output      io.Writer // defaults to stdout
	ServiceName string    // tag attached to every line
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Level:       "info",
		Format:      "json",
		Output:      os.Stdout,
		ServiceName: "shorted",
	}
}

// New builds a Logger from an explicit configuration.
// Parameters:
//   - cfg: logger configuration; nil falls back to DefaultConfig.
// Returns:
//   - *Logger: ready logger tagged with the service name.
func New(cfg *Config) *Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	base := newBase(cfg.Level, cfg.Format)
	if cfg.Output != nil {
		base.SetOutput(cfg.Output)
	} else {
		base.SetOutput(os.Stdout)
	}

	return &Logger{Entry: base.WithField("service", cfg.ServiceName)}
}

// NewFromEnv builds a Logger from environment configuration, wiring rotated
// file output for non-local environments.
// Parameters:
//   - envCfg: environment configuration; nil loads it via LoadFromEnv.
// Returns:
//   - *Logger: ready logger tagged with the service name.
func NewFromEnv(envCfg *EnvConfig) *Logger {
	if envCfg == nil {
		envCfg = LoadFromEnv()
	}

	base := newBase(envCfg.Level, envCfg.Format)
	base.SetOutput(buildOutput(envCfg))

	return &Logger{Entry: base.WithField("service", envCfg.ServiceName)}
}

// NewDefault builds a Logger from environment variables alone. Intended for
// main():
//
//	logger.SetDefaultLogger(logger.NewDefault())
//	defer logger.Sync()
func NewDefault() *Logger {
	return NewFromEnv(nil)
}

// newBase assembles the logrus core shared by both constructors.
func newBase(level, format string) *logrus.Logger {
	log := logrus.New()

	lv, err := logrus.ParseLevel(level)
	if err != nil {
		lv = logrus.InfoLevel
	}
	log.SetLevel(lv)
	log.SetReportCaller(true)
	log.SetFormatter(newFormatter(format))

	return log
}

// newFormatter picks the output format. JSON is the default; its field map
// keeps key names stable for log pipelines.
func newFormatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampLayout,
			CallerPrettyfier: prettyCaller,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampLayout,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: prettyCaller,
	}
}

// buildOutput resolves the writer stack for env-driven loggers: stdout for
// local runs, a rotated file for deployments, both unless file-only is set.
func buildOutput(envCfg *EnvConfig) io.Writer {
	if envCfg.Output != nil {
		return envCfg.Output
	}

	var writers []io.Writer
	if envCfg.Environment == "local" || !envCfg.LogFileOnly {
		writers = append(writers, os.Stdout)
	}
	if envCfg.Environment != "local" && envCfg.LogFile != "" {
		sink := &lumberjack.Logger{
			Filename:   envCfg.LogFile,
			MaxSize:    envCfg.MaxSize,
			MaxBackups: envCfg.MaxBackups,
			MaxAge:     envCfg.MaxAge,
			Compress:   envCfg.Compress,
		}
		writers = append(writers, sink)

		rotatorMu.Lock()
		rotator = sink
		rotatorMu.Unlock()
	}

	switch len(writers) {
	case 0:
		return os.Stdout
	case 1:
		return writers[0]
	default:
		return io.MultiWriter(writers...)
	}
}

// Sync closes the rotated file sink, if any. Call before exit so the final
// lines reach disk.
func Sync() error {
	rotatorMu.Lock()
	defer rotatorMu.Unlock()

	if rotator != nil {
		return rotator.Close()
	}
	return nil
}

// WithFields returns a derived Logger carrying the extra fields.
// Parameters:
//   - fields: structured fields to attach.
// Returns:
//   - *Logger: derived logger; the receiver is unchanged.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a derived Logger carrying one extra field.
// Parameters:
//   - key: field key.
//   - value: field value.
// Returns:
//   - *Logger: derived logger; the receiver is unchanged.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a derived Logger carrying the error field.
// Parameters:
//   - err: error to attach.
// Returns:
//   - *Logger: derived logger; the receiver is unchanged.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// prettyCaller trims caller information to function name and file:line.
func prettyCaller(frame *runtime.Frame) (function string, file string) {
	fn := frame.Function
	if i := strings.LastIndex(fn, "/"); i != -1 {
		fn = fn[i+1:]
	}
	return fn, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}

// ============================================
// Package-level logging, default logger
// ============================================

// Debug logs through the default logger at Debug level.
func Debug(format string, args ...interface{}) {
	getDefaultLogger().Debugf(format, args...)
}

// Info logs through the default logger at Info level.
func Info(format string, args ...interface{}) {
	getDefaultLogger().Infof(format, args...)
}

// Warn logs through the default logger at Warn level.
func Warn(format string, args ...interface{}) {
	getDefaultLogger().Warnf(format, args...)
}

// Error logs through the default logger at Error level.
func Error(format string, args ...interface{}) {
	getDefaultLogger().Errorf(format, args...)
}

// Fatal logs through the default logger at Fatal level and exits.
func Fatal(format string, args ...interface{}) {
	getDefaultLogger().Fatalf(format, args...)
}

// ============================================
// Package-level logging, context logger
// ============================================

// CtxDebug logs at Debug level with the context's fields.
func CtxDebug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Debugf(format, args...)
}

// CtxInfo logs at Info level with the context's fields.
func CtxInfo(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Infof(format, args...)
}

// CtxWarn logs at Warn level with the context's fields.
func CtxWarn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Warnf(format, args...)
}

// CtxError logs at Error level with the context's fields.
func CtxError(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Errorf(format, args...)
}

// CtxFatal logs at Fatal level with the context's fields and exits.
func CtxFatal(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).Fatalf(format, args...)
}
