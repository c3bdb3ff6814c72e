package logger

import (
	"io"
	"os"
	"strconv"
)

// EnvConfig is the logger configuration read from the process environment,
// so deployments tune logging without shipping a config file.
type EnvConfig struct {
	Level       string
	Format      string
	Output      io.Writer // overrides everything else when set
	ServiceName string

	// Environment selects the output wiring: "local" logs to stdout only,
	// anything else adds the rotated file sink.
	Environment string

	LogFile     string
	LogFileOnly bool

	MaxSize    int // megabytes before rotation
	MaxBackups int // rotated files kept
	MaxAge     int // days a rotated file survives
	Compress   bool
}

// LoadFromEnv reads the LOG_* environment variables, applying defaults for
// anything unset.
// Parameters: none.
// Returns:
//   - *EnvConfig: resolved configuration.
func LoadFromEnv() *EnvConfig {
	return &EnvConfig{
		Level:       envString("LOG_LEVEL", "info"),
		Format:      envString("LOG_FORMAT", "json"),
		ServiceName: envString("SERVICE_NAME", "shorted"),
		Environment: envString("APP_ENV", "local"),

		LogFile:     envString("LOG_FILE", "/var/log/shorted/app.log"),
		LogFileOnly: envBool("LOG_FILE_ONLY", false),

		MaxSize:    envInt("LOG_MAX_SIZE", 100),
		MaxBackups: envInt("LOG_MAX_BACKUPS", 7),
		MaxAge:     envInt("LOG_MAX_AGE", 30),
		Compress:   envBool("LOG_COMPRESS", true),
	}
}

func envString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return b
}

func envInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return i
}
