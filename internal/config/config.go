package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Sync      SyncConfig      `mapstructure:"sync"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	Path            string        `mapstructure:"path"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the connection string for the configured driver. An explicit
// database.url (or DATABASE_URL) takes precedence over the individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type SyncConfig struct {
	JobType                 string `mapstructure:"job_type"`
	BatchSize               int    `mapstructure:"batch_size"`
	MaxEntityFailures       int    `mapstructure:"max_entity_failures"`
	CheckpointFlushInterval int    `mapstructure:"checkpoint_flush_interval"`
	FailureLookbackRuns     int    `mapstructure:"failure_lookback_runs"`
	BackfillStart           string `mapstructure:"backfill_start"`
	Timezone                string `mapstructure:"timezone"`
}

type ProvidersConfig struct {
	Order                  []string       `mapstructure:"order"`
	BackoffFactor          float64        `mapstructure:"backoff_factor"`
	FailureStreakThreshold int            `mapstructure:"failure_streak_threshold"`
	Yahoo                  ProviderConfig `mapstructure:"yahoo"`
	EODHD                  ProviderConfig `mapstructure:"eodhd"`
}

type ProviderConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	BaseURL         string        `mapstructure:"base_url"`
	APIToken        string        `mapstructure:"api_token"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BaseDelay       time.Duration `mapstructure:"base_delay"`
	MaxBackoffDelay time.Duration `mapstructure:"max_backoff_delay"`
}

// Provider looks up the section for a configured provider name.
func (c *ProvidersConfig) Provider(name string) (ProviderConfig, bool) {
	switch name {
	case "yahoo":
		return c.Yahoo, true
	case "eodhd":
		return c.EODHD, true
	default:
		return ProviderConfig{}, false
	}
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

type CatalogConfig struct {
	Source  string   `mapstructure:"source"`
	Symbols []string `mapstructure:"symbols"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "shorted")
	v.SetDefault("database.name", "shorted")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.path", "./data/shorted.db")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("sync.job_type", "price_sync")
	v.SetDefault("sync.batch_size", 500)
	v.SetDefault("sync.max_entity_failures", 3)
	v.SetDefault("sync.checkpoint_flush_interval", 10)
	v.SetDefault("sync.failure_lookback_runs", 30)
	v.SetDefault("sync.backfill_start", "2015-01-01")
	v.SetDefault("sync.timezone", "Australia/Sydney")
	v.SetDefault("providers.order", []string{"yahoo", "eodhd"})
	v.SetDefault("providers.backoff_factor", 1.5)
	v.SetDefault("providers.failure_streak_threshold", 3)
	v.SetDefault("providers.yahoo.enabled", true)
	v.SetDefault("providers.yahoo.base_url", "https://query1.finance.yahoo.com")
	v.SetDefault("providers.yahoo.timeout", "20s")
	v.SetDefault("providers.yahoo.base_delay", "750ms")
	v.SetDefault("providers.yahoo.max_backoff_delay", "30s")
	v.SetDefault("providers.eodhd.enabled", true)
	v.SetDefault("providers.eodhd.base_url", "https://eodhd.com")
	v.SetDefault("providers.eodhd.timeout", "20s")
	v.SetDefault("providers.eodhd.base_delay", "1s")
	v.SetDefault("providers.eodhd.max_backoff_delay", "60s")
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.region", "ap-southeast-2")
	v.SetDefault("archive.bucket", "shorted-raw-prices")
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("catalog.source", "db")
	v.SetDefault("catalog.symbols", []string{})

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.url", "DATABASE_URL")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("providers.eodhd.api_token", "EODHD_API_TOKEN")
	v.BindEnv("archive.endpoint", "ARCHIVE_S3_ENDPOINT")
	v.BindEnv("archive.bucket", "ARCHIVE_S3_BUCKET")
	v.BindEnv("archive.access_key", "ARCHIVE_S3_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_S3_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
