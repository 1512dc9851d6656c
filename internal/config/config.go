package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Name    string `yaml:"name" json:"name"`
		Version string `yaml:"version" json:"version"`
	} `yaml:"app" json:"app"`

	HTTP struct {
		Addr                string   `yaml:"addr" json:"addr"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds" json:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds" json:"write_timeout_seconds"`
		ShutdownSeconds     int      `yaml:"shutdown_seconds" json:"shutdown_seconds"`
		MaxBodyBytes        int64    `yaml:"max_body_bytes" json:"max_body_bytes"`
		AllowedOrigins      []string `yaml:"allowed_origins" json:"allowed_origins"`
	} `yaml:"http" json:"http"`

	Database struct {
		// Path is resolved against the data dir when relative.
		Path          string `yaml:"path" json:"path"`
		BusyTimeoutMs int    `yaml:"busy_timeout_ms" json:"busy_timeout_ms"`
	} `yaml:"database" json:"database"`

	RateLimit struct {
		RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
		Burst             int    `yaml:"burst" json:"burst"`
		RedisAddr         string `yaml:"redis_addr" json:"redis_addr"`
		RedisDB           int    `yaml:"redis_db" json:"redis_db"`
		KeyPrefix         string `yaml:"key_prefix" json:"key_prefix"`
		// TrustProxy keys clients by the first X-Forwarded-For hop. Enable only
		// behind a proxy that overwrites the header.
		TrustProxy bool `yaml:"trust_proxy" json:"trust_proxy"`
	} `yaml:"rate_limit" json:"rate_limit"`

	Events struct {
		NatsURL       string `yaml:"nats_url" json:"nats_url"`
		SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix"`
	} `yaml:"events" json:"events"`

	Tracing struct {
		CollectorURL string `yaml:"collector_url" json:"collector_url"`
	} `yaml:"tracing" json:"tracing"`

	Posting struct {
		Enabled        bool    `yaml:"enabled" json:"enabled"`
		TimeoutSeconds int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		MaxBytes       int64   `yaml:"max_bytes" json:"max_bytes"`
		ReqPerSecond   float64 `yaml:"req_per_second" json:"req_per_second"`
		Burst          int     `yaml:"burst" json:"burst"`
		// AllowPrivateHosts lets previews fetch loopback and private addresses.
		AllowPrivateHosts bool `yaml:"allow_private_hosts" json:"allow_private_hosts"`
	} `yaml:"posting" json:"posting"`

	Maintenance struct {
		CheckpointSeconds int `yaml:"checkpoint_seconds" json:"checkpoint_seconds"`
		StatsLogSeconds   int `yaml:"stats_log_seconds" json:"stats_log_seconds"`
	} `yaml:"maintenance" json:"maintenance"`

	Logging struct {
		Level       string `yaml:"level" json:"level"`
		Development bool   `yaml:"development" json:"development"`
	} `yaml:"logging" json:"logging"`
}

func Default() Config {
	var cfg Config
	cfg.App.Name = "jobtracker"
	cfg.App.Version = "1.0.0"

	cfg.HTTP.Addr = "127.0.0.1:8080"
	cfg.HTTP.ReadTimeoutSeconds = 15
	cfg.HTTP.WriteTimeoutSeconds = 30
	cfg.HTTP.ShutdownSeconds = 10
	cfg.HTTP.MaxBodyBytes = 1 << 20

	cfg.Database.Path = "jobtracker.db"
	cfg.Database.BusyTimeoutMs = 5000

	cfg.RateLimit.RequestsPerMinute = 120
	cfg.RateLimit.Burst = 20
	cfg.RateLimit.KeyPrefix = "jobtracker:ratelimit"

	cfg.Events.SubjectPrefix = "jobtracker.applications"

	cfg.Posting.Enabled = true
	cfg.Posting.TimeoutSeconds = 10
	cfg.Posting.MaxBytes = 1 << 20
	cfg.Posting.ReqPerSecond = 1
	cfg.Posting.Burst = 2

	cfg.Maintenance.CheckpointSeconds = 300
	cfg.Maintenance.StatsLogSeconds = 3600

	cfg.Logging.Level = "info"
	return cfg
}

// Load reads a YAML file over Default, so keys absent from the file keep
// their default values.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// ApplyEnv overlays JOBTRACKER_* environment variables.
func ApplyEnv(cfg Config) Config {
	cfg.HTTP.Addr = getEnvString("JOBTRACKER_HTTP_ADDR", cfg.HTTP.Addr)
	cfg.HTTP.ShutdownSeconds = int(getEnvDuration("JOBTRACKER_SHUTDOWN_TIMEOUT",
		time.Duration(cfg.HTTP.ShutdownSeconds)*time.Second) / time.Second)
	cfg.Logging.Level = getEnvString("JOBTRACKER_LOG_LEVEL", cfg.Logging.Level)
	cfg.RateLimit.RedisAddr = getEnvString("JOBTRACKER_REDIS_ADDR", cfg.RateLimit.RedisAddr)
	cfg.RateLimit.RedisDB = getEnvInt("JOBTRACKER_REDIS_DB", cfg.RateLimit.RedisDB)
	cfg.Events.NatsURL = getEnvString("JOBTRACKER_NATS_URL", cfg.Events.NatsURL)
	cfg.Tracing.CollectorURL = getEnvString("JOBTRACKER_OTEL_COLLECTOR", cfg.Tracing.CollectorURL)
	return cfg
}

// DataDir returns JOBTRACKER_DATA_DIR, or "." when unset.
func DataDir() string {
	return getEnvString("JOBTRACKER_DATA_DIR", ".")
}

func (c Config) DatabasePath(dataDir string) string {
	if filepath.IsAbs(c.Database.Path) {
		return c.Database.Path
	}
	return filepath.Join(dataDir, c.Database.Path)
}

func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.HTTP.ShutdownSeconds) * time.Second
}

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
