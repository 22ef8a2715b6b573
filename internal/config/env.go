package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom log forwarding configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// DBConfig holds index-database connectivity.
type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
}

// DSN returns a pgx-compatible connection string.
func (d DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s",
		d.Host, d.Port, d.Name, d.User, d.Password)
}

// GCSConfig holds object-archive settings.
type GCSConfig struct {
	BucketName      string
	CredentialsPath string
	UploadTimeout   time.Duration
}

// PortalConfig holds the county lookup host and request behavior.
type PortalConfig struct {
	BaseURL        string
	UserAgent      string
	RequestTimeout time.Duration
	RateLimitDelay time.Duration
}

// WorkerConfig defines scheduler behavior and limits.
type WorkerConfig struct {
	Concurrency        int
	StaleThreshold     time.Duration
	StaleSweepInterval time.Duration
	CheckpointEvery    int
	CheckpointDir      string
	DownloadDir        string
	// Resume picks up the stage cursor from the latest checkpoint.
	Resume bool
}

// OptimizerConfig defines PDF optimization behavior.
type OptimizerConfig struct {
	Enabled bool
	Timeout time.Duration
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	DB        DBConfig
	GCS       GCSConfig
	Portal    PortalConfig
	Worker    WorkerConfig
	Optimizer OptimizerConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/titleplant.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_titleplant",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	cfg.DB = DBConfig{
		Host:     getEnv("DB_HOST", "127.0.0.1"),
		Port:     parseInt(getEnv("DB_PORT", "5432"), 5432),
		Name:     getEnv("DB_NAME", "madison_county_index"),
		User:     getEnv("DB_USER", ""),
		Password: getEnv("DB_PASSWORD", ""),
	}

	cfg.GCS = GCSConfig{
		BucketName:      getEnv("GCS_BUCKET_NAME", "madison-county-title-plant"),
		CredentialsPath: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		UploadTimeout:   parseDuration(getEnv("GCS_UPLOAD_TIMEOUT", "60s"), 60*time.Second),
	}

	cfg.Portal = PortalConfig{
		BaseURL:        getEnv("PORTAL_BASE_URL", "https://tools.madison-co.net"),
		UserAgent:      getEnv("PORTAL_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"),
		RequestTimeout: parseDuration(getEnv("PORTAL_REQUEST_TIMEOUT", "30s"), 30*time.Second),
		RateLimitDelay: parseDuration(getEnv("PORTAL_RATE_LIMIT_DELAY", "500ms"), 500*time.Millisecond),
	}

	cfg.Worker = WorkerConfig{
		Concurrency:        parseInt(getEnv("WORKER_CONCURRENCY", "5"), 5),
		StaleThreshold:     parseDuration(getEnv("STALE_THRESHOLD", "30m"), 30*time.Minute),
		StaleSweepInterval: parseDuration(getEnv("STALE_SWEEP_INTERVAL", "10m"), 10*time.Minute),
		CheckpointEvery:    parseInt(getEnv("CHECKPOINT_EVERY", "100"), 100),
		CheckpointDir:      getEnv("CHECKPOINT_DIR", "checkpoints"),
		DownloadDir:        getEnv("DOWNLOAD_DIR", "temp_downloads"),
		Resume:             parseBool(getEnv("RESUME_FROM_CHECKPOINT", "true")),
	}

	cfg.Optimizer = OptimizerConfig{
		Enabled: parseBool(getEnv("PDF_OPTIMIZER_ENABLED", "true")),
		Timeout: parseDuration(getEnv("PDF_OPTIMIZER_TIMEOUT", "120s"), 120*time.Second),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
