package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type Config struct {
	DBHost string `envconfig:"DB_HOST" default:"postgres"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`
	DBUser string `envconfig:"DB_USER" default:"voicebrief"`
	DBPass string `envconfig:"DB_PASS" default:"password"`
	DBName string `envconfig:"DB_NAME" default:"voicebrief"`

	WeaviateHost   string `envconfig:"WEAVIATE_HOST" default:"localhost:8080"`
	WeaviateScheme string `envconfig:"WEAVIATE_SCHEME" default:"http"`

	NSQLookupd string `envconfig:"NSQ_LOOKUPD" default:"nsqlookupd:4161"`
	NSQDHost   string `envconfig:"NSQD_HOST" default:"nsqd:4150"`
	NSQDHTTP   string `envconfig:"NSQD_HTTP" default:"nsqd:4151"`

	GeminiAPIKey string `envconfig:"GEMINI_API_KEY"`

	// Ingestion gating. DryRun short-circuits every inbound request before it
	// reaches the pipeline; AllowNetwork must be set before any non-loopback
	// target is fetched or notified.
	DryRun       bool `envconfig:"DRY_RUN" default:"false"`
	AllowNetwork bool `envconfig:"ALLOW_NETWORK" default:"true"`

	// Notification (best-effort briefing email).
	NotifyEnabled bool   `envconfig:"NOTIFY_ENABLED" default:"true"`
	NotifyEmail   string `envconfig:"NOTIFY_EMAIL"`
	SMTPHost      string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort      int    `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser      string `envconfig:"SMTP_USER"`
	SMTPPass      string `envconfig:"SMTP_PASS"`
	SMTPFrom      string `envconfig:"SMTP_FROM" default:"voicebrief@localhost"`

	// Retry policies for pipeline stages (delays in milliseconds).
	StageMaxRetries    int `envconfig:"STAGE_MAX_RETRIES" default:"2"`
	StageRetryBaseMS   int `envconfig:"STAGE_RETRY_BASE_MS" default:"500"`
	StageRetryFactor   int `envconfig:"STAGE_RETRY_FACTOR" default:"2"`
	AnalyzeMaxRetries  int `envconfig:"ANALYZE_MAX_RETRIES" default:"3"`
	AnalyzeRetryBaseMS int `envconfig:"ANALYZE_RETRY_BASE_MS" default:"1000"`

	// Server
	ServerPort      int    `envconfig:"SERVER_PORT" default:"8081"`
	MaxUploadSizeMB int64  `envconfig:"MAX_UPLOAD_SIZE_MB" default:"50"`
	UploadDir       string `envconfig:"VOICEBRIEF_UPLOAD_DIR" default:"./uploads"`
	MigrationPath   string `envconfig:"MIGRATION_PATH" default:"file://migrations"`

	// Resilience
	BootstrapRetryAttempts     int `envconfig:"BOOTSTRAP_RETRY_ATTEMPTS" default:"10"`
	BootstrapRetryDelaySeconds int `envconfig:"BOOTSTRAP_RETRY_DELAY_SECONDS" default:"2"`
}

func Load() (*Config, error) {
	// Try loading .env from current dir and repo root
	// Ignore errors, as env vars might be set in the shell
	_ = godotenv.Load(".env")

	cwd, _ := os.Getwd()
	rootEnv := filepath.Join(cwd, "../../.env")
	_ = godotenv.Load(rootEnv)

	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.DBHost == "" {
		return fmt.Errorf("%w: DB_HOST", ErrMissingRequired)
	}
	if c.DBUser == "" {
		return fmt.Errorf("%w: DB_USER", ErrMissingRequired)
	}
	if c.DBName == "" {
		return fmt.Errorf("%w: DB_NAME", ErrMissingRequired)
	}
	if c.StageMaxRetries < 0 {
		return fmt.Errorf("%w: STAGE_MAX_RETRIES must not be negative", ErrMissingRequired)
	}
	return nil
}
