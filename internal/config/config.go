package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/shopspring/decimal"
)

type Config struct {
	Port            string   `env:"PORT" envDefault:"8080"`
	Environment     string   `env:"ENVIRONMENT" envDefault:"dev"`
	SupabaseURL     string   `env:"SUPABASE_URL"`
	SupabaseKey     string   `env:"SUPABASE_KEY"`
	SupabaseDBURL   string   `env:"SUPABASE_DB_URL"`
	SupabaseJWKSURL string   `env:"SUPABASE_JWKS_URL"` // Derived from SupabaseURL when empty
	CORSOrigins     []string `env:"CORS_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
	RunMigrations   bool     `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Optional file sink next to stdout
	LogDir      string `env:"LOG_DIR"`
	LogMaxFiles int    `env:"LOG_MAX_FILES" envDefault:"10"`

	XAI XAIConfig `envPrefix:"XAI_"`

	// Attachment ceilings, enforced before any upstream call
	ImageMaxCount int   `env:"IMG_MAX_COUNT" envDefault:"4"`
	ImageMaxBytes int64 `env:"IMG_MAX_BYTES" envDefault:"4194304"`

	HistoryWindow   time.Duration `env:"HISTORY_WINDOW" envDefault:"12h"`
	DefaultLanguage string        `env:"DEFAULT_LANGUAGE" envDefault:"English"`

	// Formula documents in Supabase Storage
	ProfilingFormulaBucket string `env:"PROFILING_FORMULA_BUCKET" envDefault:"formulas"`
	ProfilingFormulaKey    string `env:"PROFILING_FORMULA_KEY" envDefault:"profiling.xlsx"`
	CDRsFormulaBucket      string `env:"CDRS_FORMULA_BUCKET" envDefault:"formulas"`
	CDRsFormulaKey         string `env:"CDRS_FORMULA_KEY"`

	AutosaveFolder       string        `env:"AUTOSAVE_FOLDER" envDefault:"CDRs Autosave"`
	SSEHeartbeatInterval time.Duration `env:"SSE_HEARTBEAT_INTERVAL" envDefault:"10s"`

	Usage UsageConfig `envPrefix:"USAGE_"`
}

// XAIConfig configures the upstream chat-completion client.
// Durations keep the millisecond env names used by the web app.
type XAIConfig struct {
	APIKey        string  `env:"API_KEY"`
	BaseURL       string  `env:"BASE_URL" envDefault:"https://api.x.ai/v1"`
	Model         string  `env:"MODEL" envDefault:"grok-3"`
	Retries       int     `env:"RETRIES" envDefault:"2"`
	BudgetMS      int     `env:"BUDGET_MS" envDefault:"55000"`
	TimeoutMS     int     `env:"TIMEOUT_MS" envDefault:"45000"`
	BackoffBaseMS int     `env:"BACKOFF_BASE_MS" envDefault:"500"`
	Temperature   float32 `env:"TEMPERATURE" envDefault:"0.7"`
	MaxTokens     int     `env:"MAX_TOKENS" envDefault:"4096"`
}

func (c XAIConfig) Budget() time.Duration         { return time.Duration(c.BudgetMS) * time.Millisecond }
func (c XAIConfig) AttemptTimeout() time.Duration { return time.Duration(c.TimeoutMS) * time.Millisecond }
func (c XAIConfig) BackoffBase() time.Duration    { return time.Duration(c.BackoffBaseMS) * time.Millisecond }

// UsageConfig holds the usage-increment target and per-mode credit costs.
type UsageConfig struct {
	IncrementURL  string          `env:"INCREMENT_URL"` // Defaults to this server's own endpoint
	NotifyTimeout time.Duration   `env:"NOTIFY_TIMEOUT" envDefault:"5s"`
	CostChat      decimal.Decimal `env:"COST_CHAT" envDefault:"1"`
	CostImage     decimal.Decimal `env:"COST_IMAGE" envDefault:"2"`
	CostCDRs      decimal.Decimal `env:"COST_CDRS" envDefault:"3"`
	CostProfiling decimal.Decimal `env:"COST_PROFILING" envDefault:"5"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Construct JWKS URL from Supabase URL
	if cfg.SupabaseJWKSURL == "" && cfg.SupabaseURL != "" {
		cfg.SupabaseJWKSURL = strings.TrimRight(cfg.SupabaseURL, "/") + "/auth/v1/.well-known/jwks.json"
	}

	if cfg.Usage.IncrementURL == "" {
		cfg.Usage.IncrementURL = fmt.Sprintf("http://localhost:%s/api/usage/increment", cfg.Port)
	}

	return cfg, nil
}

// IsProduction reports whether destructive tooling must be refused.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod"
}
