// Package config holds the bot configuration: a json5 file overlaid with
// environment variables. Secrets may come from either; env wins.
package config

import (
	"time"

	"github.com/qzbx-cloud/avision/internal/gemini"
	"github.com/qzbx-cloud/avision/internal/pipeline"
)

// Config is the root configuration for the avision bot.
type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Gemini   GeminiConfig   `json:"gemini"`
	Pipeline PipelineConfig `json:"pipeline"`
	Database DatabaseConfig `json:"database,omitempty"`

	// StatePath is the SQLite file used in standalone mode.
	StatePath string `json:"state_path,omitempty"`
}

// TelegramConfig configures the bot transport.
type TelegramConfig struct {
	Token string `json:"token,omitempty"` // or env AVISION_TELEGRAM_TOKEN
	Proxy string `json:"proxy,omitempty"` // optional HTTP proxy URL

	// MediaMaxBytes caps file downloads (default 20MB, the Bot API limit).
	MediaMaxBytes int64 `json:"media_max_bytes,omitempty"`

	// SendRate limits outbound messages per second across all chats
	// (default 30, the Bot API global cap).
	SendRate float64 `json:"send_rate,omitempty"`
}

// GeminiConfig configures the describer.
type GeminiConfig struct {
	APIKey string `json:"api_key,omitempty"` // or env AVISION_GEMINI_API_KEY
	Model  string `json:"model,omitempty"`

	MaxAttempts    int    `json:"max_attempts,omitempty"`     // describe attempts (default 3)
	RetryBaseDelay string `json:"retry_base_delay,omitempty"` // linear backoff base (default "1s", Go duration)
}

// ToRetryConfig converts GeminiConfig to gemini.RetryConfig with defaults
// applied.
func (g GeminiConfig) ToRetryConfig() gemini.RetryConfig {
	cfg := gemini.DefaultRetryConfig()
	if g.MaxAttempts > 0 {
		cfg.MaxAttempts = g.MaxAttempts
	}
	if g.RetryBaseDelay != "" {
		if d, err := time.ParseDuration(g.RetryBaseDelay); err == nil && d > 0 {
			cfg.BaseDelay = d
		}
	}
	return cfg
}

// PipelineConfig tunes the aggregation and delivery core.
type PipelineConfig struct {
	Debounce    string `json:"debounce,omitempty"`     // media group quiet period (default "1.5s")
	ChunkLimit  int    `json:"chunk_limit,omitempty"`  // max characters per message (default 4096)
	ChunkPacing string `json:"chunk_pacing,omitempty"` // delay between chunk sends (default "500ms")
}

// DebounceDuration returns the parsed debounce window with the default
// applied.
func (p PipelineConfig) DebounceDuration() time.Duration {
	if p.Debounce != "" {
		if d, err := time.ParseDuration(p.Debounce); err == nil && d > 0 {
			return d
		}
	}
	return pipeline.DefaultDebounce
}

// PacingDuration returns the parsed chunk pacing delay with the default
// applied.
func (p PipelineConfig) PacingDuration() time.Duration {
	if p.ChunkPacing != "" {
		if d, err := time.ParseDuration(p.ChunkPacing); err == nil && d > 0 {
			return d
		}
	}
	return pipeline.DefaultChunkPacing
}

// DatabaseConfig selects the managed Postgres backend.
// PostgresDSN is NEVER read from the config file (secret) — only from env
// AVISION_POSTGRES_DSN.
type DatabaseConfig struct {
	PostgresDSN string `json:"-"`
}
