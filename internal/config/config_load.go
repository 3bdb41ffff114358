package config

import (
	"fmt"
	"os"

	"github.com/titanous/json5"

	"github.com/qzbx-cloud/avision/internal/gemini"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Telegram: TelegramConfig{
			MediaMaxBytes: 20 * 1024 * 1024,
			SendRate:      30,
		},
		Gemini: GeminiConfig{
			Model:          gemini.DefaultModel,
			MaxAttempts:    3,
			RetryBaseDelay: "1s",
		},
		Pipeline: PipelineConfig{
			Debounce:    "1.5s",
			ChunkLimit:  4096,
			ChunkPacing: "500ms",
		},
		StatePath: "~/.avision/avision.db",
	}
}

// Load reads config from a json5 file, then overlays env vars. A missing
// file is not an error; env vars alone are a valid configuration.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json5.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// applyEnvOverrides overlays env vars onto the config. Env vars take
// precedence over file values.
func (c *Config) applyEnvOverrides() {
	envStr := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	envStr("AVISION_TELEGRAM_TOKEN", &c.Telegram.Token)
	envStr("AVISION_GEMINI_API_KEY", &c.Gemini.APIKey)
	envStr("AVISION_GEMINI_MODEL", &c.Gemini.Model)
	envStr("AVISION_POSTGRES_DSN", &c.Database.PostgresDSN)
	envStr("AVISION_STATE_PATH", &c.StatePath)
}

// Validate checks that the required secrets are present.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("no Telegram bot token: set telegram.token or AVISION_TELEGRAM_TOKEN")
	}
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("no Gemini API key: set gemini.api_key or AVISION_GEMINI_API_KEY")
	}
	return nil
}

// ExpandHome replaces leading ~ with the user home directory.
func ExpandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, _ := os.UserHomeDir()
	if len(path) > 1 && path[1] == '/' {
		return home + path[1:]
	}
	return home
}
