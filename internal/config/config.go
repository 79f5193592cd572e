package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	UI      UIConfig      `mapstructure:"ui"`
}

type ServerConfig struct {
	Port string `mapstructure:"port"`
}

type StorageConfig struct {
	Backend string `mapstructure:"backend"` // "file" or "pebble"
	Path    string `mapstructure:"path"`
}

type WebhookConfig struct {
	Timeout    time.Duration `mapstructure:"timeout"`
	DefaultURL string        `mapstructure:"default_url"`
}

type UIConfig struct {
	ClearAfterSend bool   `mapstructure:"clear_after_send"`
	GoogleClientID string `mapstructure:"google_client_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "data/chatcard.json")
	v.SetDefault("webhook.timeout", "30s")
	v.SetDefault("webhook.default_url", "")
	v.SetDefault("ui.clear_after_send", false)
	v.SetDefault("ui.google_client_id", "")
}

// LoadConfig reads path if it exists, then applies CHATCARD_* environment
// overrides (e.g. CHATCARD_STORAGE_BACKEND). A .env file in the working
// directory is loaded into the environment first.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CHATCARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	switch cfg.Storage.Backend {
	case "file", "pebble":
	default:
		return nil, fmt.Errorf("storage.backend must be \"file\" or \"pebble\", got %q", cfg.Storage.Backend)
	}
	if cfg.Webhook.Timeout <= 0 {
		return nil, fmt.Errorf("webhook.timeout must be positive, got %s", cfg.Webhook.Timeout)
	}
	return &cfg, nil
}
