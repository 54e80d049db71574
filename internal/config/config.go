package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every convexport-specific environment variable, e.g.
// CONVEXPORT_OUTPUT_DIR.
const EnvPrefix = "CONVEXPORT_"

type Config struct {
	Input         string `koanf:"input"`
	OutputDir     string `koanf:"output_dir"`
	StatePath     string `koanf:"state_path"`
	Repair        bool   `koanf:"repair"`
	Port          int    `koanf:"port"`
	APIToken      string `koanf:"api_token"`
	DatabaseURL   string `koanf:"database_url"`
	NatsURL       string `koanf:"nats_url"`
	NatsToken     string `koanf:"nats_token"`
	SlackBotToken string `koanf:"slack_bot_token"`
	SlackChannel  string `koanf:"slack_channel"`
	LogLevel      string `koanf:"log_level"`
}

// serviceEnv are the unprefixed variables shared with the other services in
// a deployment.
var serviceEnv = map[string]string{
	"DATABASE_URL":    "database_url",
	"NATS_URL":        "nats_url",
	"NATS_TOKEN":      "nats_token",
	"SLACK_BOT_TOKEN": "slack_bot_token",
	"SLACK_CHANNEL":   "slack_channel",
	"LOG_LEVEL":       "log_level",
}

func defaults() map[string]any {
	return map[string]any{
		"input":      "conversations.json",
		"output_dir": "Conversations",
		"port":       8760,
		"log_level":  "info",
	}
}

// Load builds the configuration from defaults, then the TOML file at path
// (skipped when path is empty), then the shared service variables, then
// CONVEXPORT_* variables. Later sources win.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", func(s string) string {
		return serviceEnv[s]
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load service env: %w", err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
