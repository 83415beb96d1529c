package config

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

// Config is the top-level configuration structure.
type Config struct {
	Server   ServerConfig   `json:"server"`
	Redis    RedisConfig    `json:"redis"`
	Postgres PostgresConfig `json:"postgres"`
	Catalog  CatalogConfig  `json:"catalog"`
	Reward   RewardConfig   `json:"reward"`
	Notify   NotifyConfig   `json:"notify"`
}

type ServerConfig struct {
	Port     int    `json:"port"`
	LogLevel string `json:"log_level"`
	// StaticDir, when set and present on disk, is served at the root path.
	StaticDir string `json:"static_dir"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type PostgresConfig struct {
	DSN string `json:"dsn"`
}

type CatalogConfig struct {
	Cajeros []CajeroConfig `json:"cajeros"`
}

type CajeroConfig struct {
	Nombre string `json:"nombre"`
	Numero string `json:"numero"`
}

// RewardConfig selects the premio policy. Mode is "flat" or "tiered"; the
// grande pool is only consulted in tiered mode. Timezone fixes the calendar
// day boundary for the daily big premio so all replicas agree on "today".
type RewardConfig struct {
	Mode           string   `json:"mode"`
	Premios        []string `json:"premios"`
	PremiosGrandes []string `json:"premios_grandes"`
	Timezone       string   `json:"timezone"`
}

type NotifyConfig struct {
	Slack   SlackNotifyConfig   `json:"slack"`
	Discord DiscordNotifyConfig `json:"discord"`
}

type SlackNotifyConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"bot_token"`
	Channel  string `json:"channel"`
}

type DiscordNotifyConfig struct {
	Enabled   bool   `json:"enabled"`
	BotToken  string `json:"bot_token"`
	ChannelID string `json:"channel_id"`
}

// envVarRe matches ${VAR} and ${VAR:default} patterns.
var envVarRe = regexp.MustCompile(`\$\{(\w+)(?::([^}]*))?\}`)

// Load reads a JSON config file and substitutes environment variable references.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	// Substitute ${VAR} and ${VAR:default} with environment values.
	resolved := envVarRe.ReplaceAllStringFunc(string(data), func(match string) string {
		parts := envVarRe.FindStringSubmatch(match)
		name := parts[1]
		defaultVal := parts[2]
		if v := os.Getenv(name); v != "" {
			return v
		}
		return defaultVal
	})

	var cfg Config
	if err := json.Unmarshal([]byte(resolved), &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns the configuration used when no config file exists:
// in-memory storage, the stock cajeros and premios, flat rewards. Matches how
// the service behaves on a bare deploy with nothing but env vars set.
func Default() *Config {
	cfg := &Config{}
	cfg.Redis.URL = os.Getenv("REDIS_URL")
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = os.Getenv("KV_URL")
	}
	cfg.Postgres.DSN = os.Getenv("DATABASE_URL")
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	if c.Reward.Mode == "" {
		c.Reward.Mode = "flat"
	}
	if len(c.Reward.Premios) == 0 {
		c.Reward.Premios = defaultPremios()
	}
	if len(c.Catalog.Cajeros) == 0 {
		c.Catalog.Cajeros = defaultCajeros()
	}
}

func defaultCajeros() []CajeroConfig {
	return []CajeroConfig{
		{Nombre: "Joaki", Numero: "1123365501"},
		{Nombre: "Facu", Numero: "1125127839"},
	}
}

func defaultPremios() []string {
	return []string{
		"10% extra (en mi primera carga)",
		"15% extra (en mi primera carga)",
		"20% extra (en mi primera carga)",
		"30% extra (en mi segunda carga)",
		"100 fichas (sin carga, no retirables)",
		"500 fichas (sin carga, no retirables)",
		"300 fichas (sin carga, no retirables)",
	}
}
