// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// Source describes where observed prices come from.
type Source struct {
	Provider       string `yaml:"provider"`
	Asset          string `yaml:"asset"`
	Quote          string `yaml:"quote"`
	BaseURL        string `yaml:"base_url"`
	StreamURL      string `yaml:"stream_url"`
	TimeoutMs      int    `yaml:"timeout_ms"`
	MaxStalenessMs int    `yaml:"max_staleness_ms"`
}

// Engine tunes the periodic trigger.
type Engine struct {
	IntervalMs int `yaml:"interval_ms"`
}

// Classifier selects the signal model.
type Classifier struct {
	Mode              string  `yaml:"mode"`
	ModelPath         string  `yaml:"model_path"`
	MomentumThreshold float64 `yaml:"momentum_threshold"`
}

// Paper captures paper-trading account settings.
type Paper struct {
	StartingCash float64 `yaml:"starting_cash"`
	JournalPath  string  `yaml:"journal_path"`
}

// API configures the on-demand query surface.
type API struct {
	Addr string `yaml:"addr"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App        App        `yaml:"app"`
	Source     Source     `yaml:"source"`
	Engine     Engine     `yaml:"engine"`
	Classifier Classifier `yaml:"classifier"`
	Paper      Paper      `yaml:"paper"`
	API        API        `yaml:"api"`
}

// Default returns the configuration used when a key is absent from the file.
func Default() Config {
	return Config{
		App:        App{Name: "signalbot", Env: "dev", LogLevel: "info", LogFormat: "json"},
		Source:     Source{Provider: "coingecko", Asset: "bitcoin", Quote: "usd", TimeoutMs: 10000, MaxStalenessMs: 30000},
		Engine:     Engine{IntervalMs: 10000},
		Classifier: Classifier{Mode: "forest", ModelPath: "models/btc_predictor.json", MomentumThreshold: 0.002},
		Paper:      Paper{StartingCash: 10000},
		API:        API{Addr: ":8000"},
	}
}

// Interval returns the periodic trigger cadence.
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Engine.IntervalMs) * time.Millisecond
}

// Load reads a YAML file from disk, fills defaults and applies environment overrides.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	_ = godotenv.Load() // best-effort
	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key    string
		target *string
	}{
		{"SIGNALBOT_LOG_LEVEL", &c.App.LogLevel},
		{"SIGNALBOT_SOURCE", &c.Source.Provider},
		{"SIGNALBOT_MODEL_PATH", &c.Classifier.ModelPath},
		{"SIGNALBOT_API_ADDR", &c.API.Addr},
	}
	for _, o := range overrides {
		if v := strings.TrimSpace(os.Getenv(o.key)); v != "" {
			*o.target = v
		}
	}
}

// Validate rejects settings the bot cannot run with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Source.Provider) {
	case "stub", "coingecko", "binance":
	default:
		return fmt.Errorf("unknown source provider %q", c.Source.Provider)
	}
	if c.Engine.IntervalMs <= 0 {
		return fmt.Errorf("engine.interval_ms must be positive, got %d", c.Engine.IntervalMs)
	}
	if c.Paper.StartingCash < 0 {
		return fmt.Errorf("paper.starting_cash must not be negative, got %.2f", c.Paper.StartingCash)
	}
	return nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
