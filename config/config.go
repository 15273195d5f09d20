package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all fielderd configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Outbox    OutboxConfig    `yaml:"outbox"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Listen string `yaml:"listen"`
}

// DatabaseConfig configures the PostgreSQL primary store.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// AnalyticsConfig configures the ClickHouse sink for change events.
type AnalyticsConfig struct {
	Enabled bool   `yaml:"enabled"`
	DSN     string `yaml:"dsn"`
}

// OutboxConfig configures the durable change-event queue and its relay.
type OutboxConfig struct {
	Workspace    string   `yaml:"workspace"`
	SendInterval Duration `yaml:"send_interval"`
	SendLimit    int      `yaml:"send_limit"`
}

// Duration decodes YAML strings like "250ms" or "2s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("bad duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Default is the configuration used when a field is absent from the file.
var Default = Config{
	HTTP: HTTPConfig{
		Listen: ":8080",
	},
	Database: DatabaseConfig{
		DSN: "postgres://localhost:5432/fielder?sslmode=disable",
	},
	Outbox: OutboxConfig{
		Workspace:    "/var/lib/fielder/outbox",
		SendInterval: Duration(time.Second),
		SendLimit:    500,
	},
	Logging: LoggingConfig{
		Level: "info",
	},
}

// Load reads the YAML config file and fills gaps from Default. An empty path
// returns Default unchanged.
func Load(path string) (Config, error) {
	cfg := Default
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	return withDefaults(cfg), nil
}

// Helper function to set default values
func withDefaults(cfg Config) Config {
	if cfg.HTTP.Listen == "" {
		cfg.HTTP.Listen = Default.HTTP.Listen
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = Default.Database.DSN
	}
	if cfg.Outbox.Workspace == "" {
		cfg.Outbox.Workspace = Default.Outbox.Workspace
	}
	if cfg.Outbox.SendInterval <= 0 {
		cfg.Outbox.SendInterval = Default.Outbox.SendInterval
	}
	if cfg.Outbox.SendLimit <= 0 {
		cfg.Outbox.SendLimit = Default.Outbox.SendLimit
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = Default.Logging.Level
	}
	return cfg
}
