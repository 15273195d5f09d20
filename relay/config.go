package relay

import (
	"os"
	"time"

	"fielder"
)

// Config defines the config for the relay.
type Config struct {
	Logger             Logger
	SendInterval       time.Duration
	SendLimit          int
	UseMemoryFallback  bool
	FileWorkspace      string
	Spill              fielder.Spill
	MaxPublishRetries  uint64
	RetryBackoff       time.Duration
	ShowSuccessfulInfo bool
}

// ConfigDefault is the default config
var ConfigDefault = Config{
	UseMemoryFallback:  true,
	FileWorkspace:      "/tmp",
	MaxPublishRetries:  3,
	RetryBackoff:       50 * time.Millisecond,
	ShowSuccessfulInfo: false,
}

// Helper function to set default values
func configDefault(config ...Config) Config {
	// Return default config if nothing provided
	if len(config) < 1 {
		return ConfigDefault
	}

	// Override default config
	cfg := config[0]

	if cfg.FileWorkspace == "" {
		cfg.FileWorkspace, _ = os.MkdirTemp("", "fielder")
	}

	if cfg.SendLimit == 0 {
		cfg.SendLimit = 1
	}

	if cfg.SendInterval < 100*time.Millisecond {
		cfg.SendInterval = 100 * time.Millisecond
	}

	if cfg.MaxPublishRetries == 0 {
		cfg.MaxPublishRetries = ConfigDefault.MaxPublishRetries
	}

	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = ConfigDefault.RetryBackoff
	}

	return cfg
}
