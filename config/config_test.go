package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default, cfg)
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fielder.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
http:
  listen: ":9090"
analytics:
  enabled: true
  dsn: "tcp://localhost:9000?database=audit"
outbox:
  send_interval: 250ms
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTP.Listen)
	assert.True(t, cfg.Analytics.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Outbox.SendInterval.Std())

	// Gaps fall back to defaults.
	assert.Equal(t, Default.Database.DSN, cfg.Database.DSN)
	assert.Equal(t, Default.Outbox.SendLimit, cfg.Outbox.SendLimit)
}

func TestLoadBadFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "broken.yml")
	require.NoError(t, os.WriteFile(path, []byte("http: ["), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
