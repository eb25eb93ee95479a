package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "001", cfg.PLMN.MCC)
	assert.Equal(t, uint16(1), cfg.GUMMEI.MMEGroupID)
	assert.Equal(t, 6*time.Second, cfg.Timers.T3413.Duration())
	assert.Equal(t, 5, cfg.Timers.T3460.MaxCount)
	assert.Equal(t, []string{"EEA2", "EEA1", "EEA0"}, cfg.Security.EEAOrder)
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mme.yaml")
	yamlContent := `
plmn:
  mcc: "999"
  mnc: "70"
timers:
  t3413:
    duration_ms: 12000
    max_count: 2
s6a:
  url: "http://hss.example:9090"
  timeout: 5s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "999", cfg.PLMN.MCC)
	assert.Equal(t, "70", cfg.PLMN.MNC)
	assert.Equal(t, 12000, cfg.Timers.T3413.DurationMS)
	assert.Equal(t, 2, cfg.Timers.T3413.MaxCount)
	assert.Equal(t, "http://hss.example:9090", cfg.S6a.URL)
	assert.Equal(t, 5*time.Second, cfg.S6a.Timeout)

	// Fields absent from the override file keep their baked-in defaults.
	assert.Equal(t, 5, cfg.Timers.T3460.MaxCount)
	assert.Equal(t, "0.0.0.0:8080", cfg.Server.BindAddress)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("plmn: [this is not a mapping"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestTimerSpec_Duration(t *testing.T) {
	spec := TimerSpec{DurationMS: 1500}
	assert.Equal(t, 1500*time.Millisecond, spec.Duration())
}
