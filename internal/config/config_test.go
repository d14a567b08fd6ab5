package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultListen, cfg.Listen)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, DefaultScreenshot, cfg.Diagnostics.Screenshot)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
upstream:
  base_url: https://studio.example/
  email: coach@example.com
browser:
  timezone: Europe/Madrid
timeouts:
  click: 5s
log_level: DEBUG
schedules:
  - name: friday-yoga
    cron: "0 6 * * 1"
    rrule: FREQ=WEEKLY;BYDAY=FR
    time: "08:00"
    capacity: 12
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "https://studio.example", cfg.Upstream.BaseURL)
	assert.Equal(t, DefaultLoginPath, cfg.Upstream.LoginPath)
	assert.True(t, cfg.Browser.Headless, "headless unless disabled")
	assert.Equal(t, "Europe/Madrid", cfg.Browser.Timezone)
	assert.Equal(t, 1280, cfg.Browser.Viewport.Width)
	assert.Equal(t, 5*time.Second, cfg.Timeouts.Click)
	assert.Equal(t, 30*time.Second, cfg.Timeouts.Navigation)
	assert.Equal(t, 10*time.Minute, cfg.Timeouts.Run)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 3, cfg.Click.MaxAttempts)
	assert.Equal(t, 24, cfg.Calendar.MaxPageSteps)
	require.Len(t, cfg.Schedules, 1)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=FR", cfg.Schedules[0].RRule)
	assert.Equal(t, 12, cfg.Schedules[0].Capacity)
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen: [unterminated"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Upstream.BaseURL = "https://studio.example"
	cfg.Timeouts.Modal = 7 * time.Second
	cfg.BasicAuth = &BasicAuthConfig{Username: "ops", Password: "pw"}
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SEATCAP_EMAIL":    "env@example.com",
		"SEATCAP_PASSWORD": "from-env",
		"PORT":             "9090",
	}
	cfg := DefaultConfig()
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "env@example.com", cfg.Upstream.Email)
	assert.Equal(t, "from-env", cfg.Upstream.Password)
	assert.Equal(t, ":9090", cfg.Listen)

	env["SEATCAP_LISTEN"] = "0.0.0.0:7000"
	cfg.ApplyEnv(func(k string) string { return env[k] })
	assert.Equal(t, "0.0.0.0:7000", cfg.Listen)
}

func TestCheck(t *testing.T) {
	cfg := DefaultConfig()
	err := cfg.Check()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
	assert.Contains(t, err.Error(), "credentials")

	cfg.Upstream = UpstreamConfig{BaseURL: "https://studio.example", Email: "a@b.c", Password: "x"}
	assert.NoError(t, cfg.Check())
}
