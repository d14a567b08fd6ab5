package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML-based
// load/save behavior, including first-run config creation and 0600
// permissions. Credentials may be left empty in the file and supplied
// through the environment instead (see ApplyEnv).

// BasicAuthConfig holds HTTP Basic Auth credentials for the trigger API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// UpstreamConfig locates the studio management application and the
// account the automation signs in with.
type UpstreamConfig struct {
	BaseURL   string `yaml:"base_url" json:"base_url"`
	LoginPath string `yaml:"login_path" json:"login_path"`
	Email     string `yaml:"email" json:"-"`
	Password  string `yaml:"password" json:"-"`
}

// ViewportConfig is the emulated browser window size.
type ViewportConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// BrowserConfig controls the Chromium instance.
type BrowserConfig struct {
	Headless bool `yaml:"headless" json:"headless"`
	// ExecPath overrides Chromium discovery.
	ExecPath string `yaml:"exec_path" json:"exec_path"`
	// RemoteURL attaches to an already running browser
	// (ws://host:9222/devtools/browser/...) instead of launching one.
	RemoteURL string `yaml:"remote_url" json:"remote_url"`
	UserAgent string `yaml:"user_agent" json:"user_agent"`
	// Timezone is the IANA zone the page is emulated in. The upstream
	// calendar renders times in the browser's zone.
	Timezone string         `yaml:"timezone" json:"timezone"`
	Viewport ViewportConfig `yaml:"viewport" json:"viewport"`
}

// TimeoutsConfig bounds every wait the workflow performs.
type TimeoutsConfig struct {
	Default     time.Duration `yaml:"default" json:"default"`
	Click       time.Duration `yaml:"click" json:"click"`
	Navigation  time.Duration `yaml:"navigation" json:"navigation"`
	Modal       time.Duration `yaml:"modal" json:"modal"`
	EditSurface time.Duration `yaml:"edit_surface" json:"edit_surface"`
	Overlay     time.Duration `yaml:"overlay" json:"overlay"`
	Settle      time.Duration `yaml:"settle" json:"settle"`

	// Run caps a whole run, browser start to confirmation.
	Run time.Duration `yaml:"run" json:"run"`
}

type ClickConfig struct {
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts"`
}

type CalendarConfig struct {
	// MaxPageSteps bounds paging in each direction.
	MaxPageSteps int `yaml:"max_page_steps" json:"max_page_steps"`
}

// DefaultsConfig supplies trigger fields a request leaves out.
type DefaultsConfig struct {
	Date       string `yaml:"date" json:"date"`
	Time       string `yaml:"time" json:"time"`
	Name       string `yaml:"name" json:"name"`
	Capacity   int    `yaml:"capacity" json:"capacity"`
	StrictName bool   `yaml:"strict_name" json:"strict_name"`
}

type DiagnosticsConfig struct {
	// Screenshot is where the last failed run's page capture is written.
	Screenshot string `yaml:"screenshot" json:"screenshot"`
}

// ScheduleConfig is one recurring capacity change.
type ScheduleConfig struct {
	Name string `yaml:"name" json:"name"`
	// Cron is a five-field cron expression for when the run fires.
	Cron string `yaml:"cron" json:"cron"`
	// RRule, if set, picks the class date as the first occurrence on or
	// after the firing day (e.g. "FREQ=WEEKLY;BYDAY=FR").
	RRule string `yaml:"rrule,omitempty" json:"rrule,omitempty"`
	// OffsetDays is used when RRule is empty: the class date is the
	// firing day plus OffsetDays.
	OffsetDays int    `yaml:"offset_days" json:"offset_days"`
	Time       string `yaml:"time" json:"time"`
	ClassName  string `yaml:"class_name" json:"class_name"`
	Capacity   int    `yaml:"capacity" json:"capacity"`
	StrictName bool   `yaml:"strict_name" json:"strict_name"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the trigger API.
	Listen string `yaml:"listen" json:"listen"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Upstream    UpstreamConfig    `yaml:"upstream" json:"upstream"`
	Browser     BrowserConfig     `yaml:"browser" json:"browser"`
	Timeouts    TimeoutsConfig    `yaml:"timeouts" json:"timeouts"`
	Click       ClickConfig       `yaml:"click" json:"click"`
	Calendar    CalendarConfig    `yaml:"calendar" json:"calendar"`
	Defaults    DefaultsConfig    `yaml:"defaults" json:"defaults"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics" json:"diagnostics"`

	Schedules []ScheduleConfig `yaml:"schedules" json:"schedules"`
}

// Default values used by DefaultConfig and Normalize.
const (
	DefaultListen     = "127.0.0.1:8080"
	DefaultLoginPath  = "/sessions/new"
	DefaultTimezone   = "America/Mexico_City"
	DefaultScreenshot = "/tmp/last-failed.png"
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{
		Browser:   BrowserConfig{Headless: true},
		Schedules: []ScheduleConfig{},
	}
	c.Normalize()
	return c
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = "info"
	}

	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.LoginPath == "" {
		c.Upstream.LoginPath = DefaultLoginPath
	}
	if !strings.HasPrefix(c.Upstream.LoginPath, "/") {
		c.Upstream.LoginPath = "/" + c.Upstream.LoginPath
	}

	if c.Browser.Timezone == "" {
		c.Browser.Timezone = DefaultTimezone
	}
	if c.Browser.Viewport.Width <= 0 {
		c.Browser.Viewport.Width = 1280
	}
	if c.Browser.Viewport.Height <= 0 {
		c.Browser.Viewport.Height = 900
	}

	t := &c.Timeouts
	setDuration(&t.Default, 10*time.Second)
	setDuration(&t.Click, 20*time.Second)
	setDuration(&t.Navigation, 30*time.Second)
	setDuration(&t.Modal, 20*time.Second)
	setDuration(&t.EditSurface, 20*time.Second)
	setDuration(&t.Overlay, 15*time.Second)
	setDuration(&t.Settle, 15*time.Second)
	setDuration(&t.Run, 10*time.Minute)

	if c.Click.MaxAttempts <= 0 {
		c.Click.MaxAttempts = 3
	}
	if c.Calendar.MaxPageSteps <= 0 {
		c.Calendar.MaxPageSteps = 24
	}
	if c.Diagnostics.Screenshot == "" {
		c.Diagnostics.Screenshot = DefaultScreenshot
	}
	if c.Schedules == nil {
		c.Schedules = []ScheduleConfig{}
	}
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d <= 0 {
		*d = def
	}
}

// ApplyEnv overrides credentials and the listen address from the
// environment: SEATCAP_EMAIL, SEATCAP_PASSWORD, SEATCAP_LISTEN, and PORT
// (":PORT") when SEATCAP_LISTEN is unset.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv("SEATCAP_EMAIL"); v != "" {
		c.Upstream.Email = v
	}
	if v := getenv("SEATCAP_PASSWORD"); v != "" {
		c.Upstream.Password = v
	}
	if v := getenv("SEATCAP_LISTEN"); v != "" {
		c.Listen = v
	} else if v := getenv("PORT"); v != "" {
		c.Listen = ":" + v
	}
}

// Check reports settings a run cannot do without.
func (c *Config) Check() error {
	var errs []error
	if c.Upstream.BaseURL == "" {
		errs = append(errs, errors.New("upstream.base_url is required"))
	}
	if c.Upstream.Email == "" || c.Upstream.Password == "" {
		errs = append(errs, errors.New("upstream credentials are required (upstream.email/password or SEATCAP_EMAIL/SEATCAP_PASSWORD)"))
	}
	return errors.Join(errs...)
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML and unmarshal into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := Config{Browser: BrowserConfig{Headless: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".seatcap-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// The file holds upstream credentials.
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
