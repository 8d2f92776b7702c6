package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// NOTE: YAML is the default format. A path ending in .toml is read and
// written as TOML instead; first-run creation works for both.

const (
	defaultListen        = "127.0.0.1:8080"
	defaultRefreshCron   = "*/15 * * * *"
	defaultRowsPerPage   = 10
	defaultFormat        = "pdf"
	defaultMaxPerEvent   = 5000
	defaultChromeTimeout = 60
	defaultFormMatchURL  = "https://uky.az1.qualtrics.com/jfe/form/*"
)

// BasicAuthConfig holds HTTP Basic Auth credentials for the web server.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// TimesheetConfig controls timesheet rendering.
type TimesheetConfig struct {
	// RowsPerPage is how many meetings fit on one timesheet page.
	RowsPerPage int `yaml:"rows_per_page" toml:"rows_per_page" json:"rows_per_page"`
	// Format is "pdf" (printed through headless Chromium) or "html".
	Format string `yaml:"format" toml:"format" json:"format"`
	// ChromeTimeoutSec bounds a single PDF print.
	ChromeTimeoutSec int `yaml:"chrome_timeout_sec" toml:"chrome_timeout_sec" json:"chrome_timeout_sec"`
	// Title is printed above every page.
	Title string `yaml:"title" toml:"title" json:"title"`
}

// FormFillerConfig controls the generated userscript.
type FormFillerConfig struct {
	// MatchURL is the userscript @match pattern of the report form.
	MatchURL string `yaml:"match_url" toml:"match_url" json:"match_url"`
	Author   string `yaml:"author" toml:"author" json:"author"`
	// Signature is a base64 PNG data URL drawn into the form's signature
	// canvas. Empty leaves the canvas alone.
	Signature string `yaml:"signature" toml:"signature" json:"signature"`
}

// ServeConfig controls the `serve` command.
type ServeConfig struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`
	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// for re-reading the calendar.
	RefreshCron string `yaml:"refresh" toml:"refresh" json:"refresh"`
	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all
	// endpoints except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Calendar is a path to an .ics export or an http(s) iCal URL.
	Calendar string `yaml:"calendar" toml:"calendar" json:"calendar"`
	// NamesFile is the optional tutor/students names file.
	NamesFile string `yaml:"names_file" toml:"names_file" json:"names_file"`
	// OutputDir receives generated CSV, ICS, timesheet and userscript files.
	OutputDir string `yaml:"output_dir" toml:"output_dir" json:"output_dir"`
	// CacheDir stores fetched remote calendars.
	CacheDir string `yaml:"cache_dir" toml:"cache_dir" json:"cache_dir"`
	// MaxOccurrencesPerEvent caps expansion of unbounded rules.
	MaxOccurrencesPerEvent int `yaml:"max_occurrences_per_event" toml:"max_occurrences_per_event" json:"max_occurrences_per_event"`
	// LogLevel is debug, info, warn or error.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	Timesheet  TimesheetConfig  `yaml:"timesheet" toml:"timesheet" json:"timesheet"`
	FormFiller FormFillerConfig `yaml:"form_filler" toml:"form_filler" json:"form_filler"`
	Serve      ServeConfig      `yaml:"serve" toml:"serve" json:"serve"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:              ".",
		CacheDir:               defaultCacheDir(),
		MaxOccurrencesPerEvent: defaultMaxPerEvent,
		LogLevel:               "info",
		Timesheet: TimesheetConfig{
			RowsPerPage:      defaultRowsPerPage,
			Format:           defaultFormat,
			ChromeTimeoutSec: defaultChromeTimeout,
			Title:            "Tutor Timesheet",
		},
		FormFiller: FormFillerConfig{
			MatchURL: defaultFormMatchURL,
		},
		Serve: ServeConfig{
			Listen:      defaultListen,
			RefreshCron: defaultRefreshCron,
		},
	}
}

// DefaultPath is where the config lives when --config is not given.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "tutorsheet.yaml"
	}
	return filepath.Join(dir, "tutorsheet", "config.yaml")
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tutorsheet", "ics-cache")
	}
	return filepath.Join(dir, "tutorsheet", "ics-cache")
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.CacheDir == "" {
		c.CacheDir = def.CacheDir
	}
	if c.MaxOccurrencesPerEvent <= 0 {
		c.MaxOccurrencesPerEvent = def.MaxOccurrencesPerEvent
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Timesheet.RowsPerPage <= 0 {
		c.Timesheet.RowsPerPage = def.Timesheet.RowsPerPage
	}
	switch strings.ToLower(c.Timesheet.Format) {
	case "pdf", "html":
		c.Timesheet.Format = strings.ToLower(c.Timesheet.Format)
	default:
		// Unknown value; PDF is what gets submitted.
		c.Timesheet.Format = def.Timesheet.Format
	}
	if c.Timesheet.ChromeTimeoutSec <= 0 {
		c.Timesheet.ChromeTimeoutSec = def.Timesheet.ChromeTimeoutSec
	}
	if c.Timesheet.Title == "" {
		c.Timesheet.Title = def.Timesheet.Title
	}
	if c.FormFiller.MatchURL == "" {
		c.FormFiller.MatchURL = def.FormFiller.MatchURL
	}
	if c.Serve.Listen == "" {
		c.Serve.Listen = def.Serve.Listen
	}
	if c.Serve.RefreshCron == "" {
		c.Serve.RefreshCron = def.Serve.RefreshCron
	}
}

// ChromeTimeout returns the PDF print timeout as a duration.
func (c *Config) ChromeTimeout() time.Duration {
	return time.Duration(c.Timesheet.ChromeTimeoutSec) * time.Second
}

// Load loads configuration from the given path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode YAML (or TOML for *.toml) into Config
//   - normalize defaults
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if isTOML(path) {
		err = toml.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600 (the file may hold the
//     basic auth password and a private calendar URL).
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tutorsheet-config-*.tmp")
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
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func encode(path string, cfg *Config) ([]byte, error) {
	if !isTOML(path) {
		return yaml.Marshal(cfg)
	}
	var sb strings.Builder
	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}
