package config

import (
	"bytes"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// NOTE: This file provides the configuration model and full YAML/TOML-based
// load/save behavior, including first-run config creation and 0600
// permissions.

// CalendarConfig controls the generated ICS calendar header.
type CalendarConfig struct {
	// ProductID is written as PRODID.
	ProductID string `yaml:"product_id" toml:"product_id" json:"product_id"`
	// Name is written as X-WR-CALNAME.
	Name string `yaml:"name" toml:"name" json:"name"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the API.
type BasicAuthConfig struct {
	Username string `yaml:"username" toml:"username" json:"username"`
	Password string `yaml:"password" toml:"password" json:"password"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API.
	Listen string `yaml:"listen" toml:"listen" json:"listen"`

	// Timezone is the IANA timezone used when a request does not carry one
	// (e.g. "Asia/Shanghai").
	Timezone string `yaml:"timezone" toml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" toml:"log_level" json:"log_level"`

	// NaturalLanguage enables the natural-language date parser ahead of the
	// regex cascade. Pointer so an explicit false survives Normalize.
	NaturalLanguage *bool `yaml:"natural_language" toml:"natural_language" json:"natural_language"`

	// Languages restricts the natural-language parser's lexicons.
	Languages []string `yaml:"languages" toml:"languages" json:"languages"`

	// DefaultDurationMinutes is used when neither an end time nor an
	// explicit duration can be extracted.
	DefaultDurationMinutes int `yaml:"default_duration_minutes" toml:"default_duration_minutes" json:"default_duration_minutes"`

	// ReminderMinutes is the reminder offset attached to every event.
	ReminderMinutes int `yaml:"reminder_minutes" toml:"reminder_minutes" json:"reminder_minutes"`

	// MaxDescriptionLength caps event descriptions (in runes).
	MaxDescriptionLength int `yaml:"max_description_length" toml:"max_description_length" json:"max_description_length"`

	// MaxInputBytes bounds request bodies accepted by the API.
	MaxInputBytes int64 `yaml:"max_input_bytes" toml:"max_input_bytes" json:"max_input_bytes"`

	Calendar CalendarConfig `yaml:"calendar" toml:"calendar" json:"calendar"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" toml:"basic_auth,omitempty" json:"basic_auth,omitempty"`
}

const (
	defaultListen          = "127.0.0.1:8000"
	defaultTimezone        = "UTC"
	defaultLogLevel        = "info"
	defaultDurationMinutes = 60
	defaultReminderMinutes = 15
	defaultMaxDescription  = 500
	defaultMaxInputBytes   = 64 << 10
	defaultProductID       = "-//Easy ICS//Easy ICS v1.0//EN"
	defaultCalendarName    = "Easy ICS Calendar"
)

func defaultLanguages() []string {
	return []string{"en", "zh"}
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	nl := true
	return &Config{
		Listen:                 defaultListen,
		Timezone:               defaultTimezone,
		LogLevel:               defaultLogLevel,
		NaturalLanguage:        &nl,
		Languages:              defaultLanguages(),
		DefaultDurationMinutes: defaultDurationMinutes,
		ReminderMinutes:        defaultReminderMinutes,
		MaxDescriptionLength:   defaultMaxDescription,
		MaxInputBytes:          defaultMaxInputBytes,
		Calendar: CalendarConfig{
			ProductID: defaultProductID,
			Name:      defaultCalendarName,
		},
		BasicAuth: nil,
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.NaturalLanguage == nil {
		nl := true
		c.NaturalLanguage = &nl
	}
	if len(c.Languages) == 0 {
		c.Languages = defaultLanguages()
	}
	if c.DefaultDurationMinutes <= 0 {
		c.DefaultDurationMinutes = defaultDurationMinutes
	}
	// Zero reminder is a valid "no alarm"; only negatives are reset.
	if c.ReminderMinutes < 0 {
		c.ReminderMinutes = defaultReminderMinutes
	}
	if c.MaxDescriptionLength <= 0 {
		c.MaxDescriptionLength = defaultMaxDescription
	}
	if c.MaxInputBytes <= 0 {
		c.MaxInputBytes = defaultMaxInputBytes
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = defaultProductID
	}
	if c.Calendar.Name == "" {
		c.Calendar.Name = defaultCalendarName
	}
}

// NaturalLanguageEnabled reports whether the natural-language date parser
// should be wired in.
func (c *Config) NaturalLanguageEnabled() bool {
	return c.NaturalLanguage == nil || *c.NaturalLanguage
}

// Load loads configuration from the given YAML or TOML path, then applies
// the environment overlay (see ApplyEnv).
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - decode it (TOML when the extension is .toml, YAML otherwise)
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
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	cfg, err := decode(path, data)
	if err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.ApplyEnv()

	return cfg, nil
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func decode(path string, data []byte) (*Config, error) {
	var cfg Config
	if isTOML(path) {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func encode(path string, cfg *Config) ([]byte, error) {
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return yaml.Marshal(cfg)
}

// Environment variables that override file values.
const (
	EnvListen   = "EASYICS_LISTEN"
	EnvTimezone = "EASYICS_TIMEZONE"
	EnvLogLevel = "EASYICS_LOG_LEVEL"
)

// ApplyEnv loads a .env file from the working directory when present and
// lets EASYICS_* variables override the file configuration.
func (c *Config) ApplyEnv() {
	// A missing .env is the normal case outside development.
	_ = godotenv.Load()

	if v := getEnv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := getEnv(EnvTimezone); v != "" {
		c.Timezone = v
	}
	if v := getEnv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
}

func getEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML (or TOML for .toml paths).
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

	data, err := encode(path, cfg)
	if err != nil {
		return err
	}

	// Atomic write: write to temp file in same directory then rename.
	tmp, err := os.CreateTemp(dir, ".easyics-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	// Ensure we clean up temp file on error.
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}

	// Flush and close before chmod/rename.
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

// Save is a convenience method on Config that delegates to the package-level
// Save function.
func (c *Config) Save(path string) error {
	return Save(path, c)
}
