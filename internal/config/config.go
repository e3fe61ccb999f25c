package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"

	"github.com/brk3/habitstreak/internal/logger"
)

type Config struct {
	APIBaseURL  string `yaml:"api_base_url"`
	ListenAddr  string `yaml:"listen_addr"`
	AuthEnabled bool   `yaml:"auth_enabled"`
	// AuthToken is the API key the CLI sends. The OS keyring is used when empty.
	AuthToken string `yaml:"auth_token"`
	// Timezone is the IANA zone in which "today" is resolved.
	Timezone string `yaml:"timezone"`
	// SessionSecret signs and encrypts session cookies. Sessions do not
	// survive a restart when it is empty.
	SessionSecret string `yaml:"session_secret"`

	Log      logger.Config  `yaml:"log"`
	Storage  StorageConfig  `yaml:"storage"`
	Calendar CalendarConfig `yaml:"calendar"`
	Nudge    NudgeConfig    `yaml:"nudge"`

	OIDCProviders []OIDCProviderConfig `yaml:"oidc_providers"`
}

type StorageConfig struct {
	// Driver is one of bolt, sqlite or postgres.
	Driver string `yaml:"driver"`
	// Path is the database file for bolt and sqlite.
	Path string `yaml:"path"`
	// DSN is the lib/pq connection string for postgres.
	DSN string `yaml:"dsn"`
}

type CalendarConfig struct {
	Enabled    bool          `yaml:"enabled"`
	BaseURL    string        `yaml:"base_url"`
	CalendarID string        `yaml:"calendar_id"`
	Timeout    time.Duration `yaml:"timeout"`
	// Provider is the id of the OIDC provider whose tokens are used for
	// calendar calls and refreshed against. Defaults to the only provider.
	Provider   string        `yaml:"provider"`
}

// CalendarProvider returns the OIDC provider backing calendar sync, if any.
func (c *Config) CalendarProvider() (OIDCProviderConfig, bool) {
	if c.Calendar.Provider == "" {
		if len(c.OIDCProviders) == 1 {
			return c.OIDCProviders[0], true
		}
		return OIDCProviderConfig{}, false
	}
	for _, p := range c.OIDCProviders {
		if p.Id == c.Calendar.Provider {
			return p, true
		}
	}
	return OIDCProviderConfig{}, false
}

type NudgeConfig struct {
	Email          string `yaml:"email"`
	From           string `yaml:"from"`
	ThresholdHours int    `yaml:"threshold_hours"`
	ResendAPIKey   string `yaml:"resend_api_key"`
}

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

const (
	DriverBolt     = "bolt"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func Path() string {
	return getenv("HABITS_CONFIG", "config.yaml")
}

// Load reads the YAML file named by $HABITS_CONFIG (default config.yaml),
// fills in defaults and applies HABITS_* environment overrides.
func Load() (*Config, error) {
	path := Path()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default is the configuration used when no file exists: defaults plus
// environment overrides.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = "http://localhost:8080"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = DriverBolt
	}
	if c.Storage.Path == "" {
		c.Storage.Path = "habits.db"
	}
	if c.Calendar.BaseURL == "" {
		c.Calendar.BaseURL = "https://www.googleapis.com/calendar/v3"
	}
	if c.Calendar.CalendarID == "" {
		c.Calendar.CalendarID = "primary"
	}
	if c.Calendar.Timeout == 0 {
		c.Calendar.Timeout = 5 * time.Second
	}
	if c.Nudge.ThresholdHours == 0 {
		c.Nudge.ThresholdHours = 4
	}
}

func (c *Config) applyEnv() {
	c.APIBaseURL = getenv("HABITS_API_BASE", c.APIBaseURL)
	c.AuthToken = getenv("HABITS_AUTH_TOKEN", c.AuthToken)
	c.Storage.DSN = getenv("HABITS_DB_DSN", c.Storage.DSN)
	c.Nudge.ResendAPIKey = getenv("HABITS_RESEND_API_KEY", c.Nudge.ResendAPIKey)
	c.SessionSecret = getenv("HABITS_SESSION_SECRET", c.SessionSecret)
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverBolt, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DSN == "" {
			return errors.New("storage.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	if c.AuthEnabled && len(c.OIDCProviders) == 0 {
		return errors.New("auth_enabled requires at least one oidc provider")
	}
	for _, p := range c.OIDCProviders {
		if p.Id == "" || p.IssuerURL == "" || p.ClientID == "" {
			return fmt.Errorf("oidc provider %q: id, issuer_url and client_id are required", p.Id)
		}
	}
	if c.Calendar.Provider != "" {
		if _, ok := c.CalendarProvider(); !ok {
			return fmt.Errorf("calendar.provider %q is not a configured oidc provider", c.Calendar.Provider)
		}
	}
	return nil
}

// Location returns the configured time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
