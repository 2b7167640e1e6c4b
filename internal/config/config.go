// Package config provides configuration management for taxsync.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"dario.cat/mergo"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"taxsync/internal/models"
	"taxsync/pkg/utils"
)

// Configuration validation errors.
var (
	ErrNoProperties             = errors.New("roster must contain at least one property")
	ErrUnknownProvider          = errors.New("unknown provider")
	ErrPropertyMissingID        = errors.New("property id is required")
	ErrPropertyMissingKey       = errors.New("property needs an address or a parcel")
	ErrDuplicatePropertyID      = errors.New("duplicate property id")
	ErrMissingPortalURL         = errors.New("portal url is required")
	ErrInvalidPropertyTimeout   = errors.New("sync.property_timeout_sec must be at least 1")
	ErrInvalidNavigationTimeout = errors.New("browser.navigation_timeout_sec must be at least 1")
	ErrInvalidElementTimeout    = errors.New("browser.element_timeout_ms must be at least 1")
	ErrInvalidCallbackTimeout   = errors.New("callback.timeout_sec must be at least 1")
	ErrInvalidCallbackURL       = errors.New("callback url must be an absolute http(s) URL")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Environment overrides, read only by this package.
const (
	EnvCallbackURL    = "TAXSYNC_CALLBACK_URL"
	EnvCallbackSecret = "TAXSYNC_CALLBACK_SECRET"
	EnvProfileDir     = "TAXSYNC_BROWSER_PROFILE"
	EnvChromiumPath   = "TAXSYNC_CHROMIUM_PATH"
	EnvDiagnosticsDir = "TAXSYNC_DIAGNOSTICS_DIR"
)

// Config represents the complete taxsync configuration.
type Config struct {
	Portals     map[models.Provider]PortalConfig `yaml:"portals"`
	Callback    CallbackConfig                   `yaml:"callback"`
	Browser     BrowserConfig                    `yaml:"browser"`
	Diagnostics DiagnosticsConfig                `yaml:"diagnostics"`
	Logging     LoggingConfig                    `yaml:"logging"`
	Roster      []ProviderGroup                  `yaml:"roster"`
	Sync        SyncConfig                       `yaml:"sync"`
}

// BrowserConfig controls the headless browser session.
type BrowserConfig struct {
	UserAgent            string `yaml:"user_agent"`
	ProfileDir           string `yaml:"profile_dir"`
	ExecutablePath       string `yaml:"executable_path"`
	NavigationTimeoutSec int    `yaml:"navigation_timeout_sec"`
	ElementTimeoutMs     int    `yaml:"element_timeout_ms"`
	// Zero is a valid setting for these two, so they are pointers: nil means unset.
	IdleTimeoutSec *int `yaml:"idle_timeout_sec"`
	SettleDelayMs  *int `yaml:"settle_delay_ms"`
	Headed         bool `yaml:"headed"`
}

// SyncConfig controls the orchestrator.
type SyncConfig struct {
	Executable         string `yaml:"executable"`
	PropertyTimeoutSec int    `yaml:"property_timeout_sec"`
}

// CallbackConfig controls result delivery.
type CallbackConfig struct {
	URL           string `yaml:"url"`
	SigningSecret string `yaml:"-"`
	TimeoutSec    int    `yaml:"timeout_sec"`
}

// DiagnosticsConfig controls screenshots and HTML dumps. An empty dir falls
// back to the default; set disabled to turn capture off.
type DiagnosticsConfig struct {
	Dir      string `yaml:"dir"`
	Disabled bool   `yaml:"disabled"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// PortalConfig locates one jurisdiction's portal.
type PortalConfig struct {
	URL          string `yaml:"url"`
	BillURL      string `yaml:"bill_url"`
	Municipality string `yaml:"municipality"`
	TaxYear      int    `yaml:"tax_year"`
}

// ProviderGroup is one roster section: every property handled by a provider.
type ProviderGroup struct {
	Provider   models.Provider   `yaml:"provider"`
	Properties []models.Property `yaml:"properties"`
}

// Defaults returns the built-in configuration used to fill unset fields.
func Defaults() Config {
	return Config{
		Browser: BrowserConfig{
			UserAgent:            utils.DefaultUserAgent,
			NavigationTimeoutSec: 60,
			ElementTimeoutMs:     10000,
			IdleTimeoutSec:       intPtr(30),
			SettleDelayMs:        intPtr(3000),
		},
		Sync: SyncConfig{
			PropertyTimeoutSec: 120,
		},
		Callback: CallbackConfig{
			TimeoutSec: 30,
		},
		Diagnostics: DiagnosticsConfig{
			Dir: "diagnostics",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Portals: map[models.Provider]PortalConfig{
			models.ProviderSantaClara: {
				URL: "https://payments.sccgov.org/propertytax",
			},
			models.ProviderCityHall: {
				URL:          "https://epay.cityhallsystems.com",
				Municipality: "Providence RI",
			},
			models.ProviderVermontNEMRC: {
				URL: "https://nemrc.info/web_data/vtdumm/searchT.php",
			},
			models.ProviderVermontAxisGIS: {
				URL: "https://www.axisgis.com/BrattleboroVT/",
			},
			models.ProviderNYCFinance: {
				URL: "https://a836-pts-access.nyc.gov/care/datalets/datalet.aspx",
			},
		},
	}
}

// LoadConfig loads configuration from a YAML file, fills defaults and applies
// environment overrides. The dotenv file at envFile is loaded first when it exists.
func LoadConfig(filepath, envFile string) (*Config, error) {
	if err := LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.ApplyDefaults(); err != nil {
		return nil, err
	}

	cfg.ApplyEnv(os.Getenv)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadEnvFile loads a dotenv file into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}

	return nil
}

// ApplyDefaults fills every unset field from Defaults.
func (c *Config) ApplyDefaults() error {
	defaults := Defaults()

	portals := c.Portals
	c.Portals = nil

	// mergo treats an explicit zero as unset; keep these out of the merge.
	idle, settle := c.Browser.IdleTimeoutSec, c.Browser.SettleDelayMs
	c.Browser.IdleTimeoutSec, c.Browser.SettleDelayMs = nil, nil

	if err := mergo.Merge(c, defaults); err != nil {
		return fmt.Errorf("failed to merge defaults: %w", err)
	}

	c.Browser.IdleTimeoutSec = orDefault(idle, defaults.Browser.IdleTimeoutSec)
	c.Browser.SettleDelayMs = orDefault(settle, defaults.Browser.SettleDelayMs)

	if portals == nil {
		return nil
	}

	for provider, def := range defaults.Portals {
		portal := portals[provider]
		if err := mergo.Merge(&portal, def); err != nil {
			return fmt.Errorf("failed to merge portal defaults for %s: %w", provider, err)
		}

		portals[provider] = portal
	}

	c.Portals = portals

	return nil
}

func intPtr(v int) *int {
	return &v
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}

	return *p
}

func orDefault(p, def *int) *int {
	if p != nil {
		return p
	}

	return intPtr(intValue(def))
}

// ApplyEnv overrides secrets and machine-specific paths from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvCallbackURL); v != "" {
		c.Callback.URL = v
	}

	if v := getenv(EnvCallbackSecret); v != "" {
		c.Callback.SigningSecret = v
	}

	if v := getenv(EnvProfileDir); v != "" {
		c.Browser.ProfileDir = v
	}

	if v := getenv(EnvChromiumPath); v != "" {
		c.Browser.ExecutablePath = v
	}

	if v := getenv(EnvDiagnosticsDir); v != "" {
		c.Diagnostics.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Properties("")) == 0 {
		return ErrNoProperties
	}

	seen := make(map[string]bool)

	for i, group := range c.Roster {
		if !group.Provider.Valid() {
			return fmt.Errorf("%w: roster[%d] %q", ErrUnknownProvider, i, group.Provider)
		}

		if c.Portals[group.Provider].URL == "" {
			return fmt.Errorf("%w: %s", ErrMissingPortalURL, group.Provider)
		}

		for j, prop := range group.Properties {
			if prop.ID == "" {
				return fmt.Errorf("%w: roster[%d].properties[%d]", ErrPropertyMissingID, i, j)
			}

			if prop.Address == "" && prop.Parcel == "" {
				return fmt.Errorf("%w: %s", ErrPropertyMissingKey, prop.ID)
			}

			if seen[prop.ID] {
				return fmt.Errorf("%w: %s", ErrDuplicatePropertyID, prop.ID)
			}

			seen[prop.ID] = true
		}
	}

	if c.Sync.PropertyTimeoutSec < 1 {
		return ErrInvalidPropertyTimeout
	}

	if c.Browser.NavigationTimeoutSec < 1 {
		return ErrInvalidNavigationTimeout
	}

	if c.Browser.ElementTimeoutMs < 1 {
		return ErrInvalidElementTimeout
	}

	if c.Callback.TimeoutSec < 1 {
		return ErrInvalidCallbackTimeout
	}

	if c.Callback.URL != "" {
		if err := ValidateCallbackURL(c.Callback.URL); err != nil {
			return err
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// ValidateCallbackURL checks a callback URL supplied by flag or file.
func ValidateCallbackURL(raw string) error {
	if !utils.NewHTTPHelper().IsValidURL(raw) {
		return fmt.Errorf("%w: %q", ErrInvalidCallbackURL, raw)
	}

	return nil
}

// Properties returns the roster in configuration order, optionally restricted to one provider.
func (c *Config) Properties(filter models.Provider) []models.Property {
	var props []models.Property

	for _, group := range c.Roster {
		if filter != "" && group.Provider != filter {
			continue
		}

		for _, prop := range group.Properties {
			prop.Provider = group.Provider
			props = append(props, prop)
		}
	}

	return props
}

// FindProperty looks up a roster property by id.
func (c *Config) FindProperty(id string) (models.Property, bool) {
	for _, prop := range c.Properties("") {
		if prop.ID == id {
			return prop, true
		}
	}

	return models.Property{}, false
}

// Portal returns the portal settings for a provider.
func (c *Config) Portal(provider models.Provider) PortalConfig {
	return c.Portals[provider]
}

// PropertyTimeout returns the orchestrator's per-property bound.
func (c *Config) PropertyTimeout() time.Duration {
	return time.Duration(c.Sync.PropertyTimeoutSec) * time.Second
}

// NavigationTimeout returns the page load bound.
func (c *Config) NavigationTimeout() time.Duration {
	return time.Duration(c.Browser.NavigationTimeoutSec) * time.Second
}

// ElementTimeout returns the bounded wait for element resolution.
func (c *Config) ElementTimeout() time.Duration {
	return time.Duration(c.Browser.ElementTimeoutMs) * time.Millisecond
}

// IdleTimeout returns the network-idle wait bound.
func (c *Config) IdleTimeout() time.Duration {
	return time.Duration(intValue(c.Browser.IdleTimeoutSec)) * time.Second
}

// SettleDelay returns the pause after interactions.
func (c *Config) SettleDelay() time.Duration {
	return time.Duration(intValue(c.Browser.SettleDelayMs)) * time.Millisecond
}

// CallbackTimeout returns the delivery request bound.
func (c *Config) CallbackTimeout() time.Duration {
	return time.Duration(c.Callback.TimeoutSec) * time.Second
}

// String returns a string representation of the config.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Properties: %d, PropertyTimeout: %s, Callback: %t}",
		len(c.Properties("")),
		c.PropertyTimeout(),
		c.Callback.URL != "",
	)
}
