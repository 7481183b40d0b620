// config.go defines tracker settings and loads them from a struct, a map, or a JSON file.

package xrayradar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

// AuthTokenEnv is the environment variable consulted when Config.AuthToken is empty.
const AuthTokenEnv = "XRAYRADAR_AUTH_TOKEN"

// unknownServerName is used when the local hostname cannot be resolved.
const unknownServerName = "unknown"

// Config holds validated tracker settings. Start from DefaultConfig; a zero
// Config fails validation.
type Config struct {
	// DSN is the destination address. Required unless Debug is set.
	DSN string

	// Environment and Release are stamped on every event.
	Environment string
	Release     string

	// ServerName defaults to the local hostname, or "unknown" when the
	// lookup fails.
	ServerName string

	// SampleRate is the fraction of events delivered, in [0, 1].
	SampleRate float64

	// MaxBreadcrumbs is the breadcrumb ring capacity. 0 disables breadcrumbs.
	MaxBreadcrumbs int

	// Timeout bounds a single delivery. Must be positive.
	Timeout time.Duration

	// MaxPayloadSize is the serialized size in bytes above which payloads
	// are truncated. Must be positive.
	MaxPayloadSize int

	// Debug surfaces capture failures on the console instead of swallowing
	// them. Without a DSN, events are printed to the console and not sent.
	Debug bool

	// VerifySSL enables TLS certificate verification.
	VerifySSL bool

	// AuthToken is sent as X-Xrayradar-Token. Falls back to XRAYRADAR_AUTH_TOKEN.
	AuthToken string

	// MinLevel drops events below this level. Empty means no filtering.
	MinLevel Level
}

// DefaultConfig returns the baseline settings without a DSN.
func DefaultConfig() Config {
	return Config{
		Environment:    "production",
		SampleRate:     1.0,
		MaxBreadcrumbs: 100,
		Timeout:        10 * time.Second,
		MaxPayloadSize: 100 * 1024,
		VerifySSL:      true,
	}
}

// Validate checks every bounded field independently. The result joins one
// *ConfigError per violation, or is nil.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DSN) == "" && !c.Debug {
		errs = append(errs, &ConfigError{Field: "dsn", Reason: "must not be empty unless debug is set"})
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		errs = append(errs, &ConfigError{Field: "sample_rate", Reason: fmt.Sprintf("must be between 0 and 1, got %v", c.SampleRate)})
	}
	if c.MaxBreadcrumbs < 0 {
		errs = append(errs, &ConfigError{Field: "max_breadcrumbs", Reason: fmt.Sprintf("must be >= 0, got %d", c.MaxBreadcrumbs)})
	}
	if c.Timeout <= 0 {
		errs = append(errs, &ConfigError{Field: "timeout", Reason: fmt.Sprintf("must be > 0, got %s", c.Timeout)})
	}
	if c.MaxPayloadSize <= 0 {
		errs = append(errs, &ConfigError{Field: "max_payload_size", Reason: fmt.Sprintf("must be > 0, got %d", c.MaxPayloadSize)})
	}
	if c.MinLevel != "" && !c.MinLevel.Valid() {
		errs = append(errs, &ConfigError{Field: "min_level", Reason: fmt.Sprintf("unknown level %q", c.MinLevel)})
	}
	return errors.Join(errs...)
}

// resolved fills derived fields: server name and the auth token from the environment.
func (c Config) resolved() Config {
	if c.ServerName == "" {
		c.ServerName = resolveServerName()
	}
	if c.AuthToken == "" {
		c.AuthToken = os.Getenv(AuthTokenEnv)
	}
	return c
}

// LoadConfig produces a validated Config from a Config, *Config,
// map[string]any, or a path to a .json file. Maps and files are applied on
// top of DefaultConfig.
func LoadConfig(source any) (Config, error) {
	var cfg Config
	switch src := source.(type) {
	case Config:
		cfg = src
	case *Config:
		if src == nil {
			return Config{}, ErrUnsupportedConfigSource
		}
		cfg = *src
	case map[string]any:
		raw, err := json.Marshal(src)
		if err != nil {
			return Config{}, fmt.Errorf("xrayradar: encode config map: %w", err)
		}
		cfg, err = decodeConfig(raw)
		if err != nil {
			return Config{}, err
		}
	case string:
		var err error
		cfg, err = loadConfigFile(src)
		if err != nil {
			return Config{}, err
		}
	default:
		return Config{}, fmt.Errorf("%w: %T", ErrUnsupportedConfigSource, source)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg.resolved(), nil
}

func loadConfigFile(path string) (Config, error) {
	if _, err := os.Stat(path); err != nil {
		return Config{}, fmt.Errorf("xrayradar: config file: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".json" {
		return Config{}, &ConfigError{Field: "source", Reason: fmt.Sprintf("unsupported config file extension %q", ext)}
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("xrayradar: read config file: %w", err)
	}
	return decodeConfig(raw)
}

// fileConfig mirrors Config with JSON names. Pointers distinguish absent keys
// from zero values.
type fileConfig struct {
	DSN            *string  `json:"dsn"`
	Environment    *string  `json:"environment"`
	Release        *string  `json:"release"`
	ServerName     *string  `json:"server_name"`
	SampleRate     *float64 `json:"sample_rate"`
	MaxBreadcrumbs *int     `json:"max_breadcrumbs"`
	Timeout        *float64 `json:"timeout"`
	MaxPayloadSize *int     `json:"max_payload_size"`
	Debug          *bool    `json:"debug"`
	VerifySSL      *bool    `json:"verify_ssl"`
	AuthToken      *string  `json:"auth_token"`
	MinLevel       *string  `json:"min_level"`
}

func decodeConfig(raw []byte) (Config, error) {
	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		return Config{}, &ConfigError{Field: "source", Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	cfg := DefaultConfig()
	setString(&cfg.DSN, fc.DSN)
	setString(&cfg.Environment, fc.Environment)
	setString(&cfg.Release, fc.Release)
	setString(&cfg.ServerName, fc.ServerName)
	setString(&cfg.AuthToken, fc.AuthToken)
	if fc.SampleRate != nil {
		cfg.SampleRate = *fc.SampleRate
	}
	if fc.MaxBreadcrumbs != nil {
		cfg.MaxBreadcrumbs = *fc.MaxBreadcrumbs
	}
	if fc.Timeout != nil {
		cfg.Timeout = time.Duration(*fc.Timeout * float64(time.Second))
	}
	if fc.MaxPayloadSize != nil {
		cfg.MaxPayloadSize = *fc.MaxPayloadSize
	}
	if fc.Debug != nil {
		cfg.Debug = *fc.Debug
	}
	if fc.VerifySSL != nil {
		cfg.VerifySSL = *fc.VerifySSL
	}
	if fc.MinLevel != nil && *fc.MinLevel != "" {
		lvl, err := ParseLevel(*fc.MinLevel)
		if err != nil {
			return Config{}, &ConfigError{Field: "min_level", Reason: err.Error()}
		}
		cfg.MinLevel = lvl
	}
	return cfg, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
