// Package config loads Plover settings: defaults, then an optional YAML
// file, then PLOVER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"Plover/internal/atproto/identity"
)

// ErrIncomplete is returned by Validate when no usable credentials are configured.
var ErrIncomplete = errors.New("incomplete configuration")

// Config holds everything the CLI needs to talk to a PDS.
type Config struct {
	PDSURL      string        `yaml:"pdsUrl"`
	Handle      string        `yaml:"handle"`
	Password    string        `yaml:"password"`
	AccessToken string        `yaml:"accessToken"`
	DID         string        `yaml:"did"`
	PLCURL      string        `yaml:"plcUrl"`
	LogLevel    string        `yaml:"logLevel"`
	LogFormat   string        `yaml:"logFormat"`
	HTTPTimeout time.Duration `yaml:"httpTimeout"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		PLCURL:      identity.DefaultPLCURL,
		LogLevel:    "info",
		LogFormat:   "text",
		HTTPTimeout: 30 * time.Second,
	}
}

// Load builds a Config. path names a YAML file; when empty, PLOVER_CONFIG is
// consulted. A named file that cannot be read or parsed is an error.
func Load(path string) (Config, error) {
	return load(path, os.Getenv, os.ReadFile)
}

func load(path string, getenv func(string) string, readFile func(string) ([]byte, error)) (Config, error) {
	cfg := Default()

	if path == "" {
		path = strings.TrimSpace(getenv("PLOVER_CONFIG"))
	}
	if path != "" {
		data, err := readFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		var parsed Config
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		Merge(&cfg, parsed)
	}

	if err := ApplyEnvOverrides(&cfg, getenv); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Merge copies every non-zero field of src into dst.
func Merge(dst *Config, src Config) {
	mergeString(&dst.PDSURL, src.PDSURL)
	mergeString(&dst.Handle, src.Handle)
	mergeString(&dst.Password, src.Password)
	mergeString(&dst.AccessToken, src.AccessToken)
	mergeString(&dst.DID, src.DID)
	mergeString(&dst.PLCURL, src.PLCURL)
	mergeString(&dst.LogLevel, src.LogLevel)
	mergeString(&dst.LogFormat, src.LogFormat)
	if src.HTTPTimeout != 0 {
		dst.HTTPTimeout = src.HTTPTimeout
	}
}

func mergeString(dst *string, src string) {
	if src = strings.TrimSpace(src); src != "" {
		*dst = src
	}
}

// ApplyEnvOverrides overlays PLOVER_* environment variables onto cfg.
func ApplyEnvOverrides(cfg *Config, getenv func(string) string) error {
	env := Config{
		PDSURL:      getenv("PLOVER_PDS_URL"),
		Handle:      getenv("PLOVER_HANDLE"),
		Password:    getenv("PLOVER_PASSWORD"),
		AccessToken: getenv("PLOVER_ACCESS_TOKEN"),
		DID:         getenv("PLOVER_DID"),
		PLCURL:      getenv("PLOVER_PLC_URL"),
		LogLevel:    getenv("PLOVER_LOG_LEVEL"),
		LogFormat:   getenv("PLOVER_LOG_FORMAT"),
	}

	if raw := strings.TrimSpace(getenv("PLOVER_HTTP_TIMEOUT")); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			// Bare integers are seconds.
			secs, convErr := strconv.Atoi(raw)
			if convErr != nil {
				return fmt.Errorf("invalid PLOVER_HTTP_TIMEOUT %q: %w", raw, err)
			}
			d = time.Duration(secs) * time.Second
		}
		env.HTTPTimeout = d
	}

	Merge(cfg, env)
	return nil
}

// Validate checks that some way to authenticate is configured: a handle and
// password, or a DID and access token.
func (c Config) Validate() error {
	switch {
	case c.AccessToken != "":
		if c.DID == "" {
			return fmt.Errorf("%w: PLOVER_DID is required with an access token", ErrIncomplete)
		}
		if c.PDSURL == "" {
			return fmt.Errorf("%w: PLOVER_PDS_URL is required with an access token", ErrIncomplete)
		}
	case c.Handle != "" || c.Password != "":
		if c.Handle == "" || c.Password == "" {
			return fmt.Errorf("%w: PLOVER_HANDLE and PLOVER_PASSWORD must be set together", ErrIncomplete)
		}
	default:
		return fmt.Errorf("%w: set PLOVER_HANDLE and PLOVER_PASSWORD, or PLOVER_DID and PLOVER_ACCESS_TOKEN", ErrIncomplete)
	}

	if c.HTTPTimeout < 0 {
		return fmt.Errorf("http timeout cannot be negative: %s", c.HTTPTimeout)
	}
	return nil
}

// NewLogger builds the slog logger selected by LogLevel and LogFormat.
func (c Config) NewLogger(w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if c.LogLevel == "" {
		level = slog.LevelInfo
	} else if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q: want text or json", c.LogFormat)
	}
}
