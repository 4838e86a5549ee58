package identity

import (
	"log/slog"
	"net/http"
	"time"

	indigoIdentity "github.com/bluesky-social/indigo/atproto/identity"
)

// DefaultPLCURL is the public PLC directory.
const DefaultPLCURL = "https://plc.directory"

// Config holds configuration for the identity resolver
type Config struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	PLCURL     string
	UserAgent  string
	CacheTTL   time.Duration
	CacheSize  int
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		PLCURL:     DefaultPLCURL,
		UserAgent:  "plover/0.1",
		CacheTTL:   time.Hour,
		CacheSize:  1000,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// NewResolver creates an identity resolver backed by the PLC directory and
// DNS/HTTPS handle resolution, with an in-memory cache
func NewResolver(config Config) Resolver {
	defaults := DefaultConfig()
	if config.PLCURL == "" {
		config.PLCURL = defaults.PLCURL
	}
	if config.UserAgent == "" {
		config.UserAgent = defaults.UserAgent
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaults.CacheTTL
	}
	if config.CacheSize == 0 {
		config.CacheSize = defaults.CacheSize
	}
	if config.HTTPClient == nil {
		config.HTTPClient = defaults.HTTPClient
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	dir := &indigoIdentity.BaseDirectory{
		PLCURL:     config.PLCURL,
		HTTPClient: *config.HTTPClient,
		UserAgent:  config.UserAgent,
	}

	return newCachingResolver(
		newBaseResolver(dir),
		NewMemoryCache(config.CacheSize, config.CacheTTL),
		config.Logger,
	)
}
