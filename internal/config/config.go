package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variables read once at startup.
const (
	EnvMaxWorkers   = "USGS_MAX_WORKERS"
	EnvAPIKey       = "USGS_API_KEY"
	EnvAPIKeyBackup = "USGS_API_KEY2"
	EnvAPIURL       = "USGS_API_URL"
)

// DefaultMaxWorkers is the scrape pool bound when USGS_MAX_WORKERS is unset.
// The effective pool is additionally capped at the gauge count per cycle.
const DefaultMaxWorkers = 10

// Config holds process-wide settings resolved once at startup.
type Config struct {
	// MaxWorkers bounds how many gauges are read in parallel per scrape.
	MaxWorkers int

	// APIKeyPrimary and APIKeyBackup are tried in that order. Either may
	// be empty, in which case the lookup is attempted unauthenticated.
	APIKeyPrimary string
	APIKeyBackup  string

	// APIURL overrides the USGS collection-items endpoint. Empty selects
	// the production endpoint.
	APIURL string
}

// FromEnv resolves Config from the process environment. A USGS_MAX_WORKERS
// value that is not a positive integer is an error rather than a silent
// fallback.
func FromEnv() (*Config, error) {
	cfg := &Config{MaxWorkers: DefaultMaxWorkers}
	if v := os.Getenv(EnvMaxWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("config: %s: invalid worker count %q", EnvMaxWorkers, v)
		}
		cfg.MaxWorkers = n
	}
	cfg.APIKeyPrimary = os.Getenv(EnvAPIKey)
	cfg.APIKeyBackup = os.Getenv(EnvAPIKeyBackup)
	cfg.APIURL = os.Getenv(EnvAPIURL)
	return cfg, nil
}
