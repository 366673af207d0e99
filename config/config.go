package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library, all prefixed with FOYER_. See
// individual domain config files for details on available variables:
//   - auth.go: Identity provider configuration
//   - store.go: Session snapshot persistence configuration
//   - sync.go: Backend sync endpoint configuration
type AppConfig struct {
	// IsDev controls development mode behavior (verbose logging, dev
	// provider defaults). Set FOYER_DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Identity provider configuration
	Auth AuthConfig `envPrefix:"AUTH_"`

	// Snapshot persistence configuration
	Store StoreConfig `envPrefix:"STORE_"`

	// Backend sync configuration
	Sync SyncConfig `envPrefix:"SYNC_"`
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment
// variables.
func (c *AppConfig) Sanitize() {
	c.Auth.Sanitize()
	c.Store.Sanitize()
	c.Sync.Sanitize()

	c.detectDevMode()
}

// detectDevMode falls back to FOYER_ENV when the DEV flag is unset, so
// FOYER_ENV=development behaves the way frontend tooling expects.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("FOYER_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}
