package config

import (
	"strings"
	"time"
)

// SyncConfig controls the best-effort identity POST to an app backend
// after a successful sign-in. Leaving the endpoint empty disables it.
type SyncConfig struct {
	EndpointURL string        `env:"ENDPOINT" envDefault:""`
	Timeout     time.Duration `env:"TIMEOUT"  envDefault:"5s"`
}

// IsEnabled reports whether a sync endpoint is configured.
func (c SyncConfig) IsEnabled() bool {
	return c.EndpointURL != ""
}

// Sanitize applies guardrails to sync configuration values.
func (c *SyncConfig) Sanitize() {
	c.EndpointURL = strings.TrimSpace(c.EndpointURL)
	if c.Timeout <= 0 {
		c.Timeout = 5 * time.Second
	}
}
