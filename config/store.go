package config

import (
	"fmt"
	"strings"
	"time"
)

// PersistenceMode selects where the session snapshot lives.
type PersistenceMode string

const (
	// PersistenceModeLocal persists the snapshot to a file that survives
	// process restarts.
	PersistenceModeLocal PersistenceMode = "local"
	// PersistenceModeSession keeps the snapshot in process memory only.
	PersistenceModeSession PersistenceMode = "session"
	// PersistenceModeShared stores the snapshot in Redis, shared across
	// processes of the same origin.
	PersistenceModeShared PersistenceMode = "shared"
)

// UnmarshalText implements encoding.TextUnmarshaler for PersistenceMode.
func (p *PersistenceMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "local", "session", "shared":
		*p = PersistenceMode(v)
		return nil
	default:
		return fmt.Errorf("invalid PersistenceMode: %q (valid options: local, session, shared)", v)
	}
}

// RedisConfig contains Redis configuration for the shared persistence mode.
type RedisConfig struct {
	URI                string   `env:"URI"                  envDefault:"localhost:6379"`
	Password           string   `env:"PASSWORD"             envDefault:""`
	DB                 int      `env:"DB"                   envDefault:"0"`
	SentinelNodes      []string `env:"SENTINEL_NODES"       envDefault:""`
	SentinelMasterName string   `env:"SENTINEL_MASTER_NAME" envDefault:"mymaster"`
	SentinelPassword   string   `env:"SENTINEL_PASSWORD"    envDefault:""`
	UseSentinel        bool     `env:"USE_SENTINEL"         envDefault:"false"`
	ClusterNodes       []string `env:"CLUSTER_NODES"        envDefault:""`
	UseCluster         bool     `env:"USE_CLUSTER"          envDefault:"false"`
}

// StoreConfig groups session snapshot persistence configuration.
type StoreConfig struct {
	// Mode determines which storage area backs the snapshot store.
	Mode PersistenceMode `env:"MODE" envDefault:"local"`

	// Dir overrides the directory of the local snapshot file. Empty means
	// a "foyer" directory under the user config dir.
	Dir string `env:"DIR" envDefault:""`

	// Prefix scopes snapshot keys in the shared area so several apps can
	// share one Redis.
	Prefix string `env:"PREFIX" envDefault:"foyer:"`

	// TTL expires shared snapshots after inactivity. Zero means no expiry.
	TTL time.Duration `env:"TTL" envDefault:"0"`

	// Redis connection settings (used when Mode=shared).
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to store configuration values.
func (c *StoreConfig) Sanitize() {
	c.Dir = strings.TrimSpace(c.Dir)
	c.Prefix = strings.TrimSpace(c.Prefix)
	if c.Prefix == "" {
		c.Prefix = "foyer:"
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
	c.Redis.URI = strings.TrimSpace(c.Redis.URI)
}
