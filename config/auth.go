package config

import (
	"fmt"
	"strings"
	"time"
)

// ProviderMode selects which identity provider backs the façade.
type ProviderMode string

const (
	// ProviderModeIdentityKit talks to an Identity Toolkit-style REST API.
	ProviderModeIdentityKit ProviderMode = "identitykit"
	// ProviderModeDev uses the in-memory dev provider (development only).
	ProviderModeDev ProviderMode = "dev"
)

// UnmarshalText implements encoding.TextUnmarshaler for ProviderMode.
func (p *ProviderMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "identitykit", "dev":
		*p = ProviderMode(v)
		return nil
	default:
		return fmt.Errorf("invalid ProviderMode: %q (valid options: identitykit, dev)", v)
	}
}

// IdentityKitConfig contains the Identity Toolkit REST API configuration.
// Credentials are opaque to the façade: they are passed through unvalidated
// and a wrong value surfaces as ProviderMisconfigured at sign-in time.
type IdentityKitConfig struct {
	BaseURL       string        `env:"BASE_URL"`
	APIKey        string        `env:"API_KEY"`
	Timeout       time.Duration `env:"TIMEOUT"        envDefault:"30s"`
	RefreshMargin time.Duration `env:"REFRESH_MARGIN" envDefault:"5m"`
}

// OIDCConfig contains the federated sign-in flow configuration.
type OIDCConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	Scope        string `env:"SCOPE"       envDefault:"openid profile email"`
	ListenAddr   string `env:"LISTEN_ADDR" envDefault:"127.0.0.1:0"`
}

// IsConfigured reports whether enough is set to run the federated flow.
func (c OIDCConfig) IsConfigured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.DiscoveryURL != ""
}

// DevAuthConfig seeds the dev provider's account registry.
// Used when FOYER_AUTH_MODE=dev for development and testing.
type DevAuthConfig struct {
	Email       string `env:"EMAIL"        envDefault:"dev@example.com"`
	Password    string `env:"PASSWORD"     envDefault:"devpassword"`
	DisplayName string `env:"DISPLAY_NAME" envDefault:"Dev User"`
}

// AuthConfig groups all identity-provider configuration.
type AuthConfig struct {
	// Mode determines which identity provider to use.
	Mode ProviderMode `env:"MODE" envDefault:"dev"`

	// IdentityKit configuration (used when Mode=identitykit).
	IdentityKit IdentityKitConfig `envPrefix:"IDENTITY_"`

	// OIDC federated flow configuration (optional in either mode).
	OIDC OIDCConfig `envPrefix:"OIDC_"`

	// DevAuth configuration (used when Mode=dev).
	DevAuth DevAuthConfig `envPrefix:"DEV_"`

	// AllowGuests enables anonymous guest sign-in.
	AllowGuests bool `env:"ALLOW_GUESTS" envDefault:"true"`

	// RequireEmailVerification is advisory only: an unverified sign-in is
	// logged, never rejected.
	RequireEmailVerification bool `env:"REQUIRE_EMAIL_VERIFICATION" envDefault:"false"`
}

// Sanitize applies guardrails to auth configuration values.
func (c *AuthConfig) Sanitize() {
	c.IdentityKit.BaseURL = strings.TrimSpace(c.IdentityKit.BaseURL)
	c.IdentityKit.APIKey = strings.TrimSpace(c.IdentityKit.APIKey)
	if c.IdentityKit.Timeout <= 0 {
		c.IdentityKit.Timeout = 30 * time.Second
	}
	if c.IdentityKit.RefreshMargin <= 0 {
		c.IdentityKit.RefreshMargin = 5 * time.Minute
	}

	c.OIDC.ClientID = strings.TrimSpace(c.OIDC.ClientID)
	c.OIDC.ClientSecret = strings.TrimSpace(c.OIDC.ClientSecret)
	c.OIDC.DiscoveryURL = strings.TrimSpace(c.OIDC.DiscoveryURL)

	c.DevAuth.Email = strings.TrimSpace(c.DevAuth.Email)
}
