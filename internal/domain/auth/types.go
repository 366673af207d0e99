package auth

// Package auth contains domain-level types for authentication sessions.
// It is pure and free of provider/adapter concerns.

import "time"

// DefaultDisplayName is used when a provider returns an identity with no
// display name of its own.
const DefaultDisplayName = "User"

// Identity represents the authenticated principal returned by an identity
// provider. Adapters map provider-specific payloads into this shape.
// UID is non-empty whenever an Identity exists; a guest Identity has
// IsGuest set and no email.
type Identity struct {
	UID           string    `json:"uid"`
	Email         string    `json:"email,omitempty"`
	DisplayName   string    `json:"displayName,omitempty"`
	PhotoURL      string    `json:"photoUrl,omitempty"`
	EmailVerified bool      `json:"emailVerified"`
	IsGuest       bool      `json:"isGuest"`
	LoginAt       time.Time `json:"loginTimestamp"`
}

// Session pairs an Identity with the opaque access token the provider
// issued for it. Tokens are never inspected locally.
type Session struct {
	Identity    Identity
	AccessToken string
}

// Snapshot is the persisted form of the last-known Session plus any extra
// fields the caller stored alongside it.
type Snapshot struct {
	Identity    Identity
	AccessToken string
	Extra       map[string]any
}

// State describes the façade lifecycle. Initialization runs exactly once:
// a façade that reaches Failed stays Failed.
type State int

const (
	StateUninitialized State = iota
	StateInitializing
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitializing:
		return "initializing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateChange is broadcast on every authentication-state transition.
// Identity is nil after sign-out.
type StateChange struct {
	Identity      *Identity
	Authenticated bool
}
