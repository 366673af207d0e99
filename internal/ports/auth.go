package ports

// Package ports defines interfaces (hexagonal ports) for auth-related behavior.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"
	"errors"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
)

// ErrNotFound is returned by StorageArea.Get when a key has no value.
var ErrNotFound = errors.New("key not found")

// ProviderChange is a provider-originated session update not triggered by a
// local operation: a refreshed token, a remote sign-out (nil Session).
type ProviderChange struct {
	Session *domainauth.Session
}

// IdentityProvider is the full contract the façade consumes from an identity
// backend. Any provider offering these five capabilities is substitutable.
type IdentityProvider interface {
	// SignInWithPassword authenticates an existing account.
	SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error)

	// SignUpWithPassword creates an account, then attaches displayName as a
	// second step. A failed second step is reported through the returned
	// session's identity (display name unset), not as an error.
	SignUpWithPassword(ctx context.Context, email, password, displayName string) (domainauth.Session, error)

	// SignInFederated runs the provider's interactive consent flow.
	SignInFederated(ctx context.Context) (domainauth.Session, error)

	// SignInAnonymously creates a guest session with no durable credential.
	SignInAnonymously(ctx context.Context) (domainauth.Session, error)

	// Changes delivers provider-originated session updates (token refresh,
	// remote sign-out). The channel is closed when the provider shuts down.
	Changes() <-chan ProviderChange
}

// SessionDropper is an optional IdentityProvider capability: it lets the
// façade tell the provider to forget the active session after a local
// sign-out, stopping background refresh of a token nobody holds anymore.
// Providers without it still work; they may just publish stale changes.
type SessionDropper interface {
	DropSession()
}

// FederatedFlow runs one interactive consent round-trip against a federated
// identity provider and returns the authenticated session.
type FederatedFlow interface {
	SignIn(ctx context.Context) (domainauth.Session, error)
}

// SnapshotStore persists the last-known session snapshot.
type SnapshotStore interface {
	// Save overwrites the snapshot with sess merged with extra fields.
	Save(ctx context.Context, sess domainauth.Session, extra map[string]any) error

	// Load returns the stored snapshot, or nil when none exists. A corrupt
	// snapshot is discarded and reported as absent.
	Load(ctx context.Context) (*domainauth.Snapshot, error)

	// Clear removes the snapshot. Idempotent.
	Clear(ctx context.Context) error
}

// StorageArea is durable string-keyed storage scoped to a persistence mode.
// The area is shared across processes of the same origin; last writer wins.
type StorageArea interface {
	// Get returns the value under key, or ErrNotFound when absent.
	Get(ctx context.Context, key string) (string, error)

	// Set overwrites the value under key.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// AreaWatcher is an optional StorageArea capability: it reports writes to the
// area made by other processes. Callers type-assert for it.
type AreaWatcher interface {
	// Watch emits a signal per external change until ctx is done.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
