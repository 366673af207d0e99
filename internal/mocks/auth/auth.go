package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"sync"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	"github.com/foyerhq/foyer/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*ScriptedProvider)(nil)
	_ ports.FederatedFlow    = (FlowFunc)(nil)
	_ ports.StorageArea      = (*FuncArea)(nil)
)

// ScriptedProvider simulates an identity backend with per-method overrides
// and a hand-cranked change channel. Without an override a method returns
// DefaultSession.
type ScriptedProvider struct {
	SignInWithPasswordFunc func(ctx context.Context, email, password string) (domainauth.Session, error)
	SignUpWithPasswordFunc func(ctx context.Context, email, password, displayName string) (domainauth.Session, error)
	SignInFederatedFunc    func(ctx context.Context) (domainauth.Session, error)
	SignInAnonymouslyFunc  func(ctx context.Context) (domainauth.Session, error)

	// DefaultSession is handed out when no func override is set.
	DefaultSession domainauth.Session

	changes chan ports.ProviderChange

	mu    sync.Mutex
	calls []string
}

// NewScriptedProvider creates a ScriptedProvider with a plausible default
// session.
func NewScriptedProvider() *ScriptedProvider {
	return &ScriptedProvider{
		DefaultSession: domainauth.Session{
			Identity: domainauth.Identity{
				UID:         "mock-user-1",
				Email:       "mock.user@example.com",
				DisplayName: "Mock User",
			},
			AccessToken: "mock-token",
		},
		changes: make(chan ports.ProviderChange, 8),
	}
}

func (m *ScriptedProvider) record(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, name)
}

// Calls returns the method names invoked so far, in order.
func (m *ScriptedProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *ScriptedProvider) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	m.record("SignInWithPassword")
	if m.SignInWithPasswordFunc != nil {
		return m.SignInWithPasswordFunc(ctx, email, password)
	}
	return m.DefaultSession, nil
}

func (m *ScriptedProvider) SignUpWithPassword(ctx context.Context, email, password, displayName string) (domainauth.Session, error) {
	m.record("SignUpWithPassword")
	if m.SignUpWithPasswordFunc != nil {
		return m.SignUpWithPasswordFunc(ctx, email, password, displayName)
	}
	sess := m.DefaultSession
	sess.Identity.Email = email
	sess.Identity.DisplayName = displayName
	return sess, nil
}

func (m *ScriptedProvider) SignInFederated(ctx context.Context) (domainauth.Session, error) {
	m.record("SignInFederated")
	if m.SignInFederatedFunc != nil {
		return m.SignInFederatedFunc(ctx)
	}
	return m.DefaultSession, nil
}

func (m *ScriptedProvider) SignInAnonymously(ctx context.Context) (domainauth.Session, error) {
	m.record("SignInAnonymously")
	if m.SignInAnonymouslyFunc != nil {
		return m.SignInAnonymouslyFunc(ctx)
	}
	sess := m.DefaultSession
	sess.Identity.IsGuest = true
	return sess, nil
}

func (m *ScriptedProvider) Changes() <-chan ports.ProviderChange {
	return m.changes
}

// Emit hand-cranks a provider change into the channel.
func (m *ScriptedProvider) Emit(change ports.ProviderChange) {
	m.changes <- change
}

// CloseChanges simulates provider shutdown.
func (m *ScriptedProvider) CloseChanges() {
	close(m.changes)
}

// FlowFunc adapts a function to the FederatedFlow interface.
type FlowFunc func(ctx context.Context) (domainauth.Session, error)

func (f FlowFunc) SignIn(ctx context.Context) (domainauth.Session, error) {
	return f(ctx)
}

// FuncArea is an in-memory storage area with per-call overrides for fault
// injection. Without overrides it behaves like a plain string map.
type FuncArea struct {
	GetFunc    func(ctx context.Context, key string) (string, error)
	SetFunc    func(ctx context.Context, key, value string) error
	DeleteFunc func(ctx context.Context, key string) error

	mu     sync.Mutex
	values map[string]string
}

// NewFuncArea creates an empty FuncArea.
func NewFuncArea() *FuncArea {
	return &FuncArea{values: make(map[string]string)}
}

func (a *FuncArea) Get(ctx context.Context, key string) (string, error) {
	if a.GetFunc != nil {
		return a.GetFunc(ctx, key)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	value, ok := a.values[key]
	if !ok {
		return "", ports.ErrNotFound
	}
	return value, nil
}

func (a *FuncArea) Set(ctx context.Context, key, value string) error {
	if a.SetFunc != nil {
		return a.SetFunc(ctx, key, value)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.values[key] = value
	return nil
}

func (a *FuncArea) Delete(ctx context.Context, key string) error {
	if a.DeleteFunc != nil {
		return a.DeleteFunc(ctx, key)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.values, key)
	return nil
}

// Values returns a copy of the stored entries for assertions.
func (a *FuncArea) Values() map[string]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string]string, len(a.values))
	for k, v := range a.values {
		out[k] = v
	}
	return out
}
