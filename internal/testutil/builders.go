// Package testutil provides testing utilities and helpers for the foyer auth facade.
package testutil

import (
	"time"

	"github.com/foyerhq/foyer/internal/domain/auth"
)

// SessionBuilder provides a fluent interface for building Session values for testing.
type SessionBuilder struct {
	sess *auth.Session
}

// NewSession creates a new SessionBuilder with sensible defaults.
func NewSession() *SessionBuilder {
	return &SessionBuilder{
		sess: &auth.Session{
			Identity: auth.Identity{
				UID:         "test-user-1",
				Email:       "test.user@example.com",
				DisplayName: "Test User",
				LoginAt:     TestTime(),
			},
			AccessToken: "test-access-token",
		},
	}
}

// WithUID sets the identity UID.
func (b *SessionBuilder) WithUID(uid string) *SessionBuilder {
	b.sess.Identity.UID = uid
	return b
}

// WithEmail sets the identity email.
func (b *SessionBuilder) WithEmail(email string) *SessionBuilder {
	b.sess.Identity.Email = email
	return b
}

// WithDisplayName sets the identity display name.
func (b *SessionBuilder) WithDisplayName(name string) *SessionBuilder {
	b.sess.Identity.DisplayName = name
	return b
}

// WithPhotoURL sets the identity photo URL.
func (b *SessionBuilder) WithPhotoURL(url string) *SessionBuilder {
	b.sess.Identity.PhotoURL = url
	return b
}

// WithEmailVerified sets the email verification flag.
func (b *SessionBuilder) WithEmailVerified(verified bool) *SessionBuilder {
	b.sess.Identity.EmailVerified = verified
	return b
}

// WithGuest marks the identity as a guest and clears the email fields.
func (b *SessionBuilder) WithGuest() *SessionBuilder {
	b.sess.Identity.IsGuest = true
	b.sess.Identity.Email = ""
	b.sess.Identity.DisplayName = ""
	b.sess.Identity.EmailVerified = false
	return b
}

// WithAccessToken sets the access token.
func (b *SessionBuilder) WithAccessToken(token string) *SessionBuilder {
	b.sess.AccessToken = token
	return b
}

// WithLoginAt sets the login timestamp.
func (b *SessionBuilder) WithLoginAt(at time.Time) *SessionBuilder {
	b.sess.Identity.LoginAt = at
	return b
}

// Build returns the constructed Session.
func (b *SessionBuilder) Build() *auth.Session {
	return b.sess
}

// GuestSession creates a guest session with default values.
func GuestSession() *auth.Session {
	return NewSession().
		WithUID("guest-1").
		WithGuest().
		WithAccessToken("guest-token").
		Build()
}
