package devauth

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	prov, err := NewProvider(Config{
		Accounts: []Account{
			{Email: "dev@example.com", Password: "hunter22", DisplayName: "Dev User", EmailVerified: true},
		},
	})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	t.Cleanup(prov.Close)
	return prov
}

func TestProvider_SignInWithPassword(t *testing.T) {
	prov := newTestProvider(t)

	sess, err := prov.SignInWithPassword(context.Background(), "dev@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignInWithPassword error: %v", err)
	}
	if sess.Identity.Email != "dev@example.com" || sess.Identity.DisplayName != "Dev User" {
		t.Fatalf("unexpected identity: %+v", sess.Identity)
	}
	if !sess.Identity.EmailVerified {
		t.Fatal("EmailVerified should carry over from the seed")
	}
	if sess.Identity.IsGuest {
		t.Fatal("password sign-in should not be a guest")
	}
	if !strings.HasPrefix(sess.Identity.UID, "dev-") {
		t.Fatalf("unexpected UID: %s", sess.Identity.UID)
	}
	if sess.AccessToken == "" {
		t.Fatal("access token should be issued")
	}
}

func TestProvider_SignInWithPassword_NormalizesEmail(t *testing.T) {
	prov := newTestProvider(t)

	sess, err := prov.SignInWithPassword(context.Background(), "  DEV@Example.COM ", "hunter22")
	if err != nil {
		t.Fatalf("SignInWithPassword error: %v", err)
	}
	if sess.Identity.Email != "dev@example.com" {
		t.Fatalf("unexpected email: %s", sess.Identity.Email)
	}
}

func TestProvider_SignInWithPassword_Failures(t *testing.T) {
	prov := newTestProvider(t)

	_, err := prov.SignInWithPassword(context.Background(), "ghost@example.com", "hunter22")
	if !autherr.IsAccountNotFound(err) {
		t.Fatalf("want AccountNotFound, got %v", err)
	}

	_, err = prov.SignInWithPassword(context.Background(), "dev@example.com", "wrong")
	if !autherr.IsInvalidCredentials(err) {
		t.Fatalf("want InvalidCredentials, got %v", err)
	}
}

func TestProvider_SignUpWithPassword(t *testing.T) {
	prov := newTestProvider(t)

	sess, err := prov.SignUpWithPassword(context.Background(), "new@example.com", "hunter22", "Newbie")
	if err != nil {
		t.Fatalf("SignUpWithPassword error: %v", err)
	}
	if sess.Identity.DisplayName != "Newbie" {
		t.Fatalf("unexpected display name: %s", sess.Identity.DisplayName)
	}

	// The new account signs in with its own credentials.
	again, err := prov.SignInWithPassword(context.Background(), "new@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignInWithPassword after sign-up error: %v", err)
	}
	if again.Identity.UID != sess.Identity.UID {
		t.Fatalf("UID changed across sign-ins: %s vs %s", again.Identity.UID, sess.Identity.UID)
	}
}

func TestProvider_SignUpWithPassword_Failures(t *testing.T) {
	prov := newTestProvider(t)

	_, err := prov.SignUpWithPassword(context.Background(), "dev@example.com", "hunter22", "")
	if !autherr.IsEmailInUse(err) {
		t.Fatalf("want EmailInUse, got %v", err)
	}

	_, err = prov.SignUpWithPassword(context.Background(), "not-an-email", "hunter22", "")
	if !autherr.IsInvalidEmail(err) {
		t.Fatalf("want InvalidEmail, got %v", err)
	}

	_, err = prov.SignUpWithPassword(context.Background(), "new@example.com", "short", "")
	if !autherr.IsWeakPassword(err) {
		t.Fatalf("want WeakPassword, got %v", err)
	}
}

func TestProvider_SignInAnonymously(t *testing.T) {
	prov := newTestProvider(t)

	first, err := prov.SignInAnonymously(context.Background())
	if err != nil {
		t.Fatalf("SignInAnonymously error: %v", err)
	}
	if !first.Identity.IsGuest {
		t.Fatal("guest flag should be set")
	}
	if !strings.HasPrefix(first.Identity.UID, "guest-") {
		t.Fatalf("unexpected guest UID: %s", first.Identity.UID)
	}

	second, err := prov.SignInAnonymously(context.Background())
	if err != nil {
		t.Fatalf("SignInAnonymously error: %v", err)
	}
	if first.Identity.UID == second.Identity.UID {
		t.Fatal("each guest should get a fresh UID")
	}
}

func TestProvider_SignInFederated(t *testing.T) {
	prov := newTestProvider(t)
	if _, err := prov.SignInFederated(context.Background()); !autherr.IsProviderMisconfigured(err) {
		t.Fatalf("want ProviderMisconfigured without a federated account, got %v", err)
	}

	withFed, err := NewProvider(Config{
		Federated: &Account{Email: "sso@example.com", DisplayName: "SSO User", EmailVerified: true},
	})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	t.Cleanup(withFed.Close)

	sess, err := withFed.SignInFederated(context.Background())
	if err != nil {
		t.Fatalf("SignInFederated error: %v", err)
	}
	if sess.Identity.Email != "sso@example.com" || !sess.Identity.EmailVerified {
		t.Fatalf("unexpected identity: %+v", sess.Identity)
	}
}

func TestProvider_TokenClaims(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	prov, err := NewProvider(Config{
		Accounts:   []Account{{Email: "dev@example.com", Password: "hunter22"}},
		SigningKey: "test-key",
		Now:        func() time.Time { return fixed },
	})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}
	t.Cleanup(prov.Close)

	sess, err := prov.SignInWithPassword(context.Background(), "dev@example.com", "hunter22")
	if err != nil {
		t.Fatalf("SignInWithPassword error: %v", err)
	}

	parsed, err := jwt.Parse(sess.AccessToken, func(tok *jwt.Token) (any, error) {
		return []byte("test-key"), nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(func() time.Time { return fixed }))
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("unexpected claims type %T", parsed.Claims)
	}
	if claims["sub"] != sess.Identity.UID {
		t.Fatalf("sub claim %v does not match UID %s", claims["sub"], sess.Identity.UID)
	}
	if claims["email"] != "dev@example.com" {
		t.Fatalf("unexpected email claim: %v", claims["email"])
	}
	exp, ok := claims["exp"].(float64)
	if !ok || int64(exp) != fixed.Add(8*time.Hour).Unix() {
		t.Fatalf("unexpected exp claim: %v", claims["exp"])
	}
}

func TestProvider_EmitDeliversChanges(t *testing.T) {
	prov := newTestProvider(t)

	prov.Emit(ports.ProviderChange{})

	select {
	case change := <-prov.Changes():
		if change.Session != nil {
			t.Fatalf("expected signed-out change, got %+v", change.Session)
		}
	case <-time.After(time.Second):
		t.Fatal("no change delivered")
	}
}

func TestProvider_Close_Idempotent(t *testing.T) {
	prov, err := NewProvider(Config{})
	if err != nil {
		t.Fatalf("NewProvider error: %v", err)
	}

	prov.Close()
	prov.Close()

	if _, ok := <-prov.Changes(); ok {
		t.Fatal("change channel should be closed")
	}
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	_, err := NewProvider(Config{Accounts: []Account{{Password: "pw"}}})
	if err == nil || !strings.Contains(err.Error(), "email is required") {
		t.Fatalf("want email validation error, got %v", err)
	}

	_, err = NewProvider(Config{Accounts: []Account{{Email: "dev@example.com"}}})
	if err == nil || !strings.Contains(err.Error(), "password is required") {
		t.Fatalf("want password validation error, got %v", err)
	}
}
