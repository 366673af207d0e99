package devauth

// Package devauth provides a config-driven IdentityProvider for local
// development: a seeded in-memory account registry and locally signed access
// tokens, with no network at all.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// defaultSigningKey signs dev tokens when none is configured. Not a secret.
const defaultSigningKey = "foyer-dev-signing-key"

const minPasswordLength = 6

// Account seeds one development account.
type Account struct {
	Email         string
	Password      string
	DisplayName   string
	PhotoURL      string
	EmailVerified bool
}

// Config controls the dev auth provider behavior.
type Config struct {
	// Accounts pre-seed the registry. Sign-ups add to it at runtime.
	Accounts []Account
	// Federated is the identity federated sign-in resolves to. When nil,
	// federated sign-in fails the same way a missing flow would.
	Federated *Account
	// SigningKey signs the local access tokens. Defaults to a fixed dev key.
	SigningKey string
	// SessionDuration sets token lifetime, default 8h.
	SessionDuration time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

type account struct {
	uid           string
	email         string
	password      string
	displayName   string
	photoURL      string
	emailVerified bool
}

// Provider implements ports.IdentityProvider against an in-memory registry.
type Provider struct {
	mu       sync.Mutex
	accounts map[string]*account

	federated       *account
	signingKey      []byte
	sessionDuration time.Duration
	logger          *slog.Logger
	now             func() time.Time

	changes   chan ports.ProviderChange
	closeOnce sync.Once
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	key := cfg.SigningKey
	if key == "" {
		key = defaultSigningKey
	}
	dur := cfg.SessionDuration
	if dur == 0 {
		dur = 8 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	p := &Provider{
		accounts:        make(map[string]*account, len(cfg.Accounts)),
		signingKey:      []byte(key),
		sessionDuration: dur,
		logger:          logger,
		now:             now,
		changes:         make(chan ports.ProviderChange, 8),
	}
	for i, seed := range cfg.Accounts {
		if strings.TrimSpace(seed.Email) == "" {
			return nil, fmt.Errorf("dev auth: account %d: email is required", i)
		}
		if seed.Password == "" {
			return nil, fmt.Errorf("dev auth: account %d: password is required", i)
		}
		acct := seedAccount(seed)
		p.accounts[acct.email] = acct
	}
	if cfg.Federated != nil {
		if strings.TrimSpace(cfg.Federated.Email) == "" {
			return nil, errors.New("dev auth: federated account: email is required")
		}
		p.federated = seedAccount(*cfg.Federated)
	}
	return p, nil
}

// seedAccount normalizes a configured account. UIDs are derived from the
// email so they stay stable across restarts.
func seedAccount(seed Account) *account {
	email := strings.ToLower(strings.TrimSpace(seed.Email))
	return &account{
		uid:           deriveUID(email),
		email:         email,
		password:      seed.Password,
		displayName:   seed.DisplayName,
		photoURL:      seed.PhotoURL,
		emailVerified: seed.EmailVerified,
	}
}

func deriveUID(email string) string {
	return "dev-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("devauth:"+email)).String()
}

// SignInWithPassword authenticates against the registry.
func (p *Provider) SignInWithPassword(_ context.Context, email, password string) (domainauth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	acct, ok := p.accounts[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return domainauth.Session{}, autherr.AccountNotFound()
	}
	if acct.password != password {
		return domainauth.Session{}, autherr.InvalidCredentials()
	}
	return p.sessionFor(acct)
}

// SignUpWithPassword registers a new account. Unlike a real provider the
// display name lands in the same step; the partial-failure path needs a
// remote API to exist.
func (p *Provider) SignUpWithPassword(_ context.Context, email, password, displayName string) (domainauth.Session, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(normalized, "@") {
		return domainauth.Session{}, autherr.InvalidEmail()
	}
	if len(password) < minPasswordLength {
		return domainauth.Session{}, autherr.WeakPassword()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.accounts[normalized]; exists {
		return domainauth.Session{}, autherr.EmailInUse()
	}
	acct := &account{
		uid:         deriveUID(normalized),
		email:       normalized,
		password:    password,
		displayName: displayName,
	}
	p.accounts[normalized] = acct
	return p.sessionFor(acct)
}

// SignInFederated resolves instantly to the configured federated identity.
func (p *Provider) SignInFederated(_ context.Context) (domainauth.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.federated == nil {
		return domainauth.Session{}, autherr.ProviderMisconfigured()
	}
	return p.sessionFor(p.federated)
}

// SignInAnonymously mints a fresh guest with a random UID.
func (p *Provider) SignInAnonymously(_ context.Context) (domainauth.Session, error) {
	uid := "guest-" + uuid.NewString()
	token, err := p.issueToken(uid, "", true)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("sign dev token: %w", err)
	}
	return domainauth.Session{
		Identity:    domainauth.Identity{UID: uid, IsGuest: true},
		AccessToken: token,
	}, nil
}

// Changes delivers provider-originated session updates. Closed by Close.
func (p *Provider) Changes() <-chan ports.ProviderChange {
	return p.changes
}

// Emit publishes a provider change, letting development setups script
// session updates from outside.
func (p *Provider) Emit(change ports.ProviderChange) {
	select {
	case p.changes <- change:
	default:
		p.logger.Warn("dropping provider change, subscriber not draining")
	}
}

// Close closes the change channel. Idempotent.
func (p *Provider) Close() {
	p.closeOnce.Do(func() {
		close(p.changes)
	})
}

func (p *Provider) sessionFor(acct *account) (domainauth.Session, error) {
	token, err := p.issueToken(acct.uid, acct.email, false)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("sign dev token: %w", err)
	}
	return domainauth.Session{
		Identity: domainauth.Identity{
			UID:           acct.uid,
			Email:         acct.email,
			DisplayName:   acct.displayName,
			PhotoURL:      acct.photoURL,
			EmailVerified: acct.emailVerified,
		},
		AccessToken: token,
	}, nil
}

// issueToken signs an HS256 token shaped like the real provider's, so
// anything downstream that decodes tokens works the same in development.
func (p *Provider) issueToken(uid, email string, guest bool) (string, error) {
	now := p.now()
	claims := jwt.MapClaims{
		"iss": "foyer-devauth",
		"sub": uid,
		"iat": now.Unix(),
		"exp": now.Add(p.sessionDuration).Unix(),
	}
	if email != "" {
		claims["email"] = email
	}
	if guest {
		claims["guest"] = true
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.signingKey)
}
