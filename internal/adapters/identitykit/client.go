package identitykit

// Package identitykit implements ports.IdentityProvider against an Identity
// Toolkit-style REST API: password sign-in and sign-up, anonymous sign-in, a
// display-name update step, profile lookup, and token refresh. Federated
// sign-in is delegated to an injected ports.FederatedFlow.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.IdentityProvider = (*Client)(nil)
	_ ports.SessionDropper   = (*Client)(nil)
)

const (
	defaultTimeout       = 30 * time.Second
	defaultRefreshMargin = 5 * time.Minute
	changeBuffer         = 8
)

// Config captures the subset of the provider API this client needs.
type Config struct {
	// BaseURL of the accounts API, e.g. "https://id.example.com/v1".
	BaseURL string
	// APIKey identifies the project. Opaque here: bad keys are rejected by
	// the provider, never validated locally.
	APIKey string
	// Flow runs interactive federated sign-in. Optional; federated sign-in
	// fails with ProviderMisconfigured when absent.
	Flow ports.FederatedFlow
	// Timeout bounds each round-trip when Client is nil.
	Timeout time.Duration
	// RefreshMargin is how long before token expiry a refresh runs.
	RefreshMargin time.Duration
	// Client overrides the HTTP client.
	Client *http.Client
	// Logger defaults to slog.Default().
	Logger *slog.Logger
	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Client talks to an Identity Toolkit-style REST API. It publishes
// provider-originated session updates (token refresh, revocation) on the
// change channel.
type Client struct {
	baseURL string
	apiKey  string
	flow    ports.FederatedFlow
	hc      *http.Client
	logger  *slog.Logger
	now     func() time.Time

	changes   chan ports.ProviderChange
	refresher *refresher

	bg        context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

// NewClient builds a provider client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identitykit: BaseURL is required")
	}
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("identitykit: APIKey is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	margin := cfg.RefreshMargin
	if margin <= 0 {
		margin = defaultRefreshMargin
	}

	bg, cancel := context.WithCancel(context.Background())
	c := &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		flow:    cfg.Flow,
		hc:      hc,
		logger:  logger,
		now:     now,
		changes: make(chan ports.ProviderChange, changeBuffer),
		bg:      bg,
		cancel:  cancel,
	}
	c.refresher = newRefresher(c, margin)
	return c, nil
}

// signInResponse is the common shape of password and anonymous sign-ins.
type signInResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignInWithPassword authenticates an existing account.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (domainauth.Session, error) {
	var resp signInResponse
	in := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := c.post(ctx, "accounts:signInWithPassword", in, &resp); err != nil {
		return domainauth.Session{}, MapError(err)
	}

	identity := domainauth.Identity{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
	}
	c.enrich(ctx, resp.IDToken, &identity)

	sess := domainauth.Session{Identity: identity, AccessToken: resp.IDToken}
	c.trackForRefresh(sess, resp.RefreshToken, resp.ExpiresIn)
	return sess, nil
}

// SignUpWithPassword creates an account, then attaches the display name as a
// second provider step. When that step fails the account is still created;
// the identity just carries no display name. Not rolled back.
func (c *Client) SignUpWithPassword(ctx context.Context, email, password, displayName string) (domainauth.Session, error) {
	var resp signInResponse
	in := map[string]any{"email": email, "password": password, "returnSecureToken": true}
	if err := c.post(ctx, "accounts:signUp", in, &resp); err != nil {
		return domainauth.Session{}, MapError(err)
	}

	identity := domainauth.Identity{
		UID:   resp.LocalID,
		Email: resp.Email,
	}
	if displayName != "" {
		if err := c.updateDisplayName(ctx, resp.IDToken, displayName); err != nil {
			c.logger.Warn("attach display name after sign-up failed",
				"uid", resp.LocalID, "error", err)
		} else {
			identity.DisplayName = displayName
		}
	}

	sess := domainauth.Session{Identity: identity, AccessToken: resp.IDToken}
	c.trackForRefresh(sess, resp.RefreshToken, resp.ExpiresIn)
	return sess, nil
}

// SignInFederated delegates to the configured interactive flow.
func (c *Client) SignInFederated(ctx context.Context) (domainauth.Session, error) {
	if c.flow == nil {
		return domainauth.Session{}, autherr.ProviderMisconfigured()
	}

	sess, err := c.flow.SignIn(ctx)
	if err != nil {
		return domainauth.Session{}, MapError(err)
	}
	return sess, nil
}

// SignInAnonymously creates a guest account: a sign-up with no credentials.
func (c *Client) SignInAnonymously(ctx context.Context) (domainauth.Session, error) {
	var resp signInResponse
	if err := c.post(ctx, "accounts:signUp", map[string]any{"returnSecureToken": true}, &resp); err != nil {
		return domainauth.Session{}, MapError(err)
	}

	sess := domainauth.Session{
		Identity:    domainauth.Identity{UID: resp.LocalID, IsGuest: true},
		AccessToken: resp.IDToken,
	}
	c.trackForRefresh(sess, resp.RefreshToken, resp.ExpiresIn)
	return sess, nil
}

// Changes delivers provider-originated session updates. Closed by Close.
func (c *Client) Changes() <-chan ports.ProviderChange {
	return c.changes
}

// DropSession forgets the active session after a local sign-out, so the
// refresher stops renewing a token nobody holds.
func (c *Client) DropSession() {
	c.refresher.clear()
}

// Close stops background refresh and closes the change channel. Idempotent.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.refresher.stop()
		close(c.changes)
	})
}

// lookupUser is one entry of an accounts:lookup response.
type lookupUser struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"emailVerified"`
	DisplayName   string `json:"displayName"`
	PhotoURL      string `json:"photoUrl"`
}

// enrich fills profile fields the sign-in response does not carry. Lookup
// failures are logged and swallowed: the identity essentials are already
// known and verification state is advisory.
func (c *Client) enrich(ctx context.Context, idToken string, identity *domainauth.Identity) {
	info, err := c.lookup(ctx, idToken)
	if err != nil {
		c.logger.Warn("profile lookup after sign-in failed", "uid", identity.UID, "error", err)
		return
	}

	identity.EmailVerified = info.EmailVerified
	if info.DisplayName != "" {
		identity.DisplayName = info.DisplayName
	}
	if info.PhotoURL != "" {
		identity.PhotoURL = info.PhotoURL
	}
	if identity.Email == "" {
		identity.Email = info.Email
	}
}

func (c *Client) lookup(ctx context.Context, idToken string) (lookupUser, error) {
	var resp struct {
		Users []lookupUser `json:"users"`
	}
	if err := c.post(ctx, "accounts:lookup", map[string]any{"idToken": idToken}, &resp); err != nil {
		return lookupUser{}, err
	}
	if len(resp.Users) == 0 {
		return lookupUser{}, errors.New("lookup returned no users")
	}
	return resp.Users[0], nil
}

func (c *Client) updateDisplayName(ctx context.Context, idToken, displayName string) error {
	var resp struct {
		DisplayName string `json:"displayName"`
	}
	in := map[string]any{"idToken": idToken, "displayName": displayName, "returnSecureToken": false}
	return c.post(ctx, "accounts:update", in, &resp)
}

// trackForRefresh arms the background refresher for a fresh session. The
// provider reports expiry as seconds-in-a-string; an unusable value disables
// refresh for this session rather than failing the sign-in.
func (c *Client) trackForRefresh(sess domainauth.Session, refreshToken, expiresIn string) {
	if refreshToken == "" {
		return
	}
	seconds, err := strconv.Atoi(expiresIn)
	if err != nil || seconds <= 0 {
		c.logger.Warn("provider returned unusable token expiry", "expiresIn", expiresIn)
		return
	}
	c.refresher.track(sess, refreshToken, c.now().Add(time.Duration(seconds)*time.Second))
}

// emit publishes a provider change without blocking: a subscriber that has
// fallen behind misses an update rather than stalling refresh.
func (c *Client) emit(change ports.ProviderChange) {
	select {
	case c.changes <- change:
	default:
		c.logger.Warn("dropping provider change, subscriber not draining")
	}
}

// post sends one JSON request to an API endpoint and decodes the response
// into out. Non-2xx responses come back as *apiError for MapError.
func (c *Client) post(ctx context.Context, endpoint string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", endpoint, err)
	}

	u := c.baseURL + "/" + endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", endpoint, err)
	}

	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read %s response: %w", endpoint, readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read %s response: %w", endpoint, readErr)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
