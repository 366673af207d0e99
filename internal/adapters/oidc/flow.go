package oidc

// Package oidc runs interactive federated sign-in against any OIDC provider.
// The browser leg uses a loopback redirect: the flow listens on a local port,
// hands the user an authorization URL, and waits for the provider to redirect
// back with a code.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	jmespath "github.com/jmespath-community/go-jmespath"
	"golang.org/x/oauth2"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

var _ ports.FederatedFlow = (*Flow)(nil)

// JMESPathEvaluator abstracts JMESPath operations for testability.
type JMESPathEvaluator interface {
	Validate(expr string) error
	Evaluate(expr string, data any) (any, error)
}

// jmespathLibEvaluator implements JMESPathEvaluator using go-jmespath.
type jmespathLibEvaluator struct{}

func (j jmespathLibEvaluator) Validate(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

func (j jmespathLibEvaluator) Evaluate(expr string, data any) (any, error) {
	return jmespath.Search(expr, data)
}

// ClaimMappings holds JMESPath expressions evaluated against the verified
// token claims (and, for missing fields, the userinfo payload) to produce an
// identity. Zero values fall back to the standard OIDC claim names.
type ClaimMappings struct {
	UID           string
	Email         string
	DisplayName   string
	PhotoURL      string
	EmailVerified string
}

func (m ClaimMappings) withDefaults() ClaimMappings {
	if m.UID == "" {
		m.UID = "sub"
	}
	if m.Email == "" {
		m.Email = "email"
	}
	if m.DisplayName == "" {
		m.DisplayName = "name"
	}
	if m.PhotoURL == "" {
		m.PhotoURL = "picture"
	}
	if m.EmailVerified == "" {
		m.EmailVerified = "email_verified"
	}
	return m
}

// FlowConfig holds configuration for the federated sign-in flow.
type FlowConfig struct {
	ClientID     string
	ClientSecret string
	DiscoveryURL string
	// Scope defaults to "openid profile email" and must include "openid".
	Scope string
	// ListenAddr is where the loopback redirect listens. Defaults to
	// "127.0.0.1:0", a random free port.
	ListenAddr string
	Claims     ClaimMappings
	Evaluator  JMESPathEvaluator // Optional, defaults to go-jmespath
	// OpenURL launches the authorization URL in a browser. When nil the URL
	// is logged for the user to open manually.
	OpenURL    func(url string) error
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
	Logger     *slog.Logger
}

// Flow implements ports.FederatedFlow over OIDC with a loopback redirect.
type Flow struct {
	config     *oauth2.Config
	claims     ClaimMappings
	jems       JMESPathEvaluator
	openURL    func(string) error
	listenAddr string
	logger     *slog.Logger
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier
}

// NewFlow validates the configuration, runs discovery once, and prepares the
// verifier. Claim mappings are compiled up front so a bad expression fails at
// startup rather than mid sign-in.
func NewFlow(cfg FlowConfig) (*Flow, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	scope := cfg.Scope
	if scope == "" {
		scope = "openid profile email"
	}
	scopes := strings.Fields(scope)
	if !slices.Contains(scopes, "openid") {
		return nil, errors.New(`scope must include "openid"`)
	}

	jems := cfg.Evaluator
	if jems == nil {
		jems = jmespathLibEvaluator{}
	}
	claims := cfg.Claims.withDefaults()
	for _, expr := range []string{claims.UID, claims.Email, claims.DisplayName, claims.PhotoURL, claims.EmailVerified} {
		if err := jems.Validate(expr); err != nil {
			return nil, fmt.Errorf("invalid claim mapping %q: %w", expr, err)
		}
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	listenAddr := cfg.ListenAddr
	if listenAddr == "" {
		listenAddr = "127.0.0.1:0"
	}

	// Single discovery fetch; endpoints and keys come from the provider.
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc discovery: %w", err)
	}

	f := &Flow{
		claims:       claims,
		jems:         jems,
		openURL:      cfg.OpenURL,
		listenAddr:   listenAddr,
		logger:       logger,
		httpClient:   httpClient,
		oidcProvider: op,
		verifier:     op.Verifier(&gooidc.Config{ClientID: cfg.ClientID}),
	}
	f.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       scopes,
		Endpoint:     op.Endpoint(),
	}
	return f, nil
}

type callbackResult struct {
	code    string
	state   string
	errCode string
	errDesc string
}

// SignIn runs one interactive sign-in. It blocks until the provider
// redirects back to the loopback listener or ctx ends; cancellation means
// the user walked away and maps to PopupClosed.
func (f *Flow) SignIn(ctx context.Context) (domainauth.Session, error) {
	state, err := generateRandomString(32)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := generateRandomString(32)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("generate nonce: %w", err)
	}

	ln, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("listen for redirect: %w", err)
	}

	conf := *f.config
	conf.RedirectURL = fmt.Sprintf("http://%s/callback", ln.Addr().String())

	results := make(chan callbackResult, 1)
	srv := &http.Server{Handler: callbackHandler(results)}
	go func() {
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			f.logger.Warn("redirect listener stopped", "error", serveErr)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			f.logger.Warn("shut down redirect listener", "error", shutdownErr)
		}
	}()

	authURL := conf.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	f.launch(authURL)

	var res callbackResult
	select {
	case <-ctx.Done():
		return domainauth.Session{}, autherr.Wrap(ctx.Err(), autherr.ErrCodePopupClosed)
	case res = <-results:
	}

	if res.errCode != "" {
		return domainauth.Session{}, mapCallbackError(res)
	}
	if res.state != state {
		return domainauth.Session{}, autherr.Unknown("sign-in response did not match this attempt")
	}
	if res.code == "" {
		return domainauth.Session{}, autherr.Unknown("sign-in response carried no authorization code")
	}

	return f.exchange(ctx, &conf, res.code, nonce)
}

func callbackHandler(results chan<- callbackResult) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		res := callbackResult{
			code:    q.Get("code"),
			state:   q.Get("state"),
			errCode: q.Get("error"),
			errDesc: q.Get("error_description"),
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if res.errCode != "" {
			fmt.Fprint(w, "<html><body><p>Sign-in was not completed. You can close this window.</p></body></html>")
		} else {
			fmt.Fprint(w, "<html><body><p>Signed in. You can close this window.</p></body></html>")
		}

		// Only the first callback counts; retries and favicon noise drop.
		select {
		case results <- res:
		default:
		}
	})
	return mux
}

// mapCallbackError normalizes an OAuth error redirect.
func mapCallbackError(res callbackResult) error {
	detail := res.errCode
	if res.errDesc != "" {
		detail += ": " + res.errDesc
	}
	cause := errors.New(detail)

	switch res.errCode {
	case "access_denied":
		// The user declined on the consent screen.
		return autherr.Wrap(cause, autherr.ErrCodePopupClosed)
	case "invalid_request", "invalid_client", "unauthorized_client", "invalid_scope":
		return autherr.Wrap(cause, autherr.ErrCodeProviderMisconfigured)
	default:
		return autherr.Wrapf(cause, autherr.ErrCodeUnknown, "%s", detail)
	}
}

func (f *Flow) launch(authURL string) {
	if f.openURL != nil {
		if err := f.openURL(authURL); err != nil {
			f.logger.Warn("open browser failed, continue manually", "url", authURL, "error", err)
		}
		return
	}
	f.logger.Info("open this URL in a browser to continue sign-in", "url", authURL)
}

func (f *Flow) exchange(ctx context.Context, conf *oauth2.Config, code, nonce string) (domainauth.Session, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)

	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("exchange code for token: %w", err)
	}

	rawID, err := getIDTokenFromToken(token)
	if err != nil {
		return domainauth.Session{}, err
	}
	idTok, err := f.verifier.Verify(ctx, rawID)
	if err != nil {
		return domainauth.Session{}, fmt.Errorf("verify id_token: %w", err)
	}
	if idTok.Nonce != nonce {
		return domainauth.Session{}, errors.New("invalid nonce")
	}

	var claims map[string]any
	if claimsErr := idTok.Claims(&claims); claimsErr != nil {
		return domainauth.Session{}, fmt.Errorf("parse id_token claims: %w", claimsErr)
	}

	identity, err := f.mapClaims(claims)
	if err != nil {
		return domainauth.Session{}, err
	}

	// Fill missing fields from UserInfo
	if identity.UID == "" || identity.Email == "" {
		if fillErr := f.fillFromUserInfo(ctx, token.AccessToken, &identity); fillErr != nil {
			f.logger.Warn("userinfo lookup failed", "error", fillErr)
		}
	}
	if identity.UID == "" {
		identity.UID = idTok.Subject
	}

	// The raw ID token is what app backends accept as the bearer credential.
	return domainauth.Session{Identity: identity, AccessToken: rawID}, nil
}

// mapClaims evaluates the configured expressions against one claim set.
func (f *Flow) mapClaims(claims map[string]any) (domainauth.Identity, error) {
	var identity domainauth.Identity
	var err error

	if identity.UID, err = f.evalString(f.claims.UID, claims); err != nil {
		return identity, fmt.Errorf("map uid claim: %w", err)
	}
	if identity.Email, err = f.evalString(f.claims.Email, claims); err != nil {
		return identity, fmt.Errorf("map email claim: %w", err)
	}
	if identity.DisplayName, err = f.evalString(f.claims.DisplayName, claims); err != nil {
		return identity, fmt.Errorf("map display name claim: %w", err)
	}
	if identity.PhotoURL, err = f.evalString(f.claims.PhotoURL, claims); err != nil {
		return identity, fmt.Errorf("map photo url claim: %w", err)
	}
	if identity.EmailVerified, err = f.evalBool(f.claims.EmailVerified, claims); err != nil {
		return identity, fmt.Errorf("map email verified claim: %w", err)
	}
	return identity, nil
}

func (f *Flow) evalString(expr string, claims map[string]any) (string, error) {
	v, err := f.jems.Evaluate(expr, claims)
	if err != nil {
		return "", err
	}
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	default:
		return fmt.Sprintf("%v", s), nil
	}
}

func (f *Flow) evalBool(expr string, claims map[string]any) (bool, error) {
	v, err := f.jems.Evaluate(expr, claims)
	if err != nil {
		return false, err
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, parseErr := strconv.ParseBool(b)
		return parseErr == nil && parsed, nil
	default:
		return false, nil
	}
}

// fillFromUserInfo applies the claim mappings to the userinfo payload and
// fills only fields the ID token left empty.
func (f *Flow) fillFromUserInfo(ctx context.Context, accessToken string, identity *domainauth.Identity) error {
	ui, err := f.oidcProvider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return fmt.Errorf("fetch user info: %w", err)
	}
	var claims map[string]any
	if claimsErr := ui.Claims(&claims); claimsErr != nil {
		return fmt.Errorf("decode user info: %w", claimsErr)
	}

	filled, err := f.mapClaims(claims)
	if err != nil {
		return err
	}
	if identity.UID == "" {
		identity.UID = filled.UID
	}
	if identity.Email == "" {
		identity.Email = filled.Email
	}
	if identity.DisplayName == "" {
		identity.DisplayName = filled.DisplayName
	}
	if identity.PhotoURL == "" {
		identity.PhotoURL = filled.PhotoURL
	}
	if !identity.EmailVerified {
		identity.EmailVerified = filled.EmailVerified
	}
	return nil
}

// generateRandomString generates a cryptographically secure URL-safe random string of exact length.
func generateRandomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	// Compute number of random bytes needed to produce at least 'length' base64 URL-safe chars
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	if len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}

// getIDTokenFromToken extracts the id_token from oauth2.Token.
func getIDTokenFromToken(tok *oauth2.Token) (string, error) {
	if tok == nil {
		return "", errors.New("nil token")
	}
	raw := tok.Extra("id_token")
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", errors.New("missing id_token in token response")
	}
	return s, nil
}
