package identitykit

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/singleflight"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

// refreshState is the session the refresher keeps alive.
type refreshState struct {
	session      domainauth.Session
	refreshToken string
	expiresAt    time.Time
}

// refresher renews the tracked session's access token shortly before expiry
// and publishes each renewal as a provider change.
type refresher struct {
	client *Client
	margin time.Duration
	group  singleflight.Group

	mu      sync.Mutex
	state   *refreshState
	timer   *time.Timer
	stopped bool

	wg sync.WaitGroup
}

func newRefresher(client *Client, margin time.Duration) *refresher {
	return &refresher{client: client, margin: margin}
}

// track replaces the session under refresh. Called on every sign-in.
func (r *refresher) track(sess domainauth.Session, refreshToken string, expiresAt time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.state = &refreshState{session: sess, refreshToken: refreshToken, expiresAt: expiresAt}
	r.armLocked()
}

// clear forgets the tracked session, stopping future refreshes.
func (r *refresher) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

// stop ends the refresher and waits out any in-flight refresh, after which
// closing the client's change channel is safe.
func (r *refresher) stop() {
	r.mu.Lock()
	r.stopped = true
	r.state = nil
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
}

// armLocked schedules the next refresh. Caller holds r.mu and guarantees
// r.state is non-nil.
func (r *refresher) armLocked() {
	if r.timer != nil {
		r.timer.Stop()
	}
	delay := r.state.expiresAt.Add(-r.margin).Sub(r.client.now())
	if delay < 0 {
		delay = 0
	}
	r.timer = time.AfterFunc(delay, r.fire)
}

// fire runs when the refresh timer elapses.
func (r *refresher) fire() {
	r.mu.Lock()
	if r.stopped || r.state == nil {
		r.mu.Unlock()
		return
	}
	state := *r.state
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	// Collapse overlapping fires into a single exchange.
	r.group.Do("refresh", func() (any, error) {
		r.refresh(state)
		return nil, nil
	})
}

// refresh exchanges the refresh token for a new access token, retrying
// transient network failures with fibonacci backoff. A revoked session
// clears the tracked state and publishes a signed-out change.
func (r *refresher) refresh(state refreshState) {
	ctx, cancel := context.WithTimeout(r.client.bg, 2*time.Minute)
	defer cancel()

	var renewed domainauth.Session
	var nextToken string
	var expiresAt time.Time

	backoff := retry.WithMaxRetries(4, retry.NewFibonacci(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sess, tok, exp, err := r.refreshSession(ctx, state)
		if err != nil {
			if autherr.IsNetwork(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		renewed, nextToken, expiresAt = sess, tok, exp
		return nil
	})
	if err != nil {
		if isRemoteSignOut(err) {
			r.client.logger.Info("session revoked by provider", "uid", state.session.Identity.UID)
			r.clear()
			r.client.emit(ports.ProviderChange{})
			return
		}
		r.client.logger.Warn("token refresh failed, will retry", "error", err)
		r.mu.Lock()
		if !r.stopped && r.state != nil {
			if r.timer != nil {
				r.timer.Stop()
			}
			r.timer = time.AfterFunc(time.Minute, r.fire)
		}
		r.mu.Unlock()
		return
	}

	r.mu.Lock()
	if r.stopped || r.state == nil {
		// A sign-out won the race; drop the renewal.
		r.mu.Unlock()
		return
	}
	r.state = &refreshState{session: renewed, refreshToken: nextToken, expiresAt: expiresAt}
	r.armLocked()
	r.mu.Unlock()

	r.client.emit(ports.ProviderChange{Session: &renewed})
}

// tokenResponse is the token endpoint's reply. Unlike the accounts
// endpoints it uses snake_case field names.
type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
}

// refreshSession exchanges the refresh token for a fresh access token,
// carrying the identity over unchanged.
func (r *refresher) refreshSession(ctx context.Context, state refreshState) (domainauth.Session, string, time.Time, error) {
	var resp tokenResponse
	in := map[string]any{"grantType": "refresh_token", "refreshToken": state.refreshToken}
	if err := r.client.post(ctx, "token", in, &resp); err != nil {
		return domainauth.Session{}, "", time.Time{}, MapError(err)
	}

	seconds, err := strconv.Atoi(resp.ExpiresIn)
	if err != nil || seconds <= 0 {
		seconds = 3600
	}

	sess := state.session
	sess.AccessToken = resp.IDToken

	nextToken := resp.RefreshToken
	if nextToken == "" {
		nextToken = state.refreshToken
	}
	return sess, nextToken, r.client.now().Add(time.Duration(seconds) * time.Second), nil
}
