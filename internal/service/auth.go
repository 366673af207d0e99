package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
	"github.com/foyerhq/foyer/internal/ports"
)

// AuthFacadeOptions groups dependencies for AuthFacade.
type AuthFacadeOptions struct {
	Provider ports.IdentityProvider
	Store    ports.SnapshotStore

	// Watcher is optional. When set, snapshot writes made by other
	// processes of the same origin are reconciled into local state.
	Watcher ports.AreaWatcher

	AllowGuests              bool
	RequireEmailVerification bool

	Logger *slog.Logger
	Now    func() time.Time
}

// AuthFacade presents a stable local authentication contract over an
// external identity provider. It owns the in-memory identity, persists a
// snapshot of it through the store, and broadcasts a StateChange on every
// authentication-state transition.
//
// Operations are goroutine-safe with respect to internal state but impose
// no mutual exclusion between each other: two concurrent sign-ins race to
// write the snapshot with last-write-wins semantics.
type AuthFacade struct {
	provider ports.IdentityProvider
	store    ports.SnapshotStore
	watcher  ports.AreaWatcher

	allowGuests   bool
	requireVerify bool
	logger        *slog.Logger
	now           func() time.Time

	mu      sync.Mutex
	state   domainauth.State
	current *domainauth.Session
	initErr error

	bus *broadcaster

	initOnce  sync.Once
	closeOnce sync.Once

	pumpCtx    context.Context
	pumpCancel context.CancelFunc
	wg         sync.WaitGroup
}

// NewAuthFacade constructs a new AuthFacade. The façade starts
// Uninitialized; call Initialize before any state-changing operation.
func NewAuthFacade(opts AuthFacadeOptions) (*AuthFacade, error) {
	if opts.Provider == nil {
		return nil, errors.New("Provider is required")
	}
	if opts.Store == nil {
		return nil, errors.New("Store is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "auth_facade")

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &AuthFacade{
		provider:      opts.Provider,
		store:         opts.Store,
		watcher:       opts.Watcher,
		allowGuests:   opts.AllowGuests,
		requireVerify: opts.RequireEmailVerification,
		logger:        logger,
		now:           now,
		state:         domainauth.StateUninitialized,
		bus:           newBroadcaster(),
		pumpCtx:       ctx,
		pumpCancel:    cancel,
	}, nil
}

// Initialize restores any persisted session snapshot and starts the
// provider-change and watch pumps. It runs exactly once: later calls
// return the first outcome without retrying, even after failure.
func (f *AuthFacade) Initialize(ctx context.Context) error {
	f.initOnce.Do(func() { f.initialize(ctx) })

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initErr
}

func (f *AuthFacade) initialize(ctx context.Context) {
	f.mu.Lock()
	f.state = domainauth.StateInitializing
	f.mu.Unlock()

	snap, err := f.store.Load(ctx)
	if err != nil {
		f.logger.Error("restore session snapshot", "error", err)
		f.mu.Lock()
		f.state = domainauth.StateFailed
		f.initErr = normalizeErr(err)
		f.mu.Unlock()
		return
	}

	var restored *domainauth.Session
	if snap != nil {
		restored = &domainauth.Session{
			Identity:    snap.Identity,
			AccessToken: snap.AccessToken,
		}
	}

	f.mu.Lock()
	f.state = domainauth.StateReady
	f.current = restored
	f.mu.Unlock()

	f.wg.Add(1)
	go f.providerPump()
	if f.watcher != nil {
		f.wg.Add(1)
		go f.watchPump()
	}

	if restored != nil {
		f.logger.Info("restored session from snapshot", "uid", restored.Identity.UID)
		id := restored.Identity
		f.bus.broadcast(domainauth.StateChange{Identity: &id, Authenticated: true})
	} else {
		f.bus.broadcast(domainauth.StateChange{})
	}
}

// IsReady reports whether initialization completed successfully.
func (f *AuthFacade) IsReady() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state == domainauth.StateReady
}

// State returns the current lifecycle state.
func (f *AuthFacade) State() domainauth.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SignInWithPassword authenticates an existing account and replaces the
// current identity on success.
func (f *AuthFacade) SignInWithPassword(ctx context.Context, email, password string) (*domainauth.Identity, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}

	sess, err := f.provider.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return f.completeSignIn(ctx, sess, "password"), nil
}

// SignUpWithPassword creates an account and signs it in. The display name
// is attached by the provider as a second step; when that step fails the
// account still exists and the returned identity carries no display name.
func (f *AuthFacade) SignUpWithPassword(ctx context.Context, email, password, displayName string) (*domainauth.Identity, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}

	sess, err := f.provider.SignUpWithPassword(ctx, email, password, displayName)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return f.completeSignIn(ctx, sess, "signup"), nil
}

// SignInWithFederatedProvider runs the provider's interactive consent flow.
func (f *AuthFacade) SignInWithFederatedProvider(ctx context.Context) (*domainauth.Identity, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}

	sess, err := f.provider.SignInFederated(ctx)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return f.completeSignIn(ctx, sess, "federated"), nil
}

// SignInAsGuest creates an anonymous session. It fails with GuestDisabled
// before any provider call when guests are switched off by configuration.
func (f *AuthFacade) SignInAsGuest(ctx context.Context) (*domainauth.Identity, error) {
	if err := f.requireReady(); err != nil {
		return nil, err
	}
	if !f.allowGuests {
		return nil, autherr.GuestDisabled()
	}

	sess, err := f.provider.SignInAnonymously(ctx)
	if err != nil {
		return nil, normalizeErr(err)
	}
	return f.completeSignIn(ctx, sess, "guest"), nil
}

// SignOut clears the current identity and the persisted snapshot. It is
// idempotent: signing out while signed out succeeds and still clears any
// stale snapshot. The state event is emitted after the store clear.
func (f *AuthFacade) SignOut(ctx context.Context) error {
	if err := f.requireReady(); err != nil {
		return err
	}

	if err := f.store.Clear(ctx); err != nil {
		return normalizeErr(err)
	}

	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()

	if dropper, ok := f.provider.(ports.SessionDropper); ok {
		dropper.DropSession()
	}

	f.bus.broadcast(domainauth.StateChange{})
	return nil
}

// GetCurrentIdentity returns a copy of the in-memory identity, or nil when
// signed out.
func (f *AuthFacade) GetCurrentIdentity() *domainauth.Identity {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current == nil {
		return nil
	}
	id := f.current.Identity
	return &id
}

// GetStoredSession reads the persisted snapshot without touching the
// provider. It works before Ready; callers use it to answer "is a user
// already logged in" while initialization is still pending.
func (f *AuthFacade) GetStoredSession(ctx context.Context) (*domainauth.Identity, error) {
	snap, err := f.store.Load(ctx)
	if err != nil {
		return nil, normalizeErr(err)
	}
	if snap == nil {
		return nil, nil
	}
	id := snap.Identity
	return &id, nil
}

// IsAuthenticated reports whether an in-memory identity or a stored
// snapshot exists. It is an optimistic signal and does not verify the
// session with the provider.
func (f *AuthFacade) IsAuthenticated(ctx context.Context) bool {
	f.mu.Lock()
	signedIn := f.current != nil
	f.mu.Unlock()
	if signedIn {
		return true
	}

	snap, err := f.store.Load(ctx)
	if err != nil {
		f.logger.Warn("read session snapshot", "error", err)
		return false
	}
	return snap != nil
}

// Subscribe registers a listener for authentication state changes. The
// returned func unsubscribes and closes the channel.
func (f *AuthFacade) Subscribe() (<-chan domainauth.StateChange, func()) {
	return f.bus.subscribe()
}

// Close stops the background pumps and closes all subscriber channels.
// Idempotent.
func (f *AuthFacade) Close() {
	f.closeOnce.Do(func() {
		f.pumpCancel()
		f.wg.Wait()
		f.bus.stopAll()
	})
}

func (f *AuthFacade) requireReady() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != domainauth.StateReady {
		return autherr.NotInitialized()
	}
	return nil
}

// completeSignIn normalizes the provider session, persists the snapshot,
// replaces the in-memory identity, and emits the state event after the
// store write. A failed store write is logged and does not fail the
// sign-in.
func (f *AuthFacade) completeSignIn(ctx context.Context, sess domainauth.Session, method string) *domainauth.Identity {
	if sess.Identity.DisplayName == "" {
		sess.Identity.DisplayName = domainauth.DefaultDisplayName
	}
	sess.Identity.LoginAt = f.now()

	if f.requireVerify && !sess.Identity.IsGuest && !sess.Identity.EmailVerified {
		f.logger.Warn("signed-in identity has an unverified email",
			"uid", sess.Identity.UID, "email", sess.Identity.Email)
	}

	extra := map[string]any{"signInMethod": method}
	if err := f.store.Save(ctx, sess, extra); err != nil {
		f.logger.Warn("persist session snapshot", "error", err)
	}

	f.mu.Lock()
	f.current = &sess
	f.mu.Unlock()

	id := sess.Identity
	f.bus.broadcast(domainauth.StateChange{Identity: &id, Authenticated: true})
	return &id
}

// providerPump re-emits provider-originated session updates (token
// refresh, remote sign-out) as state events, keeping the snapshot in step.
func (f *AuthFacade) providerPump() {
	defer f.wg.Done()

	changes := f.provider.Changes()
	for {
		select {
		case <-f.pumpCtx.Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			if change.Session == nil {
				f.handleRemoteSignOut()
			} else {
				f.handleRenewedSession(*change.Session)
			}
		}
	}
}

func (f *AuthFacade) handleRemoteSignOut() {
	if err := f.store.Clear(f.pumpCtx); err != nil {
		f.logger.Warn("clear session snapshot after remote sign-out", "error", err)
	}

	f.mu.Lock()
	f.current = nil
	f.mu.Unlock()

	f.logger.Info("signed out by provider")
	f.bus.broadcast(domainauth.StateChange{})
}

func (f *AuthFacade) handleRenewedSession(sess domainauth.Session) {
	f.mu.Lock()
	if f.current != nil && f.current.Identity.UID == sess.Identity.UID {
		// A renewal carries the provider's raw identity; keep the
		// normalized one we already hold and swap the token.
		sess.Identity = f.current.Identity
	} else {
		if sess.Identity.DisplayName == "" {
			sess.Identity.DisplayName = domainauth.DefaultDisplayName
		}
		sess.Identity.LoginAt = f.now()
	}
	f.current = &sess
	f.mu.Unlock()

	extra := f.storedExtra()
	if err := f.store.Save(f.pumpCtx, sess, extra); err != nil {
		f.logger.Warn("persist renewed session snapshot", "error", err)
	}

	id := sess.Identity
	f.bus.broadcast(domainauth.StateChange{Identity: &id, Authenticated: true})
}

// storedExtra preserves caller-supplied extra fields across snapshot
// rewrites that a renewal triggers.
func (f *AuthFacade) storedExtra() map[string]any {
	snap, err := f.store.Load(f.pumpCtx)
	if err != nil || snap == nil {
		return nil
	}
	return snap.Extra
}

// settleWindow coalesces bursts of watch events before reconciling; one
// snapshot write touches two keys.
const settleWindow = 50 * time.Millisecond

// watchPump reconciles snapshot writes made by other processes of the same
// origin into local state.
func (f *AuthFacade) watchPump() {
	defer f.wg.Done()

	events, err := f.watcher.Watch(f.pumpCtx)
	if err != nil {
		f.logger.Warn("watch storage area", "error", err)
		return
	}

	for {
		select {
		case <-f.pumpCtx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			f.settle(events)
			f.reconcileSnapshot()
		}
	}
}

// settle waits until the event stream has been quiet for settleWindow so a
// multi-key write is reconciled once, against its final state.
func (f *AuthFacade) settle(events <-chan struct{}) {
	timer := time.NewTimer(settleWindow)
	defer timer.Stop()

	for {
		select {
		case <-f.pumpCtx.Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(settleWindow)
		case <-timer.C:
			return
		}
	}
}

// reconcileSnapshot diffs the persisted snapshot against in-memory state
// and re-emits the difference. Echoes of our own writes are no-ops.
func (f *AuthFacade) reconcileSnapshot() {
	snap, err := f.store.Load(f.pumpCtx)
	if err != nil {
		f.logger.Warn("reload session snapshot", "error", err)
		return
	}

	f.mu.Lock()
	current := f.current
	switch {
	case snap == nil && current == nil:
		f.mu.Unlock()
		return
	case snap == nil:
		f.current = nil
		f.mu.Unlock()
		if dropper, ok := f.provider.(ports.SessionDropper); ok {
			dropper.DropSession()
		}
		f.logger.Info("signed out by another process")
		f.bus.broadcast(domainauth.StateChange{})
		return
	case current != nil && current.Identity.UID == snap.Identity.UID && current.AccessToken == snap.AccessToken:
		f.mu.Unlock()
		return
	default:
		sess := &domainauth.Session{Identity: snap.Identity, AccessToken: snap.AccessToken}
		f.current = sess
		f.mu.Unlock()
		f.logger.Info("adopted session written by another process", "uid", snap.Identity.UID)
		id := snap.Identity
		f.bus.broadcast(domainauth.StateChange{Identity: &id, Authenticated: true})
	}
}

// normalizeErr guarantees callers only ever see the normalized taxonomy;
// anything else rides along as the wrapped cause.
func normalizeErr(err error) error {
	if err == nil {
		return nil
	}
	var authErr *autherr.AuthError
	if errors.As(err, &authErr) {
		return err
	}
	return autherr.Wrap(err, autherr.ErrCodeUnknown)
}
