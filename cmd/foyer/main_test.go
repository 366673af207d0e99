package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/foyerhq/foyer/config"
	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	autherr "github.com/foyerhq/foyer/internal/errors"
)

func devConfig(t *testing.T) config.AppConfig {
	t.Helper()
	return config.AppConfig{
		Auth: config.AuthConfig{
			Mode: config.ProviderModeDev,
			DevAuth: config.DevAuthConfig{
				Email:       "dev@example.com",
				Password:    "devpassword",
				DisplayName: "Dev User",
			},
			AllowGuests: true,
		},
		Store: config.StoreConfig{
			Mode: config.PersistenceModeLocal,
			Dir:  t.TempDir(),
		},
	}
}

func testCommandContext(t *testing.T, cfg config.AppConfig) (*commandContext, *bytes.Buffer) {
	t.Helper()
	out := &bytes.Buffer{}
	return &commandContext{
		Ctx:    context.Background(),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config: cfg,
		Out:    out,
	}, out
}

func TestLoginCommandPrintsIdentity(t *testing.T) {
	cmdCtx, out := testCommandContext(t, devConfig(t))

	err := runLogin(cmdCtx, []string{"-email", "dev@example.com", "-password", "devpassword"})
	require.NoError(t, err)

	require.Contains(t, out.String(), "dev@example.com")
	require.Contains(t, out.String(), "Dev User")
}

func TestLoginCommandWrongPassword(t *testing.T) {
	cmdCtx, _ := testCommandContext(t, devConfig(t))

	err := runLogin(cmdCtx, []string{"-email", "dev@example.com", "-password", "nope"})
	require.Error(t, err)
	require.True(t, autherr.IsInvalidCredentials(err))
}

func TestLoginThenStatusSharesLocalStore(t *testing.T) {
	cfg := devConfig(t)

	loginCtx, _ := testCommandContext(t, cfg)
	require.NoError(t, runLogin(loginCtx, []string{"-email", "dev@example.com", "-password", "devpassword"}))

	// A second invocation against the same directory sees the snapshot
	// without ever contacting the provider.
	statusCtx, out := testCommandContext(t, cfg)
	require.NoError(t, runStatus(statusCtx, nil))
	require.Contains(t, out.String(), "dev@example.com")
}

func TestStatusCommandEmptyStore(t *testing.T) {
	cmdCtx, out := testCommandContext(t, devConfig(t))

	require.NoError(t, runStatus(cmdCtx, nil))
	require.Contains(t, out.String(), "No stored session.")
}

func TestLogoutCommandClearsStoredSession(t *testing.T) {
	cfg := devConfig(t)

	loginCtx, _ := testCommandContext(t, cfg)
	require.NoError(t, runLogin(loginCtx, []string{"-email", "dev@example.com", "-password", "devpassword"}))

	logoutCtx, logoutOut := testCommandContext(t, cfg)
	require.NoError(t, runLogout(logoutCtx, nil))
	require.Contains(t, logoutOut.String(), "Signed out.")

	statusCtx, statusOut := testCommandContext(t, cfg)
	require.NoError(t, runStatus(statusCtx, nil))
	require.Contains(t, statusOut.String(), "No stored session.")
}

func TestSignupCommandCreatesAccount(t *testing.T) {
	cfg := devConfig(t)
	cmdCtx, out := testCommandContext(t, cfg)

	err := runSignup(cmdCtx, []string{
		"-email", "new.person@example.com",
		"-password", "longenough",
		"-name", "New Person",
	})
	require.NoError(t, err)

	require.Contains(t, out.String(), "new.person@example.com")
	require.Contains(t, out.String(), "New Person")
}

func TestSSOCommandDevMode(t *testing.T) {
	cmdCtx, out := testCommandContext(t, devConfig(t))

	require.NoError(t, runSSO(cmdCtx, nil))
	require.Contains(t, out.String(), "federated.dev@example.com")
}

func TestGuestCommand(t *testing.T) {
	cmdCtx, out := testCommandContext(t, devConfig(t))

	require.NoError(t, runGuest(cmdCtx, nil))
	require.Contains(t, out.String(), "Guest")
	require.Contains(t, out.String(), "yes")
}

func TestGuestCommandDisabled(t *testing.T) {
	cfg := devConfig(t)
	cfg.Auth.AllowGuests = false
	cmdCtx, _ := testCommandContext(t, cfg)

	err := runGuest(cmdCtx, nil)
	require.Error(t, err)
	require.True(t, autherr.IsGuestDisabled(err))
}

func TestLoginNotifiesSyncEndpoint(t *testing.T) {
	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	cfg := devConfig(t)
	cfg.Sync = config.SyncConfig{EndpointURL: srv.URL, Timeout: 5 * time.Second}
	cmdCtx, _ := testCommandContext(t, cfg)

	require.NoError(t, runLogin(cmdCtx, []string{"-email", "dev@example.com", "-password", "devpassword"}))

	select {
	case payload := <-received:
		require.Equal(t, "user.signed_in", payload["event"])
		require.Equal(t, "password", payload["method"])
		identity, ok := payload["identity"].(map[string]any)
		require.True(t, ok, "identity should be an object")
		require.Equal(t, "dev@example.com", identity["email"])
	case <-time.After(2 * time.Second):
		t.Fatal("sync endpoint was never called")
	}
}

func TestWatchCommandPrintsInitialState(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	cmdCtx, out := testCommandContext(t, devConfig(t))
	cmdCtx.Ctx = ctx

	require.NoError(t, runWatch(cmdCtx, nil))
	require.Contains(t, out.String(), "Watching authentication state")
	require.Contains(t, out.String(), "signed out")
}

func TestParseLoginFlagsRequiresEmail(t *testing.T) {
	_, err := parseLoginFlags([]string{"-password", "whatever"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "--email is required")
}

func TestPrintStateChange(t *testing.T) {
	out := &bytes.Buffer{}

	require.NoError(t, printStateChange(out, domainauth.StateChange{}))
	require.Contains(t, out.String(), "signed out")

	out.Reset()
	require.NoError(t, printStateChange(out, domainauth.StateChange{
		Identity:      &domainauth.Identity{UID: "u-1", Email: "who@example.com"},
		Authenticated: true,
	}))
	require.Contains(t, out.String(), "signed in as who@example.com")

	out.Reset()
	require.NoError(t, printStateChange(out, domainauth.StateChange{
		Identity:      &domainauth.Identity{UID: "guest-1", IsGuest: true},
		Authenticated: true,
	}))
	require.Contains(t, out.String(), "signed in as guest guest-1")
}

func TestPrintUsageListsCommands(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, printUsage(out))

	for _, name := range []string{"login", "signup", "sso", "guest", "logout", "status", "watch"} {
		require.Contains(t, out.String(), name)
	}
}
