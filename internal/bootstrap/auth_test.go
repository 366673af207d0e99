package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"

	"github.com/foyerhq/foyer/config"
	"github.com/foyerhq/foyer/internal/ports"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func devAppConfig() config.AppConfig {
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
		Store: config.StoreConfig{Mode: config.PersistenceModeSession},
	}
}

func TestBuildStorageArea_Session(t *testing.T) {
	area, err := BuildStorageArea(config.StoreConfig{Mode: config.PersistenceModeSession}, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if closeErr := area.Close(); closeErr != nil {
			t.Fatalf("close area: %v", closeErr)
		}
	}()

	if _, ok := area.Area.(ports.AreaWatcher); !ok {
		t.Fatal("expected session area to support watching")
	}
}

func TestBuildStorageArea_Local(t *testing.T) {
	cfg := config.StoreConfig{
		Mode: config.PersistenceModeLocal,
		Dir:  t.TempDir(),
	}

	area, err := BuildStorageArea(cfg, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if closeErr := area.Close(); closeErr != nil {
			t.Fatalf("close area: %v", closeErr)
		}
	}()

	ctx := context.Background()
	if err := area.Area.Set(ctx, "auth.user", `{"uid":"u-1"}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := area.Area.Get(ctx, "auth.user")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !strings.Contains(got, "u-1") {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestBuildStorageArea_Shared(t *testing.T) {
	mr := miniredis.RunT(t)

	cfg := config.StoreConfig{
		Mode:   config.PersistenceModeShared,
		Prefix: "foyer:",
		Redis:  config.RedisConfig{URI: mr.Addr()},
	}

	area, err := BuildStorageArea(cfg, discardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer func() {
		if closeErr := area.Close(); closeErr != nil {
			t.Fatalf("close area: %v", closeErr)
		}
	}()

	ctx := context.Background()
	if err := area.Area.Set(ctx, "auth.token", "tok-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := area.Area.Get(ctx, "auth.token")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != "tok-1" {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestBuildStorageArea_SharedUnreachable(t *testing.T) {
	cfg := config.StoreConfig{
		Mode:  config.PersistenceModeShared,
		Redis: config.RedisConfig{URI: "127.0.0.1:1"},
	}

	if _, err := BuildStorageArea(cfg, discardLogger()); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}

func TestBuildStorageArea_UnsupportedMode(t *testing.T) {
	if _, err := BuildStorageArea(config.StoreConfig{Mode: "disk"}, discardLogger()); err == nil {
		t.Fatal("expected error for unsupported mode")
	}
}

func TestBuildAuthFacade_DevMode(t *testing.T) {
	facade, err := BuildAuthFacade(FacadeConfig{App: devAppConfig(), Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer facade.Close()

	ctx := context.Background()
	if err := facade.Auth.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	identity, err := facade.Auth.SignInWithPassword(ctx, "dev@example.com", "devpassword")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if identity.Email != "dev@example.com" {
		t.Fatalf("unexpected identity %+v", identity)
	}
	if identity.DisplayName != "Dev User" {
		t.Fatalf("unexpected display name %q", identity.DisplayName)
	}
}

func TestBuildAuthFacade_DevModeFederatedSeed(t *testing.T) {
	facade, err := BuildAuthFacade(FacadeConfig{App: devAppConfig(), Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer facade.Close()

	ctx := context.Background()
	if err := facade.Auth.Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	identity, err := facade.Auth.SignInWithFederatedProvider(ctx)
	if err != nil {
		t.Fatalf("federated sign in: %v", err)
	}
	if identity.Email != "federated.dev@example.com" {
		t.Fatalf("unexpected federated identity %+v", identity)
	}
}

func TestBuildAuthFacade_IdentityKitMissingCredentials(t *testing.T) {
	app := devAppConfig()
	app.Auth.Mode = config.ProviderModeIdentityKit

	_, err := BuildAuthFacade(FacadeConfig{App: app, Logger: discardLogger()})
	if err == nil {
		t.Fatal("expected error for missing identitykit credentials")
	}
	if !strings.Contains(err.Error(), "FOYER_AUTH_IDENTITY_BASE_URL") {
		t.Fatalf("error should name the missing variables, got %v", err)
	}
}

func TestLoadConfig_ParsesEnvironment(t *testing.T) {
	t.Setenv("FOYER_AUTH_MODE", "dev")
	t.Setenv("FOYER_STORE_MODE", "session")
	t.Setenv("FOYER_SYNC_ENDPOINT", " https://api.example.com/auth/sync ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Auth.Mode != config.ProviderModeDev {
		t.Fatalf("unexpected auth mode %q", cfg.Auth.Mode)
	}
	if cfg.Store.Mode != config.PersistenceModeSession {
		t.Fatalf("unexpected store mode %q", cfg.Store.Mode)
	}
	// Sanitize ran: the endpoint is trimmed.
	if cfg.Sync.EndpointURL != "https://api.example.com/auth/sync" {
		t.Fatalf("unexpected sync endpoint %q", cfg.Sync.EndpointURL)
	}
}

func TestInitLogger(t *testing.T) {
	if logger := InitLogger(false); logger == nil {
		t.Fatal("expected a logger")
	}
	if logger := InitLogger(true); logger == nil {
		t.Fatal("expected a dev logger")
	}
}
