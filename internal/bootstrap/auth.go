package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/foyerhq/foyer/config"
	"github.com/foyerhq/foyer/internal/adapters/devauth"
	"github.com/foyerhq/foyer/internal/adapters/identitykit"
	"github.com/foyerhq/foyer/internal/adapters/oidc"
	"github.com/foyerhq/foyer/internal/data"
	"github.com/foyerhq/foyer/internal/ports"
	"github.com/foyerhq/foyer/internal/service"
)

// FacadeConfig contains configuration for building the auth façade.
type FacadeConfig struct {
	App    config.AppConfig
	Logger *slog.Logger

	// OpenBrowser launches the federated consent URL. When nil the URL is
	// logged for the user to open manually.
	OpenBrowser func(url string) error
}

// Facade bundles the built façade with the resources behind it.
type Facade struct {
	Auth *service.AuthFacade

	provider  ports.IdentityProvider
	storeArea *StoreArea
	logger    *slog.Logger
}

// Close tears the façade down: pumps first, then the provider, then the
// storage backend.
func (f *Facade) Close() {
	f.Auth.Close()
	if closer, ok := f.provider.(interface{ Close() }); ok {
		closer.Close()
	}
	if err := f.storeArea.Close(); err != nil && f.logger != nil {
		f.logger.Warn("close storage area", "error", err)
	}
}

// BuildAuthFacade wires the configured identity provider, storage area, and
// snapshot store into an auth façade. The façade is returned uninitialized;
// the caller runs Initialize with its own context.
func BuildAuthFacade(cfg FacadeConfig) (*Facade, error) {
	storeArea, err := BuildStorageArea(cfg.App.Store, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("build storage area: %w", err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		closeErr := storeArea.Close()
		if closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close storage area: %w", closeErr))
		}
		return nil, err
	}

	opts := service.AuthFacadeOptions{
		Provider:                 provider,
		Store:                    data.NewSnapshotStore(storeArea.Area),
		AllowGuests:              cfg.App.Auth.AllowGuests,
		RequireEmailVerification: cfg.App.Auth.RequireEmailVerification,
		Logger:                   cfg.Logger,
	}
	if watcher, ok := storeArea.Area.(ports.AreaWatcher); ok {
		opts.Watcher = watcher
	}

	facade, err := service.NewAuthFacade(opts)
	if err != nil {
		if closer, ok := provider.(interface{ Close() }); ok {
			closer.Close()
		}
		if closeErr := storeArea.Close(); closeErr != nil {
			err = errors.Join(err, fmt.Errorf("close storage area: %w", closeErr))
		}
		return nil, fmt.Errorf("build auth facade: %w", err)
	}

	return &Facade{
		Auth:      facade,
		provider:  provider,
		storeArea: storeArea,
		logger:    cfg.Logger,
	}, nil
}

//nolint:ireturn // provider selection happens at runtime based on configuration.
func buildProvider(cfg FacadeConfig) (ports.IdentityProvider, error) {
	switch cfg.App.Auth.Mode {
	case config.ProviderModeDev:
		return buildDevProvider(cfg)
	case config.ProviderModeIdentityKit:
		return buildIdentityKitProvider(cfg)
	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.App.Auth.Mode)
	}
}

//nolint:ireturn // see buildProvider.
func buildDevProvider(cfg FacadeConfig) (ports.IdentityProvider, error) {
	dev := cfg.App.Auth.DevAuth
	provider, err := devauth.NewProvider(devauth.Config{
		Accounts: []devauth.Account{{
			Email:         dev.Email,
			Password:      dev.Password,
			DisplayName:   dev.DisplayName,
			EmailVerified: true,
		}},
		Federated: &devauth.Account{
			Email:         "federated." + dev.Email,
			DisplayName:   dev.DisplayName + " (SSO)",
			EmailVerified: true,
		},
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build dev auth provider: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("using dev auth provider", "email", dev.Email)
	}
	return provider, nil
}

//nolint:ireturn // see buildProvider.
func buildIdentityKitProvider(cfg FacadeConfig) (ports.IdentityProvider, error) {
	idk := cfg.App.Auth.IdentityKit
	if idk.BaseURL == "" || idk.APIKey == "" {
		return nil, errors.New("identitykit mode requires FOYER_AUTH_IDENTITY_BASE_URL and FOYER_AUTH_IDENTITY_API_KEY")
	}

	flow, err := buildFederatedFlow(cfg)
	if err != nil {
		return nil, err
	}

	client, err := identitykit.NewClient(identitykit.Config{
		BaseURL:       idk.BaseURL,
		APIKey:        idk.APIKey,
		Flow:          flow,
		Timeout:       idk.Timeout,
		RefreshMargin: idk.RefreshMargin,
		Logger:        cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build identitykit client: %w", err)
	}
	return client, nil
}

// buildFederatedFlow returns nil when OIDC is not configured; the façade
// then reports federated sign-in as ProviderMisconfigured.
//
//nolint:ireturn // the provider config takes the flow as an interface.
func buildFederatedFlow(cfg FacadeConfig) (ports.FederatedFlow, error) {
	oidcCfg := cfg.App.Auth.OIDC
	if !oidcCfg.IsConfigured() {
		if cfg.Logger != nil {
			cfg.Logger.Info("federated sign-in not configured")
		}
		return nil, nil
	}

	flow, err := oidc.NewFlow(oidc.FlowConfig{
		ClientID:     oidcCfg.ClientID,
		ClientSecret: oidcCfg.ClientSecret,
		DiscoveryURL: oidcCfg.DiscoveryURL,
		Scope:        oidcCfg.Scope,
		ListenAddr:   oidcCfg.ListenAddr,
		OpenURL:      cfg.OpenBrowser,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build federated flow: %w", err)
	}
	return flow, nil
}
