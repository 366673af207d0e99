// Package mocks provides mock implementations for testing the auth façade.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for our port interfaces.
// The mocks are generated using go:generate directives and provide a fluent API for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	provider := mocks.NewMockIdentityProvider(ctrl)
//	provider.EXPECT().SignInWithPassword(gomock.Any(), "jo@example.com", "pw").Return(sess, nil)
package mocks

// Generate mock for IdentityProvider interface from internal/ports package.
// This creates MockIdentityProvider with methods for all IdentityProvider interface methods:
// SignInWithPassword, SignUpWithPassword, SignInFederated, SignInAnonymously, Changes
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=identity_provider_mock.go github.com/foyerhq/foyer/internal/ports IdentityProvider

// Generate mock for FederatedFlow interface from internal/ports package.
// This creates MockFederatedFlow with methods for all FederatedFlow interface methods:
// SignIn
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=federated_flow_mock.go github.com/foyerhq/foyer/internal/ports FederatedFlow

// Generate mock for SnapshotStore interface from internal/ports package.
// This creates MockSnapshotStore with methods for all SnapshotStore interface methods:
// Save, Load, Clear
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=snapshot_store_mock.go github.com/foyerhq/foyer/internal/ports SnapshotStore

// Generate mock for StorageArea interface from internal/ports package.
// This creates MockStorageArea with methods for all StorageArea interface methods:
// Get, Set, Delete
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=storage_area_mock.go github.com/foyerhq/foyer/internal/ports StorageArea
