package data

// Package data implements snapshot persistence over a ports.StorageArea.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	"github.com/foyerhq/foyer/internal/ports"
)

// Fixed keys of the persisted snapshot within a storage area. The identity
// blob is a JSON object; the access token is stored verbatim.
const (
	identityKey = "auth.user"
	tokenKey    = "auth.token"
)

// identityJSONKeys are the blob keys owned by the Identity itself. Everything
// else in the blob round-trips as extra fields.
var identityJSONKeys = []string{
	"uid",
	"email",
	"displayName",
	"photoUrl",
	"emailVerified",
	"isGuest",
	"loginTimestamp",
}

// SnapshotStore persists the last-known session snapshot under two fixed
// keys: a JSON identity-plus-extra blob and the opaque access-token string.
// It implements ports.SnapshotStore.
type SnapshotStore struct {
	area ports.StorageArea
}

// NewSnapshotStore creates a SnapshotStore over the given storage area.
func NewSnapshotStore(area ports.StorageArea) *SnapshotStore {
	return &SnapshotStore{area: area}
}

// Save serializes the session identity merged with extra fields and
// overwrites any prior snapshot. Serialization cannot fail the save: extra
// values that do not marshal are dropped individually. Only an area write
// failure is returned.
func (s *SnapshotStore) Save(ctx context.Context, sess domainauth.Session, extra map[string]any) error {
	blob, err := encodeSnapshot(sess.Identity, extra)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if err := s.area.Set(ctx, identityKey, blob); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}
	if err := s.area.Set(ctx, tokenKey, sess.AccessToken); err != nil {
		return fmt.Errorf("write access token: %w", err)
	}
	return nil
}

// Load reads the stored snapshot. It fails closed: a payload that does not
// parse, or parses without a uid, is deleted and reported as absent.
func (s *SnapshotStore) Load(ctx context.Context) (*domainauth.Snapshot, error) {
	blob, err := s.area.Get(ctx, identityKey)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("read identity: %w", err)
	}

	id, extra, decodeErr := decodeSnapshot(blob)
	if decodeErr != nil {
		// Self-healing: discard the corrupt snapshot so the next load starts
		// clean instead of failing forever.
		if clearErr := s.Clear(ctx); clearErr != nil {
			return nil, fmt.Errorf("discard corrupt snapshot: %w", clearErr)
		}
		return nil, nil
	}

	token, err := s.area.Get(ctx, tokenKey)
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		return nil, fmt.Errorf("read access token: %w", err)
	}

	return &domainauth.Snapshot{Identity: id, AccessToken: token, Extra: extra}, nil
}

// Clear removes both snapshot keys. Clearing an empty area is a no-op.
func (s *SnapshotStore) Clear(ctx context.Context) error {
	if err := s.area.Delete(ctx, identityKey); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	if err := s.area.Delete(ctx, tokenKey); err != nil {
		return fmt.Errorf("delete access token: %w", err)
	}
	return nil
}

// encodeSnapshot merges identity fields and extra entries into one JSON
// object. Identity fields win on key collision; an extra whose value cannot
// be marshaled is skipped so one bad value never loses the identity.
func encodeSnapshot(id domainauth.Identity, extra map[string]any) (string, error) {
	base, err := json.Marshal(id)
	if err != nil {
		return "", fmt.Errorf("marshal identity: %w", err)
	}

	merged := make(map[string]json.RawMessage, len(extra)+len(identityJSONKeys))
	if err := json.Unmarshal(base, &merged); err != nil {
		return "", fmt.Errorf("reshape identity: %w", err)
	}

	for k, v := range extra {
		if _, taken := merged[k]; taken {
			continue
		}
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		merged[k] = raw
	}

	out, err := json.Marshal(merged)
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(out), nil
}

// decodeSnapshot parses the identity blob and splits out extra fields.
func decodeSnapshot(blob string) (domainauth.Identity, map[string]any, error) {
	var id domainauth.Identity
	if err := json.Unmarshal([]byte(blob), &id); err != nil {
		return domainauth.Identity{}, nil, fmt.Errorf("unmarshal identity: %w", err)
	}
	if id.UID == "" {
		return domainauth.Identity{}, nil, errors.New("snapshot has no uid")
	}

	var all map[string]any
	if err := json.Unmarshal([]byte(blob), &all); err != nil {
		return domainauth.Identity{}, nil, fmt.Errorf("unmarshal extras: %w", err)
	}
	for _, k := range identityJSONKeys {
		delete(all, k)
	}
	if len(all) == 0 {
		all = nil
	}
	return id, all, nil
}
