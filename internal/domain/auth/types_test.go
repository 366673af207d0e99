package auth

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestIdentity_JSONKeys(t *testing.T) {
	id := Identity{
		UID:     "u-1",
		Email:   "a@b.com",
		IsGuest: false,
		LoginAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	raw, err := json.Marshal(id)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	s := string(raw)
	for _, key := range []string{`"uid":"u-1"`, `"loginTimestamp":"2025-03-01T12:00:00Z"`, `"emailVerified":false`, `"isGuest":false`} {
		if !strings.Contains(s, key) {
			t.Fatalf("expected %s in %s", key, s)
		}
	}
	if strings.Contains(s, "displayName") {
		t.Fatalf("empty display name should be omitted: %s", s)
	}
}

func TestState_String(t *testing.T) {
	if StateReady.String() != "ready" {
		t.Fatalf("unexpected: %s", StateReady)
	}
	if State(42).String() != "unknown" {
		t.Fatalf("unexpected: %s", State(42))
	}
}
