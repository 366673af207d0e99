package syncclient

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
	"github.com/foyerhq/foyer/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewClientValidation(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Fatal("expected error when endpoint url missing")
	}
}

func TestNotifySignedInDeliversEvent(t *testing.T) {
	var got event
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode event: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	client, err := NewClient(Config{
		EndpointURL: srv.URL,
		Logger:      discardLogger(),
		Now:         testutil.FixedTimeFunc(testutil.TestTime()),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	identity := domainauth.Identity{UID: "u-42", Email: "u@example.com", DisplayName: "U"}
	client.NotifySignedIn(context.Background(), identity, "password")

	if contentType != "application/json" {
		t.Fatalf("expected json content type, got %q", contentType)
	}
	if _, err := uuid.Parse(got.EventID); err != nil {
		t.Fatalf("expected a uuid event id, got %q", got.EventID)
	}
	if got.Event != "user.signed_in" {
		t.Fatalf("unexpected event name %q", got.Event)
	}
	if got.Method != "password" {
		t.Fatalf("unexpected method %q", got.Method)
	}
	if !got.OccurredAt.Equal(testutil.TestTime()) {
		t.Fatalf("unexpected timestamp %v", got.OccurredAt)
	}
	if got.Identity.UID != "u-42" || got.Identity.Email != "u@example.com" {
		t.Fatalf("identity not carried: %+v", got.Identity)
	}
}

func TestNotifySignedInFailureNeverRetries(t *testing.T) {
	var requests atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(Config{EndpointURL: srv.URL, Logger: discardLogger()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.NotifySignedIn(context.Background(), domainauth.Identity{UID: "u-1"}, "guest")

	if n := requests.Load(); n != 1 {
		t.Fatalf("expected exactly one attempt, got %d", n)
	}
}

func TestNotifySignedInUnreachableEndpoint(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client, err := NewClient(Config{
		EndpointURL: srv.URL,
		Timeout:     time.Second,
		Logger:      discardLogger(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Must not panic or block; the failure is logged and dropped.
	client.NotifySignedIn(context.Background(), domainauth.Identity{UID: "u-1"}, "password")
}
