package syncclient

// Package syncclient posts identity snapshots to an app backend after a
// successful local authentication. Delivery is best effort: a failure is
// logged and dropped, never surfaced to the caller and never retried.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	domainauth "github.com/foyerhq/foyer/internal/domain/auth"
)

const defaultTimeout = 5 * time.Second

// Config captures the subset of backend sync behaviour we need.
type Config struct {
	EndpointURL string
	Timeout     time.Duration
	Client      *http.Client
	Logger      *slog.Logger
	Now         func() time.Time
}

// Client delivers signed-in identity snapshots to the sync endpoint.
type Client struct {
	endpointURL string
	client      *http.Client
	logger      *slog.Logger
	now         func() time.Time
}

// event is the wire form of one sync notification.
type event struct {
	EventID    string              `json:"eventId"`
	Event      string              `json:"event"`
	Method     string              `json:"method"`
	OccurredAt time.Time           `json:"occurredAt"`
	Identity   domainauth.Identity `json:"identity"`
}

// NewClient builds a sync client. Callers should pass a validated config.
func NewClient(cfg Config) (*Client, error) {
	endpointURL := strings.TrimSpace(cfg.EndpointURL)
	if endpointURL == "" {
		return nil, errors.New("sync endpoint url is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	hc := cfg.Client
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Client{
		endpointURL: endpointURL,
		client:      hc,
		logger:      logger.With("component", "sync_client"),
		now:         now,
	}, nil
}

// NotifySignedIn fires a single JSON POST carrying the identity snapshot.
// One attempt only; the outcome never affects the sign-in that triggered it.
func (c *Client) NotifySignedIn(ctx context.Context, identity domainauth.Identity, method string) {
	evt := event{
		EventID:    uuid.NewString(),
		Event:      "user.signed_in",
		Method:     method,
		OccurredAt: c.now().UTC(),
		Identity:   identity,
	}

	body, err := json.Marshal(evt)
	if err != nil {
		c.logger.Warn("encode sync event", "error", err, "event_id", evt.EventID)
		return
	}

	if err := c.post(ctx, body); err != nil {
		c.logger.Warn("sync identity to backend", "error", err, "event_id", evt.EventID, "uid", identity.UID)
		return
	}

	c.logger.Debug("synced identity to backend", "event_id", evt.EventID, "uid", identity.UID)
}

func (c *Client) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpointURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create sync request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("sync request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.handleErrorResponse(resp)
	}

	return drainSuccess(resp)
}

func drainSuccess(resp *http.Response) error {
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("drain sync response body: %w", err),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("drain sync response body: %w", err)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}
	return nil
}

func (c *Client) handleErrorResponse(resp *http.Response) error {
	respBody, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return errors.Join(
				fmt.Errorf("read sync error response: %w", readErr),
				fmt.Errorf("close response body: %w", closeErr),
			)
		}
		return fmt.Errorf("read sync error response: %w", readErr)
	}
	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return fmt.Errorf("sync endpoint %s: %s", resp.Status, strings.TrimSpace(string(respBody)))
}
