// Package webhook delivers gateway events to registered HTTP endpoints,
// signing payloads with each hook's shared secret.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"routerx/internal/store"
)

// SignatureHeader carries the hex HMAC-SHA256 of the request body, keyed
// by the webhook secret.
const SignatureHeader = "X-RouterX-Signature"

// HookSource lists enabled webhooks for an event type.
type HookSource interface {
	GetEnabledWebhooks(ctx context.Context, event string) ([]store.Webhook, error)
}

// Event is the delivered payload.
type Event struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	Data      any    `json:"data"`
}

// Dispatcher sends events to all matching webhooks.
type Dispatcher struct {
	source HookSource
	client *http.Client
	logger *slog.Logger
}

func New(source HookSource, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		source: source,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Fire delivers the event to every enabled hook subscribed to eventType.
// Deliveries run in the background and never block the caller.
func (d *Dispatcher) Fire(ctx context.Context, eventType string, data any) {
	hooks, err := d.source.GetEnabledWebhooks(ctx, eventType)
	if err != nil {
		d.logger.Warn("webhook lookup failed", "event", eventType, "error", err)
		return
	}
	if len(hooks) == 0 {
		return
	}
	body, err := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Data:      data,
	})
	if err != nil {
		return
	}
	for _, hook := range hooks {
		go d.send(hook, body)
	}
}

func (d *Dispatcher) send(hook store.Webhook, body []byte) {
	req, err := http.NewRequest(http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "RouterX-Webhook/1.0")
	if hook.Secret != "" {
		req.Header.Set(SignatureHeader, Sign(hook.Secret, body))
	}
	resp, err := d.client.Do(req)
	if err != nil {
		d.logger.Warn("webhook delivery failed", "url", hook.URL, "error", err)
		return
	}
	_ = resp.Body.Close()
}

// Sign computes the hex HMAC-SHA256 of body under the secret. Receivers
// verify deliveries by recomputing it.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
