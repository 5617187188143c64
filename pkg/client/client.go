// Package client provides a minimal chat-completion client for a RouterX
// gateway. It builds a unified request, attaches a bearer credential, issues
// a single POST, and surfaces the raw status code and body without
// interpreting them. Non-2xx responses are returned as data, not errors.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"routerx/internal/httpclient"
)

// ContentPart is one element of a message's content. Only the "text" variant
// is produced by helpers in this package; the shape leaves room for other
// kinds (images, audio) the gateway may accept.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ChatMessage is a single role-tagged turn. Role is an open string tag
// ("user", "assistant", "system"); the client does not validate it.
type ChatMessage struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ChatCompletionRequest is the unified request body sent to the gateway.
type ChatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
}

// ChatCompletionResponse carries the raw result of a dispatch: the HTTP
// status code and the body exactly as received. Callers that want structure
// parse the body themselves.
type ChatCompletionResponse struct {
	StatusCode int
	Body       string
}

// UserText builds a single-part text message with the "user" role, the shape
// exercised by every RouterX example script.
func UserText(text string) ChatMessage {
	return ChatMessage{
		Role:    "user",
		Content: []ContentPart{{Type: "text", Text: text}},
	}
}

// Options tunes dispatcher behavior beyond the transport defaults.
type Options struct {
	// Timeout bounds the full request/response cycle. Zero keeps the
	// transport default.
	Timeout time.Duration

	// MaxRetries re-issues the request after a transport failure. The
	// gateway makes no idempotency promises, so this defaults to 0
	// (disabled): each Send performs exactly one network round trip.
	// Responses are never retried regardless of status code.
	MaxRetries int

	// HTTPClient overrides the underlying transport. Nil uses a pooled
	// client from internal/httpclient.
	HTTPClient *http.Client
}

// Dispatcher sends chat-completion requests to a fixed endpoint with a fixed
// credential. It holds no per-call state and is safe for concurrent use; the
// same dispatcher may be reused across calls that vary only the model.
type Dispatcher struct {
	endpoint   string
	credential string
	httpClient *http.Client
	maxRetries int
}

// New creates a dispatcher for the given chat-completions endpoint and bearer
// credential. The credential is held opaquely; it is never logged or persisted.
func New(endpoint, credential string) *Dispatcher {
	return NewWithOptions(endpoint, credential, Options{})
}

// NewWithOptions creates a dispatcher with explicit options.
func NewWithOptions(endpoint, credential string, opts Options) *Dispatcher {
	hc := opts.HTTPClient
	if hc == nil {
		hc = httpclient.NewDefaultHTTPClient()
	}
	if opts.Timeout > 0 {
		// Copy so the caller's client is not mutated.
		c := *hc
		c.Timeout = opts.Timeout
		hc = &c
	}
	return &Dispatcher{
		endpoint:   endpoint,
		credential: credential,
		httpClient: hc,
		maxRetries: opts.MaxRetries,
	}
}

// Send serializes req, attaches the bearer credential, and POSTs it to the
// configured endpoint. The raw status and body come back for any response the
// server produces, 2xx or not. It fails with *PreconditionError before any
// network traffic when the credential, model, or message list is empty, and
// with *TransportError when the request cannot be delivered at all.
func (d *Dispatcher) Send(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	if d.credential == "" {
		return nil, &PreconditionError{Field: "credential"}
	}
	if req.Model == "" {
		return nil, &PreconditionError{Field: "model"}
	}
	if len(req.Messages) == 0 {
		return nil, &PreconditionError{Field: "messages"}
	}
	if _, err := url.ParseRequestURI(d.endpoint); err != nil {
		return nil, &TransportError{Op: "parse endpoint", Err: err}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, &TransportError{Op: "encode request", Err: err}
	}

	attempts := d.maxRetries + 1
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, &TransportError{Op: "send request", Err: ctx.Err()}
			default:
			}
		}
		resp, err := d.roundTrip(ctx, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// roundTrip performs exactly one POST and drains the response body.
func (d *Dispatcher) roundTrip(ctx context.Context, body []byte) (*ChatCompletionResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+d.credential)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: "send request", Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read response", Err: err}
	}

	return &ChatCompletionResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
	}, nil
}
