package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestSend_StatusAndBodyPassThrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	d := New(server.URL+"/v1/chat/completions", "test-token")
	resp, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gemini-2.5-flash",
		Messages: []ChatMessage{UserText("Hello from RouterX")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", resp.StatusCode)
	}
	if resp.Body != `{"ok":true}` {
		t.Errorf("expected body %q, got %q", `{"ok":true}`, resp.Body)
	}
}

func TestSend_BodyRoundTrips(t *testing.T) {
	var received ChatCompletionRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected Content-Type 'application/json', got %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	req := ChatCompletionRequest{
		Model: "gpt-4o",
		Messages: []ChatMessage{
			{Role: "system", Content: []ContentPart{{Type: "text", Text: "be brief"}}},
			UserText("hello"),
		},
	}
	d := New(server.URL, "tok")
	if _, err := d.Send(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.Model != req.Model {
		t.Errorf("model: got %q want %q", received.Model, req.Model)
	}
	if len(received.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(received.Messages))
	}
	for i, msg := range received.Messages {
		if msg.Role != req.Messages[i].Role {
			t.Errorf("message %d role: got %q want %q", i, msg.Role, req.Messages[i].Role)
		}
		if len(msg.Content) != 1 || msg.Content[0] != req.Messages[i].Content[0] {
			t.Errorf("message %d content: got %+v want %+v", i, msg.Content, req.Messages[i].Content)
		}
	}
}

func TestSend_AuthorizationHeaderExact(t *testing.T) {
	// The credential must be concatenated after "Bearer " verbatim: no
	// trimming, no re-encoding.
	credential := "  sk-weird token=="

	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := New(server.URL, credential)
	if _, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-3.5-turbo",
		Messages: []ChatMessage{UserText("hi")},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "Bearer " + credential; got != want {
		t.Errorf("Authorization: got %q want %q", got, want)
	}
}

func TestSend_PreconditionsIssueNoNetworkCalls(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	valid := ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	}

	tests := []struct {
		name       string
		credential string
		req        ChatCompletionRequest
		wantField  string
	}{
		{"empty credential", "", valid, "credential"},
		{"empty model", "tok", ChatCompletionRequest{Messages: valid.Messages}, "model"},
		{"empty messages", "tok", ChatCompletionRequest{Model: "gpt-4o"}, "messages"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := New(server.URL, tt.credential)
			_, err := d.Send(context.Background(), tt.req)

			var precond *PreconditionError
			if !errors.As(err, &precond) {
				t.Fatalf("expected PreconditionError, got %v", err)
			}
			if precond.Field != tt.wantField {
				t.Errorf("field: got %q want %q", precond.Field, tt.wantField)
			}
		})
	}

	if n := calls.Load(); n != 0 {
		t.Errorf("expected zero network calls, got %d", n)
	}
}

func TestSend_Non2xxReturnedAsData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("unauthorized"))
	}))
	defer server.Close()

	d := New(server.URL, "bad-token")
	resp, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	})
	if err != nil {
		t.Fatalf("non-2xx must not be an error, got %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", resp.StatusCode)
	}
	if resp.Body != "unauthorized" {
		t.Errorf("expected body 'unauthorized', got %q", resp.Body)
	}
}

func TestSend_SequentialModelsAreIndependent(t *testing.T) {
	var bodies []ChatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &req)
		bodies = append(bodies, req)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := New(server.URL, "tok")
	for _, model := range []string{"gemini-2.5-flash", "gpt-3.5-turbo"} {
		if _, err := d.Send(context.Background(), ChatCompletionRequest{
			Model:    model,
			Messages: []ChatMessage{UserText("Hello from RouterX")},
		}); err != nil {
			t.Fatalf("send %s: %v", model, err)
		}
	}

	if len(bodies) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(bodies))
	}
	if bodies[0].Model != "gemini-2.5-flash" || bodies[1].Model != "gpt-3.5-turbo" {
		t.Errorf("models leaked between calls: %q then %q", bodies[0].Model, bodies[1].Model)
	}
}

func TestSend_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	d := New(server.URL, "tok")
	_, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	})

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError, got %v", err)
	}
}

func TestSend_MalformedEndpoint(t *testing.T) {
	d := New("://not-a-url", "tok")
	_, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	})

	var transport *TransportError
	if !errors.As(err, &transport) {
		t.Fatalf("expected TransportError for malformed endpoint, got %v", err)
	}
}

func TestSend_NoRetryOnHTTPError(t *testing.T) {
	// Retries cover transport failures only. A delivered 500 is a valid
	// response and must not be re-issued, even with retries enabled.
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
	}))
	defer server.Close()

	d := NewWithOptions(server.URL, "tok", Options{MaxRetries: 3})
	resp, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", resp.StatusCode)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}

func TestSend_ExactlyOneRoundTripByDefault(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	d := New(server.URL, "tok")
	if _, err := d.Send(context.Background(), ChatCompletionRequest{
		Model:    "gpt-4o",
		Messages: []ChatMessage{UserText("hi")},
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 request, got %d", n)
	}
}
