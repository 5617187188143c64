package core

import (
	"errors"
	"net/http"
	"testing"
)

func TestContentText(t *testing.T) {
	parts := []ContentPart{
		{Type: "text", Text: "hello "},
		{Type: "image_url", ImageURL: "https://example.com/cat.png"},
		{Type: "text", Text: "world"},
	}
	if got := ContentText(parts); got != "hello world" {
		t.Errorf("ContentText: got %q", got)
	}
}

func TestRequestHasImage(t *testing.T) {
	textOnly := &ChatRequest{
		Model:    "gpt-4o",
		Messages: []Message{{Role: "user", Content: TextContent("hi")}},
	}
	if RequestHasImage(textOnly) {
		t.Error("text-only request reported as vision")
	}

	vision := &ChatRequest{
		Model: "gpt-4o",
		Messages: []Message{{Role: "user", Content: []ContentPart{
			{Type: "text", Text: "what is this"},
			{Type: "image_url", ImageURL: "https://example.com/cat.png"},
		}}},
	}
	if !RequestHasImage(vision) {
		t.Error("vision request not detected")
	}
}

func TestGatewayError_StatusDefaults(t *testing.T) {
	tests := []struct {
		errType ErrorType
		want    int
	}{
		{ErrorTypeRateLimit, http.StatusTooManyRequests},
		{ErrorTypeInvalidRequest, http.StatusBadRequest},
		{ErrorTypeAuthentication, http.StatusUnauthorized},
		{ErrorTypeNotFound, http.StatusNotFound},
		{ErrorTypeProvider, http.StatusBadGateway},
	}
	for _, tt := range tests {
		e := &GatewayError{Type: tt.errType}
		if got := e.HTTPStatusCode(); got != tt.want {
			t.Errorf("%s: got %d want %d", tt.errType, got, tt.want)
		}
	}
}

func TestGatewayError_Unwrap(t *testing.T) {
	cause := errors.New("connection reset")
	e := NewProviderError("openai", http.StatusBadGateway, "upstream failed", cause)
	if !errors.Is(e, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
}

func TestParseProviderError(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantType   ErrorType
		wantMsg    string
	}{
		{"openai envelope", 400, `{"error":{"message":"bad model","type":"invalid_request_error"}}`, ErrorTypeInvalidRequest, "bad model"},
		{"unauthorized", 401, `{"error":{"message":"invalid key"}}`, ErrorTypeAuthentication, "invalid key"},
		{"rate limited", 429, `slow down`, ErrorTypeRateLimit, "slow down"},
		{"server error", 503, `upstream down`, ErrorTypeProvider, "upstream down"},
		{"plain text body", 404, `no such model`, ErrorTypeInvalidRequest, "no such model"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := ParseProviderError("openai", tt.statusCode, []byte(tt.body), nil)
			if e.Type != tt.wantType {
				t.Errorf("type: got %s want %s", e.Type, tt.wantType)
			}
			if e.Message != tt.wantMsg {
				t.Errorf("message: got %q want %q", e.Message, tt.wantMsg)
			}
			if e.Provider != "openai" {
				t.Errorf("provider: got %q", e.Provider)
			}
		})
	}
}
