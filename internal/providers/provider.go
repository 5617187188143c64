// Package providers holds the provider abstraction for the gateway: a
// factory keyed by provider type, the model catalog, and the router that
// picks a backend for each request.
package providers

import (
	"context"
	"fmt"
	"time"

	"routerx/internal/core"
)

// Record describes one configured provider instance, as stored in the
// provider table. The API key never leaves the data plane.
type Record struct {
	ID             string
	Name           string
	Type           string
	BaseURL        string
	APIKey         string
	DefaultModel   string
	SupportsText   bool
	SupportsVision bool
	Enabled        bool
}

// Provider executes one chat completion against a concrete backend.
type Provider interface {
	// Name returns the configured instance name (not the provider type).
	Name() string

	// Chat executes a single chat completion request.
	Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error)
}

// Builder creates a provider instance from its record.
type Builder func(rec Record) Provider

// registry holds all registered provider builders.
var registry = make(map[string]Builder)

// Register installs a builder for a provider type. Provider packages call
// this from init(); import them for side effects to make types available.
func Register(providerType string, builder Builder) {
	registry[providerType] = builder
}

// RegisteredTypes returns the provider types known to the factory.
func RegisteredTypes() []string {
	types := make([]string, 0, len(registry))
	for t := range registry {
		types = append(types, t)
	}
	return types
}

// New builds a provider for the record's type. Unknown types fall back to
// the generic OpenAI-compatible adapter, which covers most hosted backends.
func New(rec Record) (Provider, error) {
	builder, ok := registry[rec.Type]
	if !ok {
		builder, ok = registry["generic-openai"]
	}
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", rec.Type)
	}
	return builder(rec), nil
}

// dummyProvider answers every request locally without touching a backend.
// Used when real upstream calls are disabled (local development, demos).
type dummyProvider struct {
	name string
}

// NewDummy creates a provider that fabricates completions.
func NewDummy(name string) Provider {
	return &dummyProvider{name: name}
}

func (p *dummyProvider) Name() string { return p.name }

func (p *dummyProvider) Chat(_ context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	content := fmt.Sprintf("Dummy response from %s. Model=%s. Messages=%d.", p.name, req.Model, len(req.Messages))
	return &core.ChatResponse{
		ID:       fmt.Sprintf("dummy_%d", time.Now().UnixNano()),
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    req.Model,
		Provider: p.name,
		Choices: []core.Choice{{
			Index:        0,
			Message:      core.Message{Role: "assistant", Content: core.TextContent(content)},
			FinishReason: "stop",
		}},
		Usage: core.Usage{PromptTokens: 10, CompletionTokens: 15, TotalTokens: 25},
	}, nil
}
