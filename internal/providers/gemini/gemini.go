// Package gemini adapts Google Gemini through its OpenAI-compatible
// endpoint, which accepts the standard chat completion wire format.
package gemini

import (
	"context"
	"net/http"

	"routerx/internal/core"
	"routerx/internal/llmclient"
	"routerx/internal/providers"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai"

func init() {
	providers.Register("gemini", func(rec providers.Record) providers.Provider {
		baseURL := rec.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		return NewClient(rec.Name, baseURL, rec.APIKey)
	})
}

// Client speaks to Gemini's OpenAI compatibility layer.
type Client struct {
	name   string
	client *llmclient.Client
}

// NewClient creates an adapter for a Gemini backend.
func NewClient(name, baseURL, apiKey string) *Client {
	config := llmclient.Config{
		ProviderName: name,
		BaseURL:      baseURL,
	}
	headerSetter := func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	return &Client{
		name:   name,
		client: llmclient.New(config, headerSetter),
	}
}

func (c *Client) Name() string { return c.name }

func (c *Client) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	var resp core.ChatResponse
	err := c.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	resp.Provider = c.name
	return &resp, nil
}
