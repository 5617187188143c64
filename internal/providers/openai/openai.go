// Package openai adapts OpenAI-compatible chat completion backends. The
// same wire format covers the OpenAI API itself plus DeepSeek, Mistral,
// and any self-hosted gateway exposing /chat/completions, so one adapter
// registers under several provider types.
package openai

import (
	"context"
	"net/http"

	"routerx/internal/core"
	"routerx/internal/llmclient"
	"routerx/internal/providers"
)

const (
	defaultBaseURL  = "https://api.openai.com/v1"
	deepseekBaseURL = "https://api.deepseek.com/v1"
	mistralBaseURL  = "https://api.mistral.ai/v1"
)

func init() {
	providers.Register("openai", builderFor(defaultBaseURL))
	providers.Register("generic-openai", builderFor(""))
	providers.Register("deepseek", builderFor(deepseekBaseURL))
	providers.Register("mistral", builderFor(mistralBaseURL))
}

func builderFor(fallbackBaseURL string) providers.Builder {
	return func(rec providers.Record) providers.Provider {
		baseURL := rec.BaseURL
		if baseURL == "" {
			baseURL = fallbackBaseURL
		}
		return NewClient(rec.Name, baseURL, rec.APIKey)
	}
}

// Client speaks the OpenAI chat completion wire format.
type Client struct {
	name   string
	client *llmclient.Client
}

// NewClient creates an adapter for one OpenAI-compatible backend.
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

// Chat passes the request through unchanged; the gateway's request and
// response types are already OpenAI-shaped.
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
