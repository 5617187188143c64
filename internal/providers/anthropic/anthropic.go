// Package anthropic adapts the Anthropic Messages API to the gateway's
// OpenAI-shaped request and response types.
package anthropic

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"routerx/internal/core"
	"routerx/internal/llmclient"
	"routerx/internal/providers"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	apiVersion       = "2023-06-01"
	defaultMaxTokens = 4096
)

func init() {
	providers.Register("anthropic", func(rec providers.Record) providers.Provider {
		baseURL := rec.BaseURL
		if baseURL == "" {
			baseURL = defaultBaseURL
		}
		return NewClient(rec.Name, baseURL, rec.APIKey)
	})
}

// Client speaks the Anthropic Messages wire format.
type Client struct {
	name   string
	client *llmclient.Client
}

// NewClient creates an adapter for an Anthropic-compatible backend.
func NewClient(name, baseURL, apiKey string) *Client {
	config := llmclient.Config{
		ProviderName: name,
		BaseURL:      baseURL,
	}
	headerSetter := func(req *http.Request) {
		req.Header.Set("x-api-key", apiKey)
		req.Header.Set("anthropic-version", apiVersion)
	}
	return &Client{
		name:   name,
		client: llmclient.New(config, headerSetter),
	}
}

func (c *Client) Name() string { return c.name }

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesResponse struct {
	ID         string `json:"id"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Chat converts the request to the Messages format, calls the backend,
// and converts the result back. System messages move to the top-level
// system field, as the Messages API requires.
func (c *Client) Chat(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	wireReq := messagesRequest{
		Model:       req.Model,
		MaxTokens:   defaultMaxTokens,
		Temperature: req.Temperature,
	}
	if req.MaxTokens != nil {
		wireReq.MaxTokens = *req.MaxTokens
	}
	for _, msg := range req.Messages {
		text := core.ContentText(msg.Content)
		if msg.Role == "system" {
			if wireReq.System != "" {
				wireReq.System += "\n"
			}
			wireReq.System += text
			continue
		}
		wireReq.Messages = append(wireReq.Messages, wireMessage{Role: msg.Role, Content: text})
	}

	var wireResp messagesResponse
	err := c.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/v1/messages",
		Body:     wireReq,
	}, &wireResp)
	if err != nil {
		return nil, err
	}

	var text string
	for _, block := range wireResp.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	id := wireResp.ID
	if id == "" {
		id = "msg_" + uuid.NewString()
	}

	return &core.ChatResponse{
		ID:       id,
		Object:   "chat.completion",
		Created:  time.Now().Unix(),
		Model:    wireResp.Model,
		Provider: c.name,
		Choices: []core.Choice{{
			Index:        0,
			Message:      core.Message{Role: "assistant", Content: core.TextContent(text)},
			FinishReason: finishReason(wireResp.StopReason),
		}},
		Usage: core.Usage{
			PromptTokens:     wireResp.Usage.InputTokens,
			CompletionTokens: wireResp.Usage.OutputTokens,
			TotalTokens:      wireResp.Usage.InputTokens + wireResp.Usage.OutputTokens,
		},
	}, nil
}

func finishReason(stopReason string) string {
	switch stopReason {
	case "end_turn", "stop_sequence":
		return "stop"
	case "max_tokens":
		return "length"
	default:
		return stopReason
	}
}
