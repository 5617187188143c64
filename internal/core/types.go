// Package core defines the wire types, error taxonomy, and shared interfaces
// for the RouterX gateway.
package core

// ContentPart is one element of a message's content array. "text" is the
// common case; "image_url" marks a vision request.
type ContentPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// Message is a single role-tagged turn in a chat request.
type Message struct {
	Role    string        `json:"role"`
	Content []ContentPart `json:"content"`
}

// ChatRequest is the unified chat-completion request accepted on
// /v1/chat/completions and handed to provider adapters.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	MaxTokens   *int      `json:"max_tokens,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
}

// Usage reports token consumption for a completed request.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Choice is a single completion alternative.
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// ChatResponse is the unified chat-completion response returned to clients,
// regardless of which provider served the request.
type ChatResponse struct {
	ID       string   `json:"id"`
	Object   string   `json:"object"`
	Created  int64    `json:"created"`
	Model    string   `json:"model"`
	Provider string   `json:"provider,omitempty"`
	Choices  []Choice `json:"choices"`
	Usage    Usage    `json:"usage"`
}

// ModelInfo is a single entry in the /v1/models listing.
type ModelInfo struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
}

// ModelsResponse is the /v1/models listing envelope.
type ModelsResponse struct {
	Object string      `json:"object"`
	Data   []ModelInfo `json:"data"`
}

// TextContent wraps a plain string as a single-part text content array.
func TextContent(s string) []ContentPart {
	return []ContentPart{{Type: "text", Text: s}}
}

// ContentText concatenates the text parts of a content array.
func ContentText(parts []ContentPart) string {
	var out string
	for _, p := range parts {
		if p.Type == "text" {
			out += p.Text
		}
	}
	return out
}

// ContentHasImage reports whether any part of the content is an image.
func ContentHasImage(parts []ContentPart) bool {
	for _, p := range parts {
		if p.Type == "image_url" || p.ImageURL != "" {
			return true
		}
	}
	return false
}

// RequestHasImage reports whether any message in the request carries an
// image part. Used for capability routing.
func RequestHasImage(req *ChatRequest) bool {
	for _, msg := range req.Messages {
		if ContentHasImage(msg.Content) {
			return true
		}
	}
	return false
}
