// Package usage turns completed requests into billing artifacts: cost
// estimation, prompt hashing, request logs, daily rollups, and tenant
// balance updates.
package usage

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"

	"routerx/internal/core"
)

// fallbackPricePer1K is used when the pricing table has no row for a
// model. USD per 1K tokens.
var fallbackPricePer1K = map[string]float64{
	"gpt-4o":            0.005,
	"gpt-4o-mini":       0.0015,
	"gpt-4.1":           0.008,
	"gpt-4.1-mini":      0.002,
	"gpt-3.5-turbo":     0.001,
	"claude-3-5-sonnet": 0.006,
	"claude-3-5-haiku":  0.001,
	"claude-3-opus":     0.015,
	"gemini-1.5-pro":    0.0035,
	"gemini-1.5-flash":  0.001,
	"gemini-1.0-pro":    0.001,
}

const defaultPricePer1K = 0.002

// EstimateCostUSD prices a request from the static table when the store
// has no entry.
func EstimateCostUSD(model string, tokens int) float64 {
	price, ok := fallbackPricePer1K[model]
	if !ok {
		price = defaultPricePer1K
	}
	return price * float64(tokens) / 1000.0
}

// PromptHash fingerprints the request's text content so identical prompts
// collapse to the same log value without storing the prompt itself.
func PromptHash(req *core.ChatRequest) string {
	var b strings.Builder
	for _, msg := range req.Messages {
		b.WriteString(msg.Role)
		b.WriteByte(':')
		b.WriteString(core.ContentText(msg.Content))
		b.WriteByte('\n')
	}
	normalized := strings.Join(strings.Fields(b.String()), " ")
	return fmt.Sprintf("%016x", xxhash.Sum64String(normalized))
}
