// Package main is a smoke-test probe for a running RouterX gateway. It
// sends one chat completion per configured model and prints each raw
// response, so operators can eyeball exactly what the gateway returns.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/viper"
	"github.com/tidwall/gjson"

	"routerx/pkg/client"
)

func main() {
	_ = godotenv.Load()

	viper.SetDefault("ROUTERX_URL", "http://localhost:8080/v1/chat/completions")
	viper.SetDefault("ROUTERX_MODELS", "gemini-2.5-flash")
	viper.SetDefault("ROUTERX_PROMPT", "Hello from RouterX")
	viper.AutomaticEnv()

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{TimeFormat: time.Kitchen}))

	apiKey := viper.GetString("ROUTERX_API_KEY")
	if apiKey == "" {
		logger.Error("missing ROUTERX_API_KEY env var")
		os.Exit(1)
	}

	endpoint := viper.GetString("ROUTERX_URL")
	prompt := viper.GetString("ROUTERX_PROMPT")
	models := strings.Split(viper.GetString("ROUTERX_MODELS"), ",")

	probe := client.New(endpoint, apiKey)
	ctx := context.Background()

	failed := false
	for _, model := range models {
		model = strings.TrimSpace(model)
		if model == "" {
			continue
		}
		resp, err := probe.Send(ctx, client.ChatCompletionRequest{
			Model:    model,
			Messages: []client.ChatMessage{client.UserText(prompt)},
		})
		if err != nil {
			logger.Error("request failed", "model", model, "error", err)
			failed = true
			continue
		}

		fmt.Println(resp.StatusCode)
		fmt.Println(resp.Body)

		if tokens := gjson.Get(resp.Body, "usage.total_tokens"); tokens.Exists() {
			logger.Info("completion received", "model", model, "total_tokens", tokens.Int())
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
