// Package server provides HTTP handlers and server setup for the gateway.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"routerx/internal/core"
	"routerx/internal/metrics"
	"routerx/internal/providers"
	"routerx/internal/store"
	"routerx/internal/usage"
)

// Router routes a chat request to a provider. Satisfied by
// providers.Router.
type Router interface {
	Route(ctx context.Context, tenantID string, req *core.ChatRequest) (*providers.Result, error)
	CircuitStates() map[string]string
}

// ModelLister returns the cataloged models. Satisfied by the store.
type ModelLister interface {
	ListAllModels(ctx context.Context) ([]store.ModelInfo, error)
}

// KeySource looks up API key records for model allow-list checks.
// Satisfied by the store.
type KeySource interface {
	GetAPIKey(ctx context.Context, key string) (*store.APIKey, error)
}

// Handler holds the HTTP handlers.
type Handler struct {
	router   Router
	models   ModelLister
	keys     KeySource
	recorder *usage.Recorder
	logger   *slog.Logger
}

// NewHandler creates a handler. keys may be nil to skip per-key model
// allow-lists; recorder may be nil to disable billing.
func NewHandler(router Router, models ModelLister, keys KeySource, recorder *usage.Recorder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		router:   router,
		models:   models,
		keys:     keys,
		recorder: recorder,
		logger:   logger,
	}
}

// ChatCompletion handles POST /v1/chat/completions
func (h *Handler) ChatCompletion(c echo.Context) error {
	tenant := tenantFrom(c)
	if tenant == nil {
		return authError(c, "missing tenant")
	}
	if tenant.BalanceUSD <= 0 {
		return c.JSON(http.StatusPaymentRequired, map[string]interface{}{
			"error": map[string]interface{}{
				"type":    "invalid_request_error",
				"message": "insufficient balance",
			},
		})
	}

	var req core.ChatRequest
	if err := c.Bind(&req); err != nil {
		return handleError(c, core.NewInvalidRequestError("invalid request body: "+err.Error(), err))
	}
	if len(req.Messages) == 0 {
		return handleError(c, core.NewInvalidRequestError("messages is required", nil))
	}
	if err := h.checkModelAllowed(c, req.Model); err != nil {
		return err
	}

	requestID := uuid.NewString()
	ctx := core.WithRequestID(c.Request().Context(), requestID)
	promptHash := usage.PromptHash(&req)
	start := time.Now()

	result, routeErr := h.router.Route(ctx, tenant.ID, &req)
	latency := time.Since(start)

	entry := usage.Entry{
		TenantID:   tenant.ID,
		BalanceUSD: tenant.BalanceUSD,
		Model:      req.Model,
		Latency:    latency,
		PromptHash: promptHash,
		StatusCode: http.StatusOK,
	}
	if routeErr != nil {
		status := http.StatusBadGateway
		var gatewayErr *core.GatewayError
		if errors.As(routeErr, &gatewayErr) {
			status = gatewayErr.HTTPStatusCode()
			entry.ErrorCode = string(gatewayErr.Type)
		}
		entry.StatusCode = status
	} else {
		entry.Provider = result.Provider
		entry.Tokens = result.Tokens
		entry.FallbackUsed = result.FallbackUsed
	}

	metrics.RequestsTotal.WithLabelValues(entry.Provider, strconv.Itoa(entry.StatusCode)).Inc()
	metrics.LatencyMS.WithLabelValues(entry.Provider).Observe(float64(latency.Milliseconds()))
	if entry.FallbackUsed {
		metrics.FallbacksTotal.WithLabelValues(entry.Provider).Inc()
	}

	if h.recorder != nil {
		go h.recorder.Record(context.WithoutCancel(ctx), entry)
	}

	h.logger.Info("request completed",
		"request_id", requestID,
		"tenant_id", tenant.ID,
		"provider", entry.Provider,
		"model", req.Model,
		"status", entry.StatusCode,
		"latency_ms", latency.Milliseconds(),
		"tokens", entry.Tokens,
		"fallback", entry.FallbackUsed,
	)

	if routeErr != nil {
		return handleError(c, routeErr)
	}
	return c.JSON(http.StatusOK, result.Response)
}

// checkModelAllowed enforces the API key's model allow-list. Keys with an
// empty list may use any model.
func (h *Handler) checkModelAllowed(c echo.Context, model string) error {
	if h.keys == nil {
		return nil
	}
	key := apiKeyFrom(c)
	if key == "" {
		return nil
	}
	rec, err := h.keys.GetAPIKey(c.Request().Context(), key)
	if err != nil || len(rec.AllowedModels) == 0 {
		return nil
	}
	for _, allowed := range rec.AllowedModels {
		if allowed == model {
			return nil
		}
	}
	return c.JSON(http.StatusForbidden, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "invalid_request_error",
			"message": "model not allowed for this api key",
		},
	})
}

// ListModels handles GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	models, err := h.models.ListAllModels(c.Request().Context())
	if err != nil {
		return handleError(c, core.NewProviderError("catalog", http.StatusBadGateway, "model listing failed", err))
	}
	resp := core.ModelsResponse{Object: "list", Data: make([]core.ModelInfo, 0, len(models))}
	for _, m := range models {
		resp.Data = append(resp.Data, core.ModelInfo{
			ID:      m.Model,
			Object:  "model",
			OwnedBy: m.ProviderType,
		})
	}
	return c.JSON(http.StatusOK, resp)
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"circuits": h.router.CircuitStates(),
	})
}

// handleError converts gateway errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var gatewayErr *core.GatewayError
	if errors.As(err, &gatewayErr) {
		return c.JSON(gatewayErr.HTTPStatusCode(), gatewayErr.Envelope())
	}
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
