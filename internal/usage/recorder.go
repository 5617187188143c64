package usage

import (
	"context"
	"log/slog"
	"time"

	"routerx/internal/store"
)

// balanceLowThresholdUSD triggers the balance_low webhook event when a
// charge drops a tenant below it.
const balanceLowThresholdUSD = 1.0

// Ledger is the slice of the store the recorder writes to.
type Ledger interface {
	GetModelPrice(ctx context.Context, model string) (float64, bool, error)
	InsertRequestLog(ctx context.Context, l store.RequestLog) error
	AddUsageCost(ctx context.Context, tenantID, provider, model string, tokens int, cost float64, day time.Time) error
	UpdateTenantBalance(ctx context.Context, tenantID string, balance float64) error
	UpdateTenantLastActive(ctx context.Context, tenantID string, at time.Time) error
}

// Notifier fires webhook events. Satisfied by webhook.Dispatcher.
type Notifier interface {
	Fire(ctx context.Context, eventType string, data any)
}

// Entry describes one completed request to record.
type Entry struct {
	TenantID     string
	BalanceUSD   float64
	Provider     string
	Model        string
	Latency      time.Duration
	Tokens       int
	PromptHash   string
	FallbackUsed bool
	StatusCode   int
	ErrorCode    string
}

// Recorder persists request outcomes and charges tenants for them.
type Recorder struct {
	ledger   Ledger
	notifier Notifier
	logger   *slog.Logger
}

func NewRecorder(ledger Ledger, notifier Notifier, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ledger: ledger, notifier: notifier, logger: logger}
}

// Cost prices the request, preferring the pricing table over the static
// fallback.
func (r *Recorder) Cost(ctx context.Context, model string, tokens int) float64 {
	if tokens <= 0 {
		return 0
	}
	if price, ok, err := r.ledger.GetModelPrice(ctx, model); err == nil && ok {
		return price * float64(tokens) / 1000.0
	}
	return EstimateCostUSD(model, tokens)
}

// Record writes the request log, rolls the request into the daily usage
// table, and deducts the cost from the tenant balance. Storage errors are
// logged and swallowed so billing failures never fail the data plane.
func (r *Recorder) Record(ctx context.Context, e Entry) {
	cost := r.Cost(ctx, e.Model, e.Tokens)
	now := time.Now().UTC()

	err := r.ledger.InsertRequestLog(ctx, store.RequestLog{
		TenantID:     e.TenantID,
		Provider:     e.Provider,
		Model:        e.Model,
		LatencyMS:    int(e.Latency.Milliseconds()),
		Tokens:       e.Tokens,
		CostUSD:      cost,
		PromptHash:   e.PromptHash,
		FallbackUsed: e.FallbackUsed,
		StatusCode:   e.StatusCode,
		ErrorCode:    e.ErrorCode,
		CreatedAt:    now,
	})
	if err != nil {
		r.logger.Warn("request log insert failed", "tenant_id", e.TenantID, "error", err)
	}

	if err := r.ledger.UpdateTenantLastActive(ctx, e.TenantID, now); err != nil {
		r.logger.Warn("last_active update failed", "tenant_id", e.TenantID, "error", err)
	}

	if e.StatusCode != 200 || e.Tokens <= 0 || cost <= 0 {
		return
	}

	if err := r.ledger.AddUsageCost(ctx, e.TenantID, e.Provider, e.Model, e.Tokens, cost, now); err != nil {
		r.logger.Warn("usage rollup failed", "tenant_id", e.TenantID, "error", err)
	}

	if r.notifier != nil {
		r.notifier.Fire(ctx, "request.completed", map[string]any{
			"tenant_id": e.TenantID,
			"provider":  e.Provider,
			"model":     e.Model,
			"tokens":    e.Tokens,
			"cost_usd":  cost,
		})
	}

	newBalance := e.BalanceUSD - cost
	if err := r.ledger.UpdateTenantBalance(ctx, e.TenantID, newBalance); err != nil {
		r.logger.Warn("balance update failed", "tenant_id", e.TenantID, "error", err)
		return
	}
	if newBalance < balanceLowThresholdUSD && r.notifier != nil {
		r.notifier.Fire(ctx, "tenant.balance_low", map[string]any{
			"tenant_id":   e.TenantID,
			"balance_usd": newBalance,
		})
	}
}
