package usage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routerx/internal/core"
	"routerx/internal/store"
)

func TestEstimateCostUSD(t *testing.T) {
	assert.InDelta(t, 0.005, EstimateCostUSD("gpt-4o", 1000), 1e-9)
	assert.InDelta(t, 0.0005, EstimateCostUSD("gpt-3.5-turbo", 500), 1e-9)
	assert.InDelta(t, 0.002, EstimateCostUSD("unknown-model", 1000), 1e-9)
	assert.Zero(t, EstimateCostUSD("gpt-4o", 0))
}

func TestPromptHash_NormalizesWhitespace(t *testing.T) {
	a := &core.ChatRequest{Messages: []core.Message{
		{Role: "user", Content: core.TextContent("hello   world")},
	}}
	b := &core.ChatRequest{Messages: []core.Message{
		{Role: "user", Content: core.TextContent("hello world")},
	}}
	c := &core.ChatRequest{Messages: []core.Message{
		{Role: "user", Content: core.TextContent("goodbye world")},
	}}

	assert.Equal(t, PromptHash(a), PromptHash(b))
	assert.NotEqual(t, PromptHash(a), PromptHash(c))
	assert.Len(t, PromptHash(a), 16)
}

type fakeLedger struct {
	price      float64
	hasPrice   bool
	logs       []store.RequestLog
	rollups    int
	balanceSet []float64
	lastActive int
}

func (f *fakeLedger) GetModelPrice(_ context.Context, _ string) (float64, bool, error) {
	return f.price, f.hasPrice, nil
}

func (f *fakeLedger) InsertRequestLog(_ context.Context, l store.RequestLog) error {
	f.logs = append(f.logs, l)
	return nil
}

func (f *fakeLedger) AddUsageCost(_ context.Context, _, _, _ string, _ int, _ float64, _ time.Time) error {
	f.rollups++
	return nil
}

func (f *fakeLedger) UpdateTenantBalance(_ context.Context, _ string, balance float64) error {
	f.balanceSet = append(f.balanceSet, balance)
	return nil
}

func (f *fakeLedger) UpdateTenantLastActive(_ context.Context, _ string, _ time.Time) error {
	f.lastActive++
	return nil
}

type fakeNotifier struct {
	events []string
}

func (f *fakeNotifier) Fire(_ context.Context, eventType string, _ any) {
	f.events = append(f.events, eventType)
}

func TestRecorder_ChargesSuccessfulRequest(t *testing.T) {
	ledger := &fakeLedger{price: 0.01, hasPrice: true}
	recorder := NewRecorder(ledger, nil, nil)

	recorder.Record(context.Background(), Entry{
		TenantID:   "t1",
		BalanceUSD: 10,
		Provider:   "openai-main",
		Model:      "gpt-4o",
		Tokens:     2000,
		StatusCode: 200,
	})

	require.Len(t, ledger.logs, 1)
	assert.InDelta(t, 0.02, ledger.logs[0].CostUSD, 1e-9)
	assert.Equal(t, 1, ledger.rollups)
	assert.Equal(t, 1, ledger.lastActive)
	require.Len(t, ledger.balanceSet, 1)
	assert.InDelta(t, 9.98, ledger.balanceSet[0], 1e-9)
}

func TestRecorder_FailedRequestIsLoggedButNotCharged(t *testing.T) {
	ledger := &fakeLedger{}
	recorder := NewRecorder(ledger, nil, nil)

	recorder.Record(context.Background(), Entry{
		TenantID:   "t1",
		BalanceUSD: 10,
		Model:      "gpt-4o",
		StatusCode: 502,
		ErrorCode:  "provider_error",
	})

	require.Len(t, ledger.logs, 1)
	assert.Equal(t, 502, ledger.logs[0].StatusCode)
	assert.Zero(t, ledger.rollups)
	assert.Empty(t, ledger.balanceSet)
}

func TestRecorder_LowBalanceFiresWebhook(t *testing.T) {
	ledger := &fakeLedger{price: 1.0, hasPrice: true}
	notifier := &fakeNotifier{}
	recorder := NewRecorder(ledger, notifier, nil)

	recorder.Record(context.Background(), Entry{
		TenantID:   "t1",
		BalanceUSD: 1.5,
		Model:      "gpt-4o",
		Tokens:     1000,
		StatusCode: 200,
	})

	assert.Equal(t, []string{"request.completed", "tenant.balance_low"}, notifier.events)
}
