package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"routerx/internal/store"
)

type staticSource struct {
	hooks []store.Webhook
}

func (s *staticSource) GetEnabledWebhooks(_ context.Context, _ string) ([]store.Webhook, error) {
	return s.hooks, nil
}

func TestFire_DeliversSignedEvent(t *testing.T) {
	type delivery struct {
		signature string
		body      []byte
	}
	received := make(chan delivery, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		received <- delivery{signature: r.Header.Get(SignatureHeader), body: body}
	}))
	defer server.Close()

	dispatcher := New(&staticSource{hooks: []store.Webhook{
		{URL: server.URL, Secret: "hook-secret", Enabled: true},
	}}, nil)

	dispatcher.Fire(context.Background(), "balance_low", map[string]any{"tenant_id": "t1"})

	select {
	case got := <-received:
		assert.Equal(t, Sign("hook-secret", got.body), got.signature)

		var event Event
		require.NoError(t, json.Unmarshal(got.body, &event))
		assert.Equal(t, "balance_low", event.Type)
		data, ok := event.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "t1", data["tenant_id"])
	case <-time.After(2 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestFire_NoHooksIsNoop(t *testing.T) {
	dispatcher := New(&staticSource{}, nil)
	dispatcher.Fire(context.Background(), "balance_low", nil)
}
