// Package store is the Postgres persistence layer: tenants, API keys,
// provider records, routing rules, the model catalog with pricing, request
// logs, and usage rollups.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func New(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

// Connect opens a pgx pool against the given DSN and pings it.
func Connect(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

func (s *Store) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}

type Tenant struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	BalanceUSD    float64    `json:"balance_usd"`
	CreatedAt     time.Time  `json:"created_at"`
	LastActive    *time.Time `json:"last_active"`
	Suspended     bool       `json:"suspended"`
	TotalSpentUSD float64    `json:"total_spent_usd"`
}

type APIKey struct {
	Key           string    `json:"key"`
	TenantID      string    `json:"tenant_id"`
	Name          string    `json:"name"`
	AllowedModels []string  `json:"allowed_models"`
	CreatedAt     time.Time `json:"created_at"`
}

type Provider struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	BaseURL        string `json:"base_url"`
	APIKey         string `json:"-"`
	DefaultModel   string `json:"default_model"`
	SupportsText   bool   `json:"supports_text"`
	SupportsVision bool   `json:"supports_vision"`
	Enabled        bool   `json:"enabled"`
}

type RoutingRule struct {
	ID                  string `json:"id"`
	TenantID            string `json:"tenant_id"`
	Capability          string `json:"capability"`
	PrimaryProviderID   string `json:"primary_provider_id"`
	SecondaryProviderID string `json:"secondary_provider_id"`
	Model               string `json:"model"`
}

type ModelInfo struct {
	Model        string  `json:"id"`
	ProviderType string  `json:"provider_type"`
	PricePer1K   float64 `json:"price_per_1k_usd"`
}

type RequestLog struct {
	ID           int       `json:"id"`
	TenantID     string    `json:"tenant_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	LatencyMS    int       `json:"latency_ms"`
	Tokens       int       `json:"tokens"`
	CostUSD      float64   `json:"cost_usd"`
	PromptHash   string    `json:"prompt_hash"`
	FallbackUsed bool      `json:"fallback_used"`
	StatusCode   int       `json:"status_code"`
	ErrorCode    string    `json:"error_code"`
	CreatedAt    time.Time `json:"created_at"`
}

type Webhook struct {
	ID      int      `json:"id"`
	URL     string   `json:"url"`
	Events  []string `json:"events"`
	Secret  string   `json:"-"`
	Enabled bool     `json:"enabled"`
}

const tenantColumns = `id, name, balance_usd, created_at, last_active, suspended, total_spent_usd`

func scanTenant(row pgx.Row) (*Tenant, error) {
	var t Tenant
	err := row.Scan(&t.ID, &t.Name, &t.BalanceUSD, &t.CreatedAt, &t.LastActive, &t.Suspended, &t.TotalSpentUSD)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Store) GetTenantByAPIKey(ctx context.Context, key string) (*Tenant, error) {
	row := s.DB.QueryRow(ctx,
		`SELECT t.id, t.name, t.balance_usd, t.created_at, t.last_active, t.suspended, t.total_spent_usd FROM api_keys k JOIN tenants t ON k.tenant_id=t.id WHERE k.key=$1`, key)
	return scanTenant(row)
}

func (s *Store) GetTenantByID(ctx context.Context, id string) (*Tenant, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+tenantColumns+` FROM tenants WHERE id=$1`, id)
	return scanTenant(row)
}

func (s *Store) GetAPIKey(ctx context.Context, key string) (*APIKey, error) {
	row := s.DB.QueryRow(ctx,
		`SELECT key, tenant_id, COALESCE(name,''), COALESCE(allowed_models, ARRAY[]::text[]), created_at FROM api_keys WHERE key=$1`, key)
	var k APIKey
	if err := row.Scan(&k.Key, &k.TenantID, &k.Name, &k.AllowedModels, &k.CreatedAt); err != nil {
		return nil, err
	}
	return &k, nil
}

const providerColumns = `id, name, type, COALESCE(base_url,''), COALESCE(api_key,''), default_model, supports_text, supports_vision, enabled`

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider
	err := row.Scan(&p.ID, &p.Name, &p.Type, &p.BaseURL, &p.APIKey, &p.DefaultModel, &p.SupportsText, &p.SupportsVision, &p.Enabled)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProviderByID(ctx context.Context, id string) (*Provider, error) {
	row := s.DB.QueryRow(ctx, `SELECT `+providerColumns+` FROM providers WHERE id=$1`, id)
	return scanProvider(row)
}

func (s *Store) GetEnabledProvidersByType(ctx context.Context, providerType string) ([]Provider, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT `+providerColumns+` FROM providers WHERE type=$1 AND enabled=true ORDER BY name`, providerType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []Provider
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func (s *Store) UpsertProvider(ctx context.Context, p Provider) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO providers (id, name, type, base_url, api_key, default_model, supports_text, supports_vision, enabled)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name, type=EXCLUDED.type, base_url=EXCLUDED.base_url, api_key=EXCLUDED.api_key, default_model=EXCLUDED.default_model, supports_text=EXCLUDED.supports_text, supports_vision=EXCLUDED.supports_vision, enabled=EXCLUDED.enabled`,
		p.ID, p.Name, p.Type, p.BaseURL, p.APIKey, p.DefaultModel, p.SupportsText, p.SupportsVision, p.Enabled)
	return err
}

func (s *Store) GetRoutingRule(ctx context.Context, tenantID, capability string) (*RoutingRule, error) {
	row := s.DB.QueryRow(ctx,
		`SELECT id, tenant_id, capability, primary_provider_id, COALESCE(secondary_provider_id,''), COALESCE(model,'') FROM routing_rules WHERE tenant_id=$1 AND capability=$2 LIMIT 1`,
		tenantID, capability)
	var r RoutingRule
	if err := row.Scan(&r.ID, &r.TenantID, &r.Capability, &r.PrimaryProviderID, &r.SecondaryProviderID, &r.Model); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &r, nil
}

func (s *Store) UpsertRoutingRule(ctx context.Context, r RoutingRule) error {
	if r.TenantID == "" {
		return errors.New("tenant_id required")
	}
	_, err := s.DB.Exec(ctx, `INSERT INTO routing_rules (id, tenant_id, capability, primary_provider_id, secondary_provider_id, model)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id) DO UPDATE SET tenant_id=EXCLUDED.tenant_id, capability=EXCLUDED.capability, primary_provider_id=EXCLUDED.primary_provider_id, secondary_provider_id=EXCLUDED.secondary_provider_id, model=EXCLUDED.model`,
		r.ID, r.TenantID, r.Capability, r.PrimaryProviderID, r.SecondaryProviderID, r.Model)
	return err
}

func (s *Store) CreateTenant(ctx context.Context, t Tenant) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO tenants (id, name, balance_usd) VALUES ($1,$2,$3) ON CONFLICT (id) DO UPDATE SET name=EXCLUDED.name`,
		t.ID, t.Name, t.BalanceUSD)
	return err
}

func (s *Store) CreateAPIKey(ctx context.Context, k APIKey) error {
	if k.CreatedAt.IsZero() {
		k.CreatedAt = time.Now().UTC()
	}
	_, err := s.DB.Exec(ctx,
		`INSERT INTO api_keys (key, tenant_id, name, allowed_models, created_at) VALUES ($1,$2,$3,$4,$5) ON CONFLICT (key) DO NOTHING`,
		k.Key, k.TenantID, k.Name, k.AllowedModels, k.CreatedAt)
	return err
}

// GetModelProvider resolves a model name to its provider type via the
// catalog table. The bool reports whether the model is cataloged.
func (s *Store) GetModelProvider(ctx context.Context, model string) (string, bool, error) {
	row := s.DB.QueryRow(ctx, `SELECT provider_type FROM model_catalog WHERE model=$1`, model)
	var providerType string
	if err := row.Scan(&providerType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, err
	}
	return providerType, true, nil
}

func (s *Store) AddModelCatalog(ctx context.Context, model, providerType string) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO model_catalog (model, provider_type) VALUES ($1,$2) ON CONFLICT (model) DO UPDATE SET provider_type=EXCLUDED.provider_type`,
		model, providerType)
	return err
}

// GetModelPrice returns the USD price per 1K tokens for a model. The bool
// reports whether a price row exists.
func (s *Store) GetModelPrice(ctx context.Context, model string) (float64, bool, error) {
	row := s.DB.QueryRow(ctx, `SELECT price_per_1k_usd FROM model_pricing WHERE model=$1`, model)
	var price float64
	if err := row.Scan(&price); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return price, true, nil
}

func (s *Store) UpsertModelPricing(ctx context.Context, model string, pricePer1K float64) error {
	_, err := s.DB.Exec(ctx,
		`INSERT INTO model_pricing (model, price_per_1k_usd) VALUES ($1,$2) ON CONFLICT (model) DO UPDATE SET price_per_1k_usd=EXCLUDED.price_per_1k_usd`,
		model, pricePer1K)
	return err
}

func (s *Store) ListAllModels(ctx context.Context) ([]ModelInfo, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT mc.model, mc.provider_type, COALESCE(mp.price_per_1k_usd,0) FROM model_catalog mc LEFT JOIN model_pricing mp ON mc.model=mp.model ORDER BY mc.provider_type, mc.model`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ModelInfo
	for rows.Next() {
		var m ModelInfo
		if err := rows.Scan(&m.Model, &m.ProviderType, &m.PricePer1K); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) InsertRequestLog(ctx context.Context, l RequestLog) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO request_logs (tenant_id, provider, model, latency_ms, tokens, cost_usd, prompt_hash, fallback_used, status_code, error_code, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		l.TenantID, l.Provider, l.Model, l.LatencyMS, l.Tokens, l.CostUSD, l.PromptHash, l.FallbackUsed, l.StatusCode, l.ErrorCode, l.CreatedAt)
	return err
}

// AddUsageCost folds one request into the daily usage rollup and the
// tenant's lifetime spend.
func (s *Store) AddUsageCost(ctx context.Context, tenantID, provider, model string, tokens int, cost float64, day time.Time) error {
	_, err := s.DB.Exec(ctx, `INSERT INTO usage_daily (tenant_id, provider, model, day, tokens, cost_usd) VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (tenant_id, provider, model, day) DO UPDATE SET tokens = usage_daily.tokens + EXCLUDED.tokens, cost_usd = usage_daily.cost_usd + EXCLUDED.cost_usd`,
		tenantID, provider, model, day, tokens, cost)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `UPDATE tenants SET total_spent_usd = total_spent_usd + $2 WHERE id=$1`, tenantID, cost)
	return err
}

func (s *Store) UpdateTenantBalance(ctx context.Context, tenantID string, balance float64) error {
	_, err := s.DB.Exec(ctx, `UPDATE tenants SET balance_usd=$2 WHERE id=$1`, tenantID, balance)
	return err
}

func (s *Store) UpdateTenantLastActive(ctx context.Context, tenantID string, at time.Time) error {
	_, err := s.DB.Exec(ctx, `UPDATE tenants SET last_active=$2 WHERE id=$1`, tenantID, at)
	return err
}

func (s *Store) GetEnabledWebhooks(ctx context.Context, event string) ([]Webhook, error) {
	rows, err := s.DB.Query(ctx,
		`SELECT id, url, events, secret, enabled FROM webhooks WHERE enabled=true AND $1=ANY(events)`, event)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hooks []Webhook
	for rows.Next() {
		var h Webhook
		if err := rows.Scan(&h.ID, &h.URL, &h.Events, &h.Secret, &h.Enabled); err != nil {
			return nil, err
		}
		hooks = append(hooks, h)
	}
	return hooks, rows.Err()
}
