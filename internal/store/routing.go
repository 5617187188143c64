package store

import (
	"context"

	"routerx/internal/providers"
)

// RoutingSource adapts the store to the router's record source.
type RoutingSource struct {
	s *Store
}

func (s *Store) RoutingSource() *RoutingSource {
	return &RoutingSource{s: s}
}

func toRecord(p *Provider) providers.Record {
	return providers.Record{
		ID:             p.ID,
		Name:           p.Name,
		Type:           p.Type,
		BaseURL:        p.BaseURL,
		APIKey:         p.APIKey,
		DefaultModel:   p.DefaultModel,
		SupportsText:   p.SupportsText,
		SupportsVision: p.SupportsVision,
		Enabled:        p.Enabled,
	}
}

func (r *RoutingSource) EnabledProvidersByType(ctx context.Context, providerType string) ([]providers.Record, error) {
	list, err := r.s.GetEnabledProvidersByType(ctx, providerType)
	if err != nil {
		return nil, err
	}
	records := make([]providers.Record, 0, len(list))
	for i := range list {
		records = append(records, toRecord(&list[i]))
	}
	return records, nil
}

func (r *RoutingSource) ProviderByID(ctx context.Context, id string) (*providers.Record, error) {
	p, err := r.s.GetProviderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rec := toRecord(p)
	return &rec, nil
}

func (r *RoutingSource) RoutingRule(ctx context.Context, tenantID, capability string) (*providers.RoutingRule, error) {
	rule, err := r.s.GetRoutingRule(ctx, tenantID, capability)
	if err != nil || rule == nil {
		return nil, err
	}
	return &providers.RoutingRule{
		ID:                  rule.ID,
		TenantID:            rule.TenantID,
		Capability:          rule.Capability,
		PrimaryProviderID:   rule.PrimaryProviderID,
		SecondaryProviderID: rule.SecondaryProviderID,
		Model:               rule.Model,
	}, nil
}

// CatalogSource adapts the model_catalog table to the router's catalog.
type CatalogSource struct {
	s *Store
}

func (s *Store) CatalogSource() *CatalogSource {
	return &CatalogSource{s: s}
}

func (c *CatalogSource) ProviderTypeFor(ctx context.Context, model string) (string, bool, error) {
	return c.s.GetModelProvider(ctx, model)
}
