package providers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"routerx/internal/core"
)

// RoutingRule is a per-tenant override: for a capability, try the primary
// provider first, then the secondary.
type RoutingRule struct {
	ID                  string
	TenantID            string
	Capability          string
	PrimaryProviderID   string
	SecondaryProviderID string
	Model               string
}

// RecordSource supplies provider records and routing rules, usually backed
// by the store.
type RecordSource interface {
	// EnabledProvidersByType returns enabled providers of the given type.
	EnabledProvidersByType(ctx context.Context, providerType string) ([]Record, error)

	// ProviderByID returns one provider record by ID.
	ProviderByID(ctx context.Context, id string) (*Record, error)

	// RoutingRule returns the tenant's rule for a capability, or nil when
	// no rule exists.
	RoutingRule(ctx context.Context, tenantID, capability string) (*RoutingRule, error)
}

// Result carries the outcome of a routed chat completion.
type Result struct {
	Response     *core.ChatResponse
	Provider     string
	ProviderType string
	FallbackUsed bool
	Tokens       int
}

// Options tunes router behavior.
type Options struct {
	// EnableRealCalls switches between real upstream calls and locally
	// fabricated responses. Off by default so a fresh checkout works
	// without any provider keys.
	EnableRealCalls bool

	// Health publishes per-attempt provider health. Optional.
	Health *HealthTracker

	// Factory overrides provider construction, for tests.
	Factory func(rec Record) (Provider, error)

	// Breaker thresholds. Zero values take the defaults below.
	FailureThreshold int
	SuccessThreshold int
	Cooldown         time.Duration
}

// Router resolves a model to a provider and executes the request, falling
// back across enabled providers of the same type. One circuit breaker per
// provider instance keeps a failing upstream from absorbing every request.
type Router struct {
	catalog Catalog
	source  RecordSource
	opts    Options

	mu       sync.Mutex
	breakers map[string]*breaker
}

// NewRouter creates a router over the given catalog and record source.
func NewRouter(catalog Catalog, source RecordSource, opts Options) *Router {
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 5
	}
	if opts.SuccessThreshold == 0 {
		opts.SuccessThreshold = 2
	}
	if opts.Cooldown == 0 {
		opts.Cooldown = 30 * time.Second
	}
	return &Router{
		catalog:  catalog,
		source:   source,
		opts:     opts,
		breakers: make(map[string]*breaker),
	}
}

// Route executes req for the tenant:
//  1. detect the required capability (text or vision)
//  2. fill in a missing model from the tenant's routing rule
//  3. resolve model -> provider type via the catalog and try each enabled
//     provider of that type in order
//  4. fall back to the tenant's routing rule providers
//
// When every path fails, the error carries the full chain of attempts.
func (r *Router) Route(ctx context.Context, tenantID string, req *core.ChatRequest) (*Result, error) {
	capability := "text"
	if core.RequestHasImage(req) {
		capability = "vision"
	}

	rule, ruleErr := r.source.RoutingRule(ctx, tenantID, capability)

	if req.Model == "" {
		if rule != nil && rule.Model != "" {
			req.Model = rule.Model
		} else {
			req.Model = "default"
		}
	}

	var errs []string

	providerType, catalogOK, catalogErr := r.catalog.ProviderTypeFor(ctx, req.Model)
	switch {
	case catalogOK && providerType != "":
		res, err := r.tryProvidersByType(ctx, providerType, capability, req)
		if err == nil {
			return res, nil
		}
		errs = append(errs, fmt.Sprintf("auto-route(%s): %v", providerType, err))
	case catalogErr != nil:
		errs = append(errs, fmt.Sprintf("catalog lookup: %v", catalogErr))
	default:
		errs = append(errs, "model not in catalog")
	}

	if ruleErr == nil && rule != nil {
		if res, err := r.tryRule(ctx, rule, req, &errs); err == nil {
			return res, nil
		}
	}

	return nil, core.NewNotFoundError(fmt.Sprintf("routing failed for model %s: %s", req.Model, strings.Join(errs, "; ")))
}

// tryRule attempts the rule's primary and then secondary provider,
// appending attempt errors to errs.
func (r *Router) tryRule(ctx context.Context, rule *RoutingRule, req *core.ChatRequest, errs *[]string) (*Result, error) {
	primary, err := r.source.ProviderByID(ctx, rule.PrimaryProviderID)
	if err != nil {
		*errs = append(*errs, fmt.Sprintf("rule-primary lookup: %v", err))
		return nil, err
	}

	res, err := r.tryProvider(ctx, primary, req)
	if err == nil {
		return res, nil
	}
	*errs = append(*errs, fmt.Sprintf("rule-primary(%s): %v", primary.Name, err))

	if rule.SecondaryProviderID == "" {
		return nil, err
	}
	secondary, err2 := r.source.ProviderByID(ctx, rule.SecondaryProviderID)
	if err2 != nil {
		*errs = append(*errs, fmt.Sprintf("rule-secondary lookup: %v", err2))
		return nil, err2
	}
	res, err2 = r.tryProvider(ctx, secondary, req)
	if err2 == nil {
		res.FallbackUsed = true
		return res, nil
	}
	*errs = append(*errs, fmt.Sprintf("rule-secondary(%s): %v", secondary.Name, err2))
	return nil, err2
}

// tryProvidersByType tries every enabled, capability-matching provider of
// the given type in order. Any success past the first candidate marks the
// result as a fallback.
func (r *Router) tryProvidersByType(ctx context.Context, providerType, capability string, req *core.ChatRequest) (*Result, error) {
	records, err := r.source.EnabledProvidersByType(ctx, providerType)
	if err != nil || len(records) == 0 {
		return nil, errors.New("no enabled provider for type: " + providerType)
	}

	var candidates []Record
	for _, rec := range records {
		if capability == "vision" && !rec.SupportsVision {
			continue
		}
		if capability == "text" && !rec.SupportsText {
			continue
		}
		candidates = append(candidates, rec)
	}
	if len(candidates) == 0 {
		return nil, errors.New("no provider supports " + capability + " for type: " + providerType)
	}

	var lastErr error
	for i, rec := range candidates {
		recCopy := rec
		res, err := r.tryProvider(ctx, &recCopy, req)
		if err == nil {
			res.FallbackUsed = res.FallbackUsed || i > 0
			return res, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

// tryProvider executes one attempt against a single provider record.
func (r *Router) tryProvider(ctx context.Context, rec *Record, req *core.ChatRequest) (*Result, error) {
	if !rec.Enabled {
		return nil, errors.New("provider disabled")
	}
	isVision := core.RequestHasImage(req)
	if isVision && !rec.SupportsVision {
		return nil, errors.New("provider lacks vision")
	}
	if !isVision && !rec.SupportsText {
		return nil, errors.New("provider lacks text")
	}

	brk := r.breakerFor(rec.ID)
	if !brk.Allow() {
		return nil, errors.New("circuit open")
	}

	provider, err := r.buildProvider(*rec)
	if err != nil {
		return nil, err
	}

	resp, err := provider.Chat(ctx, req)
	brk.Record(err == nil)
	r.opts.Health.Record(ctx, rec.ID, err == nil)
	if err != nil {
		return nil, err
	}

	return &Result{
		Response:     resp,
		Provider:     rec.Name,
		ProviderType: rec.Type,
		Tokens:       resp.Usage.TotalTokens,
	}, nil
}

// buildProvider constructs the provider instance for a record, honoring
// dummy mode and the test factory override.
func (r *Router) buildProvider(rec Record) (Provider, error) {
	if r.opts.Factory != nil {
		return r.opts.Factory(rec)
	}
	if !r.opts.EnableRealCalls {
		return NewDummy(rec.Name), nil
	}
	if rec.APIKey == "" {
		return nil, fmt.Errorf("no API key configured for provider %s (%s)", rec.Name, rec.Type)
	}
	return New(rec)
}

func (r *Router) breakerFor(providerID string) *breaker {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.breakers[providerID]; ok {
		return b
	}
	b := newBreaker(r.opts.FailureThreshold, r.opts.SuccessThreshold, r.opts.Cooldown)
	r.breakers[providerID] = b
	return b
}

// CircuitStates returns the breaker state per provider ID, for the health
// endpoint.
func (r *Router) CircuitStates() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	states := make(map[string]string, len(r.breakers))
	for id, b := range r.breakers {
		states[id] = b.State()
	}
	return states
}
