package providers

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog maps model identifiers to provider types. The second return is
// false when the model is unknown to this catalog.
type Catalog interface {
	ProviderTypeFor(ctx context.Context, model string) (string, bool, error)
}

// StaticCatalog is an in-memory model-to-provider-type mapping, typically
// seeded from a YAML file.
type StaticCatalog map[string]string

// ProviderTypeFor implements Catalog.
func (c StaticCatalog) ProviderTypeFor(_ context.Context, model string) (string, bool, error) {
	t, ok := c[model]
	return t, ok, nil
}

// catalogFile is the YAML shape of a catalog seed file:
//
//	models:
//	  gpt-4o: openai
//	  claude-3-5-sonnet: anthropic
//	  gemini-2.5-flash: gemini
type catalogFile struct {
	Models map[string]string `yaml:"models"`
}

// LoadCatalogFile reads a catalog seed file. A missing path returns an
// empty catalog, not an error, so the file stays optional.
func LoadCatalogFile(path string) (StaticCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StaticCatalog{}, nil
		}
		return nil, fmt.Errorf("read catalog file: %w", err)
	}

	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog file %s: %w", path, err)
	}
	return StaticCatalog(f.Models), nil
}

// ChainCatalog consults catalogs in order and returns the first hit. Used to
// layer the store-backed catalog over the static seed.
type ChainCatalog []Catalog

// ProviderTypeFor implements Catalog.
func (c ChainCatalog) ProviderTypeFor(ctx context.Context, model string) (string, bool, error) {
	for _, cat := range c {
		t, ok, err := cat.ProviderTypeFor(ctx, model)
		if err != nil {
			return "", false, err
		}
		if ok {
			return t, true, nil
		}
	}
	return "", false, nil
}
