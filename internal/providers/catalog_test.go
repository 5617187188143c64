package providers

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models.yaml")
	require.NoError(t, os.WriteFile(path, []byte("models:\n  gpt-4o: openai\n  gemini-2.5-flash: gemini\n"), 0o644))

	catalog, err := LoadCatalogFile(path)
	require.NoError(t, err)

	providerType, ok, err := catalog.ProviderTypeFor(context.Background(), "gemini-2.5-flash")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "gemini", providerType)

	_, ok, err = catalog.ProviderTypeFor(context.Background(), "unlisted")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLoadCatalogFile_MissingPathIsEmpty(t *testing.T) {
	catalog, err := LoadCatalogFile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Empty(t, catalog)
}

func TestLoadCatalogFile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte(":\tnot yaml"), 0o644))

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
}

func TestChainCatalog_FirstHitWins(t *testing.T) {
	chain := ChainCatalog{
		StaticCatalog{"gpt-4o": "openai"},
		StaticCatalog{"gpt-4o": "azure", "claude-3-opus": "anthropic"},
	}

	providerType, ok, err := chain.ProviderTypeFor(context.Background(), "gpt-4o")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "openai", providerType)

	providerType, ok, err = chain.ProviderTypeFor(context.Background(), "claude-3-opus")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "anthropic", providerType)

	_, ok, err = chain.ProviderTypeFor(context.Background(), "unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}
