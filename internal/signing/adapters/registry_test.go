package adapters_test

import (
	"testing"

	"github.com/smallbiznis/gridsign/internal/signing/adapters"
	"github.com/smallbiznis/gridsign/internal/signing/adapters/stub"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryResolvesByName(t *testing.T) {
	registry := adapters.NewRegistry(stub.NewFactory(), nil)

	assert.True(t, registry.ProviderExists(" STUB "))
	assert.False(t, registry.ProviderExists("docusign"))

	provider, err := registry.NewProvider("stub", domain.ProviderConfig{WebhookSecret: "s"})
	require.NoError(t, err)
	assert.Equal(t, "stub", provider.Name())

	_, err = registry.NewProvider("docusign", domain.ProviderConfig{WebhookSecret: "s"})
	assert.ErrorIs(t, err, domain.ErrProviderNotFound)
}
