package adapters

import (
	"strings"

	"github.com/smallbiznis/gridsign/internal/signing/domain"
)

type Registry struct {
	factories map[string]domain.ProviderFactory
}

func NewRegistry(factories ...domain.ProviderFactory) *Registry {
	registry := &Registry{factories: map[string]domain.ProviderFactory{}}
	for _, factory := range factories {
		if factory == nil {
			continue
		}
		provider := normalize(factory.Provider())
		if provider == "" {
			continue
		}
		registry.factories[provider] = factory
	}
	return registry
}

func (r *Registry) ProviderExists(provider string) bool {
	if r == nil {
		return false
	}
	_, ok := r.factories[normalize(provider)]
	return ok
}

func (r *Registry) NewProvider(provider string, cfg domain.ProviderConfig) (domain.Provider, error) {
	if r == nil {
		return nil, domain.ErrProviderNotFound
	}
	factory, ok := r.factories[normalize(provider)]
	if !ok {
		return nil, domain.ErrProviderNotFound
	}
	return factory.NewProvider(cfg)
}

func normalize(provider string) string {
	return strings.ToLower(strings.TrimSpace(provider))
}
