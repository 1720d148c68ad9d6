package signing

import (
	"fmt"

	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/smallbiznis/gridsign/internal/signing/adapters"
	"github.com/smallbiznis/gridsign/internal/signing/adapters/stub"
	"github.com/smallbiznis/gridsign/internal/signing/domain"
	"github.com/smallbiznis/gridsign/internal/signing/repository"
	"github.com/smallbiznis/gridsign/internal/signing/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("signing.service",
	fx.Provide(NewRegistry),
	fx.Provide(NewConfiguredProvider),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func NewRegistry() *adapters.Registry {
	return adapters.NewRegistry(
		stub.NewFactory(),
	)
}

// NewConfiguredProvider builds the provider named in configuration. Startup
// fails when the provider is unknown or its credentials are incomplete.
func NewConfiguredProvider(cfg config.Config, registry *adapters.Registry, log *zap.Logger) (domain.Provider, error) {
	name := cfg.ESign.Provider
	if !registry.ProviderExists(name) {
		return nil, fmt.Errorf("%w: %q", domain.ErrProviderNotFound, name)
	}
	if cfg.ESign.SkipWebhookSignature && cfg.IsProduction() {
		return nil, fmt.Errorf("%w: webhook signature verification cannot be skipped in production", domain.ErrInvalidConfig)
	}

	provider, err := registry.NewProvider(name, domain.ProviderConfig{
		WebhookSecret: cfg.ESign.WebhookSecret,
		SkipSignature: cfg.ESign.SkipWebhookSignature,
	})
	if err != nil {
		return nil, fmt.Errorf("configure esign provider %q: %w", name, err)
	}

	if cfg.ESign.SkipWebhookSignature {
		log.Warn("webhook signature verification is DISABLED; do not use outside local development",
			zap.String("provider", name),
		)
	}
	log.Info("esign provider configured", zap.String("provider", name))
	return provider, nil
}
