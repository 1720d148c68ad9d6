package offer

import (
	"context"

	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/smallbiznis/gridsign/internal/offer/domain"
	"github.com/smallbiznis/gridsign/internal/offer/repository"
	"github.com/smallbiznis/gridsign/internal/offer/service"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("offer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
	fx.Invoke(syncCatalog),
)

// syncCatalog seeds the offers table at startup and re-syncs on catalog reload.
func syncCatalog(svc domain.Service, holder *config.OfferCatalogHolder, log *zap.Logger) error {
	if err := svc.SyncCatalog(context.Background(), holder.Get()); err != nil {
		return err
	}

	holder.OnChange(func(catalog config.OfferCatalog) {
		if err := svc.SyncCatalog(context.Background(), catalog); err != nil {
			log.Warn("offer catalog resync failed", zap.Error(err))
		}
	})
	return nil
}
