package storage

import (
	"context"
	"fmt"

	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/spf13/afero"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("storage",
	fx.Provide(New),
)

// New builds the document store selected by STORAGE_DRIVER.
func New(cfg config.Config, log *zap.Logger) (Store, error) {
	log = log.Named("storage")

	switch cfg.Storage.Driver {
	case "", config.StorageDriverLocal:
		store, err := NewLocalStore(afero.NewOsFs(), cfg.Storage.Root)
		if err != nil {
			return nil, err
		}
		log.Info("using local document storage", zap.String("root", cfg.Storage.Root))
		return store, nil
	case config.StorageDriverS3:
		store, err := NewS3Store(context.Background(), S3Config{
			Bucket:   cfg.Storage.S3Bucket,
			Region:   cfg.Storage.S3Region,
			Endpoint: cfg.Storage.S3Endpoint,
			Prefix:   cfg.Storage.S3Prefix,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using s3 document storage",
			zap.String("bucket", cfg.Storage.S3Bucket),
			zap.String("region", cfg.Storage.S3Region),
		)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
