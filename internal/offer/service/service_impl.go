package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/gridsign/internal/clock"
	"github.com/smallbiznis/gridsign/internal/config"
	"github.com/smallbiznis/gridsign/internal/offer/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("offer.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) List(ctx context.Context) ([]domain.Offer, error) {
	items, err := s.repo.ListActive(ctx, s.db)
	if err != nil {
		return nil, err
	}

	offers := make([]domain.Offer, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		offers = append(offers, *item)
	}
	return offers, nil
}

func (s *Service) GetByID(ctx context.Context, value string) (domain.Offer, error) {
	id, err := ParseID(value)
	if err != nil {
		return domain.Offer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Offer{}, err
	}
	if item == nil {
		return domain.Offer{}, domain.ErrNotFound
	}
	return *item, nil
}

// SyncCatalog upserts every catalog plan by code and deactivates offers
// whose code is no longer listed. Existing ids are preserved.
func (s *Service) SyncCatalog(ctx context.Context, catalog config.OfferCatalog) error {
	now := s.clock.Now().UTC()
	codes := make([]string, 0, len(catalog.Plans))

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, plan := range catalog.Plans {
			var description *string
			if desc := strings.TrimSpace(plan.Description); desc != "" {
				description = &desc
			}

			offer := domain.Offer{
				ID:               s.genID.Generate(),
				Code:             plan.Code,
				Name:             plan.Name,
				Description:      description,
				Currency:         plan.Currency,
				PriceCents:       plan.PriceCents,
				BillingPeriod:    plan.BillingPeriod,
				MinTermMonths:    plan.MinTermMonths,
				NoticePeriodDays: plan.NoticePeriodDays,
				IsActive:         plan.IsActive(),
				CreatedAt:        now,
				UpdatedAt:        now,
			}
			if err := s.repo.Upsert(ctx, tx, &offer); err != nil {
				return err
			}
			codes = append(codes, plan.Code)
		}

		deactivated, err := s.repo.DeactivateExcept(ctx, tx, codes)
		if err != nil {
			return err
		}
		if deactivated > 0 {
			s.log.Info("deactivated offers missing from catalog", zap.Int64("count", deactivated))
		}
		return nil
	})
	if err != nil {
		s.log.Error("offer catalog sync failed", zap.Error(err))
		return err
	}

	s.log.Info("offer catalog synced", zap.Int("plans", len(codes)))
	return nil
}

func ParseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
