package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/gosimple/slug"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// OfferPlan is one catalog entry synced into the offers table.
type OfferPlan struct {
	Code             string `mapstructure:"code"`
	Name             string `mapstructure:"name"`
	Description      string `mapstructure:"description"`
	Currency         string `mapstructure:"currency"`
	PriceCents       int64  `mapstructure:"priceCents"`
	BillingPeriod    string `mapstructure:"billingPeriod"`
	MinTermMonths    int    `mapstructure:"minTermMonths"`
	NoticePeriodDays int    `mapstructure:"noticePeriodDays"`
	Active           *bool  `mapstructure:"active"`
}

func (p OfferPlan) IsActive() bool {
	return p.Active == nil || *p.Active
}

type OfferCatalog struct {
	Plans []OfferPlan `mapstructure:"plans"`
}

func DefaultOfferCatalog() OfferCatalog {
	return OfferCatalog{
		Plans: []OfferPlan{
			{Code: "STARTER", Name: "Starter Plan", Description: "Great for getting started", PriceCents: 4900},
			{Code: "BASIC", Name: "Basic Plan", Description: "Perfect for small installations", PriceCents: 9900},
			{Code: "PRO", Name: "Professional Plan", Description: "Ideal for medium-sized operations", PriceCents: 19900},
			{Code: "PREMIUM", Name: "Premium Plan", Description: "Enhanced features and support", PriceCents: 29900},
			{Code: "ENTERPRISE", Name: "Enterprise Plan", Description: "For large-scale energy production", PriceCents: 49900, MinTermMonths: 3},
		},
	}
}

// OfferCatalogHolder keeps the latest valid catalog and notifies listeners on reload.
type OfferCatalogHolder struct {
	current atomic.Value // holds OfferCatalog

	mu        sync.Mutex
	listeners []func(OfferCatalog)
}

func NewOfferCatalogHolder(log *zap.Logger) (*OfferCatalogHolder, error) {
	log = log.Named("offer.catalog")
	v := viper.New()

	v.SetConfigName("offers")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/gridsign")
	v.AddConfigPath(".")

	v.SetEnvPrefix("GRIDSIGN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	catalog := DefaultOfferCatalog()
	if fileFound {
		var loaded OfferCatalog
		if err := v.UnmarshalKey("offers", &loaded); err != nil {
			return nil, err
		}
		catalog = loaded
	}
	catalog = NormalizeOfferCatalog(catalog)
	if err := ValidateOfferCatalog(catalog); err != nil {
		return nil, err
	}

	holder := &OfferCatalogHolder{}
	holder.current.Store(catalog)

	if fileFound {
		v.WatchConfig()
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated OfferCatalog
			if err := v.UnmarshalKey("offers", &updated); err != nil {
				log.Warn("reload failed", zap.Error(err))
				return
			}
			updated = NormalizeOfferCatalog(updated)
			if err := ValidateOfferCatalog(updated); err != nil {
				log.Warn("invalid catalog ignored", zap.Error(err))
				return
			}
			holder.Set(updated)
			log.Info("catalog reloaded", zap.String("file", e.Name), zap.Int("plans", len(updated.Plans)))
		})
	}

	return holder, nil
}

// NewStaticOfferCatalogHolder wraps a fixed catalog without file watching.
func NewStaticOfferCatalogHolder(catalog OfferCatalog) *OfferCatalogHolder {
	holder := &OfferCatalogHolder{}
	holder.current.Store(NormalizeOfferCatalog(catalog))
	return holder
}

func (h *OfferCatalogHolder) Get() OfferCatalog {
	return h.current.Load().(OfferCatalog)
}

func (h *OfferCatalogHolder) Set(catalog OfferCatalog) {
	h.current.Store(catalog)

	h.mu.Lock()
	listeners := append([]func(OfferCatalog){}, h.listeners...)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(catalog)
	}
}

// OnChange registers fn to run after every successful reload.
func (h *OfferCatalogHolder) OnChange(fn func(OfferCatalog)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.listeners = append(h.listeners, fn)
	h.mu.Unlock()
}

// NormalizeOfferCatalog fills defaults and derives missing codes from plan names.
func NormalizeOfferCatalog(catalog OfferCatalog) OfferCatalog {
	plans := make([]OfferPlan, 0, len(catalog.Plans))
	for _, plan := range catalog.Plans {
		plan.Name = strings.TrimSpace(plan.Name)
		plan.Code = strings.ToUpper(strings.TrimSpace(plan.Code))
		if plan.Code == "" && plan.Name != "" {
			plan.Code = strings.ToUpper(strings.ReplaceAll(slug.Make(plan.Name), "-", "_"))
		}
		plan.Currency = strings.ToUpper(strings.TrimSpace(plan.Currency))
		if plan.Currency == "" {
			plan.Currency = "EUR"
		}
		plan.BillingPeriod = strings.ToLower(strings.TrimSpace(plan.BillingPeriod))
		if plan.BillingPeriod == "" {
			plan.BillingPeriod = "monthly"
		}
		if plan.MinTermMonths <= 0 {
			plan.MinTermMonths = 1
		}
		if plan.NoticePeriodDays <= 0 {
			plan.NoticePeriodDays = 14
		}
		plans = append(plans, plan)
	}
	return OfferCatalog{Plans: plans}
}

func ValidateOfferCatalog(catalog OfferCatalog) error {
	if len(catalog.Plans) == 0 {
		return errors.New("offers.plans cannot be empty")
	}
	seen := make(map[string]struct{}, len(catalog.Plans))
	for i, plan := range catalog.Plans {
		if plan.Code == "" {
			return fmt.Errorf("offers.plans[%d]: code or name is required", i)
		}
		if plan.Name == "" {
			return fmt.Errorf("offers.plans[%d]: name is required", i)
		}
		if plan.PriceCents < 0 {
			return fmt.Errorf("offers.plans[%d]: priceCents must not be negative", i)
		}
		if _, ok := seen[plan.Code]; ok {
			return fmt.Errorf("offers.plans[%d]: duplicate code %s", i, plan.Code)
		}
		seen[plan.Code] = struct{}{}
	}
	return nil
}
