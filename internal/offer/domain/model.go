package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Offer is a subscription plan a contract can be drafted against.
type Offer struct {
	ID               snowflake.ID `gorm:"primaryKey" json:"id"`
	Code             string       `gorm:"type:varchar(64);not null;uniqueIndex:uq_offers_code" json:"code"`
	Name             string       `gorm:"type:varchar(255);not null" json:"name"`
	Description      *string      `gorm:"type:text" json:"description,omitempty"`
	Currency         string       `gorm:"type:char(3);not null;default:'EUR'" json:"currency"`
	PriceCents       int64        `gorm:"not null" json:"price_cents"`
	BillingPeriod    string       `gorm:"type:varchar(32);not null;default:'monthly'" json:"billing_period"`
	MinTermMonths    int          `gorm:"not null;default:1" json:"min_term_months"`
	NoticePeriodDays int          `gorm:"not null;default:14" json:"notice_period_days"`
	IsActive         bool         `gorm:"not null" json:"is_active"`
	CreatedAt        time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt        time.Time    `gorm:"not null" json:"updated_at"`
}

func (Offer) TableName() string { return "offers" }
