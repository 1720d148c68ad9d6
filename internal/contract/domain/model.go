package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

type Technology string

const (
	TechnologySolar Technology = "solar"
	TechnologyWind  Technology = "wind"
)

const (
	IndexationDayAhead   = "day_ahead"
	IndexationMonthAhead = "month_ahead"

	QuantityPayAsProduced   = "pay_as_produced"
	QuantityPayAsForecasted = "pay_as_forecasted"
)

// Contract binds a counterparty to an offer for one generation site.
// Energy parameters are nullable so drafts can be created progressively.
type Contract struct {
	ID             uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Status         Status        `gorm:"type:varchar(32);not null;index" json:"status"`
	CounterpartyID *snowflake.ID `gorm:"column:counterparty_id;index" json:"counterparty_id,omitempty"`
	OfferID        *snowflake.ID `gorm:"column:offer_id;index" json:"offer_id,omitempty"`

	StartDate         *time.Time  `gorm:"column:start_date" json:"start_date,omitempty"`
	EndDate           *time.Time  `gorm:"column:end_date" json:"end_date,omitempty"`
	LocationLat       *float64    `gorm:"column:location_lat" json:"location_lat,omitempty"`
	LocationLon       *float64    `gorm:"column:location_lon" json:"location_lon,omitempty"`
	NAB               *int64      `gorm:"column:nab" json:"nab,omitempty"`
	Technology        *Technology `gorm:"column:technology;type:varchar(16)" json:"technology,omitempty"`
	NominalCapacity   *float64    `gorm:"column:nominal_capacity" json:"nominal_capacity,omitempty"`
	Indexation        *string     `gorm:"column:indexation;type:varchar(32)" json:"indexation,omitempty"`
	QuantityType      *string     `gorm:"column:quantity_type;type:varchar(32)" json:"quantity_type,omitempty"`
	SolarDirection    *int        `gorm:"column:solar_direction" json:"solar_direction,omitempty"`
	SolarInclination  *int        `gorm:"column:solar_inclination" json:"solar_inclination,omitempty"`
	WindTurbineHeight *float64    `gorm:"column:wind_turbine_height" json:"wind_turbine_height,omitempty"`

	DraftPDFPath  *string    `gorm:"column:draft_pdf_path" json:"draft_pdf_path,omitempty"`
	SignedPDFPath *string    `gorm:"column:signed_pdf_path" json:"signed_pdf_path,omitempty"`
	SignedAt      *time.Time `gorm:"column:signed_at" json:"signed_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Contract) TableName() string { return "contracts" }

func (c Contract) HasDraftDocument() bool {
	return c.DraftPDFPath != nil && *c.DraftPDFPath != ""
}

func (c Contract) HasSignedDocument() bool {
	return c.SignedPDFPath != nil && *c.SignedPDFPath != ""
}
