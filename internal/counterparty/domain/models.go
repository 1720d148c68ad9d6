package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Type string

const (
	TypePerson  Type = "person"
	TypeCompany Type = "company"
)

// Counterparty is the customer a contract binds to an offer.
type Counterparty struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	Type       Type         `gorm:"type:varchar(16);not null;default:'person'" json:"type"`
	Name       string       `gorm:"type:varchar(255);not null" json:"name"`
	Street     string       `gorm:"type:varchar(255);not null" json:"street"`
	PostalCode string       `gorm:"type:varchar(16);not null" json:"postal_code"`
	City       string       `gorm:"type:varchar(128);not null" json:"city"`
	Country    string       `gorm:"type:char(2);not null;default:'DE'" json:"country"`
	Email      string       `gorm:"type:varchar(255);not null;uniqueIndex:uq_counterparties_email" json:"email"`
	CreatedAt  time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null" json:"updated_at"`
}

func (Counterparty) TableName() string { return "counterparties" }
