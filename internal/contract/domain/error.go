package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidID            = errors.New("invalid_id")
	ErrNotFound             = errors.New("contract_not_found")
	ErrStatusConflict       = errors.New("contract_status_conflict")
	ErrDraftDocumentMissing = errors.New("contract has no draft document")
	ErrDraftDocumentExists  = errors.New("contract already has a draft document")
	ErrDraftPartiesMissing  = errors.New("contract requires a counterparty and an offer")
	ErrDocumentNotFound     = errors.New("document_not_found")
	ErrOfferInactive        = errors.New("Offer is not active")
)

var (
	ErrCounterpartyRequired    = invalid("counterparty_id", "required", "counterparty_id is required")
	ErrOfferRequired           = invalid("offer_id", "required", "offer_id is required")
	ErrInvalidStatusFilter     = invalid("status", "invalid_status", "status must be draft, awaiting_signature or signed")
	ErrInvalidDateRange        = invalid("end_date", "invalid_date_range", "end_date must not be before start_date")
	ErrInvalidLatitude         = invalid("location_lat", "out_of_range", "location_lat must be between -90 and 90")
	ErrInvalidLongitude        = invalid("location_lon", "out_of_range", "location_lon must be between -180 and 180")
	ErrInvalidNAB              = invalid("nab", "invalid_nab", "nab must be a positive integer")
	ErrInvalidTechnology       = invalid("technology", "invalid_technology", "technology must be solar or wind")
	ErrInvalidCapacity         = invalid("nominal_capacity", "out_of_range", "nominal_capacity must be greater than 0")
	ErrInvalidIndexation       = invalid("indexation", "invalid_indexation", "indexation must be day_ahead or month_ahead")
	ErrInvalidQuantityType     = invalid("quantity_type", "invalid_quantity_type", "quantity_type must be pay_as_produced or pay_as_forecasted")
	ErrInvalidSolarDirection   = invalid("solar_direction", "out_of_range", "solar_direction must be between 0 and 359")
	ErrInvalidSolarInclination = invalid("solar_inclination", "out_of_range", "solar_inclination must be between 0 and 90")
	ErrInvalidTurbineHeight    = invalid("wind_turbine_height", "out_of_range", "wind_turbine_height must be greater than 0")
	ErrSolarFieldsOnWind       = invalid("technology", "field_not_allowed", "solar fields are not allowed for wind contracts")
	ErrWindFieldsOnSolar       = invalid("technology", "field_not_allowed", "wind fields are not allowed for solar contracts")
)

// ValidationError is a field-level input error detected before any write.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func invalid(field, code, message string) *ValidationError {
	return &ValidationError{Field: field, Code: code, Message: message}
}

// StatusConflictError reports an operation attempted from the wrong status.
type StatusConflictError struct {
	Current  Status
	Required Status
}

func (e *StatusConflictError) Error() string {
	if e.Required == "" {
		return fmt.Sprintf("contract status is %s", e.Current)
	}
	return fmt.Sprintf("contract status is %s, expected %s", e.Current, e.Required)
}

func (e *StatusConflictError) Is(target error) bool {
	return target == ErrStatusConflict
}

// RequireStatus fails with a StatusConflictError unless current equals required.
func RequireStatus(current, required Status) error {
	if current != required {
		return &StatusConflictError{Current: current, Required: required}
	}
	return nil
}
