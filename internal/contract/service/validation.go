package service

import (
	"strings"

	"github.com/smallbiznis/gridsign/internal/contract/domain"
)

// energyParams validates the generation site parameters of req and returns
// them normalized. Technology gating rejects fields of the other technology.
func energyParams(req domain.CreateContractRequest) (domain.Contract, error) {
	var c domain.Contract

	if req.StartDate != nil && req.EndDate != nil && req.EndDate.Before(*req.StartDate) {
		return c, domain.ErrInvalidDateRange
	}
	c.StartDate = req.StartDate
	c.EndDate = req.EndDate

	if req.LocationLat != nil && (*req.LocationLat < -90 || *req.LocationLat > 90) {
		return c, domain.ErrInvalidLatitude
	}
	if req.LocationLon != nil && (*req.LocationLon < -180 || *req.LocationLon > 180) {
		return c, domain.ErrInvalidLongitude
	}
	c.LocationLat = req.LocationLat
	c.LocationLon = req.LocationLon

	if req.NAB != nil && *req.NAB <= 0 {
		return c, domain.ErrInvalidNAB
	}
	c.NAB = req.NAB

	if req.NominalCapacity != nil {
		if *req.NominalCapacity <= 0 {
			return c, domain.ErrInvalidCapacity
		}
		rounded := roundCents(*req.NominalCapacity)
		c.NominalCapacity = &rounded
	}

	if indexation := strings.ToLower(strings.TrimSpace(req.Indexation)); indexation != "" {
		if indexation != domain.IndexationDayAhead && indexation != domain.IndexationMonthAhead {
			return c, domain.ErrInvalidIndexation
		}
		c.Indexation = &indexation
	}

	if quantity := strings.ToLower(strings.TrimSpace(req.QuantityType)); quantity != "" {
		if quantity != domain.QuantityPayAsProduced && quantity != domain.QuantityPayAsForecasted {
			return c, domain.ErrInvalidQuantityType
		}
		c.QuantityType = &quantity
	}

	hasSolar := req.SolarDirection != nil || req.SolarInclination != nil
	hasWind := req.WindTurbineHeight != nil

	technology := domain.Technology(strings.ToLower(strings.TrimSpace(req.Technology)))
	switch technology {
	case "":
		if hasSolar || hasWind {
			return c, domain.ErrInvalidTechnology
		}
		return c, nil
	case domain.TechnologySolar:
		if hasWind {
			return c, domain.ErrWindFieldsOnSolar
		}
	case domain.TechnologyWind:
		if hasSolar {
			return c, domain.ErrSolarFieldsOnWind
		}
	default:
		return c, domain.ErrInvalidTechnology
	}
	c.Technology = &technology

	if req.SolarDirection != nil && (*req.SolarDirection < 0 || *req.SolarDirection > 359) {
		return c, domain.ErrInvalidSolarDirection
	}
	if req.SolarInclination != nil && (*req.SolarInclination < 0 || *req.SolarInclination > 90) {
		return c, domain.ErrInvalidSolarInclination
	}
	if req.WindTurbineHeight != nil && *req.WindTurbineHeight <= 0 {
		return c, domain.ErrInvalidTurbineHeight
	}
	c.SolarDirection = req.SolarDirection
	c.SolarInclination = req.SolarInclination
	c.WindTurbineHeight = req.WindTurbineHeight

	return c, nil
}

// roundCents keeps two decimals, matching the numeric(10,2) column.
func roundCents(v float64) float64 {
	if v < 0 {
		return -roundCents(-v)
	}
	return float64(int64(v*100+0.5)) / 100
}
