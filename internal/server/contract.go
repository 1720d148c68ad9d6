package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
)

const contentTypePDF = "application/pdf"

type createContractRequest struct {
	CounterpartyID    string   `json:"counterparty_id"`
	OfferID           string   `json:"offer_id"`
	StartDate         *string  `json:"start_date"`
	EndDate           *string  `json:"end_date"`
	LocationLat       *float64 `json:"location_lat"`
	LocationLon       *float64 `json:"location_lon"`
	NAB               *int64   `json:"nab"`
	Technology        string   `json:"technology"`
	NominalCapacity   *float64 `json:"nominal_capacity"`
	Indexation        string   `json:"indexation"`
	QuantityType      string   `json:"quantity_type"`
	SolarDirection    *int     `json:"solar_direction"`
	SolarInclination  *int     `json:"solar_inclination"`
	WindTurbineHeight *float64 `json:"wind_turbine_height"`
}

type createDraftRequest struct {
	CounterpartyID string `json:"counterparty_id"`
	OfferID        string `json:"offer_id"`
}

func (s *Server) CreateContract(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	startDate, err := parseOptionalTime(req.StartDate, false)
	if err != nil {
		AbortWithError(c, newValidationError("start_date", "invalid_start_date", "invalid start_date"))
		return
	}
	endDate, err := parseOptionalTime(req.EndDate, true)
	if err != nil {
		AbortWithError(c, newValidationError("end_date", "invalid_end_date", "invalid end_date"))
		return
	}

	resp, err := s.contractSvc.Create(c.Request.Context(), contractdomain.CreateContractRequest{
		CounterpartyID:    strings.TrimSpace(req.CounterpartyID),
		OfferID:           strings.TrimSpace(req.OfferID),
		StartDate:         startDate,
		EndDate:           endDate,
		LocationLat:       req.LocationLat,
		LocationLon:       req.LocationLon,
		NAB:               req.NAB,
		Technology:        strings.TrimSpace(req.Technology),
		NominalCapacity:   req.NominalCapacity,
		Indexation:        strings.TrimSpace(req.Indexation),
		QuantityType:      strings.TrimSpace(req.QuantityType),
		SolarDirection:    req.SolarDirection,
		SolarInclination:  req.SolarInclination,
		WindTurbineHeight: req.WindTurbineHeight,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) CreateDraftContract(c *gin.Context) {
	var req createDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.contractSvc.CreateDraft(c.Request.Context(), contractdomain.CreateDraftRequest{
		CounterpartyID: strings.TrimSpace(req.CounterpartyID),
		OfferID:        strings.TrimSpace(req.OfferID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListContracts(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
		Status    string `form:"status"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page_size"))
		return
	}

	resp, err := s.contractSvc.List(c.Request.Context(), contractdomain.ListContractRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
		Status:    strings.TrimSpace(query.Status),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetContractByID(c *gin.Context) {
	resp, err := s.contractSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GenerateDraft(c *gin.Context) {
	resp, err := s.contractSvc.GenerateDraft(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetDraftPDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	data, err := s.contractSvc.DraftDocument(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="contract-`+id+`-draft.pdf"`)
	c.Data(http.StatusOK, contentTypePDF, data)
}

func (s *Server) GetSignedPDF(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	data, err := s.contractSvc.SignedDocument(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", `inline; filename="contract-`+id+`-signed.pdf"`)
	c.Data(http.StatusOK, contentTypePDF, data)
}
