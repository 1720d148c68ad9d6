package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
)

func (s *Server) CreateCounterparty(c *gin.Context) {
	var req counterpartydomain.CreateCounterpartyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.counterpartySvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListCounterparties(c *gin.Context) {
	var query struct {
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
		Name      string `form:"name"`
		Email     string `form:"email"`
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

	resp, err := s.counterpartySvc.List(c.Request.Context(), counterpartydomain.ListCounterpartyRequest{
		PageToken: strings.TrimSpace(query.PageToken),
		PageSize:  pageSize,
		Name:      strings.TrimSpace(query.Name),
		Email:     strings.TrimSpace(query.Email),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetCounterpartyByID(c *gin.Context) {
	resp, err := s.counterpartySvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
