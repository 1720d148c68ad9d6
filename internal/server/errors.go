package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	"github.com/smallbiznis/gridsign/internal/ratelimit"
	signingdomain "github.com/smallbiznis/gridsign/internal/signing/domain"
	"github.com/smallbiznis/gridsign/pkg/db/pagination"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")

	ErrPayloadTooLarge = errors.New("payload_too_large")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		if status == http.StatusTooManyRequests {
			c.Header("Retry-After", c.GetString(retryAfterKey))
		}
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var fieldErr *contractdomain.ValidationError
	if errors.As(err, &fieldErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: fieldErr.Field, Code: fieldErr.Code, Message: fieldErr.Message},
			},
		}
	}

	if field, ok := validationField(err); ok {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{Field: field, Code: err.Error(), Message: "invalid value"},
			},
		}
	}

	switch {
	case errors.Is(err, signingdomain.ErrInvalidSignature):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "invalid webhook signature",
		}
	case errors.Is(err, signingdomain.ErrProviderNotFound),
		errors.Is(err, signingdomain.ErrInvalidPayload),
		errors.Is(err, signingdomain.ErrInvalidConfig):
		return http.StatusBadRequest, errorPayload{
			Type:    "bad_request",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case errors.Is(err, contractdomain.ErrOfferInactive):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable_entity",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "payload_too_large",
			Message: "request body too large",
		}
	case errors.Is(err, ratelimit.ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the mapped error type and the raw code for request logs.
func classifyErrorForLog(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	_, payload := mapError(err)
	return payload.Type, err.Error()
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func validationField(err error) (string, bool) {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return "request", true
	case errors.Is(err, contractdomain.ErrInvalidID):
		return "id", true
	case errors.Is(err, counterpartydomain.ErrInvalidID):
		return "counterparty_id", true
	case errors.Is(err, offerdomain.ErrInvalidID):
		return "offer_id", true
	case errors.Is(err, counterpartydomain.ErrInvalidType):
		return "type", true
	case errors.Is(err, counterpartydomain.ErrInvalidName):
		return "name", true
	case errors.Is(err, counterpartydomain.ErrInvalidAddress):
		return "address", true
	case errors.Is(err, counterpartydomain.ErrInvalidCountry):
		return "country", true
	case errors.Is(err, counterpartydomain.ErrInvalidEmail):
		return "email", true
	case errors.Is(err, pagination.ErrInvalidPageToken):
		return "page_token", true
	default:
		return "", false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, contractdomain.ErrStatusConflict),
		errors.Is(err, contractdomain.ErrDraftDocumentMissing),
		errors.Is(err, contractdomain.ErrDraftDocumentExists),
		errors.Is(err, contractdomain.ErrDraftPartiesMissing),
		errors.Is(err, counterpartydomain.ErrEmailAlreadyTaken),
		errors.Is(err, signingdomain.ErrSigningInProgress):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, contractdomain.ErrNotFound),
		errors.Is(err, contractdomain.ErrDocumentNotFound),
		errors.Is(err, counterpartydomain.ErrNotFound),
		errors.Is(err, offerdomain.ErrNotFound),
		errors.Is(err, signingdomain.ErrEnvelopeNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, contractdomain.ErrNotFound):
		return "contract not found"
	case errors.Is(err, contractdomain.ErrDocumentNotFound):
		return "document not found"
	case errors.Is(err, counterpartydomain.ErrNotFound):
		return "counterparty not found"
	case errors.Is(err, offerdomain.ErrNotFound):
		return "offer not found"
	case errors.Is(err, signingdomain.ErrEnvelopeNotFound):
		return "envelope not found"
	default:
		return "not found"
	}
}
