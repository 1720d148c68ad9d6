package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/gridsign/internal/ratelimit"
	"go.uber.org/zap"
)

const (
	maxWebhookBodyBytes = 1 << 20
	retryAfterKey       = "retry_after"
)

func (s *Server) StartSigning(c *gin.Context) {
	resp, err := s.signingSvc.StartSigning(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) ListEnvelopes(c *gin.Context) {
	envelopes, err := s.signingSvc.ListEnvelopes(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": envelopes})
}

// HandleSigningWebhook passes the raw body through untouched; signature
// verification runs over these exact bytes.
func (s *Server) HandleSigningWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBodyBytes+1))
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	if len(body) > maxWebhookBodyBytes {
		AbortWithError(c, ErrPayloadTooLarge)
		return
	}

	provider := strings.TrimSpace(c.Param("provider"))
	if err := s.signingSvc.ReceiveWebhook(c.Request.Context(), provider, body, c.Request.Header); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// WebhookRateLimit throttles webhook deliveries per provider. Limiter
// failures fail open.
func (s *Server) WebhookRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.webhookLimiter.Enabled() {
			c.Next()
			return
		}

		provider := strings.ToLower(strings.TrimSpace(c.Param("provider")))
		result, err := s.webhookLimiter.Allow(c.Request.Context(), provider)
		if err != nil {
			s.log.Warn("webhook rate limiter unavailable", zap.String("provider", provider), zap.Error(err))
			c.Next()
			return
		}
		if !result.Allowed {
			s.obsMetrics.RecordRateLimitDenied(c.Request.Context(), "esign_webhook", "provider")
			seconds := int(result.RetryAfter.Seconds())
			if seconds < 1 {
				seconds = 1
			}
			c.Set(retryAfterKey, strconv.Itoa(seconds))
			AbortWithError(c, ratelimit.ErrRateLimited)
			return
		}
		c.Next()
	}
}
