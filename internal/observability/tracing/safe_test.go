package tracing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesKeepsAllowlist(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/webhooks/esign/:provider"),
		attribute.String("counterparty.email", "jane@example.com"),
	)
	assert.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorStripsWrapping(t *testing.T) {
	base := errors.New("render_failed")
	err := fmt.Errorf("render contract for jane@example.com: %w", base)
	assert.Equal(t, "render_failed", SafeError(err).Error())
	assert.Nil(t, SafeError(nil))
}
