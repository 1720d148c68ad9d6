package context

import (
	stdcontext "context"
	"strings"

	"github.com/smallbiznis/gridsign/pkg/telemetry/correlation"
)

type requestIDKey struct{}

func WithRequestID(ctx stdcontext.Context, requestID string) stdcontext.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return stdcontext.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx stdcontext.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey{}).(string); ok {
		return v
	}
	return ""
}

// CorrelationIDFromContext returns the correlation id set by the request middleware.
func CorrelationIDFromContext(ctx stdcontext.Context) string {
	return correlation.ExtractCorrelationID(ctx)
}
