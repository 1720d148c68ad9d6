package ratelimit

import (
	signingdomain "github.com/smallbiznis/gridsign/internal/signing/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("rate.limit",
	fx.Provide(NewClient),
	fx.Provide(NewWebhookLimiter),
	fx.Provide(NewSigningGuard),
	fx.Provide(func(g *SigningGuard) signingdomain.Locker { return g }),
)
