package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/gridsign/internal/config"
	contractdomain "github.com/smallbiznis/gridsign/internal/contract/domain"
	counterpartydomain "github.com/smallbiznis/gridsign/internal/counterparty/domain"
	offerdomain "github.com/smallbiznis/gridsign/internal/offer/domain"
	"github.com/smallbiznis/gridsign/internal/observability"
	obsmiddleware "github.com/smallbiznis/gridsign/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/gridsign/internal/observability/metrics"
	obstracing "github.com/smallbiznis/gridsign/internal/observability/tracing"
	"github.com/smallbiznis/gridsign/internal/ratelimit"
	signingdomain "github.com/smallbiznis/gridsign/internal/signing/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, s *Server, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", addr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	counterpartySvc counterpartydomain.Service
	offerSvc        offerdomain.Service
	contractSvc     contractdomain.Service
	signingSvc      signingdomain.Service
	webhookLimiter  *ratelimit.WebhookLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	CounterpartySvc counterpartydomain.Service
	OfferSvc        offerdomain.Service
	ContractSvc     contractdomain.Service
	SigningSvc      signingdomain.Service
	WebhookLimiter  *ratelimit.WebhookLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics       `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http"),
		counterpartySvc: p.CounterpartySvc,
		offerSvc:        p.OfferSvc,
		contractSvc:     p.ContractSvc,
		signingSvc:      p.SigningSvc,
		webhookLimiter:  p.WebhookLimiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerWebhookRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	r := s.engine

	// -------- Counterparties --------
	r.POST("/counterparties", s.CreateCounterparty)
	r.GET("/counterparties", s.ListCounterparties)
	r.GET("/counterparties/:id", s.GetCounterpartyByID)

	// -------- Offers --------
	r.GET("/offers", s.ListOffers)
	r.GET("/offers/:id", s.GetOfferByID)

	// -------- Contracts --------
	r.POST("/contracts", s.CreateContract)
	r.POST("/contracts/draft", s.CreateDraftContract)
	r.GET("/contracts", s.ListContracts)
	r.GET("/contracts/:id", s.GetContractByID)
	r.POST("/contracts/:id/draft", s.GenerateDraft)
	r.GET("/contracts/:id/draft-pdf", s.GetDraftPDF)
	r.GET("/contracts/:id/signed-pdf", s.GetSignedPDF)

	// -------- Signing --------
	r.POST("/contracts/:id/signing/start", s.StartSigning)
	r.GET("/contracts/:id/envelopes", s.ListEnvelopes)
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/esign/:provider", s.WebhookRateLimit(), s.HandleSigningWebhook)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
