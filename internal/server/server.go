package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	accountdomain "github.com/glowface/pointgate/internal/account/domain"
	codedomain "github.com/glowface/pointgate/internal/code/domain"
	"github.com/glowface/pointgate/internal/config"
	consumptiondomain "github.com/glowface/pointgate/internal/consumption/domain"
	"github.com/glowface/pointgate/internal/generation"
	"github.com/glowface/pointgate/internal/generation/imagestore"
	"github.com/glowface/pointgate/internal/identity"
	"github.com/glowface/pointgate/internal/observability/logger"
	"github.com/glowface/pointgate/internal/observability/metrics"
	"github.com/glowface/pointgate/internal/observability/tracing"
	"github.com/glowface/pointgate/internal/ratelimit"
	redemptiondomain "github.com/glowface/pointgate/internal/redemption/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServerParams struct {
	fx.In

	Config       config.Config
	Log          *zap.Logger
	Metrics      *metrics.Metrics
	Issuer       *identity.Issuer
	Redemptions  redemptiondomain.Service
	Accounts     accountdomain.Service
	Consumptions consumptiondomain.Service
	Codes        codedomain.Service
	Generator    generation.Client
	Images       *imagestore.Store
	Bucket       *ratelimit.TokenBucket `optional:"true"`
}

type Server struct {
	cfg          config.Config
	log          *zap.Logger
	metrics      *metrics.Metrics
	issuer       *identity.Issuer
	redemptions  redemptiondomain.Service
	accounts     accountdomain.Service
	consumptions consumptiondomain.Service
	codes        codedomain.Service
	generator    generation.Client
	images       *imagestore.Store
	bucket       *ratelimit.TokenBucket
}

func New(p ServerParams) *Server {
	return &Server{
		cfg:          p.Config,
		log:          p.Log.Named("server"),
		metrics:      p.Metrics,
		issuer:       p.Issuer,
		redemptions:  p.Redemptions,
		accounts:     p.Accounts,
		consumptions: p.Consumptions,
		codes:        p.Codes,
		generator:    p.Generator,
		images:       p.Images,
		bucket:       p.Bucket,
	}
}

// Engine builds the gin engine with the full middleware chain and routes.
func (s *Server) Engine() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(
		gin.Recovery(),
		logger.GinMiddleware(logger.MiddlewareConfig{
			Debug:           !s.cfg.IsProduction(),
			ErrorClassifier: classifyError,
		}),
		tracing.GinMiddleware(),
		metrics.GinMiddleware(s.metrics),
	)

	engine.GET("/health", s.health)
	engine.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	engine.Static("/images", s.images.Dir())

	api := engine.Group("/api/v1")
	{
		user := api.Group("/user")
		user.POST("/activate", activateRateLimit(s.bucket, s.log), s.activate)
		user.GET("/balance", deviceAuthRequired(s.issuer), s.balance)
		user.GET("/history", deviceAuthRequired(s.issuer), s.history)

		proxy := api.Group("/proxy", deviceAuthRequired(s.issuer))
		proxy.POST("/ai-suggestion", s.aiSuggestion)
		proxy.POST("/generate", s.generate)
	}

	admin := engine.Group("/admin", adminKeyRequired(s.cfg.AdminAPIKeyHash))
	{
		admin.POST("/codes", s.mintCodes)
		admin.GET("/codes", s.listCodes)
		admin.GET("/codes/:code", s.getCode)
	}

	return engine
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": s.cfg.AppName,
		"version": s.cfg.AppVersion,
	})
}

// Run wires the HTTP listener into the fx lifecycle.
func Run(lc fx.Lifecycle, s *Server) {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.log.Info("http server starting", zap.String("addr", srv.Addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					s.log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Module("server",
	fx.Provide(New),
	fx.Invoke(Run),
)
