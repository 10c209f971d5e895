package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/royalty/internal/authorization"
	"github.com/smallbiznis/royalty/internal/cache"
	"github.com/smallbiznis/royalty/internal/clock"
	"github.com/smallbiznis/royalty/internal/config"
	earningsdomain "github.com/smallbiznis/royalty/internal/earnings/domain"
	"github.com/smallbiznis/royalty/internal/observability"
	obsmiddleware "github.com/smallbiznis/royalty/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/royalty/internal/observability/metrics"
	obstracing "github.com/smallbiznis/royalty/internal/observability/tracing"
	"github.com/smallbiznis/royalty/internal/providers/pdf"
	"github.com/smallbiznis/royalty/internal/ratelimit"
	withdrawaldomain "github.com/smallbiznis/royalty/internal/withdrawal/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(cache.NewDashboardStateCache),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ActorContext())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	clock           clock.Clock
	location        *time.Location
	authzSvc        authorization.Service
	earningsSvc     earningsdomain.Service
	withdrawalSvc   withdrawaldomain.Service
	statements      pdf.Provider
	dashboardStates *cache.DashboardStateCache
	limiter         *ratelimit.EarningsLimiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Clock           clock.Clock
	AuthzSvc        authorization.Service
	EarningsSvc     earningsdomain.Service
	WithdrawalSvc   withdrawaldomain.Service
	Statements      pdf.Provider
	DashboardStates *cache.DashboardStateCache
	Limiter         *ratelimit.EarningsLimiter `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics        `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	log := p.Log.Named("http.server")
	location := time.UTC
	if tz := strings.TrimSpace(p.Cfg.Timezone); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			location = loc
		} else {
			log.Warn("unknown timezone for date-only query bounds, using UTC", zap.String("timezone", tz))
		}
	}

	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             log,
		clock:           p.Clock,
		location:        location,
		authzSvc:        p.AuthzSvc,
		earningsSvc:     p.EarningsSvc,
		withdrawalSvc:   p.WithdrawalSvc,
		statements:      p.Statements,
		dashboardStates: p.DashboardStates,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	creators := s.engine.Group("/api/creators/:creator_id", ActorRequired())

	// -------- Earnings --------
	earnings := creators.Group("/earnings")
	{
		view := s.authorizeCreatorAction(authorization.ObjectEarnings, authorization.ActionEarningsView)
		earnings.GET("/summary", view, s.GetRevenueSummary)
		earnings.GET("/lessons", view, s.GetLessonEarnings)
		earnings.GET("/sequencer", view, s.GetSequencerEarnings)
		earnings.GET("/discounts", view, s.GetDiscountEarnings)
		earnings.GET("/statement.pdf", s.authorizeCreatorAction(authorization.ObjectEarnings, authorization.ActionEarningsExport), s.GetEarningsStatement)
		earnings.GET("/:stream/export",
			s.authorizeCreatorAction(authorization.ObjectEarnings, authorization.ActionEarningsExport),
			s.ExportRateLimit(),
			s.ExportEarnings,
		)
	}

	// -------- Withdrawals --------
	withdrawals := creators.Group("/withdrawals")
	{
		withdrawals.GET("", s.authorizeCreatorAction(authorization.ObjectWithdrawal, authorization.ActionWithdrawalView), s.ListWithdrawals)
		withdrawals.POST("/quote", s.authorizeCreatorAction(authorization.ObjectWithdrawal, authorization.ActionWithdrawalQuote), s.QuoteWithdrawal)
		withdrawals.POST("", s.authorizeCreatorAction(authorization.ObjectWithdrawal, authorization.ActionWithdrawalCreate), s.RequestWithdrawal)
	}
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin", ActorRequired())

	admin.GET("/earnings/overview",
		s.authorizeCreatorAction(authorization.ObjectPlatformOverview, authorization.ActionPlatformOverviewView),
		s.GetPlatformOverview,
	)
}
