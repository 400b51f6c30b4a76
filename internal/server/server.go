package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/workstack/hrsuite/internal/config"
	"github.com/workstack/hrsuite/internal/moduleaccess"
	"github.com/workstack/hrsuite/internal/observability"
	obslogger "github.com/workstack/hrsuite/internal/observability/logger"
	obsmetrics "github.com/workstack/hrsuite/internal/observability/metrics"
	obstracing "github.com/workstack/hrsuite/internal/observability/tracing"
	paymentdomain "github.com/workstack/hrsuite/internal/payment/domain"
	plandomain "github.com/workstack/hrsuite/internal/plan/domain"
	"github.com/workstack/hrsuite/internal/session"
	subscriptiondomain "github.com/workstack/hrsuite/internal/subscription/domain"
	tenantdomain "github.com/workstack/hrsuite/internal/tenant/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(s *Server) { s.registerRoutes() }),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
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
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	tenantSvc       tenantdomain.Service
	planSvc         plandomain.Service
	subscriptionSvc subscriptiondomain.Service
	paymentSvc      paymentdomain.Service
	gate            *moduleaccess.Gate
	sessions        *session.Store
}

type ServerParams struct {
	fx.In

	Gin *gin.Engine
	Cfg config.Config
	Log *zap.Logger

	TenantSvc       tenantdomain.Service
	PlanSvc         plandomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PaymentSvc      paymentdomain.Service
	Gate            *moduleaccess.Gate
	Sessions        *session.Store `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	return &Server{
		engine: p.Gin,
		cfg:    p.Cfg,
		log:    p.Log.Named("server"),

		tenantSvc:       p.TenantSvc,
		planSvc:         p.PlanSvc,
		subscriptionSvc: p.SubscriptionSvc,
		paymentSvc:      p.PaymentSvc,
		gate:            p.Gate,
		sessions:        p.Sessions,
	}
}

func (s *Server) registerRoutes() {
	api := s.engine.Group("/api/v1")
	api.Use(s.TenantContext())

	api.POST("/signup", s.Signup)

	api.GET("/plans", s.ListPlans)
	api.GET("/plans/:id", s.GetPlan)

	billing := api.Group("/billing")
	{
		billing.POST("/subscription", s.SelectPlan)
		billing.GET("/subscription", s.CurrentSubscription)
		billing.DELETE("/subscription", s.CancelSubscription)

		billing.GET("/payments", s.ListPayments)
		billing.GET("/payments/:id", s.GetPayment)
	}

	// Gateway callbacks carry no tenant context of their own; the
	// payment row pins the tenant.
	webhooks := api.Group("/webhooks")
	{
		webhooks.POST("/payments/:id/complete", s.CompletePayment)
		webhooks.POST("/payments/:id/fail", s.FailPayment)
	}

	admin := api.Group("/admin", s.RequireModule("tenants"))
	{
		admin.PATCH("/tenants/:id/status", s.UpdateTenantStatus)
		admin.POST("/tenants/:id/provisioned", s.MarkTenantProvisioned)
		admin.POST("/payments/:id/approve", s.CompletePayment)
		admin.POST("/payments/:id/reject", s.RejectPayment)
		admin.POST("/payments/:id/refund", s.RefundPayment)
	}
}
