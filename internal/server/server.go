package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/storeline/internal/audit"
	auditdomain "github.com/smallbiznis/storeline/internal/audit/domain"
	"github.com/smallbiznis/storeline/internal/auth"
	authdomain "github.com/smallbiznis/storeline/internal/auth/domain"
	"github.com/smallbiznis/storeline/internal/authorization"
	"github.com/smallbiznis/storeline/internal/cache"
	"github.com/smallbiznis/storeline/internal/config"
	"github.com/smallbiznis/storeline/internal/customer"
	customerdomain "github.com/smallbiznis/storeline/internal/customer/domain"
	"github.com/smallbiznis/storeline/internal/employee"
	"github.com/smallbiznis/storeline/internal/inventory"
	inventorydomain "github.com/smallbiznis/storeline/internal/inventory/domain"
	"github.com/smallbiznis/storeline/internal/invoice"
	invoicedomain "github.com/smallbiznis/storeline/internal/invoice/domain"
	"github.com/smallbiznis/storeline/internal/loyalty"
	"github.com/smallbiznis/storeline/internal/observability"
	obsmiddleware "github.com/smallbiznis/storeline/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/storeline/internal/observability/metrics"
	obstracing "github.com/smallbiznis/storeline/internal/observability/tracing"
	"github.com/smallbiznis/storeline/internal/providers"
	"github.com/smallbiznis/storeline/internal/providers/pdf"
	"github.com/smallbiznis/storeline/internal/ratelimit"
	"github.com/smallbiznis/storeline/internal/redemption"
	redemptiondomain "github.com/smallbiznis/storeline/internal/redemption/domain"
	"github.com/smallbiznis/storeline/internal/refund"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	cache.Module,
	audit.Module,
	authorization.Module,
	auth.Module,
	customer.Module,
	employee.Module,
	inventory.Module,
	redemption.Module,
	loyalty.Module,
	providers.Module,
	refund.Module,
	invoice.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
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

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
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
			log.Info("http server listening", zap.String("addr", addr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
	engine         *gin.Engine
	cfg            config.Config
	authSvc        authdomain.Service
	authzSvc       authorization.Service
	auditSvc       auditdomain.Service
	invoiceSvc     invoicedomain.Service
	inventorySvc   inventorydomain.Service
	redemptionSvc  redemptiondomain.Service
	customerSvc    customerdomain.Service
	obsMetrics     *obsmetrics.Metrics
	invoiceLimiter *ratelimit.InvoiceCreateLimiter
	pdfProvider    pdf.Provider
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	AuthSvc        authdomain.Service
	AuthzSvc       authorization.Service
	AuditSvc       auditdomain.Service
	InvoiceSvc     invoicedomain.Service
	InventorySvc   inventorydomain.Service
	RedemptionSvc  redemptiondomain.Service
	CustomerSvc    customerdomain.Service
	ObsMetrics     *obsmetrics.Metrics             `optional:"true"`
	InvoiceLimiter *ratelimit.InvoiceCreateLimiter `optional:"true"`
	PDFProvider    pdf.Provider                    `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		authSvc:        p.AuthSvc,
		authzSvc:       p.AuthzSvc,
		auditSvc:       p.AuditSvc,
		invoiceSvc:     p.InvoiceSvc,
		inventorySvc:   p.InventorySvc,
		redemptionSvc:  p.RedemptionSvc,
		customerSvc:    p.CustomerSvc,
		obsMetrics:     p.ObsMetrics,
		invoiceLimiter: p.InvoiceLimiter,
		pdfProvider:    p.PDFProvider,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth", s.Authenticate())

	auth.POST("/revoke", s.RevokeToken)

	if !s.cfg.IsProduction() {
		auth.POST("/dev/tokens", s.IssueDevToken)
	}
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.Authenticate())

	// -------- Invoices --------
	api.POST("/invoices/online",
		s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceCreateOnline),
		s.InvoiceCreateRateLimit(),
		s.CreateOnlineInvoice)
	api.POST("/invoices/offline",
		s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceCreateOffline),
		s.InvoiceCreateRateLimit(),
		s.CreateOfflineInvoice)
	api.GET("/invoices", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceList), s.ListInvoices)
	api.GET("/invoices/pending", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceListPending), s.ListPendingInvoices)
	api.GET("/invoices/:id", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceByID)
	api.GET("/invoices/:id/receipt", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceView), s.GetInvoiceReceipt)
	api.PATCH("/invoices/:id", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceUpdate), s.UpdateInvoice)
	api.POST("/invoices/:id/cancel", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceCancel), s.CancelInvoice)
	api.POST("/invoices/:id/feedback", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceFeedback), s.ProvideInvoiceFeedback)
	api.PUT("/invoices/:id/delivery-address", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceChangeAddress), s.ChangeDeliveryAddress)

	delivery := api.Group("/invoices/:id/delivery", s.RequireCapability(authorization.ObjectInvoice, authorization.ActionInvoiceDelivery))
	{
		delivery.POST("/pending", s.SetDeliveryStatus(invoicedomain.DeliveryPending))
		delivery.POST("/in-transit", s.SetDeliveryStatus(invoicedomain.DeliveryInTransit))
		delivery.POST("/not-delivered", s.SetDeliveryStatus(invoicedomain.DeliveryNotDelivered))
		delivery.POST("/delivered", s.SetDeliveryStatus(invoicedomain.DeliveryDelivered))
	}

	// -------- Customers --------
	api.GET("/me/invoices", s.ListMyInvoices)
	api.GET("/me", s.GetMe)
	api.POST("/customers", s.RequireCapability(authorization.ObjectCustomer, authorization.ActionCustomerCreate), s.CreateCustomer)
	api.GET("/customers/:id", s.RequireCapability(authorization.ObjectCustomer, authorization.ActionCustomerView), s.GetCustomerByID)

	// -------- Inventory --------
	api.POST("/products", s.RequireCapability(authorization.ObjectInventory, authorization.ActionInventoryManage), s.CreateProduct)
	api.POST("/variants", s.RequireCapability(authorization.ObjectInventory, authorization.ActionInventoryManage), s.CreateVariant)
	api.GET("/variants/:sku", s.RequireCapability(authorization.ObjectInventory, authorization.ActionInventoryView), s.GetVariant)
	api.POST("/batches", s.RequireCapability(authorization.ObjectInventory, authorization.ActionInventoryManage), s.ReceiveBatch)
	api.POST("/batches/:id/stock", s.RequireCapability(authorization.ObjectInventory, authorization.ActionInventoryManage), s.AddStock)

	// -------- Point redemptions --------
	api.GET("/point-redemptions", s.RequireCapability(authorization.ObjectRedemption, authorization.ActionRedemptionView), s.ListActiveRedemptions)
	api.GET("/point-redemptions/:id", s.RequireCapability(authorization.ObjectRedemption, authorization.ActionRedemptionView), s.GetRedemption)
	api.POST("/point-redemptions", s.RequireCapability(authorization.ObjectRedemption, authorization.ActionRedemptionManage), s.CreateRedemption)
	api.PATCH("/point-redemptions/:id", s.RequireCapability(authorization.ObjectRedemption, authorization.ActionRedemptionManage), s.UpdateRedemption)
	api.DELETE("/point-redemptions/:id", s.RequireCapability(authorization.ObjectRedemption, authorization.ActionRedemptionManage), s.DeleteRedemption)

	// -------- Audit --------
	api.GET("/audit-logs", s.RequireCapability(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
