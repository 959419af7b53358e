package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"github.com/smallbiznis/opsdesk/internal/invoice/render"
	formservice "github.com/smallbiznis/opsdesk/internal/invoiceform/service"
	obsctx "github.com/smallbiznis/opsdesk/internal/observability/context"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/observability/tracing"
	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewServer),
	fx.Provide(NewEngine),
	fx.Invoke(RunHTTP),
)

type Params struct {
	fx.In

	Cfg           config.Config
	Log           *zap.Logger
	Clock         clock.Clock
	InvoiceSvc    invoicedomain.Service
	FormFactory   *formservice.Factory
	Renderer      render.Renderer
	PDFRenderer   render.PDFRenderer
	Template      render.TemplateView
	PreferenceSvc preferencedomain.Service
	HTTPMetrics   *metrics.HTTPMetrics `optional:"true"`
	Gatherer      prometheus.Gatherer  `optional:"true"`
}

type Server struct {
	cfg           config.Config
	log           *zap.Logger
	clock         clock.Clock
	invoiceSvc    invoicedomain.Service
	formFactory   *formservice.Factory
	renderer      render.Renderer
	pdfRenderer   render.PDFRenderer
	template      render.TemplateView
	preferenceSvc preferencedomain.Service
	httpMetrics   *metrics.HTTPMetrics
	gatherer      prometheus.Gatherer
	formLimiter   *rateLimiter
}

func NewServer(p Params) *Server {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Server{
		cfg:           p.Cfg,
		log:           log.Named("http"),
		clock:         clk,
		invoiceSvc:    p.InvoiceSvc,
		formFactory:   p.FormFactory,
		renderer:      p.Renderer,
		pdfRenderer:   p.PDFRenderer,
		template:      p.Template,
		preferenceSvc: p.PreferenceSvc,
		httpMetrics:   p.HTTPMetrics,
		gatherer:      p.Gatherer,
		formLimiter:   newRateLimiter(p.Cfg.RateLimit.FormSaves, p.Cfg.RateLimit.Window, clk),
	}
}

// NewEngine builds the gin engine with middleware and every route.
func NewEngine(s *Server) *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(tracing.GinMiddleware("http.server"))
	r.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		Logger:    s.log,
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(metrics.GinMiddleware(s.httpMetrics))

	s.RegisterRoutes(r)
	return r
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", s.Health)
	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api")
	{
		api.GET("/invoices", s.ListInvoices)
		api.POST("/invoices", s.CreateInvoice)
		api.GET("/invoices/:id", scopeInvoice, s.GetInvoiceByID)
		api.PATCH("/invoices/:id", scopeInvoice, s.UpdateInvoice)
		api.GET("/invoices/:id/totals", scopeInvoice, s.GetInvoiceTotals)
		api.GET("/invoices/:id/render", scopeInvoice, s.RenderInvoice)
		api.POST("/invoices/:id/payments", scopeInvoice, s.RecordPayment)

		api.POST("/invoice_line_items", s.CreateLineItem)
		api.PATCH("/invoice_line_items/:id", s.UpdateLineItem)
		api.DELETE("/invoice_line_items/:id", s.DeleteLineItem)

		api.GET("/invoice_forms/new", s.NewInvoiceForm)
		api.GET("/invoice_forms/:id", scopeInvoice, s.GetInvoiceForm)
		api.POST("/invoice_forms/totals", s.PreviewInvoiceForm)
		api.POST("/invoice_forms", s.rateLimitForms, s.CreateInvoiceForm)
		api.PUT("/invoice_forms/:id", scopeInvoice, s.rateLimitForms, s.SaveInvoiceForm)

		api.GET("/preferences/:owner/collapse/:scope", s.ListCollapsed)
		api.PUT("/preferences/:owner/collapse/:scope/:item", s.SetCollapsed)
		api.GET("/preferences/:owner/views/:scope", s.ListSavedViews)
		api.PUT("/preferences/:owner/views/:scope", s.UpsertSavedView)
		api.DELETE("/preferences/:owner/views/:scope/:name", s.DeleteSavedView)
	}
}

// scopeInvoice tags the request context with the :id invoice so access and
// service logs carry invoice_id.
func scopeInvoice(c *gin.Context) {
	obsctx.BindInvoiceID(c, c.Param("id"))
	c.Next()
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunHTTP serves engine on cfg.HTTPAddr for the lifetime of the fx app.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("http server listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
