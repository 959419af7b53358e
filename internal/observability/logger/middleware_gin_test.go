package logger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obsctx "github.com/smallbiznis/opsdesk/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestGinMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/ping", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-Id"); got == "" {
		t.Fatalf("expected X-Request-Id header to be set")
	}
}

func TestGinMiddlewarePropagatesIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	var seen, actor string
	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Logger: zap.New(core)}))
	r.GET("/invoices/:id", func(c *gin.Context) {
		obsctx.BindInvoiceID(c, c.Param("id"))
		seen = obsctx.RequestIDFromContext(c.Request.Context())
		actor = obsctx.ActorFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/invoices/42", nil)
	req.Header.Set(HeaderRequestID, "req-abc")
	req.Header.Set(HeaderActorID, "user-7")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen != "req-abc" {
		t.Fatalf("expected handler to see req-abc, got %q", seen)
	}
	if actor != "user-7" {
		t.Fatalf("expected actor user-7, got %q", actor)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 access log entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "req-abc" {
		t.Fatalf("expected request_id field, got %v", fields["request_id"])
	}
	if fields["invoice_id"] != "42" {
		t.Fatalf("expected invoice_id field, got %v", fields["invoice_id"])
	}
	if fields["route"] != "/invoices/:id" {
		t.Fatalf("expected route field, got %v", fields["route"])
	}
}

func TestGinMiddlewareSkipsConfiguredPaths(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{Logger: zap.New(core), SkipPaths: []string{"/healthz"}}))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if logs.Len() != 0 {
		t.Fatalf("expected no log entries, got %d", logs.Len())
	}
}
