package context

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestValuesAccumulate(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithActor(ctx, "user-9")
	ctx = WithInvoiceID(ctx, "42")

	got := RequestFrom(ctx)
	if got.ID != "req-1" || got.Actor != "user-9" || got.InvoiceID != "42" {
		t.Fatalf("unexpected request values: %+v", got)
	}
	if RequestIDFromContext(WithRequestID(context.Background(), "")) != "" {
		t.Fatalf("empty request id must not be stored")
	}
}

func TestWithValuesDoNotLeakToParent(t *testing.T) {
	parent := WithRequestID(context.Background(), "req-1")
	child := WithInvoiceID(parent, "42")
	if InvoiceIDFromContext(parent) != "" {
		t.Fatalf("parent context must not see the invoice id")
	}
	if RequestIDFromContext(child) != "req-1" {
		t.Fatalf("child must keep the request id")
	}
}

func TestBindInvoiceID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = c.Request.WithContext(WithRequestID(c.Request.Context(), "req-3"))

	BindInvoiceID(c, " 42 ")
	if got := InvoiceIDFromContext(c.Request.Context()); got != "42" {
		t.Fatalf("expected invoice 42, got %q", got)
	}
	if got := RequestIDFromContext(c.Request.Context()); got != "req-3" {
		t.Fatalf("expected request id to survive, got %q", got)
	}
}
