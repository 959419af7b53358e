package invoiceclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(config.ClientConfig{BaseURL: srv.URL + "/api/", Timeout: time.Second}, zap.NewNop(), WithActor("ops-user"))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestFetchInvoiceNotFoundReturnsNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]string{"type": "not_found", "code": "invoice_not_found", "message": "invoice not found"},
		})
	})

	invoice, err := c.FetchInvoice(context.Background(), "42")
	if err != nil || invoice != nil {
		t.Fatalf("expected (nil, nil), got (%v, %v)", invoice, err)
	}
}

func TestCreateInvoiceSendsEnvelopeRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/invoices" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Actor-Id") != "ops-user" {
			t.Errorf("expected actor header")
		}
		var req invoicedomain.CreateInvoiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"id": "1234", "client_id": req.ClientID, "total": req.Total},
		})
	})

	invoice, err := c.CreateInvoice(context.Background(), invoicedomain.CreateInvoiceRequest{ClientID: "c-1", Total: 12.5})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if invoice.ID != 1234 || invoice.ClientID != "c-1" || invoice.Total != 12.5 {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}
}

func TestAPIErrorMatchesDomainSentinel(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]string{"type": "invalid_request", "code": "invalid_quantity", "message": "quantity must not be negative", "field": "quantity"},
		})
	})

	_, err := c.CreateLineItem(context.Background(), invoicedomain.CreateLineItemRequest{InvoiceID: "1", Description: "x", Quantity: -1})
	if !errors.Is(err, invoicedomain.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Field != "quantity" {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestDeleteLineItemAndPlainErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/invoice_line_items/7":
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte("upstream down"))
		}
	})

	if err := c.DeleteLineItem(context.Background(), "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := c.DeleteLineItem(context.Background(), "8")
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadGateway || apiErr.Message != "upstream down" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListInvoicesEncodesQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("client_id"); got != "c-1" {
			t.Errorf("expected client filter, got %q", got)
		}
		if got := r.URL.Query().Get("page_size"); got != "5" {
			t.Errorf("expected page size, got %q", got)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"invoices": []any{map[string]any{"id": "1"}}, "has_more": true, "next_page_token": "abc"},
		})
	})

	resp, err := c.ListInvoices(context.Background(), invoicedomain.ListInvoiceRequest{ClientID: "c-1", PageSize: 5})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(resp.Invoices) != 1 || !resp.HasMore || resp.NextPageToken != "abc" {
		t.Fatalf("unexpected list response: %+v", resp)
	}
}
