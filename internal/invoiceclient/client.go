package invoiceclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	"github.com/smallbiznis/opsdesk/internal/observability/tracing"
	"go.uber.org/zap"
)

// Client talks to the opsdesk HTTP API. It satisfies the invoice form
// Gateway, so editors can run against a remote backend.
type Client struct {
	baseURL string
	actorID string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithActor sends actorID on every request for audit logging.
func WithActor(actorID string) Option {
	return func(c *Client) {
		c.actorID = strings.TrimSpace(actorID)
	}
}

func New(cfg config.ClientConfig, log *zap.Logger, opts ...Option) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log.Named("invoiceclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = tracing.WrapHTTPClient(c.http)
	return c
}

var _ formdomain.Gateway = (*Client)(nil)

// APIError is a non-2xx response decoded from the error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error %d (%s): %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("api error %d: %s", e.Status, msg)
}

var knownErrors = map[string]error{}

func init() {
	for _, err := range []error{
		invoicedomain.ErrInvalidInvoiceID,
		invoicedomain.ErrInvalidLineItemID,
		invoicedomain.ErrInvalidClient,
		invoicedomain.ErrInvalidDescription,
		invoicedomain.ErrInvalidStatus,
		invoicedomain.ErrInvalidQuantity,
		invoicedomain.ErrInvalidUnitPrice,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidTaxRate,
		invoicedomain.ErrInvalidPageToken,
		invoicedomain.ErrInvoiceNotFound,
		invoicedomain.ErrLineItemNotFound,
		invoicedomain.ErrInvoiceVoided,
		formdomain.ErrValidationFailed,
		formdomain.ErrSaveInProgress,
	} {
		knownErrors[err.Error()] = err
	}
}

// Unwrap maps the error code back to the backend sentinel, so callers can use
// errors.Is across the wire.
func (e *APIError) Unwrap() error {
	return knownErrors[e.Code]
}

func (c *Client) FetchInvoice(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	err := c.do(ctx, http.MethodGet, "/invoices/"+url.PathEscape(id), nil, &invoice)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) ListInvoices(ctx context.Context, req invoicedomain.ListInvoiceRequest) (invoicedomain.ListInvoiceResponse, error) {
	q := url.Values{}
	if req.ClientID != "" {
		q.Set("client_id", req.ClientID)
	}
	if req.ProjectID != "" {
		q.Set("project_id", req.ProjectID)
	}
	if req.Status != "" {
		q.Set("status", req.Status)
	}
	if req.PageToken != "" {
		q.Set("page_token", req.PageToken)
	}
	if req.PageSize > 0 {
		q.Set("page_size", strconv.Itoa(int(req.PageSize)))
	}
	path := "/invoices"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp invoicedomain.ListInvoiceResponse
	err := c.do(ctx, http.MethodGet, path, nil, &resp)
	return resp, err
}

func (c *Client) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) UpdateInvoice(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	var invoice invoicedomain.Invoice
	if err := c.do(ctx, http.MethodPatch, "/invoices/"+url.PathEscape(id), req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) CreateLineItem(ctx context.Context, req invoicedomain.CreateLineItemRequest) (*invoicedomain.LineItem, error) {
	var item invoicedomain.LineItem
	if err := c.do(ctx, http.MethodPost, "/invoice_line_items", req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) UpdateLineItem(ctx context.Context, id string, req invoicedomain.UpdateLineItemRequest) (*invoicedomain.LineItem, error) {
	var item invoicedomain.LineItem
	if err := c.do(ctx, http.MethodPatch, "/invoice_line_items/"+url.PathEscape(id), req, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (c *Client) DeleteLineItem(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/invoice_line_items/"+url.PathEscape(id), nil, nil)
}

func (c *Client) RecordPayment(ctx context.Context, invoiceID string, req invoicedomain.RecordPaymentRequest) (*invoicedomain.Payment, error) {
	var payment invoicedomain.Payment
	if err := c.do(ctx, http.MethodPost, "/invoices/"+url.PathEscape(invoiceID)+"/payments", req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *APIError       `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.actorID != "" {
		req.Header.Set(logger.HeaderActorID, c.actorID)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", resp.Header.Get(logger.HeaderRequestID)),
	)

	var env envelope
	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil && resp.StatusCode < http.StatusBadRequest {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := env.Error
		if apiErr == nil {
			apiErr = &APIError{Message: strings.TrimSpace(string(raw))}
		}
		apiErr.Status = resp.StatusCode
		return apiErr
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode data: %w", err)
	}
	return nil
}
