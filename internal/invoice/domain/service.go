package domain

import (
	"context"
	"errors"
	"time"
)

type ListInvoiceRequest struct {
	ClientID  string `form:"client_id"`
	ProjectID string `form:"project_id"`
	Status    string `form:"status"`
	PageToken string `form:"page_token"`
	PageSize  int32  `form:"page_size"`
}

type ListInvoiceResponse struct {
	Invoices      []Invoice `json:"invoices"`
	NextPageToken string    `json:"next_page_token,omitempty"`
	HasMore       bool      `json:"has_more"`
}

// CreateInvoiceRequest carries header and amount fields for a new invoice.
// BalanceDue defaults to Total when nil.
type CreateInvoiceRequest struct {
	InvoiceNumber  string   `json:"invoice_number"`
	Status         string   `json:"status"`
	ProjectID      string   `json:"project_id"`
	JobID          string   `json:"job_id"`
	QuoteID        string   `json:"quote_id"`
	ClientID       string   `json:"client_id"`
	Reference      string   `json:"reference"`
	BillingAddress Address  `json:"billing_address"`
	TaxRate        float64  `json:"tax_rate"`
	DiscountAmount float64  `json:"discount_amount"`
	Subtotal       float64  `json:"subtotal"`
	TaxAmount      float64  `json:"tax_amount"`
	Total          float64  `json:"total"`
	BalanceDue     *float64 `json:"balance_due,omitempty"`
	InvoiceDate    string   `json:"invoice_date"`
	DueDate        string   `json:"due_date"`
	PaymentTerms   string   `json:"payment_terms"`
	Notes          string   `json:"notes,omitempty"`
	InternalNotes  string   `json:"internal_notes,omitempty"`
	Terms          string   `json:"terms,omitempty"`
}

// UpdateInvoiceRequest is a partial update; nil fields are left untouched.
type UpdateInvoiceRequest struct {
	InvoiceNumber  *string  `json:"invoice_number,omitempty"`
	Status         *string  `json:"status,omitempty"`
	ProjectID      *string  `json:"project_id,omitempty"`
	JobID          *string  `json:"job_id,omitempty"`
	QuoteID        *string  `json:"quote_id,omitempty"`
	ClientID       *string  `json:"client_id,omitempty"`
	Reference      *string  `json:"reference,omitempty"`
	BillingAddress *Address `json:"billing_address,omitempty"`
	TaxRate        *float64 `json:"tax_rate,omitempty"`
	DiscountAmount *float64 `json:"discount_amount,omitempty"`
	Subtotal       *float64 `json:"subtotal,omitempty"`
	TaxAmount      *float64 `json:"tax_amount,omitempty"`
	Total          *float64 `json:"total,omitempty"`
	BalanceDue     *float64 `json:"balance_due,omitempty"`
	InvoiceDate    *string  `json:"invoice_date,omitempty"`
	DueDate        *string  `json:"due_date,omitempty"`
	PaymentTerms   *string  `json:"payment_terms,omitempty"`
	Notes          *string  `json:"notes,omitempty"`
	InternalNotes  *string  `json:"internal_notes,omitempty"`
	Terms          *string  `json:"terms,omitempty"`
}

type CreateLineItemRequest struct {
	InvoiceID   string  `json:"invoice_id"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Position    int     `json:"position"`
}

// UpdateLineItemRequest patches a line item. A non-empty InvoiceID must match
// the item's invoice.
type UpdateLineItemRequest struct {
	InvoiceID   string   `json:"invoice_id,omitempty"`
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
	Position    *int     `json:"position,omitempty"`
}

type RecordPaymentRequest struct {
	Amount    float64    `json:"amount"`
	Method    string     `json:"method"`
	Reference string     `json:"reference"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

type Service interface {
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (*Invoice, error)
	Create(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (*Invoice, error)

	CreateLineItem(ctx context.Context, req CreateLineItemRequest) (*LineItem, error)
	UpdateLineItem(ctx context.Context, id string, req UpdateLineItemRequest) (*LineItem, error)
	DeleteLineItem(ctx context.Context, id string) error

	RecordPayment(ctx context.Context, invoiceID string, req RecordPaymentRequest) (*Payment, error)

	// Transaction runs fn against a Service bound to one database
	// transaction; any error returned by fn rolls every write back.
	Transaction(ctx context.Context, fn func(Service) error) error
}

var (
	ErrInvalidInvoiceID   = errors.New("invalid_invoice_id")
	ErrInvalidLineItemID  = errors.New("invalid_line_item_id")
	ErrInvalidClient      = errors.New("invalid_client")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidStatus      = errors.New("invalid_status")
	ErrInvalidQuantity    = errors.New("invalid_quantity")
	ErrInvalidUnitPrice   = errors.New("invalid_unit_price")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidTaxRate     = errors.New("invalid_tax_rate")
	ErrInvalidPageToken   = errors.New("invalid_page_token")
	ErrInvoiceNotFound    = errors.New("invoice_not_found")
	ErrLineItemNotFound   = errors.New("line_item_not_found")
	ErrInvoiceVoided      = errors.New("invoice_voided")
)
