package domain

import (
	"context"

	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
)

// Gateway is the remote invoice backend a form is reconciled against.
// FetchInvoice returns (nil, nil) when the invoice does not exist.
type Gateway interface {
	FetchInvoice(ctx context.Context, id string) (*invoicedomain.Invoice, error)
	CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error)
	UpdateInvoice(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error)
	CreateLineItem(ctx context.Context, req invoicedomain.CreateLineItemRequest) (*invoicedomain.LineItem, error)
	UpdateLineItem(ctx context.Context, id string, req invoicedomain.UpdateLineItemRequest) (*invoicedomain.LineItem, error)
	DeleteLineItem(ctx context.Context, id string) error
}
