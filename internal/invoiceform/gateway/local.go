package gateway

import (
	"context"
	"errors"

	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
)

// Local writes through an in-process invoice service. Bind it to a
// transaction-scoped service to make a whole save atomic.
type Local struct {
	svc invoicedomain.Service
}

func NewLocal(svc invoicedomain.Service) formdomain.Gateway {
	return &Local{svc: svc}
}

func (g *Local) FetchInvoice(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	invoice, err := g.svc.GetByID(ctx, id)
	if errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		return nil, nil
	}
	return invoice, err
}

func (g *Local) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	return g.svc.Create(ctx, req)
}

func (g *Local) UpdateInvoice(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	return g.svc.Update(ctx, id, req)
}

func (g *Local) CreateLineItem(ctx context.Context, req invoicedomain.CreateLineItemRequest) (*invoicedomain.LineItem, error) {
	return g.svc.CreateLineItem(ctx, req)
}

func (g *Local) UpdateLineItem(ctx context.Context, id string, req invoicedomain.UpdateLineItemRequest) (*invoicedomain.LineItem, error) {
	return g.svc.UpdateLineItem(ctx, id, req)
}

func (g *Local) DeleteLineItem(ctx context.Context, id string) error {
	return g.svc.DeleteLineItem(ctx, id)
}
