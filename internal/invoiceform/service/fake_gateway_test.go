package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
)

type gatewayCall struct {
	Op            string
	ID            string
	CreateInvoice invoicedomain.CreateInvoiceRequest
	UpdateInvoice invoicedomain.UpdateInvoiceRequest
	CreateItem    invoicedomain.CreateLineItemRequest
	UpdateItem    invoicedomain.UpdateLineItemRequest
}

// fakeGateway keeps invoices in memory and records every call.
type fakeGateway struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[string]*invoicedomain.Invoice
	calls    []gatewayCall
	failOn   string
	fetchErr error
	block    chan struct{}
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{nextID: 100, invoices: map[string]*invoicedomain.Invoice{}}
}

func (g *fakeGateway) id() snowflake.ID {
	g.nextID++
	return snowflake.ID(g.nextID)
}

func (g *fakeGateway) record(call gatewayCall) error {
	g.calls = append(g.calls, call)
	if g.failOn != "" && g.failOn == call.Op {
		return errors.New("backend unavailable")
	}
	return nil
}

func (g *fakeGateway) seed(inv *invoicedomain.Invoice) {
	g.mu.Lock()
	defer g.mu.Unlock()
	clone := *inv
	clone.LineItems = append([]invoicedomain.LineItem(nil), inv.LineItems...)
	g.invoices[inv.ID.String()] = &clone
}

func (g *fakeGateway) ops() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.calls))
	for _, c := range g.calls {
		out = append(out, c.Op)
	}
	return out
}

func (g *fakeGateway) callsFor(op string) []gatewayCall {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []gatewayCall
	for _, c := range g.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (g *fakeGateway) FetchInvoice(ctx context.Context, id string) (*invoicedomain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{Op: "fetch", ID: id})
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	inv, ok := g.invoices[id]
	if !ok {
		return nil, nil
	}
	clone := *inv
	clone.LineItems = append([]invoicedomain.LineItem(nil), inv.LineItems...)
	return &clone, nil
}

func (g *fakeGateway) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	if g.block != nil {
		<-g.block
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record(gatewayCall{Op: "create_invoice", CreateInvoice: req}); err != nil {
		return nil, err
	}
	inv := &invoicedomain.Invoice{
		ID:         g.id(),
		ClientID:   req.ClientID,
		Status:     req.Status,
		Subtotal:   req.Subtotal,
		TaxAmount:  req.TaxAmount,
		Total:      req.Total,
		Notes:      req.Notes,
		BalanceDue: req.Total,
	}
	g.invoices[inv.ID.String()] = inv
	clone := *inv
	return &clone, nil
}

func (g *fakeGateway) UpdateInvoice(ctx context.Context, id string, req invoicedomain.UpdateInvoiceRequest) (*invoicedomain.Invoice, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record(gatewayCall{Op: "update_invoice", ID: id, UpdateInvoice: req}); err != nil {
		return nil, err
	}
	inv, ok := g.invoices[id]
	if !ok {
		return nil, invoicedomain.ErrInvoiceNotFound
	}
	if req.Notes != nil {
		inv.Notes = *req.Notes
	}
	if req.ClientID != nil {
		inv.ClientID = *req.ClientID
	}
	if req.Total != nil {
		inv.Total = *req.Total
	}
	clone := *inv
	return &clone, nil
}

func (g *fakeGateway) CreateLineItem(ctx context.Context, req invoicedomain.CreateLineItemRequest) (*invoicedomain.LineItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record(gatewayCall{Op: "create_line_item", CreateItem: req}); err != nil {
		return nil, err
	}
	inv, ok := g.invoices[req.InvoiceID]
	if !ok {
		return nil, fmt.Errorf("no invoice %s", req.InvoiceID)
	}
	item := invoicedomain.LineItem{
		ID:          g.id(),
		InvoiceID:   inv.ID,
		Description: req.Description,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		Amount:      req.Quantity * req.UnitPrice,
		Position:    req.Position,
	}
	inv.LineItems = append(inv.LineItems, item)
	return &item, nil
}

func (g *fakeGateway) UpdateLineItem(ctx context.Context, id string, req invoicedomain.UpdateLineItemRequest) (*invoicedomain.LineItem, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record(gatewayCall{Op: "update_line_item", ID: id, UpdateItem: req}); err != nil {
		return nil, err
	}
	for _, inv := range g.invoices {
		for i := range inv.LineItems {
			if inv.LineItems[i].ID.String() != id {
				continue
			}
			item := &inv.LineItems[i]
			item.Description = *req.Description
			item.Quantity = *req.Quantity
			item.UnitPrice = *req.UnitPrice
			item.Amount = item.Quantity * item.UnitPrice
			clone := *item
			return &clone, nil
		}
	}
	return nil, invoicedomain.ErrLineItemNotFound
}

func (g *fakeGateway) DeleteLineItem(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.record(gatewayCall{Op: "delete_line_item", ID: id}); err != nil {
		return err
	}
	for _, inv := range g.invoices {
		for i := range inv.LineItems {
			if inv.LineItems[i].ID.String() == id {
				inv.LineItems = append(inv.LineItems[:i], inv.LineItems[i+1:]...)
				return nil
			}
		}
	}
	return invoicedomain.ErrLineItemNotFound
}
