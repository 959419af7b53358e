package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/clock"
	"github.com/smallbiznis/opsdesk/internal/events"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"github.com/smallbiznis/opsdesk/internal/invoice/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type testEnv struct {
	db     *gorm.DB
	svc    invoicedomain.Service
	outbox *events.Outbox
}

func setupInvoiceTestEnv(t *testing.T) testEnv {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&invoicedomain.Invoice{}, &invoicedomain.LineItem{}, &invoicedomain.Payment{}, &events.Record{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	outbox := events.NewOutbox(db, node)
	svc := NewService(ServiceParam{
		DB:     db,
		Log:    zap.NewNop(),
		GenID:  node,
		Clock:  clock.Fixed(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		Outbox: outbox,
	})
	return testEnv{db: db, svc: svc, outbox: outbox}
}

func createInvoice(t *testing.T, svc invoicedomain.Service, total float64) *invoicedomain.Invoice {
	t.Helper()
	invoice, err := svc.Create(context.Background(), invoicedomain.CreateInvoiceRequest{
		ClientID: "client-1",
		Subtotal: total,
		Total:    total,
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return invoice
}

func TestCreateDefaultsAndPublishes(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	invoice := createInvoice(t, env.svc, 120)

	if invoice.Status != invoicedomain.InvoiceStatusDraft {
		t.Fatalf("expected draft status, got %q", invoice.Status)
	}
	if invoice.BalanceDue != 120 {
		t.Fatalf("expected balance to default to total, got %v", invoice.BalanceDue)
	}

	pending, err := env.outbox.Pending(context.Background(), 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].EventType != events.EventInvoiceCreated {
		t.Fatalf("expected one invoice.created event, got %+v", pending)
	}
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	tests := []struct {
		name string
		req  invoicedomain.CreateInvoiceRequest
		want error
	}{
		{name: "missing client", req: invoicedomain.CreateInvoiceRequest{ClientID: "  "}, want: invoicedomain.ErrInvalidClient},
		{name: "bad status", req: invoicedomain.CreateInvoiceRequest{ClientID: "c", Status: "archived"}, want: invoicedomain.ErrInvalidStatus},
		{name: "negative tax", req: invoicedomain.CreateInvoiceRequest{ClientID: "c", TaxRate: -1}, want: invoicedomain.ErrInvalidTaxRate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svc.Create(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGetByIDErrors(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	if _, err := env.svc.GetByID(context.Background(), "abc"); !errors.Is(err, invoicedomain.ErrInvalidInvoiceID) {
		t.Fatalf("expected invalid id, got %v", err)
	}
	if _, err := env.svc.GetByID(context.Background(), "12345"); !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLineItemAmountIsComputedServerSide(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	invoice := createInvoice(t, env.svc, 0)

	item, err := env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{
		InvoiceID:   invoice.ID.String(),
		Description: "Labour",
		Quantity:    3,
		UnitPrice:   12.5,
	})
	if err != nil {
		t.Fatalf("create line item: %v", err)
	}
	if item.Amount != 37.5 {
		t.Fatalf("expected amount 37.5, got %v", item.Amount)
	}

	qty := 4.0
	updated, err := env.svc.UpdateLineItem(ctx, item.ID.String(), invoicedomain.UpdateLineItemRequest{Quantity: &qty})
	if err != nil {
		t.Fatalf("update line item: %v", err)
	}
	if updated.Amount != 50 {
		t.Fatalf("expected amount 50 after merge, got %v", updated.Amount)
	}

	fetched, err := env.svc.GetByID(ctx, invoice.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(fetched.LineItems) != 1 || fetched.LineItems[0].Amount != 50 {
		t.Fatalf("unexpected nested line items: %+v", fetched.LineItems)
	}
}

func TestLineItemValidation(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	invoice := createInvoice(t, env.svc, 0)

	_, err := env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{InvoiceID: invoice.ID.String(), Description: "x", Quantity: -1})
	if !errors.Is(err, invoicedomain.ErrInvalidQuantity) {
		t.Fatalf("expected invalid quantity, got %v", err)
	}
	_, err = env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{InvoiceID: invoice.ID.String(), Description: "x", UnitPrice: -1})
	if !errors.Is(err, invoicedomain.ErrInvalidUnitPrice) {
		t.Fatalf("expected invalid unit price, got %v", err)
	}
	_, err = env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{InvoiceID: invoice.ID.String(), Description: " "})
	if !errors.Is(err, invoicedomain.ErrInvalidDescription) {
		t.Fatalf("expected invalid description, got %v", err)
	}
	_, err = env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{InvoiceID: "777", Description: "x"})
	if !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected invoice not found, got %v", err)
	}
	if err := env.svc.DeleteLineItem(ctx, "777"); !errors.Is(err, invoicedomain.ErrLineItemNotFound) {
		t.Fatalf("expected line item not found, got %v", err)
	}
}

func TestUpdateLineItemRejectsOtherInvoiceScope(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	a := createInvoice(t, env.svc, 0)
	b := createInvoice(t, env.svc, 0)

	item, err := env.svc.CreateLineItem(ctx, invoicedomain.CreateLineItemRequest{InvoiceID: b.ID.String(), Description: "Hosting", Quantity: 1, UnitPrice: 10})
	if err != nil {
		t.Fatalf("create line item: %v", err)
	}

	description := "Hijacked"
	_, err = env.svc.UpdateLineItem(ctx, item.ID.String(), invoicedomain.UpdateLineItemRequest{InvoiceID: a.ID.String(), Description: &description})
	if !errors.Is(err, invoicedomain.ErrLineItemNotFound) {
		t.Fatalf("expected line item not found, got %v", err)
	}
	updated, err := env.svc.UpdateLineItem(ctx, item.ID.String(), invoicedomain.UpdateLineItemRequest{InvoiceID: b.ID.String(), Description: &description})
	if err != nil || updated.Description != "Hijacked" {
		t.Fatalf("owning invoice scope must succeed: %+v %v", updated, err)
	}
}

func TestUpdateRecomputesBalanceFromAmountPaid(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	invoice := createInvoice(t, env.svc, 100)

	if _, err := env.svc.RecordPayment(ctx, invoice.ID.String(), invoicedomain.RecordPaymentRequest{Amount: 30}); err != nil {
		t.Fatalf("record payment: %v", err)
	}

	total := 150.0
	notes := "updated"
	updated, err := env.svc.Update(ctx, invoice.ID.String(), invoicedomain.UpdateInvoiceRequest{Total: &total, Notes: &notes})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.BalanceDue != 120 {
		t.Fatalf("expected balance 120, got %v", updated.BalanceDue)
	}
	if updated.Notes != "updated" || updated.ClientID != "client-1" {
		t.Fatalf("partial update clobbered fields: %+v", updated)
	}
}

func TestRecordPaymentMarksPaid(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	invoice := createInvoice(t, env.svc, 50)

	if _, err := env.svc.RecordPayment(ctx, invoice.ID.String(), invoicedomain.RecordPaymentRequest{Amount: 0}); !errors.Is(err, invoicedomain.ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}
	payment, err := env.svc.RecordPayment(ctx, invoice.ID.String(), invoicedomain.RecordPaymentRequest{Amount: 50, Method: "bank_transfer"})
	if err != nil {
		t.Fatalf("record payment: %v", err)
	}

	fetched, err := env.svc.GetByID(ctx, invoice.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.Status != invoicedomain.InvoiceStatusPaid || fetched.BalanceDue != 0 || fetched.AmountPaid != 50 {
		t.Fatalf("unexpected invoice after payment: %+v", fetched)
	}
	if len(fetched.Payments) != 1 || fetched.Payments[0].ID != payment.ID {
		t.Fatalf("expected nested payment, got %+v", fetched.Payments)
	}
}

func TestRecordPaymentAccumulatesWithoutDrift(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	invoice := createInvoice(t, env.svc, 0.3)

	for _, amount := range []float64{0.1, 0.2} {
		if _, err := env.svc.RecordPayment(ctx, invoice.ID.String(), invoicedomain.RecordPaymentRequest{Amount: amount}); err != nil {
			t.Fatalf("record payment %v: %v", amount, err)
		}
	}

	fetched, err := env.svc.GetByID(ctx, invoice.ID.String())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.AmountPaid != 0.3 || fetched.BalanceDue != 0 || fetched.Status != invoicedomain.InvoiceStatusPaid {
		t.Fatalf("unexpected invoice after payments: paid=%v balance=%v status=%s", fetched.AmountPaid, fetched.BalanceDue, fetched.Status)
	}
}

func TestTransactionRollsBack(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	boom := errors.New("boom")

	var createdID string
	err := env.svc.Transaction(ctx, func(tx invoicedomain.Service) error {
		invoice, err := tx.Create(ctx, invoicedomain.CreateInvoiceRequest{ClientID: "client-1"})
		if err != nil {
			return err
		}
		createdID = invoice.ID.String()
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if _, err := env.svc.GetByID(ctx, createdID); !errors.Is(err, invoicedomain.ErrInvoiceNotFound) {
		t.Fatalf("expected rollback, got %v", err)
	}
}

func TestListPages(t *testing.T) {
	env := setupInvoiceTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		createInvoice(t, env.svc, float64(i))
	}

	first, err := env.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageSize: 2})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(first.Invoices) != 2 || !first.HasMore || first.NextPageToken == "" {
		t.Fatalf("unexpected first page: %+v", first)
	}

	second, err := env.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageSize: 2, PageToken: first.NextPageToken})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(second.Invoices) != 1 || second.HasMore {
		t.Fatalf("unexpected second page: %+v", second)
	}

	if _, err := env.svc.List(ctx, invoicedomain.ListInvoiceRequest{PageToken: "%%%"}); !errors.Is(err, invoicedomain.ErrInvalidPageToken) {
		t.Fatalf("expected invalid page token, got %v", err)
	}
}
