package service

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var today = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string { return &v }

func validDefaults() formdomain.Defaults {
	return formdomain.Defaults{
		ClientID: "client-1",
		TaxRate:  floatPtr(10),
		LineItems: []formdomain.LineFields{
			{Description: "Labour", Quantity: 2, UnitPrice: 10},
			{Description: "Parts", Quantity: 1, UnitPrice: 5},
		},
	}
}

func existingInvoice() *invoicedomain.Invoice {
	return &invoicedomain.Invoice{
		ID:         50,
		ClientID:   "client-1",
		Status:     invoicedomain.InvoiceStatusSent,
		Total:      25,
		AmountPaid: 10,
		LineItems: []invoicedomain.LineItem{
			{ID: 51, InvoiceID: 50, Description: "Labour", Quantity: 2, UnitPrice: 10, Amount: 20},
			{ID: 52, InvoiceID: 50, Description: "Parts", Quantity: 1, UnitPrice: 5, Amount: 5},
		},
		InvoiceDate: "2026-01-01",
	}
}

func TestSaveCreateWithNotesIssuesOneNotesUpdate(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, zap.NewNop(), nil)

	defaults := validDefaults()
	defaults.Notes = "Thanks!"
	defaults.LineItems = append(defaults.LineItems, formdomain.LineFields{UnitPrice: 99})
	form := formdomain.NewForm(defaults, today)

	saved, err := r.Save(context.Background(), form, formdomain.ModeCreate, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	want := []string{"create_invoice", "create_line_item", "create_line_item", "update_invoice", "fetch"}
	if got := gw.ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected calls:\n got %v\nwant %v", got, want)
	}

	create := gw.callsFor("create_invoice")[0].CreateInvoice
	if create.Notes != "" || create.InternalNotes != "" || create.Terms != "" {
		t.Fatalf("create request must not carry free text: %+v", create)
	}
	if create.Subtotal != 25 || create.TaxAmount != 2.5 || create.Total != 27.5 {
		t.Fatalf("unexpected amounts in create request: %+v", create)
	}

	update := gw.callsFor("update_invoice")[0].UpdateInvoice
	if update.Notes == nil || *update.Notes != "Thanks!" || update.InternalNotes == nil || update.Terms == nil {
		t.Fatalf("expected notes update, got %+v", update)
	}
	stripped := update
	stripped.Notes, stripped.InternalNotes, stripped.Terms = nil, nil, nil
	if !reflect.DeepEqual(stripped, invoicedomain.UpdateInvoiceRequest{}) {
		t.Fatalf("notes update must only set free text fields: %+v", update)
	}

	items := gw.callsFor("create_line_item")
	if items[0].CreateItem.Position != 0 || items[1].CreateItem.Position != 1 {
		t.Fatalf("expected positions to follow form order")
	}
	if saved.Notes != "Thanks!" || len(saved.LineItems) != 2 {
		t.Fatalf("expected refetched invoice, got %+v", saved)
	}
}

func TestSaveCreateWithoutNotesSkipsUpdate(t *testing.T) {
	gw := newFakeGateway()
	r := NewReconciler(gw, zap.NewNop(), nil)

	if _, err := r.Save(context.Background(), formdomain.NewForm(validDefaults(), today), formdomain.ModeCreate, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if len(gw.callsFor("update_invoice")) != 0 {
		t.Fatalf("expected no update call, got %v", gw.ops())
	}
}

func TestSaveEditDeletesRemovedItemOnly(t *testing.T) {
	gw := newFakeGateway()
	existing := existingInvoice()
	gw.seed(existing)
	r := NewReconciler(gw, zap.NewNop(), nil)

	form := formdomain.FormFromInvoice(existing)
	if err := form.RemoveLineItem(1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := r.Save(context.Background(), form, formdomain.ModeEdit, existing); err != nil {
		t.Fatalf("save: %v", err)
	}

	deletes := gw.callsFor("delete_line_item")
	if len(deletes) != 1 || deletes[0].ID != "52" {
		t.Fatalf("expected one delete for 52, got %+v", deletes)
	}
	for _, call := range gw.callsFor("update_line_item") {
		if call.ID == "52" {
			t.Fatalf("removed item must not be updated")
		}
	}
	for _, call := range gw.callsFor("create_line_item") {
		if call.CreateItem.Description == "Parts" {
			t.Fatalf("removed item must not be recreated")
		}
	}

	want := []string{"update_invoice", "delete_line_item", "update_line_item", "fetch"}
	if got := gw.ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected calls:\n got %v\nwant %v", got, want)
	}

	update := gw.callsFor("update_invoice")[0].UpdateInvoice
	if update.Total == nil || *update.Total != 20 || update.BalanceDue == nil || *update.BalanceDue != 10 {
		t.Fatalf("expected total 20 and balance 10 (paid 10), got %+v", update)
	}
	if update.Notes == nil {
		t.Fatalf("edit update must carry free text fields")
	}
}

func TestSaveEditSkipsBlankItems(t *testing.T) {
	gw := newFakeGateway()
	existing := existingInvoice()
	gw.seed(existing)
	r := NewReconciler(gw, zap.NewNop(), nil)

	form := formdomain.FormFromInvoice(existing)
	if err := form.UpdateLineItem(1, formdomain.LineItemPatch{Description: strPtr(" ")}); err != nil {
		t.Fatalf("update: %v", err)
	}
	form.AddLineItem()
	if err := form.UpdateLineItem(2, formdomain.LineItemPatch{UnitPrice: floatPtr(40)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	if _, err := r.Save(context.Background(), form, formdomain.ModeEdit, existing); err != nil {
		t.Fatalf("save: %v", err)
	}

	if n := len(gw.callsFor("create_line_item")); n != 0 {
		t.Fatalf("blank draft must not be created, got %d creates", n)
	}
	updates := gw.callsFor("update_line_item")
	if len(updates) != 1 || updates[0].ID != "51" {
		t.Fatalf("expected only 51 to be updated, got %+v", updates)
	}
	if n := len(gw.callsFor("delete_line_item")); n != 0 {
		t.Fatalf("blanked persisted item must not be deleted, got %d deletes", n)
	}
}

func TestSaveEditCreatesDrafts(t *testing.T) {
	gw := newFakeGateway()
	existing := existingInvoice()
	gw.seed(existing)
	r := NewReconciler(gw, zap.NewNop(), nil)

	form := formdomain.FormFromInvoice(existing)
	form.AddLineItem()
	if err := form.UpdateLineItem(2, formdomain.LineItemPatch{Description: strPtr("Travel"), Quantity: floatPtr(1), UnitPrice: floatPtr(15)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	saved, err := r.Save(context.Background(), form, formdomain.ModeEdit, existing)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	creates := gw.callsFor("create_line_item")
	if len(creates) != 1 || creates[0].CreateItem.InvoiceID != "50" || creates[0].CreateItem.Position != 2 {
		t.Fatalf("unexpected creates: %+v", creates)
	}
	if len(saved.LineItems) != 3 {
		t.Fatalf("expected refetched invoice with 3 items, got %d", len(saved.LineItems))
	}
}

func TestSaveInvalidFormIssuesNoRequests(t *testing.T) {
	gw := newFakeGateway()
	reg := prometheus.NewRegistry()
	m, err := metrics.NewInvoiceSaveMetrics(reg, metrics.Config{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	r := NewReconciler(gw, zap.NewNop(), m)

	defaults := validDefaults()
	defaults.ClientID = ""
	_, err = r.Save(context.Background(), formdomain.NewForm(defaults, today), formdomain.ModeCreate, nil)
	if !errors.Is(err, formdomain.ErrValidationFailed) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	var verrs formdomain.ValidationErrors
	if !errors.As(err, &verrs) || verrs[formdomain.FieldClientID] == "" {
		t.Fatalf("expected client_id error, got %v", err)
	}
	if len(gw.ops()) != 0 {
		t.Fatalf("expected no remote calls, got %v", gw.ops())
	}
	if n, err := testutil.GatherAndCount(reg, "opsdesk_invoice_save_total"); err != nil || n != 1 {
		t.Fatalf("expected one save series, got %d (%v)", n, err)
	}
}

func TestSaveFailureStopsRemainingSteps(t *testing.T) {
	gw := newFakeGateway()
	gw.failOn = "create_line_item"
	reg := prometheus.NewRegistry()
	m, err := metrics.NewInvoiceSaveMetrics(reg, metrics.Config{})
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	core, logs := observer.New(zapcore.ErrorLevel)
	r := NewReconciler(gw, zap.New(core), m)

	defaults := validDefaults()
	defaults.Notes = "n"
	_, err = r.Save(context.Background(), formdomain.NewForm(defaults, today), formdomain.ModeCreate, nil)

	var saveErr *formdomain.SaveError
	if !errors.As(err, &saveErr) || saveErr.Step != formdomain.StepCreateLineItem {
		t.Fatalf("expected SaveError at create_line_item, got %v", err)
	}
	if !errors.Is(err, formdomain.ErrSaveFailed) {
		t.Fatalf("expected ErrSaveFailed")
	}
	want := []string{"create_invoice", "create_line_item"}
	if got := gw.ops(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected save to stop after failure, got %v", got)
	}
	if logs.FilterMessage("invoice save failed").Len() != 1 {
		t.Fatalf("expected failure to be logged")
	}
	if n, err := testutil.GatherAndCount(reg, "opsdesk_invoice_save_requests_total"); err != nil || n != 2 {
		t.Fatalf("expected success and failed request series, got %d (%v)", n, err)
	}
}

func TestSaveFallsBackWhenRefetchFails(t *testing.T) {
	gw := newFakeGateway()
	gw.fetchErr = errors.New("timeout")
	core, logs := observer.New(zapcore.WarnLevel)
	r := NewReconciler(gw, zap.New(core), nil)

	saved, err := r.Save(context.Background(), formdomain.NewForm(validDefaults(), today), formdomain.ModeCreate, nil)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if saved == nil || saved.ClientID != "client-1" {
		t.Fatalf("expected create response, got %+v", saved)
	}
	if logs.FilterMessage("refetch after save failed").Len() != 1 {
		t.Fatalf("expected refetch warning")
	}
}

func TestSaveModeChecks(t *testing.T) {
	r := NewReconciler(newFakeGateway(), zap.NewNop(), nil)
	form := formdomain.NewForm(validDefaults(), today)

	if _, err := r.Save(context.Background(), form, formdomain.ModeView, nil); !errors.Is(err, formdomain.ErrInvalidMode) {
		t.Fatalf("expected invalid mode, got %v", err)
	}
	if _, err := r.Save(context.Background(), form, formdomain.ModeEdit, nil); !errors.Is(err, formdomain.ErrMissingInvoice) {
		t.Fatalf("expected missing invoice, got %v", err)
	}
}

func TestSaveEditRejectsForeignAndDuplicateLineItems(t *testing.T) {
	tests := []struct {
		name  string
		items formdomain.LineItems
		want  error
	}{
		{
			name: "item of another invoice",
			items: formdomain.LineItems{
				&formdomain.PersistedLineItem{ID: "51", LineFields: formdomain.NewLineFields("Labour", 2, 10)},
				&formdomain.PersistedLineItem{ID: "999", LineFields: formdomain.NewLineFields("Hijacked", 100, 1)},
			},
			want: formdomain.ErrUnknownLineItem,
		},
		{
			name: "same item twice",
			items: formdomain.LineItems{
				&formdomain.PersistedLineItem{ID: "52", LineFields: formdomain.NewLineFields("Parts", 1, 5)},
				&formdomain.PersistedLineItem{ID: "52", LineFields: formdomain.NewLineFields("Parts again", 3, 5)},
			},
			want: formdomain.ErrDuplicateLineItem,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := newFakeGateway()
			existing := existingInvoice()
			gw.seed(existing)
			r := NewReconciler(gw, zap.NewNop(), nil)

			form := formdomain.FormFromInvoice(existing)
			form.LineItems = tt.items

			_, err := r.Save(context.Background(), form, formdomain.ModeEdit, existing)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if errors.Is(err, formdomain.ErrSaveFailed) {
				t.Fatalf("ownership errors must be reported before any request, got %v", err)
			}
			if len(gw.ops()) != 0 {
				t.Fatalf("expected no remote calls, got %v", gw.ops())
			}
		})
	}
}

func TestSaveEditScopesLineItemUpdatesToInvoice(t *testing.T) {
	gw := newFakeGateway()
	existing := existingInvoice()
	gw.seed(existing)
	r := NewReconciler(gw, zap.NewNop(), nil)

	if _, err := r.Save(context.Background(), formdomain.FormFromInvoice(existing), formdomain.ModeEdit, existing); err != nil {
		t.Fatalf("save: %v", err)
	}
	updates := gw.callsFor("update_line_item")
	if len(updates) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(updates))
	}
	for _, call := range updates {
		if call.UpdateItem.InvoiceID != "50" {
			t.Fatalf("update of %s not scoped to invoice 50: %+v", call.ID, call.UpdateItem)
		}
	}
}
