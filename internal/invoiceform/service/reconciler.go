package service

import (
	"context"
	"fmt"
	"time"

	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"github.com/smallbiznis/opsdesk/internal/observability/tracing"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	saveResultSuccess = "success"
	saveResultInvalid = "invalid"
	saveResultFailed  = "failed"
)

// Reconciler turns a form into the sequence of invoice and line item requests
// that converge the backend on it. Requests are issued one at a time; a
// failure stops the save without undoing earlier requests.
type Reconciler struct {
	gateway formdomain.Gateway
	log     *zap.Logger
	metrics *metrics.InvoiceSaveMetrics
	tracer  trace.Tracer
}

func NewReconciler(gateway formdomain.Gateway, log *zap.Logger, m *metrics.InvoiceSaveMetrics) *Reconciler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reconciler{
		gateway: gateway,
		log:     log.Named("invoiceform.reconciler"),
		metrics: m,
		tracer:  tracing.Tracer("invoiceform"),
	}
}

func (r *Reconciler) Gateway() formdomain.Gateway {
	return r.gateway
}

// Save validates form and, when valid, writes it in the given mode. Edit mode
// diffs the form's line items against existing. The returned invoice is
// re-fetched after the last write when possible.
func (r *Reconciler) Save(ctx context.Context, form *formdomain.Form, mode formdomain.Mode, existing *invoicedomain.Invoice) (*invoicedomain.Invoice, error) {
	if mode != formdomain.ModeCreate && mode != formdomain.ModeEdit {
		return nil, formdomain.ErrInvalidMode
	}
	if mode == formdomain.ModeEdit && (existing == nil || existing.ID == 0) {
		return nil, formdomain.ErrMissingInvoice
	}

	ctx, span := r.tracer.Start(ctx, "invoiceform.save", trace.WithAttributes(
		tracing.KeyFormMode.String(string(mode)),
	))
	defer span.End()

	start := time.Now()
	log := logger.With(r.log, ctx).With(zap.String("mode", string(mode)))

	if errs := formdomain.Validate(form); !errs.Valid() {
		r.metrics.ObserveSave(string(mode), saveResultInvalid, time.Since(start))
		tracing.Fail(span, nil, "validation failed")
		log.Debug("invoice form rejected", zap.Int("errors", len(errs)))
		return nil, errs
	}
	if mode == formdomain.ModeEdit {
		if err := checkLineItemOwnership(form, existing); err != nil {
			r.metrics.ObserveSave(string(mode), saveResultInvalid, time.Since(start))
			tracing.Fail(span, nil, "foreign line item")
			log.Warn("invoice form rejected", zap.Error(err))
			return nil, err
		}
	}

	span.SetAttributes(tracing.KeyLineItems.Int(len(form.LineItems)))
	snapshot := form.Clone()
	var (
		saved *invoicedomain.Invoice
		err   error
	)
	if mode == formdomain.ModeCreate {
		saved, err = r.saveCreate(ctx, snapshot)
	} else {
		span.SetAttributes(tracing.KeyInvoiceID.String(existing.ID.String()))
		saved, err = r.saveEdit(ctx, snapshot, existing)
	}
	if err != nil {
		r.metrics.ObserveSave(string(mode), saveResultFailed, time.Since(start))
		tracing.Fail(span, err, "save failed")
		log.Error("invoice save failed", zap.Error(err))
		return nil, err
	}

	result := saved
	fresh, fetchErr := r.gateway.FetchInvoice(ctx, saved.ID.String())
	switch {
	case fetchErr != nil:
		log.Warn("refetch after save failed", zap.String("invoice_id", saved.ID.String()), zap.Error(fetchErr))
	case fresh == nil:
		log.Warn("invoice missing after save", zap.String("invoice_id", saved.ID.String()))
	default:
		result = fresh
	}

	r.metrics.ObserveSave(string(mode), saveResultSuccess, time.Since(start))
	log.Info("invoice saved", zap.String("invoice_id", result.ID.String()))
	return result, nil
}

func (r *Reconciler) saveCreate(ctx context.Context, form *formdomain.Form) (*invoicedomain.Invoice, error) {
	totals := formdomain.ComputeTotals(form, 0)

	var invoice *invoicedomain.Invoice
	err := r.step(ctx, formdomain.StepCreateInvoice, func(ctx context.Context) error {
		var err error
		invoice, err = r.gateway.CreateInvoice(ctx, createRequest(form, totals))
		return err
	})
	if err != nil {
		return nil, err
	}
	invoiceID := invoice.ID.String()

	for i, item := range form.LineItems {
		fields := item.Fields()
		if fields.Blank() {
			continue
		}
		position := i
		err := r.step(ctx, formdomain.StepCreateLineItem, func(ctx context.Context) error {
			_, err := r.gateway.CreateLineItem(ctx, createLineItemRequest(invoiceID, fields, position))
			return err
		})
		if err != nil {
			return invoice, err
		}
	}

	if form.Notes != "" || form.InternalNotes != "" || form.Terms != "" {
		notes, internalNotes, terms := form.Notes, form.InternalNotes, form.Terms
		err := r.step(ctx, formdomain.StepUpdateNotes, func(ctx context.Context) error {
			updated, err := r.gateway.UpdateInvoice(ctx, invoiceID, invoicedomain.UpdateInvoiceRequest{
				Notes:         &notes,
				InternalNotes: &internalNotes,
				Terms:         &terms,
			})
			if err == nil && updated != nil {
				invoice = updated
			}
			return err
		})
		if err != nil {
			return invoice, err
		}
	}
	return invoice, nil
}

// checkLineItemOwnership rejects persisted ids that existing does not own and
// ids listed twice. It runs before any request is issued.
func checkLineItemOwnership(form *formdomain.Form, existing *invoicedomain.Invoice) error {
	owned := make(map[string]struct{}, len(existing.LineItems))
	for _, item := range existing.LineItems {
		owned[item.ID.String()] = struct{}{}
	}
	seen := make(map[string]struct{}, len(form.LineItems))
	for _, item := range form.LineItems {
		id, ok := formdomain.PersistedID(item)
		if !ok {
			continue
		}
		if _, ok := owned[id]; !ok {
			return fmt.Errorf("%w: %s", formdomain.ErrUnknownLineItem, id)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: %s", formdomain.ErrDuplicateLineItem, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

func (r *Reconciler) saveEdit(ctx context.Context, form *formdomain.Form, existing *invoicedomain.Invoice) (*invoicedomain.Invoice, error) {
	totals := formdomain.ComputeTotals(form, existing.AmountPaid)
	invoiceID := existing.ID.String()

	invoice := existing
	err := r.step(ctx, formdomain.StepUpdateInvoice, func(ctx context.Context) error {
		updated, err := r.gateway.UpdateInvoice(ctx, invoiceID, updateRequest(form, totals))
		if err == nil && updated != nil {
			invoice = updated
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	kept := make(map[string]struct{}, len(form.LineItems))
	for _, item := range form.LineItems {
		if id, ok := formdomain.PersistedID(item); ok {
			kept[id] = struct{}{}
		}
	}
	for _, old := range existing.LineItems {
		id := old.ID.String()
		if _, ok := kept[id]; ok {
			continue
		}
		err := r.step(ctx, formdomain.StepDeleteLineItem, func(ctx context.Context) error {
			return r.gateway.DeleteLineItem(ctx, id)
		})
		if err != nil {
			return invoice, err
		}
	}

	for i, item := range form.LineItems {
		fields := item.Fields()
		if fields.Blank() {
			continue
		}
		position := i
		if id, ok := formdomain.PersistedID(item); ok {
			err = r.step(ctx, formdomain.StepUpdateLineItem, func(ctx context.Context) error {
				_, err := r.gateway.UpdateLineItem(ctx, id, updateLineItemRequest(invoiceID, fields, position))
				return err
			})
		} else {
			err = r.step(ctx, formdomain.StepCreateLineItem, func(ctx context.Context) error {
				_, err := r.gateway.CreateLineItem(ctx, createLineItemRequest(invoiceID, fields, position))
				return err
			})
		}
		if err != nil {
			return invoice, err
		}
	}
	return invoice, nil
}

// step runs one remote request and wraps its failure in a SaveError.
func (r *Reconciler) step(ctx context.Context, name string, fn func(context.Context) error) error {
	ctx, span := r.tracer.Start(ctx, "invoiceform."+name, trace.WithAttributes(tracing.KeyFormStep.String(name)))
	defer span.End()

	err := fn(ctx)
	r.metrics.IncRequest(name, err)
	if err != nil {
		tracing.Fail(span, err, name+" failed")
		return &formdomain.SaveError{Step: name, Err: err}
	}
	return nil
}

func createRequest(form *formdomain.Form, totals formdomain.Totals) invoicedomain.CreateInvoiceRequest {
	balance := totals.BalanceDue
	return invoicedomain.CreateInvoiceRequest{
		InvoiceNumber:  form.InvoiceNumber,
		Status:         form.Status,
		ProjectID:      form.ProjectID,
		JobID:          form.JobID,
		QuoteID:        form.QuoteID,
		ClientID:       form.ClientID,
		Reference:      form.Reference,
		BillingAddress: form.BillingAddress,
		TaxRate:        form.TaxRate,
		DiscountAmount: form.DiscountAmount,
		Subtotal:       totals.Subtotal,
		TaxAmount:      totals.TaxAmount,
		Total:          totals.Total,
		BalanceDue:     &balance,
		InvoiceDate:    form.InvoiceDate,
		DueDate:        form.DueDate,
		PaymentTerms:   form.PaymentTerms,
	}
}

func updateRequest(form *formdomain.Form, totals formdomain.Totals) invoicedomain.UpdateInvoiceRequest {
	f := form.Clone()
	address := f.BillingAddress
	return invoicedomain.UpdateInvoiceRequest{
		InvoiceNumber:  &f.InvoiceNumber,
		Status:         &f.Status,
		ProjectID:      &f.ProjectID,
		JobID:          &f.JobID,
		QuoteID:        &f.QuoteID,
		ClientID:       &f.ClientID,
		Reference:      &f.Reference,
		BillingAddress: &address,
		TaxRate:        &f.TaxRate,
		DiscountAmount: &f.DiscountAmount,
		Subtotal:       &totals.Subtotal,
		TaxAmount:      &totals.TaxAmount,
		Total:          &totals.Total,
		BalanceDue:     &totals.BalanceDue,
		InvoiceDate:    &f.InvoiceDate,
		DueDate:        &f.DueDate,
		PaymentTerms:   &f.PaymentTerms,
		Notes:          &f.Notes,
		InternalNotes:  &f.InternalNotes,
		Terms:          &f.Terms,
	}
}

func createLineItemRequest(invoiceID string, fields formdomain.LineFields, position int) invoicedomain.CreateLineItemRequest {
	return invoicedomain.CreateLineItemRequest{
		InvoiceID:   invoiceID,
		Description: fields.Description,
		Quantity:    fields.Quantity,
		UnitPrice:   fields.UnitPrice,
		Position:    position,
	}
}

func updateLineItemRequest(invoiceID string, fields formdomain.LineFields, position int) invoicedomain.UpdateLineItemRequest {
	return invoicedomain.UpdateLineItemRequest{
		InvoiceID:   invoiceID,
		Description: &fields.Description,
		Quantity:    &fields.Quantity,
		UnitPrice:   &fields.UnitPrice,
		Position:    &position,
	}
}
