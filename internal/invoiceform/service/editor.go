package service

import (
	"context"
	"sync"
	"time"

	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"go.uber.org/zap"
)

// Editor drives one invoice through create, view and edit. The lock is
// never held across a remote call.
type Editor struct {
	reconciler *Reconciler

	mu     sync.Mutex
	mode   formdomain.Mode
	form   *formdomain.Form
	record *invoicedomain.Invoice
	saving bool
}

func NewCreateEditor(r *Reconciler, defaults formdomain.Defaults, today time.Time) *Editor {
	return &Editor{
		reconciler: r,
		mode:       formdomain.ModeCreate,
		form:       formdomain.NewForm(defaults, today),
	}
}

// OpenEditor loads invoice id for viewing or editing.
func OpenEditor(ctx context.Context, r *Reconciler, id string, mode formdomain.Mode) (*Editor, error) {
	if mode != formdomain.ModeView && mode != formdomain.ModeEdit {
		return nil, formdomain.ErrInvalidMode
	}
	record, err := fetch(ctx, r, id)
	if err != nil {
		return nil, err
	}
	return &Editor{
		reconciler: r,
		mode:       mode,
		form:       formdomain.FormFromInvoice(record),
		record:     record,
	}, nil
}

func fetch(ctx context.Context, r *Reconciler, id string) (*invoicedomain.Invoice, error) {
	record, err := r.Gateway().FetchInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, formdomain.ErrInvoiceNotFound
	}
	return record, nil
}

func (e *Editor) Mode() formdomain.Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// Form returns a copy of the current form state.
func (e *Editor) Form() *formdomain.Form {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.form.Clone()
}

// Record returns the last persisted invoice, or nil in create mode.
func (e *Editor) Record() *invoicedomain.Invoice {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record
}

func (e *Editor) Totals() formdomain.Totals {
	e.mu.Lock()
	defer e.mu.Unlock()
	var paid float64
	if e.record != nil {
		paid = e.record.AmountPaid
	}
	return formdomain.ComputeTotals(e.form, paid)
}

func (e *Editor) Validate() formdomain.ValidationErrors {
	e.mu.Lock()
	defer e.mu.Unlock()
	return formdomain.Validate(e.form)
}

func (e *Editor) IsSaving() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.saving
}

// Update mutates the form in place. It is rejected in view mode and while a
// save is running.
func (e *Editor) Update(fn func(*formdomain.Form) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == formdomain.ModeView {
		return formdomain.ErrInvalidMode
	}
	if e.saving {
		return formdomain.ErrSaveInProgress
	}
	return fn(e.form)
}

func (e *Editor) BeginEdit() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode != formdomain.ModeView {
		return formdomain.ErrInvalidMode
	}
	e.mode = formdomain.ModeEdit
	return nil
}

// Cancel discards edits and returns to view mode with a freshly loaded
// record. If the reload fails the last known record is shown instead.
func (e *Editor) Cancel(ctx context.Context) error {
	e.mu.Lock()
	if e.mode != formdomain.ModeEdit {
		e.mu.Unlock()
		return formdomain.ErrInvalidMode
	}
	if e.saving {
		e.mu.Unlock()
		return formdomain.ErrSaveInProgress
	}
	record := e.record
	e.mode = formdomain.ModeView
	e.form = formdomain.FormFromInvoice(record)
	e.mu.Unlock()

	fresh, err := fetch(ctx, e.reconciler, record.ID.String())
	if err != nil {
		e.reconciler.log.Warn("reload on cancel failed",
			zap.String("invoice_id", record.ID.String()),
			zap.Error(err),
		)
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.mode == formdomain.ModeView && e.record == record {
		e.record = fresh
		e.form = formdomain.FormFromInvoice(fresh)
	}
	return nil
}

// Save reconciles the form with the backend. On success the editor moves to
// view mode showing the saved invoice; on failure the mode is unchanged.
func (e *Editor) Save(ctx context.Context) (*invoicedomain.Invoice, error) {
	e.mu.Lock()
	if e.mode == formdomain.ModeView {
		e.mu.Unlock()
		return nil, formdomain.ErrInvalidMode
	}
	if e.saving {
		e.mu.Unlock()
		return nil, formdomain.ErrSaveInProgress
	}
	e.saving = true
	form := e.form.Clone()
	mode := e.mode
	record := e.record
	e.mu.Unlock()

	saved, err := e.reconciler.Save(ctx, form, mode, record)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.saving = false
	if err != nil {
		return nil, err
	}
	e.record = saved
	e.form = formdomain.FormFromInvoice(saved)
	e.mode = formdomain.ModeView
	return saved, nil
}
