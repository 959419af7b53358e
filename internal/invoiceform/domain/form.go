package domain

import (
	"strings"
	"time"

	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
)

const (
	DateLayout       = "2006-01-02"
	DefaultDueInDays = 30
)

// Form is the in-memory editing state of one invoice.
type Form struct {
	ProjectID string `json:"project_id"`
	JobID     string `json:"job_id"`
	QuoteID   string `json:"quote_id"`
	ClientID  string `json:"client_id"`

	InvoiceNumber string `json:"invoice_number"`
	Status        string `json:"status"`
	Reference     string `json:"reference"`

	BillingAddress invoicedomain.Address `json:"billing_address"`

	LineItems LineItems `json:"line_items"`

	TaxRate        float64 `json:"tax_rate"`
	DiscountAmount float64 `json:"discount_amount"`

	InvoiceDate  string `json:"invoice_date"`
	DueDate      string `json:"due_date"`
	PaymentTerms string `json:"payment_terms"`

	Notes         string `json:"notes"`
	InternalNotes string `json:"internal_notes"`
	Terms         string `json:"terms"`
}

// Defaults seeds a create-mode form. Every field is optional.
type Defaults struct {
	ProjectID      string
	JobID          string
	QuoteID        string
	ClientID       string
	InvoiceNumber  string
	Reference      string
	BillingAddress *invoicedomain.Address
	TaxRate        *float64
	DiscountAmount *float64
	InvoiceDate    string
	DueDate        string
	DueInDays      *int
	PaymentTerms   string
	Notes          string
	InternalNotes  string
	Terms          string
	LineItems      []LineFields
}

// NewForm initializes a create-mode form. A missing invoice date becomes
// today and a missing due date is derived from the invoice date.
func NewForm(d Defaults, today time.Time) *Form {
	form := &Form{
		ProjectID:     d.ProjectID,
		JobID:         d.JobID,
		QuoteID:       d.QuoteID,
		ClientID:      d.ClientID,
		InvoiceNumber: d.InvoiceNumber,
		Status:        invoicedomain.InvoiceStatusDraft,
		Reference:     d.Reference,
		InvoiceDate:   strings.TrimSpace(d.InvoiceDate),
		DueDate:       strings.TrimSpace(d.DueDate),
		PaymentTerms:  d.PaymentTerms,
		Notes:         d.Notes,
		InternalNotes: d.InternalNotes,
		Terms:         d.Terms,
	}
	if d.BillingAddress != nil {
		form.BillingAddress = *d.BillingAddress
	}
	if d.TaxRate != nil {
		form.TaxRate = *d.TaxRate
	}
	if d.DiscountAmount != nil {
		form.DiscountAmount = *d.DiscountAmount
	}

	if form.InvoiceDate == "" {
		form.InvoiceDate = today.Format(DateLayout)
	}
	if form.DueDate == "" {
		days := DefaultDueInDays
		if d.DueInDays != nil {
			days = *d.DueInDays
		}
		if issued, err := time.Parse(DateLayout, form.InvoiceDate); err == nil {
			form.DueDate = issued.AddDate(0, 0, days).Format(DateLayout)
		}
	}

	for _, fields := range d.LineItems {
		form.LineItems = append(form.LineItems, &DraftLineItem{
			LineFields: NewLineFields(fields.Description, fields.Quantity, fields.UnitPrice),
		})
	}
	form.ensureLineItem()
	return form
}

// FormFromInvoice initializes an edit or view form from a fetched invoice.
func FormFromInvoice(inv *invoicedomain.Invoice) *Form {
	if inv == nil {
		form := &Form{Status: invoicedomain.InvoiceStatusDraft}
		form.ensureLineItem()
		return form
	}

	form := &Form{
		ProjectID:      inv.ProjectID,
		JobID:          inv.JobID,
		QuoteID:        inv.QuoteID,
		ClientID:       inv.ClientID,
		InvoiceNumber:  inv.InvoiceNumber,
		Status:         inv.Status,
		Reference:      inv.Reference,
		BillingAddress: inv.BillingAddress,
		TaxRate:        inv.TaxRate,
		DiscountAmount: inv.DiscountAmount,
		InvoiceDate:    inv.InvoiceDate,
		DueDate:        inv.DueDate,
		PaymentTerms:   inv.PaymentTerms,
		Notes:          inv.Notes,
		InternalNotes:  inv.InternalNotes,
		Terms:          inv.Terms,
	}
	for _, item := range inv.LineItems {
		form.LineItems = append(form.LineItems, &PersistedLineItem{
			ID:         item.ID.String(),
			LineFields: NewLineFields(item.Description, item.Quantity, item.UnitPrice),
		})
	}
	form.ensureLineItem()
	return form
}

// AddLineItem appends a blank draft.
func (f *Form) AddLineItem() {
	f.LineItems = append(f.LineItems, NewDraft())
}

// UpdateLineItem merges patch into the item at index. Amount is recomputed
// from the merged values when quantity or unit price is part of the patch.
func (f *Form) UpdateLineItem(index int, patch LineItemPatch) error {
	if index < 0 || index >= len(f.LineItems) || f.LineItems[index] == nil {
		return ErrLineItemIndexOutOfRange
	}
	item := f.LineItems[index]
	item.setFields(item.Fields().apply(patch))
	return nil
}

// RemoveLineItem drops the item at index; removing the last item leaves a
// single blank draft.
func (f *Form) RemoveLineItem(index int) error {
	if index < 0 || index >= len(f.LineItems) {
		return ErrLineItemIndexOutOfRange
	}
	f.LineItems = append(f.LineItems[:index:index], f.LineItems[index+1:]...)
	f.ensureLineItem()
	return nil
}

func (f *Form) Clone() *Form {
	if f == nil {
		return nil
	}
	c := *f
	c.LineItems = f.LineItems.clone()
	return &c
}

// Normalize restores invariants on a form decoded from outside input.
func (f *Form) Normalize() {
	kept := f.LineItems[:0]
	for _, item := range f.LineItems {
		if item != nil {
			kept = append(kept, item)
		}
	}
	f.LineItems = kept
	f.ensureLineItem()
	if strings.TrimSpace(f.Status) == "" {
		f.Status = invoicedomain.InvoiceStatusDraft
	}
}

func (f *Form) ensureLineItem() {
	if len(f.LineItems) == 0 {
		f.LineItems = LineItems{NewDraft()}
	}
}
