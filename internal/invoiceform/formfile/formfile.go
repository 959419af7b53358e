// Package formfile reads invoice forms written as YAML.
package formfile

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"gopkg.in/yaml.v3"
)

// File is the YAML shape of an invoice form. Unset fields keep whatever the
// form or configuration already provides.
type File struct {
	ProjectID      string                 `yaml:"project_id"`
	JobID          string                 `yaml:"job_id"`
	QuoteID        string                 `yaml:"quote_id"`
	ClientID       string                 `yaml:"client_id"`
	InvoiceNumber  string                 `yaml:"invoice_number"`
	Status         string                 `yaml:"status"`
	Reference      string                 `yaml:"reference"`
	BillingAddress *invoicedomain.Address `yaml:"billing_address"`
	TaxRate        *float64               `yaml:"tax_rate"`
	DiscountAmount *float64               `yaml:"discount_amount"`
	InvoiceDate    string                 `yaml:"invoice_date"`
	DueDate        string                 `yaml:"due_date"`
	DueInDays      *int                   `yaml:"due_in_days"`
	PaymentTerms   string                 `yaml:"payment_terms"`
	Notes          *string                `yaml:"notes"`
	InternalNotes  *string                `yaml:"internal_notes"`
	Terms          *string                `yaml:"terms"`
	LineItems      []Line                 `yaml:"line_items"`
}

// Line is one line item. Lines with an id refer to persisted items.
type Line struct {
	ID          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Quantity    float64 `yaml:"quantity"`
	UnitPrice   float64 `yaml:"unit_price"`
}

func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse decodes raw and rejects unknown keys.
func Parse(raw []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("formfile: %w", err)
	}
	return &f, nil
}

// Defaults builds create-mode defaults, falling back to cfg for tax rate,
// due days and payment terms. Line ids are ignored.
func (f *File) Defaults(cfg config.InvoiceConfig) formdomain.Defaults {
	d := formdomain.Defaults{
		ProjectID:      strings.TrimSpace(f.ProjectID),
		JobID:          strings.TrimSpace(f.JobID),
		QuoteID:        strings.TrimSpace(f.QuoteID),
		ClientID:       strings.TrimSpace(f.ClientID),
		InvoiceNumber:  strings.TrimSpace(f.InvoiceNumber),
		Reference:      f.Reference,
		BillingAddress: f.BillingAddress,
		TaxRate:        f.TaxRate,
		DiscountAmount: f.DiscountAmount,
		InvoiceDate:    f.InvoiceDate,
		DueDate:        f.DueDate,
		DueInDays:      f.DueInDays,
		PaymentTerms:   f.PaymentTerms,
		Notes:          deref(f.Notes),
		InternalNotes:  deref(f.InternalNotes),
		Terms:          deref(f.Terms),
	}
	if d.TaxRate == nil {
		rate := cfg.DefaultTaxRate
		d.TaxRate = &rate
	}
	if d.DueInDays == nil {
		days := cfg.DueInDays
		d.DueInDays = &days
	}
	if d.PaymentTerms == "" {
		d.PaymentTerms = cfg.PaymentTerms
	}
	for _, line := range f.LineItems {
		d.LineItems = append(d.LineItems, formdomain.NewLineFields(line.Description, line.Quantity, line.UnitPrice))
	}
	return d
}

// ApplyTo overwrites form with every field set in the file. When the file
// lists line items they replace the form's items entirely.
func (f *File) ApplyTo(form *formdomain.Form) {
	setString(&form.ProjectID, f.ProjectID)
	setString(&form.JobID, f.JobID)
	setString(&form.QuoteID, f.QuoteID)
	setString(&form.ClientID, f.ClientID)
	setString(&form.InvoiceNumber, f.InvoiceNumber)
	setString(&form.Status, strings.ToLower(f.Status))
	setString(&form.Reference, f.Reference)
	setString(&form.InvoiceDate, f.InvoiceDate)
	setString(&form.DueDate, f.DueDate)
	setString(&form.PaymentTerms, f.PaymentTerms)
	if f.BillingAddress != nil {
		form.BillingAddress = *f.BillingAddress
	}
	if f.TaxRate != nil {
		form.TaxRate = *f.TaxRate
	}
	if f.DiscountAmount != nil {
		form.DiscountAmount = *f.DiscountAmount
	}
	if f.Notes != nil {
		form.Notes = *f.Notes
	}
	if f.InternalNotes != nil {
		form.InternalNotes = *f.InternalNotes
	}
	if f.Terms != nil {
		form.Terms = *f.Terms
	}

	if f.LineItems == nil {
		return
	}
	items := make(formdomain.LineItems, 0, len(f.LineItems))
	for _, line := range f.LineItems {
		fields := formdomain.NewLineFields(line.Description, line.Quantity, line.UnitPrice)
		if id := strings.TrimSpace(line.ID); id != "" {
			items = append(items, &formdomain.PersistedLineItem{ID: id, LineFields: fields})
			continue
		}
		items = append(items, &formdomain.DraftLineItem{LineFields: fields})
	}
	form.LineItems = items
	form.Normalize()
}

func setString(dst *string, value string) {
	if value = strings.TrimSpace(value); value != "" {
		*dst = value
	}
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
