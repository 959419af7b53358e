package domain

import (
	"sort"
	"strings"
)

const (
	FieldClientID    = "client_id"
	FieldLineItems   = "line_items"
	FieldInvoiceDate = "invoice_date"
)

// ValidationErrors maps a form field to a human readable message.
type ValidationErrors map[string]string

func (v ValidationErrors) Valid() bool { return len(v) == 0 }

func (v ValidationErrors) Error() string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+v[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (v ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

// Validate reports every problem that blocks a save.
func Validate(form *Form) ValidationErrors {
	errs := ValidationErrors{}
	if form == nil {
		errs[FieldClientID] = "client is required"
		errs[FieldLineItems] = "at least one line item needs a description"
		errs[FieldInvoiceDate] = "invoice date is required"
		return errs
	}
	if strings.TrimSpace(form.ClientID) == "" {
		errs[FieldClientID] = "client is required"
	}
	described := false
	for _, item := range form.LineItems {
		if item != nil && !item.Fields().Blank() {
			described = true
			break
		}
	}
	if !described {
		errs[FieldLineItems] = "at least one line item needs a description"
	}
	if strings.TrimSpace(form.InvoiceDate) == "" {
		errs[FieldInvoiceDate] = "invoice date is required"
	}
	return errs
}
