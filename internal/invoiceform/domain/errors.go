package domain

import "errors"

var (
	ErrValidationFailed        = errors.New("validation_failed")
	ErrSaveFailed              = errors.New("save_failed")
	ErrSaveInProgress          = errors.New("save_in_progress")
	ErrInvalidMode             = errors.New("invalid_mode")
	ErrMissingInvoice          = errors.New("missing_invoice")
	ErrLineItemIndexOutOfRange = errors.New("line_item_index_out_of_range")
	ErrInvoiceNotFound         = errors.New("invoice_not_found")
	ErrUnknownLineItem         = errors.New("unknown_line_item")
	ErrDuplicateLineItem       = errors.New("duplicate_line_item")
)

// Save steps, also used as metric and span labels.
const (
	StepCreateInvoice  = "create_invoice"
	StepUpdateInvoice  = "update_invoice"
	StepUpdateNotes    = "update_notes"
	StepCreateLineItem = "create_line_item"
	StepUpdateLineItem = "update_line_item"
	StepDeleteLineItem = "delete_line_item"
)

// SaveError reports the remote request that aborted a save. Requests issued
// before it are not rolled back.
type SaveError struct {
	Step string
	Err  error
}

func (e *SaveError) Error() string {
	return "save failed at " + e.Step + ": " + e.Err.Error()
}

// Unwrap lets errors.Is match both ErrSaveFailed and the remote cause.
func (e *SaveError) Unwrap() []error {
	return []error{ErrSaveFailed, e.Err}
}
