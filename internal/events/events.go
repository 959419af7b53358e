package events

// Invoice event types written by the invoice service.
const (
	EventInvoiceCreated         = "invoice.created"
	EventInvoiceUpdated         = "invoice.updated"
	EventInvoicePaymentRecorded = "invoice.payment_recorded"
)

// InvoicePayload captures the minimal data consumers need to react to an
// invoice change.
type InvoicePayload struct {
	InvoiceID string  `json:"invoice_id"`
	ClientID  string  `json:"client_id"`
	Status    string  `json:"status"`
	Total     float64 `json:"total"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p InvoicePayload) ToMap() map[string]any {
	return map[string]any{
		"invoice_id": p.InvoiceID,
		"client_id":  p.ClientID,
		"status":     p.Status,
		"total":      p.Total,
	}
}

// PaymentPayload describes a recorded payment.
type PaymentPayload struct {
	InvoiceID  string  `json:"invoice_id"`
	PaymentID  string  `json:"payment_id"`
	Amount     float64 `json:"amount"`
	BalanceDue float64 `json:"balance_due"`
}

// ToMap converts a payload into an outbox-friendly map.
func (p PaymentPayload) ToMap() map[string]any {
	return map[string]any{
		"invoice_id":  p.InvoiceID,
		"payment_id":  p.PaymentID,
		"amount":      p.Amount,
		"balance_due": p.BalanceDue,
	}
}
