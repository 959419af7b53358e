package domain

type Totals struct {
	Subtotal   float64 `json:"subtotal"`
	TaxAmount  float64 `json:"tax_amount"`
	Total      float64 `json:"total"`
	AmountPaid float64 `json:"amount_paid"`
	BalanceDue float64 `json:"balance_due"`
}

// ComputeTotals derives the invoice amounts from form state. It does not
// round; rounding is a display concern.
func ComputeTotals(form *Form, amountPaid float64) Totals {
	t := Totals{AmountPaid: amountPaid}
	if form != nil {
		for _, item := range form.LineItems {
			if item == nil {
				continue
			}
			t.Subtotal += item.Fields().Amount
		}
		t.TaxAmount = t.Subtotal * form.TaxRate / 100
		t.Total = t.Subtotal + t.TaxAmount - form.DiscountAmount
	}
	t.BalanceDue = t.Total - t.AmountPaid
	return t
}
