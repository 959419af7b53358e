package domain

import (
	"encoding/json"
	"strings"
)

// LineFields are the editable columns of a line item. Amount is derived from
// Quantity and UnitPrice and is only ever written by NewLineFields and
// LineFields.apply.
type LineFields struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

func NewLineFields(description string, quantity, unitPrice float64) LineFields {
	return LineFields{
		Description: description,
		Quantity:    quantity,
		UnitPrice:   unitPrice,
		Amount:      quantity * unitPrice,
	}
}

// Blank reports whether the description is empty after trimming. Blank items
// are never sent to the backend.
func (f LineFields) Blank() bool {
	return strings.TrimSpace(f.Description) == ""
}

// LineItemPatch is a partial line item update; nil fields keep their value.
type LineItemPatch struct {
	Description *string  `json:"description,omitempty"`
	Quantity    *float64 `json:"quantity,omitempty"`
	UnitPrice   *float64 `json:"unit_price,omitempty"`
}

func (f LineFields) apply(patch LineItemPatch) LineFields {
	if patch.Description != nil {
		f.Description = *patch.Description
	}
	if patch.Quantity != nil {
		f.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		f.UnitPrice = *patch.UnitPrice
	}
	if patch.Quantity != nil || patch.UnitPrice != nil {
		f.Amount = f.Quantity * f.UnitPrice
	}
	return f
}

// LineItem is either a PersistedLineItem, which carries the backend id, or a
// DraftLineItem that has never been saved.
type LineItem interface {
	Fields() LineFields
	setFields(LineFields)
	clone() LineItem
}

type PersistedLineItem struct {
	ID string
	LineFields
}

func (p *PersistedLineItem) Fields() LineFields { return p.LineFields }
func (p *PersistedLineItem) setFields(f LineFields) { p.LineFields = f }
func (p *PersistedLineItem) clone() LineItem {
	c := *p
	return &c
}

type DraftLineItem struct {
	LineFields
}

func NewDraft() *DraftLineItem {
	return &DraftLineItem{}
}

func (d *DraftLineItem) Fields() LineFields { return d.LineFields }
func (d *DraftLineItem) setFields(f LineFields) { d.LineFields = f }
func (d *DraftLineItem) clone() LineItem {
	c := *d
	return &c
}

// PersistedID returns the backend id of item, if it has one.
func PersistedID(item LineItem) (string, bool) {
	p, ok := item.(*PersistedLineItem)
	if !ok || p == nil {
		return "", false
	}
	return p.ID, true
}

// LineItems is the ordered line item list of a form.
type LineItems []LineItem

type lineItemJSON struct {
	ID          string  `json:"id,omitempty"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

func (items LineItems) MarshalJSON() ([]byte, error) {
	out := make([]lineItemJSON, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		f := item.Fields()
		id, _ := PersistedID(item)
		out = append(out, lineItemJSON{
			ID:          id,
			Description: f.Description,
			Quantity:    f.Quantity,
			UnitPrice:   f.UnitPrice,
			Amount:      f.Amount,
		})
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes items with an id as persisted and the rest as
// drafts. Incoming amounts are ignored and recomputed.
func (items *LineItems) UnmarshalJSON(data []byte) error {
	var raw []lineItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	decoded := make(LineItems, 0, len(raw))
	for _, r := range raw {
		fields := NewLineFields(r.Description, r.Quantity, r.UnitPrice)
		if id := strings.TrimSpace(r.ID); id != "" {
			decoded = append(decoded, &PersistedLineItem{ID: id, LineFields: fields})
			continue
		}
		decoded = append(decoded, &DraftLineItem{LineFields: fields})
	}
	*items = decoded
	return nil
}

func (items LineItems) clone() LineItems {
	out := make(LineItems, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		out = append(out, item.clone())
	}
	return out
}
