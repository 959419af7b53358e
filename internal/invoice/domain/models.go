package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

const (
	InvoiceStatusDraft = "draft"
	InvoiceStatusSent  = "sent"
	InvoiceStatusPaid  = "paid"
	InvoiceStatusVoid  = "void"
)

// Address is the billing address snapshot stored with an invoice.
type Address struct {
	Line1      string `gorm:"type:text" json:"line1" yaml:"line1"`
	Line2      string `gorm:"type:text" json:"line2" yaml:"line2"`
	City       string `gorm:"type:text" json:"city" yaml:"city"`
	State      string `gorm:"type:text" json:"state" yaml:"state"`
	PostalCode string `gorm:"type:text" json:"postal_code" yaml:"postal_code"`
	Country    string `gorm:"type:text" json:"country" yaml:"country"`
}

// Invoice is the persisted invoice record. Amount columns hold whatever the
// last writer computed; AmountPaid and BalanceDue are also maintained by
// payment recording.
type Invoice struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceNumber string       `gorm:"type:text" json:"invoice_number"`
	Status        string       `gorm:"type:text;not null;default:'draft'" json:"status"`
	ProjectID     string       `gorm:"type:text;index" json:"project_id"`
	JobID         string       `gorm:"type:text" json:"job_id"`
	QuoteID       string       `gorm:"type:text" json:"quote_id"`
	ClientID      string       `gorm:"type:text;not null;index" json:"client_id"`
	Reference     string       `gorm:"type:text" json:"reference"`

	BillingAddress Address `gorm:"embedded;embeddedPrefix:billing_" json:"billing_address"`

	TaxRate        float64 `gorm:"not null;default:0" json:"tax_rate"`
	DiscountAmount float64 `gorm:"not null;default:0" json:"discount_amount"`
	Subtotal       float64 `gorm:"not null;default:0" json:"subtotal"`
	TaxAmount      float64 `gorm:"not null;default:0" json:"tax_amount"`
	Total          float64 `gorm:"not null;default:0" json:"total"`
	AmountPaid     float64 `gorm:"not null;default:0" json:"amount_paid"`
	BalanceDue     float64 `gorm:"not null;default:0" json:"balance_due"`

	InvoiceDate  string `gorm:"type:text" json:"invoice_date"`
	DueDate      string `gorm:"type:text" json:"due_date"`
	PaymentTerms string `gorm:"type:text" json:"payment_terms"`

	Notes         string `gorm:"type:text" json:"notes"`
	InternalNotes string `gorm:"type:text" json:"internal_notes"`
	Terms         string `gorm:"type:text" json:"terms"`

	LineItems []LineItem `gorm:"foreignKey:InvoiceID" json:"line_items"`
	Payments  []Payment  `gorm:"foreignKey:InvoiceID" json:"payments"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (Invoice) TableName() string { return "invoices" }

// LineItem is one billable row of a persisted invoice.
type LineItem struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID   snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Description string       `gorm:"type:text;not null" json:"description"`
	Quantity    float64      `gorm:"not null;default:0" json:"quantity"`
	UnitPrice   float64      `gorm:"not null;default:0" json:"unit_price"`
	Amount      float64      `gorm:"not null;default:0" json:"amount"`
	Position    int          `gorm:"not null;default:0" json:"position"`
	CreatedAt   time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (LineItem) TableName() string { return "invoice_line_items" }

// Payment records money received against an invoice.
type Payment struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID snowflake.ID `gorm:"not null;index" json:"invoice_id"`
	Amount    float64      `gorm:"not null" json:"amount"`
	Method    string       `gorm:"type:text" json:"method"`
	Reference string       `gorm:"type:text" json:"reference"`
	PaidAt    time.Time    `gorm:"not null" json:"paid_at"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (Payment) TableName() string { return "invoice_payments" }
