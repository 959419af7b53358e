package render

import (
	"strings"

	"github.com/smallbiznis/opsdesk/internal/config"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
)

// RenderInput is the deterministic input used for invoice rendering.
type RenderInput struct {
	Template TemplateView
	Invoice  InvoiceView
	Client   ClientView
	Items    []LineItemView
}

type TemplateView struct {
	Name         string
	Locale       string
	Currency     string
	LogoURL      string
	CompanyName  string
	FooterNotes  string
	FooterLegal  string
	PrimaryColor string
	FontFamily   string
}

// InvoiceView carries the stored amounts of an invoice; renderers round them
// for display only.
type InvoiceView struct {
	ID           string
	Number       string
	Status       string
	Reference    string
	InvoiceDate  string
	DueDate      string
	PaymentTerms string
	Subtotal     float64
	TaxRate      float64
	TaxAmount    float64
	Discount     float64
	Total        float64
	AmountPaid   float64
	BalanceDue   float64
	Currency     string
	Notes        string
	Terms        string
}

type ClientView struct {
	ID      string
	Address []string
}

type LineItemView struct {
	Description string
	Quantity    float64
	UnitPrice   float64
	Amount      float64
}

type Renderer interface {
	RenderHTML(input RenderInput) (string, error)
}

type PDFRenderer interface {
	RenderPDF(input RenderInput) ([]byte, error)
}

// TemplateFromBranding maps branding configuration onto a template view.
func TemplateFromBranding(b config.BrandingConfig) TemplateView {
	return TemplateView{
		Name:         "default",
		Locale:       b.Locale,
		Currency:     b.Currency,
		LogoURL:      b.LogoURL,
		CompanyName:  b.CompanyName,
		FooterNotes:  b.FooterNotes,
		FooterLegal:  b.FooterLegal,
		PrimaryColor: b.PrimaryColor,
		FontFamily:   b.FontFamily,
	}
}

// NewInput builds render input from a persisted invoice. Internal notes are
// never rendered.
func NewInput(tmpl TemplateView, inv *invoicedomain.Invoice) RenderInput {
	if inv == nil {
		return RenderInput{Template: tmpl}
	}

	items := make([]LineItemView, 0, len(inv.LineItems))
	for _, item := range inv.LineItems {
		items = append(items, LineItemView{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	return RenderInput{
		Template: tmpl,
		Invoice: InvoiceView{
			ID:           inv.ID.String(),
			Number:       inv.InvoiceNumber,
			Status:       inv.Status,
			Reference:    inv.Reference,
			InvoiceDate:  inv.InvoiceDate,
			DueDate:      inv.DueDate,
			PaymentTerms: inv.PaymentTerms,
			Subtotal:     inv.Subtotal,
			TaxRate:      inv.TaxRate,
			TaxAmount:    inv.TaxAmount,
			Discount:     inv.DiscountAmount,
			Total:        inv.Total,
			AmountPaid:   inv.AmountPaid,
			BalanceDue:   inv.BalanceDue,
			Currency:     tmpl.Currency,
			Notes:        inv.Notes,
			Terms:        inv.Terms,
		},
		Client: ClientView{
			ID:      inv.ClientID,
			Address: addressLines(inv.BillingAddress),
		},
		Items: items,
	}
}

func addressLines(a invoicedomain.Address) []string {
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City, a.State, a.PostalCode), " "))
	return nonEmpty(a.Line1, a.Line2, cityLine, a.Country)
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
