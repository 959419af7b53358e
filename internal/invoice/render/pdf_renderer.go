package render

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// GoFPDFRenderer lays out an A4 invoice with the core Helvetica font.
type GoFPDFRenderer struct{}

func NewPDFRenderer() PDFRenderer {
	return &GoFPDFRenderer{}
}

func (r *GoFPDFRenderer) RenderPDF(input RenderInput) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Invoice "+invoiceLabel(input.Invoice), true)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	red, green, blue := hexToRGB(sanitizeColor(input.Template.PrimaryColor))

	company := strings.TrimSpace(input.Template.CompanyName)
	if company == "" {
		company = "Invoice"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(red, green, blue)
	pdf.CellFormat(110, 10, tr(company), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(80, 10, tr("Invoice "+invoiceLabel(input.Invoice)), "", 1, "R", false, 0, "")
	pdf.SetTextColor(17, 24, 39)

	pdf.SetFont("Helvetica", "", 10)
	meta := [][2]string{
		{"Status", input.Invoice.Status},
		{"Issued", formatDate(input.Invoice.InvoiceDate)},
		{"Due", formatDate(input.Invoice.DueDate)},
	}
	if input.Invoice.Reference != "" {
		meta = append(meta, [2]string{"Reference", input.Invoice.Reference})
	}
	if input.Invoice.PaymentTerms != "" {
		meta = append(meta, [2]string{"Terms", input.Invoice.PaymentTerms})
	}
	for _, row := range meta {
		pdf.CellFormat(190, 5, tr(row[0]+": "+row[1]), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(190, 6, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	for _, line := range append([]string{input.Client.ID}, input.Client.Address...) {
		pdf.CellFormat(190, 5, tr(line), "", 1, "L", false, 0, "")
	}

	pdf.Ln(6)
	widths := []float64{95, 25, 35, 35}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetDrawColor(red, green, blue)
	for i, header := range []string{"Description", "Quantity", "Unit price", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(widths[i], 7, header, "B", 0, align, false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	currency := input.Invoice.Currency
	for _, item := range input.Items {
		pdf.CellFormat(widths[0], 6, tr(item.Description), "", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, formatQuantity(item.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, formatMoney(item.UnitPrice, currency), "", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, formatMoney(item.Amount, currency), "", 1, "R", false, 0, "")
	}

	pdf.Ln(4)
	totals := [][2]string{
		{"Subtotal", formatMoney(input.Invoice.Subtotal, currency)},
		{"Tax (" + formatPercent(input.Invoice.TaxRate) + ")", formatMoney(input.Invoice.TaxAmount, currency)},
	}
	if input.Invoice.Discount != 0 {
		totals = append(totals, [2]string{"Discount", "-" + formatMoney(input.Invoice.Discount, currency)})
	}
	totals = append(totals,
		[2]string{"Total", formatMoney(input.Invoice.Total, currency)},
		[2]string{"Amount paid", formatMoney(input.Invoice.AmountPaid, currency)},
		[2]string{"Balance due", formatMoney(input.Invoice.BalanceDue, currency)},
	)
	for _, row := range totals {
		style := ""
		if row[0] == "Total" || row[0] == "Balance due" {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 10)
		pdf.CellFormat(155, 6, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, row[1], "", 1, "R", false, 0, "")
	}

	pdf.SetFont("Helvetica", "", 9)
	for _, block := range [][2]string{{"Notes", input.Invoice.Notes}, {"Terms", input.Invoice.Terms}} {
		if strings.TrimSpace(block[1]) == "" {
			continue
		}
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(190, 5, block[0], "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(190, 4, tr(block[1]), "", "L", false)
	}

	pdf.SetTextColor(107, 114, 128)
	for _, footer := range []string{input.Template.FooterNotes, input.Template.FooterLegal} {
		if strings.TrimSpace(footer) == "" {
			continue
		}
		pdf.Ln(2)
		pdf.MultiCell(190, 4, tr(footer), "", "C", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func invoiceLabel(inv InvoiceView) string {
	if inv.Number != "" {
		return inv.Number
	}
	return inv.ID
}

// hexToRGB expects a value already passed through sanitizeColor.
func hexToRGB(value string) (int, int, int) {
	parsed, err := strconv.ParseUint(strings.TrimPrefix(value, "#"), 16, 32)
	if err != nil {
		return 17, 24, 39
	}
	return int(parsed >> 16 & 0xff), int(parsed >> 8 & 0xff), int(parsed & 0xff)
}
