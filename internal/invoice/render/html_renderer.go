package render

import (
	"bytes"
	"embed"
	"html/template"
	"regexp"
	"strings"
)

//go:embed templates/invoice.html.tmpl
var templateFS embed.FS

const (
	defaultColor   = "#111827"
	defaultFont    = "Space Grotesk"
	defaultCompany = "Invoice"
)

var (
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
	fontNamePattern = regexp.MustCompile(`^[A-Za-z0-9 \-]+$`)
)

// HTMLRenderer renders the printable invoice page. Branding values reach the
// inline stylesheet only after sanitizeColor and sanitizeFont.
type HTMLRenderer struct {
	page *template.Template
}

func NewRenderer() Renderer {
	return &HTMLRenderer{page: template.Must(
		template.New("invoice.html.tmpl").Funcs(template.FuncMap{
			"date":    formatDate,
			"qty":     formatQuantity,
			"percent": formatPercent,
		}).ParseFS(templateFS, "templates/invoice.html.tmpl"),
	)}
}

// pageView flattens RenderInput for the template.
type pageView struct {
	RenderInput
	Label       string
	Company     string
	LogoURL     string
	Color       template.CSS
	Font        template.CSS
	Locale      string
	FooterNotes string
	FooterLegal string
}

// Money formats amount in the invoice currency.
func (v pageView) Money(amount float64) string {
	return formatMoney(amount, v.Invoice.Currency)
}

func (r *HTMLRenderer) RenderHTML(input RenderInput) (string, error) {
	view := pageView{
		RenderInput: input,
		Label:       invoiceLabel(input.Invoice),
		Company:     fallback(input.Template.CompanyName, defaultCompany),
		LogoURL:     strings.TrimSpace(input.Template.LogoURL),
		Color:       template.CSS(sanitizeColor(input.Template.PrimaryColor)),
		Font:        template.CSS(sanitizeFont(input.Template.FontFamily)),
		Locale:      fallback(input.Template.Locale, "en"),
		FooterNotes: input.Template.FooterNotes,
		FooterLegal: input.Template.FooterLegal,
	}

	var buf bytes.Buffer
	if err := r.page.Execute(&buf, view); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sanitizeColor(value string) string {
	if value = strings.TrimSpace(value); hexColorPattern.MatchString(value) {
		return value
	}
	return defaultColor
}

func sanitizeFont(value string) string {
	if value = strings.TrimSpace(value); fontNamePattern.MatchString(value) {
		return value
	}
	return defaultFont
}

func fallback(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}
