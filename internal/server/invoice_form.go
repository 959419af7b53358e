package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/invoiceform/gateway"
)

type invoiceFormResponse struct {
	Form       *formdomain.Form            `json:"form"`
	Totals     formdomain.Totals           `json:"totals"`
	Validation formdomain.ValidationErrors `json:"validation,omitempty"`
	Invoice    *invoicedomain.Invoice      `json:"invoice,omitempty"`
}

type previewInvoiceFormRequest struct {
	formdomain.Form
	AmountPaid float64 `json:"amount_paid"`
}

// NewInvoiceForm returns a create-mode form seeded from configuration and the
// optional query parameters.
func (s *Server) NewInvoiceForm(c *gin.Context) {
	dueInDays := s.cfg.Invoice.DueInDays
	taxRate := s.cfg.Invoice.DefaultTaxRate
	defaults := formdomain.Defaults{
		ProjectID:    strings.TrimSpace(c.Query("project_id")),
		JobID:        strings.TrimSpace(c.Query("job_id")),
		QuoteID:      strings.TrimSpace(c.Query("quote_id")),
		ClientID:     strings.TrimSpace(c.Query("client_id")),
		TaxRate:      &taxRate,
		DueInDays:    &dueInDays,
		PaymentTerms: s.cfg.Invoice.PaymentTerms,
	}
	if raw := strings.TrimSpace(c.Query("due_in_days")); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			AbortWithError(c, newValidationError("due_in_days", "invalid_due_in_days", "due_in_days must be a non-negative integer"))
			return
		}
		defaults.DueInDays = &days
	}

	form := formdomain.NewForm(defaults, s.clock.Now())
	c.JSON(http.StatusOK, gin.H{"data": invoiceFormResponse{
		Form:   form,
		Totals: formdomain.ComputeTotals(form, 0),
	}})
}

// GetInvoiceForm returns the edit-mode form of a persisted invoice.
func (s *Server) GetInvoiceForm(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	form := formdomain.FormFromInvoice(inv)
	c.JSON(http.StatusOK, gin.H{"data": invoiceFormResponse{
		Form:    form,
		Totals:  formdomain.ComputeTotals(form, inv.AmountPaid),
		Invoice: inv,
	}})
}

// PreviewInvoiceForm computes totals and validation for an unsaved form
// without writing anything.
func (s *Server) PreviewInvoiceForm(c *gin.Context) {
	var req previewInvoiceFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	form := &req.Form
	form.Normalize()

	c.JSON(http.StatusOK, gin.H{"data": invoiceFormResponse{
		Form:       form,
		Totals:     formdomain.ComputeTotals(form, req.AmountPaid),
		Validation: formdomain.Validate(form),
	}})
}

// CreateInvoiceForm saves a create-mode form. Every write shares one
// transaction.
func (s *Server) CreateInvoiceForm(c *gin.Context) {
	var form formdomain.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	form.Normalize()

	ctx := c.Request.Context()
	var saved *invoicedomain.Invoice
	err := s.invoiceSvc.Transaction(ctx, func(tx invoicedomain.Service) error {
		var err error
		saved, err = s.formFactory.New(gateway.NewLocal(tx)).Save(ctx, &form, formdomain.ModeCreate, nil)
		return err
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondSavedForm(c, saved)
}

// SaveInvoiceForm saves an edit-mode form against the invoice in the path.
// The body replaces the invoice's fields, except that an omitted status keeps
// the stored one.
func (s *Server) SaveInvoiceForm(c *gin.Context) {
	var form formdomain.Form
	if err := c.ShouldBindJSON(&form); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	keepStatus := strings.TrimSpace(form.Status) == ""
	form.Normalize()

	ctx := c.Request.Context()
	id := strings.TrimSpace(c.Param("id"))
	var saved *invoicedomain.Invoice
	err := s.invoiceSvc.Transaction(ctx, func(tx invoicedomain.Service) error {
		existing, err := tx.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.Status == invoicedomain.InvoiceStatusVoid {
			return invoicedomain.ErrInvoiceVoided
		}
		if keepStatus {
			form.Status = existing.Status
		}
		saved, err = s.formFactory.New(gateway.NewLocal(tx)).Save(ctx, &form, formdomain.ModeEdit, existing)
		return err
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	s.respondSavedForm(c, saved)
}

func (s *Server) respondSavedForm(c *gin.Context, saved *invoicedomain.Invoice) {
	form := formdomain.FormFromInvoice(saved)
	c.JSON(http.StatusOK, gin.H{"data": invoiceFormResponse{
		Form:    form,
		Totals:  formdomain.ComputeTotals(form, saved.AmountPaid),
		Invoice: saved,
	}})
}

func (s *Server) rateLimitForms(c *gin.Context) {
	allowed, retryAfter := s.formLimiter.Allow(c.ClientIP())
	if !allowed {
		seconds := int(retryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		AbortWithError(c, ErrRateLimited)
		return
	}
	c.Next()
}
