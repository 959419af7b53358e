package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	"github.com/smallbiznis/opsdesk/internal/invoice/render"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
)

func (s *Server) ListInvoices(c *gin.Context) {
	var query invoicedomain.ListInvoiceRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	query.ClientID = strings.TrimSpace(query.ClientID)
	query.ProjectID = strings.TrimSpace(query.ProjectID)
	query.Status = strings.TrimSpace(query.Status)

	resp, err := s.invoiceSvc.List(c.Request.Context(), query)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	resp, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateInvoice(c *gin.Context) {
	var req invoicedomain.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.invoiceSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

// GetInvoiceTotals recomputes totals from the stored line items, the same way
// the form engine does, next to the amounts stored on the invoice.
func (s *Server) GetInvoiceTotals(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	form := formdomain.FormFromInvoice(inv)
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"computed": formdomain.ComputeTotals(form, inv.AmountPaid),
		"stored": formdomain.Totals{
			Subtotal:   inv.Subtotal,
			TaxAmount:  inv.TaxAmount,
			Total:      inv.Total,
			AmountPaid: inv.AmountPaid,
			BalanceDue: inv.BalanceDue,
		},
	}})
}

func (s *Server) RenderInvoice(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", "html")))
	if format != "html" && format != "pdf" {
		AbortWithError(c, newValidationError("format", "invalid_format", "format must be html or pdf"))
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	input := render.NewInput(s.template, inv)

	if format == "pdf" {
		body, err := s.pdfRenderer.RenderPDF(input)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		c.Header("Content-Disposition", `inline; filename="invoice-`+inv.ID.String()+`.pdf"`)
		c.Data(http.StatusOK, "application/pdf", body)
		return
	}

	html, err := s.renderer.RenderHTML(input)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (s *Server) RecordPayment(c *gin.Context) {
	var req invoicedomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	req.Method = strings.TrimSpace(req.Method)
	req.Reference = strings.TrimSpace(req.Reference)

	resp, err := s.invoiceSvc.RecordPayment(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
