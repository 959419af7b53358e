package context

import (
	"strings"

	"github.com/gin-gonic/gin"
)

// BindInvoiceID stores invoiceID on the request context of c so later
// middleware and handlers log it.
func BindInvoiceID(c *gin.Context, invoiceID string) {
	invoiceID = strings.TrimSpace(invoiceID)
	if c == nil || c.Request == nil || invoiceID == "" {
		return
	}
	c.Request = c.Request.WithContext(WithInvoiceID(c.Request.Context(), invoiceID))
}
