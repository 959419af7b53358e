package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	invoicedomain "github.com/smallbiznis/opsdesk/internal/invoice/domain"
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	preferencedomain "github.com/smallbiznis/opsdesk/internal/preference/domain"
	"go.uber.org/zap"
)

const (
	errorTypeInvalidRequest = "invalid_request_error"
	errorTypeNotFound       = "not_found_error"
	errorTypeConflict       = "conflict_error"
	errorTypeRateLimit      = "rate_limit_error"
	errorTypeAPI            = "api_error"
)

// APIError is an error with a fixed HTTP rendering.
type APIError struct {
	Status  int
	Type    string
	Code    string
	Message string
	Field   string
}

func (e *APIError) Error() string {
	return e.Code
}

var (
	ErrNotFound    = &APIError{Status: http.StatusNotFound, Type: errorTypeNotFound, Code: "not_found", Message: "resource not found"}
	ErrRateLimited = &APIError{Status: http.StatusTooManyRequests, Type: errorTypeRateLimit, Code: "rate_limited", Message: "too many requests"}
)

func invalidRequestError() error {
	return &APIError{Status: http.StatusBadRequest, Type: errorTypeInvalidRequest, Code: "invalid_request", Message: "invalid request"}
}

func newValidationError(field, code, message string) error {
	return &APIError{Status: http.StatusBadRequest, Type: errorTypeInvalidRequest, Code: code, Message: message, Field: field}
}

type errorMapping struct {
	err    error
	status int
	typ    string
	field  string
}

// errorMappings is checked in order with errors.Is; the first match wins.
var errorMappings = []errorMapping{
	{err: invoicedomain.ErrInvalidInvoiceID, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "id"},
	{err: invoicedomain.ErrInvalidLineItemID, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "id"},
	{err: invoicedomain.ErrInvalidClient, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "client_id"},
	{err: invoicedomain.ErrInvalidDescription, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "description"},
	{err: invoicedomain.ErrInvalidStatus, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "status"},
	{err: invoicedomain.ErrInvalidQuantity, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "quantity"},
	{err: invoicedomain.ErrInvalidUnitPrice, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "unit_price"},
	{err: invoicedomain.ErrInvalidAmount, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "amount"},
	{err: invoicedomain.ErrInvalidTaxRate, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "tax_rate"},
	{err: invoicedomain.ErrInvalidPageToken, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "page_token"},
	{err: invoicedomain.ErrInvoiceNotFound, status: http.StatusNotFound, typ: errorTypeNotFound},
	{err: invoicedomain.ErrLineItemNotFound, status: http.StatusNotFound, typ: errorTypeNotFound},
	{err: invoicedomain.ErrInvoiceVoided, status: http.StatusConflict, typ: errorTypeConflict},

	{err: formdomain.ErrInvoiceNotFound, status: http.StatusNotFound, typ: errorTypeNotFound},
	{err: formdomain.ErrSaveInProgress, status: http.StatusConflict, typ: errorTypeConflict},
	{err: formdomain.ErrInvalidMode, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "mode"},
	{err: formdomain.ErrMissingInvoice, status: http.StatusBadRequest, typ: errorTypeInvalidRequest},
	{err: formdomain.ErrUnknownLineItem, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "line_items"},
	{err: formdomain.ErrDuplicateLineItem, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "line_items"},
	{err: formdomain.ErrLineItemIndexOutOfRange, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "line_items"},

	{err: preferencedomain.ErrInvalidOwner, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "owner"},
	{err: preferencedomain.ErrInvalidScope, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "scope"},
	{err: preferencedomain.ErrInvalidItem, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "item"},
	{err: preferencedomain.ErrInvalidViewName, status: http.StatusBadRequest, typ: errorTypeInvalidRequest, field: "name"},
	{err: preferencedomain.ErrViewNotFound, status: http.StatusNotFound, typ: errorTypeNotFound},
}

// AbortWithError writes the error envelope for err and aborts the chain.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.AbortWithStatusJSON(apiErr.Status, gin.H{"error": errorBody(apiErr.Type, apiErr.Code, apiErr.Message, apiErr.Field)})
		return
	}

	var validation formdomain.ValidationErrors
	if errors.As(err, &validation) {
		body := errorBody(errorTypeInvalidRequest, formdomain.ErrValidationFailed.Error(), "invoice form is invalid", "")
		body["fields"] = validation
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": body})
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			c.AbortWithStatusJSON(m.status, gin.H{"error": errorBody(m.typ, m.err.Error(), err.Error(), m.field)})
			return
		}
	}

	logger.With(zap.L(), c.Request.Context()).Error("unhandled request error",
		zap.String("route", c.FullPath()),
		zap.Error(err),
	)
	code := "internal_error"
	if errors.Is(err, formdomain.ErrSaveFailed) {
		code = formdomain.ErrSaveFailed.Error()
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": errorBody(errorTypeAPI, code, http.StatusText(http.StatusInternalServerError), "")})
}

func errorBody(typ, code, message, field string) gin.H {
	body := gin.H{
		"type":    typ,
		"code":    code,
		"message": message,
	}
	if field != "" {
		body["field"] = field
	}
	return body
}
