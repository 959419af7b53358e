package tracing

import (
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	KeyInvoiceID  = attribute.Key("invoice.id")
	KeyFormMode   = attribute.Key("invoice_form.mode")
	KeyFormStep   = attribute.Key("invoice_form.step")
	KeyLineItems  = attribute.Key("invoice_form.line_items")
	KeyHTTPMethod = attribute.Key("http.method")
	KeyHTTPRoute  = attribute.Key("http.route")
	KeyHTTPStatus = attribute.Key("http.status_code")
)

// exportedPrefixes lists the attribute namespaces allowed on spans. Customer
// and free-text fields never leave the process.
var exportedPrefixes = []string{"http.", "invoice.", "invoice_form.", "db."}

// SafeAttributes keeps only attributes under an exported namespace.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	kept := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if exported(attr.Key) {
			kept = append(kept, attr)
		}
	}
	return kept
}

func exported(key attribute.Key) bool {
	name := string(key)
	for _, prefix := range exportedPrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// Fail marks span as failed. Only the error's type is recorded since invoice
// errors can echo customer input.
func Fail(span trace.Span, err error, description string) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(fmt.Errorf("%T", err))
	}
	span.SetStatus(codes.Error, description)
}
