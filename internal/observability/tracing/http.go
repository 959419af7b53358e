package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// WrapHTTPClient returns a copy of client whose requests run in client spans
// and carry the trace headers to the invoice API.
func WrapHTTPClient(client *http.Client) *http.Client {
	if client == nil {
		client = http.DefaultClient
	}
	wrapped := *client
	next := wrapped.Transport
	if next == nil {
		next = http.DefaultTransport
	}
	wrapped.Transport = roundTripperFunc(func(req *http.Request) (*http.Response, error) {
		return traceRoundTrip(Tracer("invoiceclient"), next, req)
	})
	return &wrapped
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func traceRoundTrip(tracer trace.Tracer, next http.RoundTripper, req *http.Request) (*http.Response, error) {
	ctx, span := tracer.Start(req.Context(), req.Method+" "+req.URL.Path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(SafeAttributes(
			KeyHTTPMethod.String(req.Method),
			KeyHTTPRoute.String(req.URL.Path),
		)...),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(ctx)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(out.Header))

	resp, err := next.RoundTrip(out)
	if err != nil {
		Fail(span, err, "transport error")
		return resp, err
	}
	span.SetAttributes(KeyHTTPStatus.Int(resp.StatusCode))
	switch {
	case resp.StatusCode == http.StatusNotFound:
		// A missing invoice is an answer, not a failure.
	case resp.StatusCode >= http.StatusBadRequest:
		Fail(span, nil, resp.Status)
	}
	return resp, nil
}
