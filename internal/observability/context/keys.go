package context

import "context"

// Request holds the correlation values of one inbound request. Empty fields
// are omitted from logs.
type Request struct {
	ID        string
	Actor     string
	InvoiceID string
}

type requestKey struct{}

func WithRequest(ctx context.Context, r Request) context.Context {
	if ctx == nil {
		return ctx
	}
	return context.WithValue(ctx, requestKey{}, r)
}

func RequestFrom(ctx context.Context) Request {
	if ctx == nil {
		return Request{}
	}
	r, _ := ctx.Value(requestKey{}).(Request)
	return r
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	r := RequestFrom(ctx)
	r.ID = requestID
	return WithRequest(ctx, r)
}

func RequestIDFromContext(ctx context.Context) string {
	return RequestFrom(ctx).ID
}

// WithActor records who issued the request, usually the X-Actor-Id header.
func WithActor(ctx context.Context, actorID string) context.Context {
	if actorID == "" {
		return ctx
	}
	r := RequestFrom(ctx)
	r.Actor = actorID
	return WithRequest(ctx, r)
}

func ActorFromContext(ctx context.Context) string {
	return RequestFrom(ctx).Actor
}

// WithInvoiceID scopes the request to one invoice.
func WithInvoiceID(ctx context.Context, invoiceID string) context.Context {
	if invoiceID == "" {
		return ctx
	}
	r := RequestFrom(ctx)
	r.InvoiceID = invoiceID
	return WithRequest(ctx, r)
}

func InvoiceIDFromContext(ctx context.Context) string {
	return RequestFrom(ctx).InvoiceID
}
