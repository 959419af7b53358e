package events

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type recordingSink struct {
	seen   []string
	failOn string
}

func (s *recordingSink) Deliver(_ context.Context, record Record) error {
	if record.EventType == s.failOn {
		return errors.New("sink down")
	}
	s.seen = append(s.seen, record.EventType)
	return nil
}

func publishAll(t *testing.T, outbox *Outbox, types ...string) {
	t.Helper()
	for i, typ := range types {
		if err := outbox.Publish(context.Background(), Event{AggregateID: 42, Type: typ, Payload: map[string]any{"n": i}}); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}
}

func TestDispatcherDeliversInOrder(t *testing.T) {
	outbox := newTestOutbox(t)
	publishAll(t, outbox, EventInvoiceCreated, EventInvoiceUpdated, EventInvoicePaymentRecorded)

	sink := &recordingSink{}
	d := NewDispatcher(DispatcherParams{Outbox: outbox, Log: zap.NewNop(), Sink: sink, Config: DispatcherConfig{BatchSize: 10}})

	n, err := d.RunOnce(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("expected 3 delivered, got %d %v", n, err)
	}
	if sink.seen[0] != EventInvoiceCreated || sink.seen[2] != EventInvoicePaymentRecorded {
		t.Fatalf("unexpected order: %v", sink.seen)
	}
	pending, err := outbox.Pending(context.Background(), 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected no pending events, got %d %v", len(pending), err)
	}
}

func TestDispatcherStopsAtFailure(t *testing.T) {
	outbox := newTestOutbox(t)
	publishAll(t, outbox, EventInvoiceCreated, EventInvoiceUpdated, EventInvoicePaymentRecorded)

	sink := &recordingSink{failOn: EventInvoiceUpdated}
	d := NewDispatcher(DispatcherParams{Outbox: outbox, Log: zap.NewNop(), Sink: sink})

	n, err := d.RunOnce(context.Background())
	if err == nil || n != 1 {
		t.Fatalf("expected one delivery and an error, got %d %v", n, err)
	}
	pending, err := outbox.Pending(context.Background(), 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending events, got %d %v", len(pending), err)
	}
	if pending[0].EventType != EventInvoiceUpdated {
		t.Fatalf("failed event must stay first, got %q", pending[0].EventType)
	}
}

func TestLogSinkIsDefault(t *testing.T) {
	outbox := newTestOutbox(t)
	publishAll(t, outbox, EventInvoiceCreated)

	core, logs := observer.New(zapcore.InfoLevel)
	d := NewDispatcher(DispatcherParams{Outbox: outbox, Log: zap.New(core)})
	if _, err := d.RunOnce(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	entries := logs.FilterMessage("invoice event").All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if entries[0].ContextMap()["event_type"] != EventInvoiceCreated {
		t.Fatalf("unexpected fields: %v", entries[0].ContextMap())
	}
}
