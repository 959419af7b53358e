package events

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/opsdesk/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Sink receives outbox events in insertion order.
type Sink interface {
	Deliver(ctx context.Context, record Record) error
}

// LogSink writes each event to the logger.
type LogSink struct {
	Log *zap.Logger
}

func (s LogSink) Deliver(_ context.Context, record Record) error {
	s.Log.Info("invoice event",
		zap.String("event_id", record.ID.String()),
		zap.String("event_type", record.EventType),
		zap.String("invoice_id", record.AggregateID.String()),
		zap.Any("payload", logger.RedactFields(record.Payload)),
	)
	return nil
}

// DispatcherConfig controls the outbox polling loop.
type DispatcherConfig struct {
	BatchSize    int
	PollInterval time.Duration
}

func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		BatchSize:    50,
		PollInterval: 2 * time.Second,
	}
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	defaults := DefaultDispatcherConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.PollInterval <= 0 {
		c.PollInterval = defaults.PollInterval
	}
	return c
}

type DispatcherParams struct {
	fx.In

	Outbox *Outbox
	Log    *zap.Logger
	Sink   Sink             `optional:"true"`
	Config DispatcherConfig `optional:"true"`
}

// Dispatcher drains pending outbox events into a Sink.
type Dispatcher struct {
	outbox *Outbox
	sink   Sink
	log    *zap.Logger
	cfg    DispatcherConfig
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("events.dispatcher")
	sink := p.Sink
	if sink == nil {
		sink = LogSink{Log: log}
	}
	return &Dispatcher{
		outbox: p.Outbox,
		sink:   sink,
		log:    log,
		cfg:    p.Config.withDefaults(),
	}
}

func (d *Dispatcher) RunForever(ctx context.Context) {
	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := d.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.log.Warn("event dispatch failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce delivers one batch and returns how many events were marked
// published. Delivery stops at the first failing event so ordering holds.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	if d.outbox == nil {
		return 0, errors.New("outbox_unavailable")
	}
	records, err := d.outbox.Pending(ctx, d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := make([]snowflake.ID, 0, len(records))
	var deliverErr error
	for _, record := range records {
		if err := d.sink.Deliver(ctx, record); err != nil {
			deliverErr = err
			break
		}
		delivered = append(delivered, record.ID)
	}

	if err := d.outbox.MarkPublished(ctx, delivered...); err != nil {
		return 0, err
	}
	return len(delivered), deliverErr
}

func runDispatcher(lc fx.Lifecycle, d *Dispatcher) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				d.RunForever(ctx)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
