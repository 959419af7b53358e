package service

import (
	formdomain "github.com/smallbiznis/opsdesk/internal/invoiceform/domain"
	"github.com/smallbiznis/opsdesk/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type FactoryParams struct {
	fx.In

	Log     *zap.Logger
	Metrics *metrics.InvoiceSaveMetrics `optional:"true"`
}

// Factory builds reconcilers that share logging and metrics but differ in
// the gateway they write through, such as a transaction-bound backend.
type Factory struct {
	log     *zap.Logger
	metrics *metrics.InvoiceSaveMetrics
}

func NewFactory(p FactoryParams) *Factory {
	return &Factory{log: p.Log, metrics: p.Metrics}
}

func (f *Factory) New(gateway formdomain.Gateway) *Reconciler {
	return NewReconciler(gateway, f.log, f.metrics)
}
