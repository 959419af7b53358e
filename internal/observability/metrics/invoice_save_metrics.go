package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InvoiceSaveMetrics tracks invoice form saves and the remote requests each
// save issues.
type InvoiceSaveMetrics struct {
	saves    *prometheus.CounterVec
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewInvoiceSaveMetrics registers the save collectors on registerer.
func NewInvoiceSaveMetrics(registerer prometheus.Registerer, cfg Config) (*InvoiceSaveMetrics, error) {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "opsdesk"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	saves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "opsdesk_invoice_save_total",
			Help:        "Invoice form saves by mode and outcome.",
			ConstLabels: constLabels,
		},
		[]string{"mode", "result"}, // success | invalid | failed
	)

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "opsdesk_invoice_save_requests_total",
			Help:        "Remote invoice and line item requests issued while saving.",
			ConstLabels: constLabels,
		},
		[]string{"operation", "result"},
	)

	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:        "opsdesk_invoice_save_duration_seconds",
			Help:        "Wall time of a complete invoice save, including every line item request.",
			Buckets:     []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		},
		[]string{"mode"},
	)

	for _, collector := range []prometheus.Collector{saves, requests, duration} {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return &InvoiceSaveMetrics{
		saves:    saves,
		requests: requests,
		duration: duration,
	}, nil
}

func (m *InvoiceSaveMetrics) ObserveSave(mode, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(mode, result).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

func (m *InvoiceSaveMetrics) IncRequest(operation string, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "failed"
	}
	m.requests.WithLabelValues(operation, result).Inc()
}
