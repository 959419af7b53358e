package config

import (
	"strings"
	"testing"
	"time"
)

func lookupFrom(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}

func TestFromLookupDefaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Environment != EnvironmentDevelopment {
		t.Fatalf("expected development environment, got %q", cfg.Environment)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.Database.Driver)
	}
	if cfg.Invoice.DueInDays != 30 {
		t.Fatalf("expected 30 due days, got %d", cfg.Invoice.DueInDays)
	}
	if cfg.RateLimit.Window != time.Minute {
		t.Fatalf("expected 1m rate limit window, got %s", cfg.RateLimit.Window)
	}
	if cfg.Branding.Currency != "USD" {
		t.Fatalf("expected USD, got %q", cfg.Branding.Currency)
	}
}

func TestFromLookupOverrides(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"APP_ENV":                  "Production",
		"DB_DRIVER":                "postgres",
		"DATABASE_URL":             "postgres://opsdesk@localhost/opsdesk",
		"OTEL_ENABLED":             "true",
		"OTEL_SAMPLING_RATIO":      "0.5",
		"INVOICE_DEFAULT_TAX_RATE": "7.5",
		"BRAND_CURRENCY":           "eur",
		"OPSDESK_API_URL":          "https://ops.example.com/api/",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production config")
	}
	if !cfg.Tracing.Enabled || cfg.Tracing.SamplingRatio != 0.5 {
		t.Fatalf("unexpected tracing config: %+v", cfg.Tracing)
	}
	if cfg.Invoice.DefaultTaxRate != 7.5 {
		t.Fatalf("expected tax rate 7.5, got %v", cfg.Invoice.DefaultTaxRate)
	}
	if cfg.Branding.Currency != "EUR" {
		t.Fatalf("expected EUR, got %q", cfg.Branding.Currency)
	}
	if cfg.Client.BaseURL != "https://ops.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.Client.BaseURL)
	}
}

func TestFromLookupRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   string
	}{
		{name: "bad int", values: map[string]string{"INVOICE_DUE_IN_DAYS": "thirty"}, want: "INVOICE_DUE_IN_DAYS"},
		{name: "bad driver", values: map[string]string{"DB_DRIVER": "mysql"}, want: "DB_DRIVER"},
		{name: "bad env", values: map[string]string{"APP_ENV": "staging"}, want: "APP_ENV"},
		{name: "bad duration", values: map[string]string{"RATE_LIMIT_WINDOW": "soon"}, want: "RATE_LIMIT_WINDOW"},
		{name: "node out of range", values: map[string]string{"SNOWFLAKE_NODE_ID": "4096"}, want: "SNOWFLAKE_NODE_ID"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromLookup(lookupFrom(tt.values))
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
