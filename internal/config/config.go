package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvironmentDevelopment = "development"
	EnvironmentProduction  = "production"
	EnvironmentTest        = "test"
)

// Config holds process configuration resolved from the environment.
type Config struct {
	Environment string
	ServiceName string
	Version     string
	HTTPAddr    string
	NodeID      int64

	Database  DatabaseConfig
	Log       LogConfig
	Tracing   TracingConfig
	RateLimit RateLimitConfig
	Branding  BrandingConfig
	Invoice   InvoiceConfig
	Client    ClientConfig
}

type DatabaseConfig struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LogConfig struct {
	Level string
}

type TracingConfig struct {
	Enabled       bool
	Endpoint      string
	Protocol      string
	SamplingRatio float64
}

type RateLimitConfig struct {
	FormSaves int
	Window    time.Duration
}

// BrandingConfig feeds the invoice renderers.
type BrandingConfig struct {
	CompanyName  string
	LogoURL      string
	PrimaryColor string
	FontFamily   string
	FooterNotes  string
	FooterLegal  string
	Currency     string
	Locale       string
}

// InvoiceConfig carries the defaults applied to new invoice forms.
type InvoiceConfig struct {
	DueInDays      int
	DefaultTaxRate float64
	PaymentTerms   string
}

// ClientConfig is read by invoicectl.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

func (c Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// Load reads an optional .env file and resolves Config from the environment.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return FromLookup(os.LookupEnv)
}

// FromLookup resolves Config using the provided lookup function.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	r := reader{lookup: lookup}

	cfg := Config{
		Environment: strings.ToLower(r.string("APP_ENV", EnvironmentDevelopment)),
		ServiceName: r.string("SERVICE_NAME", "opsdesk"),
		Version:     r.string("SERVICE_VERSION", "dev"),
		HTTPAddr:    r.string("HTTP_ADDR", ":8080"),
		NodeID:      int64(r.int("SNOWFLAKE_NODE_ID", 1)),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(r.string("DB_DRIVER", "sqlite")),
			DSN:             r.string("DATABASE_URL", "file:opsdesk.db?_foreign_keys=on"),
			MaxOpenConns:    r.int("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    r.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: r.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Log: LogConfig{
			Level: strings.ToLower(r.string("LOG_LEVEL", "info")),
		},
		Tracing: TracingConfig{
			Enabled:       r.bool("OTEL_ENABLED", false),
			Endpoint:      r.string("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Protocol:      r.string("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio: r.float("OTEL_SAMPLING_RATIO", 0.1),
		},
		RateLimit: RateLimitConfig{
			FormSaves: r.int("RATE_LIMIT_FORM_SAVES", 60),
			Window:    r.duration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Branding: BrandingConfig{
			CompanyName:  r.string("BRAND_COMPANY_NAME", ""),
			LogoURL:      r.string("BRAND_LOGO_URL", ""),
			PrimaryColor: r.string("BRAND_PRIMARY_COLOR", "#111827"),
			FontFamily:   r.string("BRAND_FONT_FAMILY", "Space Grotesk"),
			FooterNotes:  r.string("BRAND_FOOTER_NOTES", ""),
			FooterLegal:  r.string("BRAND_FOOTER_LEGAL", ""),
			Currency:     strings.ToUpper(r.string("BRAND_CURRENCY", "USD")),
			Locale:       r.string("BRAND_LOCALE", "en"),
		},
		Invoice: InvoiceConfig{
			DueInDays:      r.int("INVOICE_DUE_IN_DAYS", 30),
			DefaultTaxRate: r.float("INVOICE_DEFAULT_TAX_RATE", 0),
			PaymentTerms:   r.string("INVOICE_PAYMENT_TERMS", "net_30"),
		},
		Client: ClientConfig{
			BaseURL: strings.TrimRight(r.string("OPSDESK_API_URL", "http://localhost:8080/api"), "/"),
			Timeout: r.duration("OPSDESK_API_TIMEOUT", 15*time.Second),
		},
	}

	if r.err != nil {
		return Config{}, r.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.Environment {
	case EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Environment)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("config: DATABASE_URL is required")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("config: SNOWFLAKE_NODE_ID must be between 0 and 1023")
	}
	if c.Invoice.DueInDays < 0 {
		return fmt.Errorf("config: INVOICE_DUE_IN_DAYS must not be negative")
	}
	return nil
}

// reader keeps the first parse error so Load can report it once.
type reader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *reader) raw(key string) (string, bool) {
	if r.lookup == nil {
		return "", false
	}
	value, ok := r.lookup(key)
	if !ok {
		return "", false
	}
	value = strings.TrimSpace(value)
	return value, value != ""
}

func (r *reader) string(key, fallback string) string {
	if value, ok := r.raw(key); ok {
		return value
	}
	return fallback
}

func (r *reader) int(key string, fallback int) int {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *reader) float(key string, fallback float64) float64 {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *reader) bool(key string, fallback bool) bool {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	value, ok := r.raw(key)
	if !ok {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, err)
		return fallback
	}
	return parsed
}

func (r *reader) fail(key string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("config: invalid %s: %w", key, err)
	}
}
