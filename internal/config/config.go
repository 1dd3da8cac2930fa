package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/toko-admin/internal/totals"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string
	TokenTTL           time.Duration
	TokenIssuer        string
	TokenAudience      string
	NodeID             int64

	ListDefaultPageSize int
	ListMaxPageSize     int
	SnapshotCacheTTL    time.Duration
	IdempotencyTTL      time.Duration
	ShopHeader          string

	InvoiceTaxMode   totals.TaxMode
	InvoiceTaxRate   float64
	QuotationTaxMode totals.TaxMode
	QuotationTaxRate float64
	QuotationTerms   string

	RateLimitBackend string
	RateLimitWindow  time.Duration
	RateLimitMax     int
	BodyLimitBytes   int64
	SecurityHeaders  bool
	AuditEnabled     bool
	MigrateOnStart   bool

	KafkaBrokers []string
	KafkaTopic   string

	QueuePrefix            string
	QueueConcurrency       int
	QueueVisibilityTimeout time.Duration
	QueueMaxAttempts       int
	QueueBackoffBase       time.Duration
	LockTTL                time.Duration

	TelegramBotToken string
	TelegramChatID   int64
}

// DefaultQuotationTerms is printed on quotations that carry no terms.
const DefaultQuotationTerms = "Payment due within 30 days."

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	invoiceTaxMode, err := totals.ParseTaxMode(valueOrDefault(k.String("INVOICE_TAX_MODE"), string(totals.FlatAmount)))
	if err != nil {
		return nil, fmt.Errorf("INVOICE_TAX_MODE: %w", err)
	}
	quotationTaxMode, err := totals.ParseTaxMode(valueOrDefault(k.String("QUOTATION_TAX_MODE"), string(totals.PercentageOfNet)))
	if err != nil {
		return nil, fmt.Errorf("QUOTATION_TAX_MODE: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(valueOrDefault(k.String("CORS_ALLOWED_ORIGINS"), "*")),
		TokenTTL:           parseDuration(k.String("TOKEN_TTL"), "12h"),
		TokenIssuer:        valueOrDefault(k.String("TOKEN_ISSUER"), "toko-admin"),
		TokenAudience:      valueOrDefault(k.String("TOKEN_AUDIENCE"), "toko-admin-console"),
		NodeID:             int64(parseInt(k.String("NODE_ID"), 1)),

		ListDefaultPageSize: parseInt(k.String("LIST_DEFAULT_PAGE_SIZE"), 5),
		ListMaxPageSize:     parseInt(k.String("LIST_MAX_PAGE_SIZE"), 100),
		SnapshotCacheTTL:    parseDuration(k.String("SNAPSHOT_CACHE_TTL"), "30s"),
		IdempotencyTTL:      parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		ShopHeader:          valueOrDefault(k.String("SHOP_HEADER"), "X-Shop-ID"),

		InvoiceTaxMode:   invoiceTaxMode,
		InvoiceTaxRate:   parseFloat(k.String("INVOICE_TAX_RATE"), 10),
		QuotationTaxMode: quotationTaxMode,
		QuotationTaxRate: parseFloat(k.String("QUOTATION_TAX_RATE"), 10),
		QuotationTerms:   valueOrDefault(k.String("QUOTATION_TERMS"), DefaultQuotationTerms),

		RateLimitBackend: strings.ToLower(valueOrDefault(k.String("RATE_LIMIT_BACKEND"), "sliding")),
		RateLimitWindow:  parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:     parseInt(k.String("RATE_LIMIT_MAX"), 300),
		BodyLimitBytes:   int64(parseInt(k.String("BODY_LIMIT_BYTES"), 1<<20)),
		SecurityHeaders:  parseBoolDefault(k.String("SECURITY_HEADERS"), true),
		AuditEnabled:     parseBoolDefault(k.String("AUDIT_ENABLED"), true),
		MigrateOnStart:   parseBool(k.String("MIGRATE_ON_START")),

		KafkaBrokers: splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaTopic:   valueOrDefault(k.String("KAFKA_TOPIC"), "toko-admin.events"),

		QueuePrefix:            valueOrDefault(k.String("QUEUE_PREFIX"), "toko-admin"),
		QueueConcurrency:       parseInt(k.String("QUEUE_CONCURRENCY"), 4),
		QueueVisibilityTimeout: parseDuration(k.String("QUEUE_VISIBILITY_TIMEOUT"), "30s"),
		QueueMaxAttempts:       parseInt(k.String("QUEUE_MAX_ATTEMPTS"), 10),
		QueueBackoffBase:       parseDuration(k.String("QUEUE_BACKOFF_BASE"), "500ms"),
		LockTTL:                parseDuration(k.String("LOCK_TTL"), "30s"),

		TelegramBotToken: strings.TrimSpace(k.String("TELEGRAM_BOT_TOKEN")),
		TelegramChatID:   int64(parseInt(k.String("TELEGRAM_CHAT_ID"), 0)),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.ListMaxPageSize < 1 {
		return nil, errors.New("LIST_MAX_PAGE_SIZE must be positive")
	}
	if cfg.ListDefaultPageSize < 1 || cfg.ListDefaultPageSize > cfg.ListMaxPageSize {
		return nil, errors.New("LIST_DEFAULT_PAGE_SIZE must be between 1 and LIST_MAX_PAGE_SIZE")
	}
	if cfg.InvoiceTaxRate < 0 {
		return nil, errors.New("INVOICE_TAX_RATE must not be negative")
	}
	if cfg.QuotationTaxRate < 0 {
		return nil, errors.New("QUOTATION_TAX_RATE must not be negative")
	}
	switch cfg.RateLimitBackend {
	case "sliding", "fixed", "off":
	default:
		return nil, fmt.Errorf("RATE_LIMIT_BACKEND %q is not one of sliding, fixed, off", cfg.RateLimitBackend)
	}

	return cfg, nil
}

// InvoiceCalculator is the tax policy for invoices. In flatAmount mode the
// entered taxAmount is charged as is.
func (c *Config) InvoiceCalculator() totals.Calculator {
	return totals.Calculator{TaxMode: c.InvoiceTaxMode, TaxRate: decimal.NewFromFloat(c.InvoiceTaxRate)}
}

// QuotationCalculator is the tax policy for quotations. Quotations carry no
// entered tax, so flatAmount mode charges none.
func (c *Config) QuotationCalculator() totals.Calculator {
	return totals.Calculator{TaxMode: c.QuotationTaxMode, TaxRate: decimal.NewFromFloat(c.QuotationTaxRate)}
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// KafkaEnabled reports whether events are forwarded to Kafka.
func (c *Config) KafkaEnabled() bool { return len(c.KafkaBrokers) > 0 }

// TelegramEnabled reports whether invoice notifications go to Telegram.
func (c *Config) TelegramEnabled() bool { return c.TelegramBotToken != "" && c.TelegramChatID != 0 }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.AppEnv, "production") }

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseBoolDefault(value string, fallback bool) bool {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return parseBool(value)
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func parseFloat(value string, fallback float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
