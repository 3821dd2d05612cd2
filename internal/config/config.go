package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	AuthJWTSecret string
	AuthJWTIssuer string

	OTLPEndpoint string

	Observability ObservabilityConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
	DBAutoMigrate     bool

	Redis     RedisConfig
	RateLimit RateLimitConfig
	Email     EmailConfig
}

// ObservabilityConfig carries logging and OpenTelemetry settings.
type ObservabilityConfig struct {
	LogLevel          string
	LogFormat         string
	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type RateLimitConfig struct {
	Enabled bool

	InvoiceCreateRate  float64
	InvoiceCreateBurst int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:       getenv("APP_SERVICE", "storeline"),
		AppVersion:    getenv("APP_VERSION", "0.1.0"),
		Environment:   environment,
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		AuthJWTSecret: strings.TrimSpace(getenv("AUTH_JWT_SECRET", "")),
		AuthJWTIssuer: strings.TrimSpace(getenv("AUTH_JWT_ISSUER", "storeline")),
		OTLPEndpoint:  getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),

		Observability: ObservabilityConfig{
			LogLevel:          strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:         strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:       getenvBool("OTEL_ENABLED", false),
			OtelProtocol:      strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "storeline"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 10),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 50),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
		DBAutoMigrate:     getenvBool("DATABASE_AUTO_MIGRATE", true),

		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:       getenvInt("REDIS_DB", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:            getenvBool("RATE_LIMIT_ENABLED", false),
			InvoiceCreateRate:  getenvFloat("RATE_LIMIT_INVOICE_CREATE_RATE", 1),
			InvoiceCreateBurst: getenvInt("RATE_LIMIT_INVOICE_CREATE_BURST", 5),
		},
		Email: EmailConfig{
			SMTPHost:     strings.TrimSpace(getenv("SMTP_HOST", "")),
			SMTPPort:     getenvInt("SMTP_PORT", 587),
			SMTPUsername: getenv("SMTP_USERNAME", ""),
			SMTPPassword: getenv("SMTP_PASSWORD", ""),
			SMTPFrom:     getenv("SMTP_FROM", "no-reply@storeline.local"),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
