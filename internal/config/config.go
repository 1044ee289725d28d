package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds everything the API reads from the environment at startup.
type Config struct {
	Port    string
	GinMode string

	DSN string

	JWTSecret string
	JWTTTL    time.Duration

	CORSOrigins []string
	LogLevel    string

	// Pricing
	FlatShippingRate      decimal.Decimal
	FreeShippingThreshold decimal.Decimal
	TaxRate               decimal.Decimal

	// Background worker
	OrderPendingTTL time.Duration
	WorkerInterval  time.Duration

	LoginRatePerMinute int
}

// Defaults used when a variable is not set.
const (
	defaultPort                  = "8080"
	defaultDSN                   = "root:root@tcp(127.0.0.1:3306)/homewareontap?parseTime=true"
	defaultJWTTTL                = 72 * time.Hour
	defaultCORSOrigin            = "http://localhost:5173"
	defaultFlatShippingRate      = "60.00"
	defaultFreeShippingThreshold = "250.00"
	defaultTaxRate               = "0.15"
	defaultOrderPendingTTL       = 48 * time.Hour
	defaultWorkerInterval        = time.Hour
	defaultLoginRatePerMinute    = 10
)

// Load reads the process environment. Call godotenv.Load before this if a
// .env file should be honoured.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", defaultPort),
		GinMode:            getEnv("GIN_MODE", "release"),
		DSN:                getEnv("DB_DSN_PRIMARY", defaultDSN),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", defaultCORSOrigin)),
		LoginRatePerMinute: defaultLoginRatePerMinute,
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is not set")
	}

	var err error
	if cfg.JWTTTL, err = getDuration("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.OrderPendingTTL, err = getDuration("ORDER_PENDING_TTL", defaultOrderPendingTTL); err != nil {
		return nil, err
	}
	if cfg.WorkerInterval, err = getDuration("WORKER_INTERVAL", defaultWorkerInterval); err != nil {
		return nil, err
	}

	if cfg.FlatShippingRate, err = getDecimal("SHIPPING_FLAT_RATE", defaultFlatShippingRate); err != nil {
		return nil, err
	}
	if cfg.FreeShippingThreshold, err = getDecimal("FREE_SHIPPING_THRESHOLD", defaultFreeShippingThreshold); err != nil {
		return nil, err
	}
	if cfg.TaxRate, err = getDecimal("TAX_RATE", defaultTaxRate); err != nil {
		return nil, err
	}

	if v := os.Getenv("LOGIN_RATE_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("LOGIN_RATE_PER_MINUTE must be a positive integer, got %q", v)
		}
		cfg.LoginRatePerMinute = n
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration for %s: %w", key, err)
	}
	return d, nil
}

func getDecimal(key, fallback string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(getEnv(key, fallback))
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal for %s: %w", key, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
