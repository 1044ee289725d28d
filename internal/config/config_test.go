package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "CORS_ORIGINS", "SHIPPING_FLAT_RATE", "FREE_SHIPPING_THRESHOLD", "TAX_RATE", "JWT_TTL"} {
		t.Setenv(key, "")
	}
	t.Setenv("JWT_SECRET", "test-secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("expected port 8080, got %q", cfg.Port)
	}
	if cfg.FlatShippingRate.StringFixed(2) != "60.00" {
		t.Errorf("expected flat rate 60.00, got %s", cfg.FlatShippingRate.StringFixed(2))
	}
	if cfg.FreeShippingThreshold.StringFixed(2) != "250.00" {
		t.Errorf("expected threshold 250.00, got %s", cfg.FreeShippingThreshold.StringFixed(2))
	}
	if cfg.TaxRate.String() != "0.15" {
		t.Errorf("expected tax rate 0.15, got %s", cfg.TaxRate.String())
	}
	if cfg.JWTTTL != 72*time.Hour {
		t.Errorf("expected JWT TTL 72h, got %v", cfg.JWTTTL)
	}
	if len(cfg.CORSOrigins) != 1 || cfg.CORSOrigins[0] != "http://localhost:5173" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSOrigins)
	}
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("expected error when JWT_SECRET is empty")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("SHIPPING_FLAT_RATE", "75.50")
	t.Setenv("ORDER_PENDING_TTL", "2h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("LOGIN_RATE_PER_MINUTE", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.FlatShippingRate.StringFixed(2) != "75.50" {
		t.Errorf("expected flat rate 75.50, got %s", cfg.FlatShippingRate.StringFixed(2))
	}
	if cfg.OrderPendingTTL != 2*time.Hour {
		t.Errorf("expected 2h, got %v", cfg.OrderPendingTTL)
	}
	if len(cfg.CORSOrigins) != 2 {
		t.Errorf("expected 2 origins, got %v", cfg.CORSOrigins)
	}
	if cfg.LoginRatePerMinute != 3 {
		t.Errorf("expected login rate 3, got %d", cfg.LoginRatePerMinute)
	}
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string]string{
		"TAX_RATE":              "abc",
		"SHIPPING_FLAT_RATE":    "-1",
		"WORKER_INTERVAL":       "soon",
		"LOGIN_RATE_PER_MINUTE": "0",
	}

	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "test-secret")
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Errorf("expected error for %s=%q", key, val)
			}
		})
	}
}
