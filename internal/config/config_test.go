package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("BACKEND_MODE", "")
	t.Setenv("BOOKING_SESSION_TTL", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.BackendMode != "api" {
		t.Fatalf("expected api backend mode by default, got %s", cfg.BackendMode)
	}
	if cfg.BookingSessionTTL != 30*time.Minute {
		t.Fatalf("expected default session ttl, got %s", cfg.BookingSessionTTL)
	}
	if cfg.CurrencyLocale != "pt-BR" || cfg.CurrencySymbol != "R$" {
		t.Fatalf("unexpected currency defaults: %s %s", cfg.CurrencyLocale, cfg.CurrencySymbol)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins by default, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("BACKEND_MODE", " Postgres ")
	t.Setenv("BACKEND_BASE_URL", "https://backend.example.com/api/")
	t.Setenv("SLOT_FETCH_TIMEOUT", "3s")
	t.Setenv("RATE_LIMIT_PER_SECOND", "2.5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, ,https://b.example.com")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.BackendMode != "postgres" {
		t.Fatalf("expected normalized backend mode, got %q", cfg.BackendMode)
	}
	if cfg.BackendBaseURL != "https://backend.example.com/api" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.BackendBaseURL)
	}
	if cfg.SlotFetchTimeout != 3*time.Second {
		t.Fatalf("expected slot timeout override, got %s", cfg.SlotFetchTimeout)
	}
	if cfg.RateLimitPerSecond != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.RateLimitPerSecond)
	}
	if !cfg.RedisTLS {
		t.Fatalf("expected redis tls enabled")
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLocationFallsBackToLocal(t *testing.T) {
	cfg := &Config{BookingTimezone: "Not/AZone"}
	if cfg.Location() != time.Local {
		t.Fatalf("expected local fallback for unknown zone")
	}
	cfg.BookingTimezone = "UTC"
	if cfg.Location().String() != "UTC" {
		t.Fatalf("expected UTC, got %s", cfg.Location())
	}
}
