package infra

import (
	"testing"
	"time"
)

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("LoadConfig() without DATABASE_URL should fail")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/backdrop")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.AppEnv != "development" || cfg.Production() {
		t.Fatalf("default env = %q, want development", cfg.AppEnv)
	}
	if cfg.Port != "8080" {
		t.Fatalf("default port = %q", cfg.Port)
	}
	if cfg.SessionTTL != 30*24*time.Hour {
		t.Fatalf("default session ttl = %v", cfg.SessionTTL)
	}
	if cfg.RemovalPollInterval != time.Second || cfg.RemovalPollDeadline != 90*time.Second {
		t.Fatalf("poll defaults = %v / %v", cfg.RemovalPollInterval, cfg.RemovalPollDeadline)
	}
	if cfg.ReplicateBaseURL != "https://api.replicate.com/v1" {
		t.Fatalf("replicate base url = %q", cfg.ReplicateBaseURL)
	}
	if cfg.SMTPPort != 587 {
		t.Fatalf("smtp port = %d", cfg.SMTPPort)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/backdrop")
	t.Setenv("APP_ENV", "production")
	t.Setenv("SESSION_TTL_HOURS", "1")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if !cfg.Production() {
		t.Fatalf("APP_ENV=production should enable production mode")
	}
	if cfg.SessionTTL != time.Hour {
		t.Fatalf("session ttl = %v, want 1h", cfg.SessionTTL)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example.com" {
		t.Fatalf("cors origins = %v", cfg.CORSAllowedOrigins)
	}
}
