package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AccessTokenExpireMinutes != 30 || cfg.AccessTokenTTL() != 30*time.Minute {
		t.Fatalf("unexpected token expiry: %d", cfg.AccessTokenExpireMinutes)
	}
	if cfg.ServerAddr != ":8080" || cfg.BookingExchange != "booking.exchange" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.DBMaxOpenConns != 10 || cfg.DBMaxIdleConns != 5 || cfg.ConnMaxLifetime() != 30*time.Minute {
		t.Fatalf("unexpected pool defaults: %+v", cfg)
	}
}

func TestLoadEnvFileAndOverride(t *testing.T) {
	dir := t.TempDir()
	content := "DATABASE_URL=postgres://file\nJWT_SECRET=from-file\nLOGIN_RATE_PER_MINUTE=3\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("JWT_SECRET", "from-env")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.DatabaseURL != "postgres://file" {
		t.Fatalf("DatabaseURL = %q", cfg.DatabaseURL)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("environment should override file, got %q", cfg.JWTSecret)
	}
	if cfg.LoginRatePerMinute != 3 {
		t.Fatalf("LoginRatePerMinute = %d", cfg.LoginRatePerMinute)
	}
}
