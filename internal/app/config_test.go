package app

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/shelfscan-backend/internal/data/db"
	"github.com/yungbote/shelfscan-backend/internal/modules/auth"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SHELFSCAN_CONFIG", "")
	t.Setenv("JWT_SECRET_KEY", "")
	t.Setenv("PORT", "")
	t.Setenv("TOKEN_TTL", "")
	t.Setenv("REPORT_JOIN_CONCURRENCY", "")

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port: want=8080 got=%s", cfg.Port)
	}
	if cfg.DB.Driver != "postgres" {
		t.Fatalf("Driver: want=postgres got=%s", cfg.DB.Driver)
	}
	if cfg.TokenTTL != auth.DefaultTokenTTL {
		t.Fatalf("TokenTTL: want=%v got=%v", auth.DefaultTokenTTL, cfg.TokenTTL)
	}
	if cfg.ReportJoinConcurrency != 8 {
		t.Fatalf("ReportJoinConcurrency: want=8 got=%d", cfg.ReportJoinConcurrency)
	}
	if cfg.ChangePollInterval != 2*time.Second {
		t.Fatalf("ChangePollInterval: want=2s got=%v", cfg.ChangePollInterval)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "shelfscan.yaml")
	body := "PORT: \"9000\"\nDB_DRIVER: sqlite\nSHEETS_RANGE: Export!A1\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("SHELFSCAN_CONFIG", path)
	t.Setenv("PORT", "7000")
	t.Setenv("DB_DRIVER", "")
	t.Setenv("SHEETS_RANGE", "")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://admin.example.com, https://app.example.com")

	cfg, err := LoadConfig(logger.NewNop())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Port != "7000" {
		t.Fatalf("Port: want=7000 got=%s", cfg.Port)
	}
	if cfg.DB.Driver != "sqlite" {
		t.Fatalf("Driver: want=sqlite got=%s", cfg.DB.Driver)
	}
	if cfg.SheetsRange != "Export!A1" {
		t.Fatalf("SheetsRange: want=Export!A1 got=%s", cfg.SheetsRange)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Fatalf("TokenTTL: want=30m got=%v", cfg.TokenTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://app.example.com" {
		t.Fatalf("AllowedOrigins: got=%v", cfg.AllowedOrigins)
	}
}

func TestValidate(t *testing.T) {
	base := Config{
		LogMode:      "development",
		DB:           dbConfig("postgres"),
		JWTSecretKey: "s3cret",
		TokenTTL:     time.Hour,
		OCRProvider:  OCRProviderVision,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown driver", func(c *Config) { c.DB.Driver = "mysql" }, "DB_DRIVER"},
		{"missing secret", func(c *Config) { c.JWTSecretKey = " " }, "JWT_SECRET_KEY"},
		{"default secret in production", func(c *Config) { c.JWTSecretKey = defaultJWTSecret; c.LogMode = "production" }, "production"},
		{"unknown ocr", func(c *Config) { c.OCRProvider = "tesseract" }, "OCR_PROVIDER"},
		{"zero ttl", func(c *Config) { c.TokenTTL = 0 }, "TOKEN_TTL"},
		{"negative poll", func(c *Config) { c.ChangePollInterval = -time.Second }, "CHANGE_POLL_INTERVAL"},
	}
	for _, tc := range cases {
		cfg := base
		tc.mutate(&cfg)
		err := cfg.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: want error mentioning %q got=%v", tc.name, tc.want, err)
		}
	}

	dev := base
	dev.JWTSecretKey = defaultJWTSecret
	if err := dev.Validate(); err != nil {
		t.Fatalf("default secret outside production: %v", err)
	}
}

func dbConfig(driver string) db.Config { return db.Config{Driver: driver} }
