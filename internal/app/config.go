package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/yungbote/shelfscan-backend/internal/data/db"
	"github.com/yungbote/shelfscan-backend/internal/modules/auth"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

const (
	defaultJWTSecret = "defaultsecret"

	OCRProviderVision = "vision"
	OCRProviderNone   = "none"
)

type Config struct {
	Port        string
	LogMode     string
	ServiceName string
	Environment string

	DB db.Config

	JWTSecretKey string
	TokenTTL     time.Duration

	RedisAddr     string
	RedisPassword string
	RedisChannel  string
	// ChangePollInterval bounds how stale a live view can get when a write
	// happened in another process. Zero disables polling.
	ChangePollInterval time.Duration

	BucketName        string
	CDNDomain         string
	ObjectStorageMode string
	EmulatorHost      string
	PublicBaseURL     string
	MaxImageBytes     int64

	OCRProvider string

	SheetsSpreadsheetID string
	SheetsRange         string

	AllowedOrigins        []string
	ReportJoinConcurrency int
}

// LoadConfig reads the environment, then the optional file named by
// SHELFSCAN_CONFIG. Environment values win over the file.
func LoadConfig(log *logger.Logger) (Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	if path := strings.TrimSpace(v.GetString("SHELFSCAN_CONFIG")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if log != nil {
			log.Info("config file loaded", "path", path)
		}
	}

	cfg := Config{
		Port:        v.GetString("PORT"),
		LogMode:     v.GetString("LOG_MODE"),
		ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		Environment: v.GetString("APP_ENV"),
		DB: db.Config{
			Driver:     strings.ToLower(strings.TrimSpace(v.GetString("DB_DRIVER"))),
			SQLitePath: v.GetString("SQLITE_PATH"),
			Postgres: db.PostgresConfig{
				URL:      v.GetString("DB_URL"),
				Host:     v.GetString("POSTGRES_HOST"),
				Port:     v.GetString("POSTGRES_PORT"),
				User:     v.GetString("POSTGRES_USER"),
				Password: v.GetString("POSTGRES_PASSWORD"),
				Name:     v.GetString("POSTGRES_NAME"),
				SSLMode:  v.GetString("POSTGRES_SSLMODE"),
			},
		},
		JWTSecretKey:          v.GetString("JWT_SECRET_KEY"),
		TokenTTL:              v.GetDuration("TOKEN_TTL"),
		RedisAddr:             v.GetString("REDIS_ADDR"),
		RedisPassword:         v.GetString("REDIS_PASSWORD"),
		RedisChannel:          v.GetString("REDIS_CHANNEL"),
		ChangePollInterval:    v.GetDuration("CHANGE_POLL_INTERVAL"),
		BucketName:            v.GetString("SHELF_IMAGES_GCS_BUCKET_NAME"),
		CDNDomain:             v.GetString("SHELF_IMAGES_CDN_DOMAIN"),
		ObjectStorageMode:     v.GetString("OBJECT_STORAGE_MODE"),
		EmulatorHost:          v.GetString("STORAGE_EMULATOR_HOST"),
		PublicBaseURL:         v.GetString("OBJECT_STORAGE_PUBLIC_BASE_URL"),
		MaxImageBytes:         v.GetInt64("MAX_IMAGE_BYTES"),
		OCRProvider:           strings.ToLower(strings.TrimSpace(v.GetString("OCR_PROVIDER"))),
		SheetsSpreadsheetID:   v.GetString("SHEETS_SPREADSHEET_ID"),
		SheetsRange:           v.GetString("SHEETS_RANGE"),
		AllowedOrigins:        splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		ReportJoinConcurrency: v.GetInt("REPORT_JOIN_CONCURRENCY"),
	}
	return cfg, cfg.Validate()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_MODE", "development")
	v.SetDefault("OTEL_SERVICE_NAME", "shelfscan")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("SQLITE_PATH", "shelfscan.db")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("JWT_SECRET_KEY", defaultJWTSecret)
	v.SetDefault("TOKEN_TTL", auth.DefaultTokenTTL)
	v.SetDefault("CHANGE_POLL_INTERVAL", 2*time.Second)
	v.SetDefault("OBJECT_STORAGE_MODE", "")
	v.SetDefault("MAX_IMAGE_BYTES", 20<<20)
	v.SetDefault("OCR_PROVIDER", OCRProviderVision)
	v.SetDefault("SHEETS_RANGE", "Reports!A1")
	v.SetDefault("REPORT_JOIN_CONCURRENCY", 8)
}

func (c Config) Production() bool {
	switch strings.ToLower(strings.TrimSpace(c.LogMode)) {
	case "prod", "production":
		return true
	}
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func (c Config) Validate() error {
	var errs []error
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("DB_DRIVER: unknown driver %q", c.DB.Driver))
	}
	secret := strings.TrimSpace(c.JWTSecretKey)
	if secret == "" {
		errs = append(errs, errors.New("JWT_SECRET_KEY is required"))
	} else if secret == defaultJWTSecret && c.Production() {
		errs = append(errs, errors.New("JWT_SECRET_KEY must be set in production"))
	}
	switch c.OCRProvider {
	case OCRProviderVision, OCRProviderNone:
	default:
		errs = append(errs, fmt.Errorf("OCR_PROVIDER: unknown provider %q", c.OCRProvider))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("TOKEN_TTL must be positive"))
	}
	if c.ChangePollInterval < 0 {
		errs = append(errs, errors.New("CHANGE_POLL_INTERVAL must not be negative"))
	}
	return errors.Join(errs...)
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
