package db

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// Service is the handle the app holds for whichever driver is configured.
type Service interface {
	DB() *gorm.DB
	Close() error
}

type Config struct {
	Driver     string
	Postgres   PostgresConfig
	SQLitePath string
}

func Open(log *logger.Logger, cfg Config) (Service, error) {
	switch cfg.Driver {
	case "", "postgres":
		return NewPostgresService(log, cfg.Postgres)
	case "sqlite":
		return NewSQLiteService(log, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

type gormWriter struct{ log *logger.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn(fmt.Sprintf(format, args...))
}

func gormConfig(log *logger.Logger) *gorm.Config {
	return &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLogger.New(gormWriter{log: log}, gormLogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		}),
		NowFunc: func() time.Time { return time.Now().UTC() },
	}
}

func closeDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
