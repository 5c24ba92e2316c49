package testutil

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/shelfscan-backend/internal/data/db"
	"github.com/yungbote/shelfscan-backend/internal/data/docstore"
	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
	"github.com/yungbote/shelfscan-backend/internal/realtime"
)

var errMissingDSN = errors.New("missing TEST_POSTGRES_DSN")

var (
	logOnce sync.Once
	logg    *logger.Logger
	logErr  error

	pgOnce sync.Once
	pgDB   *gorm.DB
	pgErr  error

	memSeq atomic.Int64
)

func Logger(tb testing.TB) *logger.Logger {
	tb.Helper()
	logOnce.Do(func() {
		logg, logErr = logger.New("test")
	})
	if logErr != nil {
		tb.Fatalf("failed to init logger: %v", logErr)
	}
	return logg
}

// SQLite opens a private in-memory database with every table migrated.
func SQLite(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := fmt.Sprintf("file:shelfscan_test_%d?mode=memory&cache=shared", memSeq.Add(1))
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		tb.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrateAll(gdb); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	return gdb
}

// Postgres returns a shared migrated database, skipping without TEST_POSTGRES_DSN.
func Postgres(tb testing.TB) *gorm.DB {
	tb.Helper()
	pgOnce.Do(func() {
		dsn := os.Getenv("TEST_POSTGRES_DSN")
		if dsn == "" {
			pgErr = errMissingDSN
			return
		}
		pgDB, pgErr = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
			Logger:                                   gormLogger.Default.LogMode(gormLogger.Silent),
		})
		if pgErr == nil {
			pgErr = db.AutoMigrateAll(pgDB)
		}
	})
	if errors.Is(pgErr, errMissingDSN) {
		tb.Skip("set TEST_POSTGRES_DSN to run postgres integration tests")
	}
	if pgErr != nil {
		tb.Fatalf("failed to init test db: %v", pgErr)
	}
	return pgDB
}

type Env struct {
	DB    *gorm.DB
	Hub   *realtime.Hub
	Store docstore.Store
	Log   *logger.Logger
}

// NewEnv wires a document store over a fresh in-memory database.
func NewEnv(tb testing.TB) *Env {
	tb.Helper()
	log := Logger(tb)
	gdb := SQLite(tb)
	hub := realtime.NewHub(log)
	return &Env{
		DB:    gdb,
		Hub:   hub,
		Store: docstore.NewGormStore(gdb, log, hub, nil),
		Log:   log,
	}
}
