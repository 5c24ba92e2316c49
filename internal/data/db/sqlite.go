package db

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/yungbote/shelfscan-backend/internal/platform/logger"
)

// SQLiteService backs local development and tests. A DSN such as
// "file:x?mode=memory&cache=shared" keeps everything in memory.
type SQLiteService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSQLiteService(log *logger.Logger, dsn string) (*SQLiteService, error) {
	serviceLog := log.With("service", "SQLiteService")
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(serviceLog))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// One writer at a time; sqlite locks the whole file anyway.
	sqlDB.SetMaxOpenConns(1)
	return &SQLiteService{db: db, log: serviceLog}, nil
}

func (s *SQLiteService) DB() *gorm.DB { return s.db }

func (s *SQLiteService) Close() error { return closeDB(s.db) }
