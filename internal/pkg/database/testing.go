package database

import (
	"Signalforge/internal/api/config"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"
)

var memSeq atomic.Int64

// NewTestDB 独立的内存 SQLite 库，已完成迁移
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:signalforge_%d?mode=memory&cache=shared&_busy_timeout=5000", memSeq.Add(1))
	db, err := NewGormDB(&config.DBConfig{Driver: DriverSQLite, DSN: dsn, AutoMigrate: true})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}
