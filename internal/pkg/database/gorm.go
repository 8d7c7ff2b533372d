package database

import (
	"Signalforge/internal/api/config"
	"Signalforge/internal/model"
	"Signalforge/internal/pkg/logger"
	"fmt"
	log "log/slog"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Dialector 按驱动名选择 gorm 方言
func Dialector(driver, dsn string) (gorm.Dialector, string, error) {
	switch driver {
	case "", DriverMySQL:
		return mysql.Open(dsn), "MySQL", nil
	case DriverPostgres:
		return postgres.Open(dsn), "Postgres", nil
	case DriverSQLite:
		return sqlite.Open(dsn), "SQLite", nil
	default:
		return nil, "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// NewGormDB 初始化并返回 *gorm.DB 实例，处理连接池配置
func NewGormDB(cfg *config.DBConfig) (*gorm.DB, error) {
	dialector, dialect, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	gl := logger.NewGormLogger(gormlogger.Warn)
	gl.Dialect = dialect

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gl,
		PrepareStmt:    cfg.Driver != DriverSQLite,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying DB: %w", err)
	}

	if cfg.Driver == DriverSQLite {
		// SQLite 单写者
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Minute)
	}

	if err = sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("database connection check failed: %w", err)
	}

	if cfg.AutoMigrate {
		if err = Migrate(db); err != nil {
			return nil, err
		}
	}

	log.Info("Database connection established successfully.", "driver", dialect)
	return db, nil
}

// Migrate 同步流水线表结构
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(model.PipelineModels()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
