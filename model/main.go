package model

import (
	"database/sql"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bedrock-gateway/bedrock-assumerole/common"
	"github.com/bedrock-gateway/bedrock-assumerole/common/config"
	"github.com/bedrock-gateway/bedrock-assumerole/common/logger"
)

// DB stores invocation logs. It stays nil when logging is disabled.
var DB *gorm.DB

var (
	usingSQLite     atomic.Bool
	usingMySQL      atomic.Bool
	usingPostgreSQL atomic.Bool
)

func resetDialectFlags() {
	usingSQLite.Store(false)
	usingMySQL.Store(false)
	usingPostgreSQL.Store(false)
}

func chooseDB(dsn string) (*gorm.DB, error) {
	resetDialectFlags()
	switch {
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://"):
		return openPostgreSQL(dsn)
	case dsn != "":
		return openMySQL(dsn)
	default:
		return openSQLite(config.SQLitePath, config.SQLiteBusyTimeout)
	}
}

func openPostgreSQL(dsn string) (*gorm.DB, error) {
	logger.Logger.Info("using PostgreSQL for invocation logs")
	usingPostgreSQL.Store(true)
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{PrepareStmt: true})
}

func openMySQL(dsn string) (*gorm.DB, error) {
	logger.Logger.Info("using MySQL for invocation logs")
	usingMySQL.Store(true)
	normalized, err := common.NormalizeMySQLDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "normalize mysql dsn")
	}
	return gorm.Open(mysql.Open(normalized), &gorm.Config{PrepareStmt: true})
}

func openSQLite(path string, busyTimeoutMs int) (*gorm.DB, error) {
	logger.Logger.Info("SQL_DSN not set, using SQLite for invocation logs", zap.String("path", path))
	usingSQLite.Store(true)
	dsn := fmt.Sprintf("%s?_busy_timeout=%d", path, busyTimeoutMs)
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{PrepareStmt: true})
}

// InitDB opens the configured database and migrates the invocation log table.
func InitDB() error {
	db, err := chooseDB(config.SQLDSN)
	if err != nil {
		return errors.Wrap(err, "open database")
	}

	if config.DebugSQLEnabled {
		logger.Logger.Debug("debug sql enabled")
		db = db.Debug()
	}

	if _, err = setDBConns(db); err != nil {
		return err
	}
	if err = migrateDB(db); err != nil {
		return err
	}

	DB = db
	logger.Logger.Info("invocation log database ready")
	return nil
}

func migrateDB(db *gorm.DB) error {
	if err := db.AutoMigrate(&InvocationLog{}); err != nil {
		return errors.Wrap(err, "migrate InvocationLog")
	}
	return nil
}

func setDBConns(db *gorm.DB) (*sql.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get sql db")
	}

	sqlDB.SetMaxIdleConns(config.SQLMaxIdleConns)
	sqlDB.SetMaxOpenConns(config.SQLMaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Second * time.Duration(config.SQLMaxLifetimeSeconds))

	logger.Logger.Debug("database connection pool configured",
		zap.Int("max_idle_conns", config.SQLMaxIdleConns),
		zap.Int("max_open_conns", config.SQLMaxOpenConns),
		zap.Int("max_lifetime_secs", config.SQLMaxLifetimeSeconds))
	return sqlDB, nil
}

// CloseDB closes DB if it was opened.
func CloseDB() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(sqlDB.Close())
}
