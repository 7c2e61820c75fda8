package dbstore

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	// Pure Go SQLite driver, registered under the "sqlite" name so the
	// gorm.io/driver/sqlite dialector can open it without CGO.
	_ "modernc.org/sqlite"

	"github.com/calibretools/bookdupe/internal/logger"
)

// Driver names a supported store backend.
type Driver string

// Supported Driver values.
const (
	DriverSQLite     Driver = "sqlite"
	DriverPostgreSQL Driver = "postgresql"
	DriverMySQL      Driver = "mysql"
	DriverMariaDB    Driver = "mariadb"
)

// Config configures a store connection. DSN holds a file path for SQLite or
// a driver-specific connection string otherwise.
type Config struct {
	Driver          Driver
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type databaseDriver interface {
	connect(cfg Config) (*gorm.DB, error)
}

func driverFor(d Driver) (databaseDriver, error) {
	switch d {
	case DriverSQLite, "":
		return sqliteDriver{}, nil
	case DriverPostgreSQL, "postgres":
		return postgresDriver{}, nil
	case DriverMySQL, DriverMariaDB:
		return mysqlDriver{}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", d)
	}
}

type sqliteDriver struct{}

func (sqliteDriver) connect(cfg Config) (*gorm.DB, error) {
	if dir := filepath.Dir(cfg.DSN); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Dialector{DriverName: "sqlite", DSN: cfg.DSN}, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrapping sql.DB: %w", err)
	}
	// SQLite allows only one writer; a single pooled connection avoids
	// SQLITE_BUSY errors under concurrent access.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}

type postgresDriver struct{}

func (postgresDriver) connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres database: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

type mysqlDriver struct{}

func (mysqlDriver) connect(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening mysql database: %w", err)
	}
	if err := configurePool(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

func configurePool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("unwrapping sql.DB: %w", err)
	}
	maxOpen := cfg.MaxOpenConns
	if maxOpen <= 0 {
		maxOpen = 10
	}
	maxIdle := cfg.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = 5
	}
	lifetime := cfg.ConnMaxLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxLifetime(lifetime)
	return nil
}

// ConnectWithFallback opens cfg's configured driver, auto-migrates the
// schema, and falls back to a local SQLite file at fallbackPath on any
// connection failure (unsupported driver, bad DSN, unreachable server),
// exactly as the teacher's database.ConnectWithFallback falls back to
// SQLite for its profile store.
func ConnectWithFallback(cfg Config, fallbackPath string, log *logger.Logger) (*gorm.DB, error) {
	drv, err := driverFor(cfg.Driver)
	if err != nil {
		if log != nil {
			log.Warn("unsupported store driver, falling back to sqlite", map[string]interface{}{
				"driver": string(cfg.Driver),
				"error":  err.Error(),
			})
		}
		return connectFallback(fallbackPath)
	}

	db, err := drv.connect(cfg)
	if err != nil {
		if log != nil {
			log.Warn("store connection failed, falling back to sqlite", map[string]interface{}{
				"driver": string(cfg.Driver),
				"error":  err.Error(),
			})
		}
		return connectFallback(fallbackPath)
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("running store migrations: %w", err)
	}
	return db, nil
}

func connectFallback(fallbackPath string) (*gorm.DB, error) {
	db, err := (sqliteDriver{}).connect(Config{Driver: DriverSQLite, DSN: fallbackPath})
	if err != nil {
		return nil, fmt.Errorf("connecting to sqlite fallback: %w", err)
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("running store migrations on fallback: %w", err)
	}
	return db, nil
}
