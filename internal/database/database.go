// Package database opens the gorm connection shared by the ledger and
// catalog repositories.
package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"

	"telegram-storefront-bot/internal/catalog"
	"telegram-storefront-bot/internal/orders"
	"telegram-storefront-bot/internal/prefs"
	"telegram-storefront-bot/internal/reviews"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Open connects to the configured database. sqlite is a single local file
// (the default, "bot.db"); mysql takes a regular go-sql-driver DSN.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(sqliteDSN(dsn))
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db handle: %w", err)
	}
	if driver == DriverMySQL {
		sqlDB.SetMaxOpenConns(16)
		sqlDB.SetMaxIdleConns(8)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	} else {
		// sqlite allows one writer; a single connection keeps every insert
		// and update an individually committed statement without busy errors.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate creates or upgrades every table the bots use.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&orders.Order{},
		&reviews.Review{},
		&catalog.Price{},
		&prefs.Preference{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// Close releases the underlying sql.DB.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func sqliteDSN(dsn string) string {
	if dsn == "" {
		dsn = "bot.db"
	}
	if dsn == ":memory:" {
		return "file::memory:?cache=shared"
	}
	return dsn
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				Colorful:                  false,
				LogLevel:                  logger.Error,
				SlowThreshold:             time.Second,
				IgnoreRecordNotFoundError: true,
			},
		),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
	}
}
