package models

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Daskott/famtree/server/logger"
	"github.com/Daskott/famtree/server/migrations"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

const (
	MYSQL_DRIVER  = "mysql"
	SQLITE_DRIVER = "sqlite"
)

var logg = logger.NewLogger()
var db *gorm.DB

// Open connects the package level db. Supported drivers are "mysql" and
// "sqlite"; dsn is passed through to the driver.
func Open(driver, dsn string) error {
	var dialector gorm.Dialector

	switch driver {
	case MYSQL_DRIVER:
		dialector = mysql.Open(dsn)
	case SQLITE_DRIVER:
		dialector = sqlite.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver %q", driver)
	}

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormLogger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			gormLogger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  gormLogger.Error,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		),
	})
	if err != nil {
		return fmt.Errorf("failed to connect database: %v", err)
	}

	// sqlite allows a single writer, keep every query on one connection
	if driver == SQLITE_DRIVER {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	db = conn
	return nil
}

// Migrate applies pending schema migrations to the open db.
func Migrate() error {
	applied, err := migrations.Up(db)
	for _, id := range applied {
		logg.Infof("Applied migration %v", id)
	}
	return err
}

func DB() *gorm.DB {
	return db
}

func Close() error {
	if db == nil {
		return nil
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InitializeTestDb points the package at a fresh, fully migrated in-memory db.
func InitializeTestDb() {
	err := Open(SQLITE_DRIVER, "file::memory:")
	if err != nil {
		logg.Panic(err)
	}

	if _, err := migrations.Up(db); err != nil {
		logg.Panic(err)
	}
}
