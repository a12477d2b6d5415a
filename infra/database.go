package infra

import (
	"errors"
	"strings"
	"time"

	"github.com/amirasaad/tripledger/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDBConnection opens the ledger database. URLs starting with "sqlite://"
// open an SQLite database (used by tests and local tooling); anything else is
// handed to the postgres driver.
func NewDBConnection(
	cnf *config.DB,
	appEnv string,
) (*gorm.DB, error) {
	if cnf == nil || cnf.Url == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	logMode := logger.Silent
	if appEnv == "development" {
		logMode = logger.Info
	}

	dialector, isSQLite := dialectorFor(cnf.Url)
	connection, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger.Default.LogMode(logMode),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := connection.DB()
	if err != nil {
		return nil, err
	}
	if isSQLite {
		// a single connection keeps in-memory databases shared and
		// serializes writers the way SQLite expects
		sqlDB.SetMaxOpenConns(1)
	} else {
		maxOpen := cnf.MaxOpenConns
		if maxOpen <= 0 {
			maxOpen = 25
		}
		sqlDB.SetMaxOpenConns(maxOpen)
		sqlDB.SetMaxIdleConns(maxOpen)
	}
	lifetime := cnf.ConnLifetime
	if lifetime <= 0 {
		lifetime = time.Hour
	}
	sqlDB.SetConnMaxLifetime(lifetime)

	return connection, nil
}

func dialectorFor(url string) (gorm.Dialector, bool) {
	if dsn, ok := strings.CutPrefix(url, "sqlite://"); ok {
		return sqlite.Open(dsn), true
	}
	return postgres.Open(url), false
}
