package database

import (
	"context"
	"database/sql/driver"
	"fmt"
	"net"

	"github.com/glebarez/sqlite"
	"github.com/go-sql-driver/mysql"
	"github.com/pkg/errors"
	gormMysql "gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"raisefunds/boff"
	"raisefunds/config"
	"raisefunds/logger"
)

const (
	tcp = "tcp"

	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite"

	// amountColumnType is the MySQL column type of Amount, also used by the
	// SQL expressions that add amounts.
	amountColumnType = "DECIMAL(36,18)"
)

var (
	// List entities to auto-migrate
	entities = []interface{}{
		User{},
		Fundraiser{},
		Donation{},
		Update{},
		Report{},
	}
	DBTransactionBatchesSize = 1000
)

func ConnectAndInitialize(ctx context.Context, cfg *config.DBConfig) (*gorm.DB, error) {
	if name := driverName(cfg); name != DriverMySQL && name != DriverSQLite {
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := boff.RetryWithMaxElapsed(
		ctx,
		func() (*gorm.DB, error) {
			return Connect(cfg)
		},
		"database.Connect",
	)
	if err != nil {
		return nil, fmt.Errorf("ConnectAndInitialize: Connect: %w", err)
	}

	if err := Initialize(db, cfg.DropTableAtStart); err != nil {
		return nil, err
	}

	if cfg.SeedAtStart {
		if _, err := Seed(ctx, db); err != nil {
			return nil, err
		}
	}

	logger.Info("Connected to %s database %s", driverName(cfg), cfg.Database)

	return db, nil
}

// Initialize creates or migrates the schema, optionally dropping all tables
// first.
func Initialize(db *gorm.DB, dropTables bool) error {
	if dropTables {
		// drop in reverse to not break foreign keys
		for i := len(entities) - 1; i >= 0; i-- {
			if err := db.Migrator().DropTable(entities[i]); err != nil {
				return errors.Wrap(err, "Initialize: DropTable")
			}
		}
	}

	// Initialize - auto migrate
	err := db.AutoMigrate(entities...)
	if err != nil {
		return errors.Wrap(err, "Initialize: AutoMigrate")
	}

	return nil
}

func Connect(cfg *config.DBConfig) (*gorm.DB, error) {
	gormConfig := gorm.Config{
		Logger:          gormlogger.Default.LogMode(getGormLogLevel(cfg)),
		CreateBatchSize: DBTransactionBatchesSize,
		TranslateError:  true,
	}

	switch driverName(cfg) {
	case DriverMySQL:
		// Connect to the database
		dbConfig := mysql.Config{
			User:                 cfg.Username,
			Passwd:               cfg.Password,
			Net:                  tcp,
			Addr:                 fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
			DBName:               cfg.Database,
			AllowNativePasswords: true,
			ParseTime:            true,
		}
		return gorm.Open(gormMysql.Open(dbConfig.FormatDSN()), &gormConfig)

	case DriverSQLite:
		db, err := gorm.Open(sqlite.Open(cfg.Database), &gormConfig)
		if err != nil {
			return nil, err
		}
		// sqlite serialises writers anyway; a single connection avoids
		// "database is locked" errors between concurrent transactions.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil

	default:
		return nil, errors.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func driverName(cfg *config.DBConfig) string {
	if cfg.Driver == "" {
		return DriverMySQL
	}
	return cfg.Driver
}

func getGormLogLevel(cfg *config.DBConfig) gormlogger.LogLevel {
	if cfg.LogQueries {
		return gormlogger.Info
	}

	return gormlogger.Silent
}

// IsUnavailable reports whether err means the database could not be reached
// at all, as opposed to a failing query.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1062
}
