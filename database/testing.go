package database

import (
	"fmt"
	"strings"
	"sync/atomic"

	"gorm.io/gorm"

	"raisefunds/config"
)

var testDBCounter atomic.Uint64

// TestDBConfig returns the configuration of a fresh, private in-memory
// SQLite database. name only makes the DSN readable in query logs.
func TestDBConfig(name string) config.DBConfig {
	name = strings.NewReplacer("/", "_", " ", "_").Replace(name)

	return config.DBConfig{
		Driver:   DriverSQLite,
		Database: fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, testDBCounter.Add(1)),
	}
}

func ConnectAndInitializeTestDB(name string) (*gorm.DB, error) {
	cfg := TestDBConfig(name)

	db, err := Connect(&cfg)
	if err != nil {
		return nil, err
	}

	if err := Initialize(db, false); err != nil {
		return nil, err
	}

	return db, nil
}
