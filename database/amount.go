package database

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Amount is a currency amount. MySQL keeps it in an exact DECIMAL column.
// SQLite has no exact decimal storage, so there it is kept as text and all
// arithmetic on it is done in Go.
type Amount struct {
	decimal.Decimal
}

func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

func (Amount) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if isSQLite(db) {
		return "text"
	}
	return amountColumnType
}

func isSQLite(db *gorm.DB) bool {
	return db.Dialector.Name() == DriverSQLite
}
