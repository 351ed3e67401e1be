// internal/storage/models/trade.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides.
const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// Trade is one mint or burn leg. Swaps produce one row per leg.
type Trade struct {
	BaseModel
	Asset        string          `gorm:"index;not null;type:varchar(42)"`
	Trader       string          `gorm:"index;not null;type:varchar(42)"`
	Side         string          `gorm:"not null;type:varchar(4)"`
	ValueIn      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TokensIn     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	TokensOut    decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ValueOut     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Fee          decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Royalty      decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ReserveAfter decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	OccurredAt   time.Time       `gorm:"index;not null"`
}
