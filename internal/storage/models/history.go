// internal/storage/models/history.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Graduation records the pool seeding of an asset.
type Graduation struct {
	BaseModel
	Asset       string          `gorm:"unique;not null;type:varchar(42)"`
	Dex         string          `gorm:"not null;type:varchar(42)"`
	TokenAmount decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ValueAmount decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Retired     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	ToppedUp    decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	OccurredAt  time.Time       `gorm:"not null"`
}

// Withdrawal kinds.
const (
	WithdrawalIncome  = "income"
	WithdrawalRoyalty = "royalty"
)

// Withdrawal records protocol income or creator royalty leaving custody.
type Withdrawal struct {
	BaseModel
	Kind       string          `gorm:"index;not null;type:varchar(10)"`
	Asset      string          `gorm:"index;type:varchar(42)"`
	Recipient  string          `gorm:"not null;type:varchar(42)"`
	Amount     decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	OccurredAt time.Time       `gorm:"not null"`
}
