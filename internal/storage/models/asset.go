// internal/storage/models/asset.go
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset is one row per token created by the market.
type Asset struct {
	BaseModel
	Address     string          `gorm:"unique;not null;type:varchar(42)"`
	Index       int             `gorm:"uniqueIndex;not null"`
	Creator     string          `gorm:"index;not null;type:varchar(42)"`
	Name        string          `gorm:"not null;type:varchar(100)"`
	Symbol      string          `gorm:"not null;type:varchar(32)"`
	Metadata    string          `gorm:"type:text"`
	MaxSupply   decimal.Decimal `gorm:"type:numeric(78,0);not null"`
	Active      bool            `gorm:"not null;default:true"`
	GraduatedAt *time.Time      `gorm:"index"`
}
