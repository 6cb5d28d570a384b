package models

import "time"

// Claves de módulos activables globalmente.
const (
	FlagStockTransfers = "stock_transfers"
)

type FeatureFlag struct {
	ID          uint   `gorm:"primaryKey"`
	Key         string `gorm:"size:50;uniqueIndex;not null"`
	Enabled     bool   `gorm:"not null;default:false"`
	Description string `gorm:"size:255"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
