package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `gorm:"primaryKey"`
	Name      string          `gorm:"size:150;not null"`
	StockCode string          `gorm:"size:50;index"` // Código interno de inventario
	Unit      string          `gorm:"size:30"`       // Unidad (Paquete, Caja, Unidad, Kilogramo)
	Price     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	Active    bool            `gorm:"default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
