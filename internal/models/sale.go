package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodCard  PaymentMethod = "card"
	PaymentMethodMixed PaymentMethod = "mixed"
)

type Sale struct {
	ID            uint `gorm:"primaryKey"`
	ShiftID       uint `gorm:"index;not null"`
	BranchID      uint `gorm:"index;not null"`
	Branch        Branch
	PaymentMethod PaymentMethod   `gorm:"size:20;not null"`
	Total         decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Adjustment    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"` // descuento/redondeo, con signo
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Items          []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	PaymentDetails []PaymentDetail `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

type SaleItem struct {
	ID        uint `gorm:"primaryKey"`
	SaleID    uint `gorm:"index;not null"`
	ProductID uint `gorm:"index;not null"`
	Product   Product
	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}

// PaymentDetail: desglose por método de una venta con pago mixto.
type PaymentDetail struct {
	ID        uint            `gorm:"primaryKey"`
	SaleID    uint            `gorm:"index;not null"`
	Method    PaymentMethod   `gorm:"size:20;not null"`
	Amount    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt time.Time
}
