package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Shift: turno de caja de un cajero. Abierto mientras ClosedAt sea null.
// Al cierre se calcula el efectivo esperado y la diferencia contra lo declarado;
// la diferencia se registra siempre, nunca bloquea el cierre.
type Shift struct {
	ID          uint `gorm:"primaryKey"`
	UserID      uint `gorm:"index;not null"`
	User        User
	BranchID    uint `gorm:"index;not null"`
	Branch      Branch
	InitialCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	OpenedAt    time.Time       `gorm:"not null"`
	ClosedAt    *time.Time      `gorm:"index"`

	DeclaredAmount    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	ExpectedAmount    *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Discrepancy       *decimal.Decimal `gorm:"type:decimal(12,2)"` // declarado - esperado
	DiscrepancyReason string           `gorm:"size:100"`
	DiscrepancyNote   string           `gorm:"size:500"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Sales []Sale `gorm:"foreignKey:ShiftID"`
}
