package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransferStatus string

const (
	TransferStatusPending   TransferStatus = "pending"
	TransferStatusInTransit TransferStatus = "in_transit"
	TransferStatusCompleted TransferStatus = "completed"
)

// StockTransfer: traslado de mercadería entre sucursales en dos fases.
// El estado avanza en una sola dirección: pending -> in_transit -> completed.
type StockTransfer struct {
	ID             uint   `gorm:"primaryKey"`
	Code           string `gorm:"size:40;not null;uniqueIndex"`
	SourceBranchID uint   `gorm:"index;not null"`
	SourceBranch   Branch `gorm:"foreignKey:SourceBranchID"`
	TargetBranchID uint   `gorm:"index;not null"`
	TargetBranch   Branch `gorm:"foreignKey:TargetBranchID"`
	Status         TransferStatus `gorm:"size:20;not null;default:'pending'"`
	Note           string         `gorm:"size:255"`
	ShippedByID    *uint
	ShippedBy      *User `gorm:"foreignKey:ShippedByID"`
	ShippedAt      *time.Time
	ConfirmedByID  *uint
	ConfirmedBy    *User `gorm:"foreignKey:ConfirmedByID"`
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Items []TransferItem `gorm:"foreignKey:TransferID;constraint:OnDelete:CASCADE"`
}

type TransferItem struct {
	ID         uint `gorm:"primaryKey"`
	TransferID uint `gorm:"index;not null"`
	ProductID  uint `gorm:"index;not null"`
	Product    Product
	Quantity   decimal.Decimal  `gorm:"type:decimal(14,3);not null"` // cantidad enviada
	ReceivedQuantity *decimal.Decimal `gorm:"type:decimal(14,3)"`    // null hasta la recepción
	// Justificación obligatoria cuando se emite sin stock suficiente
	IssuanceJustification string `gorm:"size:500"`
	// Justificación + foto obligatorias cuando lo recibido difiere de lo enviado
	ReceptionJustification string `gorm:"size:500"`
	ReceptionPhotoURL      string `gorm:"size:255"`
	CreatedAt              time.Time
	UpdatedAt              time.Time
}
