package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type SettlementStatus string

const (
	SettlementStatusPending   SettlementStatus = "pending"
	SettlementStatusConfirmed SettlementStatus = "confirmed"
	SettlementStatusRejected  SettlementStatus = "rejected"
)

// Settlement: rendición de dinero entre sucursales. Es un registro del reclamo,
// no un movimiento contable: el rechazo no revierte ningún saldo.
type Settlement struct {
	ID             uint   `gorm:"primaryKey"`
	SourceBranchID uint   `gorm:"index;not null"`
	SourceBranch   Branch `gorm:"foreignKey:SourceBranchID"`
	TargetBranchID uint   `gorm:"index;not null"`
	TargetBranch   Branch `gorm:"foreignKey:TargetBranchID"`
	Amount         decimal.Decimal  `gorm:"type:decimal(12,2);not null"`
	Notes          string           `gorm:"size:500"`
	Status         SettlementStatus `gorm:"size:20;not null;default:'pending'"`
	CreatedByID    uint             `gorm:"not null"`
	CreatedBy      User             `gorm:"foreignKey:CreatedByID"`
	ConfirmedByID  *uint
	ConfirmedBy    *User `gorm:"foreignKey:ConfirmedByID"`
	ConfirmedAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
