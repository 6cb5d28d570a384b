package models

import "time"

type AuditAction string

const (
	AuditActionCreate  AuditAction = "create"
	AuditActionUpdate  AuditAction = "update"
	AuditActionDelete  AuditAction = "delete"
	AuditActionEmit    AuditAction = "emit"
	AuditActionReceive AuditAction = "receive"
	AuditActionOpen    AuditAction = "open"
	AuditActionClose   AuditAction = "close"
	AuditActionConfirm AuditAction = "confirm"
	AuditActionReject  AuditAction = "reject"
)

type AuditLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	BranchID *uint `json:"branch_id"`

	UserID   uint   `json:"user_id"`
	UserName string `gorm:"size:100" json:"user_name"` // nombre denormalizado

	// Entidad afectada (ej: "stock_transfer", "shift", "settlement")
	EntityType string `gorm:"size:50;index" json:"entity_type"`
	EntityID   uint   `gorm:"index" json:"entity_id"`

	Action AuditAction `gorm:"size:20" json:"action"`

	Description string `gorm:"size:255" json:"description"`

	// Estado anterior y posterior (JSON)
	BeforeData string `gorm:"type:jsonb" json:"before_data"`
	AfterData  string `gorm:"type:jsonb" json:"after_data"`
}
