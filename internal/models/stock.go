package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stock es el saldo por producto y sucursal. La fila puede no existir (saldo
// cero) y la cantidad puede quedar negativa: el libro registra lo que pasó,
// no lo que debería haber pasado.
type Stock struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	ProductID uint            `gorm:"not null;uniqueIndex:uq_stocks_producto_sucursal" json:"product_id"`
	Product   Product         `gorm:"foreignKey:ProductID" json:"product"`
	BranchID  uint            `gorm:"not null;uniqueIndex:uq_stocks_producto_sucursal" json:"branch_id"`
	Branch    Branch          `gorm:"foreignKey:BranchID" json:"branch"`
	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"quantity"`
	MinStock  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0" json:"min_stock"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
