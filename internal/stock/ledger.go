package stock

import (
	"errors"
	"time"

	"tienda-backend/internal/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Adjust: suma delta a la fila (producto, sucursal), creándola si no existe.
// Es un upsert de una sola sentencia: el incremento lo hace la base, nunca se
// hace read-modify-write en la aplicación. No hay piso en cero; la cantidad
// puede quedar negativa y es responsabilidad del llamador exigir justificación.
// Recibe el handle de transacción para que las mutaciones de un traslado
// compartan su transacción.
func Adjust(tx *gorm.DB, productID, branchID uint, delta decimal.Decimal) error {
	row := models.Stock{
		ProductID: productID,
		BranchID:  branchID,
		Quantity:  delta,
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "product_id"}, {Name: "branch_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("stocks.quantity + excluded.quantity"),
			"updated_at": time.Now(),
		}),
	}).Create(&row).Error
}

// Read: cantidad actual de (producto, sucursal). La ausencia de fila equivale a
// cero; el segundo valor distingue "nunca hubo stock acá" de una fila en cero.
func Read(db *gorm.DB, productID, branchID uint) (decimal.Decimal, bool, error) {
	var row models.Stock
	err := db.Where("product_id = ? AND branch_id = ?", productID, branchID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	return row.Quantity, true, nil
}
