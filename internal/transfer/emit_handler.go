package transfer

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/featureflag"
	"tienda-backend/internal/models"
	"tienda-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type EmitTransferRequest struct {
	// Justificación por product_id para cada faltante (mínimo 5 caracteres)
	Justifications map[string]string `json:"justifications"`
}

// POST /api/transfers/:id/emit
// Fase de emisión: pending -> in_transit. Descuenta el stock de origen por la
// cantidad pedida aunque no alcance (la mercadería sale igual y el libro queda
// en negativo); el faltante exige justificación o se aborta todo.
func EmitTransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if !featureflag.IsEnabled(models.FlagStockTransfers) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "El módulo de transferencias está deshabilitado")
		}

		id := c.Params("id")

		var body EmitTransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		var transfer models.StockTransfer
		if err := database.DB.Preload("Items.Product").First(&transfer, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transferencia no encontrada")
		}

		if transfer.Status != models.TransferStatusPending {
			return fiber.NewError(fiber.StatusConflict, "La transferencia ya fue emitida")
		}

		now := time.Now()

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			// Transición condicionada por estado: garantiza emisión única
			// aun con dos requests simultáneos sobre la misma transferencia.
			res := tx.Model(&models.StockTransfer{}).
				Where("id = ? AND status = ?", transfer.ID, models.TransferStatusPending).
				Updates(map[string]interface{}{
					"status":        models.TransferStatusInTransit,
					"shipped_by_id": actor.ID,
					"shipped_at":    now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusConflict, "La transferencia ya fue emitida")
			}

			for _, item := range transfer.Items {
				current, _, err := stock.Read(tx, item.ProductID, transfer.SourceBranchID)
				if err != nil {
					return err
				}

				// Faltante: se permite emitir igual, pero con justificación
				if item.Quantity.GreaterThan(current) {
					j := strings.TrimSpace(body.Justifications[strconv.FormatUint(uint64(item.ProductID), 10)])
					if !validJustification(j) {
						return fiber.NewError(fiber.StatusBadRequest,
							fmt.Sprintf("Stock insuficiente del producto %s (ID %d): se requiere una justificación de al menos %d caracteres",
								item.Product.Name, item.ProductID, minJustificationLen))
					}
					if err := tx.Model(&models.TransferItem{}).
						Where("id = ?", item.ID).
						Update("issuance_justification", j).Error; err != nil {
						return err
					}
				}

				if err := stock.Adjust(tx, item.ProductID, transfer.SourceBranchID, item.Quantity.Neg()); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo emitir la transferencia")
		}

		if err := database.DB.Preload("Items.Product").First(&transfer, "id = ?", transfer.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo recargar la transferencia")
		}

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    &transfer.SourceBranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock_transfer",
			EntityID:    transfer.ID,
			Action:      models.AuditActionEmit,
			Description: fmt.Sprintf("Transferencia %s emitida: %d productos", transfer.Code, len(transfer.Items)),
			After:       transfer,
		})

		return c.JSON(toTransferResponse(transfer))
	}
}
