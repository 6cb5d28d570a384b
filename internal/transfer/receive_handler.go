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
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ReceiveTransferRequest struct {
	// Clave: ID del ítem de la transferencia
	Items map[string]ReceiveItemRequest `json:"items"`
}

type ReceiveItemRequest struct {
	// Si se omite, se asume que llegó lo enviado
	ReceivedQuantity *decimal.Decimal `json:"received_quantity"`
	Justification    string           `json:"justification"`
	PhotoURL         string           `json:"photo_url"`
}

// POST /api/transfers/:id/receive
// Fase de recepción: in_transit -> completed. Suma al destino lo efectivamente
// recibido (no lo enviado); cualquier diferencia exige justificación o se
// aborta todo sin tocar el stock.
func ReceiveTransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if !featureflag.IsEnabled(models.FlagStockTransfers) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "El módulo de transferencias está deshabilitado")
		}

		id := c.Params("id")

		var body ReceiveTransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		var transfer models.StockTransfer
		if err := database.DB.Preload("Items.Product").First(&transfer, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transferencia no encontrada")
		}

		switch transfer.Status {
		case models.TransferStatusInTransit:
			// ok
		case models.TransferStatusPending:
			return fiber.NewError(fiber.StatusConflict, "La transferencia todavía no fue emitida")
		default:
			return fiber.NewError(fiber.StatusConflict, "La transferencia ya fue recibida")
		}

		// Toda clave del cuerpo debe referenciar un ítem real: una clave con
		// error de tipeo haría caer ese ítem en el default silencioso.
		known := make(map[string]bool, len(transfer.Items))
		for _, item := range transfer.Items {
			known[strconv.FormatUint(uint64(item.ID), 10)] = true
		}
		for key := range body.Items {
			if !known[key] {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("La recepción referencia un ítem inexistente: %s", key))
			}
		}

		now := time.Now()

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			// Recepción única: misma técnica que en la emisión.
			res := tx.Model(&models.StockTransfer{}).
				Where("id = ? AND status = ?", transfer.ID, models.TransferStatusInTransit).
				Updates(map[string]interface{}{
					"status":          models.TransferStatusCompleted,
					"confirmed_by_id": actor.ID,
					"confirmed_at":    now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fiber.NewError(fiber.StatusConflict, "La transferencia ya fue recibida")
			}

			for _, item := range transfer.Items {
				received := item.Quantity
				var justification, photoURL string

				if req, ok := body.Items[strconv.FormatUint(uint64(item.ID), 10)]; ok {
					if req.ReceivedQuantity != nil {
						if req.ReceivedQuantity.IsNegative() {
							return fiber.NewError(fiber.StatusBadRequest,
								fmt.Sprintf("La cantidad recibida del producto %s (ID %d) no puede ser negativa",
									item.Product.Name, item.ProductID))
						}
						received = *req.ReceivedQuantity
					}
					justification = strings.TrimSpace(req.Justification)
					photoURL = strings.TrimSpace(req.PhotoURL)
				}

				// Diferencia entre enviado y recibido: justificación obligatoria
				if !received.Equal(item.Quantity) && !validJustification(justification) {
					return fiber.NewError(fiber.StatusBadRequest,
						fmt.Sprintf("La cantidad recibida del producto %s (ID %d) difiere de la enviada: se requiere una justificación de al menos %d caracteres",
							item.Product.Name, item.ProductID, minJustificationLen))
				}

				updates := map[string]interface{}{
					"received_quantity": received,
				}
				if justification != "" {
					updates["reception_justification"] = justification
				}
				if photoURL != "" {
					updates["reception_photo_url"] = photoURL
				}
				if err := tx.Model(&models.TransferItem{}).
					Where("id = ?", item.ID).
					Updates(updates).Error; err != nil {
					return err
				}

				if err := stock.Adjust(tx, item.ProductID, transfer.TargetBranchID, received); err != nil {
					return err
				}
			}

			return nil
		})
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				return fe
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar la recepción")
		}

		if err := database.DB.Preload("Items.Product").First(&transfer, "id = ?", transfer.ID).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo recargar la transferencia")
		}

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    &transfer.TargetBranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock_transfer",
			EntityID:    transfer.ID,
			Action:      models.AuditActionReceive,
			Description: fmt.Sprintf("Transferencia %s recibida", transfer.Code),
			After:       transfer,
		})

		return c.JSON(toTransferResponse(transfer))
	}
}
