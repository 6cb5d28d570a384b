package transfer

import (
	"fmt"
	"strings"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Largo mínimo de toda justificación de faltante o diferencia.
const minJustificationLen = 5

type CreateTransferRequest struct {
	SourceBranchID *uint                 `json:"source_branch_id"` // solo admin; cajero usa su sucursal
	TargetBranchID uint                  `json:"target_branch_id"`
	Note           string                `json:"note"`
	Items          []TransferItemRequest `json:"items"`
}

type TransferItemRequest struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type TransferResponse struct {
	ID             uint                   `json:"id"`
	Code           string                 `json:"code"`
	SourceBranchID uint                   `json:"source_branch_id"`
	TargetBranchID uint                   `json:"target_branch_id"`
	Status         models.TransferStatus  `json:"status"`
	Note           string                 `json:"note"`
	ShippedByID    *uint                  `json:"shipped_by_id"`
	ConfirmedByID  *uint                  `json:"confirmed_by_id"`
	ShippedAt      *string                `json:"shipped_at"`
	ConfirmedAt    *string                `json:"confirmed_at"`
	Items          []TransferItemResponse `json:"items"`
	CreatedAt      string                 `json:"created_at"`
}

type TransferItemResponse struct {
	ID                     uint             `json:"id"`
	ProductID              uint             `json:"product_id"`
	ProductName            string           `json:"product_name"`
	Quantity               decimal.Decimal  `json:"quantity"`
	ReceivedQuantity       *decimal.Decimal `json:"received_quantity"`
	IssuanceJustification  string           `json:"issuance_justification"`
	ReceptionJustification string           `json:"reception_justification"`
	ReceptionPhotoURL      string           `json:"reception_photo_url"`
}

func toTransferResponse(t models.StockTransfer) TransferResponse {
	items := make([]TransferItemResponse, 0, len(t.Items))
	for _, item := range t.Items {
		items = append(items, TransferItemResponse{
			ID:                     item.ID,
			ProductID:              item.ProductID,
			ProductName:            item.Product.Name,
			Quantity:               item.Quantity,
			ReceivedQuantity:       item.ReceivedQuantity,
			IssuanceJustification:  item.IssuanceJustification,
			ReceptionJustification: item.ReceptionJustification,
			ReceptionPhotoURL:      item.ReceptionPhotoURL,
		})
	}

	resp := TransferResponse{
		ID:             t.ID,
		Code:           t.Code,
		SourceBranchID: t.SourceBranchID,
		TargetBranchID: t.TargetBranchID,
		Status:         t.Status,
		Note:           t.Note,
		ShippedByID:    t.ShippedByID,
		ConfirmedByID:  t.ConfirmedByID,
		Items:          items,
		CreatedAt:      t.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if t.ShippedAt != nil {
		s := t.ShippedAt.Format("2006-01-02 15:04:05")
		resp.ShippedAt = &s
	}
	if t.ConfirmedAt != nil {
		s := t.ConfirmedAt.Format("2006-01-02 15:04:05")
		resp.ConfirmedAt = &s
	}
	return resp
}

func validJustification(s string) bool {
	return len(strings.TrimSpace(s)) >= minJustificationLen
}

// POST /api/transfers
func CreateTransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var body CreateTransferRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		var sourceBranchID uint
		if actor.IsAdmin() {
			if body.SourceBranchID == nil {
				return fiber.NewError(fiber.StatusBadRequest, "source_branch_id es obligatorio")
			}
			sourceBranchID = *body.SourceBranchID
		} else {
			if actor.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
			}
			sourceBranchID = *actor.BranchID
		}

		if body.TargetBranchID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "target_branch_id es obligatorio")
		}
		if body.TargetBranchID == sourceBranchID {
			return fiber.NewError(fiber.StatusBadRequest, "La sucursal de origen y destino no pueden ser la misma")
		}
		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Debe incluir al menos un producto")
		}

		var source, target models.Branch
		if err := database.DB.First(&source, "id = ?", sourceBranchID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Sucursal de origen no encontrada (ID: %d)", sourceBranchID))
		}
		if err := database.DB.First(&target, "id = ?", body.TargetBranchID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Sucursal de destino no encontrada (ID: %d)", body.TargetBranchID))
		}

		items := make([]models.TransferItem, 0, len(body.Items))
		for _, itemReq := range body.Items {
			if !itemReq.Quantity.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("La cantidad del producto %d debe ser mayor a cero", itemReq.ProductID))
			}
			var product models.Product
			if err := database.DB.First(&product, "id = ?", itemReq.ProductID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Producto no encontrado: %d", itemReq.ProductID))
			}
			items = append(items, models.TransferItem{
				ProductID: itemReq.ProductID,
				Quantity:  itemReq.Quantity,
			})
		}

		transfer := models.StockTransfer{
			Code:           "TR-" + strings.ToUpper(uuid.NewString()[:8]),
			SourceBranchID: sourceBranchID,
			TargetBranchID: body.TargetBranchID,
			Status:         models.TransferStatusPending,
			Note:           body.Note,
			Items:          items,
		}

		if err := database.DB.Create(&transfer).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la transferencia")
		}

		if err := database.DB.Preload("Product").Where("transfer_id = ?", transfer.ID).Find(&transfer.Items).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron cargar los productos de la transferencia")
		}

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    &transfer.SourceBranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "stock_transfer",
			EntityID:    transfer.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Transferencia %s creada: %d productos hacia sucursal %d", transfer.Code, len(transfer.Items), transfer.TargetBranchID),
			After:       transfer,
		})

		return c.Status(fiber.StatusCreated).JSON(toTransferResponse(transfer))
	}
}

// GET /api/transfers
// Lista transferencias donde la sucursal es origen o destino.
func ListTransfersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Items.Product").Order("created_at DESC")

		if actor.IsAdmin() {
			if bid := c.QueryInt("branch_id"); bid > 0 {
				q = q.Where("source_branch_id = ? OR target_branch_id = ?", bid, bid)
			}
		} else {
			if actor.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
			}
			q = q.Where("source_branch_id = ? OR target_branch_id = ?", *actor.BranchID, *actor.BranchID)
		}

		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var transfers []models.StockTransfer
		if err := q.Find(&transfers).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las transferencias")
		}

		resp := make([]TransferResponse, 0, len(transfers))
		for _, t := range transfers {
			resp = append(resp, toTransferResponse(t))
		}
		return c.JSON(resp)
	}
}

// GET /api/transfers/:id
func GetTransferHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var transfer models.StockTransfer
		if err := database.DB.Preload("Items.Product").First(&transfer, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Transferencia no encontrada")
		}

		return c.JSON(toTransferResponse(transfer))
	}
}
