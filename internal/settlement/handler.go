package settlement

import (
	"fmt"
	"time"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type CreateSettlementRequest struct {
	TargetBranchID uint            `json:"target_branch_id"`
	Amount         decimal.Decimal `json:"amount"`
	Notes          string          `json:"notes"`
}

type SettlementResponse struct {
	ID             uint                    `json:"id"`
	SourceBranchID uint                    `json:"source_branch_id"`
	TargetBranchID uint                    `json:"target_branch_id"`
	Amount         decimal.Decimal         `json:"amount"`
	Notes          string                  `json:"notes"`
	Status         models.SettlementStatus `json:"status"`
	CreatedByID    uint                    `json:"created_by_id"`
	ConfirmedByID  *uint                   `json:"confirmed_by_id"`
	ConfirmedAt    *string                 `json:"confirmed_at"`
	CreatedAt      string                  `json:"created_at"`
}

func toSettlementResponse(s models.Settlement) SettlementResponse {
	resp := SettlementResponse{
		ID:             s.ID,
		SourceBranchID: s.SourceBranchID,
		TargetBranchID: s.TargetBranchID,
		Amount:         s.Amount,
		Notes:          s.Notes,
		Status:         s.Status,
		CreatedByID:    s.CreatedByID,
		ConfirmedByID:  s.ConfirmedByID,
		CreatedAt:      s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if s.ConfirmedAt != nil {
		c := s.ConfirmedAt.Format("2006-01-02 15:04:05")
		resp.ConfirmedAt = &c
	}
	return resp
}

// POST /api/settlements
// La sucursal de origen es siempre la del creador: nadie rinde en nombre de otra.
func CreateSettlementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if actor.BranchID == nil {
			return fiber.NewError(fiber.StatusForbidden, "Debe tener una sucursal asignada para crear una rendición")
		}

		var body CreateSettlementRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		if !body.Amount.IsPositive() {
			return fiber.NewError(fiber.StatusBadRequest, "El monto debe ser mayor a cero")
		}
		if body.TargetBranchID == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "target_branch_id es obligatorio")
		}
		if body.TargetBranchID == *actor.BranchID {
			return fiber.NewError(fiber.StatusBadRequest, "La sucursal de destino no puede ser la propia")
		}

		var target models.Branch
		if err := database.DB.First(&target, "id = ?", body.TargetBranchID).Error; err != nil {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Sucursal de destino no encontrada (ID: %d)", body.TargetBranchID))
		}

		settlement := models.Settlement{
			SourceBranchID: *actor.BranchID,
			TargetBranchID: body.TargetBranchID,
			Amount:         body.Amount,
			Notes:          body.Notes,
			Status:         models.SettlementStatusPending,
			CreatedByID:    actor.ID,
		}

		if err := database.DB.Create(&settlement).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la rendición")
		}

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    actor.BranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "settlement",
			EntityID:    settlement.ID,
			Action:      models.AuditActionCreate,
			Description: fmt.Sprintf("Rendición de %s hacia sucursal %d", settlement.Amount.StringFixed(2), settlement.TargetBranchID),
			After:       settlement,
		})

		return c.Status(fiber.StatusCreated).JSON(toSettlementResponse(settlement))
	}
}

// GET /api/settlements?direction=incoming|outgoing
func ListSettlementsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var branchID uint
		if actor.IsAdmin() {
			branchID = uint(c.QueryInt("branch_id"))
		} else {
			if actor.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
			}
			branchID = *actor.BranchID
		}

		q := database.DB.Model(&models.Settlement{}).Order("created_at DESC")

		direction := c.Query("direction")
		switch {
		case branchID == 0:
			// admin sin filtro: todas
		case direction == "incoming":
			q = q.Where("target_branch_id = ?", branchID)
		case direction == "outgoing":
			q = q.Where("source_branch_id = ?", branchID)
		case direction == "":
			q = q.Where("source_branch_id = ? OR target_branch_id = ?", branchID, branchID)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "direction inválido (incoming|outgoing)")
		}

		if status := c.Query("status"); status != "" {
			q = q.Where("status = ?", status)
		}

		var settlements []models.Settlement
		if err := q.Find(&settlements).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las rendiciones")
		}

		resp := make([]SettlementResponse, 0, len(settlements))
		for _, s := range settlements {
			resp = append(resp, toSettlementResponse(s))
		}
		return c.JSON(resp)
	}
}

// resolveSettlement: transición pending -> confirmed|rejected, una sola vez.
// Solo el destino (o un admin) puede resolver el reclamo.
func resolveSettlement(c *fiber.Ctx, newStatus models.SettlementStatus, action models.AuditAction) error {
	actor, err := auth.ActorFromCtx(c)
	if err != nil {
		return err
	}

	id := c.Params("id")

	var settlement models.Settlement
	if err := database.DB.First(&settlement, "id = ?", id).Error; err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Rendición no encontrada")
	}

	if !actor.IsAdmin() {
		if actor.BranchID == nil || *actor.BranchID != settlement.TargetBranchID {
			return fiber.NewError(fiber.StatusForbidden, "Solo la sucursal de destino puede resolver la rendición")
		}
	}

	if settlement.Status != models.SettlementStatusPending {
		return fiber.NewError(fiber.StatusConflict, "La rendición ya fue resuelta")
	}

	before := settlement
	now := time.Now()

	// Update condicionado por estado: la resolución es terminal y única.
	res := database.DB.Model(&models.Settlement{}).
		Where("id = ? AND status = ?", settlement.ID, models.SettlementStatusPending).
		Updates(map[string]interface{}{
			"status":          newStatus,
			"confirmed_by_id": actor.ID,
			"confirmed_at":    now,
		})
	if res.Error != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "No se pudo resolver la rendición")
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusConflict, "La rendición ya fue resuelta")
	}

	settlement.Status = newStatus
	settlement.ConfirmedByID = &actor.ID
	settlement.ConfirmedAt = &now

	_ = audit.WriteLog(audit.LogOptions{
		BranchID:    &settlement.TargetBranchID,
		UserID:      actor.ID,
		UserName:    actor.Name,
		EntityType:  "settlement",
		EntityID:    settlement.ID,
		Action:      action,
		Description: fmt.Sprintf("Rendición %d: %s", settlement.ID, newStatus),
		Before:      before,
		After:       settlement,
	})

	return c.JSON(toSettlementResponse(settlement))
}

// POST /api/settlements/:id/confirm
func ConfirmSettlementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return resolveSettlement(c, models.SettlementStatusConfirmed, models.AuditActionConfirm)
	}
}

// POST /api/settlements/:id/reject
// El rechazo es terminal y no revierte ningún saldo: es un registro, no un
// movimiento contable.
func RejectSettlementHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return resolveSettlement(c, models.SettlementStatusRejected, models.AuditActionReject)
	}
}
