package shift

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OpenShiftRequest struct {
	InitialCash decimal.Decimal `json:"initial_cash"`
}

type CloseShiftRequest struct {
	DeclaredAmount    *decimal.Decimal `json:"declared_amount"`
	DiscrepancyReason string           `json:"discrepancy_reason"`
	DiscrepancyNote   string           `json:"discrepancy_note"`
}

type ShiftResponse struct {
	ID                uint             `json:"id"`
	UserID            uint             `json:"user_id"`
	UserName          string           `json:"user_name"`
	BranchID          uint             `json:"branch_id"`
	InitialCash       decimal.Decimal  `json:"initial_cash"`
	OpenedAt          string           `json:"opened_at"`
	ClosedAt          *string          `json:"closed_at"`
	DeclaredAmount    *decimal.Decimal `json:"declared_amount"`
	ExpectedAmount    *decimal.Decimal `json:"expected_amount"`
	Discrepancy       *decimal.Decimal `json:"discrepancy"`
	DiscrepancyReason string           `json:"discrepancy_reason"`
	DiscrepancyNote   string           `json:"discrepancy_note"`
}

func toShiftResponse(s models.Shift) ShiftResponse {
	resp := ShiftResponse{
		ID:                s.ID,
		UserID:            s.UserID,
		UserName:          s.User.Name,
		BranchID:          s.BranchID,
		InitialCash:       s.InitialCash,
		OpenedAt:          s.OpenedAt.Format("2006-01-02 15:04:05"),
		DeclaredAmount:    s.DeclaredAmount,
		ExpectedAmount:    s.ExpectedAmount,
		Discrepancy:       s.Discrepancy,
		DiscrepancyReason: s.DiscrepancyReason,
		DiscrepancyNote:   s.DiscrepancyNote,
	}
	if s.ClosedAt != nil {
		c := s.ClosedAt.Format("2006-01-02 15:04:05")
		resp.ClosedAt = &c
	}
	return resp
}

// cashContribution: cuánto efectivo aporta una venta al arqueo.
// Venta en efectivo: total + ajuste. Venta mixta: solo la porción en efectivo
// del desglose. Tarjeta u otros: cero.
func cashContribution(sale models.Sale) decimal.Decimal {
	switch sale.PaymentMethod {
	case models.PaymentMethodCash:
		return sale.Total.Add(sale.Adjustment)
	case models.PaymentMethodMixed:
		sum := decimal.Zero
		for _, d := range sale.PaymentDetails {
			if d.Method == models.PaymentMethodCash {
				sum = sum.Add(d.Amount)
			}
		}
		return sum
	default:
		return decimal.Zero
	}
}

// expectedCash: efectivo inicial más el aporte de cada venta del turno.
func expectedCash(db *gorm.DB, s models.Shift) (decimal.Decimal, error) {
	var sales []models.Sale
	if err := db.Preload("PaymentDetails").Where("shift_id = ?", s.ID).Find(&sales).Error; err != nil {
		return decimal.Zero, err
	}

	expected := s.InitialCash
	for _, sale := range sales {
		expected = expected.Add(cashContribution(sale))
	}
	return expected, nil
}

func isOpenShiftConflict(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// No todos los drivers traducen a ErrDuplicatedKey; se inspecciona el
	// mensaje como respaldo.
	msg := err.Error()
	return strings.Contains(msg, "uq_shifts_usuario_abierto") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "UNIQUE constraint")
}

// POST /api/shifts/open
func OpenShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		if actor.BranchID == nil {
			return fiber.NewError(fiber.StatusForbidden, "Debe tener una sucursal asignada para abrir un turno")
		}

		var body OpenShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		if body.InitialCash.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "initial_cash no puede ser negativo")
		}

		// Chequeo amistoso; el índice único parcial cierra la ventana
		// entre chequeo y creación.
		var open models.Shift
		if err := database.DB.Where("user_id = ? AND closed_at IS NULL", actor.ID).First(&open).Error; err == nil {
			return fiber.NewError(fiber.StatusConflict, "Ya tiene un turno abierto")
		}

		shift := models.Shift{
			UserID:      actor.ID,
			BranchID:    *actor.BranchID,
			InitialCash: body.InitialCash,
			OpenedAt:    time.Now(),
		}

		if err := database.DB.Create(&shift).Error; err != nil {
			if isOpenShiftConflict(err) {
				return fiber.NewError(fiber.StatusConflict, "Ya tiene un turno abierto")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo abrir el turno")
		}

		shift.User = models.User{ID: actor.ID, Name: actor.Name}

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    actor.BranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "shift",
			EntityID:    shift.ID,
			Action:      models.AuditActionOpen,
			Description: fmt.Sprintf("Turno abierto con efectivo inicial %s", shift.InitialCash.StringFixed(2)),
			After:       shift,
		})

		return c.Status(fiber.StatusCreated).JSON(toShiftResponse(shift))
	}
}

// POST /api/shifts/:id/close
// Calcula el efectivo esperado, registra lo declarado y la diferencia.
// Ninguna diferencia bloquea el cierre: el sistema la expone, no la juzga.
func CloseShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		id := c.Params("id")

		var shift models.Shift
		if err := database.DB.Preload("User").First(&shift, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Turno no encontrado")
		}

		if shift.UserID != actor.ID && !actor.IsAdmin() {
			return fiber.NewError(fiber.StatusForbidden, "Solo puede cerrar su propio turno")
		}
		if shift.ClosedAt != nil {
			return fiber.NewError(fiber.StatusConflict, "El turno ya está cerrado")
		}

		var body CloseShiftRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		if body.DeclaredAmount == nil {
			return fiber.NewError(fiber.StatusBadRequest, "declared_amount es obligatorio")
		}
		if body.DeclaredAmount.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "declared_amount no puede ser negativo")
		}

		expected, err := expectedCash(database.DB, shift)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron sumar las ventas del turno")
		}

		declared := *body.DeclaredAmount
		discrepancy := declared.Sub(expected)
		now := time.Now()

		before := shift

		updates := map[string]interface{}{
			"closed_at":          now,
			"declared_amount":    declared,
			"expected_amount":    expected,
			"discrepancy":        discrepancy,
			"discrepancy_reason": strings.TrimSpace(body.DiscrepancyReason),
			"discrepancy_note":   strings.TrimSpace(body.DiscrepancyNote),
		}
		// Update condicionado por estado: dos cierres simultáneos no pueden
		// pisarse el arqueo.
		res := database.DB.Model(&models.Shift{}).
			Where("id = ? AND closed_at IS NULL", shift.ID).
			Updates(updates)
		if res.Error != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo cerrar el turno")
		}
		if res.RowsAffected == 0 {
			return fiber.NewError(fiber.StatusConflict, "El turno ya está cerrado")
		}

		shift.ClosedAt = &now
		shift.DeclaredAmount = &declared
		shift.ExpectedAmount = &expected
		shift.Discrepancy = &discrepancy
		shift.DiscrepancyReason = strings.TrimSpace(body.DiscrepancyReason)
		shift.DiscrepancyNote = strings.TrimSpace(body.DiscrepancyNote)

		_ = audit.WriteLog(audit.LogOptions{
			BranchID:    &shift.BranchID,
			UserID:      actor.ID,
			UserName:    actor.Name,
			EntityType:  "shift",
			EntityID:    shift.ID,
			Action:      models.AuditActionClose,
			Description: fmt.Sprintf("Turno cerrado: esperado %s, declarado %s, diferencia %s", expected.StringFixed(2), declared.StringFixed(2), discrepancy.StringFixed(2)),
			Before:      before,
			After:       shift,
		})

		return c.JSON(toShiftResponse(shift))
	}
}

// GET /api/shifts/current
// Turno abierto del usuario autenticado, si existe.
func CurrentShiftHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var shift models.Shift
		if err := database.DB.Preload("User").
			Where("user_id = ? AND closed_at IS NULL", actor.ID).
			First(&shift).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "No tiene un turno abierto")
		}

		return c.JSON(toShiftResponse(shift))
	}
}

// GET /api/shifts
// Cajero: sus propios turnos. Admin: por sucursal (branch_id) o todos.
func ListShiftsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		q := database.DB.Preload("User").Order("opened_at DESC")

		if actor.IsAdmin() {
			if bid := c.QueryInt("branch_id"); bid > 0 {
				q = q.Where("branch_id = ?", bid)
			}
		} else {
			q = q.Where("user_id = ?", actor.ID)
		}

		var shifts []models.Shift
		if err := q.Find(&shifts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los turnos")
		}

		resp := make([]ShiftResponse, 0, len(shifts))
		for _, s := range shifts {
			resp = append(resp, toShiftResponse(s))
		}
		return c.JSON(resp)
	}
}
