package sales

import (
	"fmt"

	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
	"tienda-backend/internal/stock"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreateSaleRequest struct {
	PaymentMethod  models.PaymentMethod   `json:"payment_method"`
	Adjustment     decimal.Decimal        `json:"adjustment"`
	Items          []SaleItemRequest      `json:"items"`
	PaymentDetails []PaymentDetailRequest `json:"payment_details"` // solo para pago mixto
}

type SaleItemRequest struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PaymentDetailRequest struct {
	Method models.PaymentMethod `json:"method"`
	Amount decimal.Decimal      `json:"amount"`
}

type SaleResponse struct {
	ID             uint                    `json:"id"`
	ShiftID        uint                    `json:"shift_id"`
	BranchID       uint                    `json:"branch_id"`
	PaymentMethod  models.PaymentMethod    `json:"payment_method"`
	Total          decimal.Decimal         `json:"total"`
	Adjustment     decimal.Decimal         `json:"adjustment"`
	Items          []SaleItemResponse      `json:"items"`
	PaymentDetails []PaymentDetailResponse `json:"payment_details"`
	CreatedAt      string                  `json:"created_at"`
}

type SaleItemResponse struct {
	ProductID uint            `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PaymentDetailResponse struct {
	Method models.PaymentMethod `json:"method"`
	Amount decimal.Decimal      `json:"amount"`
}

func toSaleResponse(s models.Sale) SaleResponse {
	items := make([]SaleItemResponse, 0, len(s.Items))
	for _, i := range s.Items {
		items = append(items, SaleItemResponse{ProductID: i.ProductID, Quantity: i.Quantity, UnitPrice: i.UnitPrice})
	}
	details := make([]PaymentDetailResponse, 0, len(s.PaymentDetails))
	for _, d := range s.PaymentDetails {
		details = append(details, PaymentDetailResponse{Method: d.Method, Amount: d.Amount})
	}
	return SaleResponse{
		ID:             s.ID,
		ShiftID:        s.ShiftID,
		BranchID:       s.BranchID,
		PaymentMethod:  s.PaymentMethod,
		Total:          s.Total,
		Adjustment:     s.Adjustment,
		Items:          items,
		PaymentDetails: details,
		CreatedAt:      s.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// POST /api/sales
// Registra una venta sobre el turno abierto del cajero. El descuento de stock
// pasa por el mismo incremento atómico del libro que usan las transferencias.
func CreateSaleHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		var openShift models.Shift
		if err := database.DB.Where("user_id = ? AND closed_at IS NULL", actor.ID).First(&openShift).Error; err != nil {
			return fiber.NewError(fiber.StatusConflict, "No tiene un turno abierto")
		}

		var body CreateSaleRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		switch body.PaymentMethod {
		case models.PaymentMethodCash, models.PaymentMethodCard, models.PaymentMethodMixed:
			// ok
		default:
			return fiber.NewError(fiber.StatusBadRequest, "payment_method inválido (cash|card|mixed)")
		}

		if len(body.Items) == 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Debe incluir al menos un producto")
		}

		total := decimal.Zero
		items := make([]models.SaleItem, 0, len(body.Items))
		for _, itemReq := range body.Items {
			if !itemReq.Quantity.IsPositive() {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("La cantidad del producto %d debe ser mayor a cero", itemReq.ProductID))
			}
			if itemReq.UnitPrice.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("El precio unitario del producto %d no puede ser negativo", itemReq.ProductID))
			}
			var product models.Product
			if err := database.DB.First(&product, "id = ?", itemReq.ProductID).Error; err != nil {
				return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("Producto no encontrado: %d", itemReq.ProductID))
			}
			total = total.Add(itemReq.Quantity.Mul(itemReq.UnitPrice))
			items = append(items, models.SaleItem{
				ProductID: itemReq.ProductID,
				Quantity:  itemReq.Quantity,
				UnitPrice: itemReq.UnitPrice,
			})
		}

		var details []models.PaymentDetail
		if body.PaymentMethod == models.PaymentMethodMixed {
			if len(body.PaymentDetails) == 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Una venta mixta requiere payment_details")
			}
			sum := decimal.Zero
			for _, d := range body.PaymentDetails {
				if d.Method != models.PaymentMethodCash && d.Method != models.PaymentMethodCard {
					return fiber.NewError(fiber.StatusBadRequest, "Método inválido en payment_details (cash|card)")
				}
				if !d.Amount.IsPositive() {
					return fiber.NewError(fiber.StatusBadRequest, "Los montos de payment_details deben ser mayores a cero")
				}
				sum = sum.Add(d.Amount)
				details = append(details, models.PaymentDetail{Method: d.Method, Amount: d.Amount})
			}
			if !sum.Equal(total.Add(body.Adjustment)) {
				return fiber.NewError(fiber.StatusBadRequest,
					fmt.Sprintf("El desglose de pagos (%s) no coincide con el total de la venta (%s)",
						sum.StringFixed(2), total.Add(body.Adjustment).StringFixed(2)))
			}
		}

		sale := models.Sale{
			ShiftID:        openShift.ID,
			BranchID:       openShift.BranchID,
			PaymentMethod:  body.PaymentMethod,
			Total:          total,
			Adjustment:     body.Adjustment,
			Items:          items,
			PaymentDetails: details,
		}

		err = database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&sale).Error; err != nil {
				return err
			}
			for _, item := range sale.Items {
				if err := stock.Adjust(tx, item.ProductID, sale.BranchID, item.Quantity.Neg()); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo registrar la venta")
		}

		return c.Status(fiber.StatusCreated).JSON(toSaleResponse(sale))
	}
}

// GET /api/sales
// Filtros: shift_id, o la sucursal propia (admin puede pasar branch_id).
func ListSalesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		q := database.DB.Preload("Items").Preload("PaymentDetails").Order("created_at DESC")

		if sid := c.QueryInt("shift_id"); sid > 0 {
			q = q.Where("shift_id = ?", sid)
		} else if actor.IsAdmin() {
			if bid := c.QueryInt("branch_id"); bid > 0 {
				q = q.Where("branch_id = ?", bid)
			}
		} else {
			if actor.BranchID == nil {
				return fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
			}
			q = q.Where("branch_id = ?", *actor.BranchID)
		}

		var salesRows []models.Sale
		if err := q.Find(&salesRows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las ventas")
		}

		resp := make([]SaleResponse, 0, len(salesRows))
		for _, s := range salesRows {
			resp = append(resp, toSaleResponse(s))
		}
		return c.JSON(resp)
	}
}
