package stock

import (
	"fmt"

	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type StockResponse struct {
	ID          uint            `json:"id"`
	BranchID    uint            `json:"branch_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name"`
	StockCode   string          `json:"stock_code"`
	Unit        string          `json:"unit"`
	Quantity    decimal.Decimal `json:"quantity"`
	MinStock    decimal.Decimal `json:"min_stock"`
	BelowMin    bool            `json:"below_min"`
}

type UpdateMinStockRequest struct {
	MinStock decimal.Decimal `json:"min_stock"`
}

// branch_id para consultas: cajero -> su sucursal, admin -> query obligatoria
func resolveBranchIDFromQuery(c *fiber.Ctx, actor auth.ActingUser) (uint, error) {
	if !actor.IsAdmin() {
		if actor.BranchID == nil {
			return 0, fiber.NewError(fiber.StatusForbidden, "No tiene una sucursal asignada")
		}
		return *actor.BranchID, nil
	}

	bidStr := c.Query("branch_id")
	if bidStr == "" {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id es obligatorio")
	}
	var bid uint
	if _, err := fmt.Sscan(bidStr, &bid); err != nil || bid == 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "branch_id inválido")
	}
	return bid, nil
}

// GET /api/stocks
func ListStocksHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		branchID, err := resolveBranchIDFromQuery(c, actor)
		if err != nil {
			return err
		}

		var rows []models.Stock
		if err := database.DB.
			Preload("Product").
			Where("branch_id = ?", branchID).
			Order("product_id").
			Find(&rows).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo listar el stock")
		}

		onlyBelowMin := c.QueryBool("below_min", false)

		resp := make([]StockResponse, 0, len(rows))
		for _, r := range rows {
			belowMin := r.Quantity.LessThan(r.MinStock)
			if onlyBelowMin && !belowMin {
				continue
			}
			resp = append(resp, StockResponse{
				ID:          r.ID,
				BranchID:    r.BranchID,
				ProductID:   r.ProductID,
				ProductName: r.Product.Name,
				StockCode:   r.Product.StockCode,
				Unit:        r.Product.Unit,
				Quantity:    r.Quantity,
				MinStock:    r.MinStock,
				BelowMin:    belowMin,
			})
		}

		return c.JSON(resp)
	}
}

// PUT /api/stocks/:id/min-stock
// Mantenimiento del umbral de reposición; no toca la cantidad.
func UpdateMinStockHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := auth.ActorFromCtx(c)
		if err != nil {
			return err
		}

		id := c.Params("id")

		var row models.Stock
		if err := database.DB.Preload("Product").First(&row, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Fila de stock no encontrada")
		}

		if !actor.IsAdmin() {
			if actor.BranchID == nil || *actor.BranchID != row.BranchID {
				return fiber.NewError(fiber.StatusForbidden, "No puede modificar stock de otra sucursal")
			}
		}

		var body UpdateMinStockRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		if body.MinStock.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "min_stock no puede ser negativo")
		}

		if err := database.DB.Model(&row).Update("min_stock", body.MinStock).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el stock mínimo")
		}

		return c.JSON(StockResponse{
			ID:          row.ID,
			BranchID:    row.BranchID,
			ProductID:   row.ProductID,
			ProductName: row.Product.Name,
			StockCode:   row.Product.StockCode,
			Unit:        row.Product.Unit,
			Quantity:    row.Quantity,
			MinStock:    body.MinStock,
			BelowMin:    row.Quantity.LessThan(body.MinStock),
		})
	}
}
