package stock

import (
	"strings"

	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

type ProductResponse struct {
	ID        uint            `json:"id"`
	Name      string          `json:"name"`
	StockCode string          `json:"stock_code"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
	Active    bool            `json:"active"`
}

type CreateProductRequest struct {
	Name      string          `json:"name"`
	StockCode string          `json:"stock_code"`
	Unit      string          `json:"unit"`
	Price     decimal.Decimal `json:"price"`
}

type UpdateProductRequest struct {
	Name      *string          `json:"name"`
	StockCode *string          `json:"stock_code"`
	Unit      *string          `json:"unit"`
	Price     *decimal.Decimal `json:"price"`
	Active    *bool            `json:"active"`
}

func toProductResponse(p models.Product) ProductResponse {
	return ProductResponse{
		ID:        p.ID,
		Name:      p.Name,
		StockCode: p.StockCode,
		Unit:      p.Unit,
		Price:     p.Price,
		Active:    p.Active,
	}
}

// GET /api/products
func ListProductsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var products []models.Product
		if err := database.DB.Order("name").Find(&products).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los productos")
		}

		resp := make([]ProductResponse, 0, len(products))
		for _, p := range products {
			resp = append(resp, toProductResponse(p))
		}
		return c.JSON(resp)
	}
}

// POST /api/admin/products
func CreateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre del producto es obligatorio")
		}
		if body.Price.IsNegative() {
			return fiber.NewError(fiber.StatusBadRequest, "El precio no puede ser negativo")
		}

		product := models.Product{
			Name:      body.Name,
			StockCode: strings.TrimSpace(body.StockCode),
			Unit:      strings.TrimSpace(body.Unit),
			Price:     body.Price,
			Active:    true,
		}
		if err := database.DB.Create(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el producto")
		}

		return c.Status(fiber.StatusCreated).JSON(toProductResponse(product))
	}
}

// PUT /api/admin/products/:id
func UpdateProductHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var product models.Product
		if err := database.DB.First(&product, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Producto no encontrado")
		}

		var body UpdateProductRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre del producto no puede estar vacío")
			}
			product.Name = name
		}
		if body.StockCode != nil {
			product.StockCode = strings.TrimSpace(*body.StockCode)
		}
		if body.Unit != nil {
			product.Unit = strings.TrimSpace(*body.Unit)
		}
		if body.Price != nil {
			if body.Price.IsNegative() {
				return fiber.NewError(fiber.StatusBadRequest, "El precio no puede ser negativo")
			}
			product.Price = *body.Price
		}
		if body.Active != nil {
			product.Active = *body.Active
		}

		if err := database.DB.Save(&product).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el producto")
		}

		return c.JSON(toProductResponse(product))
	}
}
