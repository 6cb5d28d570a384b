package testutil

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SetupDB abre una base sqlite en memoria, migra el esquema completo y la
// instala como database.DB. Una sola conexión: la base en memoria desaparece
// si el pool abre una segunda.
func SetupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.Branch{},
		&models.User{},
		&models.Product{},
		&models.Stock{},
		&models.StockTransfer{},
		&models.TransferItem{},
		&models.Shift{},
		&models.Sale{},
		&models.SaleItem{},
		&models.PaymentDetail{},
		&models.Settlement{},
		&models.FeatureFlag{},
		&models.AuditLog{},
	))

	require.NoError(t, db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS uq_shifts_usuario_abierto
		ON shifts (user_id) WHERE closed_at IS NULL
	`).Error)

	require.NoError(t, db.Create(&models.FeatureFlag{
		Key:         models.FlagStockTransfers,
		Enabled:     true,
		Description: "Traslados de mercadería entre sucursales",
	}).Error)

	database.DB = db
	return db
}

// NewApp arma una app fiber con el mismo ErrorHandler del servidor y un
// middleware que autentica por el encabezado X-Test-User (ID de usuario),
// cargando rol y sucursal desde la base.
func NewApp() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if e, ok := err.(*fiber.Error); ok {
				return c.Status(e.Code).JSON(fiber.Map{
					"error": e.Message,
				})
			}
			log.Println("Unexpected error:", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Error inesperado del servidor",
			})
		},
	})

	app.Use(func(c *fiber.Ctx) error {
		idStr := c.Get("X-Test-User")
		if idStr == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "Falta el encabezado Authorization")
		}
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		var user models.User
		if err := database.DB.First(&user, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Token inválido o expirado")
		}

		c.Locals(auth.CtxUserIDKey, user.ID)
		c.Locals(auth.CtxUserRoleKey, user.Role)
		c.Locals(auth.CtxBranchIDKey, user.BranchID)
		return c.Next()
	})

	return app
}

// DoJSON ejecuta un request JSON contra la app como el usuario dado.
func DoJSON(t *testing.T, app *fiber.App, method, path string, userID uint, body interface{}) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		req.Header.Set("X-Test-User", strconv.Itoa(int(userID)))
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// DecodeJSON deserializa el cuerpo de la respuesta en out.
func DecodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func CreateBranch(t *testing.T, name string) models.Branch {
	t.Helper()
	b := models.Branch{Name: name, Active: true}
	require.NoError(t, database.DB.Create(&b).Error)
	return b
}

func CreateUser(t *testing.T, name string, role models.UserRole, branchID *uint) models.User {
	t.Helper()
	u := models.User{
		BranchID:     branchID,
		Name:         name,
		Email:        name + "@tienda.test",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, database.DB.Create(&u).Error)
	return u
}

func CreateProduct(t *testing.T, name string) models.Product {
	t.Helper()
	p := models.Product{Name: name, Unit: "unidad", Price: decimal.NewFromInt(100), Active: true}
	require.NoError(t, database.DB.Create(&p).Error)
	return p
}

// SetStock deja el saldo de un producto en una sucursal en un valor exacto.
func SetStock(t *testing.T, productID, branchID uint, qty string) {
	t.Helper()
	q, err := decimal.NewFromString(qty)
	require.NoError(t, err)
	s := models.Stock{ProductID: productID, BranchID: branchID, Quantity: q}
	require.NoError(t, database.DB.Create(&s).Error)
}

// StockQty lee el saldo actual; si la fila no existe devuelve cero.
func StockQty(t *testing.T, productID, branchID uint) decimal.Decimal {
	t.Helper()
	var s models.Stock
	err := database.DB.Where("product_id = ? AND branch_id = ?", productID, branchID).First(&s).Error
	if err == gorm.ErrRecordNotFound {
		return decimal.Zero
	}
	require.NoError(t, err)
	return s.Quantity
}
