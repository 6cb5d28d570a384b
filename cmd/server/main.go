package main

import (
	"log"
	"strings"

	"tienda-backend/internal/admin"
	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/config"
	"tienda-backend/internal/database"
	"tienda-backend/internal/featureflag"
	"tienda-backend/internal/models"
	"tienda-backend/internal/report"
	"tienda-backend/internal/sales"
	"tienda-backend/internal/settlement"
	"tienda-backend/internal/shift"
	"tienda-backend/internal/stock"
	"tienda-backend/internal/transfer"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg := config.Load()
	database.Init(cfg)

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

	corsOrigins := strings.Split(cfg.CORSOrigins, ",")
	for i := range corsOrigins {
		corsOrigins[i] = strings.TrimSpace(corsOrigins[i])
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(corsOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-admin", auth.RegisterAdminHandler(cfg))
	api.Post("/auth/login", auth.LoginHandler(cfg))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(cfg))

	protected.Get("/auth/me", auth.MeHandler())

	// Admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleAdmin))

	// Gestión de sucursales
	adminRoutes.Post("/branches", admin.CreateBranchHandler())
	adminRoutes.Get("/branches", admin.ListBranchesHandler())
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler())
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler())
	adminRoutes.Delete("/branches/:id", admin.DeleteBranchHandler())
	adminRoutes.Post("/branches/:id/users", admin.CreateBranchUserHandler())
	adminRoutes.Get("/branches/:id/users", admin.ListBranchUsersHandler())

	// Gestión de productos
	adminRoutes.Post("/products", stock.CreateProductHandler())
	adminRoutes.Put("/products/:id", stock.UpdateProductHandler())

	// Interruptores de módulos
	adminRoutes.Get("/feature-flags", featureflag.ListFeatureFlagsHandler())
	adminRoutes.Put("/feature-flags/:key", featureflag.UpdateFeatureFlagHandler())

	// Reportes
	adminRoutes.Get("/reports/shifts", report.MonthlyShiftReportHandler())

	// Audit logs
	adminRoutes.Get("/audit-logs", audit.ListAuditLogsHandler())

	// Rutas comunes (requieren auth)

	// Productos y stock
	protected.Get("/products", stock.ListProductsHandler())
	protected.Get("/stocks", stock.ListStocksHandler())
	protected.Put("/stocks/:id/min-stock", stock.UpdateMinStockHandler())

	// Transferencias entre sucursales
	protected.Post("/transfers", transfer.CreateTransferHandler())
	protected.Get("/transfers", transfer.ListTransfersHandler())
	protected.Get("/transfers/:id", transfer.GetTransferHandler())
	protected.Post("/transfers/:id/emit", transfer.EmitTransferHandler())
	protected.Post("/transfers/:id/receive", transfer.ReceiveTransferHandler())

	// Turnos de caja
	protected.Post("/shifts/open", shift.OpenShiftHandler())
	protected.Get("/shifts/current", shift.CurrentShiftHandler())
	protected.Get("/shifts", shift.ListShiftsHandler())
	protected.Post("/shifts/:id/close", shift.CloseShiftHandler())

	// Ventas
	protected.Post("/sales", sales.CreateSaleHandler())
	protected.Get("/sales", sales.ListSalesHandler())

	// Rendiciones entre sucursales
	protected.Post("/settlements", settlement.CreateSettlementHandler())
	protected.Get("/settlements", settlement.ListSettlementsHandler())
	protected.Post("/settlements/:id/confirm", settlement.ConfirmSettlementHandler())
	protected.Post("/settlements/:id/reject", settlement.RejectSettlementHandler())

	log.Println("Servidor escuchando en el puerto", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}
