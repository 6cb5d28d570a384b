package audit

import (
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GET /api/admin/audit-logs
// Filtros opcionales: entity_type, entity_id, branch_id, limit (default 100)
func ListAuditLogsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := database.DB.Model(&models.AuditLog{}).Order("created_at DESC")

		if et := c.Query("entity_type"); et != "" {
			q = q.Where("entity_type = ?", et)
		}
		if eid := c.QueryInt("entity_id"); eid > 0 {
			q = q.Where("entity_id = ?", eid)
		}
		if bid := c.QueryInt("branch_id"); bid > 0 {
			q = q.Where("branch_id = ?", bid)
		}

		limit := c.QueryInt("limit", 100)
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		var logs []models.AuditLog
		if err := q.Limit(limit).Find(&logs).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los registros de auditoría")
		}

		return c.JSON(logs)
	}
}
