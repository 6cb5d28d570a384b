package featureflag

import (
	"fmt"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

type FeatureFlagResponse struct {
	Key         string `json:"key"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

type UpdateFeatureFlagRequest struct {
	Enabled *bool `json:"enabled"`
}

// GET /api/admin/feature-flags
func ListFeatureFlagsHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var flags []models.FeatureFlag
		if err := database.DB.Order("key").Find(&flags).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los feature flags")
		}

		resp := make([]FeatureFlagResponse, 0, len(flags))
		for _, f := range flags {
			resp = append(resp, FeatureFlagResponse{Key: f.Key, Enabled: f.Enabled, Description: f.Description})
		}
		return c.JSON(resp)
	}
}

// PUT /api/admin/feature-flags/:key
func UpdateFeatureFlagHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Params("key")

		var flag models.FeatureFlag
		if err := database.DB.Where("key = ?", key).First(&flag).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Feature flag no encontrado")
		}

		var body UpdateFeatureFlagRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}
		if body.Enabled == nil {
			return fiber.NewError(fiber.StatusBadRequest, "El campo 'enabled' es obligatorio")
		}

		before := flag
		flag.Enabled = *body.Enabled
		if err := database.DB.Save(&flag).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar el feature flag")
		}

		if actor, err := auth.ActorFromCtx(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      actor.ID,
				UserName:    actor.Name,
				EntityType:  "feature_flag",
				EntityID:    flag.ID,
				Action:      models.AuditActionUpdate,
				Description: fmt.Sprintf("Feature flag %s: enabled=%v", flag.Key, flag.Enabled),
				Before:      before,
				After:       flag,
			})
		}

		return c.JSON(FeatureFlagResponse{Key: flag.Key, Enabled: flag.Enabled, Description: flag.Description})
	}
}
