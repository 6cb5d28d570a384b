package featureflag

import (
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
)

// IsEnabled: consulta el estado de un módulo activable.
// Un flag inexistente cuenta como deshabilitado.
func IsEnabled(key string) bool {
	var flag models.FeatureFlag
	if err := database.DB.Where("key = ?", key).First(&flag).Error; err != nil {
		return false
	}
	return flag.Enabled
}
