package featureflag_test

import (
	"net/http"
	"testing"

	"tienda-backend/internal/featureflag"
	"tienda-backend/internal/models"
	"tienda-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsEnabled(t *testing.T) {
	testutil.SetupDB(t)

	assert.True(t, featureflag.IsEnabled(models.FlagStockTransfers))

	// Un flag desconocido cuenta como apagado
	assert.False(t, featureflag.IsEnabled("no_existe"))
}

func TestUpdateFeatureFlag(t *testing.T) {
	testutil.SetupDB(t)
	admin := testutil.CreateUser(t, "admin", models.RoleAdmin, nil)

	app := testutil.NewApp()
	app.Put("/api/admin/feature-flags/:key", featureflag.UpdateFeatureFlagHandler())

	resp := testutil.DoJSON(t, app, "PUT", "/api/admin/feature-flags/"+models.FlagStockTransfers, admin.ID, fiber.Map{
		"enabled": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.False(t, featureflag.IsEnabled(models.FlagStockTransfers))
}

func TestUpdateUnknownFlagNotFound(t *testing.T) {
	testutil.SetupDB(t)
	admin := testutil.CreateUser(t, "admin", models.RoleAdmin, nil)

	app := testutil.NewApp()
	app.Put("/api/admin/feature-flags/:key", featureflag.UpdateFeatureFlagHandler())

	resp := testutil.DoJSON(t, app, "PUT", "/api/admin/feature-flags/no_existe", admin.ID, fiber.Map{
		"enabled": true,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
