package admin_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"tienda-backend/internal/admin"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
	"tienda-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupAdminTest(t *testing.T) (*fiber.App, models.User) {
	t.Helper()
	testutil.SetupDB(t)

	app := testutil.NewApp()
	app.Post("/api/admin/branches", admin.CreateBranchHandler())
	app.Get("/api/admin/branches", admin.ListBranchesHandler())
	app.Get("/api/admin/branches/:id", admin.GetBranchHandler())
	app.Put("/api/admin/branches/:id", admin.UpdateBranchHandler())
	app.Delete("/api/admin/branches/:id", admin.DeleteBranchHandler())
	app.Post("/api/admin/branches/:id/users", admin.CreateBranchUserHandler())
	app.Get("/api/admin/branches/:id/users", admin.ListBranchUsersHandler())

	return app, testutil.CreateUser(t, "admin", models.RoleAdmin, nil)
}

func TestCreateAndUpdateBranch(t *testing.T) {
	app, adm := setupAdminTest(t)

	resp := testutil.DoJSON(t, app, "POST", "/api/admin/branches", adm.ID, fiber.Map{
		"name":    "Centro",
		"address": "Av. Principal 100",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out admin.BranchResponse
	testutil.DecodeJSON(t, resp, &out)
	assert.Equal(t, "Centro", out.Name)
	assert.True(t, out.Active)

	resp = testutil.DoJSON(t, app, "PUT", fmt.Sprintf("/api/admin/branches/%d", out.ID), adm.ID, fiber.Map{
		"active": false,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &out)
	assert.False(t, out.Active)
}

func TestCreateBranchRequiresName(t *testing.T) {
	app, adm := setupAdminTest(t)

	resp := testutil.DoJSON(t, app, "POST", "/api/admin/branches", adm.ID, fiber.Map{
		"name": "   ",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteBranchWithSalesNeedsForce(t *testing.T) {
	app, adm := setupAdminTest(t)
	branch := testutil.CreateBranch(t, "Norte")
	cajero := testutil.CreateUser(t, "ana", models.RoleCajero, &branch.ID)

	s := models.Shift{UserID: cajero.ID, BranchID: branch.ID, InitialCash: decimal.NewFromInt(100), OpenedAt: time.Now()}
	require.NoError(t, database.DB.Create(&s).Error)
	sale := models.Sale{ShiftID: s.ID, BranchID: branch.ID, PaymentMethod: models.PaymentMethodCash, Total: decimal.NewFromInt(50)}
	require.NoError(t, database.DB.Create(&sale).Error)

	resp := testutil.DoJSON(t, app, "DELETE", fmt.Sprintf("/api/admin/branches/%d", branch.ID), adm.ID, nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = testutil.DoJSON(t, app, "DELETE", fmt.Sprintf("/api/admin/branches/%d?force=true", branch.ID), adm.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	var count int64
	database.DB.Model(&models.Sale{}).Where("branch_id = ?", branch.ID).Count(&count)
	assert.Zero(t, count)
	database.DB.Model(&models.Shift{}).Where("branch_id = ?", branch.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCreateBranchUser(t *testing.T) {
	app, adm := setupAdminTest(t)
	branch := testutil.CreateBranch(t, "Norte")

	resp := testutil.DoJSON(t, app, "POST", fmt.Sprintf("/api/admin/branches/%d/users", branch.ID), adm.ID, fiber.Map{
		"name":     "Ana Pérez",
		"email":    "ana@tienda.test",
		"password": "secreta123",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var user models.User
	require.NoError(t, database.DB.Where("email = ?", "ana@tienda.test").First(&user).Error)
	assert.Equal(t, models.RoleCajero, user.Role)
	require.NotNil(t, user.BranchID)
	assert.Equal(t, branch.ID, *user.BranchID)
	assert.NotEqual(t, "secreta123", user.PasswordHash)
}

func TestCreateBranchUserDuplicateEmail(t *testing.T) {
	app, adm := setupAdminTest(t)
	branch := testutil.CreateBranch(t, "Norte")
	testutil.CreateUser(t, "ana", models.RoleCajero, &branch.ID)

	resp := testutil.DoJSON(t, app, "POST", fmt.Sprintf("/api/admin/branches/%d/users", branch.ID), adm.ID, fiber.Map{
		"name":     "Otra Ana",
		"email":    "ana@tienda.test",
		"password": "secreta123",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
