package shift_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
	"tienda-backend/internal/shift"
	"tienda-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type shiftFixture struct {
	app    *fiber.App
	branch models.Branch
	cajero models.User
	admin  models.User
}

func setupShiftTest(t *testing.T) shiftFixture {
	t.Helper()
	testutil.SetupDB(t)

	app := testutil.NewApp()
	app.Post("/api/shifts/open", shift.OpenShiftHandler())
	app.Get("/api/shifts/current", shift.CurrentShiftHandler())
	app.Get("/api/shifts", shift.ListShiftsHandler())
	app.Post("/api/shifts/:id/close", shift.CloseShiftHandler())

	branch := testutil.CreateBranch(t, "Centro")
	return shiftFixture{
		app:    app,
		branch: branch,
		cajero: testutil.CreateUser(t, "ana", models.RoleCajero, &branch.ID),
		admin:  testutil.CreateUser(t, "admin", models.RoleAdmin, nil),
	}
}

func (f shiftFixture) openShift(t *testing.T, initialCash int) shift.ShiftResponse {
	t.Helper()
	resp := testutil.DoJSON(t, f.app, "POST", "/api/shifts/open", f.cajero.ID, fiber.Map{
		"initial_cash": initialCash,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out shift.ShiftResponse
	testutil.DecodeJSON(t, resp, &out)
	return out
}

func addSale(t *testing.T, shiftID, branchID uint, method models.PaymentMethod, total int, details []models.PaymentDetail) {
	t.Helper()
	sale := models.Sale{
		ShiftID:        shiftID,
		BranchID:       branchID,
		PaymentMethod:  method,
		Total:          decimal.NewFromInt(int64(total)),
		PaymentDetails: details,
	}
	require.NoError(t, database.DB.Create(&sale).Error)
}

func TestOpenShift(t *testing.T) {
	f := setupShiftTest(t)

	s := f.openShift(t, 1000)
	assert.Equal(t, f.cajero.ID, s.UserID)
	assert.Equal(t, f.branch.ID, s.BranchID)
	assert.True(t, s.InitialCash.Equal(decimal.NewFromInt(1000)))
	assert.Nil(t, s.ClosedAt)
}

func TestOpenSecondShiftConflicts(t *testing.T) {
	f := setupShiftTest(t)
	f.openShift(t, 1000)

	resp := testutil.DoJSON(t, f.app, "POST", "/api/shifts/open", f.cajero.ID, fiber.Map{
		"initial_cash": 500,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCloseShiftComputesExpectedAndDiscrepancy(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)

	// Efectivo: 500. Mixta: 200 en efectivo + 300 en tarjeta. Tarjeta: 400.
	addSale(t, s.ID, f.branch.ID, models.PaymentMethodCash, 500, nil)
	addSale(t, s.ID, f.branch.ID, models.PaymentMethodMixed, 500, []models.PaymentDetail{
		{Method: models.PaymentMethodCash, Amount: decimal.NewFromInt(200)},
		{Method: models.PaymentMethodCard, Amount: decimal.NewFromInt(300)},
	})
	addSale(t, s.ID, f.branch.ID, models.PaymentMethodCard, 400, nil)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount":    1800,
		"discrepancy_reason": "Propina en caja",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out shift.ShiftResponse
	testutil.DecodeJSON(t, resp, &out)
	require.NotNil(t, out.ExpectedAmount)
	require.NotNil(t, out.Discrepancy)
	assert.True(t, out.ExpectedAmount.Equal(decimal.NewFromInt(1700)), "esperado: %s", out.ExpectedAmount)
	assert.True(t, out.Discrepancy.Equal(decimal.NewFromInt(100)), "diferencia: %s", out.Discrepancy)
	assert.Equal(t, "Propina en caja", out.DiscrepancyReason)
	assert.NotNil(t, out.ClosedAt)

	// El cierre queda asentado en la auditoría
	var logs int64
	database.DB.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "shift", s.ID, models.AuditActionClose).
		Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestSecondClosePreservesFirstReconciliation(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)
	addSale(t, s.ID, f.branch.ID, models.PaymentMethodCash, 500, nil)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 1600,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 9999,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// El segundo intento no pisa el arqueo del primero
	var reloaded models.Shift
	require.NoError(t, database.DB.First(&reloaded, "id = ?", s.ID).Error)
	require.NotNil(t, reloaded.DeclaredAmount)
	require.NotNil(t, reloaded.Discrepancy)
	assert.True(t, reloaded.DeclaredAmount.Equal(decimal.NewFromInt(1600)), "declarado: %s", reloaded.DeclaredAmount)
	assert.True(t, reloaded.Discrepancy.Equal(decimal.NewFromInt(100)), "diferencia: %s", reloaded.Discrepancy)

	// Y deja un solo registro de cierre en la auditoría
	var logs int64
	database.DB.Model(&models.AuditLog{}).
		Where("entity_type = ? AND entity_id = ? AND action = ?", "shift", s.ID, models.AuditActionClose).
		Count(&logs)
	assert.EqualValues(t, 1, logs)
}

func TestCloseShiftShortageDoesNotBlock(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)
	addSale(t, s.ID, f.branch.ID, models.PaymentMethodCash, 500, nil)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 1300,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out shift.ShiftResponse
	testutil.DecodeJSON(t, resp, &out)
	require.NotNil(t, out.Discrepancy)
	assert.True(t, out.Discrepancy.Equal(decimal.NewFromInt(-200)), "diferencia: %s", out.Discrepancy)
}

func TestCloseShiftRequiresDeclaredAmount(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCloseClosedShiftConflicts(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 1000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 1000,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCloseOtherUsersShiftForbidden(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)
	otro := testutil.CreateUser(t, "bruno", models.RoleCajero, &f.branch.ID)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), otro.ID, fiber.Map{
		"declared_amount": 1000,
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Un admin sí puede cerrarlo
	resp = testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.admin.ID, fiber.Map{
		"declared_amount": 1000,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestReopenAfterCloseAllowed(t *testing.T) {
	f := setupShiftTest(t)
	s := f.openShift(t, 1000)

	resp := testutil.DoJSON(t, f.app, "POST", fmt.Sprintf("/api/shifts/%d/close", s.ID), f.cajero.ID, fiber.Map{
		"declared_amount": 1000,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Cerrado el anterior, el índice parcial deja abrir uno nuevo
	f.openShift(t, 500)
}

func TestCurrentShift(t *testing.T) {
	f := setupShiftTest(t)

	resp := testutil.DoJSON(t, f.app, "GET", "/api/shifts/current", f.cajero.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	s := f.openShift(t, 1000)

	resp = testutil.DoJSON(t, f.app, "GET", "/api/shifts/current", f.cajero.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out shift.ShiftResponse
	testutil.DecodeJSON(t, resp, &out)
	assert.Equal(t, s.ID, out.ID)
}

func TestListShiftsScopedToOwner(t *testing.T) {
	f := setupShiftTest(t)
	otro := testutil.CreateUser(t, "bruno", models.RoleCajero, &f.branch.ID)

	f.openShift(t, 1000)
	ajeno := models.Shift{UserID: otro.ID, BranchID: f.branch.ID, InitialCash: decimal.NewFromInt(200), OpenedAt: time.Now()}
	require.NoError(t, database.DB.Create(&ajeno).Error)

	resp := testutil.DoJSON(t, f.app, "GET", "/api/shifts", f.cajero.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []shift.ShiftResponse
	testutil.DecodeJSON(t, resp, &out)
	require.Len(t, out, 1)
	assert.Equal(t, f.cajero.ID, out[0].UserID)

	// El admin ve todos
	resp = testutil.DoJSON(t, f.app, "GET", "/api/shifts", f.admin.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &out)
	assert.Len(t, out, 2)
}
