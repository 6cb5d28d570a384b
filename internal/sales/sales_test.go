package sales_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
	"tienda-backend/internal/sales"
	"tienda-backend/internal/testutil"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type salesFixture struct {
	app      *fiber.App
	branch   models.Branch
	cajero   models.User
	producto models.Product
}

func setupSalesTest(t *testing.T) salesFixture {
	t.Helper()
	testutil.SetupDB(t)

	app := testutil.NewApp()
	app.Post("/api/sales", sales.CreateSaleHandler())
	app.Get("/api/sales", sales.ListSalesHandler())

	branch := testutil.CreateBranch(t, "Centro")
	return salesFixture{
		app:      app,
		branch:   branch,
		cajero:   testutil.CreateUser(t, "ana", models.RoleCajero, &branch.ID),
		producto: testutil.CreateProduct(t, "Yerba 1kg"),
	}
}

func (f salesFixture) openShift(t *testing.T) models.Shift {
	t.Helper()
	s := models.Shift{
		UserID:      f.cajero.ID,
		BranchID:    f.branch.ID,
		InitialCash: decimal.NewFromInt(1000),
		OpenedAt:    time.Now(),
	}
	require.NoError(t, database.DB.Create(&s).Error)
	return s
}

func TestCreateSaleRequiresOpenShift(t *testing.T) {
	f := setupSalesTest(t)

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "cash",
		"items":          []fiber.Map{{"product_id": f.producto.ID, "quantity": 1, "unit_price": 100}},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestCreateSaleDecrementsStock(t *testing.T) {
	f := setupSalesTest(t)
	s := f.openShift(t)
	testutil.SetStock(t, f.producto.ID, f.branch.ID, "10")

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "cash",
		"items":          []fiber.Map{{"product_id": f.producto.ID, "quantity": 2, "unit_price": 150}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out sales.SaleResponse
	testutil.DecodeJSON(t, resp, &out)
	assert.Equal(t, s.ID, out.ShiftID)
	assert.Equal(t, f.branch.ID, out.BranchID)
	assert.True(t, out.Total.Equal(decimal.NewFromInt(300)), "total: %s", out.Total)

	qty := testutil.StockQty(t, f.producto.ID, f.branch.ID)
	assert.True(t, qty.Equal(decimal.NewFromInt(8)), "saldo: %s", qty)
}

func TestMixedSaleBreakdownMustMatchTotal(t *testing.T) {
	f := setupSalesTest(t)
	f.openShift(t)
	testutil.SetStock(t, f.producto.ID, f.branch.ID, "10")

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "mixed",
		"items":          []fiber.Map{{"product_id": f.producto.ID, "quantity": 2, "unit_price": 150}},
		"payment_details": []fiber.Map{
			{"method": "cash", "amount": 100},
			{"method": "card", "amount": 100},
		},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// La venta fallida no toca el stock
	qty := testutil.StockQty(t, f.producto.ID, f.branch.ID)
	assert.True(t, qty.Equal(decimal.NewFromInt(10)), "saldo: %s", qty)
}

func TestMixedSaleWithValidBreakdown(t *testing.T) {
	f := setupSalesTest(t)
	f.openShift(t)
	testutil.SetStock(t, f.producto.ID, f.branch.ID, "10")

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "mixed",
		"items":          []fiber.Map{{"product_id": f.producto.ID, "quantity": 2, "unit_price": 150}},
		"payment_details": []fiber.Map{
			{"method": "cash", "amount": 120},
			{"method": "card", "amount": 180},
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var out sales.SaleResponse
	testutil.DecodeJSON(t, resp, &out)
	require.Len(t, out.PaymentDetails, 2)
}

func TestCreateSaleRejectsUnknownProduct(t *testing.T) {
	f := setupSalesTest(t)
	f.openShift(t)

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "cash",
		"items":          []fiber.Map{{"product_id": 9999, "quantity": 1, "unit_price": 100}},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListSalesByShift(t *testing.T) {
	f := setupSalesTest(t)
	s := f.openShift(t)
	testutil.SetStock(t, f.producto.ID, f.branch.ID, "10")

	resp := testutil.DoJSON(t, f.app, "POST", "/api/sales", f.cajero.ID, fiber.Map{
		"payment_method": "cash",
		"items":          []fiber.Map{{"product_id": f.producto.ID, "quantity": 1, "unit_price": 100}},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = testutil.DoJSON(t, f.app, "GET", fmt.Sprintf("/api/sales?shift_id=%d", s.ID), f.cajero.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []sales.SaleResponse
	testutil.DecodeJSON(t, resp, &out)
	require.Len(t, out, 1)
	assert.Equal(t, s.ID, out[0].ShiftID)
}
