package audit_test

import (
	"net/http"
	"testing"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"
	"tienda-backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteLogDefaultsToNullJSON(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "admin", models.RoleAdmin, nil)

	require.NoError(t, audit.WriteLog(audit.LogOptions{
		UserID:      user.ID,
		UserName:    user.Name,
		EntityType:  "branch",
		EntityID:    1,
		Action:      models.AuditActionCreate,
		Description: "Sucursal creada",
	}))

	var row models.AuditLog
	require.NoError(t, database.DB.First(&row).Error)
	assert.Equal(t, "null", row.BeforeData)
	assert.Equal(t, "null", row.AfterData)
	assert.Equal(t, user.Name, row.UserName)
}

func TestWriteLogSerializesBeforeAfter(t *testing.T) {
	testutil.SetupDB(t)
	user := testutil.CreateUser(t, "admin", models.RoleAdmin, nil)

	before := models.FeatureFlag{Key: models.FlagStockTransfers, Enabled: true}
	after := models.FeatureFlag{Key: models.FlagStockTransfers, Enabled: false}

	require.NoError(t, audit.WriteLog(audit.LogOptions{
		UserID:      user.ID,
		UserName:    user.Name,
		EntityType:  "feature_flag",
		EntityID:    1,
		Action:      models.AuditActionUpdate,
		Description: "Flag apagado",
		Before:      before,
		After:       after,
	}))

	var row models.AuditLog
	require.NoError(t, database.DB.Where("entity_type = ?", "feature_flag").First(&row).Error)
	assert.Contains(t, row.BeforeData, `"Enabled":true`)
	assert.Contains(t, row.AfterData, `"Enabled":false`)
}

func TestListAuditLogsFiltered(t *testing.T) {
	testutil.SetupDB(t)
	admin := testutil.CreateUser(t, "admin", models.RoleAdmin, nil)

	app := testutil.NewApp()
	app.Get("/api/admin/audit-logs", audit.ListAuditLogsHandler())

	for i := 0; i < 3; i++ {
		require.NoError(t, audit.WriteLog(audit.LogOptions{
			UserID:     admin.ID,
			UserName:   admin.Name,
			EntityType: "shift",
			EntityID:   uint(i + 1),
			Action:     models.AuditActionClose,
		}))
	}
	require.NoError(t, audit.WriteLog(audit.LogOptions{
		UserID:     admin.ID,
		UserName:   admin.Name,
		EntityType: "settlement",
		EntityID:   1,
		Action:     models.AuditActionConfirm,
	}))

	resp := testutil.DoJSON(t, app, "GET", "/api/admin/audit-logs?entity_type=shift", admin.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out []models.AuditLog
	testutil.DecodeJSON(t, resp, &out)
	require.Len(t, out, 3)
	for _, row := range out {
		assert.Equal(t, "shift", row.EntityType)
	}

	resp = testutil.DoJSON(t, app, "GET", "/api/admin/audit-logs?entity_type=shift&limit=2", admin.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	testutil.DecodeJSON(t, resp, &out)
	assert.Len(t, out, 2)
}
