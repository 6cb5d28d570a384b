package report

import (
	"fmt"
	"time"

	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// GET /api/admin/reports/shifts?month=2006-01&branch_id=1
// Exporta a XLSX los cierres de turno del mes: esperado, declarado y
// diferencia por turno, con totales al pie.
func MonthlyShiftReportHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		monthParam := c.Query("month")
		if monthParam == "" {
			monthParam = time.Now().Format("2006-01")
		}

		monthStart, err := time.Parse("2006-01", monthParam)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "month inválido, use el formato AAAA-MM")
		}
		monthEnd := monthStart.AddDate(0, 1, 0)

		q := database.DB.Preload("User").
			Where("closed_at IS NOT NULL AND closed_at >= ? AND closed_at < ?", monthStart, monthEnd).
			Order("closed_at ASC")

		if bid := c.QueryInt("branch_id"); bid > 0 {
			q = q.Where("branch_id = ?", bid)
		}

		var shifts []models.Shift
		if err := q.Find(&shifts).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron consultar los turnos")
		}

		f := excelize.NewFile()
		defer f.Close()

		sheet := f.GetSheetName(0)

		headers := []string{"Turno", "Sucursal", "Cajero", "Apertura", "Cierre", "Efectivo inicial", "Esperado", "Declarado", "Diferencia", "Motivo"}
		for i, h := range headers {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(sheet, cell, h)
		}

		totalExpected := decimal.Zero
		totalDeclared := decimal.Zero
		totalDiscrepancy := decimal.Zero

		for i, s := range shifts {
			row := i + 2

			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), s.ID)
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), s.BranchID)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), s.User.Name)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), s.OpenedAt.Format("2006-01-02 15:04:05"))
			if s.ClosedAt != nil {
				f.SetCellValue(sheet, fmt.Sprintf("E%d", row), s.ClosedAt.Format("2006-01-02 15:04:05"))
			}
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), s.InitialCash.StringFixed(2))
			if s.ExpectedAmount != nil {
				f.SetCellValue(sheet, fmt.Sprintf("G%d", row), s.ExpectedAmount.StringFixed(2))
				totalExpected = totalExpected.Add(*s.ExpectedAmount)
			}
			if s.DeclaredAmount != nil {
				f.SetCellValue(sheet, fmt.Sprintf("H%d", row), s.DeclaredAmount.StringFixed(2))
				totalDeclared = totalDeclared.Add(*s.DeclaredAmount)
			}
			if s.Discrepancy != nil {
				f.SetCellValue(sheet, fmt.Sprintf("I%d", row), s.Discrepancy.StringFixed(2))
				totalDiscrepancy = totalDiscrepancy.Add(*s.Discrepancy)
			}
			f.SetCellValue(sheet, fmt.Sprintf("J%d", row), s.DiscrepancyReason)
		}

		totalRow := len(shifts) + 3
		f.SetCellValue(sheet, fmt.Sprintf("A%d", totalRow), "TOTAL")
		f.SetCellValue(sheet, fmt.Sprintf("G%d", totalRow), totalExpected.StringFixed(2))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", totalRow), totalDeclared.StringFixed(2))
		f.SetCellValue(sheet, fmt.Sprintf("I%d", totalRow), totalDiscrepancy.StringFixed(2))

		buf, err := f.WriteToBuffer()
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el archivo Excel")
		}

		filename := fmt.Sprintf("arqueos-%s.xlsx", monthParam)
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, filename))
		return c.Send(buf.Bytes())
	}
}
