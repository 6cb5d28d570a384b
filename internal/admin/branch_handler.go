package admin

import (
	"strings"

	"tienda-backend/internal/audit"
	"tienda-backend/internal/auth"
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BranchResponse struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Phone     string `json:"phone"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type CreateBranchRequest struct {
	Name    string  `json:"name"`
	Address string  `json:"address"`
	Phone   *string `json:"phone"` // Opcional
}

type UpdateBranchRequest struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Active  *bool   `json:"active"`
}

type CreateBranchUserRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func toBranchResponse(b models.Branch) BranchResponse {
	return BranchResponse{
		ID:        b.ID,
		Name:      b.Name,
		Address:   b.Address,
		Phone:     b.Phone,
		Active:    b.Active,
		CreatedAt: b.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}

// ----------------------------------------
// CRUD DE SUCURSALES
// ----------------------------------------

func CreateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body CreateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		body.Name = strings.TrimSpace(body.Name)
		if body.Name == "" {
			return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal no puede estar vacío")
		}

		branch := models.Branch{
			Name:    body.Name,
			Address: body.Address,
			Active:  true,
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}

		if err := database.DB.Create(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear la sucursal")
		}

		return c.Status(fiber.StatusCreated).JSON(toBranchResponse(branch))
	}
}

func ListBranchesHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var branches []models.Branch
		if err := database.DB.Find(&branches).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar las sucursales")
		}

		res := make([]BranchResponse, 0, len(branches))
		for _, b := range branches {
			res = append(res, toBranchResponse(b))
		}

		return c.JSON(res)
	}
}

func GetBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		return c.JSON(toBranchResponse(branch))
	}
}

func UpdateBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var body UpdateBranchRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		if body.Name != nil {
			name := strings.TrimSpace(*body.Name)
			if name == "" {
				return fiber.NewError(fiber.StatusBadRequest, "El nombre de la sucursal no puede estar vacío")
			}
			branch.Name = name
		}
		if body.Address != nil {
			branch.Address = *body.Address
		}
		if body.Phone != nil {
			branch.Phone = strings.TrimSpace(*body.Phone)
		}
		if body.Active != nil {
			branch.Active = *body.Active
		}

		if err := database.DB.Save(&branch).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo actualizar la sucursal")
		}

		return c.JSON(toBranchResponse(branch))
	}
}

// DELETE /api/admin/branches/:id
// Sin ?force=true se rechaza si la sucursal tiene ventas. Con force se purgan
// en una transacción las ventas, turnos, stock, transferencias y rendiciones
// asociadas.
func DeleteBranchHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", id).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var salesCount int64
		database.DB.Model(&models.Sale{}).Where("branch_id = ?", branch.ID).Count(&salesCount)

		force := c.QueryBool("force", false)
		if salesCount > 0 && !force {
			return fiber.NewError(fiber.StatusConflict, "La sucursal tiene ventas registradas; use force=true para purgarla")
		}

		err := database.DB.Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("sale_id IN (?)",
				tx.Model(&models.Sale{}).Select("id").Where("branch_id = ?", branch.ID),
			).Delete(&models.PaymentDetail{}).Error; err != nil {
				return err
			}
			if err := tx.Where("sale_id IN (?)",
				tx.Model(&models.Sale{}).Select("id").Where("branch_id = ?", branch.ID),
			).Delete(&models.SaleItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("branch_id = ?", branch.ID).Delete(&models.Sale{}).Error; err != nil {
				return err
			}
			if err := tx.Where("branch_id = ?", branch.ID).Delete(&models.Shift{}).Error; err != nil {
				return err
			}
			if err := tx.Where("branch_id = ?", branch.ID).Delete(&models.Stock{}).Error; err != nil {
				return err
			}
			if err := tx.Where("transfer_id IN (?)",
				tx.Model(&models.StockTransfer{}).Select("id").
					Where("source_branch_id = ? OR target_branch_id = ?", branch.ID, branch.ID),
			).Delete(&models.TransferItem{}).Error; err != nil {
				return err
			}
			if err := tx.Where("source_branch_id = ? OR target_branch_id = ?", branch.ID, branch.ID).
				Delete(&models.StockTransfer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("source_branch_id = ? OR target_branch_id = ?", branch.ID, branch.ID).
				Delete(&models.Settlement{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.Branch{}, "id = ?", branch.ID).Error
		})
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo eliminar la sucursal")
		}

		if actor, err := auth.ActorFromCtx(c); err == nil {
			_ = audit.WriteLog(audit.LogOptions{
				UserID:      actor.ID,
				UserName:    actor.Name,
				EntityType:  "branch",
				EntityID:    branch.ID,
				Action:      models.AuditActionDelete,
				Description: "Sucursal eliminada: " + branch.Name,
				Before:      branch,
			})
		}

		return c.SendStatus(fiber.StatusNoContent)
	}
}

// ----------------------------------------
// USUARIOS DE SUCURSAL
// ----------------------------------------

// POST /api/admin/branches/:id/users
func CreateBranchUserHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID := c.Params("id")

		var branch models.Branch
		if err := database.DB.First(&branch, "id = ?", branchID).Error; err != nil {
			return fiber.NewError(fiber.StatusNotFound, "Sucursal no encontrada")
		}

		var body CreateBranchUserRequest
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Cuerpo de la solicitud inválido")
		}

		body.Email = strings.ToLower(strings.TrimSpace(body.Email))
		body.Name = strings.TrimSpace(body.Name)

		if body.Name == "" || body.Email == "" || body.Password == "" {
			return fiber.NewError(fiber.StatusBadRequest, "Nombre, email y contraseña son obligatorios")
		}

		var exist models.User
		if err := database.DB.Where("email = ?", body.Email).First(&exist).Error; err == nil {
			return fiber.NewError(fiber.StatusBadRequest, "Ese email ya está registrado")
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(body.Password), bcrypt.DefaultCost)
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo generar el hash de la contraseña")
		}

		user := models.User{
			BranchID:     &branch.ID,
			Name:         body.Name,
			Email:        body.Email,
			PasswordHash: string(hash),
			Role:         models.RoleCajero,
		}

		if err := database.DB.Create(&user).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudo crear el usuario")
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"id":        user.ID,
			"name":      user.Name,
			"email":     user.Email,
			"role":      user.Role,
			"branch_id": user.BranchID,
		})
	}
}

// GET /api/admin/branches/:id/users
func ListBranchUsersHandler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		branchID := c.Params("id")

		var users []models.User
		if err := database.DB.Where("branch_id = ?", branchID).Find(&users).Error; err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "No se pudieron listar los usuarios")
		}

		res := make([]fiber.Map, 0, len(users))
		for _, u := range users {
			res = append(res, fiber.Map{
				"id":        u.ID,
				"name":      u.Name,
				"email":     u.Email,
				"role":      u.Role,
				"branch_id": u.BranchID,
			})
		}

		return c.JSON(res)
	}
}
