package auth

import (
	"tienda-backend/internal/database"
	"tienda-backend/internal/models"

	"github.com/gofiber/fiber/v2"
)

// ActingUser: identidad explícita del operador, resuelta una vez por request.
// Las operaciones de negocio la reciben como valor; ninguna lee estado global.
type ActingUser struct {
	ID       uint
	Name     string
	Role     models.UserRole
	BranchID *uint
}

func (a ActingUser) IsAdmin() bool { return a.Role == models.RoleAdmin }

// ActorFromCtx: arma el ActingUser a partir de los claims del JWT.
// El nombre se lee de la base para los registros de auditoría.
func ActorFromCtx(c *fiber.Ctx) (ActingUser, error) {
	roleVal := c.Locals(CtxUserRoleKey)
	role, ok := roleVal.(models.UserRole)
	if !ok {
		return ActingUser{}, fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el rol")
	}

	userIDVal := c.Locals(CtxUserIDKey)
	userID, ok := userIDVal.(uint)
	if !ok {
		return ActingUser{}, fiber.NewError(fiber.StatusForbidden, "No se pudo obtener el usuario")
	}

	var user models.User
	if err := database.DB.First(&user, "id = ?", userID).Error; err != nil {
		return ActingUser{}, fiber.NewError(fiber.StatusInternalServerError, "Usuario no encontrado")
	}

	var branchID *uint
	if bPtr, ok := c.Locals(CtxBranchIDKey).(*uint); ok && bPtr != nil {
		branchID = bPtr
	}

	return ActingUser{
		ID:       user.ID,
		Name:     user.Name,
		Role:     role,
		BranchID: branchID,
	}, nil
}
