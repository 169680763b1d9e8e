package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"pantiku_backend/internals/constants"
)

// HasPermission: satu-satunya pintu cek kapabilitas role.
// Dipanggil sekali per operasi mutasi; false = PermissionDenied di caller.
func HasPermission(roles []string, permission string) bool {
	for _, role := range roles {
		for _, p := range constants.RolePermissions[role] {
			if p == permission {
				return true
			}
		}
	}
	return false
}

// GetUserID mengambil user id dari locals (diisi oleh middleware AuthJWT).
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	raw, _ := c.Locals("user_id").(string)
	if raw == "" {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "User tidak terautentikasi")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "User ID dalam token tidak valid")
	}
	return id, nil
}

// GetRoles mengambil daftar role dari locals.
func GetRoles(c *fiber.Ctx) []string {
	if roles, ok := c.Locals("roles").([]string); ok {
		return roles
	}
	return nil
}
