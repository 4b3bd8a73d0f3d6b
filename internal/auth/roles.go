package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/domain"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// RequireUser ensures an end user is authenticated.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeUser || principal.User == nil {
			return apperrors.NewForbidden("end-user required")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller is an admin at or above the given level.
func RequireAdmin(level domain.AdminPermissionLevel) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if principal.SubjectType != domain.SubjectTypeAdmin || principal.Admin == nil {
			return apperrors.NewForbidden("admin access required")
		}
		if !principal.Admin.PermissionLevel.AtLeast(level) {
			return apperrors.NewForbidden("requires " + string(level) + " permission level or above")
		}
		return c.Next()
	}
}

// RequireAnyRole ensures caller is authenticated (user or admin).
func RequireAnyRole() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := PrincipalFromContext(c); !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		return c.Next()
	}
}
