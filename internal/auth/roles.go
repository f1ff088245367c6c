package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/domain"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// RequireRole ensures the resolved principal holds one of the allowed roles.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated()
		}
		if principal.Banned {
			return apperrors.NewForbidden("account suspended")
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[principal.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAdmin ensures the caller is an ADMIN.
func RequireAdmin() fiber.Handler {
	return RequireRole(domain.RoleAdmin)
}

// RequireStaff ensures the caller is STAFF or ADMIN.
func RequireStaff() fiber.Handler {
	return RequireRole(domain.RoleStaff, domain.RoleAdmin)
}
