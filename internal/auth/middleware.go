package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/domain"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

const authResultKey = "auth_result"

// CookieNames identifies the credential cookies on a request.
type CookieNames struct {
	Customer string
	Admin    string
	Staff    string
}

// CredentialsFromRequest extracts the credential artifacts present on the request.
func CredentialsFromRequest(c *fiber.Ctx, names CookieNames) Credentials {
	return Credentials{
		AdminCookie: c.Cookies(names.Admin),
		StaffToken:  c.Cookies(names.Staff),
		SessionID:   c.Cookies(names.Customer),
	}
}

// AuthMiddleware resolves the caller and rejects unauthenticated requests.
type AuthMiddleware struct {
	resolver *Resolver
	cookies  CookieNames
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(resolver *Resolver, cookies CookieNames) *AuthMiddleware {
	return &AuthMiddleware{resolver: resolver, cookies: cookies}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	result := m.resolver.Resolve(c.UserContext(), CredentialsFromRequest(c, m.cookies))
	if !result.Authenticated() {
		return apperrors.NewUnauthenticated()
	}
	c.Locals(authResultKey, result)
	return c.Next()
}

// AuthResultFromContext retrieves the resolution stored by AuthMiddleware.
func AuthResultFromContext(c *fiber.Ctx) (domain.AuthResult, bool) {
	result, ok := c.Locals(authResultKey).(domain.AuthResult)
	if !ok || !result.Authenticated() {
		return domain.AuthResult{Source: domain.SourceNone}, false
	}
	return result, true
}

// PrincipalFromContext retrieves the authenticated principal.
func PrincipalFromContext(c *fiber.Ctx) (*domain.Principal, bool) {
	result, ok := AuthResultFromContext(c)
	if !ok {
		return nil, false
	}
	return result.Principal, true
}
