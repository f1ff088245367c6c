package handlers

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/storefront-live/internal/api/dto"
	"github.com/spec-kit/storefront-live/internal/auth"
	"github.com/spec-kit/storefront-live/internal/domain"
	"github.com/spec-kit/storefront-live/internal/service"
	apperrors "github.com/spec-kit/storefront-live/pkg/util"
)

// CookieSettings controls how credential cookies are written.
type CookieSettings struct {
	Names      auth.CookieNames
	SessionTTL time.Duration
	StaffTTL   time.Duration
	Secure     bool
}

// AuthHandler exposes the login and logout endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieSettings
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, cookies CookieSettings) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	principal, sess, err := h.auth.RegisterCustomer(c.UserContext(), req.DisplayName, req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setCookie(c, h.cookies.Names.Customer, sess.ID, h.cookies.SessionTTL)

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": toPrincipalResponse(principal),
	})
}

// Login handles POST /auth/login and opens a native session.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	principal, sess, err := h.auth.LoginCustomer(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setCookie(c, h.cookies.Names.Customer, sess.ID, h.cookies.SessionTTL)

	return c.JSON(fiber.Map{"data": toPrincipalResponse(principal)})
}

// StaffLogin handles POST /auth/staff/login and sets the staff token cookie.
func (h *AuthHandler) StaffLogin(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	login, err := h.auth.LoginStaff(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setCookie(c, h.cookies.Names.Staff, login.Token, h.cookies.StaffTTL)

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": toPrincipalResponse(login.Principal),
			"auth":      dto.StaffTokenResponse{ExpiresAt: login.ExpiresAt},
		},
	})
}

// AdminLogin handles POST /auth/admin/login and sets the admin cookie.
func (h *AuthHandler) AdminLogin(c *fiber.Ctx) error {
	req, err := parseLogin(c)
	if err != nil {
		return err
	}

	principal, err := h.auth.LoginAdmin(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	h.setCookie(c, h.cookies.Names.Admin, principal.ID, 0)

	return c.JSON(fiber.Map{"data": toPrincipalResponse(principal)})
}

// Logout handles POST /auth/logout. It always succeeds and clears every
// credential cookie.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), c.Cookies(h.cookies.Names.Customer)); err != nil {
		return apperrors.NewInternalError(err)
	}
	for _, name := range []string{h.cookies.Names.Customer, h.cookies.Names.Staff, h.cookies.Names.Admin} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			Expires:  time.Unix(0, 0),
			HTTPOnly: true,
			Secure:   h.cookies.Secure,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	result, ok := auth.AuthResultFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated()
	}
	return c.JSON(fiber.Map{
		"data": dto.SessionResponse{
			Principal: toPrincipalResponse(result.Principal),
			Source:    string(result.Source),
		},
	})
}

func (h *AuthHandler) setCookie(c *fiber.Ctx, name, value string, ttl time.Duration) {
	cookie := &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HTTPOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
	if ttl > 0 {
		cookie.MaxAge = int(ttl.Seconds())
	}
	c.Cookie(cookie)
}

func parseLogin(c *fiber.Ctx) (dto.LoginRequest, error) {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return req, fiber.NewError(http.StatusBadRequest, "invalid payload")
	}
	if req.Email == "" || req.Password == "" {
		return req, apperrors.NewValidationError("email and password required", nil)
	}
	return req, nil
}

func toPrincipalResponse(p *domain.Principal) dto.PrincipalResponse {
	if p == nil {
		return dto.PrincipalResponse{}
	}
	return dto.PrincipalResponse{
		ID:          p.ID,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		Role:        string(p.Role),
	}
}
