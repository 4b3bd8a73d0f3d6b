package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// AdminAuthHandler exposes back-office login and the admin's own profile.
type AdminAuthHandler struct {
	auth   *service.AdminAuthService
	cookie config.AuthConfig
}

// NewAdminAuthHandler constructs handler.
func NewAdminAuthHandler(authService *service.AdminAuthService, cfg config.AuthConfig) *AdminAuthHandler {
	return &AdminAuthHandler{auth: authService, cookie: cfg}
}

// Login handles POST /admin/auth/login.
func (h *AdminAuthHandler) Login(c *fiber.Ctx) error {
	var req dto.AdminLoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	result, err := h.auth.Login(c.UserContext(), service.AdminLoginInput{
		Email:     req.Email,
		Password:  req.Password,
		IP:        c.IP(),
		UserAgent: c.Get(fiber.HeaderUserAgent),
	})
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cookie, result.Token.Token, result.Token.ExpiresAt)

	return ok(c, dto.AdminLoginResponse{
		Admin:                dto.FromAdmin(result.Admin),
		Auth:                 dto.AuthResponse{Token: result.Token.Token, ExpiresAt: result.Token.ExpiresAt},
		PasswordExpired:      result.PasswordExpired,
		PasswordExpiringSoon: result.PasswordExpiringSoon,
	})
}

// Logout handles POST /admin/auth/logout.
func (h *AdminAuthHandler) Logout(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.UserContext(), principal.TokenID, principal.ExpiresAt); err != nil {
		return err
	}
	clearAuthCookie(c, h.cookie)
	return message(c, "logged out")
}

// Profile handles GET /admin/auth/profile.
func (h *AdminAuthHandler) Profile(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	admin, err := h.auth.Profile(c.UserContext(), principal.Admin.ID)
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// UpdateProfile handles PUT /admin/auth/profile.
func (h *AdminAuthHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminProfileRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := h.auth.UpdateProfile(c.UserContext(), principal.Admin.ID, service.AdminProfileInput{
		FirstName:         req.FirstName,
		LastName:          req.LastName,
		Phone:             req.Phone,
		Department:        req.Department,
		Position:          req.Position,
		Timezone:          req.Timezone,
		PreferredLanguage: req.PreferredLanguage,
	})
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// ChangePassword handles POST /admin/auth/change-password.
func (h *AdminAuthHandler) ChangePassword(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("current_password and new_password required", nil)
	}
	if err := h.auth.ChangePassword(c.UserContext(), principal.Admin.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return message(c, "password changed")
}
