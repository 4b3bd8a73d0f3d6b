package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// UsersHandler exposes auth endpoints for end-users.
type UsersHandler struct {
	auth   *service.AuthService
	cookie config.AuthConfig
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService, cfg config.AuthConfig) *UsersHandler {
	return &UsersHandler{auth: authService, cookie: cfg}
}

// Signup handles POST /auth/signup.
func (h *UsersHandler) Signup(c *fiber.Ctx) error {
	var req dto.SignupRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, err := h.auth.Signup(c.UserContext(), service.SignupInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Gender:    req.Gender,
	})
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cookie, token.Token, token.ExpiresAt)

	return created(c, "account created", fiber.Map{
		"user": dto.FromUser(user),
		"auth": dto.AuthResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
	})
}

// Login handles POST /auth/login.
func (h *UsersHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	setAuthCookie(c, h.cookie, token.Token, token.ExpiresAt)

	return ok(c, fiber.Map{
		"user": dto.FromUser(user),
		"auth": dto.AuthResponse{Token: token.Token, ExpiresAt: token.ExpiresAt},
	})
}

// Logout handles POST /auth/logout.
func (h *UsersHandler) Logout(c *fiber.Ctx) error {
	principal, found := auth.PrincipalFromContext(c)
	if !found {
		return apperrors.NewUnauthorized("authentication required")
	}
	if err := h.auth.Logout(c.UserContext(), principal.TokenID, principal.ExpiresAt); err != nil {
		return err
	}
	clearAuthCookie(c, h.cookie)
	return message(c, "logged out")
}

// ValidateToken handles GET /auth/validate-token.
func (h *UsersHandler) ValidateToken(c *fiber.Ctx) error {
	raw, err := auth.TokenFromRequest(c, h.cookie.CookieName)
	if err != nil {
		return err
	}
	claims, err := h.auth.ValidateToken(c.UserContext(), raw)
	if err != nil {
		return err
	}
	resp := dto.TokenValidationResponse{
		Valid:           true,
		SubjectID:       claims.SubjectID,
		Subject:         claims.Subject,
		PermissionLevel: claims.PermissionLevel,
	}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}
	return ok(c, resp)
}

// Me handles GET /auth/me.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	principal, err := currentUser(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.UserContext(), principal.User.ID)
	if err != nil {
		return err
	}
	return ok(c, dto.FromUser(user))
}

// ForgotPassword handles POST /auth/forgot-password. The reply never reveals whether the email exists.
func (h *UsersHandler) ForgotPassword(c *fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" {
		return apperrors.NewValidationError("email required", nil)
	}
	if err := h.auth.ForgotPassword(c.UserContext(), req.Email); err != nil {
		return err
	}
	return message(c, "if the email is registered, a reset link has been sent")
}

// ResetPassword handles POST /auth/reset-password.
func (h *UsersHandler) ResetPassword(c *fiber.Ctx) error {
	var req dto.ResetPasswordRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Token == "" || req.NewPassword == "" {
		return apperrors.NewValidationError("token and new_password required", nil)
	}
	if err := h.auth.ResetPassword(c.UserContext(), req.Token, req.NewPassword); err != nil {
		return err
	}
	return message(c, "password updated")
}

// VerifyEmail handles POST /auth/verify-email.
func (h *UsersHandler) VerifyEmail(c *fiber.Ctx) error {
	var req dto.VerifyEmailRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Token == "" {
		return apperrors.NewValidationError("token required", nil)
	}
	user, err := h.auth.VerifyEmail(c.UserContext(), req.Token)
	if err != nil {
		return err
	}
	return ok(c, dto.FromUser(user))
}

func setAuthCookie(c *fiber.Ctx, cfg config.AuthConfig, token string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearAuthCookie(c *fiber.Ctx, cfg config.AuthConfig) {
	c.Cookie(&fiber.Cookie{
		Name:     cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
