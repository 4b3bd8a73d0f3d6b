package dto

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// AdminLoginRequest payload for back-office login.
type AdminLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AdminLoginResponse is the token plus the admin profile.
type AdminLoginResponse struct {
	Admin                AdminResponse `json:"admin"`
	Auth                 AuthResponse  `json:"auth"`
	PasswordExpired      bool          `json:"password_expired"`
	PasswordExpiringSoon bool          `json:"password_expiring_soon"`
}

// AdminProfileRequest lists the self-editable fields. Nil leaves a field unchanged.
type AdminProfileRequest struct {
	FirstName         *string `json:"first_name"`
	LastName          *string `json:"last_name"`
	Phone             *string `json:"phone"`
	Department        *string `json:"department"`
	Position          *string `json:"position"`
	Timezone          *string `json:"timezone"`
	PreferredLanguage *string `json:"preferred_language"`
}

// ChangePasswordRequest payload.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// AdminCreateRequest payload for a new admin account.
type AdminCreateRequest struct {
	Email                 string                      `json:"email"`
	Password              string                      `json:"password"`
	FirstName             string                      `json:"first_name"`
	LastName              string                      `json:"last_name"`
	PermissionLevel       domain.AdminPermissionLevel `json:"permission_level"`
	AdditionalPermissions []string                    `json:"additional_permissions"`
	Phone                 *string                     `json:"phone"`
	Department            *string                     `json:"department"`
	Position              *string                     `json:"position"`
	Notes                 *string                     `json:"notes"`
}

// AdminPermissionRequest changes an admin's level and extra permissions.
type AdminPermissionRequest struct {
	PermissionLevel       domain.AdminPermissionLevel `json:"permission_level"`
	AdditionalPermissions []string                    `json:"additional_permissions"`
}

// AdminLockRequest locks an admin for Minutes; zero uses the configured duration.
type AdminLockRequest struct {
	Minutes int `json:"minutes"`
}

// AdminResponse is the admin profile without credentials.
type AdminResponse struct {
	ID                    string                      `json:"id"`
	Email                 string                      `json:"email"`
	FirstName             string                      `json:"first_name"`
	LastName              string                      `json:"last_name"`
	FullName              string                      `json:"full_name"`
	PermissionLevel       domain.AdminPermissionLevel `json:"permission_level"`
	AdditionalPermissions []string                    `json:"additional_permissions"`
	AccountStatus         domain.AdminAccountStatus   `json:"account_status"`
	IsActive              bool                        `json:"is_active"`
	Phone                 *string                     `json:"phone,omitempty"`
	Department            *string                     `json:"department,omitempty"`
	Position              *string                     `json:"position,omitempty"`
	Timezone              string                      `json:"timezone"`
	PreferredLanguage     string                      `json:"preferred_language"`
	TwoFactorEnabled      bool                        `json:"two_factor_enabled"`
	FailedLoginAttempts   int                         `json:"failed_login_attempts"`
	LockExpiresAt         *time.Time                  `json:"lock_expires_at,omitempty"`
	LastLoginAt           *time.Time                  `json:"last_login_at,omitempty"`
	LoginCount            int                         `json:"login_count"`
	PasswordExpiryDate    *time.Time                  `json:"password_expiry_date,omitempty"`
	MustChangePassword    bool                        `json:"must_change_password"`
	CreatedBy             *string                     `json:"created_by,omitempty"`
	CreatedAt             time.Time                   `json:"created_at"`
	UpdatedAt             time.Time                   `json:"updated_at"`
}

// FromAdmin maps a domain admin.
func FromAdmin(a *domain.AdminUser) AdminResponse {
	perms := a.AdditionalPermissions
	if perms == nil {
		perms = []string{}
	}
	return AdminResponse{
		ID:                    a.ID,
		Email:                 a.Email,
		FirstName:             a.FirstName,
		LastName:              a.LastName,
		FullName:              a.FullName(),
		PermissionLevel:       a.PermissionLevel,
		AdditionalPermissions: perms,
		AccountStatus:         a.AccountStatus,
		IsActive:              a.IsActive,
		Phone:                 a.Phone,
		Department:            a.Department,
		Position:              a.Position,
		Timezone:              a.Timezone,
		PreferredLanguage:     a.PreferredLanguage,
		TwoFactorEnabled:      a.TwoFactorEnabled,
		FailedLoginAttempts:   a.FailedLoginAttempts,
		LockExpiresAt:         a.LockExpiresAt,
		LastLoginAt:           a.LastLoginAt,
		LoginCount:            a.LoginCount,
		PasswordExpiryDate:    a.PasswordExpiryDate,
		MustChangePassword:    a.MustChangePassword,
		CreatedBy:             a.CreatedBy,
		CreatedAt:             a.CreatedAt,
		UpdatedAt:             a.UpdatedAt,
	}
}
