package dto

import (
	"time"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// SignupRequest payload for new users.
type SignupRequest struct {
	Email     string         `json:"email"`
	Password  string         `json:"password"`
	FirstName string         `json:"first_name"`
	LastName  string         `json:"last_name"`
	Gender    *domain.Gender `json:"gender"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest starts a password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest redeems a reset token.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// VerifyEmailRequest redeems a verification token.
type VerifyEmailRequest struct {
	Token string `json:"token"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UserResponse is the public view of an account. The password hash never leaves the service.
type UserResponse struct {
	ID          string            `json:"id"`
	Email       string            `json:"email"`
	FirstName   string            `json:"first_name"`
	LastName    string            `json:"last_name"`
	Gender      *domain.Gender    `json:"gender,omitempty"`
	IsVerified  bool              `json:"is_verified"`
	IsActive    bool              `json:"is_active"`
	Status      domain.UserStatus `json:"status"`
	LastLoginAt *time.Time        `json:"last_login_at,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// UserStatusChangeResponse is one moderation audit row.
type UserStatusChangeResponse struct {
	ID        string            `json:"id"`
	AdminID   string            `json:"admin_id"`
	OldStatus domain.UserStatus `json:"old_status"`
	NewStatus domain.UserStatus `json:"new_status"`
	Reason    string            `json:"reason"`
	CreatedAt time.Time         `json:"created_at"`
}

// UserDetailResponse adds moderation history to a user.
type UserDetailResponse struct {
	UserResponse
	StatusHistory []UserStatusChangeResponse `json:"status_history"`
}

// ModerationRequest carries the reason for a ban, suspension or unban.
type ModerationRequest struct {
	Reason string `json:"reason"`
}

// TokenValidationResponse describes a valid token.
type TokenValidationResponse struct {
	Valid           bool                         `json:"valid"`
	SubjectID       string                       `json:"subject_id"`
	Subject         domain.SubjectType           `json:"subject"`
	PermissionLevel *domain.AdminPermissionLevel `json:"permission_level,omitempty"`
	ExpiresAt       *time.Time                   `json:"expires_at,omitempty"`
}

// FromUser maps a domain user.
func FromUser(u *domain.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Gender:      u.Gender,
		IsVerified:  u.IsVerified,
		IsActive:    u.IsActive,
		Status:      u.Status,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}

// FromUserStatusChange maps an audit row.
func FromUserStatusChange(ch domain.UserStatusChange) UserStatusChangeResponse {
	return UserStatusChangeResponse{
		ID:        ch.ID,
		AdminID:   ch.AdminID,
		OldStatus: ch.OldStatus,
		NewStatus: ch.NewStatus,
		Reason:    ch.Reason,
		CreatedAt: ch.CreatedAt,
	}
}
