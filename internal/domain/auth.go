package domain

import "time"

// SubjectType differentiates end-user vs admin tokens.
type SubjectType string

const (
	SubjectTypeUser  SubjectType = "USER"
	SubjectTypeAdmin SubjectType = "ADMIN"
)

// ActorType records who performed an audited change.
type ActorType string

const (
	ActorTypeUser   ActorType = "USER"
	ActorTypeAdmin  ActorType = "ADMIN"
	ActorTypeSystem ActorType = "SYSTEM"
)

// PasswordResetToken represents a stored reset or email verification token.
type PasswordResetToken struct {
	ID          string
	SubjectType SubjectType
	SubjectID   string
	Purpose     TokenPurpose
	Token       string
	ExpiresAt   time.Time
	UsedAt      *time.Time
	CreatedAt   time.Time
}

// TokenPurpose separates reset tokens from verification tokens.
type TokenPurpose string

const (
	TokenPurposePasswordReset TokenPurpose = "password_reset"
	TokenPurposeVerifyEmail   TokenPurpose = "verify_email"
)

// Usable reports whether the token can still be redeemed.
func (t *PasswordResetToken) Usable(now time.Time) bool {
	return t.UsedAt == nil && now.Before(t.ExpiresAt)
}
