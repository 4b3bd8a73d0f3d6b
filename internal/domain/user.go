package domain

import (
	"strings"
	"time"
)

// UserStatus represents lifecycle states for an end-user account.
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusSuspended   UserStatus = "suspended"
	UserStatusBanned      UserStatus = "banned"
	UserStatusDeactivated UserStatus = "deactivated"
)

// Gender is the self-declared gender stored on the login record.
type Gender string

const (
	GenderMale      Gender = "male"
	GenderFemale    Gender = "female"
	GenderNonBinary Gender = "non_binary"
	GenderOther     Gender = "other"
)

// User is the credential and account record for an end-user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	FirstName    string
	LastName     string
	Gender       *Gender
	IsAdmin      bool
	IsActive     bool
	IsVerified   bool
	Status       UserStatus
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FullName joins first and last name.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// CanLogin reports whether the account may authenticate.
func (u *User) CanLogin() bool {
	return u.IsActive && u.Status == UserStatusActive
}

// UserStatusChange is an audit row written when an admin changes an account status.
type UserStatusChange struct {
	ID        string
	UserID    string
	AdminID   string
	OldStatus UserStatus
	NewStatus UserStatus
	Reason    string
	CreatedAt time.Time
}

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
