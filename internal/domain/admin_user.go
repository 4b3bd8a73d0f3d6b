package domain

import (
	"strings"
	"time"
)

// AdminPermissionLevel is the role tier of a back-office account.
type AdminPermissionLevel string

const (
	AdminLevelViewer     AdminPermissionLevel = "viewer"
	AdminLevelModerator  AdminPermissionLevel = "moderator"
	AdminLevelAdmin      AdminPermissionLevel = "admin"
	AdminLevelSuperAdmin AdminPermissionLevel = "super_admin"
	AdminLevelOwner      AdminPermissionLevel = "owner"
)

var adminLevelRank = map[AdminPermissionLevel]int{
	AdminLevelViewer:     1,
	AdminLevelModerator:  2,
	AdminLevelAdmin:      3,
	AdminLevelSuperAdmin: 4,
	AdminLevelOwner:      5,
}

// Valid reports whether the level is a known tier.
func (l AdminPermissionLevel) Valid() bool {
	_, ok := adminLevelRank[l]
	return ok
}

// AtLeast reports whether l is the same as or above required.
func (l AdminPermissionLevel) AtLeast(required AdminPermissionLevel) bool {
	have, ok := adminLevelRank[l]
	if !ok {
		return false
	}
	return have >= adminLevelRank[required]
}

// AdminAccountStatus is the account state of an admin.
type AdminAccountStatus string

const (
	AdminStatusActive      AdminAccountStatus = "active"
	AdminStatusSuspended   AdminAccountStatus = "suspended"
	AdminStatusDeactivated AdminAccountStatus = "deactivated"
	AdminStatusPending     AdminAccountStatus = "pending"
	AdminStatusLocked      AdminAccountStatus = "locked"
)

// AdminPermission is a fine-grained capability granted on top of the level.
type AdminPermission string

const (
	PermissionViewUsers          AdminPermission = "view_users"
	PermissionEditUsers          AdminPermission = "edit_users"
	PermissionBanUsers           AdminPermission = "ban_users"
	PermissionCurateDates        AdminPermission = "curate_dates"
	PermissionViewRevenue        AdminPermission = "view_revenue"
	PermissionManageAdmins       AdminPermission = "manage_admins"
	PermissionSendNotifications  AdminPermission = "send_notifications"
	PermissionManageSchema       AdminPermission = "manage_schema"
	PermissionManageIntegrations AdminPermission = "manage_integrations"
)

const (
	DefaultAdminMaxLoginAttempts  = 5
	DefaultAdminLockDuration      = 30 * time.Minute
	AdminPasswordMinLength        = 12
	AdminPasswordExpiryWarning    = 7 * 24 * time.Hour
	DefaultAdminPasswordExpiryDay = 90
)

// LockoutPolicy configures failed-login locking.
type LockoutPolicy struct {
	MaxAttempts  int
	LockDuration time.Duration
}

// DefaultLockoutPolicy returns 5 attempts and a 30 minute lock.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: DefaultAdminMaxLoginAttempts, LockDuration: DefaultAdminLockDuration}
}

// AdminUser models a back-office operator.
type AdminUser struct {
	ID                    string
	Email                 string
	PasswordHash          string
	FirstName             string
	LastName              string
	PermissionLevel       AdminPermissionLevel
	AdditionalPermissions []string
	AccountStatus         AdminAccountStatus
	IsActive              bool
	Phone                 *string
	Department            *string
	Position              *string
	Timezone              string
	PreferredLanguage     string
	TwoFactorEnabled      bool
	FailedLoginAttempts   int
	LockedAt              *time.Time
	LockExpiresAt         *time.Time
	LastLoginAt           *time.Time
	LastLoginIP           *string
	LastLoginUserAgent    *string
	LastActiveAt          *time.Time
	LoginCount            int
	LastPasswordChange    *time.Time
	PasswordExpiryDate    *time.Time
	MustChangePassword    bool
	CreatedBy             *string
	UpdatedBy             *string
	Notes                 *string
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// FullName joins first and last name.
func (a *AdminUser) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// IsLocked reports whether a lock is in force at now.
func (a *AdminUser) IsLocked(now time.Time) bool {
	return a.LockedAt != nil && a.LockExpiresAt != nil && now.Before(*a.LockExpiresAt)
}

// IsPasswordExpired reports whether the password expiry date has passed.
func (a *AdminUser) IsPasswordExpired(now time.Time) bool {
	return a.PasswordExpiryDate != nil && now.After(*a.PasswordExpiryDate)
}

// IsPasswordExpiringSoon reports whether the password expires within the warning window.
func (a *AdminUser) IsPasswordExpiringSoon(now time.Time) bool {
	if a.PasswordExpiryDate == nil {
		return false
	}
	return !now.Before(a.PasswordExpiryDate.Add(-AdminPasswordExpiryWarning))
}

// CanLogin reports whether the account state allows authentication, ignoring locks.
func (a *AdminUser) CanLogin() bool {
	return a.IsActive && (a.AccountStatus == AdminStatusActive || a.AccountStatus == AdminStatusLocked)
}

// LockAccount locks the account for d starting at now.
func (a *AdminUser) LockAccount(now time.Time, d time.Duration) {
	lockedAt := now
	expires := now.Add(d)
	a.LockedAt = &lockedAt
	a.LockExpiresAt = &expires
	a.AccountStatus = AdminStatusLocked
}

// UnlockAccount clears the lock and the failure counter.
func (a *AdminUser) UnlockAccount() {
	a.LockedAt = nil
	a.LockExpiresAt = nil
	a.FailedLoginAttempts = 0
	if a.AccountStatus == AdminStatusLocked {
		a.AccountStatus = AdminStatusActive
	}
}

// RecordFailedLogin counts a failed attempt and locks the account once the policy
// threshold is reached. It returns true only on the call that applied the lock.
func (a *AdminUser) RecordFailedLogin(now time.Time, policy LockoutPolicy) bool {
	if policy.MaxAttempts <= 0 {
		policy = DefaultLockoutPolicy()
	}
	if a.IsLocked(now) {
		return false
	}
	a.FailedLoginAttempts++
	if a.FailedLoginAttempts >= policy.MaxAttempts {
		a.LockAccount(now, policy.LockDuration)
		return true
	}
	return false
}

// RecordSuccessfulLogin resets failure bookkeeping and stamps login activity.
// A lock whose expiry has passed is cleared.
func (a *AdminUser) RecordSuccessfulLogin(now time.Time, ip, userAgent string) {
	if a.LockedAt != nil && !a.IsLocked(now) {
		a.UnlockAccount()
	}
	a.FailedLoginAttempts = 0
	loginAt := now
	a.LastLoginAt = &loginAt
	a.LastActiveAt = &loginAt
	if ip != "" {
		a.LastLoginIP = &ip
	}
	if userAgent != "" {
		a.LastLoginUserAgent = &userAgent
	}
	a.LoginCount++
}

// SetPassword stores a new hash and restarts the expiry clock.
func (a *AdminUser) SetPassword(hash string, now time.Time, expiryDays int) {
	if expiryDays <= 0 {
		expiryDays = DefaultAdminPasswordExpiryDay
	}
	changed := now
	expires := now.AddDate(0, 0, expiryDays)
	a.PasswordHash = hash
	a.LastPasswordChange = &changed
	a.PasswordExpiryDate = &expires
	a.MustChangePassword = false
}

// HasPermission reports whether the admin was granted p explicitly or holds owner level.
func (a *AdminUser) HasPermission(p AdminPermission) bool {
	if a.PermissionLevel == AdminLevelOwner {
		return true
	}
	for _, granted := range a.AdditionalPermissions {
		if granted == string(p) {
			return true
		}
	}
	return false
}
