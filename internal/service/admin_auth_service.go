package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/config"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// AdminAuthService handles back-office login, lockout and self-service profile changes.
type AdminAuthService struct {
	admins     repository.AdminRepository
	tokenMgr   *auth.TokenManager
	revoked    auth.RevocationList
	logger     *zap.Logger
	policy     domain.LockoutPolicy
	bcryptCost int
	expiryDays int
	now        func() time.Time
}

// AdminAuthDependencies bundles collaborators.
type AdminAuthDependencies struct {
	AdminRepo   repository.AdminRepository
	Tokens      *auth.TokenManager
	Revocations auth.RevocationList
	Logger      *zap.Logger
	Now         func() time.Time
}

// AdminLoginInput carries credentials and the client fingerprint.
type AdminLoginInput struct {
	Email     string
	Password  string
	IP        string
	UserAgent string
}

// AdminLoginResult is returned on successful admin login.
type AdminLoginResult struct {
	Admin                *domain.AdminUser
	Token                auth.IssuedToken
	PasswordExpired      bool
	PasswordExpiringSoon bool
}

// AdminProfileInput lists the self-editable profile fields.
type AdminProfileInput struct {
	FirstName         *string
	LastName          *string
	Phone             *string
	Department        *string
	Position          *string
	Timezone          *string
	PreferredLanguage *string
}

// NewAdminAuthService builds the service.
func NewAdminAuthService(cfg config.AuthConfig, deps AdminAuthDependencies) *AdminAuthService {
	policy := domain.LockoutPolicy{MaxAttempts: cfg.AdminMaxLoginAttempts, LockDuration: cfg.AdminLockDuration()}
	if policy.MaxAttempts <= 0 || policy.LockDuration <= 0 {
		policy = domain.DefaultLockoutPolicy()
	}
	return &AdminAuthService{
		admins:     deps.AdminRepo,
		tokenMgr:   deps.Tokens,
		revoked:    deps.Revocations,
		logger:     loggerOrNop(deps.Logger),
		policy:     policy,
		bcryptCost: cfg.BcryptCost,
		expiryDays: cfg.AdminPasswordExpiryDays,
		now:        clockOrDefault(deps.Now),
	}
}

// Login authenticates an admin, applying the lockout policy on failure.
func (s *AdminAuthService) Login(ctx context.Context, input AdminLoginInput) (*AdminLoginResult, error) {
	admin, err := s.admins.GetByEmail(ctx, input.Email)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid email or password")
		}
		return nil, err
	}

	now := s.now()
	if admin.IsLocked(now) {
		return nil, lockedError(admin)
	}
	if !admin.CanLogin() {
		return nil, apperrors.NewForbidden("admin account is " + inactiveStatus(admin))
	}

	if err := auth.ComparePassword(admin.PasswordHash, input.Password); err != nil {
		locked := admin.RecordFailedLogin(now, s.policy)
		if err := s.admins.Update(ctx, admin); err != nil {
			return nil, err
		}
		if locked {
			s.logger.Warn("admin account locked", zap.String("admin_id", admin.ID), zap.String("ip", input.IP))
			return nil, lockedError(admin)
		}
		return nil, apperrors.NewUnauthorized("invalid email or password")
	}

	admin.RecordSuccessfulLogin(now, input.IP, input.UserAgent)
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, err
	}

	level := admin.PermissionLevel
	token, err := s.tokenMgr.GenerateToken(admin.ID, domain.SubjectTypeAdmin, &level)
	if err != nil {
		return nil, err
	}
	return &AdminLoginResult{
		Admin:                admin,
		Token:                token,
		PasswordExpired:      admin.IsPasswordExpired(now),
		PasswordExpiringSoon: admin.IsPasswordExpiringSoon(now),
	}, nil
}

// Logout revokes the admin token.
func (s *AdminAuthService) Logout(ctx context.Context, tokenID string, expiresAt time.Time) error {
	if s.revoked == nil || tokenID == "" {
		return nil
	}
	return s.revoked.Revoke(ctx, tokenID, expiresAt.Sub(s.now()))
}

// Profile returns the admin's own record.
func (s *AdminAuthService) Profile(ctx context.Context, adminID string) (*domain.AdminUser, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// UpdateProfile applies the provided profile fields.
func (s *AdminAuthService) UpdateProfile(ctx context.Context, adminID string, input AdminProfileInput) (*domain.AdminUser, error) {
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if input.FirstName != nil {
		if strings.TrimSpace(*input.FirstName) == "" {
			return nil, apperrors.NewValidationError("first name cannot be empty", nil)
		}
		admin.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		admin.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		admin.Phone = trimmedPtr(input.Phone)
	}
	if input.Department != nil {
		admin.Department = trimmedPtr(input.Department)
	}
	if input.Position != nil {
		admin.Position = trimmedPtr(input.Position)
	}
	if input.Timezone != nil {
		if _, err := time.LoadLocation(*input.Timezone); err != nil {
			return nil, apperrors.NewValidationError("unknown timezone", map[string]any{"timezone": *input.Timezone})
		}
		admin.Timezone = *input.Timezone
	}
	if input.PreferredLanguage != nil && strings.TrimSpace(*input.PreferredLanguage) != "" {
		admin.PreferredLanguage = strings.TrimSpace(*input.PreferredLanguage)
	}
	updatedBy := admin.ID
	admin.UpdatedBy = &updatedBy
	if err := s.admins.Update(ctx, admin); err != nil {
		return nil, err
	}
	return admin, nil
}

// ChangePassword verifies the current password and stores a new one, restarting the expiry clock.
func (s *AdminAuthService) ChangePassword(ctx context.Context, adminID, current, next string) error {
	if len(next) < domain.AdminPasswordMinLength {
		return apperrors.NewValidationError("new password must be at least 12 characters", map[string]any{"field": "new_password"})
	}
	if current == next {
		return apperrors.NewValidationError("new password must differ from the current password", map[string]any{"field": "new_password"})
	}
	admin, err := s.admins.GetByID(ctx, adminID)
	if err != nil {
		return apperrors.MapError(err)
	}
	if err := auth.ComparePassword(admin.PasswordHash, current); err != nil {
		return apperrors.NewUnauthorized("current password is incorrect")
	}
	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return err
	}
	admin.SetPassword(hash, s.now(), s.expiryDays)
	return s.admins.Update(ctx, admin)
}

func lockedError(admin *domain.AdminUser) error {
	details := map[string]any{}
	if admin.LockExpiresAt != nil {
		details["lock_expires_at"] = admin.LockExpiresAt.UTC()
	}
	return apperrors.NewAccountLocked("account is locked due to too many failed login attempts", details)
}

func inactiveStatus(admin *domain.AdminUser) string {
	if !admin.IsActive {
		return string(domain.AdminStatusDeactivated)
	}
	return string(admin.AccountStatus)
}
