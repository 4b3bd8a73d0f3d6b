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

// AdminService manages admin accounts on behalf of senior admins.
type AdminService struct {
	admins     repository.AdminRepository
	logger     *zap.Logger
	bcryptCost int
	expiryDays int
	now        func() time.Time
}

// AdminServiceDependencies bundles collaborators.
type AdminServiceDependencies struct {
	AdminRepo repository.AdminRepository
	Logger    *zap.Logger
	Now       func() time.Time
}

// AdminCreateInput describes a new admin account.
type AdminCreateInput struct {
	Email                 string
	Password              string
	FirstName             string
	LastName              string
	PermissionLevel       domain.AdminPermissionLevel
	AdditionalPermissions []string
	Phone                 *string
	Department            *string
	Position              *string
	Notes                 *string
}

// AdminListFilter narrows admin listings.
type AdminListFilter struct {
	PermissionLevel *domain.AdminPermissionLevel
	Status          *domain.AdminAccountStatus
	Active          *bool
	Search          *string
}

// NewAdminService builds the service.
func NewAdminService(cfg config.AuthConfig, deps AdminServiceDependencies) *AdminService {
	return &AdminService{
		admins:     deps.AdminRepo,
		logger:     loggerOrNop(deps.Logger),
		bcryptCost: cfg.BcryptCost,
		expiryDays: cfg.AdminPasswordExpiryDays,
		now:        clockOrDefault(deps.Now),
	}
}

// Create registers a new admin. The creator cannot grant a level above their own.
func (s *AdminService) Create(ctx context.Context, actor *domain.AdminUser, input AdminCreateInput) (*domain.AdminUser, error) {
	email := domain.NormalizeEmail(input.Email)
	if !validEmail(email) {
		return nil, apperrors.NewValidationError("a valid email is required", map[string]any{"field": "email"})
	}
	if strings.TrimSpace(input.FirstName) == "" {
		return nil, apperrors.NewValidationError("first name is required", map[string]any{"field": "first_name"})
	}
	if len(input.Password) < domain.AdminPasswordMinLength {
		return nil, apperrors.NewValidationError("password must be at least 12 characters", map[string]any{"field": "password"})
	}
	if input.PermissionLevel == "" {
		input.PermissionLevel = domain.AdminLevelViewer
	}
	if !input.PermissionLevel.Valid() {
		return nil, apperrors.NewValidationError("unknown permission level", map[string]any{"field": "permission_level"})
	}
	if !actor.PermissionLevel.AtLeast(input.PermissionLevel) {
		return nil, apperrors.NewForbidden("cannot grant a permission level above your own")
	}
	if err := validatePermissions(input.AdditionalPermissions); err != nil {
		return nil, err
	}

	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.NewConflict("admin with this email already exists", nil)
	} else if !apperrors.IsNotFound(err) {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	createdBy := actor.ID
	admin := &domain.AdminUser{
		Email:                 email,
		FirstName:             strings.TrimSpace(input.FirstName),
		LastName:              strings.TrimSpace(input.LastName),
		PermissionLevel:       input.PermissionLevel,
		AdditionalPermissions: input.AdditionalPermissions,
		AccountStatus:         domain.AdminStatusActive,
		IsActive:              true,
		Phone:                 trimmedPtr(input.Phone),
		Department:            trimmedPtr(input.Department),
		Position:              trimmedPtr(input.Position),
		Timezone:              "UTC",
		PreferredLanguage:     "en",
		CreatedBy:             &createdBy,
		Notes:                 trimmedPtr(input.Notes),
	}
	admin.SetPassword(hash, s.now(), s.expiryDays)
	admin.MustChangePassword = true

	if err := s.admins.Create(ctx, admin); err != nil {
		if apperrors.IsUniqueViolation(err) {
			return nil, apperrors.NewConflict("admin with this email already exists", nil)
		}
		return nil, err
	}
	s.logger.Info("admin created", zap.String("admin_id", admin.ID), zap.String("created_by", actor.ID),
		zap.String("level", string(admin.PermissionLevel)))
	return admin, nil
}

// List returns admins matching filter.
func (s *AdminService) List(ctx context.Context, filter AdminListFilter, page Pagination) (Page[domain.AdminUser], error) {
	page = page.Normalize(20)
	items, total, err := s.admins.List(ctx, repository.AdminFilter{
		PermissionLevel: filter.PermissionLevel,
		Status:          filter.Status,
		Active:          filter.Active,
		SearchTerm:      filter.Search,
		Limit:           page.Limit,
		Offset:          page.Offset(),
	})
	if err != nil {
		return Page[domain.AdminUser]{}, err
	}
	return Page[domain.AdminUser]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get fetches one admin.
func (s *AdminService) Get(ctx context.Context, id string) (*domain.AdminUser, error) {
	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return admin, nil
}

// UpdatePermission changes another admin's level and extra permissions.
func (s *AdminService) UpdatePermission(ctx context.Context, actor *domain.AdminUser, id string, level domain.AdminPermissionLevel, permissions []string) (*domain.AdminUser, error) {
	if !level.Valid() {
		return nil, apperrors.NewValidationError("unknown permission level", map[string]any{"field": "permission_level"})
	}
	if err := validatePermissions(permissions); err != nil {
		return nil, err
	}
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.PermissionLevel.AtLeast(level) {
		return nil, apperrors.NewForbidden("cannot grant a permission level above your own")
	}
	target.PermissionLevel = level
	if permissions != nil {
		target.AdditionalPermissions = permissions
	}
	return target, s.save(ctx, actor, target)
}

// Lock locks another admin for the given duration.
func (s *AdminService) Lock(ctx context.Context, actor *domain.AdminUser, id string, d time.Duration) (*domain.AdminUser, error) {
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if d <= 0 {
		d = domain.DefaultAdminLockDuration
	}
	target.LockAccount(s.now(), d)
	return target, s.save(ctx, actor, target)
}

// Unlock clears a lock on another admin.
func (s *AdminService) Unlock(ctx context.Context, actor *domain.AdminUser, id string) (*domain.AdminUser, error) {
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	target.UnlockAccount()
	return target, s.save(ctx, actor, target)
}

// Deactivate soft-deletes another admin.
func (s *AdminService) Deactivate(ctx context.Context, actor *domain.AdminUser, id string) error {
	target, err := s.manageable(ctx, actor, id)
	if err != nil {
		return err
	}
	target.IsActive = false
	target.AccountStatus = domain.AdminStatusDeactivated
	return s.save(ctx, actor, target)
}

// manageable loads the target and checks that actor may change it.
func (s *AdminService) manageable(ctx context.Context, actor *domain.AdminUser, id string) (*domain.AdminUser, error) {
	if actor.ID == id {
		return nil, apperrors.NewForbidden("cannot change your own account here")
	}
	target, err := s.admins.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if target.PermissionLevel == domain.AdminLevelOwner {
		return nil, apperrors.NewForbidden("owner accounts cannot be modified by other admins")
	}
	if !actor.PermissionLevel.AtLeast(target.PermissionLevel) {
		return nil, apperrors.NewForbidden("cannot manage an admin above your level")
	}
	return target, nil
}

func (s *AdminService) save(ctx context.Context, actor, target *domain.AdminUser) error {
	updatedBy := actor.ID
	target.UpdatedBy = &updatedBy
	if err := s.admins.Update(ctx, target); err != nil {
		return err
	}
	s.logger.Info("admin updated", zap.String("admin_id", target.ID), zap.String("updated_by", actor.ID),
		zap.String("status", string(target.AccountStatus)))
	return nil
}

var knownPermissions = map[string]struct{}{
	string(domain.PermissionViewUsers):          {},
	string(domain.PermissionEditUsers):          {},
	string(domain.PermissionBanUsers):           {},
	string(domain.PermissionCurateDates):        {},
	string(domain.PermissionViewRevenue):        {},
	string(domain.PermissionManageAdmins):       {},
	string(domain.PermissionSendNotifications):  {},
	string(domain.PermissionManageSchema):       {},
	string(domain.PermissionManageIntegrations): {},
}

func validatePermissions(perms []string) error {
	for _, p := range perms {
		if _, ok := knownPermissions[p]; !ok {
			return apperrors.NewValidationError("unknown permission", map[string]any{"permission": p})
		}
	}
	return nil
}
