package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// UserAdminService lets moderators inspect and restrict end-user accounts.
type UserAdminService struct {
	users  repository.UserRepository
	logger *zap.Logger
}

// UserListFilter narrows the admin user listing.
type UserListFilter struct {
	Status   *domain.UserStatus
	Verified *bool
	Search   *string
}

// UserDetail is a user with its moderation history.
type UserDetail struct {
	User    *domain.User
	History []domain.UserStatusChange
}

// NewUserAdminService builds the service.
func NewUserAdminService(users repository.UserRepository, logger *zap.Logger) *UserAdminService {
	return &UserAdminService{users: users, logger: loggerOrNop(logger)}
}

// List returns users matching filter.
func (s *UserAdminService) List(ctx context.Context, filter UserListFilter, page Pagination) (Page[domain.User], error) {
	page = page.Normalize(20)
	items, total, err := s.users.List(ctx, repository.UserFilter{
		Status:     filter.Status,
		Verified:   filter.Verified,
		SearchTerm: filter.Search,
		Limit:      page.Limit,
		Offset:     page.Offset(),
	})
	if err != nil {
		return Page[domain.User]{}, err
	}
	return Page[domain.User]{Items: items, Total: total, Limit: page.Limit, Page: page.Page}, nil
}

// Get returns the user and its status history.
func (s *UserAdminService) Get(ctx context.Context, id string) (*UserDetail, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	history, err := s.users.StatusHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	return &UserDetail{User: user, History: history}, nil
}

// Ban bans an account that is not already banned.
func (s *UserAdminService) Ban(ctx context.Context, adminID, userID, reason string) (*domain.User, error) {
	return s.changeStatus(ctx, adminID, userID, reason, domain.UserStatusBanned, func(current domain.UserStatus) error {
		if current == domain.UserStatusBanned {
			return apperrors.NewBusinessRule("user is already banned", nil)
		}
		return nil
	})
}

// Suspend suspends an active account.
func (s *UserAdminService) Suspend(ctx context.Context, adminID, userID, reason string) (*domain.User, error) {
	return s.changeStatus(ctx, adminID, userID, reason, domain.UserStatusSuspended, func(current domain.UserStatus) error {
		if current != domain.UserStatusActive {
			return apperrors.NewBusinessRule("only active users can be suspended", map[string]any{"status": current})
		}
		return nil
	})
}

// Unban restores a banned or suspended account.
func (s *UserAdminService) Unban(ctx context.Context, adminID, userID, reason string) (*domain.User, error) {
	return s.changeStatus(ctx, adminID, userID, reason, domain.UserStatusActive, func(current domain.UserStatus) error {
		if current != domain.UserStatusBanned && current != domain.UserStatusSuspended {
			return apperrors.NewBusinessRule("user is not banned or suspended", map[string]any{"status": current})
		}
		return nil
	})
}

func (s *UserAdminService) changeStatus(ctx context.Context, adminID, userID, reason string, next domain.UserStatus, allowed func(domain.UserStatus) error) (*domain.User, error) {
	reason = strings.TrimSpace(reason)
	if next != domain.UserStatusActive && reason == "" {
		return nil, apperrors.NewValidationError("reason is required", map[string]any{"field": "reason"})
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := allowed(user.Status); err != nil {
		return nil, err
	}

	change := &domain.UserStatusChange{
		UserID:    user.ID,
		AdminID:   adminID,
		OldStatus: user.Status,
		NewStatus: next,
		Reason:    reason,
	}
	if err := s.users.ChangeStatus(ctx, change); err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewConflict("user status changed concurrently, retry", nil)
		}
		return nil, err
	}

	user.Status = next
	user.IsActive = next != domain.UserStatusBanned && next != domain.UserStatusDeactivated
	s.logger.Info("user status changed", zap.String("user_id", user.ID), zap.String("admin_id", adminID),
		zap.String("from", string(change.OldStatus)), zap.String("to", string(next)))
	return user, nil
}
