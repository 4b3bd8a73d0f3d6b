package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
)

// UserAdminHandler exposes user moderation to admins.
type UserAdminHandler struct {
	users *service.UserAdminService
}

// NewUserAdminHandler constructs handler.
func NewUserAdminHandler(users *service.UserAdminService) *UserAdminHandler {
	return &UserAdminHandler{users: users}
}

// List GET /admin/users.
func (h *UserAdminHandler) List(c *fiber.Ctx) error {
	filter := service.UserListFilter{
		Status:   enumQuery[domain.UserStatus](c, "status"),
		Verified: parseBool(c.Query("verified")),
		Search:   queryPtr(c, "search"),
	}
	page, err := h.users.List(c.UserContext(), filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromUser)
}

// Get GET /admin/users/:id.
func (h *UserAdminHandler) Get(c *fiber.Ctx) error {
	detail, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	history := make([]dto.UserStatusChangeResponse, 0, len(detail.History))
	for _, ch := range detail.History {
		history = append(history, dto.FromUserStatusChange(ch))
	}
	return ok(c, dto.UserDetailResponse{UserResponse: dto.FromUser(detail.User), StatusHistory: history})
}

// Ban POST /admin/users/:id/ban.
func (h *UserAdminHandler) Ban(c *fiber.Ctx) error {
	return h.moderate(c, h.users.Ban)
}

// Suspend POST /admin/users/:id/suspend.
func (h *UserAdminHandler) Suspend(c *fiber.Ctx) error {
	return h.moderate(c, h.users.Suspend)
}

// Unban POST /admin/users/:id/unban.
func (h *UserAdminHandler) Unban(c *fiber.Ctx) error {
	return h.moderate(c, h.users.Unban)
}

type moderationFunc func(ctx context.Context, adminID, userID, reason string) (*domain.User, error)

func (h *UserAdminHandler) moderate(c *fiber.Ctx, fn moderationFunc) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.ModerationRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	user, err := fn(c.UserContext(), principal.Admin.ID, c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return ok(c, dto.FromUser(user))
}
