package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

// AdminsHandler manages admin accounts.
type AdminsHandler struct {
	admins      *service.AdminService
	lockDefault time.Duration
}

// NewAdminsHandler constructs handler. lockDefault applies when a lock request names no duration.
func NewAdminsHandler(admins *service.AdminService, lockDefault time.Duration) *AdminsHandler {
	if lockDefault <= 0 {
		lockDefault = domain.DefaultAdminLockDuration
	}
	return &AdminsHandler{admins: admins, lockDefault: lockDefault}
}

// Create POST /admin/admins.
func (h *AdminsHandler) Create(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminCreateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		return apperrors.NewValidationError("email, password, first_name required", nil)
	}
	admin, err := h.admins.Create(c.UserContext(), principal.Admin, service.AdminCreateInput{
		Email:                 req.Email,
		Password:              req.Password,
		FirstName:             req.FirstName,
		LastName:              req.LastName,
		PermissionLevel:       req.PermissionLevel,
		AdditionalPermissions: req.AdditionalPermissions,
		Phone:                 req.Phone,
		Department:            req.Department,
		Position:              req.Position,
		Notes:                 req.Notes,
	})
	if err != nil {
		return err
	}
	return created(c, "admin created", dto.FromAdmin(admin))
}

// List GET /admin/admins.
func (h *AdminsHandler) List(c *fiber.Ctx) error {
	filter := service.AdminListFilter{
		PermissionLevel: enumQuery[domain.AdminPermissionLevel](c, "permission_level"),
		Status:          enumQuery[domain.AdminAccountStatus](c, "status"),
		Active:          parseBool(c.Query("active")),
		Search:          queryPtr(c, "search"),
	}
	page, err := h.admins.List(c.UserContext(), filter, pagination(c))
	if err != nil {
		return err
	}
	return paged(c, page, dto.FromAdmin)
}

// Get GET /admin/admins/:id.
func (h *AdminsHandler) Get(c *fiber.Ctx) error {
	admin, err := h.admins.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// UpdatePermission PUT /admin/admins/:id/permission.
func (h *AdminsHandler) UpdatePermission(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminPermissionRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	admin, err := h.admins.UpdatePermission(c.UserContext(), principal.Admin, c.Params("id"), req.PermissionLevel, req.AdditionalPermissions)
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// Lock POST /admin/admins/:id/lock.
func (h *AdminsHandler) Lock(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.AdminLockRequest
	if len(c.Body()) > 0 {
		if err := parseBody(c, &req); err != nil {
			return err
		}
	}
	d := h.lockDefault
	if req.Minutes > 0 {
		d = time.Duration(req.Minutes) * time.Minute
	}
	admin, err := h.admins.Lock(c.UserContext(), principal.Admin, c.Params("id"), d)
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// Unlock POST /admin/admins/:id/unlock.
func (h *AdminsHandler) Unlock(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	admin, err := h.admins.Unlock(c.UserContext(), principal.Admin, c.Params("id"))
	if err != nil {
		return err
	}
	return ok(c, dto.FromAdmin(admin))
}

// Deactivate DELETE /admin/admins/:id.
func (h *AdminsHandler) Deactivate(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	if err := h.admins.Deactivate(c.UserContext(), principal.Admin, c.Params("id")); err != nil {
		return err
	}
	return message(c, "admin deactivated")
}
