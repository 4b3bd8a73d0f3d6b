package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/auth"
	"github.com/datifyy/datifyy-service/internal/service"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

const defaultPageSize = 20

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.Envelope{Success: true, Data: data})
}

func created(c *fiber.Ctx, message string, data any) error {
	return c.Status(http.StatusCreated).JSON(dto.Envelope{Success: true, Message: message, Data: data})
}

func message(c *fiber.Ctx, msg string) error {
	return c.JSON(dto.Envelope{Success: true, Message: msg})
}

// paged renders a page with pagination metadata, mapping every item through fn.
func paged[T, R any](c *fiber.Ctx, page service.Page[T], fn func(*T) R) error {
	items := make([]R, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, fn(&page.Items[i]))
	}
	return c.JSON(dto.Envelope{
		Success:  true,
		Data:     items,
		Metadata: dto.NewPageMetadata(page.Page, page.Limit, page.Total),
	})
}

func pagination(c *fiber.Ctx) service.Pagination {
	return service.Pagination{
		Page:  parseInt(c.Query("page"), 1),
		Limit: parseInt(c.Query("limit"), defaultPageSize),
	}
}

func currentUser(c *fiber.Ctx) (*auth.Principal, error) {
	principal, found := auth.PrincipalFromContext(c)
	if !found || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal, nil
}

func currentAdmin(c *fiber.Ctx) (*auth.Principal, error) {
	principal, found := auth.PrincipalFromContext(c)
	if !found || principal.Admin == nil {
		return nil, apperrors.NewUnauthorized("admin required")
	}
	return principal, nil
}

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return nil
}

// parseTime accepts RFC3339 timestamps and plain dates.
func parseTime(val string) (*time.Time, error) {
	if val == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, val); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.DateOnly, val)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid date", map[string]any{"value": val})
	}
	return &t, nil
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func parseBool(val string) *bool {
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return nil
	}
	return &parsed
}

func queryPtr(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

// enumQuery reads an optional enum-typed query parameter.
func enumQuery[T ~string](c *fiber.Ctx, key string) *T {
	val := queryPtr(c, key)
	if val == nil {
		return nil
	}
	typed := T(*val)
	return &typed
}
