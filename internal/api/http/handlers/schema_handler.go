package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/datifyy/datifyy-service/internal/api/dto"
	"github.com/datifyy/datifyy-service/internal/service"
)

// SchemaHandler exposes database introspection.
type SchemaHandler struct {
	schema *service.SchemaService
}

// NewSchemaHandler constructs handler.
func NewSchemaHandler(schema *service.SchemaService) *SchemaHandler {
	return &SchemaHandler{schema: schema}
}

// Tables GET /admin/schema/tables.
func (h *SchemaHandler) Tables(c *fiber.Ctx) error {
	tables, err := h.schema.Tables(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"tables": tables})
}

// Enums GET /admin/schema/enums.
func (h *SchemaHandler) Enums(c *fiber.Ctx) error {
	enums, err := h.schema.Enums(c.UserContext())
	if err != nil {
		return err
	}
	return ok(c, fiber.Map{"enums": enums})
}

// UpdateEnums PUT /admin/schema/enums.
func (h *SchemaHandler) UpdateEnums(c *fiber.Ctx) error {
	principal, err := currentAdmin(c)
	if err != nil {
		return err
	}
	var req dto.EnumUpdateRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	added, err := h.schema.AddEnumValues(c.UserContext(), principal.Admin.ID, req.Enums)
	if err != nil {
		return err
	}
	return c.JSON(dto.Envelope{
		Success: true,
		Message: "enum values updated",
		Data:    fiber.Map{"added": added},
	})
}
