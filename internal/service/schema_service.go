package service

import (
	"context"
	"errors"
	"regexp"
	"sort"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/datifyy/datifyy-service/internal/repository"
	apperrors "github.com/datifyy/datifyy-service/pkg/util"
)

const maxEnumValueLength = 63

var enumTypeName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// SchemaService exposes database introspection and enum maintenance.
type SchemaService struct {
	schema repository.SchemaRepository
	logger *zap.Logger
}

// NewSchemaService builds the service.
func NewSchemaService(schema repository.SchemaRepository, logger *zap.Logger) *SchemaService {
	return &SchemaService{schema: schema, logger: loggerOrNop(logger)}
}

// Tables lists public base tables.
func (s *SchemaService) Tables(ctx context.Context) ([]string, error) {
	tables, err := s.schema.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	if tables == nil {
		tables = []string{}
	}
	return tables, nil
}

// Enums lists enum labels per type.
func (s *SchemaService) Enums(ctx context.Context) (map[string][]string, error) {
	return s.schema.ListEnums(ctx)
}

// AddEnumValues validates every name and value before anything touches the database,
// then adds the missing values in one transaction.
func (s *SchemaService) AddEnumValues(ctx context.Context, adminID string, enums map[string][]string) (map[string][]string, error) {
	if len(enums) == 0 {
		return nil, apperrors.NewValidationError("enums must not be empty", map[string]any{"field": "enums"})
	}
	names := make([]string, 0, len(enums))
	for name := range enums {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !enumTypeName.MatchString(name) {
			return nil, apperrors.NewValidationError("invalid enum type name", map[string]any{"type": name})
		}
		values := enums[name]
		if len(values) == 0 {
			return nil, apperrors.NewValidationError("enum values must not be empty", map[string]any{"type": name})
		}
		for _, value := range values {
			if !validEnumValue(value) {
				return nil, apperrors.NewValidationError("invalid enum value", map[string]any{"type": name, "value": value})
			}
		}
	}

	added, err := s.schema.AddEnumValues(ctx, enums)
	if err != nil {
		if errors.Is(err, repository.ErrUnknownEnumType) {
			return nil, apperrors.NewValidationError(err.Error(), nil)
		}
		return nil, err
	}
	s.logger.Info("enum values added", zap.String("admin_id", adminID), zap.Any("added", added))
	return added, nil
}

// validEnumValue mirrors Postgres: labels are limited to 63 bytes, not characters.
func validEnumValue(value string) bool {
	if value == "" || len(value) > maxEnumValueLength || !utf8.ValidString(value) {
		return false
	}
	for _, r := range value {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
