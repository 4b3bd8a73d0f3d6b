package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/persistence"
)

// ErrUnknownEnumType is returned when an enum update names a type that does not exist.
var ErrUnknownEnumType = errors.New("unknown enum type")

// SchemaRepository introspects the public schema and extends enum types.
type SchemaRepository interface {
	ListTables(ctx context.Context) ([]string, error)
	ListEnums(ctx context.Context) (map[string][]string, error)
	AddEnumValues(ctx context.Context, enums map[string][]string) (map[string][]string, error)
}

type schemaRepository struct {
	pool *pgxpool.Pool
}

// NewSchemaRepository builds repository.
func NewSchemaRepository(pool *pgxpool.Pool) SchemaRepository {
	return &schemaRepository{pool: pool}
}

func (r *schemaRepository) ListTables(ctx context.Context) ([]string, error) {
	const query = `
        SELECT table_name FROM information_schema.tables
        WHERE table_schema='public' AND table_type='BASE TABLE'
        ORDER BY table_name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tables := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

const enumLabelsQuery = `
        SELECT t.typname, e.enumlabel
        FROM pg_type t
        JOIN pg_enum e ON e.enumtypid = t.oid
        JOIN pg_namespace n ON n.oid = t.typnamespace
        WHERE n.nspname='public'
        ORDER BY t.typname, e.enumsortorder`

func (r *schemaRepository) ListEnums(ctx context.Context) (map[string][]string, error) {
	return readEnums(ctx, r.pool)
}

// AddEnumValues adds the missing labels of every listed type in a single transaction
// and returns the labels that were added per type.
func (r *schemaRepository) AddEnumValues(ctx context.Context, enums map[string][]string) (map[string][]string, error) {
	names := make([]string, 0, len(enums))
	for name := range enums {
		names = append(names, name)
	}
	sort.Strings(names)

	added := make(map[string][]string, len(enums))
	err := persistence.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := readEnums(ctx, tx)
		if err != nil {
			return err
		}
		for _, name := range names {
			current, ok := existing[name]
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownEnumType, name)
			}
			have := make(map[string]struct{}, len(current))
			for _, label := range current {
				have[label] = struct{}{}
			}
			added[name] = []string{}
			for _, value := range enums[name] {
				if _, ok := have[value]; ok {
					continue
				}
				stmt := fmt.Sprintf("ALTER TYPE %s ADD VALUE IF NOT EXISTS %s",
					pgx.Identifier{name}.Sanitize(), quoteLiteral(value))
				if _, err := tx.Exec(ctx, stmt); err != nil {
					return err
				}
				have[value] = struct{}{}
				added[name] = append(added[name], value)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func readEnums(ctx context.Context, q querier) (map[string][]string, error) {
	rows, err := q.Query(ctx, enumLabelsQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	enums := map[string][]string{}
	for rows.Next() {
		var name, label string
		if err := rows.Scan(&name, &label); err != nil {
			return nil, err
		}
		enums[name] = append(enums[name], label)
	}
	return enums, rows.Err()
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
