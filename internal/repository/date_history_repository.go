package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// DateHistoryRepository stores curated date audit entries.
type DateHistoryRepository interface {
	Create(ctx context.Context, history *domain.DateHistory) error
	ListByDate(ctx context.Context, dateID string) ([]domain.DateHistory, error)
}

type dateHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewDateHistoryRepository builds repository.
func NewDateHistoryRepository(pool *pgxpool.Pool) DateHistoryRepository {
	return &dateHistoryRepository{pool: pool}
}

func (r *dateHistoryRepository) Create(ctx context.Context, history *domain.DateHistory) error {
	const query = `
        INSERT INTO curated_date_history (date_id, changed_by_type, changed_by_id, old_status, new_status, note)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	if history.Note == nil {
		history.Note = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		history.DateID,
		history.ChangedByType,
		history.ChangedByID,
		history.OldStatus,
		history.NewStatus,
		history.Note,
	).Scan(&history.ID, &history.CreatedAt)
}

func (r *dateHistoryRepository) ListByDate(ctx context.Context, dateID string) ([]domain.DateHistory, error) {
	const query = `
        SELECT id, date_id, changed_by_type, changed_by_id, old_status, new_status, note, created_at
        FROM curated_date_history WHERE date_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, dateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DateHistory
	for rows.Next() {
		var history domain.DateHistory
		if err := rows.Scan(
			&history.ID,
			&history.DateID,
			&history.ChangedByType,
			&history.ChangedByID,
			&history.OldStatus,
			&history.NewStatus,
			&history.Note,
			&history.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, history)
	}
	return result, rows.Err()
}
