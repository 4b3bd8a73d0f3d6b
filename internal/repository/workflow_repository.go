package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// WorkflowRepository tracks curation workflow stages per date.
type WorkflowRepository interface {
	ListByDate(ctx context.Context, dateID string) ([]domain.WorkflowStep, error)
	Upsert(ctx context.Context, step *domain.WorkflowStep) error
}

type workflowRepository struct {
	pool *pgxpool.Pool
}

// NewWorkflowRepository builds repository.
func NewWorkflowRepository(pool *pgxpool.Pool) WorkflowRepository {
	return &workflowRepository{pool: pool}
}

func (r *workflowRepository) ListByDate(ctx context.Context, dateID string) ([]domain.WorkflowStep, error) {
	const query = `
        SELECT id, date_id, stage, status, attempts, notes, started_at, completed_at, updated_at
        FROM curation_workflow WHERE date_id=$1`
	rows, err := r.pool.Query(ctx, query, dateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.WorkflowStep
	for rows.Next() {
		var step domain.WorkflowStep
		if err := rows.Scan(
			&step.ID,
			&step.DateID,
			&step.Stage,
			&step.Status,
			&step.Attempts,
			&step.Notes,
			&step.StartedAt,
			&step.CompletedAt,
			&step.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, step)
	}
	return result, rows.Err()
}

// Upsert writes the stage row keyed by (date_id, stage).
func (r *workflowRepository) Upsert(ctx context.Context, step *domain.WorkflowStep) error {
	const query = `
        INSERT INTO curation_workflow (date_id, stage, status, attempts, notes, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        ON CONFLICT (date_id, stage) DO UPDATE SET status=EXCLUDED.status, attempts=EXCLUDED.attempts,
            notes=EXCLUDED.notes, started_at=EXCLUDED.started_at, completed_at=EXCLUDED.completed_at, updated_at=NOW()
        RETURNING id, updated_at`
	return r.pool.QueryRow(ctx, query,
		step.DateID,
		step.Stage,
		step.Status,
		step.Attempts,
		step.Notes,
		step.StartedAt,
		step.CompletedAt,
	).Scan(&step.ID, &step.UpdatedAt)
}
