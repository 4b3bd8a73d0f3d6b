package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// DateFeedbackRepository persists participant feedback for completed dates.
type DateFeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.DateFeedback) error
	Update(ctx context.Context, feedback *domain.DateFeedback) error
	Get(ctx context.Context, dateID, userID string) (*domain.DateFeedback, error)
	ListByDate(ctx context.Context, dateID string) ([]domain.DateFeedback, error)
}

type dateFeedbackRepository struct {
	pool *pgxpool.Pool
}

// NewDateFeedbackRepository builds repository.
func NewDateFeedbackRepository(pool *pgxpool.Pool) DateFeedbackRepository {
	return &dateFeedbackRepository{pool: pool}
}

const feedbackColumns = `id, date_id, user_id, overall_rating, partner_rating, venue_rating, would_meet_again,
        comments, safety_concern, safety_concern_message, created_at, updated_at`

func (r *dateFeedbackRepository) Create(ctx context.Context, feedback *domain.DateFeedback) error {
	const query = `
        INSERT INTO curated_date_feedback (date_id, user_id, overall_rating, partner_rating, venue_rating,
            would_meet_again, comments, safety_concern, safety_concern_message)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		feedback.DateID,
		feedback.UserID,
		feedback.OverallRating,
		feedback.PartnerRating,
		feedback.VenueRating,
		feedback.WouldMeetAgain,
		feedback.Comments,
		feedback.SafetyConcern,
		feedback.SafetyConcernMsg,
	).Scan(&feedback.ID, &feedback.CreatedAt, &feedback.UpdatedAt)
}

func (r *dateFeedbackRepository) Update(ctx context.Context, feedback *domain.DateFeedback) error {
	const query = `
        UPDATE curated_date_feedback SET overall_rating=$1, partner_rating=$2, venue_rating=$3, would_meet_again=$4,
            comments=$5, safety_concern=$6, safety_concern_message=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		feedback.OverallRating,
		feedback.PartnerRating,
		feedback.VenueRating,
		feedback.WouldMeetAgain,
		feedback.Comments,
		feedback.SafetyConcern,
		feedback.SafetyConcernMsg,
		feedback.ID,
	).Scan(&feedback.UpdatedAt)
}

func (r *dateFeedbackRepository) Get(ctx context.Context, dateID, userID string) (*domain.DateFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM curated_date_feedback WHERE date_id=$1 AND user_id=$2`
	return scanFeedback(r.pool.QueryRow(ctx, query, dateID, userID))
}

func (r *dateFeedbackRepository) ListByDate(ctx context.Context, dateID string) ([]domain.DateFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM curated_date_feedback WHERE date_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, dateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.DateFeedback
	for rows.Next() {
		feedback, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *feedback)
	}
	return result, rows.Err()
}

func scanFeedback(row rowScanner) (*domain.DateFeedback, error) {
	var f domain.DateFeedback
	if err := row.Scan(
		&f.ID,
		&f.DateID,
		&f.UserID,
		&f.OverallRating,
		&f.PartnerRating,
		&f.VenueRating,
		&f.WouldMeetAgain,
		&f.Comments,
		&f.SafetyConcern,
		&f.SafetyConcernMsg,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
