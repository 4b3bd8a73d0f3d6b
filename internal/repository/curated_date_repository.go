package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/persistence"
)

// CuratedDateFilter captures listing parameters for curated dates.
type CuratedDateFilter struct {
	UserID   *string
	Statuses []domain.DateStatus
	From     *time.Time
	To       *time.Time
	Limit    int
	Offset   int
}

// DateSummary counts a user's dates by bucket.
type DateSummary struct {
	Upcoming            int `json:"upcoming"`
	PendingConfirmation int `json:"pending_confirmation"`
	Completed           int `json:"completed"`
	Cancelled           int `json:"cancelled"`
	Total               int `json:"total"`
}

// CuratedDateRepository persists curated dates and their workflow seed.
type CuratedDateRepository interface {
	Create(ctx context.Context, date *domain.CuratedDate, workflow []domain.WorkflowStep) error
	Update(ctx context.Context, date *domain.CuratedDate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.CuratedDate, error)
	List(ctx context.Context, filter CuratedDateFilter) ([]domain.CuratedDate, int, error)
	FindConflicts(ctx context.Context, userIDs []string, start, end time.Time, excludeID string) ([]domain.CuratedDate, error)
	CountActiveForUser(ctx context.Context, userID string, from, to time.Time) (int, error)
	SummaryForUser(ctx context.Context, userID string, now time.Time) (DateSummary, error)
}

type curatedDateRepository struct {
	pool *pgxpool.Pool
}

// NewCuratedDateRepository instantiates repository.
func NewCuratedDateRepository(pool *pgxpool.Pool) CuratedDateRepository {
	return &curatedDateRepository{pool: pool}
}

const curatedDateColumns = `id, user1_id, user2_id, date_time, duration_minutes, mode, location_name, location_address,
        location_latitude, location_longitude, meeting_link, status, admin_notes, topics, user1_confirmed_at,
        user2_confirmed_at, cancelled_by, cancelled_at, cancellation_reason, cancellation_category, completed_at,
        tokens_cost_user1, tokens_cost_user2, compatibility_score, match_reason, created_by_admin, updated_by_admin,
        created_at, updated_at`

// activeDateStatuses are the statuses that still occupy a participant's calendar.
var activeDateStatuses = []domain.DateStatus{
	domain.DateStatusPending,
	domain.DateStatusUser1Confirmed,
	domain.DateStatusUser2Confirmed,
	domain.DateStatusBothConfirmed,
}

func (r *curatedDateRepository) Create(ctx context.Context, date *domain.CuratedDate, workflow []domain.WorkflowStep) error {
	const insert = `
        INSERT INTO curated_dates (user1_id, user2_id, date_time, duration_minutes, mode, location_name, location_address,
            location_latitude, location_longitude, meeting_link, status, admin_notes, topics, tokens_cost_user1,
            tokens_cost_user2, compatibility_score, match_reason, created_by_admin)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        RETURNING id, created_at, updated_at`
	const step = `
        INSERT INTO curation_workflow (date_id, stage, status, attempts, notes, started_at, completed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, updated_at`
	if date.Topics == nil {
		date.Topics = []string{}
	}

	// the date and its seeded workflow are written together
	return persistence.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insert,
			date.User1ID,
			date.User2ID,
			date.DateTime,
			date.DurationMinutes,
			date.Mode,
			date.LocationName,
			date.LocationAddress,
			date.LocationLatitude,
			date.LocationLongitude,
			date.MeetingLink,
			date.Status,
			date.AdminNotes,
			date.Topics,
			date.TokensCostUser1,
			date.TokensCostUser2,
			date.CompatibilityScore,
			date.MatchReason,
			date.CreatedByAdmin,
		).Scan(&date.ID, &date.CreatedAt, &date.UpdatedAt); err != nil {
			return err
		}

		for i := range workflow {
			workflow[i].DateID = date.ID
			if err := tx.QueryRow(ctx, step,
				date.ID,
				workflow[i].Stage,
				workflow[i].Status,
				workflow[i].Attempts,
				workflow[i].Notes,
				workflow[i].StartedAt,
				workflow[i].CompletedAt,
			).Scan(&workflow[i].ID, &workflow[i].UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *curatedDateRepository) Update(ctx context.Context, date *domain.CuratedDate) error {
	const query = `
        UPDATE curated_dates SET date_time=$1, duration_minutes=$2, mode=$3, location_name=$4, location_address=$5,
            location_latitude=$6, location_longitude=$7, meeting_link=$8, status=$9, admin_notes=$10, topics=$11,
            user1_confirmed_at=$12, user2_confirmed_at=$13, cancelled_by=$14, cancelled_at=$15, cancellation_reason=$16,
            cancellation_category=$17, completed_at=$18, tokens_cost_user1=$19, tokens_cost_user2=$20,
            compatibility_score=$21, match_reason=$22, updated_by_admin=$23, updated_at=NOW()
        WHERE id=$24
        RETURNING updated_at`
	if date.Topics == nil {
		date.Topics = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		date.DateTime,
		date.DurationMinutes,
		date.Mode,
		date.LocationName,
		date.LocationAddress,
		date.LocationLatitude,
		date.LocationLongitude,
		date.MeetingLink,
		date.Status,
		date.AdminNotes,
		date.Topics,
		date.User1ConfirmedAt,
		date.User2ConfirmedAt,
		date.CancelledBy,
		date.CancelledAt,
		date.CancellationReason,
		date.CancellationCategory,
		date.CompletedAt,
		date.TokensCostUser1,
		date.TokensCostUser2,
		date.CompatibilityScore,
		date.MatchReason,
		date.UpdatedByAdmin,
		date.ID,
	).Scan(&date.UpdatedAt)
}

func (r *curatedDateRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM curated_dates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *curatedDateRepository) GetByID(ctx context.Context, id string) (*domain.CuratedDate, error) {
	return scanCuratedDate(r.pool.QueryRow(ctx, `SELECT `+curatedDateColumns+` FROM curated_dates WHERE id=$1`, id))
}

func (r *curatedDateRepository) List(ctx context.Context, filter CuratedDateFilter) ([]domain.CuratedDate, int, error) {
	var where whereClause
	if filter.UserID != nil {
		where.add("(user1_id=$%[1]d OR user2_id=$%[1]d)", *filter.UserID)
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			where.args = append(where.args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(where.args))
		}
		where.addRaw(fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.From != nil {
		where.add("date_time >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("date_time <= $%d", *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM curated_dates`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM curated_dates%s ORDER BY date_time DESC LIMIT %d OFFSET %d`,
		curatedDateColumns, where.String(), limit, offset)
	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	dates, err := scanCuratedDates(rows)
	return dates, total, err
}

// FindConflicts returns active dates of any of userIDs that overlap [start, end).
func (r *curatedDateRepository) FindConflicts(ctx context.Context, userIDs []string, start, end time.Time, excludeID string) ([]domain.CuratedDate, error) {
	query := `SELECT ` + curatedDateColumns + ` FROM curated_dates
        WHERE (user1_id = ANY($1) OR user2_id = ANY($1))
          AND status::text = ANY($2)
          AND date_time < $3
          AND date_time + make_interval(mins => duration_minutes) > $4
          AND ($5 = '' OR id::text <> $5)
        ORDER BY date_time ASC`
	rows, err := r.pool.Query(ctx, query, userIDs, statusStrings(activeDateStatuses), end, start, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanCuratedDates(rows)
}

func (r *curatedDateRepository) CountActiveForUser(ctx context.Context, userID string, from, to time.Time) (int, error) {
	const query = `
        SELECT COUNT(*) FROM curated_dates
        WHERE (user1_id=$1 OR user2_id=$1) AND status::text = ANY($2) AND date_time >= $3 AND date_time < $4`
	var count int
	err := r.pool.QueryRow(ctx, query, userID, statusStrings(activeDateStatuses), from, to).Scan(&count)
	return count, err
}

func (r *curatedDateRepository) SummaryForUser(ctx context.Context, userID string, now time.Time) (DateSummary, error) {
	const query = `
        SELECT
            COUNT(*) FILTER (WHERE status IN ('pending','user1_confirmed','user2_confirmed','both_confirmed') AND date_time > $2),
            COUNT(*) FILTER (WHERE (status = 'pending')
                OR (status = 'user1_confirmed' AND user2_id = $1)
                OR (status = 'user2_confirmed' AND user1_id = $1)),
            COUNT(*) FILTER (WHERE status = 'completed'),
            COUNT(*) FILTER (WHERE status = 'cancelled'),
            COUNT(*)
        FROM curated_dates WHERE user1_id=$1 OR user2_id=$1`
	var s DateSummary
	err := r.pool.QueryRow(ctx, query, userID, now).Scan(
		&s.Upcoming,
		&s.PendingConfirmation,
		&s.Completed,
		&s.Cancelled,
		&s.Total,
	)
	return s, err
}

func statusStrings(statuses []domain.DateStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func scanCuratedDates(rows pgx.Rows) ([]domain.CuratedDate, error) {
	var result []domain.CuratedDate
	for rows.Next() {
		date, err := scanCuratedDate(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *date)
	}
	return result, rows.Err()
}

func scanCuratedDate(row rowScanner) (*domain.CuratedDate, error) {
	var date domain.CuratedDate
	if err := row.Scan(
		&date.ID,
		&date.User1ID,
		&date.User2ID,
		&date.DateTime,
		&date.DurationMinutes,
		&date.Mode,
		&date.LocationName,
		&date.LocationAddress,
		&date.LocationLatitude,
		&date.LocationLongitude,
		&date.MeetingLink,
		&date.Status,
		&date.AdminNotes,
		&date.Topics,
		&date.User1ConfirmedAt,
		&date.User2ConfirmedAt,
		&date.CancelledBy,
		&date.CancelledAt,
		&date.CancellationReason,
		&date.CancellationCategory,
		&date.CompletedAt,
		&date.TokensCostUser1,
		&date.TokensCostUser2,
		&date.CompatibilityScore,
		&date.MatchReason,
		&date.CreatedByAdmin,
		&date.UpdatedByAdmin,
		&date.CreatedAt,
		&date.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &date, nil
}
