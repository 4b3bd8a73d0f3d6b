package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/persistence"
)

// SlotFilter narrows slot listings for the owner and for search.
type SlotFilter struct {
	UserID        *string
	ExcludeUserID *string
	DateType      *domain.DateMode
	Status        *domain.SlotStatus
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// AvailabilityRepository persists availability slots.
type AvailabilityRepository interface {
	CreateSeries(ctx context.Context, slots []domain.AvailabilitySlot) ([]domain.AvailabilitySlot, error)
	Update(ctx context.Context, slot *domain.AvailabilitySlot) error
	GetByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error)
	List(ctx context.Context, filter SlotFilter) ([]domain.AvailabilitySlot, int, error)
	FindOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]domain.AvailabilitySlot, error)
	SoftDelete(ctx context.Context, id string) error
}

type availabilityRepository struct {
	pool *pgxpool.Pool
}

// NewAvailabilityRepository builds repository.
func NewAvailabilityRepository(pool *pgxpool.Pool) AvailabilityRepository {
	return &availabilityRepository{pool: pool}
}

const slotColumns = `id, user_id, starts_at, ends_at, timezone, date_type, status, title, notes, location_preference,
        capacity, recurrence, recurrence_end, series_id, buffer_minutes, prep_minutes, cancellation_policy,
        is_deleted, created_at, updated_at`

// CreateSeries inserts every slot of a series atomically.
func (r *availabilityRepository) CreateSeries(ctx context.Context, slots []domain.AvailabilitySlot) ([]domain.AvailabilitySlot, error) {
	const query = `
        INSERT INTO availability_slots (user_id, starts_at, ends_at, timezone, date_type, status, title, notes,
            location_preference, capacity, recurrence, recurrence_end, series_id, buffer_minutes, prep_minutes,
            cancellation_policy)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`

	created := make([]domain.AvailabilitySlot, 0, len(slots))
	err := persistence.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, slot := range slots {
			if err := tx.QueryRow(ctx, query,
				slot.UserID,
				slot.StartsAt,
				slot.EndsAt,
				slot.Timezone,
				slot.DateType,
				slot.Status,
				slot.Title,
				slot.Notes,
				slot.LocationPreference,
				slot.Capacity,
				slot.Recurrence,
				slot.RecurrenceEnd,
				slot.SeriesID,
				slot.BufferMinutes,
				slot.PrepMinutes,
				slot.CancellationPolicy,
			).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt); err != nil {
				return err
			}
			created = append(created, slot)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *availabilityRepository) Update(ctx context.Context, slot *domain.AvailabilitySlot) error {
	const query = `
        UPDATE availability_slots SET starts_at=$1, ends_at=$2, timezone=$3, date_type=$4, status=$5, title=$6,
            notes=$7, location_preference=$8, capacity=$9, buffer_minutes=$10, prep_minutes=$11,
            cancellation_policy=$12, updated_at=NOW()
        WHERE id=$13 AND is_deleted=FALSE
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		slot.StartsAt,
		slot.EndsAt,
		slot.Timezone,
		slot.DateType,
		slot.Status,
		slot.Title,
		slot.Notes,
		slot.LocationPreference,
		slot.Capacity,
		slot.BufferMinutes,
		slot.PrepMinutes,
		slot.CancellationPolicy,
		slot.ID,
	).Scan(&slot.UpdatedAt)
}

func (r *availabilityRepository) GetByID(ctx context.Context, id string) (*domain.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots WHERE id=$1 AND is_deleted=FALSE`
	return scanSlot(r.pool.QueryRow(ctx, query, id))
}

func (r *availabilityRepository) List(ctx context.Context, filter SlotFilter) ([]domain.AvailabilitySlot, int, error) {
	var where whereClause
	where.addRaw("is_deleted=FALSE")
	if filter.UserID != nil {
		where.add("user_id=$%d", *filter.UserID)
	}
	if filter.ExcludeUserID != nil {
		where.add("user_id<>$%d", *filter.ExcludeUserID)
	}
	if filter.DateType != nil {
		where.add("date_type=$%d", *filter.DateType)
	}
	if filter.Status != nil {
		where.add("status=$%d", *filter.Status)
	}
	if filter.From != nil {
		where.add("starts_at >= $%d", *filter.From)
	}
	if filter.To != nil {
		where.add("starts_at <= $%d", *filter.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM availability_slots`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM availability_slots%s ORDER BY starts_at ASC LIMIT %d OFFSET %d`,
		slotColumns, where.String(), limit, offset)
	slots, err := r.query(ctx, query, where.args...)
	return slots, total, err
}

// FindOverlapping returns the user's live slots intersecting [start, end).
func (r *availabilityRepository) FindOverlapping(ctx context.Context, userID string, start, end time.Time, excludeID string) ([]domain.AvailabilitySlot, error) {
	query := `SELECT ` + slotColumns + ` FROM availability_slots
        WHERE user_id=$1 AND is_deleted=FALSE AND status=$2
          AND starts_at < $4 AND ends_at > $3
          AND ($5 = '' OR id::text <> $5)
        ORDER BY starts_at ASC`
	return r.query(ctx, query, userID, domain.SlotStatusActive, start, end, excludeID)
}

func (r *availabilityRepository) SoftDelete(ctx context.Context, id string) error {
	const query = `
        UPDATE availability_slots SET is_deleted=TRUE, status=$1, updated_at=NOW()
        WHERE id=$2 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query, domain.SlotStatusDeleted, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *availabilityRepository) query(ctx context.Context, query string, args ...any) ([]domain.AvailabilitySlot, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *slot)
	}
	return result, rows.Err()
}

func scanSlot(row rowScanner) (*domain.AvailabilitySlot, error) {
	var s domain.AvailabilitySlot
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StartsAt,
		&s.EndsAt,
		&s.Timezone,
		&s.DateType,
		&s.Status,
		&s.Title,
		&s.Notes,
		&s.LocationPreference,
		&s.Capacity,
		&s.Recurrence,
		&s.RecurrenceEnd,
		&s.SeriesID,
		&s.BufferMinutes,
		&s.PrepMinutes,
		&s.CancellationPolicy,
		&s.IsDeleted,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
