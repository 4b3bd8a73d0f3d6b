package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/persistence"
)

var (
	// ErrSlotFull is returned by Create when the slot already holds capacity active bookings.
	ErrSlotFull = errors.New("slot is fully booked")

	// ErrAlreadyBooked is returned by Create when the booker already holds an active booking on the slot.
	ErrAlreadyBooked = errors.New("active booking already exists")
)

// BookingFilter selects bookings made by or made against a user.
type BookingFilter struct {
	BookerID    *string
	SlotOwnerID *string
	Status      *domain.BookingStatus
	Limit       int
	Offset      int
}

// BookingRepository persists slot bookings.
type BookingRepository interface {
	Create(ctx context.Context, booking *domain.AvailabilityBooking, capacity int) error
	Update(ctx context.Context, booking *domain.AvailabilityBooking) error
	GetByID(ctx context.Context, id string) (*domain.AvailabilityBooking, error)
	List(ctx context.Context, filter BookingFilter) ([]domain.AvailabilityBooking, int, error)
	CountActiveForSlot(ctx context.Context, slotID string) (int, error)
	HasActiveBooking(ctx context.Context, slotID, bookerID string) (bool, error)
	CancelActiveForSlot(ctx context.Context, slotID, cancelledBy, reason string) (int64, error)
}

type bookingRepository struct {
	pool *pgxpool.Pool
}

// NewBookingRepository builds repository.
func NewBookingRepository(pool *pgxpool.Pool) BookingRepository {
	return &bookingRepository{pool: pool}
}

const bookingColumns = `id, slot_id, slot_owner_id, booker_id, status, activity, notes, cancellation_reason,
        cancelled_by, within_policy, confirmed_at, cancelled_at, completed_at, created_at, updated_at`

var activeBookingStatuses = []string{string(domain.BookingPending), string(domain.BookingConfirmed)}

// Create inserts the booking while holding a row lock on its slot, so concurrent
// requests for the last place see each other's rows.
func (r *bookingRepository) Create(ctx context.Context, booking *domain.AvailabilityBooking, capacity int) error {
	const lock = `SELECT id FROM availability_slots WHERE id=$1 FOR UPDATE`
	const counts = `
        SELECT COUNT(*), COUNT(*) FILTER (WHERE booker_id=$2)
        FROM availability_bookings
        WHERE slot_id=$1 AND status::text = ANY($3)`
	const insert = `
        INSERT INTO availability_bookings (slot_id, slot_owner_id, booker_id, status, activity, notes)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`

	return persistence.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		var slotID string
		if err := tx.QueryRow(ctx, lock, booking.SlotID).Scan(&slotID); err != nil {
			return err
		}
		var active, mine int
		if err := tx.QueryRow(ctx, counts, booking.SlotID, booking.BookerID, activeBookingStatuses).Scan(&active, &mine); err != nil {
			return err
		}
		if mine > 0 {
			return ErrAlreadyBooked
		}
		if active >= capacity {
			return ErrSlotFull
		}
		return tx.QueryRow(ctx, insert,
			booking.SlotID,
			booking.SlotOwnerID,
			booking.BookerID,
			booking.Status,
			booking.Activity,
			booking.Notes,
		).Scan(&booking.ID, &booking.CreatedAt, &booking.UpdatedAt)
	})
}

func (r *bookingRepository) Update(ctx context.Context, booking *domain.AvailabilityBooking) error {
	const query = `
        UPDATE availability_bookings SET status=$1, notes=$2, cancellation_reason=$3, cancelled_by=$4,
            within_policy=$5, confirmed_at=$6, cancelled_at=$7, completed_at=$8, updated_at=NOW()
        WHERE id=$9
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query,
		booking.Status,
		booking.Notes,
		booking.CancellationReason,
		booking.CancelledBy,
		booking.WithinPolicy,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.CompletedAt,
		booking.ID,
	).Scan(&booking.UpdatedAt)
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*domain.AvailabilityBooking, error) {
	return scanBooking(r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM availability_bookings WHERE id=$1`, id))
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.AvailabilityBooking, int, error) {
	var where whereClause
	if filter.BookerID != nil {
		where.add("booker_id=$%d", *filter.BookerID)
	}
	if filter.SlotOwnerID != nil {
		where.add("slot_owner_id=$%d", *filter.SlotOwnerID)
	}
	if filter.Status != nil {
		where.add("status=$%d", *filter.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM availability_bookings`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM availability_bookings%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		bookingColumns, where.String(), limit, offset)
	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.AvailabilityBooking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *booking)
	}
	return result, total, rows.Err()
}

func (r *bookingRepository) CountActiveForSlot(ctx context.Context, slotID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM availability_bookings WHERE slot_id=$1 AND status::text = ANY($2)`,
		slotID, activeBookingStatuses).Scan(&count)
	return count, err
}

func (r *bookingRepository) HasActiveBooking(ctx context.Context, slotID, bookerID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM availability_bookings WHERE slot_id=$1 AND booker_id=$2 AND status::text = ANY($3))`,
		slotID, bookerID, activeBookingStatuses).Scan(&exists)
	return exists, err
}

// CancelActiveForSlot cancels every live booking on a slot that is going away.
func (r *bookingRepository) CancelActiveForSlot(ctx context.Context, slotID, cancelledBy, reason string) (int64, error) {
	const query = `
        UPDATE availability_bookings SET status=$1, cancellation_reason=$2, cancelled_by=$3, cancelled_at=NOW(),
            within_policy=TRUE, updated_at=NOW()
        WHERE slot_id=$4 AND status::text = ANY($5)`
	cmd, err := r.pool.Exec(ctx, query, domain.BookingCancelled, reason, cancelledBy, slotID, activeBookingStatuses)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanBooking(row rowScanner) (*domain.AvailabilityBooking, error) {
	var b domain.AvailabilityBooking
	if err := row.Scan(
		&b.ID,
		&b.SlotID,
		&b.SlotOwnerID,
		&b.BookerID,
		&b.Status,
		&b.Activity,
		&b.Notes,
		&b.CancellationReason,
		&b.CancelledBy,
		&b.WithinPolicy,
		&b.ConfirmedAt,
		&b.CancelledAt,
		&b.CompletedAt,
		&b.CreatedAt,
		&b.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}
