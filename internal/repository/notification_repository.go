package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// NotificationFilter narrows the admin notification listing.
type NotificationFilter struct {
	Status  *domain.NotificationStatus
	Channel *domain.NotificationChannel
	Trigger *domain.NotificationTrigger
	Limit   int
	Offset  int
}

// NotificationRepository persists outbound notifications and their delivery state.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	Update(ctx context.Context, n *domain.Notification) error
	GetByID(ctx context.Context, id string) (*domain.Notification, error)
	List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, int, error)
	Delete(ctx context.Context, id string) error
}

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

const notificationColumns = `id, channel, trigger_event, priority, recipient, subject, body, status, attempts,
        last_error, metadata, created_by, sent_at, read_at, created_at, updated_at`

func (r *notificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	const query = `
        INSERT INTO admin_notifications (channel, trigger_event, priority, recipient, subject, body, status,
            attempts, metadata, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        RETURNING id, created_at, updated_at`
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		n.Channel,
		n.Trigger,
		n.Priority,
		n.Recipient,
		n.Subject,
		n.Body,
		n.Status,
		n.Attempts,
		n.Metadata,
		n.CreatedBy,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
}

func (r *notificationRepository) Update(ctx context.Context, n *domain.Notification) error {
	const query = `
        UPDATE admin_notifications SET status=$1, attempts=$2, last_error=$3, sent_at=$4, read_at=$5,
            metadata=$6, updated_at=NOW()
        WHERE id=$7
        RETURNING updated_at`
	if n.Metadata == nil {
		n.Metadata = map[string]any{}
	}
	return r.pool.QueryRow(ctx, query,
		n.Status,
		n.Attempts,
		n.LastError,
		n.SentAt,
		n.ReadAt,
		n.Metadata,
		n.ID,
	).Scan(&n.UpdatedAt)
}

func (r *notificationRepository) GetByID(ctx context.Context, id string) (*domain.Notification, error) {
	return scanNotification(r.pool.QueryRow(ctx,
		`SELECT `+notificationColumns+` FROM admin_notifications WHERE id=$1`, id))
}

func (r *notificationRepository) List(ctx context.Context, filter NotificationFilter) ([]domain.Notification, int, error) {
	var where whereClause
	if filter.Status != nil {
		where.add("status=$%d", *filter.Status)
	}
	if filter.Channel != nil {
		where.add("channel=$%d", *filter.Channel)
	}
	if filter.Trigger != nil {
		where.add("trigger_event=$%d", *filter.Trigger)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM admin_notifications`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM admin_notifications%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		notificationColumns, where.String(), limit, offset)
	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *n)
	}
	return result, total, rows.Err()
}

func (r *notificationRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM admin_notifications WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanNotification(row rowScanner) (*domain.Notification, error) {
	var n domain.Notification
	if err := row.Scan(
		&n.ID,
		&n.Channel,
		&n.Trigger,
		&n.Priority,
		&n.Recipient,
		&n.Subject,
		&n.Body,
		&n.Status,
		&n.Attempts,
		&n.LastError,
		&n.Metadata,
		&n.CreatedBy,
		&n.SentAt,
		&n.ReadAt,
		&n.CreatedAt,
		&n.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &n, nil
}
