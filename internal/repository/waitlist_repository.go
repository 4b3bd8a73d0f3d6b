package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// WaitlistFilter captures admin listing parameters.
type WaitlistFilter struct {
	Status     *domain.WaitlistStatus
	SearchTerm *string
	Limit      int
	Offset     int
}

// WaitlistRepository persists pre-launch signups.
type WaitlistRepository interface {
	Create(ctx context.Context, entry *domain.WaitlistEntry) error
	GetByID(ctx context.Context, id string) (*domain.WaitlistEntry, error)
	GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error)
	UpdateStatus(ctx context.Context, entry *domain.WaitlistEntry, from domain.WaitlistStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filter WaitlistFilter) ([]domain.WaitlistEntry, int, error)
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[domain.WaitlistStatus]int, error)
}

type waitlistRepository struct {
	pool *pgxpool.Pool
}

// NewWaitlistRepository builds repository.
func NewWaitlistRepository(pool *pgxpool.Pool) WaitlistRepository {
	return &waitlistRepository{pool: pool}
}

const waitlistColumns = `id, name, email, phone, status, source, city, country, latitude, longitude,
        ip_address, user_agent, invited_at, created_at, updated_at`

func (r *waitlistRepository) Create(ctx context.Context, entry *domain.WaitlistEntry) error {
	const query = `
        INSERT INTO waitlist (name, email, phone, status, source, city, country, latitude, longitude, ip_address, user_agent)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		entry.Name,
		entry.Email,
		entry.Phone,
		entry.Status,
		entry.Source,
		entry.City,
		entry.Country,
		entry.Latitude,
		entry.Longitude,
		entry.IPAddress,
		entry.UserAgent,
	).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
}

func (r *waitlistRepository) GetByID(ctx context.Context, id string) (*domain.WaitlistEntry, error) {
	return scanWaitlist(r.pool.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist WHERE id=$1`, id))
}

func (r *waitlistRepository) GetByEmail(ctx context.Context, email string) (*domain.WaitlistEntry, error) {
	return scanWaitlist(r.pool.QueryRow(ctx, `SELECT `+waitlistColumns+` FROM waitlist WHERE email=$1`, email))
}

// UpdateStatus applies the new status only if the row is still in from.
func (r *waitlistRepository) UpdateStatus(ctx context.Context, entry *domain.WaitlistEntry, from domain.WaitlistStatus) error {
	const query = `
        UPDATE waitlist SET status=$1, invited_at=$2, updated_at=NOW()
        WHERE id=$3 AND status=$4
        RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, entry.Status, entry.InvitedAt, entry.ID, from).Scan(&entry.UpdatedAt)
}

func (r *waitlistRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM waitlist WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *waitlistRepository) List(ctx context.Context, filter WaitlistFilter) ([]domain.WaitlistEntry, int, error) {
	var where whereClause
	if filter.Status != nil {
		where.add("status=$%d", *filter.Status)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		where.add("(LOWER(email) LIKE $%[1]d OR LOWER(name) LIKE $%[1]d)", search)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM waitlist%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		waitlistColumns, where.String(), limit, offset)
	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.WaitlistEntry
	for rows.Next() {
		entry, err := scanWaitlist(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *entry)
	}
	return result, total, rows.Err()
}

func (r *waitlistRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM waitlist`).Scan(&count)
	return count, err
}

func (r *waitlistRepository) CountByStatus(ctx context.Context) (map[domain.WaitlistStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM waitlist GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[domain.WaitlistStatus]int{}
	for rows.Next() {
		var status domain.WaitlistStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

func scanWaitlist(row rowScanner) (*domain.WaitlistEntry, error) {
	var entry domain.WaitlistEntry
	if err := row.Scan(
		&entry.ID,
		&entry.Name,
		&entry.Email,
		&entry.Phone,
		&entry.Status,
		&entry.Source,
		&entry.City,
		&entry.Country,
		&entry.Latitude,
		&entry.Longitude,
		&entry.IPAddress,
		&entry.UserAgent,
		&entry.InvitedAt,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
