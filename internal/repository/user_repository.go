package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
	"github.com/datifyy/datifyy-service/internal/persistence"
)

// UserFilter captures admin search parameters for end-users.
type UserFilter struct {
	Status     *domain.UserStatus
	Verified   *bool
	SearchTerm *string
	Limit      int
	Offset     int
}

// UserRepository defines persistence access for end-users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]domain.User, int, error)
	ChangeStatus(ctx context.Context, change *domain.UserStatusChange) error
	StatusHistory(ctx context.Context, userID string) ([]domain.UserStatusChange, error)
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, gender, is_admin, is_active,
        is_verified, account_status, last_login_at, created_at, updated_at`

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO datifyy_users_login (email, password_hash, first_name, last_name, gender, is_admin, is_active, is_verified, account_status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Gender,
		user.IsAdmin,
		user.IsActive,
		user.IsVerified,
		user.Status,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE datifyy_users_login SET email=$1, password_hash=$2, first_name=$3, last_name=$4, gender=$5,
            is_admin=$6, is_active=$7, is_verified=$8, account_status=$9, last_login_at=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		user.Email,
		user.PasswordHash,
		user.FirstName,
		user.LastName,
		user.Gender,
		user.IsAdmin,
		user.IsActive,
		user.IsVerified,
		user.Status,
		user.LastLoginAt,
		user.ID,
	).Scan(&user.UpdatedAt)
	return err
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM datifyy_users_login WHERE id=$1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM datifyy_users_login WHERE email=$1`
	return scanUser(r.pool.QueryRow(ctx, query, domain.NormalizeEmail(email)))
}

func (r *userRepository) List(ctx context.Context, filter UserFilter) ([]domain.User, int, error) {
	var where whereClause
	if filter.Status != nil {
		where.add("account_status=$%d", *filter.Status)
	}
	if filter.Verified != nil {
		where.add("is_verified=$%d", *filter.Verified)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		where.add("(LOWER(email) LIKE $%[1]d OR LOWER(first_name || ' ' || last_name) LIKE $%[1]d)", search)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datifyy_users_login`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 20)
	query := fmt.Sprintf(`SELECT %s FROM datifyy_users_login%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		userColumns, where.String(), limit, offset)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *user)
	}
	return result, total, rows.Err()
}

// ChangeStatus updates the account status and writes the audit row in one transaction.
func (r *userRepository) ChangeStatus(ctx context.Context, change *domain.UserStatusChange) error {
	const update = `
        UPDATE datifyy_users_login SET account_status=$1, is_active=$2, updated_at=NOW()
        WHERE id=$3 AND account_status=$4`
	const insert = `
        INSERT INTO user_status_history (user_id, admin_id, old_status, new_status, reason)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	active := change.NewStatus != domain.UserStatusBanned && change.NewStatus != domain.UserStatusDeactivated

	return persistence.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, update, change.NewStatus, active, change.UserID, change.OldStatus)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return pgx.ErrNoRows
		}
		return tx.QueryRow(ctx, insert,
			change.UserID,
			change.AdminID,
			change.OldStatus,
			change.NewStatus,
			change.Reason,
		).Scan(&change.ID, &change.CreatedAt)
	})
}

func (r *userRepository) StatusHistory(ctx context.Context, userID string) ([]domain.UserStatusChange, error) {
	const query = `
        SELECT id, user_id, admin_id, old_status, new_status, reason, created_at
        FROM user_status_history WHERE user_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserStatusChange
	for rows.Next() {
		var change domain.UserStatusChange
		if err := rows.Scan(
			&change.ID,
			&change.UserID,
			&change.AdminID,
			&change.OldStatus,
			&change.NewStatus,
			&change.Reason,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}

func scanUser(row rowScanner) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.FirstName,
		&user.LastName,
		&user.Gender,
		&user.IsAdmin,
		&user.IsActive,
		&user.IsVerified,
		&user.Status,
		&user.LastLoginAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
