package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// PasswordResetRepository manages one-time tokens for password resets and email verification.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *domain.PasswordResetToken) error
	GetByToken(ctx context.Context, token string, purpose domain.TokenPurpose) (*domain.PasswordResetToken, error)
	MarkUsed(ctx context.Context, id string) error
}

type passwordResetRepository struct {
	pool *pgxpool.Pool
}

// NewPasswordResetRepository constructs repository.
func NewPasswordResetRepository(pool *pgxpool.Pool) PasswordResetRepository {
	return &passwordResetRepository{pool: pool}
}

func (r *passwordResetRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	const query = `
        INSERT INTO auth_tokens (subject_type, subject_id, purpose, token, expires_at)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		token.SubjectType,
		token.SubjectID,
		token.Purpose,
		token.Token,
		token.ExpiresAt,
	).Scan(&token.ID, &token.CreatedAt)
}

func (r *passwordResetRepository) GetByToken(ctx context.Context, tokenStr string, purpose domain.TokenPurpose) (*domain.PasswordResetToken, error) {
	const query = `
        SELECT id, subject_type, subject_id, purpose, token, expires_at, used_at, created_at
        FROM auth_tokens WHERE token=$1 AND purpose=$2`
	var token domain.PasswordResetToken
	if err := r.pool.QueryRow(ctx, query, tokenStr, purpose).Scan(
		&token.ID,
		&token.SubjectType,
		&token.SubjectID,
		&token.Purpose,
		&token.Token,
		&token.ExpiresAt,
		&token.UsedAt,
		&token.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &token, nil
}

// MarkUsed stamps the token once; a second call reports pgx.ErrNoRows.
func (r *passwordResetRepository) MarkUsed(ctx context.Context, id string) error {
	const query = `
        UPDATE auth_tokens SET used_at=NOW()
        WHERE id=$1 AND used_at IS NULL`
	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
