package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/datifyy/datifyy-service/internal/domain"
)

// AdminFilter defines admin listing parameters.
type AdminFilter struct {
	PermissionLevel *domain.AdminPermissionLevel
	Status          *domain.AdminAccountStatus
	Active          *bool
	SearchTerm      *string
	Limit           int
	Offset          int
}

// AdminRepository manages back-office accounts.
type AdminRepository interface {
	Create(ctx context.Context, admin *domain.AdminUser) error
	Update(ctx context.Context, admin *domain.AdminUser) error
	GetByID(ctx context.Context, id string) (*domain.AdminUser, error)
	GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error)
	List(ctx context.Context, filter AdminFilter) ([]domain.AdminUser, int, error)
	CountLocked(ctx context.Context) (int, error)
}

type adminRepository struct {
	pool *pgxpool.Pool
}

// NewAdminRepository constructs a Postgres repository for admin accounts.
func NewAdminRepository(pool *pgxpool.Pool) AdminRepository {
	return &adminRepository{pool: pool}
}

const adminColumns = `id, email, password_hash, first_name, last_name, permission_level, additional_permissions,
        account_status, is_active, phone, department, position, timezone, preferred_language, two_factor_enabled,
        failed_login_attempts, locked_at, lock_expires_at, last_login_at, last_login_ip, last_login_user_agent,
        last_active_at, login_count, last_password_change, password_expiry_date, must_change_password,
        created_by, updated_by, notes, created_at, updated_at`

func (r *adminRepository) Create(ctx context.Context, admin *domain.AdminUser) error {
	const query = `
        INSERT INTO datifyy_admin_users (email, password_hash, first_name, last_name, permission_level,
            additional_permissions, account_status, is_active, phone, department, position, timezone,
            preferred_language, last_password_change, password_expiry_date, must_change_password, created_by, notes)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
        RETURNING id, created_at, updated_at`
	if admin.AdditionalPermissions == nil {
		admin.AdditionalPermissions = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		admin.Email,
		admin.PasswordHash,
		admin.FirstName,
		admin.LastName,
		admin.PermissionLevel,
		admin.AdditionalPermissions,
		admin.AccountStatus,
		admin.IsActive,
		admin.Phone,
		admin.Department,
		admin.Position,
		admin.Timezone,
		admin.PreferredLanguage,
		admin.LastPasswordChange,
		admin.PasswordExpiryDate,
		admin.MustChangePassword,
		admin.CreatedBy,
		admin.Notes,
	).Scan(&admin.ID, &admin.CreatedAt, &admin.UpdatedAt)
}

func (r *adminRepository) Update(ctx context.Context, admin *domain.AdminUser) error {
	const query = `
        UPDATE datifyy_admin_users SET password_hash=$1, first_name=$2, last_name=$3, permission_level=$4,
            additional_permissions=$5, account_status=$6, is_active=$7, phone=$8, department=$9, position=$10,
            timezone=$11, preferred_language=$12, two_factor_enabled=$13, failed_login_attempts=$14, locked_at=$15,
            lock_expires_at=$16, last_login_at=$17, last_login_ip=$18, last_login_user_agent=$19, last_active_at=$20,
            login_count=$21, last_password_change=$22, password_expiry_date=$23, must_change_password=$24,
            updated_by=$25, notes=$26, updated_at=NOW()
        WHERE id=$27
        RETURNING updated_at`
	if admin.AdditionalPermissions == nil {
		admin.AdditionalPermissions = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		admin.PasswordHash,
		admin.FirstName,
		admin.LastName,
		admin.PermissionLevel,
		admin.AdditionalPermissions,
		admin.AccountStatus,
		admin.IsActive,
		admin.Phone,
		admin.Department,
		admin.Position,
		admin.Timezone,
		admin.PreferredLanguage,
		admin.TwoFactorEnabled,
		admin.FailedLoginAttempts,
		admin.LockedAt,
		admin.LockExpiresAt,
		admin.LastLoginAt,
		admin.LastLoginIP,
		admin.LastLoginUserAgent,
		admin.LastActiveAt,
		admin.LoginCount,
		admin.LastPasswordChange,
		admin.PasswordExpiryDate,
		admin.MustChangePassword,
		admin.UpdatedBy,
		admin.Notes,
		admin.ID,
	).Scan(&admin.UpdatedAt)
}

func (r *adminRepository) GetByID(ctx context.Context, id string) (*domain.AdminUser, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM datifyy_admin_users WHERE id=$1`, id))
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (*domain.AdminUser, error) {
	return scanAdmin(r.pool.QueryRow(ctx, `SELECT `+adminColumns+` FROM datifyy_admin_users WHERE email=$1`,
		domain.NormalizeEmail(email)))
}

func (r *adminRepository) List(ctx context.Context, filter AdminFilter) ([]domain.AdminUser, int, error) {
	var where whereClause
	if filter.PermissionLevel != nil {
		where.add("permission_level=$%d", *filter.PermissionLevel)
	}
	if filter.Status != nil {
		where.add("account_status=$%d", *filter.Status)
	}
	if filter.Active != nil {
		where.add("is_active=$%d", *filter.Active)
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		where.add("(LOWER(email) LIKE $%[1]d OR LOWER(first_name || ' ' || last_name) LIKE $%[1]d)", search)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datifyy_admin_users`+where.String(), where.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := pageBounds(filter.Limit, filter.Offset, 50)
	query := fmt.Sprintf(`SELECT %s FROM datifyy_admin_users%s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		adminColumns, where.String(), limit, offset)

	rows, err := r.pool.Query(ctx, query, where.args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var result []domain.AdminUser
	for rows.Next() {
		admin, err := scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		result = append(result, *admin)
	}
	return result, total, rows.Err()
}

func (r *adminRepository) CountLocked(ctx context.Context) (int, error) {
	const query = `
        SELECT COUNT(*) FROM datifyy_admin_users
        WHERE locked_at IS NOT NULL AND lock_expires_at > NOW()`
	var count int
	err := r.pool.QueryRow(ctx, query).Scan(&count)
	return count, err
}

func scanAdmin(row rowScanner) (*domain.AdminUser, error) {
	var admin domain.AdminUser
	if err := row.Scan(
		&admin.ID,
		&admin.Email,
		&admin.PasswordHash,
		&admin.FirstName,
		&admin.LastName,
		&admin.PermissionLevel,
		&admin.AdditionalPermissions,
		&admin.AccountStatus,
		&admin.IsActive,
		&admin.Phone,
		&admin.Department,
		&admin.Position,
		&admin.Timezone,
		&admin.PreferredLanguage,
		&admin.TwoFactorEnabled,
		&admin.FailedLoginAttempts,
		&admin.LockedAt,
		&admin.LockExpiresAt,
		&admin.LastLoginAt,
		&admin.LastLoginIP,
		&admin.LastLoginUserAgent,
		&admin.LastActiveAt,
		&admin.LoginCount,
		&admin.LastPasswordChange,
		&admin.PasswordExpiryDate,
		&admin.MustChangePassword,
		&admin.CreatedBy,
		&admin.UpdatedBy,
		&admin.Notes,
		&admin.CreatedAt,
		&admin.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &admin, nil
}
