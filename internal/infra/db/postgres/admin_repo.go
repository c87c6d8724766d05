package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.AdminRepository = (*adminRepo)(nil)

type adminRepo struct {
	pool *pgxpool.Pool
}

func NewAdminRepo(pool *pgxpool.Pool) *adminRepo {
	return &adminRepo{pool: pool}
}

func (r *adminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	_, err := execSQL(ctx, r.pool, tx, `
		INSERT INTO admins (id, name, email, password_hash, role, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.Name, a.Email, a.PasswordHash, string(a.Role), a.LastLoginAt, a.CreatedAt, a.UpdatedAt)
	return err
}

func (r *adminRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Admin, error) {
	row, err := pickRow(ctx, r.pool, tx, `
		SELECT id, name, email, password_hash, role, last_login_at, created_at, updated_at
		FROM admins WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, err
	}
	var (
		a    model.Admin
		role string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &role, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, readErr(err)
	}
	a.Role = model.AdminRole(role)
	return &a, nil
}

func (r *adminRepo) TouchLogin(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx, `UPDATE admins SET last_login_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
