package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.ClientRepository = (*clientRepo)(nil)

type clientRepo struct {
	pool *pgxpool.Pool
}

func NewClientRepo(pool *pgxpool.Pool) *clientRepo {
	return &clientRepo{pool: pool}
}

const clientColumns = `id, name, email, phone, company, created_at, updated_at`

func (r *clientRepo) Save(ctx context.Context, tx repository.Tx, c *model.Client) error {
	_, err := execSQL(ctx, r.pool, tx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, c.CreatedAt, c.UpdatedAt)
	return err
}

func (r *clientRepo) Update(ctx context.Context, tx repository.Tx, c *model.Client) error {
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE clients SET name = $2, email = $3, phone = $4, company = $5, updated_at = $6
		WHERE id = $1`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, c.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *clientRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Client, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	return scanClient(row)
}

func (r *clientRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Client, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+clientColumns+` FROM clients WHERE LOWER(email) = LOWER($1)`, email)
	if err != nil {
		return nil, err
	}
	return scanClient(row)
}

func (r *clientRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Client, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
		SELECT `+clientColumns+` FROM clients
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func (r *clientRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return domain.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *clientRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM clients`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, readErr(err)
	}
	return n, nil
}

func scanClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, readErr(err)
	}
	return &c, nil
}
