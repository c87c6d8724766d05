package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

func NewSubscriptionRepo(pool *pgxpool.Pool) *subscriptionRepo {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, client_id, plan_name, price_usd, duration, start_date, next_billing, status, created_at, updated_at`

func (r *subscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	_, err := execSQL(ctx, r.pool, tx, `
		INSERT INTO subscriptions (`+subscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		s.ID, s.ClientID, s.PlanName, s.PriceUSD, string(s.Duration), s.StartDate, s.NextBilling,
		string(s.Status), s.CreatedAt, s.UpdatedAt)
	return err
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE id = $1`+lockClause(tx), id)
	if err != nil {
		return nil, err
	}
	return scanSubscription(row)
}

func (r *subscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	q := `SELECT ` + subscriptionColumns + ` FROM subscriptions`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func (r *subscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	tag, err := execSQL(ctx, r.pool, tx, `DELETE FROM subscriptions WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) UpdateNextBilling(ctx context.Context, tx repository.Tx, id string, next, updatedAt time.Time) error {
	tag, err := execSQL(ctx, r.pool, tx,
		`UPDATE subscriptions SET next_billing = $2, updated_at = $3 WHERE id = $1`, id, next, updatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *subscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE subscriptions SET status = 'cancelled', updated_at = $2
		WHERE id = $1 AND status = 'active'`, id, now)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *subscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
		UPDATE subscriptions SET status = 'expired', updated_at = $1
		WHERE status = 'active' AND next_billing < $1
		RETURNING id`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, readErr(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, writeErr(err)
	}
	return ids, nil
}

func (r *subscriptionRepo) FindDue(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.DueSubscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
		SELECT s.id, s.client_id, s.plan_name, s.price_usd, s.duration, s.start_date, s.next_billing,
		       s.status, s.created_at, s.updated_at,
		       c.id, c.name, c.email, c.phone, c.company, c.created_at, c.updated_at
		FROM subscriptions s
		JOIN clients c ON c.id = s.client_id
		WHERE s.status = 'active' AND s.next_billing BETWEEN $1 AND $2
		ORDER BY s.next_billing, s.id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.DueSubscription
	for rows.Next() {
		var (
			s        model.Subscription
			c        model.Client
			duration string
			status   string
		)
		if err := rows.Scan(
			&s.ID, &s.ClientID, &s.PlanName, &s.PriceUSD, &duration, &s.StartDate, &s.NextBilling,
			&status, &s.CreatedAt, &s.UpdatedAt,
			&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, readErr(err)
		}
		s.Duration, s.Status = model.Duration(duration), model.SubscriptionStatus(status)
		normalizeTimes(&s)
		out = append(out, &model.DueSubscription{Subscription: &s, Client: &c})
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func (r *subscriptionRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	return r.count(ctx, tx, `SELECT COUNT(*) FROM subscriptions WHERE status = 'active'`)
}

func (r *subscriptionRepo) CountDue(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	return r.count(ctx, tx, `
		SELECT COUNT(*) FROM subscriptions
		WHERE status = 'active' AND next_billing BETWEEN $1 AND $2`, from, to)
}

func (r *subscriptionRepo) count(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, readErr(err)
	}
	return n, nil
}

func (r *subscriptionRepo) ActiveRevenueByDuration(ctx context.Context, tx repository.Tx) (map[model.Duration]decimal.Decimal, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
		SELECT duration, COALESCE(SUM(price_usd), 0)
		FROM subscriptions
		WHERE status = 'active'
		GROUP BY duration`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.Duration]decimal.Decimal)
	for rows.Next() {
		var (
			d   string
			sum decimal.Decimal
		)
		if err := rows.Scan(&d, &sum); err != nil {
			return nil, readErr(err)
		}
		out[model.Duration(d)] = sum
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var (
		s                model.Subscription
		duration, status string
	)
	if err := row.Scan(&s.ID, &s.ClientID, &s.PlanName, &s.PriceUSD, &duration, &s.StartDate,
		&s.NextBilling, &status, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, readErr(err)
	}
	s.Duration, s.Status = model.Duration(duration), model.SubscriptionStatus(status)
	normalizeTimes(&s)
	return &s, nil
}

// normalizeTimes moves scanned timestamps out of time.Local, where pgx
// decodes timestamptz, so billing dates advance on the UTC calendar.
func normalizeTimes(s *model.Subscription) {
	s.StartDate = s.StartDate.UTC()
	s.NextBilling = s.NextBilling.UTC()
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
}
