package postgres

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, invoice_id, gateway_reference, amount, currency, status, channel, paid_at, metadata, created_at`

// Save uses ON CONFLICT so a replayed reference does not poison the
// surrounding transaction.
func (r *paymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	meta := []byte(p.Metadata)
	if len(meta) == 0 || !json.Valid(meta) {
		meta = []byte("{}")
	}
	tag, err := execSQL(ctx, r.pool, tx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (gateway_reference) DO NOTHING`,
		p.ID, p.InvoiceID, p.GatewayReference, p.Amount, p.Currency, p.Status, p.Channel,
		p.PaidAt, meta, p.CreatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

func (r *paymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+paymentColumns+` FROM payments WHERE gateway_reference = $1`, reference)
	if err != nil {
		return nil, err
	}
	var (
		p    model.Payment
		meta []byte
	)
	if err := row.Scan(&p.ID, &p.InvoiceID, &p.GatewayReference, &p.Amount, &p.Currency, &p.Status,
		&p.Channel, &p.PaidAt, &meta, &p.CreatedAt); err != nil {
		return nil, readErr(err)
	}
	p.Metadata = meta
	return &p, nil
}

func (r *paymentRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.PaymentView, error) {
	rows, err := queryRows(ctx, r.pool, tx, `
		SELECT p.id, p.invoice_id, p.gateway_reference, p.amount, p.currency, p.status, p.channel,
		       p.paid_at, p.metadata, p.created_at,
		       i.invoice_number, c.name, c.email, s.plan_name
		FROM payments p
		JOIN invoices i ON i.id = p.invoice_id
		JOIN clients c ON c.id = i.client_id
		JOIN subscriptions s ON s.id = i.subscription_id
		ORDER BY p.paid_at DESC, p.id
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.PaymentView
	for rows.Next() {
		var (
			v    model.PaymentView
			meta []byte
		)
		if err := rows.Scan(&v.ID, &v.InvoiceID, &v.GatewayReference, &v.Amount, &v.Currency, &v.Status,
			&v.Channel, &v.PaidAt, &meta, &v.CreatedAt,
			&v.InvoiceNumber, &v.ClientName, &v.ClientEmail, &v.PlanName); err != nil {
			return nil, readErr(err)
		}
		v.Metadata = meta
		out = append(out, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}
