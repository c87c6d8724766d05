package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, subscription_id, client_id, invoice_number, amount_usd, exchange_rate,
	amount_ngn, processing_fee_ngn, total_ngn, due_date, status, gateway_reference, payment_link,
	paid_at, reminder_sent, reminder_sent_at, created_at, updated_at`

func (r *invoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	_, err := execSQL(ctx, r.pool, tx, `
		INSERT INTO invoices (`+invoiceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		inv.ID, inv.SubscriptionID, inv.ClientID, inv.InvoiceNumber, inv.AmountUSD, inv.ExchangeRate,
		inv.AmountNGN, inv.ProcessingFeeNGN, inv.TotalNGN, inv.DueDate, string(inv.Status),
		inv.GatewayReference, inv.PaymentLink, inv.PaidAt, inv.ReminderSent, inv.ReminderSentAt,
		inv.CreatedAt, inv.UpdatedAt)
	return err
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	return r.findOne(ctx, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`+lockClause(tx), id)
}

func (r *invoiceRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Invoice, error) {
	return r.findOne(ctx, tx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE gateway_reference = $1`+lockClause(tx), reference)
}

func (r *invoiceRepo) FindOpenBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	return r.findOne(ctx, tx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE subscription_id = $1 AND status IN ('pending', 'overdue')
		ORDER BY created_at DESC
		LIMIT 1`+lockClause(tx), subscriptionID)
}

func (r *invoiceRepo) findOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanInvoice(row)
}

func (r *invoiceRepo) List(ctx context.Context, tx repository.Tx, f model.InvoiceFilter) ([]*model.Invoice, error) {
	var (
		where []string
		args  []interface{}
	)
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.SubscriptionID != "" {
		args = append(args, f.SubscriptionID)
		where = append(where, fmt.Sprintf("subscription_id = $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	q := `SELECT ` + invoiceColumns + ` FROM invoices`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	q += ` ORDER BY created_at DESC, id`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func (r *invoiceRepo) SetPaymentLink(ctx context.Context, tx repository.Tx, id, reference, link string) error {
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE invoices SET gateway_reference = $2, payment_link = $3, updated_at = NOW()
		WHERE id = $1`, id, reference, link)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *invoiceRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE invoices SET status = 'paid', paid_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'`, id, paidAt)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE invoices SET status = 'overdue', updated_at = $1
		WHERE status = 'pending' AND due_date < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Postgres keeps microseconds; claim and release truncate alike so the
// release predicate matches the stored stamp.
func (r *invoiceRepo) ClaimReminder(ctx context.Context, tx repository.Tx, id string, now, notBefore time.Time) (bool, error) {
	now = now.Truncate(time.Microsecond)
	tag, err := execSQL(ctx, r.pool, tx, `
		UPDATE invoices SET reminder_sent = TRUE, reminder_sent_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'pending'
		  AND (reminder_sent_at IS NULL OR reminder_sent_at < $3)`, id, now, notBefore)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *invoiceRepo) ReleaseReminder(ctx context.Context, tx repository.Tx, id string, claimedAt time.Time, prev *time.Time) error {
	claimedAt = claimedAt.Truncate(time.Microsecond)
	_, err := execSQL(ctx, r.pool, tx, `
		UPDATE invoices SET reminder_sent = ($3::timestamptz IS NOT NULL), reminder_sent_at = $3
		WHERE id = $1 AND reminder_sent_at = $2`, id, claimedAt, prev)
	return err
}

func (r *invoiceRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.InvoiceStatus]int, error) {
	rows, err := queryRows(ctx, r.pool, tx, `SELECT status, COUNT(*) FROM invoices GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[model.InvoiceStatus]int{
		model.InvoiceStatusPending: 0,
		model.InvoiceStatusPaid:    0,
		model.InvoiceStatusOverdue: 0,
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, readErr(err)
		}
		out[model.InvoiceStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return out, nil
}

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv    model.Invoice
		status string
	)
	if err := row.Scan(
		&inv.ID, &inv.SubscriptionID, &inv.ClientID, &inv.InvoiceNumber, &inv.AmountUSD, &inv.ExchangeRate,
		&inv.AmountNGN, &inv.ProcessingFeeNGN, &inv.TotalNGN, &inv.DueDate, &status, &inv.GatewayReference,
		&inv.PaymentLink, &inv.PaidAt, &inv.ReminderSent, &inv.ReminderSentAt, &inv.CreatedAt, &inv.UpdatedAt,
	); err != nil {
		return nil, readErr(err)
	}
	inv.Status = model.InvoiceStatus(status)
	return &inv, nil
}
