//go:build !integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
)

func TestWriteErr(t *testing.T) {
	cases := []struct {
		name string
		in   error
		want error
	}{
		{"open invoice index", &pgconn.PgError{Code: "23505", ConstraintName: openInvoiceConstraint}, domain.ErrDuplicateInvoice},
		{"other unique", &pgconn.PgError{Code: "23505", ConstraintName: "clients_email_key"}, domain.ErrAlreadyExists},
		{"foreign key", &pgconn.PgError{Code: "23503"}, domain.ErrNotFound},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrInvalidArgument},
		{"wrapped", fmt.Errorf("exec: %w", &pgconn.PgError{Code: "23505"}), domain.ErrAlreadyExists},
		{"other", errors.New("conn reset"), domain.ErrOperationFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := writeErr(tc.in); !errors.Is(got, tc.want) {
				t.Fatalf("writeErr(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestReadErr(t *testing.T) {
	if !errors.Is(readErr(pgx.ErrNoRows), domain.ErrNotFound) {
		t.Error("no rows should map to ErrNotFound")
	}
	if !errors.Is(readErr(&pgconn.PgError{Code: "22P02"}), domain.ErrNotFound) {
		t.Error("malformed id should map to ErrNotFound")
	}
	if !errors.Is(readErr(errors.New("boom")), domain.ErrReadDatabaseRow) {
		t.Error("other errors should map to ErrReadDatabaseRow")
	}
}

func TestGetExecutor(t *testing.T) {
	if _, err := getExecutor(nil, nil); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Errorf("nil pool and tx: %v", err)
	}
	if _, err := getExecutor(nil, "not-a-tx"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("bogus tx: %v", err)
	}
	if lockClause(nil) != "" {
		t.Error("no lock outside a transaction")
	}
	if _, err := execSQL(context.Background(), nil, 42, "SELECT 1"); !errors.Is(err, domain.ErrInvalidExecContext) {
		t.Errorf("execSQL should surface executor errors: %v", err)
	}
}

func TestNormalizeTimes(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	at := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	s := model.Subscription{StartDate: at.In(est), NextBilling: at.In(est), CreatedAt: at.In(est), UpdatedAt: at.In(est)}

	normalizeTimes(&s)

	for name, v := range map[string]time.Time{"start": s.StartDate, "next": s.NextBilling, "created": s.CreatedAt, "updated": s.UpdatedAt} {
		if v.Location() != time.UTC || !v.Equal(at) {
			t.Errorf("%s: expected %s in UTC, got %s", name, at, v)
		}
	}
}
