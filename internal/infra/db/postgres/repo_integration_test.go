//go:build integration

package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/repository"
)

type seeded struct {
	client *model.Client
	sub    *model.Subscription
	inv    *model.Invoice
}

func seed(t *testing.T, ctx context.Context) seeded {
	t.Helper()
	cleanup(t)
	c, _ := model.NewClient("", "Acme", "Billing@Acme.test", "", "Acme Ltd")
	if err := NewClientRepo(testPool).Save(ctx, nil, c); err != nil {
		t.Fatalf("save client: %v", err)
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	sub, _ := model.NewSubscription(c.ID, "Hosting", decimal.RequireFromString("9.99"), model.DurationMonthly, start)
	if err := NewSubscriptionRepo(testPool).Save(ctx, nil, sub); err != nil {
		t.Fatalf("save subscription: %v", err)
	}
	inv, err := model.NewInvoiceForCycle(sub, decimal.RequireFromString("1587.35"), start)
	if err != nil {
		t.Fatalf("new invoice: %v", err)
	}
	if err := NewInvoiceRepo(testPool).Save(ctx, nil, inv); err != nil {
		t.Fatalf("save invoice: %v", err)
	}
	return seeded{client: c, sub: sub, inv: inv}
}

func TestClientRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewClientRepo(testPool)

	t.Run("should reject a duplicate email case-insensitively", func(t *testing.T) {
		s := seed(t, ctx)
		dup, _ := model.NewClient("", "Other", "BILLING@acme.test", "", "")
		err := repo.Save(ctx, nil, dup)
		if !errors.Is(err, domain.ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
		got, err := repo.FindByEmail(ctx, nil, "billing@ACME.test")
		if err != nil || got.ID != s.client.ID {
			t.Fatalf("FindByEmail = %v, %v", got, err)
		}
	})

	t.Run("should cascade a client delete to everything it owns", func(t *testing.T) {
		s := seed(t, ctx)
		if err := repo.Delete(ctx, nil, s.client.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}
		if _, err := NewSubscriptionRepo(testPool).FindByID(ctx, nil, s.sub.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("subscription survived: %v", err)
		}
		if _, err := NewInvoiceRepo(testPool).FindByID(ctx, nil, s.inv.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("invoice survived: %v", err)
		}
		if err := repo.Delete(ctx, nil, s.client.ID); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("second delete should be ErrNotFound, got %v", err)
		}
	})
}

func TestSubscriptionRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewSubscriptionRepo(testPool)

	t.Run("should round-trip price exactly and find due rows with their client", func(t *testing.T) {
		s := seed(t, ctx)
		got, err := repo.FindByID(ctx, nil, s.sub.ID)
		if err != nil {
			t.Fatalf("FindByID: %v", err)
		}
		if !got.PriceUSD.Equal(decimal.RequireFromString("9.99")) {
			t.Errorf("price = %s", got.PriceUSD)
		}
		due, err := repo.FindDue(ctx, nil, s.sub.NextBilling.Add(-time.Hour), s.sub.NextBilling.Add(time.Hour))
		if err != nil || len(due) != 1 || due[0].Client.ID != s.client.ID {
			t.Fatalf("FindDue = %v, %v", due, err)
		}
		rev, err := repo.ActiveRevenueByDuration(ctx, nil)
		if err != nil || !rev[model.DurationMonthly].Equal(decimal.RequireFromString("9.99")) {
			t.Fatalf("revenue = %v, %v", rev, err)
		}
	})

	t.Run("should expire lapsed subscriptions once", func(t *testing.T) {
		s := seed(t, ctx)
		now := s.sub.NextBilling.Add(24 * time.Hour)
		ids, err := repo.ExpireDue(ctx, nil, now)
		if err != nil || len(ids) != 1 || ids[0] != s.sub.ID {
			t.Fatalf("ExpireDue = %v, %v", ids, err)
		}
		ids, err = repo.ExpireDue(ctx, nil, now)
		if err != nil || len(ids) != 0 {
			t.Fatalf("second ExpireDue = %v, %v", ids, err)
		}
		ok, err := repo.Cancel(ctx, nil, s.sub.ID, now)
		if err != nil || ok {
			t.Fatalf("expired subscription must not cancel: %v, %v", ok, err)
		}
	})
}

func TestInvoiceRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewInvoiceRepo(testPool)

	t.Run("should allow only one open invoice per subscription", func(t *testing.T) {
		s := seed(t, ctx)
		second, _ := model.NewInvoiceForCycle(s.sub, decimal.NewFromInt(1500), time.Now())
		if err := repo.Save(ctx, nil, second); !errors.Is(err, domain.ErrDuplicateInvoice) {
			t.Fatalf("expected ErrDuplicateInvoice, got %v", err)
		}
	})

	t.Run("should mark paid once and find by reference under lock", func(t *testing.T) {
		s := seed(t, ctx)
		ref := s.inv.InvoiceNumber + "-1"
		if err := repo.SetPaymentLink(ctx, nil, s.inv.ID, ref, "https://pay.test/x"); err != nil {
			t.Fatalf("SetPaymentLink: %v", err)
		}
		err := NewTxManager(testPool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			inv, err := repo.FindByReference(ctx, tx, ref)
			if err != nil {
				return err
			}
			ok, err := repo.MarkPaid(ctx, tx, inv.ID, time.Now())
			if err != nil || !ok {
				t.Errorf("first MarkPaid = %v, %v", ok, err)
			}
			ok, _ = repo.MarkPaid(ctx, tx, inv.ID, time.Now())
			if ok {
				t.Error("second MarkPaid should report false")
			}
			return nil
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, s.inv.ID)
		if got.Status != model.InvoiceStatusPaid || got.PaidAt == nil {
			t.Fatalf("invoice = %+v", got)
		}
		if !got.TotalNGN.Equal(s.inv.TotalNGN) {
			t.Errorf("total = %s, want %s", got.TotalNGN, s.inv.TotalNGN)
		}
	})

	t.Run("should claim a reminder once per cooldown and release it", func(t *testing.T) {
		s := seed(t, ctx)
		now := time.Now()
		ok, err := repo.ClaimReminder(ctx, nil, s.inv.ID, now, now.Add(-24*time.Hour))
		if err != nil || !ok {
			t.Fatalf("first claim = %v, %v", ok, err)
		}
		ok, _ = repo.ClaimReminder(ctx, nil, s.inv.ID, now.Add(time.Minute), now.Add(-23*time.Hour))
		if ok {
			t.Fatal("second claim inside the cooldown should fail")
		}
		if err := repo.ReleaseReminder(ctx, nil, s.inv.ID, now, nil); err != nil {
			t.Fatalf("release: %v", err)
		}
		got, _ := repo.FindByID(ctx, nil, s.inv.ID)
		if got.ReminderSent || got.ReminderSentAt != nil {
			t.Fatalf("release did not restore state: %+v", got)
		}
	})

	t.Run("should move past-due pending invoices to overdue", func(t *testing.T) {
		s := seed(t, ctx)
		n, err := repo.MarkOverdue(ctx, nil, s.inv.DueDate.Add(time.Hour))
		if err != nil || n != 1 {
			t.Fatalf("MarkOverdue = %d, %v", n, err)
		}
		counts, _ := repo.CountByStatus(ctx, nil)
		if counts[model.InvoiceStatusOverdue] != 1 || counts[model.InvoiceStatusPending] != 0 {
			t.Fatalf("counts = %v", counts)
		}
	})
}

func TestPaymentRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewPaymentRepo(testPool)

	t.Run("should keep the transaction usable on a replayed reference", func(t *testing.T) {
		s := seed(t, ctx)
		ev := model.ChargeEvent{Reference: "ref-1", AmountMinor: 1665090, Channel: "card"}
		p1, _ := model.NewPaymentFromCharge(s.inv.ID, ev, time.Now())
		p2, _ := model.NewPaymentFromCharge(s.inv.ID, ev, time.Now())

		err := NewTxManager(testPool).WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
			if err := repo.Save(ctx, tx, p1); err != nil {
				return err
			}
			if err := repo.Save(ctx, tx, p2); !errors.Is(err, domain.ErrAlreadyExists) {
				t.Errorf("expected ErrAlreadyExists, got %v", err)
			}
			_, err := NewInvoiceRepo(testPool).MarkPaid(ctx, tx, s.inv.ID, time.Now())
			return err
		})
		if err != nil {
			t.Fatalf("tx: %v", err)
		}

		got, err := repo.FindByReference(ctx, nil, "ref-1")
		if err != nil || !got.Amount.Equal(decimal.RequireFromString("16650.90")) {
			t.Fatalf("FindByReference = %+v, %v", got, err)
		}
		views, err := repo.List(ctx, nil, 10, 0)
		if err != nil || len(views) != 1 || views[0].ClientEmail != s.client.Email || views[0].PlanName != "Hosting" {
			t.Fatalf("List = %+v, %v", views, err)
		}
	})
}

func TestAdminRepo_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode.")
	}
	ctx := context.Background()
	repo := NewAdminRepo(testPool)

	t.Run("should save, find and touch login", func(t *testing.T) {
		cleanup(t)
		a, _ := model.NewAdmin("Ops", "ops@billing.test", "hash", model.AdminRoleSuperAdmin)
		if err := repo.Save(ctx, nil, a); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := repo.TouchLogin(ctx, nil, a.ID, time.Now()); err != nil {
			t.Fatalf("touch: %v", err)
		}
		got, err := repo.FindByEmail(ctx, nil, "OPS@billing.test")
		if err != nil || got.Role != model.AdminRoleSuperAdmin || got.LastLoginAt == nil {
			t.Fatalf("FindByEmail = %+v, %v", got, err)
		}
	})
}
