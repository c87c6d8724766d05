//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
)

// =============================
// Adapters
// =============================

// ---- Mock PaymentGateway ----

type MockPaymentGateway struct {
	mu       sync.Mutex
	Requests []adapter.ChargeRequest

	InitializeChargeFunc func(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeSession, error)
	VerifyChargeFunc     func(ctx context.Context, reference string) (adapter.ChargeVerification, error)
}

var _ adapter.PaymentGateway = (*MockPaymentGateway)(nil)

func (m *MockPaymentGateway) Name() string { return "mock" }

func (m *MockPaymentGateway) InitializeCharge(ctx context.Context, req adapter.ChargeRequest) (adapter.ChargeSession, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()
	if m.InitializeChargeFunc != nil {
		return m.InitializeChargeFunc(ctx, req)
	}
	return adapter.ChargeSession{AuthorizationURL: "https://checkout.test/" + req.Reference, Reference: req.Reference}, nil
}

func (m *MockPaymentGateway) VerifyCharge(ctx context.Context, reference string) (adapter.ChargeVerification, error) {
	if m.VerifyChargeFunc != nil {
		return m.VerifyChargeFunc(ctx, reference)
	}
	return adapter.ChargeVerification{Reference: reference, Status: "success"}, nil
}

func (m *MockPaymentGateway) RequestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}

// ---- Mock ExchangeRateProvider ----

type MockRates struct {
	Quote model.RateQuote
}

var _ adapter.ExchangeRateProvider = (*MockRates)(nil)

func NewMockRates(rate int64) *MockRates {
	return &MockRates{Quote: model.RateQuote{Rate: decimal.NewFromInt(rate), Source: model.RateSourceLive, FetchedAt: time.Now()}}
}

func (m *MockRates) Rate(ctx context.Context) model.RateQuote { return m.Quote }

func (m *MockRates) Refresh(ctx context.Context) (model.RateQuote, error) { return m.Quote, nil }

// ---- Mock ReminderNotifier ----

type MockNotifier struct {
	mu   sync.Mutex
	Sent []adapter.Reminder

	SendFunc func(ctx context.Context, r adapter.Reminder) error
}

var _ adapter.ReminderNotifier = (*MockNotifier)(nil)

func (m *MockNotifier) SendReminder(ctx context.Context, r adapter.Reminder) error {
	if m.SendFunc != nil {
		if err := m.SendFunc(ctx, r); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, r)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

// ---- Mock EventPublisher ----

type MockEvents struct {
	mu   sync.Mutex
	Keys []string
}

var _ adapter.EventPublisher = (*MockEvents)(nil)

func (m *MockEvents) Publish(ctx context.Context, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return nil
}

func (m *MockEvents) Count(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, k := range m.Keys {
		if k == key {
			n++
		}
	}
	return n
}

// =============================
// Repositories
// =============================

// ---- In-memory ClientRepository ----

type MockClientRepo struct {
	mu   sync.Mutex
	data map[string]*model.Client

	FindByIDFunc func(ctx context.Context, tx repository.Tx, id string) (*model.Client, error)
}

var _ repository.ClientRepository = (*MockClientRepo)(nil)

func NewMockClientRepo() *MockClientRepo {
	return &MockClientRepo{data: map[string]*model.Client{}}
}

func (r *MockClientRepo) Save(ctx context.Context, tx repository.Tx, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.Email == c.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockClientRepo) Update(ctx context.Context, tx repository.Tx, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[c.ID]; !ok {
		return domain.ErrNotFound
	}
	for id, other := range r.data {
		if id != c.ID && other.Email == c.Email {
			return domain.ErrAlreadyExists
		}
	}
	cp := *c
	r.data[c.ID] = &cp
	return nil
}

func (r *MockClientRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Client, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.data[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockClientRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.data {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockClientRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Client
	for _, c := range r.data {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MockClientRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MockClientRepo) Count(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data), nil
}

// ---- In-memory SubscriptionRepository ----

type MockSubscriptionRepo struct {
	mu   sync.Mutex
	data map[string]*model.Subscription

	FindByIDFunc                func(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error)
	ExpireDueFunc               func(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error)
	ActiveRevenueByDurationFunc func(ctx context.Context, tx repository.Tx) (map[model.Duration]decimal.Decimal, error)
}

var _ repository.SubscriptionRepository = (*MockSubscriptionRepo)(nil)

func NewMockSubscriptionRepo() *MockSubscriptionRepo {
	return &MockSubscriptionRepo{data: map[string]*model.Subscription{}}
}

func (r *MockSubscriptionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.data[s.ID] = &cp
	return nil
}

func (r *MockSubscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	if r.FindByIDFunc != nil {
		return r.FindByIDFunc(ctx, tx, id)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockSubscriptionRepo) List(ctx context.Context, tx repository.Tx, f repository.SubscriptionFilter) ([]*model.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Subscription
	for _, s := range r.data {
		if f.ClientID != "" && s.ClientID != f.ClientID {
			continue
		}
		if f.Status != "" && s.Status != f.Status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockSubscriptionRepo) Delete(ctx context.Context, tx repository.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.data, id)
	return nil
}

func (r *MockSubscriptionRepo) UpdateNextBilling(ctx context.Context, tx repository.Tx, id string, next, updatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.NextBilling, s.UpdatedAt = next, updatedAt
	return nil
}

func (r *MockSubscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, id string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.data[id]
	if !ok || s.Status != model.SubscriptionStatusActive {
		return false, nil
	}
	s.Status, s.UpdatedAt = model.SubscriptionStatusCancelled, now
	return true, nil
}

func (r *MockSubscriptionRepo) ExpireDue(ctx context.Context, tx repository.Tx, now time.Time) ([]string, error) {
	if r.ExpireDueFunc != nil {
		return r.ExpireDueFunc(ctx, tx, now)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && s.NextBilling.Before(now) {
			s.Status = model.SubscriptionStatusExpired
			ids = append(ids, s.ID)
		}
	}
	return ids, nil
}

func (r *MockSubscriptionRepo) FindDue(ctx context.Context, tx repository.Tx, from, to time.Time) ([]*model.DueSubscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.DueSubscription
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive && !s.NextBilling.Before(from) && !s.NextBilling.After(to) {
			cp := *s
			out = append(out, &model.DueSubscription{Subscription: &cp, Client: &model.Client{ID: s.ClientID, Name: "Client " + s.ClientID, Email: s.ClientID + "@example.com"}})
		}
	}
	return out, nil
}

func (r *MockSubscriptionRepo) CountActive(ctx context.Context, tx repository.Tx) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive {
			n++
		}
	}
	return n, nil
}

func (r *MockSubscriptionRepo) CountDue(ctx context.Context, tx repository.Tx, from, to time.Time) (int, error) {
	due, err := r.FindDue(ctx, tx, from, to)
	return len(due), err
}

func (r *MockSubscriptionRepo) ActiveRevenueByDuration(ctx context.Context, tx repository.Tx) (map[model.Duration]decimal.Decimal, error) {
	if r.ActiveRevenueByDurationFunc != nil {
		return r.ActiveRevenueByDurationFunc(ctx, tx)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.Duration]decimal.Decimal{}
	for _, s := range r.data {
		if s.Status == model.SubscriptionStatusActive {
			out[s.Duration] = out[s.Duration].Add(s.PriceUSD)
		}
	}
	return out, nil
}

// Get returns the stored row for assertions.
func (r *MockSubscriptionRepo) Get(id string) *model.Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.data[id]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// ---- In-memory InvoiceRepository ----

// MockInvoiceRepo enforces one open invoice per subscription, like the
// partial unique index in Postgres.
type MockInvoiceRepo struct {
	mu   sync.Mutex
	data map[string]*model.Invoice

	SaveFunc          func(ctx context.Context, tx repository.Tx, inv *model.Invoice) error
	ClaimReminderFunc func(ctx context.Context, tx repository.Tx, id string, now, notBefore time.Time) (bool, error)
}

var _ repository.InvoiceRepository = (*MockInvoiceRepo)(nil)

func NewMockInvoiceRepo() *MockInvoiceRepo {
	return &MockInvoiceRepo{data: map[string]*model.Invoice{}}
}

func (r *MockInvoiceRepo) Save(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	if r.SaveFunc != nil {
		return r.SaveFunc(ctx, tx, inv)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.data {
		if other.SubscriptionID == inv.SubscriptionID && other.IsOpen() && inv.IsOpen() {
			return domain.ErrDuplicateInvoice
		}
	}
	cp := *inv
	r.data[inv.ID] = &cp
	return nil
}

func (r *MockInvoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.data[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockInvoiceRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.data {
		if inv.GatewayReference != nil && *inv.GatewayReference == reference {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockInvoiceRepo) FindOpenBySubscription(ctx context.Context, tx repository.Tx, subscriptionID string) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.data {
		if inv.SubscriptionID == subscriptionID && inv.IsOpen() {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (r *MockInvoiceRepo) List(ctx context.Context, tx repository.Tx, f model.InvoiceFilter) ([]*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.data {
		if f.Status != "" && inv.Status != f.Status {
			continue
		}
		if f.SubscriptionID != "" && inv.SubscriptionID != f.SubscriptionID {
			continue
		}
		cp := *inv
		out = append(out, &cp)
	}
	return out, nil
}

func (r *MockInvoiceRepo) SetPaymentLink(ctx context.Context, tx repository.Tx, id, reference, link string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok {
		return domain.ErrNotFound
	}
	inv.GatewayReference, inv.PaymentLink = &reference, &link
	return nil
}

func (r *MockInvoiceRepo) MarkPaid(ctx context.Context, tx repository.Tx, id string, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok || inv.Status != model.InvoiceStatusPending {
		return false, nil
	}
	inv.Status, inv.PaidAt = model.InvoiceStatusPaid, &paidAt
	return true, nil
}

func (r *MockInvoiceRepo) MarkOverdue(ctx context.Context, tx repository.Tx, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.data {
		if inv.Status == model.InvoiceStatusPending && inv.DueDate.Before(now) {
			inv.Status = model.InvoiceStatusOverdue
			n++
		}
	}
	return n, nil
}

func (r *MockInvoiceRepo) ClaimReminder(ctx context.Context, tx repository.Tx, id string, now, notBefore time.Time) (bool, error) {
	if r.ClaimReminderFunc != nil {
		return r.ClaimReminderFunc(ctx, tx, id, now, notBefore)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok || inv.Status != model.InvoiceStatusPending {
		return false, nil
	}
	if inv.ReminderSentAt != nil && !inv.ReminderSentAt.Before(notBefore) {
		return false, nil
	}
	inv.ReminderSent, inv.ReminderSentAt = true, &now
	return true, nil
}

func (r *MockInvoiceRepo) ReleaseReminder(ctx context.Context, tx repository.Tx, id string, claimedAt time.Time, prev *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.data[id]
	if !ok || inv.ReminderSentAt == nil || !inv.ReminderSentAt.Equal(claimedAt) {
		return nil
	}
	inv.ReminderSent, inv.ReminderSentAt = prev != nil, prev
	return nil
}

func (r *MockInvoiceRepo) CountByStatus(ctx context.Context, tx repository.Tx) (map[model.InvoiceStatus]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := map[model.InvoiceStatus]int{}
	for _, inv := range r.data {
		out[inv.Status]++
	}
	return out, nil
}

// Put stores inv as-is for test setup.
func (r *MockInvoiceRepo) Put(inv *model.Invoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *inv
	r.data[inv.ID] = &cp
}

func (r *MockInvoiceRepo) Get(id string) *model.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.data[id]; ok {
		cp := *inv
		return &cp
	}
	return nil
}

func (r *MockInvoiceRepo) OpenFor(subscriptionID string) []*model.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Invoice
	for _, inv := range r.data {
		if inv.SubscriptionID == subscriptionID && inv.IsOpen() {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out
}

// ---- In-memory PaymentRepository ----

type MockPaymentRepo struct {
	mu   sync.Mutex
	data map[string]*model.Payment // by gateway reference
}

var _ repository.PaymentRepository = (*MockPaymentRepo)(nil)

func NewMockPaymentRepo() *MockPaymentRepo {
	return &MockPaymentRepo{data: map[string]*model.Payment{}}
}

func (r *MockPaymentRepo) Save(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[p.GatewayReference]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *p
	r.data[p.GatewayReference] = &cp
	return nil
}

func (r *MockPaymentRepo) FindByReference(ctx context.Context, tx repository.Tx, reference string) (*model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.data[reference]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockPaymentRepo) List(ctx context.Context, tx repository.Tx, limit, offset int) ([]*model.PaymentView, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.PaymentView
	for _, p := range r.data {
		out = append(out, &model.PaymentView{Payment: *p})
	}
	return out, nil
}

func (r *MockPaymentRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data)
}

// ---- In-memory AdminRepository ----

type MockAdminRepo struct {
	mu   sync.Mutex
	data map[string]*model.Admin // by email
}

var _ repository.AdminRepository = (*MockAdminRepo)(nil)

func NewMockAdminRepo() *MockAdminRepo {
	return &MockAdminRepo{data: map[string]*model.Admin{}}
}

func (r *MockAdminRepo) Save(ctx context.Context, tx repository.Tx, a *model.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[a.Email]; ok {
		return domain.ErrAlreadyExists
	}
	cp := *a
	r.data[a.Email] = &cp
	return nil
}

func (r *MockAdminRepo) FindByEmail(ctx context.Context, tx repository.Tx, email string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.data[email]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *MockAdminRepo) TouchLogin(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.data {
		if a.ID == id {
			a.LastLoginAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// ---- TxManager ----

// MockTxManager runs fn directly; it cannot roll back in-memory state.
type MockTxManager struct {
	Calls int
}

func NewMockTxManager() *MockTxManager { return &MockTxManager{} }

var _ repository.TransactionManager = (*MockTxManager)(nil)

func (m *MockTxManager) WithTx(ctx context.Context, _ pgx.TxOptions, fn func(ctx context.Context, tx repository.Tx) error) error {
	m.Calls++
	return fn(ctx, repository.NoTX)
}

// newTestLogger creates a silent zerolog.Logger for use in tests.
// It writes to io.Discard to prevent logs from cluttering test output.
func newTestLogger() *zerolog.Logger {
	logger := zerolog.New(io.Discard)
	return &logger
}

var errBoom = errors.New("boom")
