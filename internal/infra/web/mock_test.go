//go:build !integration

package web

import (
	"context"
	"sync"
	"time"

	"subscription-billing/internal/config"
	"subscription-billing/internal/domain"
	"subscription-billing/internal/domain/model"
	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/domain/ports/repository"
	"subscription-billing/internal/usecase"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const testSecret = "test-admin-jwt-secret-please-change"

func newTestLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

// --- Mock use cases (embed the interface; unimplemented calls panic) ---

type mockAuthUC struct {
	usecase.AuthUseCase
	admin *model.Admin
	pw    string
}

func (m *mockAuthUC) Authenticate(_ context.Context, email, password string) (*model.Admin, error) {
	if m.admin == nil || email != m.admin.Email || password != m.pw {
		return nil, domain.ErrInvalidCredentials
	}
	return m.admin, nil
}

type mockClientUC struct {
	usecase.ClientUseCase
	mu      sync.Mutex
	clients map[string]*model.Client
	created []usecase.ClientInput
}

func newMockClientUC() *mockClientUC {
	return &mockClientUC{clients: map[string]*model.Client{}}
}

func (m *mockClientUC) Create(_ context.Context, in usecase.ClientInput) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.clients {
		if c.Email == in.Email {
			return nil, domain.ErrAlreadyExists
		}
	}
	c, err := model.NewClient("", in.Name, in.Email, in.Phone, in.Company)
	if err != nil {
		return nil, err
	}
	m.clients[c.ID] = c
	m.created = append(m.created, in)
	return c, nil
}

func (m *mockClientUC) Get(_ context.Context, id string) (*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return c, nil
}

func (m *mockClientUC) List(_ context.Context, _, _ int) ([]*model.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*model.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockClientUC) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.clients, id)
	return nil
}

type mockSubscriptionUC struct {
	usecase.SubscriptionUseCase
	createErr error
	got       usecase.SubscriptionInput
}

func (m *mockSubscriptionUC) Create(_ context.Context, in usecase.SubscriptionInput) (*model.Subscription, *model.Invoice, error) {
	m.got = in
	if m.createErr != nil {
		return nil, nil, m.createErr
	}
	dur, err := model.ParseDuration(in.Duration)
	if err != nil {
		return nil, nil, err
	}
	sub, err := model.NewSubscription(in.ClientID, in.PlanName, in.PriceUSD, dur, time.Time{})
	if err != nil {
		return nil, nil, err
	}
	inv, err := model.NewInvoiceForCycle(sub, decimal.NewFromInt(1500), time.Now().UTC())
	if err != nil {
		return nil, nil, err
	}
	return sub, inv, nil
}

func (m *mockSubscriptionUC) Cancel(_ context.Context, id string) (*model.Subscription, error) {
	return nil, domain.ErrSubscriptionNotActive
}

type mockLifecycleUC struct {
	usecase.LifecycleUseCase
	mu        sync.Mutex
	confirmed []model.ChargeEvent
	result    usecase.ConfirmResult
	err       error
	genErr    error
}

func (m *mockLifecycleUC) ConfirmPayment(_ context.Context, ev model.ChargeEvent) (usecase.ConfirmResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.confirmed = append(m.confirmed, ev)
	return m.result, m.err
}

func (m *mockLifecycleUC) GenerateInvoice(_ context.Context, subscriptionID string) (*model.Invoice, error) {
	if m.genErr != nil {
		return nil, m.genErr
	}
	return &model.Invoice{ID: "inv-1", SubscriptionID: subscriptionID, InvoiceNumber: "INV-TEST"}, nil
}

func (m *mockLifecycleUC) VerifyPayment(_ context.Context, reference string) (*usecase.PaymentVerification, error) {
	return nil, &domain.GatewayError{Provider: "paystack", Status: 502, Message: "upstream down"}
}

type mockReminderUC struct {
	usecase.ReminderUseCase
	window int
}

func (m *mockReminderUC) SendDueReminders(_ context.Context, _ time.Time, windowDays int) (usecase.BatchResult, error) {
	m.window = windowDays
	return usecase.BatchResult{Results: []usecase.ReminderResult{}, Sent: 1}, nil
}

func (m *mockReminderUC) SendReminder(_ context.Context, subscriptionID string) (usecase.ReminderResult, error) {
	return usecase.ReminderResult{}, &domain.TransportError{Channel: "email", Err: context.DeadlineExceeded}
}

type mockStatsUC struct {
	usecase.StatsUseCase
	err error
}

func (m *mockStatsUC) Dashboard(context.Context) (*model.DashboardStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.DashboardStats{TotalClients: 3, ActiveSubscriptions: 2}, nil
}

func (m *mockStatsUC) ExchangeRate(context.Context) model.RateQuote {
	return model.RateQuote{Rate: decimal.RequireFromString("1587.35"), Source: model.RateSourceFallback}
}

type mockInvoiceRepo struct {
	repository.InvoiceRepository
	lastFilter model.InvoiceFilter
}

func (m *mockInvoiceRepo) List(_ context.Context, _ repository.Tx, f model.InvoiceFilter) ([]*model.Invoice, error) {
	m.lastFilter = f
	return []*model.Invoice{}, nil
}

func (m *mockInvoiceRepo) FindByID(_ context.Context, _ repository.Tx, id string) (*model.Invoice, error) {
	return nil, domain.ErrNotFound
}

type mockWebhook struct {
	ev  adapter.WebhookEvent
	err error
}

func (m *mockWebhook) ParseWebhook(body []byte, signature string) (adapter.WebhookEvent, error) {
	return m.ev, m.err
}

type mockLimiter struct {
	mu    sync.Mutex
	calls map[string]int
	limit int
}

func (m *mockLimiter) Allow(_ context.Context, key string, limit int, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[key]++
	if m.limit > 0 {
		limit = m.limit
	}
	return m.calls[key] <= limit, nil
}

// testEnv bundles a server and its mocks.
type testEnv struct {
	srv       *Server
	auth      *AuthManager
	admin     *model.Admin
	clients   *mockClientUC
	subs      *mockSubscriptionUC
	lifecycle *mockLifecycleUC
	reminders *mockReminderUC
	stats     *mockStatsUC
	invoices  *mockInvoiceRepo
	webhook   *mockWebhook
	limiter   *mockLimiter
}

func newTestEnv(dev bool) *testEnv {
	admin, err := model.NewAdmin("Ada", "ada@example.com", "hash", model.AdminRoleAdmin)
	if err != nil {
		panic(err)
	}
	env := &testEnv{
		auth:      NewAuthManager(testSecret, time.Hour),
		admin:     admin,
		clients:   newMockClientUC(),
		subs:      &mockSubscriptionUC{},
		lifecycle: &mockLifecycleUC{},
		reminders: &mockReminderUC{},
		stats:     &mockStatsUC{},
		invoices:  &mockInvoiceRepo{},
		webhook:   &mockWebhook{},
		limiter:   &mockLimiter{},
	}
	cfg := &config.Config{
		HTTP:      config.HTTPConfig{RequestTimeout: 5 * time.Second},
		Scheduler: config.SchedulerConfig{ReminderWindow: 3},
		Runtime:   config.RuntimeConfig{Dev: dev},
	}
	env.srv = NewServer(Deps{
		Auth:          &mockAuthUC{admin: admin, pw: "s3cret!"},
		Clients:       env.clients,
		Subscriptions: env.subs,
		Lifecycle:     env.lifecycle,
		Reminders:     env.reminders,
		Stats:         env.stats,
		Invoices:      env.invoices,
		Webhook:       env.webhook,
		Limiter:       env.limiter,
	}, env.auth, cfg, "test", newTestLogger())
	return env
}

func (e *testEnv) token() string {
	tok, _, err := e.auth.Mint(e.admin)
	if err != nil {
		panic(err)
	}
	return tok
}
