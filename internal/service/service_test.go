package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v81"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/cache"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/memstore"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

// ============================================================
// Mocks
// ============================================================

type mockCompleter struct {
	mu       sync.Mutex
	requests []*domain.CompletionRequest
	answer   string
	err      error
}

func (m *mockCompleter) Complete(_ context.Context, req *domain.CompletionRequest) (*domain.CompletionResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.CompletionResponse{
		Choices: []domain.CompletionChoice{{Message: domain.ChatMessage{Role: "assistant", Content: m.answer}}},
		Usage:   domain.TokenUsage{PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120},
	}, nil
}

func (m *mockCompleter) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type mockLimiter struct {
	allowed    bool
	retryAfter time.Duration
	err        error
}

func (m *mockLimiter) Allow(context.Context, string) (bool, time.Duration, error) {
	return m.allowed, m.retryAfter, m.err
}

// mockVerifier skips the signature and decodes the payload as Stripe would.
type mockVerifier struct{ err error }

func (m *mockVerifier) ConstructEvent(payload []byte, _ string) (stripe.Event, error) {
	if m.err != nil {
		return stripe.Event{}, m.err
	}
	var evt stripe.Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		return stripe.Event{}, &domain.ErrInvalidSignature{Reason: "invalid payload"}
	}
	return evt, nil
}

// ============================================================
// Fixture
// ============================================================

type fixture struct {
	store     *memstore.Store
	hub       *service.Hub
	metrics   *observability.Metrics
	accounts  *service.AccountService
	deals     *service.DealService
	stats     *service.StatsService
	coach     *service.CoachService
	billing   *service.BillingService
	completer *mockCompleter
	limiter   *mockLimiter
	verifier  *mockVerifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()
	store := memstore.New()
	hub := service.NewHub()
	metrics := observability.NewMetrics()
	accountCache := cache.New[*domain.Account](time.Minute)
	t.Cleanup(func() { _ = accountCache.Close() })

	f := &fixture{
		store:     store,
		hub:       hub,
		metrics:   metrics,
		completer: &mockCompleter{answer: "Book two appointments before noon."},
		limiter:   &mockLimiter{allowed: true},
		verifier:  &mockVerifier{},
	}
	f.accounts = service.NewAccountService(store, accountCache, hub, domain.BuiltinDefaults(), metrics, logger)
	f.deals = service.NewDealService(store, f.accounts, hub, time.UTC, metrics, logger)
	f.stats = service.NewStatsService(store, f.accounts, hub, nil, time.UTC, metrics, logger)
	f.coach = service.NewCoachService(store, f.accounts, f.completer, f.limiter, resilience.NewBulkhead(2),
		service.CoachConfig{Model: "gpt-4o-mini", MaxTokens: 300, Temperature: 0.7, Timeout: time.Second},
		time.UTC, metrics, logger)
	f.billing = service.NewBillingService(f.verifier, store, f.accounts, metrics, logger)
	return f
}

func (f *fixture) ensure(t *testing.T, id string) *domain.Account {
	t.Helper()
	acct, err := f.accounts.Ensure(context.Background(), domain.Principal{AccountID: id, Email: id + "@example.com"})
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	return acct
}

func (f *fixture) addDeal(t *testing.T, accountID, date string) *domain.Deal {
	t.Helper()
	d, err := f.deals.Create(context.Background(), accountID, domain.DealDraft{
		CustomerName: "Customer " + date,
		Type:         domain.DealTypeNew,
		FrontGross:   2000,
		BackGross:    1000,
		DeliveryDate: date,
	})
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}
	return d
}

func (f *fixture) setTier(t *testing.T, accountID string, tier domain.Tier) {
	t.Helper()
	if _, err := f.accounts.UpdateSubscription(context.Background(), accountID, func(s *domain.Subscription) {
		s.Tier = tier
	}); err != nil {
		t.Fatalf("set tier: %v", err)
	}
}

func expectEvent(t *testing.T, ch <-chan domain.ChangeEvent, kind domain.ChangeKind) {
	t.Helper()
	select {
	case evt := <-ch:
		if evt.Kind != kind {
			t.Fatalf("expected %s event, got %s", kind, evt.Kind)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected %s event", kind)
	}
}

// ============================================================
// Accounts
// ============================================================

func TestEnsure_CreatesAccountWithDefaults(t *testing.T) {
	f := newFixture(t)

	acct := f.ensure(t, "u1")
	if acct.Tier() != domain.TierFree {
		t.Errorf("expected FREE tier, got %s", acct.Tier())
	}
	if acct.PayPlan.FrontCommissionPercent != 25 || acct.Goals.IncomeGoal != 8000 {
		t.Errorf("expected default plan and goals, got %+v %+v", acct.PayPlan, acct.Goals)
	}

	stored, err := f.store.GetAccount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("account not persisted: %v", err)
	}
	if stored.Email != "u1@example.com" {
		t.Errorf("unexpected email %q", stored.Email)
	}
}

func TestEnsure_UpdatesChangedEmail(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	if _, err := f.accounts.Ensure(context.Background(), domain.Principal{AccountID: "u1", Email: "new@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	stored, _ := f.store.GetAccount(context.Background(), "u1")
	if stored.Email != "new@example.com" {
		t.Errorf("expected email to be updated, got %q", stored.Email)
	}
}

func TestUpdatePayPlan_InvalidatesCacheAndPublishes(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	events, cancel := f.hub.Subscribe("u1")
	defer cancel()

	plan := domain.DefaultPayPlan()
	plan.FrontCommissionPercent = 30
	if _, err := f.accounts.UpdatePayPlan(context.Background(), "u1", plan); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectEvent(t, events, domain.ChangeSettings)

	got, err := f.accounts.GetPayPlan(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.FrontCommissionPercent != 30 {
		t.Errorf("expected fresh plan after update, got %v", got.FrontCommissionPercent)
	}
}

func TestGet_ReturnsIndependentCopies(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	a, _ := f.accounts.Get(context.Background(), "u1")
	a.PayPlan.VolumeBonuses[0].Bonus = 1
	a.Goals.IncomeGoal = 1

	b, _ := f.accounts.Get(context.Background(), "u1")
	if b.PayPlan.VolumeBonuses[0].Bonus != 500 || b.Goals.IncomeGoal != 8000 {
		t.Errorf("cached account was mutated: %+v", b)
	}
}

// ============================================================
// Deals
// ============================================================

func TestCreateDeal_FillsPlanDefaults(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	events, cancel := f.hub.Subscribe("u1")
	defer cancel()

	d := f.addDeal(t, "u1", "2025-06-10")
	if d.ID == "" || d.CreatedAt.IsZero() {
		t.Errorf("expected server-assigned identity, got %+v", d)
	}
	if d.Flat != 100 || d.Spiffs != 0 {
		t.Errorf("expected plan flat/spiffs, got %v/%v", d.Flat, d.Spiffs)
	}
	expectEvent(t, events, domain.ChangeDeals)

	explicit, err := f.deals.Create(context.Background(), "u1", domain.DealDraft{
		CustomerName: "Zero flat",
		Type:         domain.DealTypeUsed,
		Flat:         domain.AmountPtr(0),
		DeliveryDate: "2025-06-11",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if explicit.Flat != 0 {
		t.Errorf("explicit zero flat must be kept, got %v", explicit.Flat)
	}
}

func TestCreateDeal_RejectsBadDate(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	_, err := f.deals.Create(context.Background(), "u1", domain.DealDraft{CustomerName: "x", Type: domain.DealTypeNew, DeliveryDate: "June 10"})
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestListDeals_LatestDeliveryFirst(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.addDeal(t, "u1", "2025-06-02")
	f.addDeal(t, "u1", "2025-06-20")
	f.addDeal(t, "u1", "2025-05-31")

	deals, err := f.deals.List(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"2025-06-20", "2025-06-02", "2025-05-31"}
	for i, d := range deals {
		if d.DeliveryDate != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], d.DeliveryDate)
		}
	}
}

func TestUpdateDeal_KeepsIdentity(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	orig := f.addDeal(t, "u1", "2025-06-02")

	updated, err := f.deals.Update(context.Background(), "u1", orig.ID, domain.DealDraft{
		CustomerName: "Renamed",
		Type:         domain.DealTypeCertified,
		DeliveryDate: "2025-06-03",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.ID != orig.ID || !updated.CreatedAt.Equal(orig.CreatedAt) {
		t.Errorf("identity changed: %+v vs %+v", updated, orig)
	}
	if updated.CustomerName != "Renamed" || updated.FrontGross != 0 {
		t.Errorf("expected full replace, got %+v", updated)
	}

	_, err = f.deals.Update(context.Background(), "u1", "missing", domain.DealDraft{DeliveryDate: "2025-06-03"})
	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestExport_IncludesPlanAndGoals(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	bundle, err := f.deals.Export(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if bundle.Deals == nil || len(bundle.Deals) != 0 {
		t.Errorf("expected empty non-nil deal list, got %v", bundle.Deals)
	}
	if bundle.PayPlan.Pack != 695 || bundle.Goals.NewUnitsGoal != 8 {
		t.Errorf("unexpected bundle: %+v", bundle)
	}

	var ni *domain.ErrNotImplemented
	if err := f.deals.Import(context.Background(), "u1", []byte(`{}`)); !errors.As(err, &ni) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}
}

// ============================================================
// Stats
// ============================================================

func TestDashboard_ComputesEveryReadModel(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.addDeal(t, "u1", "2025-06-09")
	f.addDeal(t, "u1", "2025-06-12")
	f.addDeal(t, "u1", "2025-05-20")

	now := time.Date(2025, 6, 15, 9, 0, 0, 0, time.UTC)
	d, err := f.stats.Dashboard(context.Background(), "u1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// (2000-695)*25% + 1000*15% + 100 flat = 576.25 per deal.
	if d.Stats.UnitsMTD != 2 || d.Stats.CommissionMTD != 1152.5 {
		t.Errorf("unexpected stats: %+v", d.Stats)
	}
	if d.Pace.IncomeGoal != 8000 || d.Pace.DaysRemaining != 15 {
		t.Errorf("unexpected pace: %+v", d.Pace)
	}
	if d.Coaching.DealsThisMonth != 2 || d.Coaching.DealsLastMonth != 1 || d.Coaching.MonthlyGoal != 13 {
		t.Errorf("unexpected coaching context: %+v", d.Coaching)
	}
	if d.Message.Text == "" || d.Message.Type != domain.TypeMorning {
		t.Errorf("unexpected message: %+v", d.Message)
	}
	if len(d.Penetration) != len(domain.Products) || len(d.Achievements) == 0 {
		t.Errorf("missing penetration or achievements")
	}
}

func TestWatch_PushesAfterChanges(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan *domain.Dashboard, 4)
	done := make(chan error, 1)
	go func() {
		done <- f.stats.Watch(ctx, "u1", func(d *domain.Dashboard) error {
			snapshots <- d
			return nil
		})
	}()

	first := <-snapshots
	if first.Stats.UnitsMTD != 0 {
		t.Fatalf("expected empty dashboard, got %d units", first.Stats.UnitsMTD)
	}

	f.addDeal(t, "u1", time.Now().UTC().Format("2006-01-02"))

	select {
	case next := <-snapshots:
		if next.Stats.UnitsMTD != 1 {
			t.Errorf("expected 1 unit after change, got %d", next.Stats.UnitsMTD)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no dashboard pushed after deal creation")
	}

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if n := f.hub.Subscribers("u1"); n != 0 {
		t.Errorf("expected subscriber to be removed, got %d", n)
	}
}

// feedWatcher stands in for a store change feed fed by other instances.
type feedWatcher struct{ ch chan domain.ChangeEvent }

func (w *feedWatcher) WatchAccount(context.Context, string) (<-chan domain.ChangeEvent, error) {
	return w.ch, nil
}

func TestWatch_ExternalSettingsChangeDropsCachedAccount(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	feed := &feedWatcher{ch: make(chan domain.ChangeEvent, 1)}
	accountCache := cache.New[*domain.Account](time.Minute)
	t.Cleanup(func() { _ = accountCache.Close() })
	accounts := service.NewAccountService(f.store, accountCache, f.hub, domain.BuiltinDefaults(), f.metrics, zap.NewNop())
	stats := service.NewStatsService(f.store, accounts, f.hub, feed, time.UTC, f.metrics, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snapshots := make(chan *domain.Dashboard, 4)
	go func() {
		_ = stats.Watch(ctx, "u1", func(d *domain.Dashboard) error {
			snapshots <- d
			return nil
		})
	}()

	first := <-snapshots
	if first.Pace.IncomeGoal == 12345 {
		t.Fatalf("unexpected starting income goal %v", first.Pace.IncomeGoal)
	}

	// Another instance writes the goals straight to the store.
	stored, err := f.store.GetAccount(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	stored.Goals.IncomeGoal = 12345
	if err := f.store.SaveAccount(context.Background(), stored); err != nil {
		t.Fatalf("save account: %v", err)
	}
	feed.ch <- domain.ChangeEvent{AccountID: "u1", Kind: domain.ChangeSettings}

	select {
	case next := <-snapshots:
		if next.Pace.IncomeGoal != 12345 {
			t.Errorf("expected rebuilt dashboard to use stored goal, got %v", next.Pace.IncomeGoal)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no dashboard pushed after external change")
	}

	acct, err := accounts.Get(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if acct.Goals.IncomeGoal != 12345 {
		t.Errorf("expected cache to be refreshed, got %v", acct.Goals.IncomeGoal)
	}
}

func TestWatch_StopsWhenEmitFails(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	boom := errors.New("client gone")
	err := f.stats.Watch(context.Background(), "u1", func(*domain.Dashboard) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected emit error, got %v", err)
	}
}

// ============================================================
// Hub
// ============================================================

func TestHub_DeliversPerAccount(t *testing.T) {
	hub := service.NewHub()
	a, cancelA := hub.Subscribe("a")
	b, cancelB := hub.Subscribe("b")
	defer cancelB()

	hub.Publish(domain.ChangeEvent{AccountID: "a", Kind: domain.ChangeDeals})

	expectEvent(t, a, domain.ChangeDeals)
	select {
	case evt := <-b:
		t.Fatalf("account b received %+v", evt)
	default:
	}

	cancelA()
	cancelA()
	if _, ok := <-a; ok {
		t.Error("expected channel to be closed after cancel")
	}
	hub.Publish(domain.ChangeEvent{AccountID: "a"})
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := service.NewHub()
	_, cancel := hub.Subscribe("a")
	defer cancel()

	for i := 0; i < 100; i++ {
		hub.Publish(domain.ChangeEvent{AccountID: "a"})
	}
}

// ============================================================
// Coach
// ============================================================

var coachNow = time.Date(2025, 6, 10, 10, 0, 0, 0, time.UTC)

func TestChat_FreeTierIsForbidden(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	_, err := f.coach.Chat(context.Background(), "u1", "How am I doing?", coachNow)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if forbidden.Error() != service.UpgradeRequiredMessage {
		t.Errorf("unexpected message %q", forbidden.Error())
	}
	if f.completer.calls() != 0 {
		t.Error("FREE accounts must never reach the model")
	}
	if got := f.metrics.GetCoachSnapshot().ForbiddenRequests; got != 1 {
		t.Errorf("expected 1 forbidden request, got %d", got)
	}
}

func TestChat_ProTierPrompt(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.setTier(t, "u1", domain.TierPro)
	f.addDeal(t, "u1", "2025-06-09")

	resp, err := f.coach.Chat(context.Background(), "u1", "  How am I doing?  ", coachNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.UsedTier != domain.TierPro || resp.Answer != "Book two appointments before noon." {
		t.Errorf("unexpected response: %+v", resp)
	}

	req := f.completer.requests[0]
	if req.Model != "gpt-4o-mini" || req.MaxTokens != 300 || req.Temperature != 0.7 {
		t.Errorf("unexpected request settings: %+v", req)
	}
	if len(req.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(req.Messages))
	}
	if !strings.Contains(req.Messages[0].Content, "PRO Tier Limitations") {
		t.Errorf("expected PRO prompt, got %q", req.Messages[0].Content)
	}
	for _, want := range []string{"Deals This Month: 1", "Commission This Month: $576", "Current Pace: behind (-3.3 deals vs expected)"} {
		if !strings.Contains(req.Messages[1].Content, want) {
			t.Errorf("context summary missing %q:\n%s", want, req.Messages[1].Content)
		}
	}
	if req.Messages[2].Role != "user" || req.Messages[2].Content != "How am I doing?" {
		t.Errorf("unexpected user message: %+v", req.Messages[2])
	}

	snap := f.metrics.GetCoachSnapshot()
	if snap.TotalRequests != 1 || snap.AvgTokensPerRequest != 120 {
		t.Errorf("unexpected metrics snapshot: %+v", snap)
	}
}

func TestChat_RateLimited(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.setTier(t, "u1", domain.TierGuru)
	f.limiter.allowed = false
	f.limiter.retryAfter = 3 * time.Second

	_, err := f.coach.Chat(context.Background(), "u1", "What if I sell 5 more?", coachNow)
	var limited *domain.ErrRateLimited
	if !errors.As(err, &limited) || limited.RetryAfter != 3*time.Second {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if f.completer.calls() != 0 {
		t.Error("rate-limited request must not reach the model")
	}
}

func TestChat_LimiterFailureServesRequest(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.setTier(t, "u1", domain.TierGuru)
	f.limiter.err = errors.New("redis down")

	if _, err := f.coach.Chat(context.Background(), "u1", "Help", coachNow); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChat_CompletionFailure(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	f.setTier(t, "u1", domain.TierGuru)
	f.completer.err = &domain.ErrExternalService{Service: "llm", Err: errors.New("503")}

	_, err := f.coach.Chat(context.Background(), "u1", "Help", coachNow)
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if snap := f.metrics.GetCoachSnapshot(); snap.ErrorRate != 1 {
		t.Errorf("expected error rate 1, got %v", snap.ErrorRate)
	}
}

func TestChat_EmptyQuestion(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	_, err := f.coach.Chat(context.Background(), "u1", "   ", coachNow)
	var v *domain.ErrValidation
	if !errors.As(err, &v) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestMessage_UsesStoredTier(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	c, err := f.coach.Context(context.Background(), "u1", coachNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Tier != domain.TierFree || c.DaysElapsed != 10 || c.DaysInMonth != 30 {
		t.Errorf("unexpected context: %+v", c)
	}

	msg, err := f.coach.Message(context.Background(), "u1", coachNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Text == "" || msg.Label == "" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestSystemPrompt_PerTier(t *testing.T) {
	free := service.SystemPrompt(domain.TierFree)
	pro := service.SystemPrompt(domain.TierPro)
	guru := service.SystemPrompt(domain.TierGuru)

	if !strings.HasPrefix(pro, free) || !strings.HasPrefix(guru, free) {
		t.Error("tier prompts must extend the base prompt")
	}
	if strings.Contains(free, "Tier") {
		t.Error("base prompt must not carry tier instructions")
	}
	if !strings.Contains(guru, "what-if scenarios") {
		t.Error("GURU prompt must allow what-if scenarios")
	}
}

func TestContextSummary(t *testing.T) {
	c := domain.CoachingContext{
		MonthlyGoal:            13,
		DealsThisMonth:         6,
		DealsLastMonth:         11,
		CommissionThisMonth:    3456.7,
		CommissionLastMonth:    7012,
		AvgCommissionThisMonth: 576.12,
		AvgCommissionLastMonth: 637.45,
		DaysElapsed:            12,
		DaysInMonth:            30,
		TodayDeals:             1,
		RecentDaysWithoutDeals: 0,
		Tier:                   domain.TierPro,
	}

	want := `Current Performance Data:

Monthly Goal: 13 deals
Deals This Month: 6
Deals Last Month: 11
Commission This Month: $3,457
Commission Last Month: $7,012
Average Commission This Month: $576
Average Commission Last Month: $637
Days Elapsed: 12 of 30
Days Remaining: 18
Deals Today: 1
Recent Days Without Deals: 0
Current Pace: on track (+0.8 deals vs expected)

Use these numbers to answer the user's question accurately and provide actionable advice.`

	if got := service.ContextSummary(c); got != want {
		t.Errorf("unexpected summary:\n%s", got)
	}
}

// ============================================================
// Billing
// ============================================================

const checkoutEvent = `{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"id":"cs_1","customer":"cus_1","subscription":"sub_1","customer_details":{"email":"U1@example.com"}%s}}}`

func TestWebhook_CheckoutActivatesPro(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	events, cancel := f.hub.Subscribe("u1")
	defer cancel()

	ack, err := f.billing.HandleWebhook(context.Background(), []byte(strings.Replace(checkoutEvent, "%s", "", 1)), "sig")
	if err != nil || !ack.Received {
		t.Fatalf("unexpected result: %+v %v", ack, err)
	}
	expectEvent(t, events, domain.ChangeTier)

	acct, _ := f.accounts.Get(context.Background(), "u1")
	if acct.Tier() != domain.TierPro {
		t.Errorf("expected PRO, got %s", acct.Tier())
	}
	if acct.Subscription.StripeCustomerID != "cus_1" || acct.Subscription.StripeSubscriptionID != "sub_1" || acct.Subscription.ActivatedAt == nil {
		t.Errorf("subscription not recorded: %+v", acct.Subscription)
	}
}

func TestWebhook_CheckoutGuruMetadata(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")

	payload := strings.Replace(checkoutEvent, "%s", `,"metadata":{"tier":"GURU"}`, 1)
	if _, err := f.billing.HandleWebhook(context.Background(), []byte(payload), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acct, _ := f.accounts.Get(context.Background(), "u1")
	if acct.Tier() != domain.TierGuru {
		t.Errorf("expected GURU, got %s", acct.Tier())
	}
}

func TestWebhook_SubscriptionDeletedDowngrades(t *testing.T) {
	f := newFixture(t)
	f.ensure(t, "u1")
	_, _ = f.billing.HandleWebhook(context.Background(), []byte(strings.Replace(checkoutEvent, "%s", "", 1)), "sig")

	payload := `{"id":"evt_2","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_1","status":"canceled"}}}`
	if _, err := f.billing.HandleWebhook(context.Background(), []byte(payload), "sig"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	acct, _ := f.accounts.Get(context.Background(), "u1")
	if acct.Tier() != domain.TierFree || acct.Subscription.CancelledAt == nil {
		t.Errorf("expected FREE with cancellation time, got %+v", acct.Subscription)
	}
}

func TestWebhook_AcknowledgesUnknownAccountAndEvents(t *testing.T) {
	f := newFixture(t)

	payloads := []string{
		strings.Replace(checkoutEvent, "%s", "", 1),
		`{"id":"evt_3","type":"customer.subscription.deleted","data":{"object":{"id":"sub_unknown"}}}`,
		`{"id":"evt_4","type":"invoice.paid","data":{"object":{}}}`,
	}
	for _, p := range payloads {
		ack, err := f.billing.HandleWebhook(context.Background(), []byte(p), "sig")
		if err != nil || !ack.Received {
			t.Errorf("expected ack for %s, got %+v %v", p, ack, err)
		}
	}
}

func TestWebhook_BadSignature(t *testing.T) {
	f := newFixture(t)
	f.verifier.err = &domain.ErrInvalidSignature{Reason: "no match"}

	_, err := f.billing.HandleWebhook(context.Background(), []byte(`{}`), "bad")
	var sig *domain.ErrInvalidSignature
	if !errors.As(err, &sig) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestWebhook_EventWithoutDataIsRejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.billing.HandleWebhook(context.Background(), []byte(`{"id":"evt_5","type":"checkout.session.completed"}`), "sig")
	var sig *domain.ErrInvalidSignature
	if !errors.As(err, &sig) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}
