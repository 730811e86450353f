package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

// watchRefresh rebuilds a live dashboard even without changes so the
// time-of-day message and day counters move forward.
const watchRefresh = 5 * time.Minute

// StatsService builds the read models shown on the dashboard.
type StatsService struct {
	deals    port.DealStore
	accounts *AccountService
	hub      *Hub
	watcher  port.ChangeWatcher
	loc      *time.Location
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewStatsService creates the stats service. watcher is optional; when set,
// live streams also react to changes written by other processes.
func NewStatsService(
	deals port.DealStore,
	accounts *AccountService,
	hub *Hub,
	watcher port.ChangeWatcher,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{
		deals:    deals,
		accounts: accounts,
		hub:      hub,
		watcher:  watcher,
		loc:      loc,
		metrics:  metrics,
		logger:   logger,
	}
}

// Dashboard computes every read model for accountID as of now.
func (s *StatsService) Dashboard(ctx context.Context, accountID string, now time.Time) (*domain.Dashboard, error) {
	ctx, span := tracer.Start(ctx, "StatsService.Dashboard")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	data, err := loadAccountData(ctx, s.accounts, s.deals, accountID)
	if err != nil {
		return nil, err
	}
	return buildDashboard(data, now.In(s.loc)), nil
}

// Stats returns the month-to-date summary.
func (s *StatsService) Stats(ctx context.Context, accountID string, now time.Time) (domain.UserStats, error) {
	d, err := s.Dashboard(ctx, accountID, now)
	if err != nil {
		return domain.UserStats{}, err
	}
	return d.Stats, nil
}

// Pace returns the income goal progress.
func (s *StatsService) Pace(ctx context.Context, accountID string, now time.Time) (domain.PaceSummary, error) {
	d, err := s.Dashboard(ctx, accountID, now)
	if err != nil {
		return domain.PaceSummary{}, err
	}
	return d.Pace, nil
}

// Achievements returns the achievement catalogue with progress.
func (s *StatsService) Achievements(ctx context.Context, accountID string, now time.Time) ([]domain.Achievement, error) {
	d, err := s.Dashboard(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	return d.Achievements, nil
}

func buildDashboard(data *accountData, asOf time.Time) *domain.Dashboard {
	acct := data.account
	stats := engine.RecalculateStats(data.deals, acct.PayPlan, acct.Goals, asOf)
	coaching := engine.CalculateCoachingStats(data.deals, acct.PayPlan, acct.Goals.TotalUnitsGoal(), acct.Tier(), asOf)

	return &domain.Dashboard{
		AsOf:         asOf,
		Stats:        stats,
		Pace:         engine.IncomePace(stats, acct.Goals, asOf),
		Penetration:  engine.ProductPenetration(data.deals, asOf),
		Achievements: engine.EvaluateAchievements(data.deals, acct.PayPlan, stats),
		Coaching:     coaching,
		Message:      engine.GenerateCoachingMessage(coaching, engine.TimeOfDayAt(asOf)),
	}
}

// Watch emits a dashboard immediately and again after every change to the
// account until ctx is done or emit fails.
func (s *StatsService) Watch(ctx context.Context, accountID string, emit func(*domain.Dashboard) error) error {
	events, cancel := s.hub.Subscribe(accountID)
	defer cancel()

	var external <-chan domain.ChangeEvent
	if s.watcher != nil {
		ch, err := s.watcher.WatchAccount(ctx, accountID)
		if err != nil {
			s.logger.Warn("external change feed unavailable",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
		} else {
			external = ch
		}
	}

	s.metrics.StreamOpened()
	defer s.metrics.StreamClosed()

	first, err := s.Dashboard(ctx, accountID, time.Now())
	if err != nil {
		return err
	}
	if err := emit(first); err != nil {
		return err
	}

	ticker := time.NewTicker(watchRefresh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case _, ok := <-events:
			if !ok {
				return nil
			}
			drain(events)
		case evt, ok := <-external:
			if !ok {
				external = nil
				continue
			}
			// Changes written by another instance never passed through
			// this instance's account cache.
			if queued := drain(external); touchesAccount(evt.Kind) || queued {
				s.accounts.Invalidate(accountID)
			}
		}

		d, err := s.Dashboard(ctx, accountID, time.Now())
		if err != nil {
			s.logger.Warn("live dashboard rebuild failed",
				zap.String("account_id", accountID),
				zap.Error(err),
			)
			continue
		}
		if err := emit(d); err != nil {
			return err
		}
	}
}

// drain discards events already queued; one rebuild covers them all. It
// reports whether any of them changed the account document.
func drain(ch <-chan domain.ChangeEvent) bool {
	touched := false
	for {
		select {
		case evt, ok := <-ch:
			if !ok {
				return touched
			}
			touched = touched || touchesAccount(evt.Kind)
		default:
			return touched
		}
	}
}

func touchesAccount(kind domain.ChangeKind) bool {
	return kind == domain.ChangeSettings || kind == domain.ChangeTier
}
