package service

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/engine"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
)

// UpgradeRequiredMessage is returned to FREE accounts asking for chat.
const UpgradeRequiredMessage = "AI coaching is available for PRO and GURU subscribers only."

// CoachConfig tunes the completion requests.
type CoachConfig struct {
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CoachService produces the rule-based coach card and answers chat
// questions through the language model.
type CoachService struct {
	deals     port.DealStore
	accounts  *AccountService
	completer port.CoachCompleter
	limiter   port.RateLimiter
	bulkhead  *resilience.Bulkhead
	cfg       CoachConfig
	loc       *time.Location
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// NewCoachService creates the coach service with all dependencies injected.
func NewCoachService(
	deals port.DealStore,
	accounts *AccountService,
	completer port.CoachCompleter,
	limiter port.RateLimiter,
	bulkhead *resilience.Bulkhead,
	cfg CoachConfig,
	loc *time.Location,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CoachService {
	if loc == nil {
		loc = time.UTC
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &CoachService{
		deals:     deals,
		accounts:  accounts,
		completer: completer,
		limiter:   limiter,
		bulkhead:  bulkhead,
		cfg:       cfg,
		loc:       loc,
		metrics:   metrics,
		logger:    logger,
	}
}

// Context returns the coaching snapshot for accountID. The tier always
// comes from the stored account.
func (s *CoachService) Context(ctx context.Context, accountID string, now time.Time) (domain.CoachingContext, error) {
	ctx, span := tracer.Start(ctx, "CoachService.Context")
	defer span.End()

	data, err := loadAccountData(ctx, s.accounts, s.deals, accountID)
	if err != nil {
		return domain.CoachingContext{}, err
	}
	acct := data.account
	return engine.CalculateCoachingStats(data.deals, acct.PayPlan, acct.Goals.TotalUnitsGoal(), acct.Tier(), now.In(s.loc)), nil
}

// Message returns the coach card for the current time of day.
func (s *CoachService) Message(ctx context.Context, accountID string, now time.Time) (domain.CoachMessage, error) {
	c, err := s.Context(ctx, accountID, now)
	if err != nil {
		return domain.CoachMessage{}, err
	}
	tod := engine.TimeOfDayAt(now.In(s.loc))
	s.logger.Debug("coach message selected",
		zap.String("account_id", accountID),
		zap.String("tier", string(c.Tier)),
		zap.String("rule", engine.MatchedRule(c, tod)),
	)
	return engine.GenerateCoachingMessage(c, tod), nil
}

// Chat answers a free-form question for PRO and GURU accounts.
func (s *CoachService) Chat(ctx context.Context, accountID, question string, now time.Time) (*domain.CoachChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "CoachService.Chat")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", accountID))

	start := time.Now()
	defer func() {
		s.metrics.RecordRequestDuration("coach_chat", time.Since(start))
	}()

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, &domain.ErrValidation{Field: "message", Message: "is required"}
	}

	c, err := s.Context(ctx, accountID, now)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("account.tier", string(c.Tier)))

	if !c.Tier.Paid() {
		s.metrics.IncrCoachRequest(observability.OutcomeForbidden)
		return nil, &domain.ErrForbidden{Action: "coach chat", Message: UpgradeRequiredMessage}
	}

	allowed, retryAfter, err := s.limiter.Allow(ctx, accountID)
	if err != nil {
		// Limiter backend down: serve the request.
		s.logger.Warn("coach rate limiter unavailable", zap.String("account_id", accountID), zap.Error(err))
	} else if !allowed {
		s.metrics.IncrCoachRequest(observability.OutcomeRateLimited)
		return nil, &domain.ErrRateLimited{RetryAfter: retryAfter}
	}

	if err := s.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.bulkhead.Release()

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	resp, err := s.completer.Complete(callCtx, &domain.CompletionRequest{
		Model: s.cfg.Model,
		Messages: []domain.ChatMessage{
			{Role: "system", Content: SystemPrompt(c.Tier)},
			{Role: "system", Content: ContextSummary(c)},
			{Role: "user", Content: question},
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		s.metrics.IncrCoachRequest(observability.OutcomeError)
		s.metrics.IncrExternalError("llm")
		s.logger.Error("coach chat failed",
			zap.String("account_id", accountID),
			zap.String("tier", string(c.Tier)),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.IncrCoachRequest(observability.OutcomeSuccess)
	s.metrics.RecordTokens(resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	s.logger.Info("coach chat answered",
		zap.String("account_id", accountID),
		zap.String("tier", string(c.Tier)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
	)

	return &domain.CoachChatResponse{Answer: resp.Answer(), UsedTier: c.Tier}, nil
}
