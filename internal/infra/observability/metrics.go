package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// Coach request outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeError       = "error"
	OutcomeForbidden   = "forbidden"
	OutcomeRateLimited = "rate_limited"
)

// AccountCache labels the account settings cache in cache metrics.
const AccountCache = "account"

// Metrics holds all Prometheus metrics of the service.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	externalErrors  *prometheus.CounterVec
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	tokensUsed      *prometheus.CounterVec
	coachRequests   *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	dealMutations   *prometheus.CounterVec
	liveStreams     prometheus.Gauge
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "carcash_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		coachRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_coach_requests_total",
				Help: "Coach chat requests by outcome.",
			},
			[]string{"outcome"},
		),
		webhookEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_webhook_events_total",
				Help: "Payment webhook events by type and result.",
			},
			[]string{"type", "result"},
		),
		dealMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "carcash_deal_mutations_total",
				Help: "Deal writes by kind.",
			},
			[]string{"kind"},
		),
		liveStreams: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "carcash_live_streams",
				Help: "Open live dashboard streams.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrCoachRequest counts a coach chat request by outcome.
func (m *Metrics) IncrCoachRequest(outcome string) {
	m.coachRequests.WithLabelValues(outcome).Inc()
}

// IncrWebhookEvent counts a webhook delivery.
func (m *Metrics) IncrWebhookEvent(eventType, result string) {
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

// IncrDealMutation counts a deal create/update/delete.
func (m *Metrics) IncrDealMutation(kind string) {
	m.dealMutations.WithLabelValues(kind).Inc()
}

// StreamOpened and StreamClosed track live websocket streams.
func (m *Metrics) StreamOpened() { m.liveStreams.Inc() }
func (m *Metrics) StreamClosed() { m.liveStreams.Dec() }

// GetCoachSnapshot returns the coach metrics served by GET /v1/metrics/coach.
func (m *Metrics) GetCoachSnapshot() *domain.CoachMetrics {
	promptTokens := getCounterValue(m.tokensUsed, "prompt")
	completionTokens := getCounterValue(m.tokensUsed, "completion")
	success := getCounterValue(m.coachRequests, OutcomeSuccess)
	errorCount := getCounterValue(m.coachRequests, OutcomeError)
	forbidden := getCounterValue(m.coachRequests, OutcomeForbidden)
	limited := getCounterValue(m.coachRequests, OutcomeRateLimited)
	cacheHits := getCounterValue(m.cacheHits, AccountCache)
	cacheMisses := getCounterValue(m.cacheMisses, AccountCache)

	completed := success + errorCount
	totalRequests := completed + forbidden + limited
	avgTokens := float64(0)
	errorRate := float64(0)
	cacheHitRate := float64(0)

	if completed > 0 {
		avgTokens = (promptTokens + completionTokens) / completed
		errorRate = errorCount / completed
	}
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	// gpt-4o-mini list price: $0.15/1M prompt, $0.60/1M completion tokens.
	estimatedCost := (promptTokens/1000)*0.00015 + (completionTokens/1000)*0.0006

	return &domain.CoachMetrics{
		TotalRequests:       int64(totalRequests),
		ErrorRate:           errorRate,
		ForbiddenRequests:   int64(forbidden),
		RateLimited:         int64(limited),
		AvgTokensPerRequest: avgTokens,
		EstimatedCostUsd:    estimatedCost,
		CacheHitRate:        cacheHitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
