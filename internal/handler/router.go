package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

var tracer = otel.Tracer("handler")

// HealthCheck is a dependency probed by /healthz and /readyz.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Accounts *service.AccountService
	Deals    *service.DealService
	Stats    *service.StatsService
	Coach    *service.CoachService
	Billing  *service.BillingService
	Verifier port.TokenVerifier
	Checks   []HealthCheck
	Metrics  *observability.Metrics
	Logger   *zap.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.RequestMetricsMiddleware(d.Metrics))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(d.Checks))
	r.Get("/readyz", readyzHandler(d.Checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(d.Metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Stripe signs the payload; no bearer token.
		if d.Billing != nil {
			r.Post("/webhooks/stripe", stripeWebhookHandler(d.Billing, logger))
		}

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.Verifier, d.Accounts, logger))

			r.Get("/deals", listDealsHandler(d.Deals, logger))
			r.Post("/deals", createDealHandler(d.Deals, logger))
			r.Get("/deals/{dealId}", getDealHandler(d.Deals, logger))
			r.Put("/deals/{dealId}", updateDealHandler(d.Deals, logger))
			r.Delete("/deals/{dealId}", deleteDealHandler(d.Deals, logger))

			r.Get("/payplan", getPayPlanHandler(d.Accounts, logger))
			r.Put("/payplan", updatePayPlanHandler(d.Accounts, logger))
			r.Get("/goals", getGoalsHandler(d.Accounts, logger))
			r.Put("/goals", updateGoalsHandler(d.Accounts, logger))
			r.Put("/notifications", updateNotificationsHandler(d.Accounts, logger))

			r.Get("/stats", statsHandler(d.Stats, logger))
			r.Get("/dashboard", dashboardHandler(d.Stats, logger))
			r.Get("/pace", paceHandler(d.Stats, logger))
			r.Get("/achievements", achievementsHandler(d.Stats, logger))
			r.Get("/stream", streamHandler(d.Stats, logger))

			r.Get("/coach/message", coachMessageHandler(d.Coach, logger))
			r.Get("/coach/context", coachContextHandler(d.Coach, logger))
			r.Post("/coach/chat", coachChatHandler(d.Coach, logger))

			r.Get("/export", exportHandler(d.Deals, logger))
			r.Post("/import", importHandler(d.Deals, logger))

			r.Get("/metrics/coach", coachMetricsHandler(d.Metrics))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func runChecks(ctx context.Context, checks []HealthCheck) []domain.ServiceHealth {
	now := time.Now().Format(time.RFC3339)
	out := []domain.ServiceHealth{{Name: "carcash-api", Status: "healthy", LastChecked: now}}

	for _, c := range checks {
		cctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		start := time.Now()
		err := c.Ping(cctx)
		cancel()

		status := "healthy"
		if err != nil {
			status = "degraded"
		}
		out = append(out, domain.ServiceHealth{
			Name:        c.Name,
			Status:      status,
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		})
	}
	return out
}

func overall(services []domain.ServiceHealth) string {
	status := "healthy"
	for _, s := range services {
		if s.Status == "unhealthy" {
			return "unhealthy"
		}
		if s.Status == "degraded" {
			status = "degraded"
		}
	}
	return status
}

func healthzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := runChecks(r.Context(), checks)
		writeJSON(w, http.StatusOK, domain.HealthStatus{Status: overall(services), Services: services})
	}
}

func readyzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := runChecks(r.Context(), checks)
		if overall(services) != "healthy" {
			logger.Warn("not ready", zap.Any("services", services))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
