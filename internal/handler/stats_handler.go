package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

// ============================================================
// Read models
// ============================================================

func dashboardHandler(svc *service.StatsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		d, err := svc.Dashboard(ctx, accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, d)
	}
}

func statsHandler(svc *service.StatsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		stats, err := svc.Stats(r.Context(), accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func paceHandler(svc *service.StatsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		pace, err := svc.Pace(r.Context(), accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, pace)
	}
}

func achievementsHandler(svc *service.StatsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		list, err := svc.Achievements(r.Context(), accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}
