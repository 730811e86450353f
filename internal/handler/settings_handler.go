package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

// ============================================================
// Pay plan, goals, notifications
// ============================================================

func getPayPlanHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		plan, err := svc.GetPayPlan(r.Context(), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func updatePayPlanHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/payplan")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var plan domain.PayPlan
		if err := decodeJSON(r, &plan); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		saved, err := svc.UpdatePayPlan(ctx, accountID, plan)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func getGoalsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		goals, err := svc.GetGoals(r.Context(), accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, goals)
	}
}

func updateGoalsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/goals")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var goals domain.Goals
		if err := decodeJSON(r, &goals); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		saved, err := svc.UpdateGoals(ctx, accountID, goals)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}

func updateNotificationsHandler(svc *service.AccountService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var prefs domain.NotificationPreferences
		if err := decodeJSON(r, &prefs); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		saved, err := svc.UpdateNotifications(r.Context(), accountID, prefs)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, saved)
	}
}
