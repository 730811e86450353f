package handler

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/observability"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

// ChatFailureMessage is shown when the model could not answer.
const ChatFailureMessage = "Failed to process your request. Please try again."

// ============================================================
// Coach
// ============================================================

func coachMessageHandler(svc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		msg, err := svc.Message(r.Context(), accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func coachContextHandler(svc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		c, err := svc.Context(r.Context(), accountID, time.Now())
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// coachChatHandler keeps the error bodies the mobile client already parses:
// 403 "Upgrade required" for FREE accounts and a generic 500 for model failures.
func coachChatHandler(svc *service.CoachService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/coach/chat")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}

		var req domain.CoachChatRequest
		if err := decodeJSON(r, &req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Missing required fields", Message: err.Error()})
			return
		}

		resp, err := svc.Chat(ctx, accountID, req.Message, time.Now())
		if err == nil {
			writeJSON(w, http.StatusOK, resp)
			return
		}

		var forbidden *domain.ErrForbidden
		var limited *domain.ErrRateLimited
		var validation *domain.ErrValidation
		switch {
		case errors.As(err, &forbidden):
			writeJSON(w, http.StatusForbidden, errorResponse{Error: "Upgrade required", Message: forbidden.Error()})
		case errors.As(err, &limited), errors.As(err, &validation):
			handleServiceError(w, err, logger)
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Internal server error", Message: ChatFailureMessage})
		}
	}
}

func coachMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCoachSnapshot())
	}
}
