package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

// ============================================================
// Deals
// ============================================================

func listDealsHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/deals")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		deals, err := svc.List(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		if deals == nil {
			deals = []domain.Deal{}
		}
		writeJSON(w, http.StatusOK, deals)
	}
}

func getDealHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/deals/{dealId}")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		dealID := chi.URLParam(r, "dealId")
		span.SetAttributes(attribute.String("deal.id", dealID))

		deal, err := svc.Get(ctx, accountID, dealID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, deal)
	}
}

func createDealHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/deals")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		var draft domain.DealDraft
		if err := decodeJSON(r, &draft); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		deal, err := svc.Create(ctx, accountID, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, deal)
	}
}

func updateDealHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/deals/{dealId}")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		dealID := chi.URLParam(r, "dealId")
		span.SetAttributes(attribute.String("deal.id", dealID))

		var draft domain.DealDraft
		if err := decodeJSON(r, &draft); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		deal, err := svc.Update(ctx, accountID, dealID, draft)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, deal)
	}
}

func deleteDealHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/deals/{dealId}")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		dealID := chi.URLParam(r, "dealId")
		if err := svc.Delete(ctx, accountID, dealID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "deal deleted", ID: dealID})
	}
}

// ============================================================
// Export / import
// ============================================================

func exportHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export")
		defer span.End()

		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		bundle, err := svc.Export(ctx, accountID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		body, err := json.MarshalIndent(bundle, "", "  ")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="carcash-export.json"`)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(body)
	}
}

func importHandler(svc *service.DealService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := requireAccount(w, r)
		if !ok {
			return
		}
		handleServiceError(w, svc.Import(r.Context(), accountID, nil), logger)
	}
}
