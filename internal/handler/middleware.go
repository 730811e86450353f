package handler

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/port"
	"github.com/carcashpro/carcash-bfa-go/internal/service"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// AuthMiddleware validates Bearer tokens, makes sure the caller has an
// account and injects its ID into the context. Browsers cannot set headers
// on websocket upgrades, so an access_token query parameter is accepted when
// the header is absent.
func AuthMiddleware(verifier port.TokenVerifier, accounts *service.AccountService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("auth: missing or malformed token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			principal, err := verifier.Verify(r.Context(), token)
			if err != nil {
				handleServiceError(w, err, logger)
				return
			}

			if _, err := accounts.Ensure(r.Context(), *principal); err != nil {
				handleServiceError(w, err, logger)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, principal.AccountID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		t := r.URL.Query().Get("access_token")
		return t, t != ""
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

// AccountIDFromContext extracts the authenticated account ID from context.
func AccountIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(accountIDKey).(string)
	return v
}

// requireAccount answers 401 when no authenticated account is in the context.
func requireAccount(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := AccountIDFromContext(r.Context())
	if id == "" {
		writeError(w, http.StatusUnauthorized, (&domain.ErrUnauthorized{}).Error())
		return "", false
	}
	return id, true
}
