package firebase

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
)

// TokenVerifier checks Firebase ID tokens issued to the web client.
type TokenVerifier struct {
	client *auth.Client
}

// NewTokenVerifier creates a verifier from an initialized app.
func NewTokenVerifier(ctx context.Context, app *firebase.App) (*TokenVerifier, error) {
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase auth: %w", err)
	}
	return &TokenVerifier{client: client}, nil
}

// Verify resolves an ID token to its uid and email.
func (v *TokenVerifier) Verify(ctx context.Context, token string) (*domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "Firebase.VerifyIDToken")
	defer span.End()

	t, err := v.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	email, _ := t.Claims["email"].(string)
	return &domain.Principal{AccountID: t.UID, Email: email}, nil
}
