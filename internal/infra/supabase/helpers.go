package supabase

import (
	"context"
	"errors"
	"net/url"

	"github.com/carcashpro/carcash-bfa-go/internal/domain"
	"github.com/carcashpro/carcash-bfa-go/internal/infra/resilience"
)

// eq builds a PostgREST equality filter value.
func eq(v string) string {
	return "eq." + url.QueryEscape(v)
}

// call runs fn behind the breaker with retry. Domain errors pass through;
// anything else is reported as an external service failure.
func call[T any](ctx context.Context, c *Client, service string, fn func() (T, error)) (T, error) {
	v, err := resilience.Execute(ctx, c.cb, c.cfg, fn)
	if err == nil {
		return v, nil
	}

	var zero T
	if resilience.Permanent(err) {
		return zero, err
	}
	var open *domain.ErrCircuitOpen
	if errors.As(err, &open) {
		return zero, err
	}
	return zero, &domain.ErrExternalService{Service: "supabase/" + service, Err: err}
}
