// Package firebase adapts Firebase (Firestore + Auth) to the store and
// token verifier ports.
package firebase

import (
	"context"
	"encoding/base64"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"go.opentelemetry.io/otel"
	"google.golang.org/api/option"
)

var tracer = otel.Tracer("firebase")

// Config selects the project and service account credentials. Base64
// credentials win over a file; with neither, application default
// credentials are used.
type Config struct {
	ProjectID         string
	CredentialsFile   string
	CredentialsBase64 string
}

// NewApp initializes the Firebase Admin SDK.
func NewApp(ctx context.Context, cfg Config) (*firebase.App, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.CredentialsBase64)
		if err != nil {
			return nil, fmt.Errorf("decode firebase credentials: %w", err)
		}
		opts = append(opts, option.WithCredentialsJSON(decoded))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	return app, nil
}
