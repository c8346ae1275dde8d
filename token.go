package firerest

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuth scopes requested for service account tokens.
var firestoreScopes = []string{
	"https://www.googleapis.com/auth/datastore",
	"https://www.googleapis.com/auth/cloud-platform",
}

// ITokenProvider supplies bearer tokens for outgoing requests. Providers own
// their credential state; nothing in this package keeps tokens in package
// globals, so independent connections can authenticate as different
// identities.
type ITokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// ServiceAccountTokenProvider exchanges a service account key for access
// tokens via the OAuth2 JWT flow. Refresh on expiry is handled by the
// underlying reusable token source.
type ServiceAccountTokenProvider struct {
	source oauth2.TokenSource
}

// NewServiceAccountTokenProvider parses a service account key in JSON form
// and prepares a caching token source for it.
func NewServiceAccountTokenProvider(ctx context.Context, credentialsJSON []byte) (*ServiceAccountTokenProvider, error) {
	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, firestoreScopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse service account credentials: %w", err)
	}
	return &ServiceAccountTokenProvider{source: jwtConfig.TokenSource(ctx)}, nil
}

func (p *ServiceAccountTokenProvider) Token(ctx context.Context) (string, error) {
	token, err := p.source.Token()
	if err != nil {
		return "", fmt.Errorf("failed to obtain access token: %w", err)
	}
	return token.AccessToken, nil
}

// StaticTokenProvider returns a fixed token. Useful against the emulator,
// which accepts any bearer token, and in tests.
type StaticTokenProvider string

func (p StaticTokenProvider) Token(ctx context.Context) (string, error) {
	return string(p), nil
}
