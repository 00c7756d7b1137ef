package registry

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"mcq-worker/internal/config"
	"mcq-worker/internal/util"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// InternalSecretHeader carries the shared secret for backends that check it
// outside the Authorization header.
const InternalSecretHeader = "X-Internal-Secret"

// Authenticator decorates outgoing registry requests with credentials.
type Authenticator interface {
	Authorize(req *http.Request) error
}

// SecretAuth sends the shared worker secret as a bearer token.
type SecretAuth struct {
	secret string
}

func (a *SecretAuth) Authorize(req *http.Request) error {
	req.Header.Set("Authorization", "Bearer "+a.secret)
	req.Header.Set(InternalSecretHeader, a.secret)
	return nil
}

// WorkerClaims identifies the calling worker to the registry.
type WorkerClaims struct {
	WorkerID string `json:"worker_id"`
	jwt.RegisteredClaims
}

// JWTAuth mints a short-lived HS256 token per request, signed with the
// shared secret.
type JWTAuth struct {
	secret   []byte
	workerID string
	ttl      time.Duration
	now      func() time.Time
}

func (a *JWTAuth) Authorize(req *http.Request) error {
	now := a.now()
	claims := WorkerClaims{
		WorkerID: a.workerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "mcq-worker",
			Subject:   a.workerID,
			ID:        util.NewULID(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return fmt.Errorf("failed to sign registry token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+signed)
	return nil
}

// OAuth2Auth uses the client-credentials grant. Tokens are cached and
// refreshed by the token source.
type OAuth2Auth struct {
	source oauth2.TokenSource
}

func (a *OAuth2Auth) Authorize(req *http.Request) error {
	token, err := a.source.Token()
	if err != nil {
		return fmt.Errorf("failed to obtain registry token: %w", err)
	}
	token.SetAuthHeader(req)
	return nil
}

// NewAuthenticator selects the auth mode configured for the registry.
func NewAuthenticator(ctx context.Context, cfg config.RegistryConfig, workerID string) (Authenticator, error) {
	switch cfg.Auth {
	case "", "secret":
		return &SecretAuth{secret: cfg.Secret}, nil
	case "jwt":
		ttl := cfg.TokenTTL
		if ttl <= 0 {
			ttl = 5 * time.Minute
		}
		return &JWTAuth{secret: []byte(cfg.Secret), workerID: workerID, ttl: ttl, now: time.Now}, nil
	case "oauth2":
		cc := &clientcredentials.Config{
			ClientID:     cfg.OAuth2.ClientID,
			ClientSecret: cfg.OAuth2.ClientSecret,
			TokenURL:     cfg.OAuth2.TokenURL,
			Scopes:       cfg.OAuth2.Scopes,
		}
		return &OAuth2Auth{source: cc.TokenSource(ctx)}, nil
	default:
		return nil, fmt.Errorf("unsupported registry auth %q", cfg.Auth)
	}
}
