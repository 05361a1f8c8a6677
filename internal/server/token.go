package server

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v3/jwk"
	"github.com/lestrrat-go/jwx/v3/jwt"
)

// Identity is what a verified access token says about the caller.
type Identity struct {
	UserID     string
	Email      string
	GivenName  string
	FamilyName string
}

type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, token string) (*Identity, error)
}

// JWKSVerifier validates Cognito access tokens against the pool's JWKS.
type JWKSVerifier struct {
	cache   *jwk.Cache
	jwksURL string
}

func NewJWKSVerifier(cache *jwk.Cache, jwksURL string) *JWKSVerifier {
	return &JWKSVerifier{cache: cache, jwksURL: jwksURL}
}

func (v *JWKSVerifier) VerifyAccessToken(ctx context.Context, accessToken string) (*Identity, error) {
	set, err := v.cache.Lookup(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch JWKS: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(accessToken),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse JWT: %w", err)
	}

	userID, ok := token.Subject()
	if !ok || userID == "" {
		return nil, fmt.Errorf("no user ID in JWT subject claim")
	}

	identity := &Identity{UserID: userID}

	// Optional claims; Cognito access tokens usually omit them.
	_ = token.Get("email", &identity.Email)
	_ = token.Get("given_name", &identity.GivenName)
	_ = token.Get("family_name", &identity.FamilyName)

	return identity, nil
}
