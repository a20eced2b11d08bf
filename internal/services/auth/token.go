package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/dependencies/random"
	"github.com/mcoot/gamehost/internal/metrics"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

const tokenIssuer = "gamehost"

// claims is the signed payload of a session token
type claims struct {
	PrincipalID model.PrincipalID `json:"pid"`
	Username    string            `json:"username"`
	Blocked     bool              `json:"blocked"`
	jwt.RegisteredClaims
}

// IssuedToken is a freshly signed session token
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenAuthority signs session tokens and checks them against the token
// store. A token is only valid while its signature verifies, it has not
// expired, and it is still the persisted token of its principal.
type TokenAuthority struct {
	store  storage.TokenStore
	clock  clock.Clock
	random random.Random
	secret []byte
	ttl    time.Duration
}

// NewTokenAuthority creates a token authority
func NewTokenAuthority(store storage.TokenStore, clock clock.Clock, random random.Random, secret []byte, ttl time.Duration) *TokenAuthority {
	return &TokenAuthority{
		store:  store,
		clock:  clock,
		random: random,
		secret: secret,
		ttl:    ttl,
	}
}

// Issue signs a token for p and makes it the principal's only live token
func (a *TokenAuthority) Issue(ctx context.Context, p *model.Principal) (*IssuedToken, error) {
	now := a.clock.Now()
	expiresAt := now.Add(a.ttl)

	c := claims{
		PrincipalID: p.ID,
		Username:    p.Username,
		Blocked:     p.Blocked,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        a.random.Token(16),
			Issuer:    tokenIssuer,
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	rec := &model.TokenRecord{
		Token:       signed,
		PrincipalID: p.ID,
		ExpiresAt:   expiresAt,
		CreatedAt:   now,
	}
	if err := a.store.ReplaceToken(ctx, rec); err != nil {
		return nil, err
	}
	metrics.TokenIssued()

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt}, nil
}

// Validate returns the identity carried by token. Both the signature check
// and the store lookup must pass.
func (a *TokenAuthority) Validate(ctx context.Context, token string) (*model.Identity, error) {
	if token == "" {
		return nil, model.ErrInvalidToken
	}

	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c,
		func(*jwt.Token) (any, error) { return a.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(a.clock.Now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidToken, err)
	}

	rec, err := a.store.GetToken(ctx, token)
	if err != nil {
		if errors.Is(err, model.ErrTokenNotFound) {
			return nil, model.ErrInvalidToken
		}
		return nil, err
	}
	if rec.PrincipalID != c.PrincipalID {
		return nil, model.ErrInvalidToken
	}

	return &model.Identity{
		PrincipalID: c.PrincipalID,
		Username:    c.Username,
		Blocked:     c.Blocked,
	}, nil
}

// Revoke deletes a token. Revoking an unknown token is not an error.
func (a *TokenAuthority) Revoke(ctx context.Context, token string) error {
	return a.store.DeleteToken(ctx, token)
}

// RevokeAll deletes every token of a principal
func (a *TokenAuthority) RevokeAll(ctx context.Context, id model.PrincipalID) error {
	return a.store.DeleteTokensForPrincipal(ctx, id)
}

// PurgeExpired deletes persisted tokens whose expiry has passed
func (a *TokenAuthority) PurgeExpired(ctx context.Context) (int64, error) {
	return a.store.DeleteExpiredTokens(ctx, a.clock.Now())
}
