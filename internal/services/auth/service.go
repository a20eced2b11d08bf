package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/gamehost/internal/dependencies/clock"
	"github.com/mcoot/gamehost/internal/dependencies/random"
	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/services/access"
	"github.com/mcoot/gamehost/internal/storage"
)

// Credential limits
const (
	MinUsernameLength = 4
	MaxUsernameLength = 60
	MinPasswordLength = 6
)

// Config holds configuration for the auth service
type Config struct {
	// Secret signs session tokens. It must be set outside of tests.
	Secret string

	TokenTTL   time.Duration
	BcryptCost int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		Secret:     "insecure-development-secret",
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Service handles principal registration and session management
type Service struct {
	storage    storage.Storage
	tokens     *TokenAuthority
	clock      clock.Clock
	logger     *slog.Logger
	bcryptCost int
}

// New creates a new auth service. Tokens are persisted in tokenStore,
// which may differ from the principal storage.
func New(storage storage.Storage, tokenStore storage.TokenStore, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	defaults := DefaultConfig()
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = defaults.TokenTTL
	}
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = defaults.BcryptCost
	}
	if cfg.Secret == "" {
		cfg.Secret = defaults.Secret
	}
	return &Service{
		storage:    storage,
		tokens:     NewTokenAuthority(tokenStore, clock, random, []byte(cfg.Secret), cfg.TokenTTL),
		clock:      clock,
		logger:     logger,
		bcryptCost: cfg.BcryptCost,
	}
}

// Tokens returns the token authority
func (s *Service) Tokens() *TokenAuthority {
	return s.tokens
}

func validCredentials(username, password string) bool {
	n := utf8.RuneCountInString(username)
	return n >= MinUsernameLength && n <= MaxUsernameLength && len(password) >= MinPasswordLength
}

// Signup registers a principal and signs them in
func (s *Service) Signup(ctx context.Context, username, password string) (*IssuedToken, error) {
	if !validCredentials(username, password) {
		return nil, model.ErrInvalidSignup
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.clock.Now()
	p := &model.Principal{
		Username:     username,
		PasswordHash: string(hash),
		RegisteredAt: now,
		LastLoginAt:  &now,
	}
	if err := s.storage.CreatePrincipal(ctx, p); err != nil {
		if !errors.Is(err, model.ErrUsernameExists) {
			s.logger.Error("failed to create principal", "username", username, "error", err)
		}
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, p)
	if err != nil {
		s.logger.Error("failed to issue token", "principal_id", p.ID, "error", err)
		return nil, err
	}
	s.logger.Info("principal registered", "principal_id", p.ID, "username", username)
	return token, nil
}

// Signin checks credentials and issues a token superseding any previous one
func (s *Service) Signin(ctx context.Context, username, password string) (*IssuedToken, error) {
	if !validCredentials(username, password) {
		return nil, model.ErrInvalidCredentials
	}

	p, err := s.storage.GetPrincipalByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPrincipalNotFound) {
			return nil, model.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)); err != nil {
		return nil, model.ErrInvalidCredentials
	}

	if err := access.AuthorizeLogin(p); err != nil {
		s.logger.Info("blocked principal refused", "principal_id", p.ID)
		return nil, err
	}

	if err := s.storage.UpdateLastLogin(ctx, p.ID, s.clock.Now()); err != nil {
		s.logger.Error("failed to record login", "principal_id", p.ID, "error", err)
		return nil, err
	}

	token, err := s.tokens.Issue(ctx, p)
	if err != nil {
		s.logger.Error("failed to issue token", "principal_id", p.ID, "error", err)
		return nil, err
	}
	return token, nil
}

// Signout revokes the given token
func (s *Service) Signout(ctx context.Context, token string) error {
	if err := s.tokens.Revoke(ctx, token); err != nil {
		s.logger.Error("failed to revoke token", "error", err)
		return err
	}
	return nil
}

// Authenticate resolves a bearer token to an identity
func (s *Service) Authenticate(ctx context.Context, token string) (*model.Identity, error) {
	return s.tokens.Validate(ctx, token)
}

// Block marks a principal as blocked and ends their session
func (s *Service) Block(ctx context.Context, username, reason string) (*model.Principal, error) {
	p, err := s.storage.SetBlocked(ctx, username, true, reason)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeAll(ctx, p.ID); err != nil {
		s.logger.Error("failed to revoke tokens of blocked principal", "principal_id", p.ID, "error", err)
		return nil, err
	}
	s.logger.Info("principal blocked", "principal_id", p.ID, "reason", reason)
	return p, nil
}

// Unblock clears a principal's blocked flag
func (s *Service) Unblock(ctx context.Context, username string) (*model.Principal, error) {
	p, err := s.storage.SetBlocked(ctx, username, false, "")
	if err != nil {
		return nil, err
	}
	s.logger.Info("principal unblocked", "principal_id", p.ID)
	return p, nil
}

// GetPrincipal looks up a principal by username
func (s *Service) GetPrincipal(ctx context.Context, username string) (*model.Principal, error) {
	return s.storage.GetPrincipalByUsername(ctx, username)
}
