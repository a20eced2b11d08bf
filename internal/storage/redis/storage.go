package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/gamehost/internal/model"
	"github.com/mcoot/gamehost/internal/storage"
)

// TokenStore is a Redis-backed session token store. Each principal has an
// index key naming its one live token; both keys expire with the token.
type TokenStore struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis token store
func New(cfg Config) (*TokenStore, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &TokenStore{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis token store with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *TokenStore {
	return &TokenStore{
		client: client,
		cfg:    cfg,
	}
}

// Ping checks that Redis is reachable
func (s *TokenStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping: %w: %w", model.ErrUpstream, err)
	}
	return nil
}

// Close closes the Redis connection
func (s *TokenStore) Close() error {
	return s.client.Close()
}

// Ensure TokenStore implements the interface
var _ storage.TokenStore = (*TokenStore)(nil)

func upstream(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrUpstream, err)
}

func (s *TokenStore) ttlFor(rec *model.TokenRecord) time.Duration {
	if ttl := rec.ExpiresAt.Sub(rec.CreatedAt); !rec.CreatedAt.IsZero() && ttl > 0 {
		return ttl
	}
	return s.cfg.TokenTTL
}

// watch runs fn as an optimistic transaction over keys, retrying when a
// concurrent writer touches them first
func (s *TokenStore) watch(ctx context.Context, op string, fn func(*redis.Tx) error, keys ...string) error {
	retries := max(s.cfg.MaxTxRetries, 1)
	for range retries {
		err := s.client.Watch(ctx, fn, keys...)
		if err == nil {
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return upstream(op, err)
	}
	return upstream(op, errors.New("too much contention"))
}

func (s *TokenStore) ReplaceToken(ctx context.Context, rec *model.TokenRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	idx := principalTokenKey(rec.PrincipalID)
	ttl := s.ttlFor(rec)

	return s.watch(ctx, "replace token", func(tx *redis.Tx) error {
		old, err := tx.Get(ctx, idx).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if old != "" && old != rec.Token {
				pipe.Del(ctx, tokenKey(old))
			}
			pipe.Set(ctx, tokenKey(rec.Token), data, ttl)
			pipe.Set(ctx, idx, rec.Token, ttl)
			return nil
		})
		return err
	}, idx)
}

func (s *TokenStore) GetToken(ctx context.Context, token string) (*model.TokenRecord, error) {
	data, err := s.client.Get(ctx, tokenKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrTokenNotFound
		}
		return nil, upstream("get token", err)
	}

	var rec model.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, upstream("decode token", err)
	}
	return &rec, nil
}

func (s *TokenStore) DeleteToken(ctx context.Context, token string) error {
	rec, err := s.GetToken(ctx, token)
	if errors.Is(err, model.ErrTokenNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	idx := principalTokenKey(rec.PrincipalID)
	return s.watch(ctx, "delete token", func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, idx).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, tokenKey(token))
			if current == token {
				pipe.Del(ctx, idx)
			}
			return nil
		})
		return err
	}, idx)
}

func (s *TokenStore) DeleteTokensForPrincipal(ctx context.Context, id model.PrincipalID) error {
	idx := principalTokenKey(id)
	return s.watch(ctx, "delete tokens", func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, idx).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, tokenKey(current), idx)
			return nil
		})
		return err
	}, idx)
}

// DeleteExpiredTokens is a no-op: Redis expires both keys on its own
func (s *TokenStore) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}
