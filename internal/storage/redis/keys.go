package redis

import (
	"fmt"

	"github.com/mcoot/gamehost/internal/model"
)

// Key prefix for all session data
const keyPrefix = "gamehost"

// tokenKey returns the Redis key for a TokenRecord
func tokenKey(token string) string {
	return fmt.Sprintf("%s:token:%s", keyPrefix, token)
}

// principalTokenKey returns the Redis key for the principal -> token index
func principalTokenKey(id model.PrincipalID) string {
	return fmt.Sprintf("%s:idx:principal_token:%d", keyPrefix, id)
}
