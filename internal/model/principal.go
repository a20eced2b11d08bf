package model

import "time"

// PrincipalID uniquely identifies a platform user
type PrincipalID uint

// Principal is a registered platform identity
type Principal struct {
	ID           PrincipalID
	Username     string // unique, immutable
	PasswordHash string // bcrypt hash
	Blocked      bool
	BlockReason  string
	RegisteredAt time.Time
	LastLoginAt  *time.Time
}

// Identity is the payload carried by a validated session token
type Identity struct {
	PrincipalID PrincipalID
	Username    string
	Blocked     bool // snapshot at issuance
}

// TokenRecord links a persisted bearer token to its principal.
// At most one record exists per principal.
type TokenRecord struct {
	Token       string
	PrincipalID PrincipalID
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
