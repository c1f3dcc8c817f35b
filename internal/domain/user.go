package domain

import "time"

// User is an account record. Account management is owned by the auth
// layer; this subsystem only reads users to attribute sessions.
type User struct {
	ID        string
	Username  string
	CreatedAt time.Time
}

// Identity is the result of resolving a bearer credential: who is
// calling.
type Identity struct {
	UserID   string
	Username string
}

// UserSession is a persisted login token with its expiry. Only the
// token's SHA-256 hash is stored. Token issuance is owned by the auth
// layer; this subsystem only validates.
type UserSession struct {
	ID        string
	UserID    string
	TokenHash string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at the given time.
func (s *UserSession) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
