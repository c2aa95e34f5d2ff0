package domain

import "time"

// Session represents one active login. The token is the only credential
// the client holds after authentication.
type Session struct {
	ID        int64
	UserID    int64
	Token     string
	ExpiresAt time.Time
	CreatedAt time.Time
}
