package token

import "time"

// RefreshToken is an opaque refresh token. The zero value means
// "no refresh token issued" and is detected with Exists.
type RefreshToken struct {
	Entity    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (t RefreshToken) Exists() bool { return t.Entity != "" }

func (t RefreshToken) IsExpired(now time.Time) bool { return now.After(t.ExpiresAt) }
