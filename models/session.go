package models

import "time"

type Session struct {
	Token     string    `bson:"token" json:"-"`
	Identity  string    `bson:"identity" json:"username"`
	IssuedAt  time.Time `bson:"issued_at" json:"issued_at"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is no longer valid at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.After(now)
}
