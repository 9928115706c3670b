package models

import (
	"time"

	"github.com/google/uuid"
)

// RefreshRecord marks a refresh token as currently redeemable.
// Token holds the full encoded string and is the lookup key.
type RefreshRecord struct {
	ID        uuid.UUID `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	Token     string    `json:"token" db:"token"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the RefreshRecord model
func (RefreshRecord) TableName() string {
	return "refresh_tokens"
}

// NewRefreshRecord creates a record for a freshly issued refresh token
func NewRefreshRecord(username, token string, expiresAt time.Time) *RefreshRecord {
	return &RefreshRecord{
		ID:        uuid.New(),
		Username:  username,
		Token:     token,
		ExpiresAt: expiresAt.UTC(),
		CreatedAt: time.Now().UTC(),
	}
}

// IsExpired reports whether the record's token can no longer be redeemed at now
func (r *RefreshRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// TTL returns the remaining lifetime at now, never negative
func (r *RefreshRecord) TTL(now time.Time) time.Duration {
	if d := r.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
