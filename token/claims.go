package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Category distinguishes what a signed token may be used for
type Category string

const (
	// CategoryAccess tokens authorize resource requests
	CategoryAccess Category = "access"

	// CategoryRefresh tokens are redeemable once at the reissue endpoint
	CategoryRefresh Category = "refresh"
)

// Valid reports whether c is one of the known categories
func (c Category) Valid() bool {
	return c == CategoryAccess || c == CategoryRefresh
}

// Claims represents the payload carried by every token this service signs.
// Issued-at, expiry and the token ID live in the registered claims.
type Claims struct {
	Category Category `json:"category"`
	Username string   `json:"username"`
	Role     string   `json:"role"`
	jwt.RegisteredClaims
}

// NewClaims builds claims for a token issued at issuedAt and living for ttl.
// Times are truncated to whole seconds because that is all the wire format keeps.
func NewClaims(category Category, username, role string, issuedAt time.Time, ttl time.Duration) Claims {
	iat := issuedAt.Truncate(time.Second)
	return Claims{
		Category: category,
		Username: username,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(iat),
			ExpiresAt: jwt.NewNumericDate(iat.Add(ttl)),
		},
	}
}

// ExpiresAtTime returns the expiry as a time.Time, zero when absent
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// IssuedAtTime returns the issue time as a time.Time, zero when absent
func (c *Claims) IssuedAtTime() time.Time {
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}
