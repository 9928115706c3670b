package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMalformed is returned when a token cannot be parsed or its signature does not verify
	ErrMalformed = errors.New("malformed token")

	// ErrExpired is returned when a well-formed token is at or past its expiry
	ErrExpired = errors.New("token expired")

	// ErrEmptySecret is returned by NewCodec when no signing key is supplied
	ErrEmptySecret = errors.New("signing secret is empty")
)

// signingMethod is fixed; tokens signed with anything else are rejected
var signingMethod = jwt.SigningMethodHS256

// Codec signs and verifies tokens with a single symmetric key.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	now    func() time.Time
	parser *jwt.Parser
}

// Option customizes a Codec
type Option func(*Codec)

// WithClock overrides the wall clock used for expiry checks
func WithClock(now func() time.Time) Option {
	return func(c *Codec) {
		c.now = now
	}
}

// NewCodec creates a codec keyed by secret. The key is copied, so later
// changes to the caller's slice have no effect.
func NewCodec(secret []byte, opts ...Option) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}

	key := make([]byte, len(secret))
	copy(key, secret)

	c := &Codec{
		secret: key,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return c.now() }),
	)

	return c, nil
}

// Now returns the codec's current time
func (c *Codec) Now() time.Time {
	return c.now()
}

// Encode serializes and signs claims
func (c *Codec) Encode(claims Claims) (string, error) {
	if !claims.Category.Valid() {
		return "", fmt.Errorf("unknown token category %q", claims.Category)
	}

	signed, err := jwt.NewWithClaims(signingMethod, &claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature and expiry of raw and returns its claims.
// A token whose expiry equals the current second is already expired.
// Category is not checked against any expectation here.
func (c *Codec) Decode(raw string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := c.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !parsed.Valid {
		return nil, ErrMalformed
	}
	if !claims.Category.Valid() {
		return nil, fmt.Errorf("%w: unknown category %q", ErrMalformed, claims.Category)
	}
	if claims.Username == "" {
		return nil, fmt.Errorf("%w: username claim missing", ErrMalformed)
	}

	return claims, nil
}
