package redis

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/upb/beinus-auth/models"
	"go.uber.org/zap"
)

// DefaultPrefix namespaces ledger keys
const DefaultPrefix = "refresh"

// rotateScript deletes the old key and, only if it existed, stores the new one.
// KEYS[1] old key, KEYS[2] new key, ARGV[1] payload, ARGV[2] ttl in ms.
const rotateScript = `
if redis.call("DEL", KEYS[1]) == 1 then
  redis.call("SET", KEYS[2], ARGV[1], "PX", ARGV[2])
  return 1
end
return 0
`

var rotateLua = goredis.NewScript(rotateScript)

// ErrRecordExpired is returned when a record's expiry has already passed,
// since redis cannot hold a key with a non-positive TTL
var ErrRecordExpired = errors.New("refresh record already expired")

// RefreshLedger implements repositories.RefreshLedger on redis.
// Records expire through key TTLs; keys are hashes of the token value.
type RefreshLedger struct {
	client goredis.UniversalClient
	prefix string
	now    func() time.Time
	logger *zap.Logger
}

// NewRefreshLedger creates a ledger using client. An empty prefix selects DefaultPrefix.
func NewRefreshLedger(client goredis.UniversalClient, prefix string, logger *zap.Logger) *RefreshLedger {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RefreshLedger{
		client: client,
		prefix: prefix,
		now:    time.Now,
		logger: logger,
	}
}

func (l *RefreshLedger) key(token string) string {
	sum := sha256.Sum256([]byte(token))
	return l.prefix + ":" + hex.EncodeToString(sum[:])
}

// Exists reports whether token is recorded
func (l *RefreshLedger) Exists(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Exists(ctx, l.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return n == 1, nil
}

// Insert stores record until its expiry
func (l *RefreshLedger) Insert(ctx context.Context, record *models.RefreshRecord) error {
	payload, ttl, err := l.encode(record)
	if err != nil {
		return err
	}

	if err := l.client.Set(ctx, l.key(record.Token), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Delete removes token and reports whether it was present
func (l *RefreshLedger) Delete(ctx context.Context, token string) (bool, error) {
	n, err := l.client.Del(ctx, l.key(token)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return n == 1, nil
}

// Rotate runs the delete-then-set script so that only one caller can consume oldToken
func (l *RefreshLedger) Rotate(ctx context.Context, oldToken string, next *models.RefreshRecord) (bool, error) {
	payload, ttl, err := l.encode(next)
	if err != nil {
		return false, err
	}

	res, err := rotateLua.Run(ctx, l.client,
		[]string{l.key(oldToken), l.key(next.Token)},
		payload, ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	return res == 1, nil
}

// PurgeExpired is a no-op; redis evicts records through key TTLs
func (l *RefreshLedger) PurgeExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

// Ping checks redis reachability
func (l *RefreshLedger) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (l *RefreshLedger) encode(record *models.RefreshRecord) ([]byte, time.Duration, error) {
	payload, err := json.Marshal(record)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to encode refresh record: %w", err)
	}
	ttl := record.TTL(l.now())
	if ttl < time.Millisecond {
		return nil, 0, fmt.Errorf("%w: token for %s", ErrRecordExpired, record.Username)
	}
	return payload, ttl, nil
}
