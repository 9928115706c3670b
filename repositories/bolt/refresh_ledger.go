package bolt

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/upb/beinus-auth/models"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var bucketRefreshTokens = []byte("refresh_tokens")

// RefreshLedger implements repositories.RefreshLedger in a local bbolt file.
// bbolt allows one writer at a time, which makes Delete and Rotate linearizable.
// Suitable for single-instance deployments only.
type RefreshLedger struct {
	db     *bbolt.DB
	logger *zap.Logger
}

// Open opens (or creates) the ledger file at path
func Open(path string, timeout time.Duration, logger *zap.Logger) (*RefreshLedger, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRefreshTokens)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create refresh bucket: %w", err)
	}

	logger.Info("bolt refresh ledger opened", zap.String("path", path))
	return &RefreshLedger{db: db, logger: logger}, nil
}

// Close closes the underlying file
func (l *RefreshLedger) Close() error {
	return l.db.Close()
}

func key(token string) []byte {
	sum := sha256.Sum256([]byte(token))
	return sum[:]
}

// Exists reports whether token is recorded
func (l *RefreshLedger) Exists(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var found bool
	err := l.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketRefreshTokens).Get(key(token)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return found, nil
}

// Insert records a newly issued refresh token
func (l *RefreshLedger) Insert(ctx context.Context, record *models.RefreshRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to encode refresh record: %w", err)
	}

	err = l.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRefreshTokens).Put(key(record.Token), data)
	})
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Delete removes token and reports whether it was present
func (l *RefreshLedger) Delete(ctx context.Context, token string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	var deleted bool
	err := l.db.Update(func(tx *bbolt.Tx) error {
		var err error
		deleted, err = deleteIfPresent(tx.Bucket(bucketRefreshTokens), key(token))
		return err
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return deleted, nil
}

// Rotate deletes oldToken and stores next in a single write transaction
func (l *RefreshLedger) Rotate(ctx context.Context, oldToken string, next *models.RefreshRecord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("failed to encode refresh record: %w", err)
	}

	var rotated bool
	err = l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRefreshTokens)

		deleted, err := deleteIfPresent(bucket, key(oldToken))
		if err != nil || !deleted {
			return err
		}

		if err := bucket.Put(key(next.Token), data); err != nil {
			return err
		}
		rotated = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}
	return rotated, nil
}

// PurgeExpired drops records whose expiry is at or before now
func (l *RefreshLedger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var purged int64
	err := l.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketRefreshTokens)

		var expired [][]byte
		err := bucket.ForEach(func(k, v []byte) error {
			var record models.RefreshRecord
			if err := json.Unmarshal(v, &record); err != nil {
				l.logger.Warn("dropping unreadable refresh record", zap.Error(err))
			} else if !record.IsExpired(now) {
				return nil
			}
			// k is only valid for the life of the transaction
			expired = append(expired, append([]byte(nil), k...))
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range expired {
			if err := bucket.Delete(k); err != nil {
				return err
			}
		}
		purged = int64(len(expired))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return purged, nil
}

// Ping checks that the file is still open
func (l *RefreshLedger) Ping(ctx context.Context) error {
	return l.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketRefreshTokens) == nil {
			return fmt.Errorf("refresh bucket missing")
		}
		return nil
	})
}

func deleteIfPresent(bucket *bbolt.Bucket, k []byte) (bool, error) {
	if bucket.Get(k) == nil {
		return false, nil
	}
	if err := bucket.Delete(k); err != nil {
		return false, err
	}
	return true, nil
}
