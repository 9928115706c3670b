package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/repositories"
	"go.uber.org/zap"
)

// errTokenAbsent aborts a rotation transaction when the old token was not there
var errTokenAbsent = errors.New("refresh token absent")

// RefreshRepository implements repositories.RefreshLedger on the refresh_tokens table.
// Row locks taken by DELETE serialize concurrent redemptions of the same token.
type RefreshRepository struct {
	db        *DB
	txManager repositories.TransactionManager
	logger    *zap.Logger
}

// NewRefreshRepository creates a new refresh token ledger
func NewRefreshRepository(db *DB, txManager repositories.TransactionManager, logger *zap.Logger) *RefreshRepository {
	return &RefreshRepository{
		db:        db,
		txManager: txManager,
		logger:    logger,
	}
}

// Exists reports whether token is recorded
func (r *RefreshRepository) Exists(ctx context.Context, token string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM refresh_tokens WHERE token = $1)`

	var exists bool
	if err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return exists, nil
}

// Insert records a newly issued refresh token
func (r *RefreshRepository) Insert(ctx context.Context, record *models.RefreshRecord) error {
	query := `
		INSERT INTO refresh_tokens (id, username, token, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		record.ID,
		record.Username,
		record.Token,
		record.ExpiresAt,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert refresh token: %w", err)
	}
	return nil
}

// Delete removes token and reports whether a row was removed
func (r *RefreshRepository) Delete(ctx context.Context, token string) (bool, error) {
	query := `DELETE FROM refresh_tokens WHERE token = $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete refresh token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Rotate deletes oldToken and inserts next in one transaction
func (r *RefreshRepository) Rotate(ctx context.Context, oldToken string, next *models.RefreshRecord) (bool, error) {
	err := r.txManager.InTransaction(ctx, func(ctx context.Context, _ repositories.Transaction) error {
		deleted, err := r.Delete(ctx, oldToken)
		if err != nil {
			return err
		}
		if !deleted {
			return errTokenAbsent
		}
		return r.Insert(ctx, next)
	})

	switch {
	case errors.Is(err, errTokenAbsent):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to rotate refresh token: %w", err)
	}

	r.logger.Debug("refresh token rotated", zap.String("username", next.Username))
	return true, nil
}

// PurgeExpired drops records whose expiry is at or before now
func (r *RefreshRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := `DELETE FROM refresh_tokens WHERE expires_at <= $1`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

// Ping checks database reachability
func (r *RefreshRepository) Ping(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
