package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/repositories"
	"go.uber.org/zap"
)

// CredentialRepository implements repositories.CredentialStore on the users table
type CredentialRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewCredentialRepository creates a new credential repository
func NewCredentialRepository(db *DB, logger *zap.Logger) *CredentialRepository {
	return &CredentialRepository{
		db:     db,
		logger: logger,
	}
}

// GetByUsername retrieves a credential by username
func (r *CredentialRepository) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	query := `
		SELECT id, username, password_hash, role, created_at
		FROM users
		WHERE username = $1
	`

	executor := GetExecutor(ctx, r.db)
	cred := &models.Credential{}

	err := executor.QueryRowContext(ctx, query, username).Scan(
		&cred.ID,
		&cred.Username,
		&cred.PasswordHash,
		&cred.Role,
		&cred.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return cred, nil
}

// Create inserts a credential. A taken username yields repositories.ErrDuplicate.
func (r *CredentialRepository) Create(ctx context.Context, cred *models.Credential) error {
	query := `
		INSERT INTO users (id, username, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (username) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		cred.ID,
		cred.Username,
		cred.PasswordHash,
		cred.Role,
		cred.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create credential: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repositories.ErrDuplicate
	}

	r.logger.Debug("credential created", zap.String("username", cred.Username))
	return nil
}
