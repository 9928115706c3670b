package postgres

import (
	"context"

	"github.com/upb/beinus-auth/config"
	"github.com/upb/beinus-auth/repositories"
	"go.uber.org/zap"
)

// RepositoryFactory creates and manages the postgres-backed stores
type RepositoryFactory struct {
	db     *DB
	logger *zap.Logger
}

// NewRepositoryFactory opens the pool and, when configured, applies migrations
func NewRepositoryFactory(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*RepositoryFactory, error) {
	db, err := NewDB(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Database.RunMigrations {
		if err := db.RunMigrations(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	return NewRepositoryFactoryFromDB(db, logger), nil
}

// NewRepositoryFactoryFromDB builds a factory over an existing pool
func NewRepositoryFactoryFromDB(db *DB, logger *zap.Logger) *RepositoryFactory {
	return &RepositoryFactory{db: db, logger: logger}
}

// NewRepositories creates the credential store and the postgres refresh ledger
func (f *RepositoryFactory) NewRepositories() *repositories.Repositories {
	return &repositories.Repositories{
		Credentials: f.NewCredentialStore(),
		Refresh:     f.NewRefreshLedger(),
	}
}

// NewCredentialStore returns the users-table credential store
func (f *RepositoryFactory) NewCredentialStore() repositories.CredentialStore {
	return NewCredentialRepository(f.db, f.logger)
}

// NewRefreshLedger returns the refresh_tokens-table ledger
func (f *RepositoryFactory) NewRefreshLedger() repositories.RefreshLedger {
	return NewRefreshRepository(f.db, f.GetTransactionManager(), f.logger)
}

// GetTransactionManager returns a transaction manager
func (f *RepositoryFactory) GetTransactionManager() repositories.TransactionManager {
	return NewTransactionManager(f.db, f.logger)
}

// GetDB returns the database connection
func (f *RepositoryFactory) GetDB() *DB {
	return f.db
}

// Close closes the database connection
func (f *RepositoryFactory) Close() error {
	return f.db.Close()
}
