package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/upb/beinus-auth/models"
)

var (
	// ErrNotFound is returned when a lookup matches nothing
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when a unique key already exists
	ErrDuplicate = errors.New("record already exists")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// CredentialStore looks up and persists login credentials
type CredentialStore interface {
	// GetByUsername returns ErrNotFound when no credential matches
	GetByUsername(ctx context.Context, username string) (*models.Credential, error)

	// Create returns ErrDuplicate when the username is taken
	Create(ctx context.Context, cred *models.Credential) error
}

// RefreshLedger records which refresh tokens are currently redeemable.
// Implementations must make Delete and Rotate linearizable per token value:
// of two concurrent calls for the same token at most one reports it present.
type RefreshLedger interface {
	// Exists reports whether token is recorded
	Exists(ctx context.Context, token string) (bool, error)

	// Insert records a newly issued refresh token
	Insert(ctx context.Context, record *models.RefreshRecord) error

	// Delete removes token if present and reports whether it was present
	Delete(ctx context.Context, token string) (bool, error)

	// Rotate atomically deletes oldToken and inserts next.
	// When oldToken is absent nothing is inserted and false is returned.
	Rotate(ctx context.Context, oldToken string, next *models.RefreshRecord) (bool, error)

	// PurgeExpired drops records whose expiry is at or before now
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// Ping checks that the backing store is reachable
	Ping(ctx context.Context) error
}

// Repositories holds the stores the service is wired with
type Repositories struct {
	Credentials CredentialStore
	Refresh     RefreshLedger
}
