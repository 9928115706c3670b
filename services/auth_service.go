package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/repositories"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// DefaultStoreTimeout bounds a single credential store call
const DefaultStoreTimeout = 2 * time.Second

var (
	dummyHashOnce sync.Once
	dummyHash     []byte
)

// unknownUserHash returns a valid hash to compare against when the username does not exist,
// so lookups for unknown and known users cost the same.
func unknownUserHash() []byte {
	dummyHashOnce.Do(func() {
		dummyHash, _ = bcrypt.GenerateFromPassword([]byte("unknown-user-placeholder"), bcrypt.DefaultCost)
	})
	return dummyHash
}

// Authenticator verifies username/password pairs against the credential store
type Authenticator struct {
	store   repositories.CredentialStore
	timeout time.Duration
	logger  *zap.Logger
}

// NewAuthenticator creates a new Authenticator. A zero timeout selects DefaultStoreTimeout.
func NewAuthenticator(store repositories.CredentialStore, timeout time.Duration, logger *zap.Logger) *Authenticator {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Authenticator{
		store:   store,
		timeout: timeout,
		logger:  logger,
	}
}

// Authenticate returns the identity for username when password matches.
// Unknown users and wrong passwords both yield ErrCredentialMismatch.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*models.Identity, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, a.timeout)
	cred, err := a.store.GetByUsername(lookupCtx, username)
	cancel()

	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(unknownUserHash(), []byte(password))
			return nil, ErrCredentialMismatch
		}
		a.logger.Error("credential lookup failed", zap.Error(err))
		return nil, WrapStorage("credential lookup", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)); err != nil {
		if !errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			a.logger.Warn("stored password hash unusable",
				zap.String("username", username),
				zap.Error(err))
		}
		return nil, ErrCredentialMismatch
	}

	return cred.Identity(), nil
}

// Registrar creates new credentials
type Registrar struct {
	store   repositories.CredentialStore
	cost    int
	timeout time.Duration
	logger  *zap.Logger
}

// NewRegistrar creates a new Registrar. cost 0 selects bcrypt.DefaultCost.
func NewRegistrar(store repositories.CredentialStore, cost int, timeout time.Duration, logger *zap.Logger) *Registrar {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &Registrar{
		store:   store,
		cost:    cost,
		timeout: timeout,
		logger:  logger,
	}
}

// Register stores a new principal whose role is resolved from orgCode
func (r *Registrar) Register(ctx context.Context, username, password, orgCode string) (*models.Identity, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), r.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return nil, ErrInvalidInput.WithDetail("password", "password must be at most 72 bytes")
		}
		return nil, WrapInternal("failed to hash password", err)
	}

	cred := models.NewCredential(username, string(hash), ResolveRole(orgCode))

	createCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.store.Create(createCtx, cred); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		r.logger.Error("credential create failed", zap.Error(err))
		return nil, WrapStorage("credential create", err)
	}

	r.logger.Info("principal registered",
		zap.String("username", cred.Username),
		zap.String("role", cred.Role.String()))

	return cred.Identity(), nil
}
