package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/beinus-auth/models"
	"github.com/upb/beinus-auth/repositories"
	"github.com/upb/beinus-auth/token"
	"go.uber.org/zap"
)

// DefaultLedgerTimeout bounds a single refresh ledger call
const DefaultLedgerTimeout = 2 * time.Second

// TokenConfig holds token lifetimes and the ledger call bound
type TokenConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	LedgerTimeout time.Duration
}

// TokenPair is the result of a successful login or reissue
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	IssuedAt         time.Time
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
	Identity         *models.Identity
}

// AccessExpiresIn is the access token lifetime in whole seconds, measured from
// the issue time both tokens carry
func (p *TokenPair) AccessExpiresIn() int64 {
	return int64(p.AccessExpiresAt.Sub(p.IssuedAt) / time.Second)
}

// RefreshMaxAge is the refresh token lifetime in whole seconds
func (p *TokenPair) RefreshMaxAge() int {
	return int(p.RefreshExpiresAt.Sub(p.IssuedAt) / time.Second)
}

// TokenService issues, validates, rotates and revokes token pairs
type TokenService struct {
	codec  *token.Codec
	ledger repositories.RefreshLedger
	config TokenConfig
	logger *zap.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(codec *token.Codec, ledger repositories.RefreshLedger, config TokenConfig, logger *zap.Logger) (*TokenService, error) {
	if codec == nil {
		return nil, fmt.Errorf("token codec is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("refresh ledger is required")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= config.AccessTTL {
		return nil, fmt.Errorf("token lifetimes must satisfy 0 < access (%v) < refresh (%v)", config.AccessTTL, config.RefreshTTL)
	}
	if config.LedgerTimeout <= 0 {
		config.LedgerTimeout = DefaultLedgerTimeout
	}

	return &TokenService{
		codec:  codec,
		ledger: ledger,
		config: config,
		logger: logger,
	}, nil
}

// IssuePair signs a new access/refresh pair for identity and records the refresh token
func (s *TokenService) IssuePair(ctx context.Context, identity *models.Identity) (*TokenPair, error) {
	pair, err := s.mint(identity)
	if err != nil {
		return nil, err
	}

	record := models.NewRefreshRecord(identity.Username, pair.RefreshToken, pair.RefreshExpiresAt)

	ledgerCtx, cancel := context.WithTimeout(ctx, s.config.LedgerTimeout)
	defer cancel()

	if err := s.ledger.Insert(ledgerCtx, record); err != nil {
		s.logger.Error("failed to record refresh token",
			zap.String("username", identity.Username),
			zap.Error(err))
		return nil, WrapStorage("failed to record refresh token", err)
	}

	s.logger.Info("token pair issued",
		zap.String("username", identity.Username),
		zap.String("role", identity.Role.String()))

	return pair, nil
}

// ValidateAccess decodes raw and requires it to be an access token.
// It never touches the ledger.
func (s *TokenService) ValidateAccess(ctx context.Context, raw string) (*models.Identity, error) {
	claims, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Category != token.CategoryAccess {
		return nil, ErrWrongTokenCategory
	}
	return identityFromClaims(claims), nil
}

// Reissue redeems a refresh token for a new pair. The old token is removed from
// the ledger in the same atomic step that records the new one; when two callers
// redeem the same token only one of them observes it present.
func (s *TokenService) Reissue(ctx context.Context, raw string) (*TokenPair, error) {
	if raw == "" {
		return nil, ErrMissingRefreshToken
	}

	claims, err := s.decode(raw)
	if err != nil {
		return nil, err
	}
	if claims.Category != token.CategoryRefresh {
		return nil, ErrWrongTokenCategory
	}

	present, err := s.exists(ctx, raw)
	if err != nil {
		return nil, err
	}
	if !present {
		s.logger.Warn("refresh token not in ledger", zap.String("username", claims.Username))
		return nil, ErrRevokedOrUnknownToken
	}

	identity := identityFromClaims(claims)
	pair, err := s.mint(identity)
	if err != nil {
		return nil, err
	}

	next := models.NewRefreshRecord(identity.Username, pair.RefreshToken, pair.RefreshExpiresAt)

	ledgerCtx, cancel := context.WithTimeout(ctx, s.config.LedgerTimeout)
	defer cancel()

	rotated, err := s.ledger.Rotate(ledgerCtx, raw, next)
	if err != nil {
		s.logger.Error("failed to rotate refresh token",
			zap.String("username", identity.Username),
			zap.Error(err))
		return nil, WrapStorage("failed to rotate refresh token", err)
	}
	if !rotated {
		s.logger.Warn("refresh token redeemed concurrently", zap.String("username", identity.Username))
		return nil, ErrRevokedOrUnknownToken
	}

	s.logger.Info("refresh token rotated", zap.String("username", identity.Username))
	return pair, nil
}

// Revoke removes a refresh token from the ledger. Revoking an unknown token is not an error.
func (s *TokenService) Revoke(ctx context.Context, raw string) error {
	if raw == "" {
		return ErrMissingRefreshToken
	}

	ledgerCtx, cancel := context.WithTimeout(ctx, s.config.LedgerTimeout)
	defer cancel()

	deleted, err := s.ledger.Delete(ledgerCtx, raw)
	if err != nil {
		s.logger.Error("failed to revoke refresh token", zap.Error(err))
		return WrapStorage("failed to revoke refresh token", err)
	}

	s.logger.Debug("refresh token revoked", zap.Bool("was_present", deleted))
	return nil
}

func (s *TokenService) exists(ctx context.Context, raw string) (bool, error) {
	ledgerCtx, cancel := context.WithTimeout(ctx, s.config.LedgerTimeout)
	defer cancel()

	present, err := s.ledger.Exists(ledgerCtx, raw)
	if err != nil {
		s.logger.Error("failed to look up refresh token", zap.Error(err))
		return false, WrapStorage("failed to look up refresh token", err)
	}
	return present, nil
}

func (s *TokenService) mint(identity *models.Identity) (*TokenPair, error) {
	now := s.codec.Now()
	role := identity.Role.String()

	access := token.NewClaims(token.CategoryAccess, identity.Username, role, now, s.config.AccessTTL)
	refresh := token.NewClaims(token.CategoryRefresh, identity.Username, role, now, s.config.RefreshTTL)

	accessToken, err := s.codec.Encode(access)
	if err != nil {
		return nil, WrapInternal("failed to sign access token", err)
	}
	refreshToken, err := s.codec.Encode(refresh)
	if err != nil {
		return nil, WrapInternal("failed to sign refresh token", err)
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		IssuedAt:         access.IssuedAtTime(),
		AccessExpiresAt:  access.ExpiresAtTime(),
		RefreshExpiresAt: refresh.ExpiresAtTime(),
		Identity:         identity,
	}, nil
}

func (s *TokenService) decode(raw string) (*token.Claims, error) {
	claims, err := s.codec.Decode(raw)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrMalformedToken.Wrap(err)
	}
	return claims, nil
}

func identityFromClaims(claims *token.Claims) *models.Identity {
	return &models.Identity{
		Username: claims.Username,
		Role:     models.Role(claims.Role),
	}
}
