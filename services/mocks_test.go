package services

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/upb/beinus-auth/models"
)

// MockCredentialStore is a mock implementation of CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) GetByUsername(ctx context.Context, username string) (*models.Credential, error) {
	args := m.Called(ctx, username)
	if cred := args.Get(0); cred != nil {
		return cred.(*models.Credential), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCredentialStore) Create(ctx context.Context, cred *models.Credential) error {
	args := m.Called(ctx, cred)
	return args.Error(0)
}

// MockRefreshLedger is a mock implementation of RefreshLedger
type MockRefreshLedger struct {
	mock.Mock
}

func (m *MockRefreshLedger) Exists(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshLedger) Insert(ctx context.Context, record *models.RefreshRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockRefreshLedger) Delete(ctx context.Context, token string) (bool, error) {
	args := m.Called(ctx, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshLedger) Rotate(ctx context.Context, oldToken string, next *models.RefreshRecord) (bool, error) {
	args := m.Called(ctx, oldToken, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockRefreshLedger) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRefreshLedger) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// testClock is a settable clock shared between a codec and a test
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{now: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
