package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/anaschota07-svg/newwebsite-sub001/internal/config"
	"github.com/anaschota07-svg/newwebsite-sub001/internal/domain"
	"github.com/anaschota07-svg/newwebsite-sub001/pkg/logger"
)

// MockDeviceAccessRepository is a mock implementation of DeviceAccessRepository
type MockDeviceAccessRepository struct {
	mock.Mock
}

func (m *MockDeviceAccessRepository) FindByDeviceAndLink(ctx context.Context, deviceHash string, linkID uint) (*domain.DeviceLinkAccess, error) {
	args := m.Called(ctx, deviceHash, linkID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DeviceLinkAccess), args.Error(1)
}

func (m *MockDeviceAccessRepository) Upsert(ctx context.Context, access *domain.DeviceLinkAccess) error {
	args := m.Called(ctx, access)
	return args.Error(0)
}

func (m *MockDeviceAccessRepository) LatchEarningsCredited(ctx context.Context, deviceHash string, linkID uint, amount float64) (bool, error) {
	args := m.Called(ctx, deviceHash, linkID, amount)
	return args.Bool(0), args.Error(1)
}

// MockSessionQueries mocks the session repository surface the ledger uses
type MockSessionQueries struct {
	mock.Mock
}

func (m *MockSessionQueries) Create(ctx context.Context, session *domain.ClickSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionQueries) FindByToken(ctx context.Context, token string) (*domain.ClickSession, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClickSession), args.Error(1)
}

func (m *MockSessionQueries) Update(ctx context.Context, session *domain.ClickSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockSessionQueries) MarkExpired(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func (m *MockSessionQueries) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionQueries) AbandonIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSessionQueries) HasActiveFromIP(ctx context.Context, linkID uint, ip, fingerprint, excludeDeviceHash string, now time.Time) (bool, error) {
	args := m.Called(ctx, linkID, ip, fingerprint, excludeDeviceHash, now)
	return args.Bool(0), args.Error(1)
}

type ledgerTestSuite struct {
	devices  *MockDeviceAccessRepository
	sessions *MockSessionQueries
	cfg      *config.Config
	ledger   Ledger
}

func setupLedgerTest(t *testing.T, heuristic bool) *ledgerTestSuite {
	devices := new(MockDeviceAccessRepository)
	sessions := new(MockSessionQueries)

	cfg := &config.Config{
		IPFingerprintHeuristic: heuristic,
	}

	return &ledgerTestSuite{
		devices:  devices,
		sessions: sessions,
		cfg:      cfg,
		ledger:   NewLedger(devices, sessions, cfg, logger.NewLogger()),
	}
}

func testLink() *domain.Link {
	return &domain.Link{ID: 5, ShortCode: "led1234", IsActive: true}
}

func testSnapshot() domain.DeviceSnapshot {
	return domain.DeviceSnapshot{
		DeviceID:    "device-5",
		Fingerprint: "fp-5",
		IP:          "198.51.100.5",
		UserAgent:   "Mozilla/5.0",
	}
}

func TestClassify_FirstContactIsFresh(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()

	suite.devices.On("FindByDeviceAndLink", ctx, "hash-5", uint(5)).
		Return((*domain.DeviceLinkAccess)(nil), nil)

	class, err := suite.ledger.Classify(ctx, testLink(), "hash-5", testSnapshot())

	assert.NoError(t, err)
	assert.Equal(t, domain.ClassFresh, class)
}

func TestClassify_CreditedDeviceIsDuplicate(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()
	linkID := uint(5)

	suite.devices.On("FindByDeviceAndLink", ctx, "hash-5", uint(5)).
		Return(&domain.DeviceLinkAccess{
			LinkID:           &linkID,
			DeviceHash:       "hash-5",
			EarningsCredited: true,
			AccessCount:      3,
		}, nil)

	class, err := suite.ledger.Classify(ctx, testLink(), "hash-5", testSnapshot())

	assert.NoError(t, err)
	assert.Equal(t, domain.ClassDuplicate, class)
}

func TestClassify_UncreditedHistoryIsFresh(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()
	linkID := uint(5)

	// Seen before, but never paid: still allowed to earn
	suite.devices.On("FindByDeviceAndLink", ctx, "hash-5", uint(5)).
		Return(&domain.DeviceLinkAccess{
			LinkID:           &linkID,
			DeviceHash:       "hash-5",
			EarningsCredited: false,
			AccessCount:      2,
		}, nil)

	class, err := suite.ledger.Classify(ctx, testLink(), "hash-5", testSnapshot())

	assert.NoError(t, err)
	assert.Equal(t, domain.ClassFresh, class)
}

func TestClassify_IPHeuristicFlagsSpoofedDevice(t *testing.T) {
	suite := setupLedgerTest(t, true)
	ctx := context.Background()

	suite.devices.On("FindByDeviceAndLink", ctx, "hash-other", uint(5)).
		Return((*domain.DeviceLinkAccess)(nil), nil)
	suite.sessions.On("HasActiveFromIP", ctx, uint(5), "198.51.100.5", "fp-5", "hash-other", mock.AnythingOfType("time.Time")).
		Return(true, nil)

	class, err := suite.ledger.Classify(ctx, testLink(), "hash-other", testSnapshot())

	assert.NoError(t, err)
	assert.Equal(t, domain.ClassDuplicate, class)
}

func TestClassify_IPHeuristicDisabled(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()

	suite.devices.On("FindByDeviceAndLink", ctx, "hash-other", uint(5)).
		Return((*domain.DeviceLinkAccess)(nil), nil)

	class, err := suite.ledger.Classify(ctx, testLink(), "hash-other", testSnapshot())

	assert.NoError(t, err)
	assert.Equal(t, domain.ClassFresh, class)
	suite.sessions.AssertNotCalled(t, "HasActiveFromIP")
}

func TestRecordAccess_UpsertsLedgerRow(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()

	suite.devices.On("Upsert", ctx, mock.MatchedBy(func(a *domain.DeviceLinkAccess) bool {
		return a.DeviceHash == "hash-5" &&
			a.LinkID != nil && *a.LinkID == 5 &&
			a.AccessCount == 1 &&
			a.LastIP == "198.51.100.5"
	})).Return(nil)

	err := suite.ledger.RecordAccess(ctx, testLink(), "hash-5", testSnapshot())

	assert.NoError(t, err)
	suite.devices.AssertExpectations(t)
}

func TestLatch_DelegatesToConditionalUpdate(t *testing.T) {
	suite := setupLedgerTest(t, false)
	ctx := context.Background()

	suite.devices.On("LatchEarningsCredited", ctx, "hash-5", uint(5), 0.0005).
		Return(true, nil).Once()
	suite.devices.On("LatchEarningsCredited", ctx, "hash-5", uint(5), 0.0005).
		Return(false, nil).Once()

	first, err := suite.ledger.LatchEarningsCredited(ctx, 5, "hash-5", 0.0005)
	assert.NoError(t, err)
	assert.True(t, first)

	// Latch is one-way: once set it never grants again
	second, err := suite.ledger.LatchEarningsCredited(ctx, 5, "hash-5", 0.0005)
	assert.NoError(t, err)
	assert.False(t, second)
}
