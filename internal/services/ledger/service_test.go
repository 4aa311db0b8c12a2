package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/domain/position"
	"ledgerbot/internal/notation"
	"ledgerbot/pkg/errors"
)

// MockPositionRepository is a mock for position.Repository
type MockPositionRepository struct {
	mock.Mock
}

func (m *MockPositionRepository) Create(ctx context.Context, pos *position.Position) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *MockPositionRepository) GetLive(ctx context.Context, tradeNumber int) (*position.Position, error) {
	args := m.Called(ctx, tradeNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*position.Position), args.Error(1)
}

func (m *MockPositionRepository) ListLive(ctx context.Context) ([]*position.Position, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*position.Position), args.Error(1)
}

func (m *MockPositionRepository) Update(ctx context.Context, pos *position.Position) error {
	args := m.Called(ctx, pos)
	return args.Error(0)
}

func (m *MockPositionRepository) UpdateMark(ctx context.Context, tradeNumber int, mark position.Mark) error {
	args := m.Called(ctx, tradeNumber, mark)
	return args.Error(0)
}

// MockQuoteProvider is a mock for quotes.Provider
type MockQuoteProvider struct {
	mock.Mock
}

func (m *MockQuoteProvider) Quote(ctx context.Context, key position.OptionKey) (decimal.Decimal, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testKey(ticker string) position.OptionKey {
	return position.OptionKey{
		Ticker: ticker,
		Expiry: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
		Strike: d("200"),
		Right:  position.Call,
	}
}

func openEvent(tradeNumber int, price string, contracts int) *notation.TradeEvent {
	return &notation.TradeEvent{
		TradeNumber: tradeNumber,
		Action:      notation.BuyToOpen,
		Key:         testKey("AAPL"),
		Price:       d(price),
		Contracts:   contracts,
	}
}

func closeEvent(tradeNumber int, price string, contracts int) *notation.TradeEvent {
	return &notation.TradeEvent{
		TradeNumber: tradeNumber,
		Action:      notation.SellToClose,
		Key:         testKey("AAPL"),
		Price:       d(price),
		Contracts:   contracts,
	}
}

func livePosition(tradeNumber int, basis string, contracts int) *position.Position {
	return &position.Position{
		TradeNumber:      tradeNumber,
		Key:              testKey("AAPL"),
		OpenedAt:         time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC),
		InitialContracts: contracts,
		Contracts:        contracts,
		AvgCostBasis:     d(basis),
		Status:           position.StatusOpen,
	}
}

func TestOpenOrIncrease_NewPosition(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	provider.On("Quote", mock.Anything, mock.Anything).
		Return(decimal.Zero, errors.ErrQuoteUnavailable)
	repo.On("GetLive", mock.Anything, 101).
		Return(nil, errors.ErrPositionNotFound)
	repo.On("Create", mock.Anything, mock.AnythingOfType("*position.Position")).
		Return(nil)

	pos, err := service.OpenOrIncrease(ctx, openEvent(101, "3.50", 2))
	require.NoError(t, err)

	assert.Equal(t, 101, pos.TradeNumber)
	assert.Equal(t, 2, pos.Contracts)
	assert.Equal(t, 2, pos.InitialContracts)
	assert.True(t, pos.AvgCostBasis.Equal(d("3.50")))
	assert.Equal(t, position.StatusOpen, pos.Status)

	// Quote unavailable: mark seeded from the event price
	assert.True(t, pos.MarketValue.Equal(d("700")), "market value %s", pos.MarketValue)
	assert.True(t, pos.UnrealizedGainAbs.IsZero())
	assert.True(t, pos.UnrealizedGainPct.IsZero())

	repo.AssertExpectations(t)
}

func TestOpenOrIncrease_IncreaseRecomputesWeightedBasis(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	existing := livePosition(101, "3.50", 2)
	provider.On("Quote", mock.Anything, mock.Anything).
		Return(decimal.Zero, errors.ErrQuoteUnavailable)
	repo.On("GetLive", mock.Anything, 101).Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	pos, err := service.OpenOrIncrease(ctx, openEvent(101, "4.50", 2))
	require.NoError(t, err)

	assert.Equal(t, 4, pos.Contracts)
	assert.Equal(t, 2, pos.InitialContracts, "initial contracts keep the historical baseline")
	assert.True(t, pos.AvgCostBasis.Equal(d("4.00")), "basis %s", pos.AvgCostBasis)
	assert.Equal(t, position.StatusOpen, pos.Status)

	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestClose_FullClose(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	existing := livePosition(101, "4.00", 4)
	repo.On("GetLive", mock.Anything, 101).Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	result, err := service.Close(ctx, closeEvent(101, "5.00", 4))
	require.NoError(t, err)

	assert.True(t, result.FullyClosed)
	assert.Equal(t, 0, result.Remaining)
	assert.True(t, result.RealizedGainAbs.Equal(d("400")), "abs %s", result.RealizedGainAbs)
	assert.True(t, result.RealizedGainPct.Equal(d("25")), "pct %s", result.RealizedGainPct)

	assert.Equal(t, position.StatusClosed, existing.Status)
	assert.Equal(t, 0, existing.Contracts)
	require.NotNil(t, existing.ClosedAt)

	// A full close never needs a live quote
	provider.AssertNotCalled(t, "Quote", mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestClose_PartialClose(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	existing := livePosition(101, "4.00", 4)
	provider.On("Quote", mock.Anything, mock.Anything).Return(d("5.50"), nil)
	repo.On("GetLive", mock.Anything, 101).Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	result, err := service.Close(ctx, closeEvent(101, "5.00", 1))
	require.NoError(t, err)

	assert.False(t, result.FullyClosed)
	assert.Equal(t, 3, result.Remaining)
	assert.True(t, result.RealizedGainAbs.Equal(d("100")), "abs %s", result.RealizedGainAbs)

	assert.Equal(t, position.StatusPartiallyClosed, existing.Status)
	assert.Equal(t, 3, existing.Contracts)
	assert.Nil(t, existing.ClosedAt)

	// Remaining contracts re-marked from the fresh quote
	assert.True(t, existing.MarketValue.Equal(d("1650")), "market value %s", existing.MarketValue)

	repo.AssertExpectations(t)
}

func TestClose_NotFound(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	repo.On("GetLive", mock.Anything, 7).Return(nil, errors.ErrPositionNotFound)

	result, err := service.Close(ctx, closeEvent(7, "5.00", 1))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrPositionNotFound))

	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestClose_RejectsOverClose(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	existing := livePosition(101, "4.00", 2)
	repo.On("GetLive", mock.Anything, 101).Return(existing, nil)

	result, err := service.Close(ctx, closeEvent(101, "5.00", 5))
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))

	// Record untouched
	assert.Equal(t, 2, existing.Contracts)
	assert.Equal(t, position.StatusOpen, existing.Status)
	repo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestClose_RejectsZeroContracts(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)

	_, err := service.Close(context.Background(), closeEvent(101, "5.00", 0))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidQuantity))
}

func TestRefreshAll_UnavailableQuoteLeavesPositionUntouched(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	pos1 := livePosition(101, "4.00", 2)
	pos2 := livePosition(102, "1.50", 1)
	pos2.Key = testKey("TSLA")
	pos3 := livePosition(103, "2.00", 3)
	pos3.Key = testKey("NVDA")

	repo.On("ListLive", mock.Anything).Return([]*position.Position{pos1, pos2, pos3}, nil)
	provider.On("Quote", mock.Anything, pos1.Key).Return(d("5.00"), nil)
	provider.On("Quote", mock.Anything, pos2.Key).Return(decimal.Zero, errors.ErrQuoteUnavailable)
	provider.On("Quote", mock.Anything, pos3.Key).Return(d("2.50"), nil)
	repo.On("GetLive", mock.Anything, 101).Return(pos1, nil)
	repo.On("GetLive", mock.Anything, 103).Return(pos3, nil)
	repo.On("UpdateMark", mock.Anything, 101, mock.Anything).Return(nil)
	repo.On("UpdateMark", mock.Anything, 103, mock.Anything).Return(nil)

	err := service.RefreshAll(ctx)
	require.NoError(t, err)

	repo.AssertCalled(t, "UpdateMark", mock.Anything, 101, mock.MatchedBy(func(mark position.Mark) bool {
		return mark.MarketValue.Equal(d("1000")) && mark.UnrealizedGainAbs.Equal(d("200"))
	}))
	repo.AssertCalled(t, "UpdateMark", mock.Anything, 103, mock.MatchedBy(func(mark position.Mark) bool {
		return mark.MarketValue.Equal(d("750")) && mark.UnrealizedGainAbs.Equal(d("150"))
	}))
	repo.AssertNotCalled(t, "UpdateMark", mock.Anything, 102, mock.Anything)
	repo.AssertNotCalled(t, "GetLive", mock.Anything, 102)
}

func TestRefreshAll_Idempotent(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	pos := livePosition(101, "4.00", 2)
	repo.On("ListLive", mock.Anything).Return([]*position.Position{pos}, nil)
	provider.On("Quote", mock.Anything, pos.Key).Return(d("4.80"), nil)
	repo.On("GetLive", mock.Anything, 101).Return(pos, nil)
	repo.On("UpdateMark", mock.Anything, 101, mock.Anything).Return(nil)

	require.NoError(t, service.RefreshAll(ctx))
	require.NoError(t, service.RefreshAll(ctx))

	var marks []position.Mark
	for _, call := range repo.Calls {
		if call.Method == "UpdateMark" {
			marks = append(marks, call.Arguments.Get(2).(position.Mark))
		}
	}
	require.Len(t, marks, 2)
	assert.True(t, marks[0].MarketValue.Equal(marks[1].MarketValue))
	assert.True(t, marks[0].UnrealizedGainAbs.Equal(marks[1].UnrealizedGainAbs))
	assert.True(t, marks[0].UnrealizedGainPct.Equal(marks[1].UnrealizedGainPct))
}

func TestRefreshAll_SkipsBusyPosition(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	pos := livePosition(101, "4.00", 2)
	repo.On("ListLive", mock.Anything).Return([]*position.Position{pos}, nil)
	provider.On("Quote", mock.Anything, pos.Key).Return(d("5.00"), nil)

	// Simulate a user mutation holding the position's lock
	lock := service.locks.lockFor(101)
	lock.Lock()
	defer lock.Unlock()

	require.NoError(t, service.RefreshAll(ctx))

	repo.AssertNotCalled(t, "UpdateMark", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshAll_SkipsPositionClosedMidCycle(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	pos := livePosition(101, "4.00", 2)
	repo.On("ListLive", mock.Anything).Return([]*position.Position{pos}, nil)
	provider.On("Quote", mock.Anything, pos.Key).Return(d("5.00"), nil)
	// Closed between enumeration and the locked re-read
	repo.On("GetLive", mock.Anything, 101).Return(nil, errors.ErrPositionNotFound)

	require.NoError(t, service.RefreshAll(ctx))

	repo.AssertNotCalled(t, "UpdateMark", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshAll_StoreFailureAbortsCycle(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)

	repo.On("ListLive", mock.Anything).Return(nil, errors.ErrStoreUnavailable)

	err := service.RefreshAll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}

func TestConservation_CloseSequence(t *testing.T) {
	repo := new(MockPositionRepository)
	provider := new(MockQuoteProvider)
	service := NewService(repo, provider)
	ctx := context.Background()

	existing := livePosition(101, "4.00", 6)
	provider.On("Quote", mock.Anything, mock.Anything).Return(decimal.Zero, errors.ErrQuoteUnavailable)
	repo.On("GetLive", mock.Anything, 101).Return(existing, nil)
	repo.On("Update", mock.Anything, existing).Return(nil)

	closed := 0
	for _, lot := range []int{1, 2, 3} {
		result, err := service.Close(ctx, closeEvent(101, "4.50", lot))
		require.NoError(t, err)
		closed += lot
		assert.Equal(t, existing.InitialContracts, closed+result.Remaining,
			"closed contracts plus remaining must equal the initial baseline")
	}

	assert.Equal(t, 0, existing.Contracts)
	assert.Equal(t, position.StatusClosed, existing.Status)
}
