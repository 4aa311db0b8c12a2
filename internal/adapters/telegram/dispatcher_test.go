package telegram

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"ledgerbot/internal/domain/position"
	"ledgerbot/internal/notation"
	"ledgerbot/internal/services/ledger"
	"ledgerbot/pkg/errors"
)

// MockLedger is a mock for the Ledger interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) OpenOrIncrease(ctx context.Context, event *notation.TradeEvent) (*position.Position, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*position.Position), args.Error(1)
}

func (m *MockLedger) Close(ctx context.Context, event *notation.TradeEvent) (*ledger.CloseResult, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.CloseResult), args.Error(1)
}

func newTestDispatcher(ledgerMock *MockLedger) *Dispatcher {
	clock := func() time.Time {
		return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
	}
	return NewDispatcher(notation.NewWithClock(clock), ledgerMock)
}

func TestDispatch_UnparseableMessageReturnsUsage(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	reply := d.Dispatch(context.Background(), "what a day")
	assert.Equal(t, usageMessage, reply)

	ledgerMock.AssertNotCalled(t, "OpenOrIncrease", mock.Anything, mock.Anything)
	ledgerMock.AssertNotCalled(t, "Close", mock.Anything, mock.Anything)
}

func TestDispatch_Open(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	pos := &position.Position{
		TradeNumber: 101,
		Key: position.OptionKey{
			Ticker: "AAPL",
			Expiry: time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC),
			Strike: decimal.NewFromInt(200),
			Right:  position.Call,
		},
		Contracts:    2,
		AvgCostBasis: decimal.RequireFromString("3.50"),
	}
	ledgerMock.On("OpenOrIncrease", mock.Anything, mock.MatchedBy(func(e *notation.TradeEvent) bool {
		return e.TradeNumber == 101 && e.Action == notation.BuyToOpen && e.Contracts == 2
	})).Return(pos, nil)

	reply := d.Dispatch(context.Background(), "Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	assert.Equal(t, "Trade #101 recorded: AAPL 08/15/2026 200C @ $3.50 (2 contracts)", reply)
}

func TestDispatch_Increase(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	// Post-fill count above the fill size marks this as an increase
	pos := &position.Position{
		TradeNumber:  101,
		Contracts:    4,
		AvgCostBasis: decimal.RequireFromString("4.00"),
	}
	ledgerMock.On("OpenOrIncrease", mock.Anything, mock.Anything).Return(pos, nil)

	reply := d.Dispatch(context.Background(), "Trade-101#BTO AAPL 08/15 200C@4.50(2 contracts)")
	assert.Equal(t, "Trade #101 increased by 2 contracts: 4 total @ avg $4.00", reply)
}

func TestDispatch_FullClose(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	result := &ledger.CloseResult{
		RealizedGainAbs: decimal.RequireFromString("400"),
		RealizedGainPct: decimal.RequireFromString("25"),
		Remaining:       0,
		FullyClosed:     true,
	}
	ledgerMock.On("Close", mock.Anything, mock.MatchedBy(func(e *notation.TradeEvent) bool {
		return e.TradeNumber == 101 && e.Action == notation.SellToClose
	})).Return(result, nil)

	reply := d.Dispatch(context.Background(), "Trade-101#STC AAPL 08/15 200C@5.00(4 contracts)")
	assert.Equal(t, "Trade #101 closed: realized $400.00 (25.00%)", reply)
}

func TestDispatch_PartialClose(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	result := &ledger.CloseResult{
		RealizedGainAbs: decimal.RequireFromString("100"),
		RealizedGainPct: decimal.RequireFromString("25"),
		Remaining:       3,
	}
	ledgerMock.On("Close", mock.Anything, mock.Anything).Return(result, nil)

	reply := d.Dispatch(context.Background(), "Trade-101#STC AAPL 08/15 200C@5.00(1 contract)")
	assert.Equal(t, "Trade #101 partially closed: 3 contracts remain, realized $100.00 (25.00%)", reply)
}

func TestDispatch_CloseUnknownTradeNumber(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	ledgerMock.On("Close", mock.Anything, mock.Anything).
		Return(nil, errors.Wrapf(errors.ErrPositionNotFound, "trade 7"))

	reply := d.Dispatch(context.Background(), "Trade-7#STC AAPL 08/15 200C@5.00(1 contract)")
	assert.Equal(t, "Warning: no open position found for Trade #7, nothing recorded", reply)
}

func TestDispatch_OverClose(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	ledgerMock.On("Close", mock.Anything, mock.Anything).
		Return(nil, errors.Wrapf(errors.ErrInvalidQuantity, "close of 5 contracts exceeds 2 held"))

	reply := d.Dispatch(context.Background(), "Trade-101#STC AAPL 08/15 200C@5.00(5 contracts)")
	assert.Contains(t, reply, "Warning: Trade #101 rejected")
	assert.Contains(t, reply, "exceeds 2 held")
}

func TestDispatch_ConsistencyError(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	ledgerMock.On("OpenOrIncrease", mock.Anything, mock.Anything).
		Return(nil, errors.Wrapf(errors.ErrStoreConsistency, "trade 101 live in rows 2 and 5"))

	reply := d.Dispatch(context.Background(), "Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	assert.Equal(t, "Warning: ledger is inconsistent for Trade #101, manual review needed", reply)
}

func TestDispatch_WriteFailure(t *testing.T) {
	ledgerMock := new(MockLedger)
	d := newTestDispatcher(ledgerMock)

	ledgerMock.On("OpenOrIncrease", mock.Anything, mock.Anything).
		Return(nil, errors.Wrap(errors.ErrStoreUnavailable, "append position"))

	reply := d.Dispatch(context.Background(), "Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	assert.Equal(t, "Failed to record Trade #101, the ledger store did not accept the write", reply)
}
