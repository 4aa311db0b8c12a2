package notation

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerbot/internal/domain/position"
)

// Fixed clock: June 1st, 2026
func testClock() time.Time {
	return time.Date(2026, time.June, 1, 12, 0, 0, 0, time.UTC)
}

func newTestParser() *Parser {
	return NewWithClock(testClock)
}

func TestParse_OpenEvent(t *testing.T) {
	p := newTestParser()

	event, err := p.Parse("Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	require.NoError(t, err)

	assert.Equal(t, 101, event.TradeNumber)
	assert.Equal(t, BuyToOpen, event.Action)
	assert.Equal(t, "AAPL", event.Key.Ticker)
	assert.Equal(t, time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC), event.Key.Expiry)
	assert.True(t, event.Key.Strike.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, position.Call, event.Key.Right)
	assert.True(t, event.Price.Equal(decimal.RequireFromString("3.50")))
	assert.Equal(t, 2, event.Contracts)
	assert.Empty(t, event.Notes)
}

func TestParse_CloseEvent(t *testing.T) {
	p := newTestParser()

	event, err := p.Parse("Trade-101#STC AAPL 08/15 200C@5.00(4 contracts)")
	require.NoError(t, err)

	assert.Equal(t, SellToClose, event.Action)
	assert.Equal(t, 4, event.Contracts)
	assert.True(t, event.Price.Equal(decimal.NewFromInt(5)))
}

func TestParse_CaseInsensitiveActionAndRight(t *testing.T) {
	p := newTestParser()

	event, err := p.Parse("Trade-7#bto tsla 09/19 240.5p@1.25(1 contract)")
	require.NoError(t, err)

	assert.Equal(t, BuyToOpen, event.Action)
	assert.Equal(t, "TSLA", event.Key.Ticker)
	assert.Equal(t, position.Put, event.Key.Right)
	assert.True(t, event.Key.Strike.Equal(decimal.RequireFromString("240.5")))
}

func TestParse_TrailingNotes(t *testing.T) {
	p := newTestParser()

	event, err := p.Parse("Trade-12#BTO NVDA 07/17 900C@12.40(3 contracts) earnings play, risky")
	require.NoError(t, err)

	assert.Equal(t, "earnings play, risky", event.Notes)
}

func TestParse_ExpiryYearRollover(t *testing.T) {
	p := newTestParser() // clock fixed in June

	past, err := p.Parse("Trade-1#BTO AMD 01/16 145C@8.65(5 contracts)")
	require.NoError(t, err)
	assert.Equal(t, 2027, past.Key.Expiry.Year(), "January has passed in June, rolls to next year")

	sameMonth, err := p.Parse("Trade-2#BTO AMD 06/19 145C@8.65(5 contracts)")
	require.NoError(t, err)
	assert.Equal(t, 2026, sameMonth.Key.Expiry.Year(), "current month stays in the current year")

	future, err := p.Parse("Trade-3#BTO AMD 12/18 145C@8.65(5 contracts)")
	require.NoError(t, err)
	assert.Equal(t, 2026, future.Key.Expiry.Year())
}

func TestParse_Deterministic(t *testing.T) {
	p := newTestParser()

	first, err := p.Parse("Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	require.NoError(t, err)
	second, err := p.Parse("Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts)")
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestParse_MalformedInput(t *testing.T) {
	p := newTestParser()

	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"plain chatter", "great trade everyone"},
		{"missing trade prefix", "101#BTO AAPL 08/15 200C@3.50(2 contracts)"},
		{"unknown action", "Trade-101#XYZ AAPL 08/15 200C@3.50(2 contracts)"},
		{"missing ticker", "Trade-101#BTO 08/15 200C@3.50(2 contracts)"},
		{"bad expiry", "Trade-101#BTO AAPL 8-15 200C@3.50(2 contracts)"},
		{"month out of range", "Trade-101#BTO AAPL 13/15 200C@3.50(2 contracts)"},
		{"day out of range", "Trade-101#BTO AAPL 08/32 200C@3.50(2 contracts)"},
		{"missing right", "Trade-101#BTO AAPL 08/15 200@3.50(2 contracts)"},
		{"bad right", "Trade-101#BTO AAPL 08/15 200X@3.50(2 contracts)"},
		{"missing price", "Trade-101#BTO AAPL 08/15 200C@(2 contracts)"},
		{"non-numeric price", "Trade-101#BTO AAPL 08/15 200C@abc(2 contracts)"},
		{"missing contracts", "Trade-101#BTO AAPL 08/15 200C@3.50"},
		{"non-numeric contracts", "Trade-101#BTO AAPL 08/15 200C@3.50(two contracts)"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := p.Parse(tc.text)
			assert.Nil(t, event, "no partial event on malformed input")
			require.Error(t, err)

			var parseErr *ParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}
