package position

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ContractMultiplier is the number of underlying shares one option
// contract represents
const ContractMultiplier = 100

// Right identifies the option right (call or put)
type Right string

const (
	Call Right = "C"
	Put  Right = "P"
)

// Valid checks if the right is valid
func (r Right) Valid() bool {
	return r == Call || r == Put
}

// String returns string representation
func (r Right) String() string {
	return string(r)
}

// OptionKey identifies a specific contract series. Immutable.
type OptionKey struct {
	Ticker string
	Expiry time.Time
	Strike decimal.Decimal
	Right  Right
}

// String renders the series in display notation, e.g. "AAPL 08/15/2026 200C"
func (k OptionKey) String() string {
	return fmt.Sprintf("%s %s %s%s", k.Ticker, k.Expiry.Format("01/02/2006"), k.Strike.String(), k.Right)
}

// Status defines position lifecycle status
type Status string

const (
	StatusOpen            Status = "open"
	StatusPartiallyClosed Status = "partially_closed"
	StatusClosed          Status = "closed"
)

// Valid checks if the status is valid
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusPartiallyClosed, StatusClosed:
		return true
	}
	return false
}

// Live returns true while contracts remain open
func (s Status) Live() bool {
	return s == StatusOpen || s == StatusPartiallyClosed
}

// String returns string representation
func (s Status) String() string {
	return string(s)
}

// Mark holds the quote-derived fields refreshed by the scheduler or by a
// close event. Never touches contracts or status.
type Mark struct {
	MarketValue       decimal.Decimal
	UnrealizedGainPct decimal.Decimal
	UnrealizedGainAbs decimal.Decimal
}

// Position is one row in the ledger
type Position struct {
	// TradeNumber is the caller-supplied trade id, unique among live
	// positions; closed positions may have reused it historically
	TradeNumber int

	Key OptionKey

	OpenedAt time.Time
	ClosedAt *time.Time

	// Contracts is the remaining open quantity; InitialContracts is the
	// historical baseline and never changes after the opening fill
	InitialContracts int
	Contracts        int

	// AvgCostBasis is the quantity-weighted premium paid per contract,
	// in dollars (not cents, not scaled by the multiplier)
	AvgCostBasis decimal.Decimal

	MarketValue       decimal.Decimal
	UnrealizedGainPct decimal.Decimal
	UnrealizedGainAbs decimal.Decimal

	Status Status
	Notes  string
}

// Live returns true if the position still holds contracts
func (p *Position) Live() bool {
	return p.Status.Live()
}

// TotalCostBasis returns the dollar cost of the remaining contracts
func (p *Position) TotalCostBasis() decimal.Decimal {
	return p.AvgCostBasis.
		Mul(decimal.NewFromInt(int64(p.Contracts))).
		Mul(decimal.NewFromInt(ContractMultiplier))
}

// SetMark applies quote-derived fields
func (p *Position) SetMark(mark Mark) {
	p.MarketValue = mark.MarketValue
	p.UnrealizedGainPct = mark.UnrealizedGainPct
	p.UnrealizedGainAbs = mark.UnrealizedGainAbs
}

// CurrentMark returns the cached quote-derived fields
func (p *Position) CurrentMark() Mark {
	return Mark{
		MarketValue:       p.MarketValue,
		UnrealizedGainPct: p.UnrealizedGainPct,
		UnrealizedGainAbs: p.UnrealizedGainAbs,
	}
}

// AppendNotes appends free text from a later event
func (p *Position) AppendNotes(notes string) {
	if notes == "" {
		return
	}
	if p.Notes == "" {
		p.Notes = notes
		return
	}
	p.Notes = p.Notes + "; " + notes
}
