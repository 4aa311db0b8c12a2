// Package notation parses free-text trade notifications into structured
// trade events.
//
// Recognized form:
//
//	Trade-101#BTO AAPL 08/15 200C@3.50(2 contracts) optional notes
//
// The action token and option right are case-insensitive. A bare MM/DD
// expiry resolves to the current year unless that month has already
// passed, in which case it rolls to the next year.
package notation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/domain/position"
)

// Action is the trade intent carried by an event
type Action string

const (
	// BuyToOpen opens a new position or increases an existing one
	BuyToOpen Action = "BTO"

	// SellToClose closes all or part of a position
	SellToClose Action = "STC"
)

// String returns string representation
func (a Action) String() string {
	return string(a)
}

// TradeEvent is a fully parsed trade notification
type TradeEvent struct {
	TradeNumber int
	Action      Action
	Key         position.OptionKey

	// Price is the per-contract premium in dollars
	Price     decimal.Decimal
	Contracts int
	Notes     string
}

// ParseError is the typed absence returned for malformed input. The
// parser never panics and never returns a partially populated event.
type ParseError struct {
	Input  string
	Reason string
}

// Error implements the error interface
func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable trade notation: %s", e.Reason)
}

var tradePattern = regexp.MustCompile(
	`^\s*Trade-(\d+)#\s*([A-Za-z]{3})\s+([A-Za-z][A-Za-z0-9.\-]*)\s+(\d{1,2})/(\d{1,2})\s+(\d+(?:\.\d+)?)([CPcp])\s*@\s*(\d+(?:\.\d+)?)\s*\(\s*(\d+)\s+[Cc]ontracts?\s*\)\s*(.*?)\s*$`,
)

// Parser converts raw text commands into trade events. The clock is
// injectable so expiry-year resolution is deterministic in tests.
type Parser struct {
	now func() time.Time
}

// New creates a parser using the wall clock
func New() *Parser {
	return &Parser{now: time.Now}
}

// NewWithClock creates a parser with a fixed clock source
func NewWithClock(now func() time.Time) *Parser {
	return &Parser{now: now}
}

// Parse converts one raw text command into a trade event
func (p *Parser) Parse(text string) (*TradeEvent, error) {
	m := tradePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, &ParseError{Input: text, Reason: "text does not match trade notation"}
	}

	tradeNumber, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "trade number is not numeric"}
	}

	var action Action
	switch strings.ToUpper(m[2]) {
	case string(BuyToOpen):
		action = BuyToOpen
	case string(SellToClose):
		action = SellToClose
	default:
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("unknown action %q", m[2])}
	}

	month, err := strconv.Atoi(m[4])
	if err != nil || month < 1 || month > 12 {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("invalid expiry month %q", m[4])}
	}
	day, err := strconv.Atoi(m[5])
	if err != nil || day < 1 || day > 31 {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("invalid expiry day %q", m[5])}
	}

	strike, err := decimal.NewFromString(m[6])
	if err != nil {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("invalid strike %q", m[6])}
	}

	right := position.Right(strings.ToUpper(m[7]))
	if !right.Valid() {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("invalid option right %q", m[7])}
	}

	price, err := decimal.NewFromString(m[8])
	if err != nil {
		return nil, &ParseError{Input: text, Reason: fmt.Sprintf("invalid price %q", m[8])}
	}

	contracts, err := strconv.Atoi(m[9])
	if err != nil {
		return nil, &ParseError{Input: text, Reason: "contract count is not numeric"}
	}

	return &TradeEvent{
		TradeNumber: tradeNumber,
		Action:      action,
		Key: position.OptionKey{
			Ticker: strings.ToUpper(m[3]),
			Expiry: p.resolveExpiry(month, day),
			Strike: strike,
			Right:  right,
		},
		Price:     price,
		Contracts: contracts,
		Notes:     m[10],
	}, nil
}

// resolveExpiry turns a bare MM/DD into a date. A month earlier than the
// current month has already passed this year and rolls to the next year.
func (p *Parser) resolveExpiry(month, day int) time.Time {
	now := p.now()
	year := now.Year()
	if time.Month(month) < now.Month() {
		year++
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}
