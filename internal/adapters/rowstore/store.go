// Package rowstore models the tabular persistence backend as an ordered
// sequence of rows with a reserved header row, each data row addressable
// by row number and column name. This mirrors the spreadsheet the ledger
// was historically kept in.
package rowstore

import (
	"context"
)

// Sheet column layout. Order matters for on-disk compatibility.
const (
	ColTradeNumber       = "id"
	ColTicker            = "ticker"
	ColOpenedAt          = "opened_at"
	ColClosedAt          = "closed_at"
	ColExpiry            = "expiry"
	ColStrike            = "strike"
	ColRight             = "right"
	ColInitialContracts  = "initial_contracts"
	ColContracts         = "contracts"
	ColAvgCostBasis      = "avg_cost_basis"
	ColTotalCostBasis    = "total_cost_basis"
	ColMarketValue       = "market_value"
	ColUnrealizedGainPct = "unrealized_gain_pct"
	ColUnrealizedGainAbs = "unrealized_gain_abs"
	ColStatus            = "status"
	ColNotes             = "notes"
)

// Columns lists the sheet columns in layout order
var Columns = []string{
	ColTradeNumber,
	ColTicker,
	ColOpenedAt,
	ColClosedAt,
	ColExpiry,
	ColStrike,
	ColRight,
	ColInitialContracts,
	ColContracts,
	ColAvgCostBasis,
	ColTotalCostBasis,
	ColMarketValue,
	ColUnrealizedGainPct,
	ColUnrealizedGainAbs,
	ColStatus,
	ColNotes,
}

// ValidColumn reports whether name belongs to the sheet layout
func ValidColumn(name string) bool {
	for _, c := range Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Row holds one data row's cell values keyed by column name
type Row map[string]string

// Clone returns a copy of the row
func (r Row) Clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// NumberedRow pairs a data row with its sheet row number
type NumberedRow struct {
	Number int
	Values Row
}

// HeaderRowNumber is reserved for the header; data rows start below it
const HeaderRowNumber = 1

// Store is a row-addressable tabular store
type Store interface {
	// Append adds a data row and returns its assigned row number
	Append(ctx context.Context, row Row) (int, error)

	// ReadAll returns every data row in sheet order
	ReadAll(ctx context.Context) ([]NumberedRow, error)

	// Update sets one cell
	Update(ctx context.Context, rowNumber int, column, value string) error

	// Read returns one cell
	Read(ctx context.Context, rowNumber int, column string) (string, error)
}
