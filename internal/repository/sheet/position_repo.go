// Package sheet implements the position repository over the row-addressable
// ledger store, preserving the historical spreadsheet column layout.
package sheet

import (
	"context"
	"strconv"
	"sync"

	"github.com/shopspring/decimal"

	"ledgerbot/internal/adapters/rowstore"
	"ledgerbot/internal/domain/position"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Compile-time check
var _ position.Repository = (*PositionRepository)(nil)

// PositionRepository implements position.Repository over a rowstore.Store.
//
// A live-id index (trade number -> row number) is maintained so writes do
// not rescan the sheet; reads still go through the store so external edits
// are picked up.
type PositionRepository struct {
	store rowstore.Store
	log   *logger.Logger

	mu        sync.Mutex
	liveIndex map[int]int
}

// NewPositionRepository builds the repository and seeds the live-id index
// from the current sheet contents
func NewPositionRepository(ctx context.Context, store rowstore.Store) (*PositionRepository, error) {
	r := &PositionRepository{
		store:     store,
		log:       logger.Get().With("component", "sheet_repository"),
		liveIndex: make(map[int]int),
	}

	rows, err := store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "seed live index")
	}
	for _, row := range rows {
		pos, err := decodeRow(row.Values)
		if err != nil {
			r.log.Warnw("Skipping undecodable ledger row", "row", row.Number, "error", err)
			continue
		}
		if pos.Live() {
			if _, dup := r.liveIndex[pos.TradeNumber]; dup {
				r.log.Errorw("Two live rows share a trade number",
					"trade_number", pos.TradeNumber, "row", row.Number)
			}
			r.liveIndex[pos.TradeNumber] = row.Number
		}
	}

	r.log.Infow("Ledger index ready", "rows", len(rows), "live", len(r.liveIndex))
	return r, nil
}

// Create appends a new position row
func (r *PositionRepository) Create(ctx context.Context, pos *position.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.liveIndex[pos.TradeNumber]; exists {
		return errors.Wrapf(errors.ErrDuplicateTradeNumber, "trade %d", pos.TradeNumber)
	}

	rowNumber, err := r.store.Append(ctx, encodeRow(pos))
	if err != nil {
		return errors.Wrap(err, "append position")
	}
	if pos.Live() {
		r.liveIndex[pos.TradeNumber] = rowNumber
	}
	return nil
}

// GetLive returns the live position for a trade number
func (r *PositionRepository) GetLive(ctx context.Context, tradeNumber int) (*position.Position, error) {
	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}

	var found *position.Position
	var foundRow int
	for _, row := range rows {
		pos, err := decodeRow(row.Values)
		if err != nil || pos.TradeNumber != tradeNumber || !pos.Live() {
			continue
		}
		if found != nil {
			return nil, errors.Wrapf(errors.ErrStoreConsistency,
				"trade %d live in rows %d and %d", tradeNumber, foundRow, row.Number)
		}
		found = pos
		foundRow = row.Number
	}
	if found == nil {
		return nil, errors.Wrapf(errors.ErrPositionNotFound, "trade %d", tradeNumber)
	}

	r.mu.Lock()
	r.liveIndex[tradeNumber] = foundRow
	r.mu.Unlock()
	return found, nil
}

// ListLive returns every live position
func (r *PositionRepository) ListLive(ctx context.Context) ([]*position.Position, error) {
	rows, err := r.store.ReadAll(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "read positions")
	}

	var out []*position.Position
	for _, row := range rows {
		pos, err := decodeRow(row.Values)
		if err != nil {
			r.log.Warnw("Skipping undecodable ledger row", "row", row.Number, "error", err)
			continue
		}
		if pos.Live() {
			out = append(out, pos)
		}
	}
	return out, nil
}

// Update persists the full mutable state of an existing position
func (r *PositionRepository) Update(ctx context.Context, pos *position.Position) error {
	rowNumber, err := r.rowNumberFor(ctx, pos.TradeNumber)
	if err != nil {
		return err
	}

	closedAt := ""
	if pos.ClosedAt != nil {
		closedAt = formatDate(*pos.ClosedAt)
	}
	cells := map[string]string{
		rowstore.ColClosedAt:          closedAt,
		rowstore.ColContracts:         strconv.Itoa(pos.Contracts),
		rowstore.ColAvgCostBasis:      formatDollars(pos.AvgCostBasis),
		rowstore.ColTotalCostBasis:    formatDollars(pos.TotalCostBasis()),
		rowstore.ColMarketValue:       formatDollars(pos.MarketValue),
		rowstore.ColUnrealizedGainPct: formatPercent(pos.UnrealizedGainPct),
		rowstore.ColUnrealizedGainAbs: formatDollars(pos.UnrealizedGainAbs),
		rowstore.ColStatus:            formatStatus(pos.Status),
		rowstore.ColNotes:             pos.Notes,
	}
	for _, column := range rowstore.Columns {
		value, ok := cells[column]
		if !ok {
			continue
		}
		if err := r.store.Update(ctx, rowNumber, column, value); err != nil {
			return errors.Wrapf(err, "update trade %d", pos.TradeNumber)
		}
	}

	if !pos.Live() {
		r.mu.Lock()
		delete(r.liveIndex, pos.TradeNumber)
		r.mu.Unlock()
	}
	return nil
}

// UpdateMark persists only the quote-derived fields of a live position
func (r *PositionRepository) UpdateMark(ctx context.Context, tradeNumber int, mark position.Mark) error {
	rowNumber, err := r.rowNumberFor(ctx, tradeNumber)
	if err != nil {
		return err
	}

	cells := map[string]string{
		rowstore.ColMarketValue:       formatDollars(mark.MarketValue),
		rowstore.ColUnrealizedGainPct: formatPercent(mark.UnrealizedGainPct),
		rowstore.ColUnrealizedGainAbs: formatDollars(mark.UnrealizedGainAbs),
	}
	for _, column := range rowstore.Columns {
		value, ok := cells[column]
		if !ok {
			continue
		}
		if err := r.store.Update(ctx, rowNumber, column, value); err != nil {
			return errors.Wrapf(err, "update mark for trade %d", tradeNumber)
		}
	}
	return nil
}

// rowNumberFor resolves a live trade number to its sheet row, consulting
// the index first and falling back to a scan
func (r *PositionRepository) rowNumberFor(ctx context.Context, tradeNumber int) (int, error) {
	r.mu.Lock()
	rowNumber, ok := r.liveIndex[tradeNumber]
	r.mu.Unlock()
	if ok {
		return rowNumber, nil
	}

	if _, err := r.GetLive(ctx, tradeNumber); err != nil {
		return 0, err
	}

	r.mu.Lock()
	rowNumber = r.liveIndex[tradeNumber]
	r.mu.Unlock()
	return rowNumber, nil
}

func encodeRow(pos *position.Position) rowstore.Row {
	closedAt := ""
	if pos.ClosedAt != nil {
		closedAt = formatDate(*pos.ClosedAt)
	}
	return rowstore.Row{
		rowstore.ColTradeNumber:       strconv.Itoa(pos.TradeNumber),
		rowstore.ColTicker:            pos.Key.Ticker,
		rowstore.ColOpenedAt:          formatDate(pos.OpenedAt),
		rowstore.ColClosedAt:          closedAt,
		rowstore.ColExpiry:            formatDate(pos.Key.Expiry),
		rowstore.ColStrike:            pos.Key.Strike.String(),
		rowstore.ColRight:             pos.Key.Right.String(),
		rowstore.ColInitialContracts:  strconv.Itoa(pos.InitialContracts),
		rowstore.ColContracts:         strconv.Itoa(pos.Contracts),
		rowstore.ColAvgCostBasis:      formatDollars(pos.AvgCostBasis),
		rowstore.ColTotalCostBasis:    formatDollars(pos.TotalCostBasis()),
		rowstore.ColMarketValue:       formatDollars(pos.MarketValue),
		rowstore.ColUnrealizedGainPct: formatPercent(pos.UnrealizedGainPct),
		rowstore.ColUnrealizedGainAbs: formatDollars(pos.UnrealizedGainAbs),
		rowstore.ColStatus:            formatStatus(pos.Status),
		rowstore.ColNotes:             pos.Notes,
	}
}

func decodeRow(row rowstore.Row) (*position.Position, error) {
	tradeNumber, err := strconv.Atoi(row[rowstore.ColTradeNumber])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreConsistency, "bad trade number %q", row[rowstore.ColTradeNumber])
	}

	openedAt, err := parseDate(row[rowstore.ColOpenedAt])
	if err != nil {
		return nil, err
	}
	expiry, err := parseDate(row[rowstore.ColExpiry])
	if err != nil {
		return nil, err
	}

	strike, err := decimal.NewFromString(row[rowstore.ColStrike])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreConsistency, "bad strike %q", row[rowstore.ColStrike])
	}

	right := position.Right(row[rowstore.ColRight])
	if !right.Valid() {
		return nil, errors.Wrapf(errors.ErrStoreConsistency, "bad right %q", row[rowstore.ColRight])
	}

	initialContracts, err := strconv.Atoi(row[rowstore.ColInitialContracts])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreConsistency, "bad initial contracts %q", row[rowstore.ColInitialContracts])
	}
	contracts, err := strconv.Atoi(row[rowstore.ColContracts])
	if err != nil {
		return nil, errors.Wrapf(errors.ErrStoreConsistency, "bad contracts %q", row[rowstore.ColContracts])
	}

	avgCostBasis, err := parseDollars(row[rowstore.ColAvgCostBasis])
	if err != nil {
		return nil, err
	}
	marketValue, err := parseDollars(row[rowstore.ColMarketValue])
	if err != nil {
		return nil, err
	}
	gainPct, err := parsePercent(row[rowstore.ColUnrealizedGainPct])
	if err != nil {
		return nil, err
	}
	gainAbs, err := parseDollars(row[rowstore.ColUnrealizedGainAbs])
	if err != nil {
		return nil, err
	}

	status, err := parseStatus(row[rowstore.ColStatus])
	if err != nil {
		return nil, err
	}

	pos := &position.Position{
		TradeNumber: tradeNumber,
		Key: position.OptionKey{
			Ticker: row[rowstore.ColTicker],
			Expiry: expiry,
			Strike: strike,
			Right:  right,
		},
		OpenedAt:          openedAt,
		InitialContracts:  initialContracts,
		Contracts:         contracts,
		AvgCostBasis:      avgCostBasis,
		MarketValue:       marketValue,
		UnrealizedGainPct: gainPct,
		UnrealizedGainAbs: gainAbs,
		Status:            status,
		Notes:             row[rowstore.ColNotes],
	}
	if closedAt := row[rowstore.ColClosedAt]; closedAt != "" {
		t, err := parseDate(closedAt)
		if err != nil {
			return nil, err
		}
		pos.ClosedAt = &t
	}
	return pos, nil
}
