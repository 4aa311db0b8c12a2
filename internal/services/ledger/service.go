// Package ledger is the authoritative keeper of option positions: opens,
// increases, partial and full closes, and the periodic mark-to-market
// refresh of every live row.
package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgerbot/internal/adapters/quotes"
	"ledgerbot/internal/domain/position"
	"ledgerbot/internal/metrics"
	"ledgerbot/internal/notation"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Service manages position lifecycle operations.
//
// Each position is one unit of mutual exclusion: user mutations hold its
// lock for the whole read-modify-write, while the refresh cycle TryLocks
// and skips busy positions. Quote lookups happen outside any lock and the
// result is re-validated against fresh state under the lock.
type Service struct {
	repo   position.Repository
	quotes quotes.Provider
	locks  *lockRegistry
	now    func() time.Time
	log    *logger.Logger
}

// NewService constructs a ledger service
func NewService(repo position.Repository, quoteProvider quotes.Provider) *Service {
	return &Service{
		repo:   repo,
		quotes: quoteProvider,
		locks:  newLockRegistry(),
		now:    time.Now,
		log:    logger.Get().With("component", "ledger"),
	}
}

// CloseResult reports the outcome of a close event
type CloseResult struct {
	RealizedGainAbs decimal.Decimal
	RealizedGainPct decimal.Decimal
	Remaining       int
	FullyClosed     bool
}

// OpenOrIncrease creates a new position for the event's trade number or,
// if one is already live, adds the fill at the quantity-weighted average
// cost. InitialContracts keeps the historical baseline on an increase.
func (s *Service) OpenOrIncrease(ctx context.Context, event *notation.TradeEvent) (*position.Position, error) {
	if err := validateEvent(event, notation.BuyToOpen); err != nil {
		return nil, err
	}

	// Quote lookup stays outside the critical section; the event price
	// is the fallback when the series has no usable quote
	markPrice := s.markPrice(ctx, event.Key, event.Price)

	lock := s.locks.lockFor(event.TradeNumber)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.repo.GetLive(ctx, event.TradeNumber)
	switch {
	case err == nil:
		return s.increase(ctx, existing, event, markPrice)
	case errors.Is(err, errors.ErrPositionNotFound):
		return s.open(ctx, event, markPrice)
	default:
		return nil, err
	}
}

func (s *Service) open(ctx context.Context, event *notation.TradeEvent, markPrice decimal.Decimal) (*position.Position, error) {
	pos := &position.Position{
		TradeNumber:      event.TradeNumber,
		Key:              event.Key,
		OpenedAt:         s.now(),
		InitialContracts: event.Contracts,
		Contracts:        event.Contracts,
		AvgCostBasis:     event.Price,
		Status:           position.StatusOpen,
		Notes:            event.Notes,
	}
	pos.SetMark(position.MarkFromPrice(pos.AvgCostBasis, markPrice, pos.Contracts))

	if err := s.repo.Create(ctx, pos); err != nil {
		metrics.LedgerOps.WithLabelValues("open", "error").Inc()
		return nil, errors.Wrap(err, "open position")
	}

	metrics.LedgerOps.WithLabelValues("open", "success").Inc()
	s.log.Infow("Position opened",
		"trade_number", pos.TradeNumber,
		"series", pos.Key.String(),
		"contracts", pos.Contracts,
		"basis", pos.AvgCostBasis.String(),
	)
	return pos, nil
}

func (s *Service) increase(ctx context.Context, pos *position.Position, event *notation.TradeEvent, markPrice decimal.Decimal) (*position.Position, error) {
	pos.AvgCostBasis = position.WeightedBasis(pos.AvgCostBasis, pos.Contracts, event.Price, event.Contracts)
	pos.Contracts += event.Contracts
	pos.AppendNotes(event.Notes)
	// Status stays whatever it was; InitialContracts is the baseline
	pos.SetMark(position.MarkFromPrice(pos.AvgCostBasis, markPrice, pos.Contracts))

	if err := s.repo.Update(ctx, pos); err != nil {
		metrics.LedgerOps.WithLabelValues("increase", "error").Inc()
		return nil, errors.Wrap(err, "increase position")
	}

	metrics.LedgerOps.WithLabelValues("increase", "success").Inc()
	s.log.Infow("Position increased",
		"trade_number", pos.TradeNumber,
		"contracts", pos.Contracts,
		"basis", pos.AvgCostBasis.String(),
	)
	return pos, nil
}

// Close sells contracts out of the live position for the event's trade
// number. Closing more than currently held is rejected without mutating
// the row; closing the final contract makes the record immutable.
func (s *Service) Close(ctx context.Context, event *notation.TradeEvent) (*CloseResult, error) {
	if err := validateEvent(event, notation.SellToClose); err != nil {
		return nil, err
	}

	// Optimistic pre-read decides whether a fresh quote is needed for a
	// partial close; the state is re-validated under the lock
	preview, err := s.repo.GetLive(ctx, event.TradeNumber)
	if err != nil {
		if errors.Is(err, errors.ErrPositionNotFound) {
			metrics.LedgerOps.WithLabelValues("close", "not_found").Inc()
		}
		return nil, err
	}

	markPrice := event.Price
	if preview.Contracts > event.Contracts {
		markPrice = s.markPrice(ctx, event.Key, event.Price)
	}

	lock := s.locks.lockFor(event.TradeNumber)
	lock.Lock()
	defer lock.Unlock()

	pos, err := s.repo.GetLive(ctx, event.TradeNumber)
	if err != nil {
		if errors.Is(err, errors.ErrPositionNotFound) {
			metrics.LedgerOps.WithLabelValues("close", "not_found").Inc()
		}
		return nil, err
	}

	remaining := pos.Contracts - event.Contracts
	if remaining < 0 {
		metrics.LedgerOps.WithLabelValues("close", "invalid_quantity").Inc()
		return nil, errors.Wrapf(errors.ErrInvalidQuantity,
			"close of %d contracts exceeds %d held", event.Contracts, pos.Contracts)
	}

	realizedAbs, realizedPct := position.RealizedGain(pos.AvgCostBasis, event.Price, event.Contracts)

	if remaining == 0 {
		closedAt := s.now()
		pos.Contracts = 0
		pos.Status = position.StatusClosed
		pos.ClosedAt = &closedAt
		// Final mark reflects the close itself
		pos.SetMark(position.Mark{
			MarketValue:       event.Price.Mul(decimal.NewFromInt(int64(event.Contracts) * position.ContractMultiplier)),
			UnrealizedGainPct: realizedPct,
			UnrealizedGainAbs: realizedAbs,
		})
	} else {
		pos.Contracts = remaining
		pos.Status = position.StatusPartiallyClosed
		pos.AppendNotes(event.Notes)
		pos.SetMark(position.MarkFromPrice(pos.AvgCostBasis, markPrice, remaining))
	}

	if err := s.repo.Update(ctx, pos); err != nil {
		metrics.LedgerOps.WithLabelValues("close", "error").Inc()
		return nil, errors.Wrap(err, "close position")
	}

	metrics.LedgerOps.WithLabelValues("close", "success").Inc()
	s.log.Infow("Position closed",
		"trade_number", pos.TradeNumber,
		"closed_contracts", event.Contracts,
		"remaining", remaining,
		"realized_abs", realizedAbs.String(),
	)
	return &CloseResult{
		RealizedGainAbs: realizedAbs,
		RealizedGainPct: realizedPct,
		Remaining:       remaining,
		FullyClosed:     remaining == 0,
	}, nil
}

// RefreshAll re-marks every live position against a fresh quote.
// Positions without a usable quote or busy in a user mutation are left
// untouched for this cycle; only a store enumeration failure aborts the
// cycle, and that is retried on the next tick by the caller.
func (s *Service) RefreshAll(ctx context.Context) error {
	cycle := uuid.New().String()[:8]
	log := s.log.With("cycle", cycle)

	live, err := s.repo.ListLive(ctx)
	if err != nil {
		return errors.Wrap(err, "enumerate live positions")
	}
	if len(live) == 0 {
		log.Debug("No live positions to refresh")
		return nil
	}

	refreshed, skipped := 0, 0
	for _, pos := range live {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if s.refreshOne(ctx, log, pos) {
			refreshed++
		} else {
			skipped++
		}
	}

	metrics.RefreshPositions.WithLabelValues("refreshed").Add(float64(refreshed))
	metrics.RefreshPositions.WithLabelValues("skipped").Add(float64(skipped))
	log.Infow("Mark refresh cycle complete", "refreshed", refreshed, "skipped", skipped)
	return nil
}

// refreshOne marks one position; returns false when the position was
// skipped this cycle
func (s *Service) refreshOne(ctx context.Context, log *logger.Logger, pos *position.Position) bool {
	price, err := s.quotes.Quote(ctx, pos.Key)
	if err != nil {
		metrics.QuoteLookups.WithLabelValues("unavailable").Inc()
		log.Debugw("Quote unavailable, leaving position untouched",
			"trade_number", pos.TradeNumber, "series", pos.Key.String(), "error", err)
		return false
	}
	metrics.QuoteLookups.WithLabelValues("success").Inc()

	lock := s.locks.lockFor(pos.TradeNumber)
	if !lock.TryLock() {
		// A user mutation is in flight; defer to the next cycle
		log.Debugw("Position busy, deferring refresh", "trade_number", pos.TradeNumber)
		return false
	}
	defer lock.Unlock()

	// Re-validate: the position may have been closed or resized between
	// the enumeration and now
	fresh, err := s.repo.GetLive(ctx, pos.TradeNumber)
	if err != nil {
		if !errors.Is(err, errors.ErrPositionNotFound) {
			log.Errorw("Refresh re-read failed", "trade_number", pos.TradeNumber, "error", err)
		}
		return false
	}

	mark := position.MarkFromPrice(fresh.AvgCostBasis, price, fresh.Contracts)
	if err := s.repo.UpdateMark(ctx, fresh.TradeNumber, mark); err != nil {
		log.Errorw("Mark write failed", "trade_number", fresh.TradeNumber, "error", err)
		return false
	}
	return true
}

// markPrice returns the live reference price for key, falling back to
// fallback when the quote is unavailable
func (s *Service) markPrice(ctx context.Context, key position.OptionKey, fallback decimal.Decimal) decimal.Decimal {
	price, err := s.quotes.Quote(ctx, key)
	if err != nil {
		metrics.QuoteLookups.WithLabelValues("unavailable").Inc()
		s.log.Debugw("Quote unavailable, using event price", "series", key.String(), "error", err)
		return fallback
	}
	metrics.QuoteLookups.WithLabelValues("success").Inc()
	return price
}

func validateEvent(event *notation.TradeEvent, want notation.Action) error {
	if event == nil {
		return errors.ErrInvalidInput
	}
	if event.Action != want {
		return errors.Wrapf(errors.ErrInvalidInput, "expected %s event, got %s", want, event.Action)
	}
	if event.Contracts <= 0 {
		return errors.Wrapf(errors.ErrInvalidQuantity, "contract count must be positive, got %d", event.Contracts)
	}
	if event.Price.IsNegative() {
		return errors.Wrapf(errors.ErrInvalidInput, "price cannot be negative")
	}
	return nil
}
