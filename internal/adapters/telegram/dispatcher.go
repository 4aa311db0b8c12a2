package telegram

import (
	"context"

	"ledgerbot/internal/domain/position"
	"ledgerbot/internal/metrics"
	"ledgerbot/internal/notation"
	"ledgerbot/internal/services/ledger"
	"ledgerbot/pkg/errors"
	"ledgerbot/pkg/logger"
)

// Ledger defines the position operations the dispatcher routes to
type Ledger interface {
	OpenOrIncrease(ctx context.Context, event *notation.TradeEvent) (*position.Position, error)
	Close(ctx context.Context, event *notation.TradeEvent) (*ledger.CloseResult, error)
}

// Dispatcher is the stateless translation layer between parsed trade
// intents and ledger calls, and from ledger results to reply text
type Dispatcher struct {
	parser *notation.Parser
	ledger Ledger
	log    *logger.Logger
}

// NewDispatcher creates a dispatcher
func NewDispatcher(parser *notation.Parser, ledgerService Ledger) *Dispatcher {
	return &Dispatcher{
		parser: parser,
		ledger: ledgerService,
		log:    logger.Get().With("component", "dispatcher"),
	}
}

// Dispatch parses one raw text command, routes it to the ledger, and
// renders the outcome as reply text
func (d *Dispatcher) Dispatch(ctx context.Context, text string) string {
	event, err := d.parser.Parse(text)
	if err != nil {
		metrics.MessagesHandled.WithLabelValues("parse_error").Inc()
		d.log.Debugw("Unparseable message", "error", err)
		return usageMessage
	}
	metrics.MessagesHandled.WithLabelValues("dispatched").Inc()

	switch event.Action {
	case notation.BuyToOpen:
		return d.handleOpen(ctx, event)
	case notation.SellToClose:
		return d.handleClose(ctx, event)
	}
	return usageMessage
}

func (d *Dispatcher) handleOpen(ctx context.Context, event *notation.TradeEvent) string {
	pos, err := d.ledger.OpenOrIncrease(ctx, event)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrInvalidQuantity), errors.Is(err, errors.ErrInvalidInput):
			return renderInvalidEvent(event, err)
		case errors.Is(err, errors.ErrStoreConsistency):
			d.log.Errorw("Ledger consistency error", "trade_number", event.TradeNumber, "error", err)
			return renderConsistencyWarning(event.TradeNumber)
		default:
			d.log.Errorw("Open failed", "trade_number", event.TradeNumber, "error", err)
			return renderWriteFailure(event.TradeNumber)
		}
	}

	// A live position holds at least one contract, so a post-fill count
	// equal to the fill means this was a fresh open
	if pos.Contracts == event.Contracts {
		return renderOpened(pos)
	}
	return renderIncreased(pos, event)
}

func (d *Dispatcher) handleClose(ctx context.Context, event *notation.TradeEvent) string {
	result, err := d.ledger.Close(ctx, event)
	if err != nil {
		switch {
		case errors.Is(err, errors.ErrPositionNotFound):
			return renderNotFound(event.TradeNumber)
		case errors.Is(err, errors.ErrInvalidQuantity):
			return renderInvalidEvent(event, err)
		case errors.Is(err, errors.ErrStoreConsistency):
			d.log.Errorw("Ledger consistency error", "trade_number", event.TradeNumber, "error", err)
			return renderConsistencyWarning(event.TradeNumber)
		default:
			d.log.Errorw("Close failed", "trade_number", event.TradeNumber, "error", err)
			return renderWriteFailure(event.TradeNumber)
		}
	}

	return renderClosed(event, result)
}
