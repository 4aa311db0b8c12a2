package telegram

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"ledgerbot/internal/domain/position"
	"ledgerbot/internal/notation"
	"ledgerbot/internal/services/ledger"
)

const usageMessage = "Invalid format. Use: Trade-<id>#BTO/STC TICKER MM/DD STRIKE[C/P]@PRICE(N contracts) [notes]"

func renderOpened(pos *position.Position) string {
	return fmt.Sprintf("Trade #%d recorded: %s @ %s (%d contracts)",
		pos.TradeNumber, pos.Key.String(), dollars(pos.AvgCostBasis), pos.Contracts)
}

func renderIncreased(pos *position.Position, event *notation.TradeEvent) string {
	return fmt.Sprintf("Trade #%d increased by %d contracts: %d total @ avg %s",
		pos.TradeNumber, event.Contracts, pos.Contracts, dollars(pos.AvgCostBasis))
}

func renderClosed(event *notation.TradeEvent, result *ledger.CloseResult) string {
	if result.FullyClosed {
		return fmt.Sprintf("Trade #%d closed: realized %s (%s)",
			event.TradeNumber, dollars(result.RealizedGainAbs), percent(result.RealizedGainPct))
	}
	return fmt.Sprintf("Trade #%d partially closed: %d contracts remain, realized %s (%s)",
		event.TradeNumber, result.Remaining, dollars(result.RealizedGainAbs), percent(result.RealizedGainPct))
}

func renderNotFound(tradeNumber int) string {
	return fmt.Sprintf("Warning: no open position found for Trade #%d, nothing recorded", tradeNumber)
}

func renderInvalidEvent(event *notation.TradeEvent, err error) string {
	return fmt.Sprintf("Warning: Trade #%d rejected: %v", event.TradeNumber, err)
}

func renderConsistencyWarning(tradeNumber int) string {
	return fmt.Sprintf("Warning: ledger is inconsistent for Trade #%d, manual review needed", tradeNumber)
}

func renderWriteFailure(tradeNumber int) string {
	return fmt.Sprintf("Failed to record Trade #%d, the ledger store did not accept the write", tradeNumber)
}

func dollars(d decimal.Decimal) string {
	f, _ := d.Round(2).Float64()
	if f < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -f)
	}
	return "$" + humanize.FormatFloat("#,###.##", f)
}

func percent(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2) + "%"
}
