package position

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// WeightedBasis returns the quantity-weighted average premium per contract
// after adding a fill to an existing lot
func WeightedBasis(oldBasis decimal.Decimal, oldContracts int, fillPrice decimal.Decimal, fillContracts int) decimal.Decimal {
	oldQty := decimal.NewFromInt(int64(oldContracts))
	fillQty := decimal.NewFromInt(int64(fillContracts))
	totalQty := oldQty.Add(fillQty)
	if totalQty.IsZero() {
		return decimal.Zero
	}
	return oldBasis.Mul(oldQty).Add(fillPrice.Mul(fillQty)).Div(totalQty)
}

// RealizedGain returns the absolute and percentage gain locked in by
// closing contracts at closePrice against basis. The percentage is zero
// when the cost denominator is zero.
func RealizedGain(basis, closePrice decimal.Decimal, contracts int) (abs, pct decimal.Decimal) {
	qty := decimal.NewFromInt(int64(contracts))
	abs = closePrice.Sub(basis).Mul(qty).Mul(hundred)

	cost := basis.Mul(qty).Mul(hundred)
	if cost.IsZero() {
		return abs, decimal.Zero
	}
	pct = abs.Div(cost).Mul(hundred)
	return abs, pct
}

// MarkFromPrice computes mark-to-market fields for the remaining contracts
// of a position given a reference price per contract
func MarkFromPrice(basis, price decimal.Decimal, contracts int) Mark {
	qty := decimal.NewFromInt(int64(contracts))
	notional := qty.Mul(hundred)

	value := price.Mul(notional)
	abs := price.Sub(basis).Mul(notional)

	pct := decimal.Zero
	cost := basis.Mul(notional)
	if !cost.IsZero() {
		pct = abs.Div(cost).Mul(hundred)
	}

	return Mark{
		MarketValue:       value,
		UnrealizedGainPct: pct,
		UnrealizedGainAbs: abs,
	}
}
