package ledger

import "github.com/shopspring/decimal"

// TaxEvent records a realized disposal: the acquisition cost attributed to
// the disposed quantity and the fiat value received (or imputed) for it.
// Events are append-only and never mutated after creation.
type TaxEvent struct {
	CostBasisFiat decimal.Decimal `json:"cost_basis"`
	ProceedsFiat  decimal.Decimal `json:"proceeds"`
}

// Gain returns the realized gain or loss of the event.
func (e TaxEvent) Gain() decimal.Decimal {
	return e.ProceedsFiat.Sub(e.CostBasisFiat)
}

// CalculateTaxEvent computes the realized cost basis and proceeds for a set
// of consumed lot fragments disposed at a single unit price. Pure function.
func CalculateTaxEvent(consumed []ConsumedLot, disposalUnitPriceFiat decimal.Decimal) TaxEvent {
	costBasis := decimal.Zero
	proceeds := decimal.Zero
	for _, fragment := range consumed {
		costBasis = costBasis.Add(fragment.Quantity.Mul(fragment.UnitCostFiat))
		proceeds = proceeds.Add(fragment.Quantity.Mul(disposalUnitPriceFiat))
	}
	return TaxEvent{CostBasisFiat: costBasis, ProceedsFiat: proceeds}
}
