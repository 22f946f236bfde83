package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Lot is a slice of the base asset acquired at a specific unit price. A lot's
// quantity only ever decreases after creation; once it reaches zero the lot
// is dropped from the book.
type Lot struct {
	Quantity     decimal.Decimal `json:"amount"`
	UnitCostFiat decimal.Decimal `json:"unit_price_usd"`
}

// ConsumedLot records one fragment taken from a lot during a reduction.
type ConsumedLot struct {
	Quantity     decimal.Decimal
	UnitCostFiat decimal.Decimal
}

// LotBook holds the open purchase lots of the base asset in acquisition
// order. It is owned by exactly one ledger state chain at a time; callers
// never share a live book between states.
type LotBook struct {
	lots []*Lot
}

func NewLotBook() *LotBook {
	return &LotBook{}
}

// AddLot appends a new lot to the book. No reordering happens at add time;
// consumption order is the strategy's concern.
func (b *LotBook) AddLot(quantity, unitCostFiat decimal.Decimal) error {
	if !quantity.IsPositive() {
		return fmt.Errorf("lot quantity must be positive, got %s", quantity)
	}
	if unitCostFiat.IsNegative() {
		return fmt.Errorf("lot unit cost must not be negative, got %s", unitCostFiat)
	}
	b.lots = append(b.lots, &Lot{Quantity: quantity, UnitCostFiat: unitCostFiat})
	return nil
}

// Reduce consumes targetQuantity from the book in the order given by
// strategy, returning the consumed fragments in visit order. The operation is
// all-or-nothing: when the book cannot cover the target it fails with
// ErrInsufficientBasis and leaves every lot untouched.
func (b *LotBook) Reduce(targetQuantity decimal.Decimal, strategy CostBasisStrategy) ([]ConsumedLot, error) {
	if !targetQuantity.IsPositive() {
		return nil, fmt.Errorf("reduce target must be positive, got %s", targetQuantity)
	}
	if targetQuantity.GreaterThan(b.Balance()) {
		return nil, fmt.Errorf("%w: need %s, have %s",
			ErrInsufficientBasis, targetQuantity, b.Balance())
	}

	remaining := targetQuantity
	var consumed []ConsumedLot
	for _, lot := range strategy.Order(b.lots) {
		if !remaining.IsPositive() {
			break
		}
		take := decimal.Min(remaining, lot.Quantity)
		consumed = append(consumed, ConsumedLot{Quantity: take, UnitCostFiat: lot.UnitCostFiat})
		lot.Quantity = lot.Quantity.Sub(take)
		remaining = remaining.Sub(take)
	}
	b.dropEmptyLots()
	return consumed, nil
}

// ApplyProceedsToBasis folds proceedsFiat into the acquisition cost of the
// single lot the strategy orders first, modelling proceeds reinvested into
// the remaining position. Fails with ErrEmptyBasis when no lots remain.
func (b *LotBook) ApplyProceedsToBasis(proceedsFiat decimal.Decimal, strategy CostBasisStrategy) error {
	if proceedsFiat.IsNegative() {
		return fmt.Errorf("proceeds must not be negative, got %s", proceedsFiat)
	}
	b.dropEmptyLots()
	if len(b.lots) == 0 {
		return fmt.Errorf("%w: cannot apply proceeds of %s", ErrEmptyBasis, proceedsFiat)
	}
	if proceedsFiat.IsZero() {
		return nil
	}
	lot := strategy.Order(b.lots)[0]
	lot.UnitCostFiat = lot.UnitCostFiat.Add(proceedsFiat.Div(lot.Quantity))
	return nil
}

// Balance returns the total quantity across all open lots.
func (b *LotBook) Balance() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range b.lots {
		total = total.Add(lot.Quantity)
	}
	return total
}

// AverageUnitCost returns the quantity-weighted average acquisition cost.
// An empty book has no average; that is ErrEmptyBasis, never a NaN.
func (b *LotBook) AverageUnitCost() (decimal.Decimal, error) {
	balance := b.Balance()
	if balance.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: average unit cost undefined", ErrEmptyBasis)
	}
	weighted := decimal.Zero
	for _, lot := range b.lots {
		weighted = weighted.Add(lot.Quantity.Mul(lot.UnitCostFiat))
	}
	return weighted.Div(balance), nil
}

// Len returns the number of open lots.
func (b *LotBook) Len() int {
	return len(b.lots)
}

// Lots returns a value copy of the open lots in acquisition order.
func (b *LotBook) Lots() []Lot {
	out := make([]Lot, len(b.lots))
	for i, lot := range b.lots {
		out[i] = *lot
	}
	return out
}

// Clone returns an independent copy of the book.
func (b *LotBook) Clone() *LotBook {
	clone := &LotBook{lots: make([]*Lot, len(b.lots))}
	for i, lot := range b.lots {
		copied := *lot
		clone.lots[i] = &copied
	}
	return clone
}

func (b *LotBook) dropEmptyLots() {
	kept := b.lots[:0]
	for _, lot := range b.lots {
		if lot.Quantity.IsPositive() {
			kept = append(kept, lot)
		}
	}
	b.lots = kept
}
