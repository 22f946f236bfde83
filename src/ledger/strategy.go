package ledger

import "sort"

// CostBasisStrategy decides the order in which open lots are consumed. Order
// returns the same lot pointers in consumption order; it never copies or
// mutates the lots.
type CostBasisStrategy interface {
	Name() string
	Order(lots []*Lot) []*Lot
}

// HIFO consumes the highest-unit-cost lots first, minimizing near-term
// realized gain. Ties keep acquisition order (stable sort) so reductions are
// deterministic.
type HIFO struct{}

func (HIFO) Name() string { return "HIFO" }

func (HIFO) Order(lots []*Lot) []*Lot {
	ordered := make([]*Lot, len(lots))
	copy(ordered, lots)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].UnitCostFiat.GreaterThan(ordered[j].UnitCostFiat)
	})
	return ordered
}

// FIFO consumes lots in acquisition order.
type FIFO struct{}

func (FIFO) Name() string { return "FIFO" }

func (FIFO) Order(lots []*Lot) []*Lot {
	ordered := make([]*Lot, len(lots))
	copy(ordered, lots)
	return ordered
}

// LIFO consumes the most recently acquired lots first.
type LIFO struct{}

func (LIFO) Name() string { return "LIFO" }

func (LIFO) Order(lots []*Lot) []*Lot {
	ordered := make([]*Lot, len(lots))
	for i, lot := range lots {
		ordered[len(lots)-1-i] = lot
	}
	return ordered
}

// StrategyByName maps a configured cost method name to its implementation,
// defaulting to HIFO.
func StrategyByName(name string) CostBasisStrategy {
	switch name {
	case "FIFO", "fifo":
		return FIFO{}
	case "LIFO", "lifo":
		return LIFO{}
	default:
		return HIFO{}
	}
}
