package ledger

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustAdd(t *testing.T, b *LotBook, quantity, unitCost string) {
	t.Helper()
	if err := b.AddLot(d(quantity), d(unitCost)); err != nil {
		t.Fatalf("AddLot(%s, %s): %v", quantity, unitCost, err)
	}
}

func TestAddLotRejectsInvalidInput(t *testing.T) {
	b := NewLotBook()
	if err := b.AddLot(d("0"), d("100")); err == nil {
		t.Error("expected error for zero quantity")
	}
	if err := b.AddLot(d("-1"), d("100")); err == nil {
		t.Error("expected error for negative quantity")
	}
	if err := b.AddLot(d("1"), d("-100")); err == nil {
		t.Error("expected error for negative unit cost")
	}
	if b.Len() != 0 {
		t.Errorf("book should be empty after rejected adds, has %d lots", b.Len())
	}
}

func TestReduceHIFOOrdering(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "10", "100")
	mustAdd(t, b, "5", "300")
	mustAdd(t, b, "20", "50")

	consumed, err := b.Reduce(d("8"), HIFO{})
	if err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	// The $300 lot drains fully first, then 3 come from the $100 lot.
	if len(consumed) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(consumed))
	}
	if !consumed[0].Quantity.Equal(d("5")) || !consumed[0].UnitCostFiat.Equal(d("300")) {
		t.Errorf("first fragment = {%s, %s}, want {5, 300}",
			consumed[0].Quantity, consumed[0].UnitCostFiat)
	}
	if !consumed[1].Quantity.Equal(d("3")) || !consumed[1].UnitCostFiat.Equal(d("100")) {
		t.Errorf("second fragment = {%s, %s}, want {3, 100}",
			consumed[1].Quantity, consumed[1].UnitCostFiat)
	}

	lots := b.Lots()
	if len(lots) != 2 {
		t.Fatalf("expected 2 lots after reduce, got %d", len(lots))
	}
	if !lots[0].Quantity.Equal(d("7")) || !lots[0].UnitCostFiat.Equal(d("100")) {
		t.Errorf("remaining lot 0 = {%s, %s}, want {7, 100}", lots[0].Quantity, lots[0].UnitCostFiat)
	}
	if !lots[1].Quantity.Equal(d("20")) || !lots[1].UnitCostFiat.Equal(d("50")) {
		t.Errorf("remaining lot 1 = {%s, %s}, want {20, 50}", lots[1].Quantity, lots[1].UnitCostFiat)
	}
}

func TestReduceInsufficientBasisOnEmptyBook(t *testing.T) {
	b := NewLotBook()
	if _, err := b.Reduce(d("1.0"), HIFO{}); !errors.Is(err, ErrInsufficientBasis) {
		t.Fatalf("expected ErrInsufficientBasis, got %v", err)
	}
}

func TestReduceIsAllOrNothing(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "2", "100")
	mustAdd(t, b, "3", "200")

	if _, err := b.Reduce(d("8"), HIFO{}); !errors.Is(err, ErrInsufficientBasis) {
		t.Fatalf("expected ErrInsufficientBasis, got %v", err)
	}

	// The failed reduce must not leave a partially drained book.
	lots := b.Lots()
	if len(lots) != 2 {
		t.Fatalf("expected 2 untouched lots, got %d", len(lots))
	}
	if !lots[0].Quantity.Equal(d("2")) || !lots[1].Quantity.Equal(d("3")) {
		t.Errorf("lots mutated on failure: {%s}, {%s}", lots[0].Quantity, lots[1].Quantity)
	}
}

func TestReduceLeavesNoZeroOrNegativeLots(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "1", "500")
	mustAdd(t, b, "2", "400")
	mustAdd(t, b, "3", "300")

	if _, err := b.Reduce(d("3"), HIFO{}); err != nil {
		t.Fatalf("Reduce: %v", err)
	}

	for i, lot := range b.Lots() {
		if !lot.Quantity.IsPositive() {
			t.Errorf("lot %d has non-positive quantity %s", i, lot.Quantity)
		}
	}
	if !b.Balance().Equal(d("3")) {
		t.Errorf("balance = %s, want 3", b.Balance())
	}
}

func TestBalanceMatchesLotSum(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "1.25", "1000")
	mustAdd(t, b, "0.75", "2000")

	if !b.Balance().Equal(d("2")) {
		t.Errorf("balance = %s, want 2", b.Balance())
	}

	sum := decimal.Zero
	for _, lot := range b.Lots() {
		sum = sum.Add(lot.Quantity)
	}
	if !b.Balance().Equal(sum) {
		t.Errorf("balance %s != lot sum %s", b.Balance(), sum)
	}
}

func TestApplyProceedsToBasis(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "2", "100")
	mustAdd(t, b, "4", "50")

	// HIFO orders the $100 lot first; 10 of proceeds spread over 2 units.
	if err := b.ApplyProceedsToBasis(d("10"), HIFO{}); err != nil {
		t.Fatalf("ApplyProceedsToBasis: %v", err)
	}

	lots := b.Lots()
	if !lots[0].UnitCostFiat.Equal(d("105")) {
		t.Errorf("adjusted unit cost = %s, want 105", lots[0].UnitCostFiat)
	}
	if !lots[1].UnitCostFiat.Equal(d("50")) {
		t.Errorf("untouched lot cost = %s, want 50", lots[1].UnitCostFiat)
	}
}

func TestApplyProceedsToBasisEmptyBook(t *testing.T) {
	b := NewLotBook()
	if err := b.ApplyProceedsToBasis(d("10"), HIFO{}); !errors.Is(err, ErrEmptyBasis) {
		t.Fatalf("expected ErrEmptyBasis, got %v", err)
	}
}

func TestApplyProceedsToBasisZeroIsNoOp(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "2", "100")
	if err := b.ApplyProceedsToBasis(d("0"), HIFO{}); err != nil {
		t.Fatalf("ApplyProceedsToBasis(0): %v", err)
	}
	if !b.Lots()[0].UnitCostFiat.Equal(d("100")) {
		t.Errorf("zero proceeds changed unit cost to %s", b.Lots()[0].UnitCostFiat)
	}
}

func TestAverageUnitCost(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "1", "1000")
	mustAdd(t, b, "3", "2000")

	avg, err := b.AverageUnitCost()
	if err != nil {
		t.Fatalf("AverageUnitCost: %v", err)
	}
	if !avg.Equal(d("1750")) {
		t.Errorf("avg = %s, want 1750", avg)
	}
}

func TestAverageUnitCostEmptyBook(t *testing.T) {
	b := NewLotBook()
	if _, err := b.AverageUnitCost(); !errors.Is(err, ErrEmptyBasis) {
		t.Fatalf("expected ErrEmptyBasis, got %v", err)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := NewLotBook()
	mustAdd(t, b, "5", "100")

	clone := b.Clone()
	if _, err := clone.Reduce(d("4"), HIFO{}); err != nil {
		t.Fatalf("Reduce on clone: %v", err)
	}

	if !b.Balance().Equal(d("5")) {
		t.Errorf("reducing a clone mutated the original: balance %s", b.Balance())
	}
	if !clone.Balance().Equal(d("1")) {
		t.Errorf("clone balance = %s, want 1", clone.Balance())
	}
}
