package ledger

import (
	"errors"
	"testing"

	"github.com/Roklion/NFT-Extract/src/models"
)

func TestMatcherPairsWithinTolerance(t *testing.T) {
	sent := pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw")
	received := pairTxn(models.TxTypeTransferFromCoinbase, 105, "0.99", "1980", "0xw")

	var m transferMatcher
	pair, err := m.submit(&sent)
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}
	if pair != nil {
		t.Fatal("first record must queue, not pair")
	}

	pair, err = m.submit(&received)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if pair == nil {
		t.Fatal("second record must complete the pair")
	}

	impliedFee := pair.sent.ETH.Amount.Sub(pair.received.ETH.Amount)
	if !impliedFee.Equal(d("0.01")) {
		t.Errorf("implied fee = %s, want 0.01", impliedFee)
	}
	if pair.earlierTimestamp() != 100 {
		t.Errorf("earlier timestamp = %d, want 100", pair.earlierTimestamp())
	}
	if pair.later().Timestamp != 105 {
		t.Errorf("later record timestamp = %d, want 105", pair.later().Timestamp)
	}
}

func TestMatcherOrderDoesNotMatter(t *testing.T) {
	sent := pairTxn(models.TxTypeTransferByCoinbase, 105, "1.0", "2000", "0xw")
	received := pairTxn(models.TxTypeTransferFromCoinbase, 100, "0.99", "1980", "0xw")

	// Chain-side record first.
	var m transferMatcher
	if _, err := m.submit(&received); err != nil {
		t.Fatalf("first submit: %v", err)
	}
	pair, err := m.submit(&sent)
	if err != nil {
		t.Fatalf("second submit: %v", err)
	}
	if pair.sent.Timestamp != 105 || pair.received.Timestamp != 100 {
		t.Error("pair sides not assigned by record type")
	}
}

func TestMatcherRejectsTimestampSpread(t *testing.T) {
	sent := pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw")
	received := pairTxn(models.TxTypeTransferFromCoinbase, 250, "0.99", "1980", "0xw")

	var m transferMatcher
	m.submit(&sent)
	if _, err := m.submit(&received); !errors.Is(err, ErrUnmatchedTransferPair) {
		t.Fatalf("150s spread: expected ErrUnmatchedTransferPair, got %v", err)
	}
}

func TestMatcherRejectsAddressMismatch(t *testing.T) {
	sent := pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw")
	received := pairTxn(models.TxTypeTransferFromCoinbase, 105, "0.99", "1980", "0xother")

	var m transferMatcher
	m.submit(&sent)
	if _, err := m.submit(&received); !errors.Is(err, ErrUnmatchedTransferPair) {
		t.Fatalf("expected ErrUnmatchedTransferPair, got %v", err)
	}
}

func TestMatcherRejectsSecondSameSideRecord(t *testing.T) {
	first := pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw")
	second := pairTxn(models.TxTypeTransferByCoinbase, 105, "2.0", "4000", "0xw")

	var m transferMatcher
	m.submit(&first)
	if _, err := m.submit(&second); !errors.Is(err, ErrUnmatchedTransferPair) {
		t.Fatalf("expected ErrUnmatchedTransferPair, got %v", err)
	}
}

func TestWalkerExchangePairStateUsesEarlierTimestamp(t *testing.T) {
	txns := []models.ClassifiedTransaction{
		buyTxn(50, "2.0", "4000", "0"),
		pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw"),
		pairTxn(models.TxTypeTransferFromCoinbase, 105, "0.99", "1980", "0xw"),
	}

	balances, events, err := NewLedgerWalker(HIFO{}).Process(txns)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}

	if len(balances) != 2 {
		t.Fatalf("expected 2 states (queued half emits none), got %d", len(balances))
	}
	if balances[1].Timestamp != 100 {
		t.Errorf("pair state timestamp = %d, want the earlier 100", balances[1].Timestamp)
	}
	if !balances[1].RemainingBalance.Equal(d("1.99")) {
		t.Errorf("balance = %s, want 1.99", balances[1].RemainingBalance)
	}

	if len(events) != 1 {
		t.Fatalf("expected 1 implied-fee event, got %d", len(events))
	}
	// 0.01 fee from the $2000 lot priced at the received record's $2000 spot.
	if !events[0].CostBasisFiat.Equal(d("20")) || !events[0].ProceedsFiat.Equal(d("20")) {
		t.Errorf("event = %s/%s, want 20/20", events[0].CostBasisFiat, events[0].ProceedsFiat)
	}
}

func TestWalkerExchangePairSurplusBooksZeroCostLot(t *testing.T) {
	txns := []models.ClassifiedTransaction{
		pairTxn(models.TxTypeTransferByCoinbase, 100, "1.0", "2000", "0xw"),
		pairTxn(models.TxTypeTransferFromCoinbase, 105, "1.1", "2200", "0xw"),
	}

	balances, events, err := NewLedgerWalker(HIFO{}).Process(txns)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("surplus must not realize a tax event, got %d", len(events))
	}
	final := balances[len(balances)-1]
	if !final.RemainingBalance.Equal(d("0.1")) {
		t.Errorf("balance = %s, want 0.1 surplus", final.RemainingBalance)
	}
	if !final.Lots[0].UnitCostFiat.IsZero() {
		t.Errorf("surplus lot cost = %s, want 0", final.Lots[0].UnitCostFiat)
	}
}
