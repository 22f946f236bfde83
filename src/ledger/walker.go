package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
)

// LedgerState is the balance snapshot produced after applying one
// transaction. Lots is a value copy of the book at that point; the live book
// stays with the walker, so emitted states are immutable.
type LedgerState struct {
	Timestamp        int64           `json:"timestamp"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	AvgUnitCost      decimal.Decimal `json:"unit_price_usd_avg"`
	Lots             []Lot           `json:"cost_basis"`
}

// LedgerWalker is the stateful reducer over the time-ordered stream of
// classified transactions. It owns the single live LotBook, applies the
// per-type policy for each transaction, and collects balance snapshots and
// tax events in the order they are realized.
type LedgerWalker struct {
	strategy  CostBasisStrategy
	matcher   transferMatcher
	book      *LotBook
	lastSeen  int64
	balances  []LedgerState
	taxEvents []TaxEvent
}

func NewLedgerWalker(strategy CostBasisStrategy) *LedgerWalker {
	return &LedgerWalker{
		strategy: strategy,
		book:     NewLotBook(),
	}
}

// Process walks the transaction stream left to right. On any error the
// balances and tax events accumulated before the failing transaction are
// returned together with the error, so the caller can inspect progress up to
// the failure point.
func (w *LedgerWalker) Process(txns []models.ClassifiedTransaction) ([]LedgerState, []TaxEvent, error) {
	for i := range txns {
		txn := &txns[i]
		if txn.Timestamp < w.lastSeen {
			return w.balances, w.taxEvents, fmt.Errorf("%w: timestamp %d after %d (id %q)",
				ErrOutOfOrderInput, txn.Timestamp, w.lastSeen, txn.ID)
		}
		w.lastSeen = txn.Timestamp

		if err := w.apply(txn); err != nil {
			return w.balances, w.taxEvents, fmt.Errorf("transaction %q at %d: %w", txn.ID, txn.Timestamp, err)
		}
	}
	return w.balances, w.taxEvents, nil
}

// apply dispatches one transaction. Branches that change the book emit a new
// state; branches that queue or ignore leave the previous state untouched.
func (w *LedgerWalker) apply(txn *models.ClassifiedTransaction) error {
	switch txn.Type {
	case models.TxTypeBuy:
		return w.applyAcquisition(txn, true)

	case models.TxTypeGiftReceived:
		return w.applyGiftReceived(txn)

	case models.TxTypeSellNFT, models.TxTypeUnwrapWETH:
		return w.applyAcquisition(txn, false)

	case models.TxTypeTransfer, models.TxTypeTransferToCoinbase:
		return w.applyOwnTransfer(txn)

	case models.TxTypeGift, models.TxTypeBridgeOut:
		return w.applyOutboundGift(txn)

	case models.TxTypeTransferByCoinbase, models.TxTypeTransferFromCoinbase:
		return w.applyExchangeTransfer(txn)

	case models.TxTypeBuyNFT, models.TxTypeContractCall, models.TxTypeFailed:
		return w.applyDisposal(txn)

	case models.TxTypeIgnored:
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnclassifiedTransactionType, txn.Type)
	}
}

// applyAcquisition adds a lot for inbound ETH. Purchases fold the exchange
// fee into the unit cost; NFT sales and unwraps book the spot value as-is.
func (w *LedgerWalker) applyAcquisition(txn *models.ClassifiedTransaction, includeFee bool) error {
	if txn.ETH == nil || !txn.ETH.Amount.IsPositive() {
		return nil
	}
	cost := txn.ETH.ValueFiat
	if includeFee && txn.Gas != nil {
		cost = cost.Add(txn.Gas.ValueFiat)
	}
	if err := w.book.AddLot(txn.ETH.Amount, cost.Div(txn.ETH.Amount)); err != nil {
		return err
	}
	return w.emit(txn.Timestamp)
}

// applyGiftReceived books the inbound amount as a zero-relationship
// acquisition at spot; any fee the holder paid is realized as a disposal and
// its proceeds reinvested into the remaining basis.
func (w *LedgerWalker) applyGiftReceived(txn *models.ClassifiedTransaction) error {
	added := false
	if txn.ETH != nil && txn.ETH.Amount.IsPositive() {
		if err := w.book.AddLot(txn.ETH.Amount, txn.UnitPriceFiat()); err != nil {
			return err
		}
		added = true
	}

	fee := txn.GasAmount()
	if fee.IsPositive() {
		consumed, err := w.book.Reduce(fee, w.strategy)
		if err != nil {
			return err
		}
		event := CalculateTaxEvent(consumed, w.feeUnitPrice(txn))
		w.taxEvents = append(w.taxEvents, event)
		if err := w.book.ApplyProceedsToBasis(event.ProceedsFiat, w.strategy); err != nil {
			return err
		}
	} else if !added {
		return nil
	}
	return w.emit(txn.Timestamp)
}

// applyOwnTransfer moves ETH between the holder's own wallets; only the gas
// leaves the position, and a zero fee is a no-op.
func (w *LedgerWalker) applyOwnTransfer(txn *models.ClassifiedTransaction) error {
	fee := txn.GasAmount()
	if !fee.IsPositive() {
		return nil
	}
	if _, err := w.book.Reduce(fee, w.strategy); err != nil {
		return err
	}
	return w.emit(txn.Timestamp)
}

// applyOutboundGift removes the gifted principal without a tax event and
// realizes the fee portion as one.
func (w *LedgerWalker) applyOutboundGift(txn *models.ClassifiedTransaction) error {
	changed := false
	if txn.ETH != nil && txn.ETH.Amount.IsPositive() {
		if _, err := w.book.Reduce(txn.ETH.Amount, w.strategy); err != nil {
			return err
		}
		changed = true
	}

	fee := txn.GasAmount()
	if fee.IsPositive() {
		consumed, err := w.book.Reduce(fee, w.strategy)
		if err != nil {
			return err
		}
		w.taxEvents = append(w.taxEvents, CalculateTaxEvent(consumed, w.feeUnitPrice(txn)))
		changed = true
	}

	if !changed {
		return nil
	}
	return w.emit(txn.Timestamp)
}

// applyExchangeTransfer threads one half of an exchange withdrawal through
// the pair matcher. The first half queues silently; the second half resolves
// the implied fee. A positive quantity difference (received more than the
// exchange reported sending) books a zero-cost lot, matching how an inbound
// surplus is treated.
func (w *LedgerWalker) applyExchangeTransfer(txn *models.ClassifiedTransaction) error {
	pair, err := w.matcher.submit(txn)
	if err != nil {
		return err
	}
	if pair == nil {
		return nil
	}

	diff := pair.received.ETH.Amount.Sub(pair.sent.ETH.Amount)
	switch {
	case diff.IsPositive():
		if err := w.book.AddLot(diff, decimal.Zero); err != nil {
			return err
		}
	case diff.IsNegative():
		impliedFee := diff.Neg()
		consumed, err := w.book.Reduce(impliedFee, w.strategy)
		if err != nil {
			return err
		}
		event := CalculateTaxEvent(consumed, pair.later().UnitPriceFiat())
		w.taxEvents = append(w.taxEvents, event)
		if err := w.book.ApplyProceedsToBasis(event.ProceedsFiat, w.strategy); err != nil {
			return err
		}
	}

	// The state reflects when the transfer was initiated, not when the
	// second record arrived.
	return w.emit(pair.earlierTimestamp())
}

// applyDisposal spends principal plus fee for goods or services (NFT buys,
// contract calls, failed transactions). The whole consumption is one tax
// event; only the fee portion's proceeds are reinvested into the remaining
// basis, so a fee-less disposal leaves the surviving lots' costs untouched.
func (w *LedgerWalker) applyDisposal(txn *models.ClassifiedTransaction) error {
	fee := txn.GasAmount()
	total := fee
	if txn.ETH != nil {
		total = total.Add(txn.ETH.Amount)
	}
	if !total.IsPositive() {
		return nil
	}

	consumed, err := w.book.Reduce(total, w.strategy)
	if err != nil {
		return err
	}
	price := txn.UnitPriceFiat()
	if price.IsZero() {
		price = w.feeUnitPrice(txn)
	}
	w.taxEvents = append(w.taxEvents, CalculateTaxEvent(consumed, price))

	if fee.IsPositive() {
		feeProceeds := fee.Mul(w.feeUnitPrice(txn))
		if err := w.book.ApplyProceedsToBasis(feeProceeds, w.strategy); err != nil {
			return err
		}
	}
	return w.emit(txn.Timestamp)
}

// feeUnitPrice derives the fiat spot price for the gas leg, falling back to
// the ETH leg's implied price when gas carries no quantity of its own.
func (w *LedgerWalker) feeUnitPrice(txn *models.ClassifiedTransaction) decimal.Decimal {
	if txn.Gas != nil && txn.Gas.Amount.IsPositive() {
		return txn.Gas.ValueFiat.Div(txn.Gas.Amount)
	}
	return txn.UnitPriceFiat()
}

func (w *LedgerWalker) emit(timestamp int64) error {
	avg, err := w.book.AverageUnitCost()
	if err != nil {
		return err
	}
	w.balances = append(w.balances, LedgerState{
		Timestamp:        timestamp,
		RemainingBalance: w.book.Balance(),
		AvgUnitCost:      avg,
		Lots:             w.book.Lots(),
	})
	return nil
}
