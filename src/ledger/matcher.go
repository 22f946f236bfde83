package ledger

import (
	"fmt"

	"github.com/Roklion/NFT-Extract/src/models"
)

// pairTimestampTolerance is the maximum spread, in seconds, between the
// exchange-side and chain-side records of one withdrawal.
const pairTimestampTolerance = 100

// matchedPair is a validated exchange withdrawal: the exchange's "sent"
// record and the on-chain "received" record for the same transfer.
type matchedPair struct {
	sent     *models.ClassifiedTransaction
	received *models.ClassifiedTransaction
}

// earlierTimestamp is when the transfer was initiated; emitted states use it.
func (p *matchedPair) earlierTimestamp() int64 {
	if p.sent.Timestamp < p.received.Timestamp {
		return p.sent.Timestamp
	}
	return p.received.Timestamp
}

// later returns the record with the later timestamp; the implied fee is
// priced at its spot value.
func (p *matchedPair) later() *models.ClassifiedTransaction {
	if p.sent.Timestamp > p.received.Timestamp {
		return p.sent
	}
	return p.received
}

// transferMatcher pairs the two independently reported halves of an
// exchange-initiated transfer. It holds at most one pending record; the legal
// input pattern delivers pairs back to back, so a second same-side record
// before pairing is malformed input and fails fast.
type transferMatcher struct {
	pending *models.ClassifiedTransaction
}

// submit hands the matcher one half of a pair. It returns nil with no error
// when the record was queued awaiting its counterpart.
func (m *transferMatcher) submit(txn *models.ClassifiedTransaction) (*matchedPair, error) {
	if m.pending == nil {
		m.pending = txn
		return nil, nil
	}

	queued := m.pending
	m.pending = nil

	if queued.Type == txn.Type {
		return nil, fmt.Errorf("%w: two %s records with no counterpart between them",
			ErrUnmatchedTransferPair, txn.Type)
	}

	pair := &matchedPair{sent: queued, received: txn}
	if txn.Type == models.TxTypeTransferByCoinbase {
		pair = &matchedPair{sent: txn, received: queued}
	}

	if absInt64(pair.sent.Timestamp-pair.received.Timestamp) > pairTimestampTolerance {
		return nil, fmt.Errorf("%w: records %ds apart exceed %ds tolerance",
			ErrUnmatchedTransferPair,
			absInt64(pair.sent.Timestamp-pair.received.Timestamp), pairTimestampTolerance)
	}
	if pair.sent.ETH == nil || pair.received.ETH == nil {
		return nil, fmt.Errorf("%w: transfer record without an ETH movement", ErrUnmatchedTransferPair)
	}
	if pair.sent.ETH.To != pair.received.ETH.To {
		return nil, fmt.Errorf("%w: destination %s does not match %s",
			ErrUnmatchedTransferPair, pair.sent.ETH.To, pair.received.ETH.To)
	}

	return pair, nil
}

func absInt64(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
