package ledger

import "errors"

// Ledger errors are data-integrity failures, not transient faults. None of
// them are retried here; the caller gets the partial results accumulated up
// to the failure point and the error, and fixes the source data upstream.
var (
	// ErrInsufficientBasis means a disposal exceeds the tracked holdings,
	// i.e. an acquisition record is missing upstream.
	ErrInsufficientBasis = errors.New("insufficient basis to cover disposal")

	// ErrEmptyBasis means an operation needed at least one open lot.
	ErrEmptyBasis = errors.New("no open lots remain")

	// ErrUnmatchedTransferPair means the two halves of an exchange transfer
	// could not be paired.
	ErrUnmatchedTransferPair = errors.New("unmatched exchange transfer pair")

	// ErrUnclassifiedTransactionType means the classifier produced a type
	// this ledger does not know how to apply.
	ErrUnclassifiedTransactionType = errors.New("unclassified transaction type")

	// ErrOutOfOrderInput means the transaction stream violated timestamp
	// monotonicity.
	ErrOutOfOrderInput = errors.New("transaction stream out of order")
)
