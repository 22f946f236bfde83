package models

import "github.com/shopspring/decimal"

// TransactionType is the closed set of semantic labels the classifier can
// attach to a transaction. The ledger walker dispatches on these values and
// rejects anything outside the set.
type TransactionType string

const (
	// Purchase of ETH on the exchange.
	TxTypeBuy TransactionType = "buy"
	// Transfer between two wallets the holder controls.
	TxTypeTransfer TransactionType = "transfer"
	// Transfer from an own wallet into the exchange's custody.
	TxTypeTransferToCoinbase TransactionType = "transfer_to_coinbase"
	// Exchange-side record of a withdrawal the exchange initiated.
	TxTypeTransferByCoinbase TransactionType = "transfer_by_coinbase"
	// Chain-side record of the same withdrawal arriving on-chain.
	TxTypeTransferFromCoinbase TransactionType = "transfer_from_coinbase"
	// Outbound gift to an address outside the holder's wallets.
	TxTypeGift TransactionType = "gift"
	// Inbound ETH from an unknown external address.
	TxTypeGiftReceived TransactionType = "gift_received"
	// ETH sent into a known bridge contract (Ronin, Polygon).
	TxTypeBridgeOut TransactionType = "bridge_out"
	// ETH spent acquiring an NFT.
	TxTypeBuyNFT TransactionType = "buy_nft"
	// ETH received from an NFT sale.
	TxTypeSellNFT TransactionType = "sell_nft"
	// WETH unwrapped back into ETH.
	TxTypeUnwrapWETH TransactionType = "unwrap_weth"
	// ETH spent through an arbitrary contract call.
	TxTypeContractCall TransactionType = "contract_call"
	// Transaction reverted on-chain; only gas was consumed.
	TxTypeFailed TransactionType = "failed"
	// Known spam/phishing traffic, excluded from the ledger.
	TxTypeIgnored TransactionType = "ignored"
)

// EthLeg describes the ETH movement of a classified transaction.
type EthLeg struct {
	Amount    decimal.Decimal `json:"amount"`
	ValueFiat decimal.Decimal `json:"value_usd"`
	From      string          `json:"from"`
	To        string          `json:"to"`
}

// GasLeg describes the gas paid for a classified transaction.
type GasLeg struct {
	Amount    decimal.Decimal `json:"amount"`
	ValueFiat decimal.Decimal `json:"value_usd"`
}

// ClassifiedTransaction is the normalized, typed record the classifier hands
// to the ledger. The ledger treats it as read-only and requires the stream to
// be sorted by non-decreasing Timestamp.
type ClassifiedTransaction struct {
	Type        TransactionType `json:"type"`
	Timestamp   int64           `json:"timestamp"`
	ETH         *EthLeg         `json:"eth,omitempty"`
	Gas         *GasLeg         `json:"gas,omitempty"`
	Description string          `json:"description"`
	ID          string          `json:"id"`
}

// UnitPriceFiat returns the fiat spot price implied by the ETH leg
// (ValueFiat / Amount), or zero when there is no priced ETH movement.
func (t *ClassifiedTransaction) UnitPriceFiat() decimal.Decimal {
	if t.ETH == nil || t.ETH.Amount.IsZero() {
		return decimal.Zero
	}
	return t.ETH.ValueFiat.Div(t.ETH.Amount)
}

// GasAmount returns the gas quantity, zero when no gas leg is present.
func (t *ClassifiedTransaction) GasAmount() decimal.Decimal {
	if t.Gas == nil {
		return decimal.Zero
	}
	return t.Gas.Amount
}
