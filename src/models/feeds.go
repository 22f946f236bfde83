package models

import "github.com/shopspring/decimal"

// EtherscanTransaction is a single record from the Etherscan account API.
// The API reports every numeric field as a string; conversion happens in the
// enrichment stage.
type EtherscanTransaction struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	GasPrice        string `json:"gasPrice"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError"`
	Input           string `json:"input"`
	ContractAddress string `json:"contractAddress"`
	FunctionName    string `json:"functionName"`
}

// TokenTransfer is an ERC-20 or ERC-721 transfer event record.
type TokenTransfer struct {
	Hash            string `json:"hash"`
	TimeStamp       string `json:"timeStamp"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	TokenID         string `json:"tokenID"`
	TokenName       string `json:"tokenName"`
	TokenSymbol     string `json:"tokenSymbol"`
	TokenDecimal    string `json:"tokenDecimal"`
	ContractAddress string `json:"contractAddress"`
}

// ERC1155Row is one row of the ERC-1155 spreadsheet export; Etherscan has no
// account API for these so they arrive as a per-wallet CSV.
type ERC1155Row struct {
	TxHash          string
	ContractAddress string
	TokenID         string
	TokenSymbol     string
	TokenName       string
	From            string
	To              string
}

// CoinbaseTransaction is one row of the exchange's transaction report export
// with its timestamp already normalized to unix seconds.
type CoinbaseTransaction struct {
	Timestamp          int64
	TransactionType    string
	Asset              string
	QuantityTransacted decimal.Decimal
	SpotPriceFiat      decimal.Decimal
	Fees               decimal.Decimal
	Notes              string
}

// TokenMovement is a normalized token transfer inside a transaction group.
type TokenMovement struct {
	Value    decimal.Decimal `json:"value"`
	Contract string          `json:"contract"`
	Name     string          `json:"name"`
	Symbol   string          `json:"symbol"`
	TokenID  string          `json:"id,omitempty"`
	From     string          `json:"from"`
	To       string          `json:"to"`
}

// TransactionGroup gathers every feed record that shares one normal
// transaction's hash.
type TransactionGroup struct {
	TxHash   string                 `json:"txn_hash"`
	Normal   EtherscanTransaction   `json:"txn_normal"`
	Internal []EtherscanTransaction `json:"txn_internal"`
	ERC20    []TokenTransfer        `json:"txn_erc20"`
	ERC721   []TokenTransfer        `json:"txn_erc721"`
	ERC1155  []ERC1155Row           `json:"txn_erc1155"`
}

// EnrichedTransaction is a TransactionGroup with its ETH and gas legs
// converted out of wei and valued in fiat, and its token transfers summarized
// per symbol.
type EnrichedTransaction struct {
	TransactionGroup
	Timestamp int64                      `json:"timestamp"`
	ETH       EthLeg                     `json:"eth"`
	Gas       GasLeg                     `json:"gas"`
	Tokens    map[string][]TokenMovement `json:"tokens,omitempty"`
}
