package parsers

import (
	"io"

	"github.com/Roklion/NFT-Extract/src/models"
)

// ExchangeParser parses an exchange's transaction report export into
// normalized exchange transactions.
type ExchangeParser interface {
	Parse(file io.Reader) ([]models.CoinbaseTransaction, error)
}

// TokenTransferParser parses a spreadsheet of token transfers that the chain
// API does not serve (currently ERC-1155).
type TokenTransferParser interface {
	Parse(file io.Reader) ([]models.ERC1155Row, error)
}
