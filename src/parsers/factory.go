package parsers

import (
	"fmt"

	"github.com/Roklion/NFT-Extract/src/parsers/coinbase"
	"github.com/Roklion/NFT-Extract/src/parsers/erc1155"
)

// GetExchangeParser returns the parser for an exchange export source.
func GetExchangeParser(source string) (ExchangeParser, error) {
	switch source {
	case "coinbase":
		return coinbase.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for source: %s", source)
	}
}

// GetTokenTransferParser returns the parser for a token transfer spreadsheet
// format.
func GetTokenTransferParser(format string) (TokenTransferParser, error) {
	switch format {
	case "erc1155":
		return erc1155.NewParser(), nil
	default:
		return nil, fmt.Errorf("no parser available for format: %s", format)
	}
}
