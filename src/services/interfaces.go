package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
)

// ChainService retrieves per-wallet transaction feeds and contract metadata
// from an Etherscan-style block explorer API.
type ChainService interface {
	NormalTransactions(ctx context.Context, wallet string) ([]models.EtherscanTransaction, error)
	InternalTransactions(ctx context.Context, wallet string) ([]models.EtherscanTransaction, error)
	ERC20Transfers(ctx context.Context, wallet string) ([]models.TokenTransfer, error)
	ERC721Transfers(ctx context.Context, wallet string) ([]models.TokenTransfer, error)
	ContractABI(ctx context.Context, contractAddress string) (string, error)
}

// PriceService answers historical fiat spot prices for a token by date.
type PriceService interface {
	TokenPrice(ctx context.Context, token, fiat string, timestamp int64) (decimal.Decimal, error)
}

// EmailService delivers the post-run report summary.
type EmailService interface {
	SendReportSummary(ctx context.Context, report *Report) error
}
