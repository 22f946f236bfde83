package processors

import (
	"context"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
	"github.com/Roklion/NFT-Extract/src/utils"
)

// PriceLookup answers historical spot prices. The price service satisfies it;
// tests substitute a fixed-price stub.
type PriceLookup interface {
	TokenPrice(ctx context.Context, token, fiat string, timestamp int64) (decimal.Decimal, error)
}

// EnrichProcessor converts a grouped transaction's raw feed strings into
// decimal ETH and gas legs, values both in fiat at the historical spot price,
// and summarizes the group's token transfers per symbol.
type EnrichProcessor struct {
	prices PriceLookup
}

func NewEnrichProcessor(prices PriceLookup) *EnrichProcessor {
	return &EnrichProcessor{prices: prices}
}

func (p *EnrichProcessor) Process(ctx context.Context, group models.TransactionGroup) (models.EnrichedTransaction, error) {
	timestamp, err := strconv.ParseInt(group.Normal.TimeStamp, 10, 64)
	if err != nil {
		return models.EnrichedTransaction{}, fmt.Errorf("transaction %s: bad timestamp %q: %w", group.TxHash, group.Normal.TimeStamp, err)
	}

	ethAmount, err := utils.WeiToEther(group.Normal.Value)
	if err != nil {
		return models.EnrichedTransaction{}, fmt.Errorf("transaction %s: %w", group.TxHash, err)
	}
	// Internal transactions carry ETH sent back to the wallet by a contract,
	// typically sale proceeds. They fold into the same leg.
	for _, internal := range group.Internal {
		amount, err := utils.WeiToEther(internal.Value)
		if err != nil {
			return models.EnrichedTransaction{}, fmt.Errorf("transaction %s internal: %w", group.TxHash, err)
		}
		ethAmount = ethAmount.Add(amount)
	}

	gasAmount, err := utils.GasToEther(group.Normal.GasPrice, group.Normal.GasUsed)
	if err != nil {
		return models.EnrichedTransaction{}, fmt.Errorf("transaction %s: %w", group.TxHash, err)
	}

	price, err := p.prices.TokenPrice(ctx, "ethereum", "usd", timestamp)
	if err != nil {
		return models.EnrichedTransaction{}, fmt.Errorf("transaction %s: price lookup: %w", group.TxHash, err)
	}

	tokens, err := summarizeTokens(group)
	if err != nil {
		return models.EnrichedTransaction{}, fmt.Errorf("transaction %s: %w", group.TxHash, err)
	}

	return models.EnrichedTransaction{
		TransactionGroup: group,
		Timestamp:        timestamp,
		ETH: models.EthLeg{
			Amount:    ethAmount,
			ValueFiat: ethAmount.Mul(price),
			From:      group.Normal.From,
			To:        group.Normal.To,
		},
		Gas: models.GasLeg{
			Amount:    gasAmount,
			ValueFiat: gasAmount.Mul(price),
		},
		Tokens: tokens,
	}, nil
}

func summarizeTokens(group models.TransactionGroup) (map[string][]models.TokenMovement, error) {
	if len(group.ERC20)+len(group.ERC721)+len(group.ERC1155) == 0 {
		return nil, nil
	}
	tokens := make(map[string][]models.TokenMovement)
	for _, t := range group.ERC20 {
		units, err := utils.TokenValueToUnits(t.Value, t.TokenDecimal)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", t.TokenSymbol, err)
		}
		tokens[t.TokenSymbol] = append(tokens[t.TokenSymbol], models.TokenMovement{
			Value:    units,
			Contract: t.ContractAddress,
			Name:     t.TokenName,
			Symbol:   t.TokenSymbol,
			From:     t.From,
			To:       t.To,
		})
	}
	// NFT transfers are one unit apiece regardless of standard.
	for _, t := range group.ERC721 {
		tokens[t.TokenSymbol] = append(tokens[t.TokenSymbol], models.TokenMovement{
			Value:    decimal.NewFromInt(1),
			Contract: t.ContractAddress,
			Name:     t.TokenName,
			Symbol:   t.TokenSymbol,
			TokenID:  t.TokenID,
			From:     t.From,
			To:       t.To,
		})
	}
	for _, t := range group.ERC1155 {
		tokens[t.TokenSymbol] = append(tokens[t.TokenSymbol], models.TokenMovement{
			Value:    decimal.NewFromInt(1),
			Contract: t.ContractAddress,
			Name:     t.TokenName,
			Symbol:   t.TokenSymbol,
			TokenID:  t.TokenID,
			From:     t.From,
			To:       t.To,
		})
	}
	return tokens, nil
}
