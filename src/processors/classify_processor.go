package processors

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Roklion/NFT-Extract/src/models"
	"github.com/Roklion/NFT-Extract/src/utils"
)

// ErrUnknownTransaction is returned when a transaction matches no branch of
// the decision tree. Classification has to be exhaustive; an unknown shape
// means the address book or wallet list is incomplete.
var ErrUnknownTransaction = errors.New("unknown transaction")

// FunctionResolver maps a contract call's input data to a function name.
// The contract service satisfies it; classification works without one, the
// description just falls back to the raw selector.
type FunctionResolver interface {
	FunctionName(ctx context.Context, contractAddress, input string) (string, error)
}

// ClassifyProcessor assigns each enriched transaction a semantic type by
// walking a decision tree over the owner's wallets and the known address
// sets, and renders a human-readable description alongside.
type ClassifyProcessor struct {
	wallets  map[string]struct{}
	resolver FunctionResolver
}

func NewClassifyProcessor(myWallets []string, resolver FunctionResolver) *ClassifyProcessor {
	wallets := make(map[string]struct{}, len(myWallets))
	for _, w := range myWallets {
		wallets[strings.ToLower(w)] = struct{}{}
	}
	return &ClassifyProcessor{wallets: wallets, resolver: resolver}
}

func (p *ClassifyProcessor) isMine(addr string) bool {
	_, ok := p.wallets[strings.ToLower(addr)]
	return ok
}

// ClassifyChain types one on-chain transaction. Gas is attributed only when
// one of the owner's wallets sent the transaction; inbound transactions had
// their gas paid by the counterparty.
func (p *ClassifyProcessor) ClassifyChain(ctx context.Context, txn models.EnrichedTransaction) (models.ClassifiedTransaction, error) {
	from := strings.ToLower(txn.ETH.From)
	to := strings.ToLower(txn.ETH.To)
	eth := models.EthLeg{Amount: txn.ETH.Amount, ValueFiat: txn.ETH.ValueFiat, From: from, To: to}
	gas := models.GasLeg{}
	if p.isMine(from) {
		gas = txn.Gas
	}

	out := models.ClassifiedTransaction{
		Timestamp: txn.Timestamp,
		ETH:       &eth,
		Gas:       &gas,
		ID:        txn.TxHash,
	}

	switch {
	case utils.IsIgnoredAddress(from) || utils.IsIgnoredAddress(to):
		out.Type = models.TxTypeIgnored
		out.Description = fmt.Sprintf("Ignore transaction from 0x...%s to 0x...%s",
			utils.ShortAddress(from), utils.ShortAddress(to))

	case txn.Normal.IsError == "1" && p.isMine(from):
		// Value never moved on a failed transaction, only the gas burned.
		out.ETH = &models.EthLeg{From: from, To: to}
		out.Type = models.TxTypeFailed
		out.Description = fmt.Sprintf("Failed transaction from 0x...%s with %sE gas (worth $%s)",
			utils.ShortAddress(from), gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(from) && p.isMine(to):
		out.Type = models.TxTypeTransfer
		out.Description = fmt.Sprintf("Transfer %sE (worth $%s) from 0x...%s to 0x...%s with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from), utils.ShortAddress(to),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case utils.IsCoinbaseWallet(from) && p.isMine(to):
		out.Type = models.TxTypeTransferFromCoinbase
		out.Description = fmt.Sprintf("Transfer %sE (worth $%s) from Coinbase to 0x...%s",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), utils.ShortAddress(to))

	case utils.IsCoinbaseWallet(to):
		out.Type = models.TxTypeTransferToCoinbase
		out.Description = fmt.Sprintf("Transfer %sE (worth $%s) from 0x...%s to Coinbase with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case utils.IsWETHContract(from) && p.isMine(to):
		out.Type = models.TxTypeUnwrapWETH
		out.Description = fmt.Sprintf("Unwrap %sE (worth $%s) for 0x...%s",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), utils.ShortAddress(to))

	case p.isMine(from) && utils.IsBridge(to):
		out.Type = models.TxTypeBridgeOut
		out.Description = fmt.Sprintf("Bridge out %sE (worth $%s) from 0x...%s with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(from) && utils.IsBurnAddress(to):
		out.Type = models.TxTypeGift
		out.Description = fmt.Sprintf("Burn %sE (worth $%s) from 0x...%s with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(from) && p.hasNFTs(txn):
		out.Type = models.TxTypeBuyNFT
		out.Description = fmt.Sprintf("Buy NFT for %sE (worth $%s) for 0x...%s with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(from) && isContractCall(txn.Normal.Input):
		out.Type = models.TxTypeContractCall
		out.Description = fmt.Sprintf("Call %s with %sE (worth $%s) from 0x...%s with %sE gas (worth $%s)",
			p.functionLabel(ctx, to, txn.Normal.Input),
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(from):
		out.Type = models.TxTypeGift
		out.Description = fmt.Sprintf("Gift %sE (worth $%s) from 0x...%s to 0x...%s with %sE gas (worth $%s)",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from), utils.ShortAddress(to),
			gas.Amount.StringFixed(5), gas.ValueFiat.StringFixed(2))

	case p.isMine(to) && p.hasNFTs(txn):
		out.Type = models.TxTypeSellNFT
		out.Description = fmt.Sprintf("Sell NFT for %sE (worth $%s) for 0x...%s",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), utils.ShortAddress(to))

	case p.isMine(to):
		out.Type = models.TxTypeGiftReceived
		out.Description = fmt.Sprintf("Receive %sE (worth $%s) from 0x...%s to 0x...%s",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2),
			utils.ShortAddress(from), utils.ShortAddress(to))

	default:
		return models.ClassifiedTransaction{}, fmt.Errorf(
			"%w: transaction %s from 0x...%s to 0x...%s touches no known wallet",
			ErrUnknownTransaction, txn.TxHash, utils.ShortAddress(from), utils.ShortAddress(to))
	}

	return out, nil
}

// ClassifyCoinbase types one exchange export row. The second return is false
// when the row concerns an asset other than the requested one.
func (p *ClassifyProcessor) ClassifyCoinbase(txn models.CoinbaseTransaction, asset string) (models.ClassifiedTransaction, bool, error) {
	if !strings.EqualFold(txn.Asset, asset) {
		return models.ClassifiedTransaction{}, false, nil
	}

	valueFiat := txn.QuantityTransacted.Mul(txn.SpotPriceFiat)
	eth := models.EthLeg{Amount: txn.QuantityTransacted, ValueFiat: valueFiat}
	out := models.ClassifiedTransaction{
		Timestamp: txn.Timestamp,
		ETH:       &eth,
		Gas:       &models.GasLeg{},
	}

	switch txn.TransactionType {
	case "send":
		fields := strings.Fields(txn.Notes)
		if len(fields) == 0 {
			return models.ClassifiedTransaction{}, false, fmt.Errorf(
				"%w: send row at %d has no target address in notes", ErrUnknownTransaction, txn.Timestamp)
		}
		eth.To = strings.ToLower(fields[len(fields)-1])
		if p.isMine(eth.To) {
			out.Type = models.TxTypeTransferByCoinbase
			out.Description = fmt.Sprintf("Transfer %sE (worth $%s) from Coinbase to 0x...%s",
				eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), utils.ShortAddress(eth.To))
		} else {
			out.Type = models.TxTypeGift
			out.Description = fmt.Sprintf("Gift %sE (worth $%s) from Coinbase to 0x...%s",
				eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), utils.ShortAddress(eth.To))
		}

	case "buy":
		out.Type = models.TxTypeBuy
		out.Gas = &models.GasLeg{ValueFiat: txn.Fees}
		out.Description = fmt.Sprintf("Buy %sE for $%s with $%s fee",
			eth.Amount.StringFixed(5), eth.ValueFiat.StringFixed(2), txn.Fees.StringFixed(2))

	default:
		return models.ClassifiedTransaction{}, false, fmt.Errorf(
			"%w: coinbase transaction type %q", ErrUnknownTransaction, txn.TransactionType)
	}

	return out, true, nil
}

// hasNFTs reports whether the group moved any ERC-721 or ERC-1155 token.
func (p *ClassifyProcessor) hasNFTs(txn models.EnrichedTransaction) bool {
	return len(txn.ERC721)+len(txn.ERC1155) > 0
}

func isContractCall(input string) bool {
	return input != "" && input != "0x" && input != "deprecated"
}

func (p *ClassifyProcessor) functionLabel(ctx context.Context, contract, input string) string {
	if p.resolver != nil {
		if name, err := p.resolver.FunctionName(ctx, contract, input); err == nil && name != "" {
			return name
		}
	}
	if len(input) >= 10 {
		return input[:10]
	}
	return input
}
