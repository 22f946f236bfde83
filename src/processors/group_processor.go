package processors

import (
	"github.com/Roklion/NFT-Extract/src/models"
)

// GroupProcessor joins every feed record onto the normal transaction that
// carries its hash. Normal transactions anchor the groups; internal, ERC-20,
// ERC-721 and ERC-1155 records are satellites.
type GroupProcessor struct{}

func NewGroupProcessor() *GroupProcessor { return &GroupProcessor{} }

func (p *GroupProcessor) Process(
	normal []models.EtherscanTransaction,
	internal []models.EtherscanTransaction,
	erc20 []models.TokenTransfer,
	erc721 []models.TokenTransfer,
	erc1155 []models.ERC1155Row,
) []models.TransactionGroup {
	internalByHash := make(map[string][]models.EtherscanTransaction)
	for _, t := range internal {
		internalByHash[t.Hash] = append(internalByHash[t.Hash], t)
	}
	erc20ByHash := make(map[string][]models.TokenTransfer)
	for _, t := range erc20 {
		erc20ByHash[t.Hash] = append(erc20ByHash[t.Hash], t)
	}
	erc721ByHash := make(map[string][]models.TokenTransfer)
	for _, t := range erc721 {
		erc721ByHash[t.Hash] = append(erc721ByHash[t.Hash], t)
	}
	erc1155ByHash := make(map[string][]models.ERC1155Row)
	for _, t := range erc1155 {
		erc1155ByHash[t.TxHash] = append(erc1155ByHash[t.TxHash], t)
	}

	groups := make([]models.TransactionGroup, 0, len(normal))
	for _, txn := range normal {
		groups = append(groups, models.TransactionGroup{
			TxHash:   txn.Hash,
			Normal:   txn,
			Internal: internalByHash[txn.Hash],
			ERC20:    erc20ByHash[txn.Hash],
			ERC721:   erc721ByHash[txn.Hash],
			ERC1155:  erc1155ByHash[txn.Hash],
		})
	}
	return groups
}
