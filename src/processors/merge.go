package processors

import (
	"sort"

	"github.com/Roklion/NFT-Extract/src/models"
)

// MergeByTimestamp interleaves the exchange-side and chain-side transaction
// streams into one non-decreasing sequence. Each side is sorted first, then
// merged two-pointer style; on equal timestamps the chain-side record goes
// first.
func MergeByTimestamp(coinbase, chain []models.ClassifiedTransaction) []models.ClassifiedTransaction {
	coinbase = sortedByTimestamp(coinbase)
	chain = sortedByTimestamp(chain)

	merged := make([]models.ClassifiedTransaction, 0, len(coinbase)+len(chain))
	i, j := 0, 0
	for i < len(coinbase) || j < len(chain) {
		switch {
		case j >= len(chain):
			merged = append(merged, coinbase[i])
			i++
		case i >= len(coinbase):
			merged = append(merged, chain[j])
			j++
		case coinbase[i].Timestamp < chain[j].Timestamp:
			merged = append(merged, coinbase[i])
			i++
		default:
			merged = append(merged, chain[j])
			j++
		}
	}
	return merged
}

func sortedByTimestamp(txns []models.ClassifiedTransaction) []models.ClassifiedTransaction {
	out := make([]models.ClassifiedTransaction, len(txns))
	copy(out, txns)
	sort.SliceStable(out, func(a, b int) bool { return out[a].Timestamp < out[b].Timestamp })
	return out
}
