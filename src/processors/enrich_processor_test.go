package processors

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
)

type fixedPrice struct{ price decimal.Decimal }

func (p fixedPrice) TokenPrice(ctx context.Context, token, fiat string, timestamp int64) (decimal.Decimal, error) {
	return p.price, nil
}

func TestGroupProcessorJoinsByHash(t *testing.T) {
	p := NewGroupProcessor()
	groups := p.Process(
		[]models.EtherscanTransaction{{Hash: "0xaa"}, {Hash: "0xbb"}},
		[]models.EtherscanTransaction{{Hash: "0xaa", Value: "100"}},
		[]models.TokenTransfer{{Hash: "0xbb", TokenSymbol: "WETH"}},
		[]models.TokenTransfer{{Hash: "0xaa", TokenSymbol: "COOL"}, {Hash: "0xcc", TokenSymbol: "LOST"}},
		[]models.ERC1155Row{{TxHash: "0xbb", TokenSymbol: "LAND"}},
	)

	if len(groups) != 2 {
		t.Fatalf("got %d groups, want 2", len(groups))
	}
	first := groups[0]
	if first.TxHash != "0xaa" || len(first.Internal) != 1 || len(first.ERC721) != 1 || len(first.ERC20) != 0 {
		t.Errorf("group 0xaa joined wrong records: %+v", first)
	}
	second := groups[1]
	if second.TxHash != "0xbb" || len(second.ERC20) != 1 || len(second.ERC1155) != 1 {
		t.Errorf("group 0xbb joined wrong records: %+v", second)
	}
}

func TestEnrichProcess(t *testing.T) {
	p := NewEnrichProcessor(fixedPrice{price: decimal.RequireFromString("2000")})
	group := models.TransactionGroup{
		TxHash: "0xaa",
		Normal: models.EtherscanTransaction{
			Hash:      "0xaa",
			TimeStamp: "1600000000",
			From:      "0xfrom",
			To:        "0xto",
			Value:     "1500000000000000000", // 1.5 ETH
			GasPrice:  "50000000000",         // 50 gwei
			GasUsed:   "21000",
		},
		ERC20: []models.TokenTransfer{{
			Hash: "0xaa", Value: "2500000", TokenDecimal: "6",
			TokenSymbol: "USDC", TokenName: "USD Coin",
		}},
		ERC721: []models.TokenTransfer{{
			Hash: "0xaa", TokenSymbol: "COOL", TokenName: "Cool Cats", TokenID: "7",
		}},
	}

	got, err := p.Process(context.Background(), group)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if got.Timestamp != 1600000000 {
		t.Errorf("timestamp = %d", got.Timestamp)
	}
	if !got.ETH.Amount.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("eth amount = %s, want 1.5", got.ETH.Amount)
	}
	if !got.ETH.ValueFiat.Equal(decimal.RequireFromString("3000")) {
		t.Errorf("eth value = %s, want 3000", got.ETH.ValueFiat)
	}
	if !got.Gas.Amount.Equal(decimal.RequireFromString("0.00105")) {
		t.Errorf("gas amount = %s, want 0.00105", got.Gas.Amount)
	}
	if !got.Gas.ValueFiat.Equal(decimal.RequireFromString("2.1")) {
		t.Errorf("gas value = %s, want 2.1", got.Gas.ValueFiat)
	}

	usdc := got.Tokens["USDC"]
	if len(usdc) != 1 || !usdc[0].Value.Equal(decimal.RequireFromString("2.5")) {
		t.Errorf("USDC movement = %+v, want one movement of 2.5", usdc)
	}
	cool := got.Tokens["COOL"]
	if len(cool) != 1 || !cool[0].Value.Equal(decimal.NewFromInt(1)) || cool[0].TokenID != "7" {
		t.Errorf("COOL movement = %+v, want one unit of token 7", cool)
	}
}

func TestEnrichProcessFoldsInternalValue(t *testing.T) {
	p := NewEnrichProcessor(fixedPrice{price: decimal.RequireFromString("1000")})
	group := models.TransactionGroup{
		TxHash: "0xaa",
		Normal: models.EtherscanTransaction{
			Hash: "0xaa", TimeStamp: "1600000000",
			Value: "0", GasPrice: "0", GasUsed: "0",
		},
		Internal: []models.EtherscanTransaction{
			{Hash: "0xaa", Value: "500000000000000000"}, // 0.5 ETH proceeds
		},
	}

	got, err := p.Process(context.Background(), group)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !got.ETH.Amount.Equal(decimal.RequireFromString("0.5")) {
		t.Errorf("eth amount = %s, want 0.5", got.ETH.Amount)
	}
}

func TestEnrichProcessBadTimestamp(t *testing.T) {
	p := NewEnrichProcessor(fixedPrice{})
	_, err := p.Process(context.Background(), models.TransactionGroup{
		TxHash: "0xaa",
		Normal: models.EtherscanTransaction{TimeStamp: "not-a-number"},
	})
	if err == nil {
		t.Fatal("expected error for malformed timestamp")
	}
}

func TestMergeByTimestamp(t *testing.T) {
	cb := []models.ClassifiedTransaction{
		{Type: models.TxTypeBuy, Timestamp: 300},
		{Type: models.TxTypeBuy, Timestamp: 100},
	}
	chain := []models.ClassifiedTransaction{
		{Type: models.TxTypeTransfer, Timestamp: 200},
		{Type: models.TxTypeGift, Timestamp: 300},
	}

	merged := MergeByTimestamp(cb, chain)
	if len(merged) != 4 {
		t.Fatalf("got %d transactions, want 4", len(merged))
	}
	wantOrder := []int64{100, 200, 300, 300}
	for i, ts := range wantOrder {
		if merged[i].Timestamp != ts {
			t.Fatalf("position %d timestamp = %d, want %d", i, merged[i].Timestamp, ts)
		}
	}
	// Tie at 300 resolves chain side first.
	if merged[2].Type != models.TxTypeGift {
		t.Errorf("tie broke toward %q, want chain-side record first", merged[2].Type)
	}
	// Inputs untouched.
	if cb[0].Timestamp != 300 {
		t.Error("merge mutated its input slice")
	}
}
