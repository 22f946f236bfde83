package processors

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
)

const (
	walletA  = "0x1111111111111111111111111111111111111aaa"
	walletB  = "0x2222222222222222222222222222222222222bbb"
	stranger = "0x3333333333333333333333333333333333333ccc"
	coinbase = "0xddfabcdc4d8ffc6d5beaf154f18b778f892a0740"
	weth     = "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
	ronin    = "0x1a2a1c938ce3ec39b6d47113c7955baa9dd454f2"
	phishing = "0x82dfdb2ec1aa6003ed4acba663403d7c2127ff67"
)

func newClassifier() *ClassifyProcessor {
	return NewClassifyProcessor([]string{walletA, walletB}, nil)
}

func enriched(from, to string) models.EnrichedTransaction {
	return models.EnrichedTransaction{
		TransactionGroup: models.TransactionGroup{
			TxHash: "0xabc",
			Normal: models.EtherscanTransaction{Hash: "0xabc", From: from, To: to},
		},
		Timestamp: 1_600_000_000,
		ETH: models.EthLeg{
			Amount:    decimal.RequireFromString("1.5"),
			ValueFiat: decimal.RequireFromString("3000"),
			From:      from,
			To:        to,
		},
		Gas: models.GasLeg{
			Amount:    decimal.RequireFromString("0.001"),
			ValueFiat: decimal.RequireFromString("2"),
		},
	}
}

func TestClassifyChainTypes(t *testing.T) {
	p := newClassifier()
	ctx := context.Background()

	cases := []struct {
		name string
		txn  models.EnrichedTransaction
		want models.TransactionType
	}{
		{"own wallets", enriched(walletA, walletB), models.TxTypeTransfer},
		{"from exchange", enriched(coinbase, walletA), models.TxTypeTransferFromCoinbase},
		{"to exchange", enriched(walletA, coinbase), models.TxTypeTransferToCoinbase},
		{"unwrap", enriched(weth, walletA), models.TxTypeUnwrapWETH},
		{"bridge out", enriched(walletA, ronin), models.TxTypeBridgeOut},
		{"outbound gift", enriched(walletA, stranger), models.TxTypeGift},
		{"inbound", enriched(stranger, walletA), models.TxTypeGiftReceived},
		{"ignored", enriched(phishing, walletA), models.TxTypeIgnored},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := p.ClassifyChain(ctx, tc.txn)
			if err != nil {
				t.Fatalf("ClassifyChain: %v", err)
			}
			if got.Type != tc.want {
				t.Fatalf("type = %q, want %q", got.Type, tc.want)
			}
			if got.ID != "0xabc" {
				t.Errorf("ID = %q, want txn hash", got.ID)
			}
		})
	}
}

func TestClassifyChainNFTPurchaseAndSale(t *testing.T) {
	p := newClassifier()
	ctx := context.Background()

	buy := enriched(walletA, stranger)
	buy.ERC721 = []models.TokenTransfer{{Hash: "0xabc", TokenSymbol: "COOL", TokenID: "42"}}
	got, err := p.ClassifyChain(ctx, buy)
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if got.Type != models.TxTypeBuyNFT {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeBuyNFT)
	}

	sale := enriched(stranger, walletB)
	sale.ERC1155 = []models.ERC1155Row{{TxHash: "0xabc", TokenSymbol: "LAND"}}
	got, err = p.ClassifyChain(ctx, sale)
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if got.Type != models.TxTypeSellNFT {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeSellNFT)
	}
}

type fixedResolver struct{ name string }

func (r fixedResolver) FunctionName(ctx context.Context, contract, input string) (string, error) {
	return r.name, nil
}

func TestClassifyChainContractCall(t *testing.T) {
	p := NewClassifyProcessor([]string{walletA}, fixedResolver{name: "setApprovalForAll"})
	txn := enriched(walletA, stranger)
	txn.Normal.Input = "0xa22cb46500000000000000000000000000000000"

	got, err := p.ClassifyChain(context.Background(), txn)
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if got.Type != models.TxTypeContractCall {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeContractCall)
	}
	if !strings.Contains(got.Description, "setApprovalForAll") {
		t.Errorf("description %q missing resolved function name", got.Description)
	}
}

func TestClassifyChainContractCallSelectorFallback(t *testing.T) {
	p := newClassifier()
	txn := enriched(walletA, stranger)
	txn.Normal.Input = "0xa22cb46500000000000000000000000000000000"

	got, err := p.ClassifyChain(context.Background(), txn)
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if !strings.Contains(got.Description, "0xa22cb465") {
		t.Errorf("description %q missing selector fallback", got.Description)
	}
}

func TestClassifyChainFailedDropsValue(t *testing.T) {
	p := newClassifier()
	txn := enriched(walletA, stranger)
	txn.Normal.IsError = "1"

	got, err := p.ClassifyChain(context.Background(), txn)
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if got.Type != models.TxTypeFailed {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeFailed)
	}
	if !got.ETH.Amount.IsZero() {
		t.Errorf("failed transaction kept ETH amount %s", got.ETH.Amount)
	}
	if !got.Gas.Amount.Equal(decimal.RequireFromString("0.001")) {
		t.Errorf("gas amount = %s, want 0.001", got.Gas.Amount)
	}
}

func TestClassifyChainInboundHasNoGas(t *testing.T) {
	p := newClassifier()
	got, err := p.ClassifyChain(context.Background(), enriched(stranger, walletA))
	if err != nil {
		t.Fatalf("ClassifyChain: %v", err)
	}
	if !got.Gas.Amount.IsZero() || !got.Gas.ValueFiat.IsZero() {
		t.Errorf("inbound transaction carries gas leg %+v", got.Gas)
	}
}

func TestClassifyChainUnknownAddresses(t *testing.T) {
	p := newClassifier()
	_, err := p.ClassifyChain(context.Background(), enriched(stranger, stranger))
	if !errors.Is(err, ErrUnknownTransaction) {
		t.Fatalf("err = %v, want ErrUnknownTransaction", err)
	}
}

func TestClassifyCoinbase(t *testing.T) {
	p := newClassifier()

	buy := models.CoinbaseTransaction{
		Timestamp:          1_600_000_000,
		TransactionType:    "buy",
		Asset:              "ETH",
		QuantityTransacted: decimal.RequireFromString("2"),
		SpotPriceFiat:      decimal.RequireFromString("1000"),
		Fees:               decimal.RequireFromString("5.99"),
	}
	got, ok, err := p.ClassifyCoinbase(buy, "ETH")
	if err != nil || !ok {
		t.Fatalf("ClassifyCoinbase: ok=%v err=%v", ok, err)
	}
	if got.Type != models.TxTypeBuy {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeBuy)
	}
	if !got.ETH.ValueFiat.Equal(decimal.RequireFromString("2000")) {
		t.Errorf("value = %s, want 2000", got.ETH.ValueFiat)
	}
	if !got.Gas.ValueFiat.Equal(decimal.RequireFromString("5.99")) {
		t.Errorf("fee = %s, want 5.99", got.Gas.ValueFiat)
	}

	send := models.CoinbaseTransaction{
		Timestamp:          1_600_000_100,
		TransactionType:    "send",
		Asset:              "ETH",
		QuantityTransacted: decimal.RequireFromString("1"),
		SpotPriceFiat:      decimal.RequireFromString("1100"),
		Notes:              "Sent 1.0 ETH to " + walletA,
	}
	got, ok, err = p.ClassifyCoinbase(send, "ETH")
	if err != nil || !ok {
		t.Fatalf("ClassifyCoinbase: ok=%v err=%v", ok, err)
	}
	if got.Type != models.TxTypeTransferByCoinbase {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeTransferByCoinbase)
	}
	if got.ETH.To != walletA {
		t.Errorf("target = %q, want %q", got.ETH.To, walletA)
	}

	send.Notes = "Sent 1.0 ETH to " + stranger
	got, ok, err = p.ClassifyCoinbase(send, "ETH")
	if err != nil || !ok {
		t.Fatalf("ClassifyCoinbase: ok=%v err=%v", ok, err)
	}
	if got.Type != models.TxTypeGift {
		t.Fatalf("type = %q, want %q", got.Type, models.TxTypeGift)
	}
}

func TestClassifyCoinbaseOtherAsset(t *testing.T) {
	p := newClassifier()
	_, ok, err := p.ClassifyCoinbase(models.CoinbaseTransaction{Asset: "BTC", TransactionType: "buy"}, "ETH")
	if err != nil {
		t.Fatalf("ClassifyCoinbase: %v", err)
	}
	if ok {
		t.Fatal("expected BTC row to be skipped for ETH run")
	}
}

func TestClassifyCoinbaseUnknownType(t *testing.T) {
	p := newClassifier()
	_, _, err := p.ClassifyCoinbase(models.CoinbaseTransaction{Asset: "ETH", TransactionType: "staking income"}, "ETH")
	if !errors.Is(err, ErrUnknownTransaction) {
		t.Fatalf("err = %v, want ErrUnknownTransaction", err)
	}
}
