package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// weiPerEther is 10^18, the wei denomination of one ether.
var weiPerEther = decimal.New(1, 18)

// WeiToEther converts a wei quantity reported as a decimal string into ether.
func WeiToEther(weiStr string) (decimal.Decimal, error) {
	wei, err := decimal.NewFromString(weiStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid wei value %q: %w", weiStr, err)
	}
	return wei.Div(weiPerEther), nil
}

// GasToEther converts a gas price (wei) and gas used pair into the ether
// consumed by the transaction.
func GasToEther(gasPriceStr, gasUsedStr string) (decimal.Decimal, error) {
	gasPrice, err := decimal.NewFromString(gasPriceStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid gas price %q: %w", gasPriceStr, err)
	}
	gasUsed, err := decimal.NewFromString(gasUsedStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid gas used %q: %w", gasUsedStr, err)
	}
	return gasPrice.Mul(gasUsed).Div(weiPerEther), nil
}

// TokenValueToUnits scales a raw token amount by the token's decimal count.
func TokenValueToUnits(valueStr, decimalsStr string) (decimal.Decimal, error) {
	value, err := decimal.NewFromString(valueStr)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid token value %q: %w", valueStr, err)
	}
	var exp int32
	if _, err := fmt.Sscanf(decimalsStr, "%d", &exp); err != nil {
		return decimal.Zero, fmt.Errorf("invalid token decimals %q: %w", decimalsStr, err)
	}
	return value.Div(decimal.New(1, exp)), nil
}

// ShortAddress renders the tail of an address the way report descriptions
// abbreviate wallets ("0x...abcde").
func ShortAddress(addr string) string {
	if len(addr) <= 5 {
		return addr
	}
	return addr[len(addr)-5:]
}
