// Package contract resolves a transaction's input data to the contract
// function it calls, by matching the input's 4-byte selector against
// selectors derived from the contract's published ABI.
package contract

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/crypto/sha3"

	"github.com/Roklion/NFT-Extract/src/logger"
)

// ABIFetcher provides a contract's ABI JSON. The Etherscan service
// satisfies it.
type ABIFetcher interface {
	ContractABI(ctx context.Context, contractAddress string) (string, error)
}

type abiEntry struct {
	Type   string `json:"type"`
	Name   string `json:"name"`
	Inputs []struct {
		Type string `json:"type"`
	} `json:"inputs"`
}

// Resolver caches per-contract selector tables so each contract's ABI is
// fetched at most once per run.
type Resolver struct {
	fetcher ABIFetcher
	cache   *gocache.Cache
}

func NewResolver(fetcher ABIFetcher) *Resolver {
	return &Resolver{
		fetcher: fetcher,
		cache:   gocache.New(gocache.NoExpiration, gocache.NoExpiration),
	}
}

// FunctionName returns the name of the function whose selector opens the
// given input data, or "" when the ABI has no match.
func (r *Resolver) FunctionName(ctx context.Context, contractAddress, input string) (string, error) {
	if len(input) < 10 || !strings.HasPrefix(input, "0x") {
		return "", fmt.Errorf("input %q carries no function selector", input)
	}
	selector := strings.ToLower(input[:10])

	selectors, err := r.selectorTable(ctx, contractAddress)
	if err != nil {
		return "", err
	}
	return selectors[selector], nil
}

func (r *Resolver) selectorTable(ctx context.Context, contractAddress string) (map[string]string, error) {
	key := strings.ToLower(contractAddress)
	if cached, found := r.cache.Get(key); found {
		return cached.(map[string]string), nil
	}

	abiJSON, err := r.fetcher.ContractABI(ctx, contractAddress)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", contractAddress, err)
	}

	var entries []abiEntry
	if err := json.Unmarshal([]byte(abiJSON), &entries); err != nil {
		return nil, fmt.Errorf("contract %s: parse ABI: %w", contractAddress, err)
	}

	selectors := make(map[string]string)
	for _, entry := range entries {
		if entry.Type != "function" {
			continue
		}
		selectors[Selector(signature(entry))] = entry.Name
	}
	if logger.L != nil {
		logger.L.Debug("Built selector table", "contract", key, "functions", len(selectors))
	}
	r.cache.Set(key, selectors, gocache.NoExpiration)
	return selectors, nil
}

// signature renders an ABI entry in canonical form, e.g.
// "transferFrom(address,address,uint256)".
func signature(entry abiEntry) string {
	types := make([]string, len(entry.Inputs))
	for i, input := range entry.Inputs {
		types[i] = input.Type
	}
	return entry.Name + "(" + strings.Join(types, ",") + ")"
}

// Selector computes the 4-byte function selector for a canonical signature,
// "0x"-prefixed. Ethereum uses the pre-standard Keccak-256, not NIST SHA-3.
func Selector(canonicalSignature string) string {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(canonicalSignature))
	return "0x" + hex.EncodeToString(hash.Sum(nil)[:4])
}
