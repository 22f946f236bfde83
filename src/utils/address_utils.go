package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Roklion/NFT-Extract/src/logger"
)

// AddressBook holds the platform address sets the classifier's decision tree
// walks. Lookups are case-insensitive; every set is stored lowercased.
type AddressBook struct {
	CoinbaseWallets []string `json:"coinbase_wallets"`
	RoninBridge     []string `json:"ronin_bridge"`
	PolygonBridge   []string `json:"polygon_bridge"`
	WETHContract    []string `json:"weth_contract"`
	BurnAddresses   []string `json:"burn_addresses"`
	IgnoreAddresses []string `json:"ignore_addresses"`
}

// defaultAddressBook carries the known platform addresses on Ethereum
// mainnet, used when no override file is configured.
var defaultAddressBook = AddressBook{
	CoinbaseWallets: []string{
		"0xddfabcdc4d8ffc6d5beaf154f18b778f892a0740",
		"0x3cd751e6b0078be393132286c442345e5dc49699",
		"0xb5d85cbf7cb3ee0d56b3bb207d5fc4b82f43f511",
		"0xeb2629a2734e272bcc07bda959863f316f4bd4cf",
	},
	RoninBridge: []string{
		"0x1a2a1c938ce3ec39b6d47113c7955baa9dd454f2",
	},
	PolygonBridge: []string{
		"0xa0c68c638235ee32657e8f720a23cec1bfc77c77",
	},
	WETHContract: []string{
		"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2",
	},
	BurnAddresses: []string{
		"0xeea89c8843e8beb56e411bb4cac6dbc2d937ee1d",
		"0x000000000000000000000000000000000000dead",
	},
	IgnoreAddresses: []string{
		// Fake/phishing contract impersonating a real collection.
		"0x82dfdb2ec1aa6003ed4acba663403d7c2127ff67",
	},
}

var addressSets map[string]map[string]bool

// InitAddressBook builds the lookup sets, merging overrides from filePath
// onto the built-in defaults when a path is configured. Call once from
// main.go after config is loaded.
func InitAddressBook(filePath string) error {
	book := defaultAddressBook
	if filePath != "" {
		if logger.L != nil {
			logger.L.Info("Loading address book overrides", "path", filePath)
		}
		fileData, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("failed to read address book file '%s': %w", filePath, err)
		}
		var overrides AddressBook
		if err := json.Unmarshal(fileData, &overrides); err != nil {
			return fmt.Errorf("failed to unmarshal address book from '%s': %w", filePath, err)
		}
		book.CoinbaseWallets = append(book.CoinbaseWallets, overrides.CoinbaseWallets...)
		book.RoninBridge = append(book.RoninBridge, overrides.RoninBridge...)
		book.PolygonBridge = append(book.PolygonBridge, overrides.PolygonBridge...)
		book.WETHContract = append(book.WETHContract, overrides.WETHContract...)
		book.BurnAddresses = append(book.BurnAddresses, overrides.BurnAddresses...)
		book.IgnoreAddresses = append(book.IgnoreAddresses, overrides.IgnoreAddresses...)
	}

	addressSets = map[string]map[string]bool{
		"coinbase": toSet(book.CoinbaseWallets),
		"ronin":    toSet(book.RoninBridge),
		"polygon":  toSet(book.PolygonBridge),
		"weth":     toSet(book.WETHContract),
		"burn":     toSet(book.BurnAddresses),
		"ignore":   toSet(book.IgnoreAddresses),
	}
	if logger.L != nil {
		logger.L.Info("Address book initialized",
			"coinbaseWallets", len(addressSets["coinbase"]),
			"ignoreAddresses", len(addressSets["ignore"]))
	}
	return nil
}

func toSet(addrs []string) map[string]bool {
	set := make(map[string]bool, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(strings.TrimSpace(a))] = true
	}
	return set
}

func inSet(name, addr string) bool {
	if addressSets == nil {
		// Defaults cover the common case when InitAddressBook was skipped.
		if err := InitAddressBook(""); err != nil {
			return false
		}
	}
	return addressSets[name][strings.ToLower(addr)]
}

func IsCoinbaseWallet(addr string) bool { return inSet("coinbase", addr) }
func IsRoninBridge(addr string) bool    { return inSet("ronin", addr) }
func IsPolygonBridge(addr string) bool  { return inSet("polygon", addr) }
func IsWETHContract(addr string) bool   { return inSet("weth", addr) }
func IsBurnAddress(addr string) bool    { return inSet("burn", addr) }
func IsIgnoredAddress(addr string) bool { return inSet("ignore", addr) }

func IsBridge(addr string) bool {
	return IsRoninBridge(addr) || IsPolygonBridge(addr)
}
