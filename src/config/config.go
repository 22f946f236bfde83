package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	EtherscanAPIKey    string
	EthWallets         []string // holder-controlled addresses, lowercased
	DataPath           string   // directory holding Coinbase/ and ERC1155/ exports
	DatabasePath       string
	KnownAddressesPath string // optional overrides for the built-in address book
	LogLevel           string
	Port               string
	CostMethod         string // HIFO (default), FIFO, LIFO
	StartDate          time.Time
	EndDate            time.Time
	ForceNewData       bool // bypass the transaction cache and refetch

	PriceCallsPerSecond int
	PriceCallsPerMinute int

	MailgunDomain        string
	MailgunPrivateAPIKey string
	SenderEmail          string
	ReportRecipient      string
}

var Cfg *AppConfig

func LoadConfig() {
	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found. Relying on OS environment variables and defaults. Error (if any):", err)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	apiKey := getEnv("ETHERSCAN_API_KEY", "")
	if apiKey == "" {
		log.Println("WARNING: ETHERSCAN_API_KEY not set. On-chain transaction retrieval will fail.")
	}

	var wallets []string
	for _, w := range strings.Split(getEnv("ETH_WALLETS", ""), ",") {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			wallets = append(wallets, w)
		}
	}
	if len(wallets) == 0 {
		log.Println("WARNING: ETH_WALLETS is empty. No on-chain transactions can be attributed to the holder.")
	}

	startDate := parseDateEnv("START_DATE", time.Time{})
	endDate := parseDateEnv("END_DATE", time.Now().UTC())
	if !startDate.IsZero() && endDate.Before(startDate) {
		log.Fatalf("FATAL: END_DATE %s precedes START_DATE %s", endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}

	costMethod := strings.ToUpper(getEnv("COST_METHOD", "HIFO"))
	switch costMethod {
	case "HIFO", "FIFO", "LIFO":
	default:
		log.Printf("WARNING: Unknown COST_METHOD %q, defaulting to HIFO", costMethod)
		costMethod = "HIFO"
	}

	Cfg = &AppConfig{
		EtherscanAPIKey:    apiKey,
		EthWallets:         wallets,
		DataPath:           getEnv("DATA_PATH", "./data"),
		DatabasePath:       getEnv("DATABASE_PATH", "./nftextract.db"),
		KnownAddressesPath: getEnv("KNOWN_ADDRESSES_PATH", ""),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		CostMethod:         costMethod,
		StartDate:          startDate,
		EndDate:            endDate,
		ForceNewData:       getEnvAsBool("FORCE_NEW_DATA", false),

		// CoinGecko allows 50/min and 8/s; stay well under both.
		PriceCallsPerSecond: getEnvAsInt("PRICE_CALLS_PER_SECOND", 4),
		PriceCallsPerMinute: getEnvAsInt("PRICE_CALLS_PER_MINUTE", 25),

		MailgunDomain:        getEnv("MAILGUN_DOMAIN", ""),
		MailgunPrivateAPIKey: getEnv("MAILGUN_PRIVATE_API_KEY", ""),
		SenderEmail:          getEnv("SENDER_EMAIL", ""),
		ReportRecipient:      getEnv("REPORT_RECIPIENT", ""),
	}

	log.Printf("Configuration loaded: Wallets=%d, CostMethod=%s, DataPath=%s, DBPath=%s, LogLevel=%s",
		len(Cfg.EthWallets), Cfg.CostMethod, Cfg.DataPath, Cfg.DatabasePath, Cfg.LogLevel)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

func parseDateEnv(key string, fallback time.Time) time.Time {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.Parse("2006-01-02", valueStr); err == nil {
		return value
	}
	log.Printf("Invalid date for %s ('%s', want YYYY-MM-DD), using default: %s", key, valueStr, fallback.Format("2006-01-02"))
	return fallback
}
