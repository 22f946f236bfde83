package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/config"
	"github.com/Roklion/NFT-Extract/src/database"
	"github.com/Roklion/NFT-Extract/src/ledger"
	"github.com/Roklion/NFT-Extract/src/logger"
	"github.com/Roklion/NFT-Extract/src/models"
	"github.com/Roklion/NFT-Extract/src/parsers"
	"github.com/Roklion/NFT-Extract/src/processors"
)

const reportCacheKey = "latest_report"

// Report is the result of one full analysis run.
type Report struct {
	RunID        uuid.UUID                      `json:"run_id"`
	GeneratedAt  time.Time                      `json:"generated_at"`
	Method       string                         `json:"cost_method"`
	Wallets      []string                       `json:"wallets"`
	Transactions []models.ClassifiedTransaction `json:"transactions"`
	Balances     []ledger.LedgerState           `json:"balances"`
	TaxEvents    []ledger.TaxEvent              `json:"tax_events"`
	TotalGain    decimal.Decimal                `json:"total_gain"`
}

// ReportService runs the full pipeline: feed retrieval, grouping,
// enrichment, classification, stream merge, and the ledger walk.
type ReportService struct {
	chain    ChainService
	prices   PriceService
	resolver processors.FunctionResolver
	cache    *gocache.Cache
}

func NewReportService(chain ChainService, prices PriceService, resolver processors.FunctionResolver) *ReportService {
	return &ReportService{
		chain:    chain,
		prices:   prices,
		resolver: resolver,
		cache:    gocache.New(1*time.Hour, 10*time.Minute),
	}
}

// GenerateReport runs the pipeline for the configured wallets and time
// window. On a ledger error the partial report up to the failure point is
// returned alongside the error so progress can still be inspected.
func (s *ReportService) GenerateReport(ctx context.Context) (*Report, error) {
	cfg := config.Cfg
	startTs, endTs := analysisWindow(cfg)
	logger.L.Info("Starting analysis run",
		"wallets", len(cfg.EthWallets), "method", cfg.CostMethod,
		"start", startTs, "end", endTs)

	coinbaseTxns, err := s.loadCoinbaseTransactions(cfg.DataPath)
	if err != nil {
		return nil, err
	}

	classifier := processors.NewClassifyProcessor(cfg.EthWallets, s.resolver)
	enricher := processors.NewEnrichProcessor(s.prices)

	var chainClassified []models.ClassifiedTransaction
	for _, wallet := range cfg.EthWallets {
		groups, err := s.walletGroups(ctx, wallet, startTs, endTs)
		if err != nil {
			return nil, err
		}
		logger.L.Info("Processing wallet transactions", "wallet", wallet, "groups", len(groups))

		for _, group := range groups {
			enriched, err := enricher.Process(ctx, group)
			if err != nil {
				return nil, err
			}
			classified, err := classifier.ClassifyChain(ctx, enriched)
			if err != nil {
				return nil, err
			}
			chainClassified = append(chainClassified, classified)
		}
	}

	var cbClassified []models.ClassifiedTransaction
	for _, txn := range coinbaseTxns {
		if txn.Timestamp < startTs || txn.Timestamp > endTs {
			continue
		}
		classified, relevant, err := classifier.ClassifyCoinbase(txn, "ETH")
		if err != nil {
			return nil, err
		}
		if relevant {
			cbClassified = append(cbClassified, classified)
		}
	}

	merged := processors.MergeByTimestamp(cbClassified, chainClassified)
	logger.L.Info("Transaction streams merged",
		"coinbase", len(cbClassified), "chain", len(chainClassified))

	strategy := ledger.StrategyByName(cfg.CostMethod)
	walker := ledger.NewLedgerWalker(strategy)
	balances, taxEvents, walkErr := walker.Process(merged)

	totalGain := decimal.Zero
	for _, event := range taxEvents {
		totalGain = totalGain.Add(event.Gain())
	}

	report := &Report{
		RunID:        uuid.New(),
		GeneratedAt:  time.Now().UTC(),
		Method:       strategy.Name(),
		Wallets:      cfg.EthWallets,
		Transactions: merged,
		Balances:     balances,
		TaxEvents:    taxEvents,
		TotalGain:    totalGain,
	}
	if walkErr != nil {
		logger.L.Error("Ledger walk aborted",
			"error", walkErr, "statesProduced", len(balances), "taxEvents", len(taxEvents))
		return report, fmt.Errorf("ledger walk: %w", walkErr)
	}

	s.cache.Set(reportCacheKey, report, gocache.DefaultExpiration)
	logger.L.Info("Analysis run complete",
		"runID", report.RunID, "taxEvents", len(taxEvents), "totalGain", totalGain)
	return report, nil
}

// LatestReport returns the most recent successful run, if still cached.
func (s *ReportService) LatestReport() (*Report, bool) {
	cached, found := s.cache.Get(reportCacheKey)
	if !found {
		return nil, false
	}
	return cached.(*Report), true
}

// walletGroups returns the grouped feed for one wallet, from the database
// cache when available and fresh retrieval otherwise.
func (s *ReportService) walletGroups(ctx context.Context, wallet string, startTs, endTs int64) ([]models.TransactionGroup, error) {
	if !config.Cfg.ForceNewData && database.DB != nil {
		groups, found, err := database.GetTransactionGroups(wallet)
		if err != nil {
			return nil, err
		}
		if found {
			logger.L.Info("Using cached transaction groups", "wallet", wallet, "groups", len(groups))
			return groups, nil
		}
	}

	normal, err := s.chain.NormalTransactions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", wallet, err)
	}
	internal, err := s.chain.InternalTransactions(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", wallet, err)
	}
	erc20, err := s.chain.ERC20Transfers(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", wallet, err)
	}
	erc721, err := s.chain.ERC721Transfers(ctx, wallet)
	if err != nil {
		return nil, fmt.Errorf("wallet %s: %w", wallet, err)
	}
	erc1155, err := s.loadERC1155Rows(config.Cfg.DataPath, wallet)
	if err != nil {
		return nil, err
	}

	normal = filterByWindow(normal, startTs, endTs)
	groups := processors.NewGroupProcessor().Process(normal, internal, erc20, erc721, erc1155)

	if database.DB != nil {
		if err := database.SaveTransactionGroups(wallet, groups); err != nil {
			logger.L.Warn("Failed to cache transaction groups", "wallet", wallet, "error", err)
		}
	}
	return groups, nil
}

// loadCoinbaseTransactions parses the first CSV found under
// dataPath/Coinbase/.
func (s *ReportService) loadCoinbaseTransactions(dataPath string) ([]models.CoinbaseTransaction, error) {
	dir := filepath.Join(dataPath, "Coinbase")
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read exchange export directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".csv") {
			continue
		}
		file, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("open exchange export %s: %w", entry.Name(), err)
		}
		defer file.Close()

		parser, err := parsers.GetExchangeParser("coinbase")
		if err != nil {
			return nil, err
		}
		txns, err := parser.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("parse exchange export %s: %w", entry.Name(), err)
		}
		logger.L.Info("Parsed exchange export", "file", entry.Name(), "rows", len(txns))
		return txns, nil
	}
	return nil, fmt.Errorf("no CSV export found under %s", dir)
}

// loadERC1155Rows parses the export under dataPath/ERC1155/ whose filename
// contains the wallet address. A missing file is not an error; most wallets
// hold no ERC-1155 tokens.
func (s *ReportService) loadERC1155Rows(dataPath, wallet string) ([]models.ERC1155Row, error) {
	dir := filepath.Join(dataPath, "ERC1155")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read ERC-1155 export directory %s: %w", dir, err)
	}
	for _, entry := range entries {
		name := strings.ToLower(entry.Name())
		if entry.IsDir() || !strings.HasSuffix(name, ".csv") || !strings.Contains(name, strings.ToLower(wallet)) {
			continue
		}
		file, err := os.Open(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("open ERC-1155 export %s: %w", entry.Name(), err)
		}
		defer file.Close()

		parser, err := parsers.GetTokenTransferParser("erc1155")
		if err != nil {
			return nil, err
		}
		rows, err := parser.Parse(file)
		if err != nil {
			return nil, fmt.Errorf("parse ERC-1155 export %s: %w", entry.Name(), err)
		}
		return rows, nil
	}
	logger.L.Warn("No ERC-1155 export found for wallet", "wallet", wallet)
	return nil, nil
}

func filterByWindow(txns []models.EtherscanTransaction, startTs, endTs int64) []models.EtherscanTransaction {
	filtered := make([]models.EtherscanTransaction, 0, len(txns))
	for _, txn := range txns {
		ts, err := strconv.ParseInt(txn.TimeStamp, 10, 64)
		if err != nil {
			logger.L.Warn("Skipping transaction with malformed timestamp",
				"hash", txn.Hash, "timestamp", txn.TimeStamp)
			continue
		}
		if ts < startTs || ts > endTs {
			continue
		}
		filtered = append(filtered, txn)
	}
	return filtered
}

func analysisWindow(cfg *config.AppConfig) (int64, int64) {
	startTs := int64(0)
	if !cfg.StartDate.IsZero() {
		startTs = cfg.StartDate.Unix()
	}
	endTs := time.Now().Unix()
	if !cfg.EndDate.IsZero() {
		endTs = cfg.EndDate.Unix()
	}
	return startTs, endTs
}
