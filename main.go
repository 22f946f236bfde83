package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Roklion/NFT-Extract/src/config"
	"github.com/Roklion/NFT-Extract/src/contract"
	"github.com/Roklion/NFT-Extract/src/database"
	"github.com/Roklion/NFT-Extract/src/handlers"
	"github.com/Roklion/NFT-Extract/src/logger"
	"github.com/Roklion/NFT-Extract/src/services"
	"github.com/Roklion/NFT-Extract/src/utils"
)

var rootCmd = &cobra.Command{
	Use:   "nft-extract",
	Short: "Reconstruct a tax ledger from on-chain and exchange transaction feeds",
	Long: `nft-extract retrieves a wallet's on-chain transactions and an exchange's
transaction report, classifies every transaction, and walks a lot-based
cost-basis ledger to produce a balance timeline and realized tax events.`,
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a full analysis and write the report JSON",
	RunE:  runAnalyze,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report API over HTTP",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(serveCmd)

	analyzeCmd.Flags().StringP("output", "o", "report.json", "Path for the report JSON")
	analyzeCmd.Flags().Bool("email", false, "Email the report summary after the run")
}

// initApp performs the shared bootstrap: config, logger, address book,
// database. Returns the wired report service.
func initApp() (*services.ReportService, error) {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("nft-extract starting...")

	if config.Cfg.EtherscanAPIKey == "" {
		return nil, fmt.Errorf("ETHERSCAN_API_KEY is not configured")
	}
	if len(config.Cfg.EthWallets) == 0 {
		return nil, fmt.Errorf("ETH_WALLETS is not configured")
	}

	if err := utils.InitAddressBook(config.Cfg.KnownAddressesPath); err != nil {
		return nil, fmt.Errorf("address book: %w", err)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)

	chainService := services.NewEtherscanService(config.Cfg.EtherscanAPIKey, "")
	priceService := services.NewPriceService(
		config.Cfg.PriceCallsPerSecond, config.Cfg.PriceCallsPerMinute, "")
	resolver := contract.NewResolver(chainService)

	return services.NewReportService(chainService, priceService, resolver), nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	reportService, err := initApp()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := reportService.GenerateReport(ctx)
	if err != nil {
		// A partial report is still worth writing for inspection.
		if report != nil {
			outputPath, _ := cmd.Flags().GetString("output")
			partialPath := partialReportPath(outputPath)
			if writeErr := writeReportJSON(partialPath, report); writeErr == nil {
				logger.L.Warn("Wrote partial report", "path", partialPath)
			}
		}
		return err
	}

	outputPath, _ := cmd.Flags().GetString("output")
	if err := writeReportJSON(outputPath, report); err != nil {
		return err
	}
	logger.L.Info("Report written", "path", outputPath,
		"taxEvents", len(report.TaxEvents), "totalGain", report.TotalGain)

	if sendEmail, _ := cmd.Flags().GetBool("email"); sendEmail {
		emailService := services.NewEmailService()
		if err := emailService.SendReportSummary(ctx, report); err != nil {
			logger.L.Error("Failed to send report summary", "error", err)
		}
	}
	return nil
}

func runServe(cmd *cobra.Command, args []string) error {
	reportService, err := initApp()
	if err != nil {
		return err
	}

	reportHandler := handlers.NewReportHandler(reportService)
	router := handlers.NewRouter(reportHandler)

	server := &http.Server{
		Addr:         ":" + config.Cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 10 * time.Minute, // report generation happens in-request
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.L.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.L.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func writeReportJSON(path string, report *services.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report to %s: %w", path, err)
	}
	return nil
}

func partialReportPath(outputPath string) string {
	ext := filepath.Ext(outputPath)
	return outputPath[:len(outputPath)-len(ext)] + ".partial" + ext
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
