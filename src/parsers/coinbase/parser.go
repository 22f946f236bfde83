package coinbase

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Roklion/NFT-Extract/src/models"
)

// CoinbaseParser reads the transaction report CSV Coinbase exports. The
// report carries a free-form preamble before the actual header row, so the
// parser scans forward until the line starting with "Timestamp," and treats
// everything from there as CSV.
type CoinbaseParser struct{}

func NewParser() *CoinbaseParser {
	return &CoinbaseParser{}
}

func (p *CoinbaseParser) Parse(file io.Reader) ([]models.CoinbaseTransaction, error) {
	reader, err := skipPreamble(file)
	if err != nil {
		return nil, err
	}

	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"Timestamp", "Transaction Type", "Asset", "Quantity Transacted", "Spot Price at Transaction"} {
		if _, ok := columns[required]; !ok {
			return nil, fmt.Errorf("coinbase export missing %q column", required)
		}
	}

	var txns []models.CoinbaseTransaction
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV record: %w", err)
		}

		ts, err := time.Parse("2006-01-02T15:04:05Z", field(record, columns, "Timestamp"))
		if err != nil {
			log.Printf("Skipping row due to invalid timestamp: %s", field(record, columns, "Timestamp"))
			continue
		}

		quantity, err := decimal.NewFromString(field(record, columns, "Quantity Transacted"))
		if err != nil {
			log.Printf("Skipping row due to invalid quantity: %s", field(record, columns, "Quantity Transacted"))
			continue
		}
		spotPrice, err := decimal.NewFromString(field(record, columns, "Spot Price at Transaction"))
		if err != nil {
			log.Printf("Skipping row due to invalid spot price: %s", field(record, columns, "Spot Price at Transaction"))
			continue
		}
		fees := decimal.Zero
		if feesStr := field(record, columns, "Fees"); feesStr != "" {
			if parsed, err := decimal.NewFromString(feesStr); err == nil {
				fees = parsed
			}
		}

		txns = append(txns, models.CoinbaseTransaction{
			Timestamp:          ts.UTC().Unix(),
			TransactionType:    strings.ToLower(field(record, columns, "Transaction Type")),
			Asset:              field(record, columns, "Asset"),
			QuantityTransacted: quantity,
			SpotPriceFiat:      spotPrice,
			Fees:               fees,
			Notes:              field(record, columns, "Notes"),
		})
	}

	return txns, nil
}

// skipPreamble consumes report lines up to (not including) the header row.
func skipPreamble(file io.Reader) (io.Reader, error) {
	reader := bufio.NewReader(file)
	var buffered strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if strings.HasPrefix(line, "Timestamp,") {
			buffered.WriteString(line)
			break
		}
		if err == io.EOF {
			return nil, fmt.Errorf("coinbase export has no %q header row", "Timestamp,")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to scan coinbase export preamble: %w", err)
		}
	}
	return io.MultiReader(strings.NewReader(buffered.String()), reader), nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
