package erc1155

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/Roklion/NFT-Extract/src/models"
)

// ERC1155Parser reads the per-wallet ERC-1155 transfer spreadsheet exported
// from the block explorer; there is no account API for these transfers.
type ERC1155Parser struct{}

func NewParser() *ERC1155Parser {
	return &ERC1155Parser{}
}

func (p *ERC1155Parser) Parse(file io.Reader) ([]models.ERC1155Row, error) {
	csvReader := csv.NewReader(file)
	csvReader.FieldsPerRecord = -1

	header, err := csvReader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read ERC-1155 CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	if _, ok := columns["Txhash"]; !ok {
		return nil, fmt.Errorf("ERC-1155 export missing %q column", "Txhash")
	}

	var rows []models.ERC1155Row
	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read ERC-1155 CSV record: %w", err)
		}
		rows = append(rows, models.ERC1155Row{
			TxHash:          field(record, columns, "Txhash"),
			ContractAddress: field(record, columns, "ContractAddress"),
			TokenID:         field(record, columns, "TokenId"),
			TokenSymbol:     field(record, columns, "TokenSymbol"),
			TokenName:       field(record, columns, "TokenName"),
			From:            field(record, columns, "From"),
			To:              field(record, columns, "To"),
		})
	}
	return rows, nil
}

func field(record []string, columns map[string]int, name string) string {
	i, ok := columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
