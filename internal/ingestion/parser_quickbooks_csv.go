package ingestion

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ParseQuickBooksCSV parses a QuickBooks transaction list export.
//
// Expected header:
//
//	Transaction ID,Date,Amount,Currency,Memo,Ref Number
func ParseQuickBooksCSV(data []byte) ([]NewTransaction, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) < 6 {
		return nil, fmt.Errorf("expected 6 columns, got %d", len(header))
	}

	var rows []NewTransaction
	lineNum := 1
	for {
		lineNum++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Includes rows with the wrong column count; the reader pins
			// FieldsPerRecord from the header.
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		txnID := strings.TrimSpace(row[0])
		if txnID == "" {
			return nil, fmt.Errorf("line %d: missing transaction id", lineNum)
		}

		date, err := parseQuickBooksDate(strings.TrimSpace(row[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		amount, err := decimal.NewFromString(strings.TrimSpace(row[2]))
		if err != nil {
			return nil, fmt.Errorf("line %d amount: %w", lineNum, err)
		}

		rows = append(rows, NewTransaction{
			ExternalID:      txnID,
			Amount:          amount,
			Currency:        strings.TrimSpace(row[3]),
			Description:     strings.TrimSpace(row[4]),
			Reference:       strings.TrimSpace(row[5]),
			TransactionDate: date,
		})
	}

	return rows, nil
}

func parseQuickBooksDate(s string) (time.Time, error) {
	// QuickBooks exports US-style dates; ISO appears in API pulls.
	for _, layout := range []string{"01/02/2006", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
