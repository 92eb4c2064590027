package ingestion

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// xeroExport mirrors the relevant slice of a Xero bank transactions export.
type xeroExport struct {
	BankTransactions []struct {
		BankTransactionID string          `json:"BankTransactionID"`
		Reference         string          `json:"Reference"`
		Total             decimal.Decimal `json:"Total"`
		CurrencyCode      string          `json:"CurrencyCode"`
		DateString        string          `json:"DateString"`
		Contact           struct {
			Name string `json:"Name"`
		} `json:"Contact"`
	} `json:"BankTransactions"`
}

// ParseXeroJSON parses a Xero bank transactions JSON export into ingestable
// rows. The provider is filled in by the caller.
func ParseXeroJSON(data []byte) ([]NewTransaction, error) {
	var export xeroExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	rows := make([]NewTransaction, 0, len(export.BankTransactions))
	for i, bt := range export.BankTransactions {
		if bt.BankTransactionID == "" {
			return nil, fmt.Errorf("entry %d: missing BankTransactionID", i)
		}
		date, err := parseXeroDate(bt.DateString)
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		rows = append(rows, NewTransaction{
			ExternalID:      bt.BankTransactionID,
			Amount:          bt.Total,
			Currency:        bt.CurrencyCode,
			Description:     bt.Contact.Name,
			Reference:       bt.Reference,
			TransactionDate: date,
		})
	}
	return rows, nil
}

func parseXeroDate(s string) (time.Time, error) {
	// Xero's DateString has no zone designator.
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
