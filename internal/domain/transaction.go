package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReconciliationStatus string

const (
	StatusPending ReconciliationStatus = "pending"
	StatusMatched ReconciliationStatus = "matched"
)

type Provider string

const (
	ProviderXero       Provider = "xero"
	ProviderQuickBooks Provider = "quickbooks"
)

// Valid reports whether p is one of the two supported providers.
func (p Provider) Valid() bool {
	return p == ProviderXero || p == ProviderQuickBooks
}

// Counterpart returns the opposite provider. Intercompany transfers are
// recorded exactly once per side, so there are always two.
func (p Provider) Counterpart() Provider {
	if p == ProviderXero {
		return ProviderQuickBooks
	}
	return ProviderXero
}

type Transaction struct {
	ID                   string               `json:"id"`
	ExternalID           string               `json:"external_id,omitempty"`
	Provider             Provider             `json:"provider"`
	Amount               decimal.Decimal      `json:"amount"`
	Currency             string               `json:"currency"`
	Description          string               `json:"description,omitempty"`
	Reference            string               `json:"reference,omitempty"`
	TransactionDate      time.Time            `json:"transaction_date"`
	Status               ReconciliationStatus `json:"status"`
	MatchedTransactionID string               `json:"matched_transaction_id,omitempty"`
	CreatedAt            time.Time            `json:"created_at"`
}
