// Package ingestion validates and persists incoming transactions, then hands
// them to the reconciliation engine.
package ingestion

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/crossledger/reconciler/internal/currency"
	"github.com/crossledger/reconciler/internal/domain"
	"github.com/crossledger/reconciler/internal/matchindex"
	"github.com/crossledger/reconciler/internal/reconciliation"
	"github.com/crossledger/reconciler/internal/repository"
)

// NewTransaction is a not-yet-persisted record as submitted by a caller or
// parsed from a provider export.
type NewTransaction struct {
	ExternalID      string          `json:"external_id"`
	Provider        domain.Provider `json:"provider"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Description     string          `json:"description"`
	Reference       string          `json:"reference"`
	TransactionDate time.Time       `json:"transaction_date"`
}

// ImportResult summarises a batch file import.
type ImportResult struct {
	Provider string `json:"provider"`
	Ingested int    `json:"ingested"`
	Skipped  int    `json:"skipped"`
	Matched  int    `json:"matched"`
}

// Service is the ingestion gateway: it owns field validation, persistence
// and index insertion, and triggers reconciliation after each record.
type Service struct {
	txnRepo *repository.TransactionRepo
	index   *matchindex.Index
	engine  *reconciliation.Engine
	log     *logrus.Logger
}

func NewService(
	txnRepo *repository.TransactionRepo,
	index *matchindex.Index,
	engine *reconciliation.Engine,
	log *logrus.Logger,
) *Service {
	return &Service{
		txnRepo: txnRepo,
		index:   index,
		engine:  engine,
		log:     log,
	}
}

// Ingest validates and stores one transaction, indexes it, and attempts an
// immediate reconciliation. A failed reconciliation attempt is logged but
// never fails the ingest; the record stays pending and remains eligible.
func (s *Service) Ingest(in NewTransaction) (*domain.Transaction, error) {
	txn, err := s.validate(in)
	if err != nil {
		return nil, err
	}

	if err := s.txnRepo.Insert(txn); err != nil {
		return nil, fmt.Errorf("persist transaction: %w", err)
	}
	s.index.Insert(txn)

	result, err := s.engine.Reconcile(txn.ID)
	if err != nil {
		s.log.WithError(err).WithField("transaction_id", txn.ID).
			Warn("post-ingest reconciliation failed")
		return txn, nil
	}
	txn.Status = result.Status
	txn.MatchedTransactionID = result.MatchedTransactionID
	return txn, nil
}

// ImportBatch parses a provider export file and ingests every row. Rows that
// fail validation are skipped and counted, not fatal.
//
// format must be one of: xero_json, quickbooks_csv
func (s *Service) ImportBatch(data []byte, provider domain.Provider, format string) (*ImportResult, error) {
	if !provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q: %w", provider, domain.ErrInvalidTransaction)
	}

	var rows []NewTransaction
	var err error
	switch format {
	case "xero_json":
		rows, err = ParseXeroJSON(data)
	case "quickbooks_csv":
		rows, err = ParseQuickBooksCSV(data)
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	result := &ImportResult{Provider: string(provider)}
	for i := range rows {
		rows[i].Provider = provider
		txn, err := s.Ingest(rows[i])
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"provider":    provider,
				"external_id": rows[i].ExternalID,
			}).Warn("skipping import row")
			result.Skipped++
			continue
		}
		result.Ingested++
		if txn.Status == domain.StatusMatched {
			result.Matched++
		}
	}

	s.log.WithFields(logrus.Fields{
		"provider": provider,
		"ingested": result.Ingested,
		"skipped":  result.Skipped,
		"matched":  result.Matched,
	}).Info("import complete")

	return result, nil
}

func (s *Service) validate(in NewTransaction) (*domain.Transaction, error) {
	if !in.Provider.Valid() {
		return nil, fmt.Errorf("unknown provider %q: %w", in.Provider, domain.ErrInvalidTransaction)
	}
	if !in.Amount.IsPositive() {
		return nil, fmt.Errorf("amount must be positive: %w", domain.ErrInvalidTransaction)
	}
	code := currency.Normalize(in.Currency)
	if !currency.Valid(code) {
		return nil, fmt.Errorf("unsupported currency %q: %w", in.Currency, domain.ErrInvalidTransaction)
	}
	if in.TransactionDate.IsZero() {
		return nil, fmt.Errorf("transaction_date is required: %w", domain.ErrInvalidTransaction)
	}

	return &domain.Transaction{
		ID:              uuid.NewString(),
		ExternalID:      in.ExternalID,
		Provider:        in.Provider,
		Amount:          in.Amount.Round(2),
		Currency:        code,
		Description:     in.Description,
		Reference:       in.Reference,
		TransactionDate: in.TransactionDate.UTC(),
		Status:          domain.StatusPending,
		CreatedAt:       time.Now().UTC(),
	}, nil
}
