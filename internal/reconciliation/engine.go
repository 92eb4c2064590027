// Package reconciliation decides and atomically applies intercompany matches.
package reconciliation

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/crossledger/reconciler/internal/domain"
	"github.com/crossledger/reconciler/internal/matchindex"
)

// TransactionStore is the persistence contract the engine depends on.
type TransactionStore interface {
	// GetByID returns domain.ErrNotFound when the id does not exist.
	GetByID(id string) (*domain.Transaction, error)
	// MatchPair atomically transitions both ids pending -> matched with
	// mutual references, returning domain.ErrMatchConflict if either side
	// was claimed concurrently.
	MatchPair(aID, bID string) error
}

// Result is the outcome of a reconciliation attempt. Pending with an empty
// MatchedTransactionID means no eligible counterpart was found, which is a
// normal outcome.
type Result struct {
	TransactionID        string                      `json:"transaction_id"`
	Status               domain.ReconciliationStatus `json:"status"`
	MatchedTransactionID string                      `json:"matched_transaction_id,omitempty"`
}

// Engine matches one transaction against indexed counterparts and applies
// the pairwise state transition. Engines are explicit instances; several may
// run concurrently against the same store and index.
// The date window is not a field: the engine always reads it from the index,
// so the candidate filter and the matching predicate agree on one value.
type Engine struct {
	store           TransactionStore
	index           *matchindex.Index
	log             *logrus.Logger
	amountTolerance decimal.Decimal
}

func NewEngine(store TransactionStore, index *matchindex.Index, log *logrus.Logger) *Engine {
	return &Engine{
		store:           store,
		index:           index,
		log:             log,
		amountTolerance: domain.DefaultAmountTolerance,
	}
}

// WithAmountTolerance overrides the amount tolerance. Non-positive values
// keep the default.
func (e *Engine) WithAmountTolerance(amountTolerance decimal.Decimal) *Engine {
	if amountTolerance.IsPositive() {
		e.amountTolerance = amountTolerance
	}
	return e
}

// Reconcile attempts to match the given transaction against the best
// available counterpart. Already-matched transactions return their existing
// match unchanged. A transaction left pending because no candidate passed
// the predicate (or every passing candidate was claimed concurrently) is not
// an error.
func (e *Engine) Reconcile(id string) (*Result, error) {
	txn, err := e.store.GetByID(id)
	if err != nil {
		return nil, err
	}

	if txn.Status == domain.StatusMatched {
		if err := e.verifySymmetry(txn); err != nil {
			return nil, err
		}
		return &Result{
			TransactionID:        txn.ID,
			Status:               domain.StatusMatched,
			MatchedTransactionID: txn.MatchedTransactionID,
		}, nil
	}

	for _, candidateID := range e.index.Query(txn) {
		candidate, err := e.store.GetByID(candidateID)
		if errors.Is(err, domain.ErrNotFound) {
			// Deleted out from under the index; drop the stale entry.
			e.index.RemoveID(txn.Currency, txn.Provider.Counterpart(), candidateID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load candidate %s: %w", candidateID, err)
		}

		if candidate.Status != domain.StatusPending {
			e.index.Remove(candidate)
			continue
		}
		if !domain.CanMatch(txn, candidate, e.amountTolerance, e.index.DateWindowDays()) {
			continue
		}

		err = e.store.MatchPair(txn.ID, candidate.ID)
		if errors.Is(err, domain.ErrMatchConflict) {
			// Either the candidate was claimed between query and transition,
			// or we were. Check ourselves before moving on.
			refreshed, rerr := e.store.GetByID(txn.ID)
			if rerr != nil {
				return nil, rerr
			}
			if refreshed.Status == domain.StatusMatched {
				e.index.Remove(txn)
				return &Result{
					TransactionID:        refreshed.ID,
					Status:               domain.StatusMatched,
					MatchedTransactionID: refreshed.MatchedTransactionID,
				}, nil
			}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("match pair %s/%s: %w", txn.ID, candidate.ID, err)
		}

		e.index.Remove(txn)
		e.index.Remove(candidate)

		e.log.WithFields(logrus.Fields{
			"transaction_id": txn.ID,
			"matched_id":     candidate.ID,
			"provider":       txn.Provider,
			"currency":       txn.Currency,
			"amount":         txn.Amount.StringFixed(2),
			"date_distance":  domain.DateDistanceDays(txn.TransactionDate, candidate.TransactionDate),
		}).Info("transactions matched")

		return &Result{
			TransactionID:        txn.ID,
			Status:               domain.StatusMatched,
			MatchedTransactionID: candidate.ID,
		}, nil
	}

	return &Result{TransactionID: txn.ID, Status: domain.StatusPending}, nil
}

// verifySymmetry checks the stored counterpart of an already-matched
// transaction. A missing or non-mutual counterpart means corruption upstream
// of the engine; it is surfaced, never repaired.
func (e *Engine) verifySymmetry(txn *domain.Transaction) error {
	if txn.MatchedTransactionID == "" {
		return fmt.Errorf("%s matched without counterpart: %w",
			txn.ID, domain.ErrConstraintViolation)
	}
	counterpart, err := e.store.GetByID(txn.MatchedTransactionID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%s references missing counterpart %s: %w",
			txn.ID, txn.MatchedTransactionID, domain.ErrConstraintViolation)
	}
	if err != nil {
		return err
	}
	if counterpart.MatchedTransactionID != txn.ID {
		return fmt.Errorf("%s and %s are not mutually matched: %w",
			txn.ID, counterpart.ID, domain.ErrConstraintViolation)
	}
	return nil
}
