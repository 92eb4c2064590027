package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossledger/reconciler/internal/domain"
)

const transactionColumns = `id, external_id, provider, amount, currency,
	description, reference, transaction_date, status, matched_transaction_id,
	created_at`

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) *TransactionRepo {
	return &TransactionRepo{db: db}
}

func (r *TransactionRepo) Insert(t *domain.Transaction) error {
	_, err := r.db.Exec(
		`INSERT INTO transactions
		(id, external_id, provider, amount, currency, description, reference,
		 transaction_date, status, matched_transaction_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		t.ID, nullableString(t.ExternalID), string(t.Provider),
		t.Amount.StringFixed(2), t.Currency, nullableString(t.Description),
		nullableString(t.Reference), t.TransactionDate.Format(time.RFC3339),
		string(t.Status), nullableString(t.MatchedTransactionID),
		t.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// BulkInsert inserts many transactions in one SQL transaction, skipping ids
// that already exist. Used for seeding.
func (r *TransactionRepo) BulkInsert(txns []domain.Transaction) (int, error) {
	sqlTx, err := r.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	stmt, err := sqlTx.Prepare(
		`INSERT OR IGNORE INTO transactions
		(id, external_id, provider, amount, currency, description, reference,
		 transaction_date, status, matched_transaction_id, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
	)
	if err != nil {
		return 0, fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for i := range txns {
		t := &txns[i]
		res, err := stmt.Exec(
			t.ID, nullableString(t.ExternalID), string(t.Provider),
			t.Amount.StringFixed(2), t.Currency, nullableString(t.Description),
			nullableString(t.Reference), t.TransactionDate.Format(time.RFC3339),
			string(t.Status), nullableString(t.MatchedTransactionID),
			t.CreatedAt.Format(time.RFC3339Nano),
		)
		if err != nil {
			return inserted, fmt.Errorf("insert row %d: %w", i, err)
		}
		ra, _ := res.RowsAffected()
		inserted += int(ra)
	}

	if err := sqlTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return inserted, nil
}

func (r *TransactionRepo) Count() (int, error) {
	var count int
	err := r.db.QueryRow("SELECT COUNT(*) FROM transactions").Scan(&count)
	return count, err
}

// GetByID loads one transaction. Returns domain.ErrNotFound if absent.
func (r *TransactionRepo) GetByID(id string) (*domain.Transaction, error) {
	row := r.db.QueryRow(
		"SELECT "+transactionColumns+" FROM transactions WHERE id = ?", id,
	)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return t, err
}

type TransactionFilter struct {
	Status   string
	Provider string
	Currency string
	From     *time.Time
	To       *time.Time
	Page     int
	Limit    int
}

func (r *TransactionRepo) List(f TransactionFilter) ([]domain.Transaction, int, error) {
	where, args := buildTransactionWhere(f)

	var total int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM transactions"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count: %w", err)
	}

	if f.Limit <= 0 {
		f.Limit = 50
	}
	if f.Page <= 0 {
		f.Page = 1
	}
	offset := (f.Page - 1) * f.Limit

	query := "SELECT " + transactionColumns + " FROM transactions" + where +
		" ORDER BY transaction_date DESC, created_at DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, offset)

	txns, err := r.queryTransactions(query, args...)
	if err != nil {
		return nil, 0, err
	}
	return txns, total, nil
}

// ListPending returns every pending transaction, oldest first. Used to warm
// the match index at startup.
func (r *TransactionRepo) ListPending() ([]domain.Transaction, error) {
	return r.queryTransactions(
		"SELECT " + transactionColumns + ` FROM transactions
		 WHERE status = 'pending' ORDER BY created_at`,
	)
}

// MatchPair atomically transitions both transactions from pending to matched
// with mutual matched_transaction_id references. The conditional updates run
// inside one SQL transaction, in ascending-id order; if either row is no
// longer pending the whole transition rolls back and domain.ErrMatchConflict
// is returned.
func (r *TransactionRepo) MatchPair(aID, bID string) error {
	if aID == bID {
		return domain.ErrConstraintViolation
	}

	first, second := aID, bID
	if second < first {
		first, second = second, first
	}

	sqlTx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer sqlTx.Rollback()

	if err := claimPending(sqlTx, first, counterpartOf(first, aID, bID)); err != nil {
		return err
	}
	if err := claimPending(sqlTx, second, counterpartOf(second, aID, bID)); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func counterpartOf(id, aID, bID string) string {
	if id == aID {
		return bID
	}
	return aID
}

func claimPending(sqlTx *sql.Tx, id, matchedID string) error {
	res, err := sqlTx.Exec(
		`UPDATE transactions SET status = ?, matched_transaction_id = ?
		 WHERE id = ? AND status = ? AND matched_transaction_id IS NULL`,
		string(domain.StatusMatched), matchedID, id, string(domain.StatusPending),
	)
	if err != nil {
		return fmt.Errorf("claim %s: %w", id, err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if ra != 1 {
		return domain.ErrMatchConflict
	}
	return nil
}

// StatusCount is one row of the reconciliation summary.
type StatusCount struct {
	Provider string `json:"provider"`
	Status   string `json:"status"`
	Count    int    `json:"count"`
}

func (r *TransactionRepo) CountByProviderStatus() ([]StatusCount, error) {
	rows, err := r.db.Query(
		`SELECT provider, status, COUNT(*) FROM transactions
		 GROUP BY provider, status ORDER BY provider, status`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StatusCount
	for rows.Next() {
		var sc StatusCount
		if err := rows.Scan(&sc.Provider, &sc.Status, &sc.Count); err != nil {
			return nil, err
		}
		result = append(result, sc)
	}
	return result, rows.Err()
}

// CurrencyVolume aggregates matched amounts per currency. Sums are computed
// in Go so amounts stay exact decimals rather than REAL arithmetic.
type CurrencyVolume struct {
	Currency   string          `json:"currency"`
	Matched    int             `json:"matched"`
	MatchedSum decimal.Decimal `json:"matched_sum"`
}

func (r *TransactionRepo) MatchedVolumeByCurrency() ([]CurrencyVolume, error) {
	rows, err := r.db.Query(
		"SELECT currency, amount FROM transactions WHERE status = 'matched' ORDER BY currency",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byCurrency := make(map[string]*CurrencyVolume)
	var order []string
	for rows.Next() {
		var code, amountStr string
		if err := rows.Scan(&code, &amountStr); err != nil {
			return nil, err
		}
		amount, err := decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
		}
		cv, ok := byCurrency[code]
		if !ok {
			cv = &CurrencyVolume{Currency: code}
			byCurrency[code] = cv
			order = append(order, code)
		}
		cv.Matched++
		cv.MatchedSum = cv.MatchedSum.Add(amount)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]CurrencyVolume, 0, len(order))
	for _, code := range order {
		result = append(result, *byCurrency[code])
	}
	return result, nil
}

// --- helpers ---

func buildTransactionWhere(f TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Status != "" {
		clauses = append(clauses, "status = ?")
		args = append(args, f.Status)
	}
	if f.Provider != "" {
		clauses = append(clauses, "provider = ?")
		args = append(args, f.Provider)
	}
	if f.Currency != "" {
		clauses = append(clauses, "currency = ?")
		args = append(args, f.Currency)
	}
	if f.From != nil {
		clauses = append(clauses, "transaction_date >= ?")
		args = append(args, f.From.Format(time.RFC3339))
	}
	if f.To != nil {
		clauses = append(clauses, "transaction_date <= ?")
		args = append(args, f.To.Format(time.RFC3339))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (r *TransactionRepo) queryTransactions(query string, args ...any) ([]domain.Transaction, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		txns = append(txns, *t)
	}
	return txns, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var provider, status, amountStr, txnDate, createdAt string
	var externalID, description, reference, matchedID sql.NullString

	err := row.Scan(
		&t.ID, &externalID, &provider, &amountStr, &t.Currency,
		&description, &reference, &txnDate, &status, &matchedID, &createdAt,
	)
	if err != nil {
		return nil, err
	}

	t.Provider = domain.Provider(provider)
	t.Status = domain.ReconciliationStatus(status)
	t.ExternalID = externalID.String
	t.Description = description.String
	t.Reference = reference.String
	t.MatchedTransactionID = matchedID.String

	t.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount %q: %w", amountStr, err)
	}
	t.TransactionDate, err = time.Parse(time.RFC3339, txnDate)
	if err != nil {
		return nil, fmt.Errorf("parse transaction_date %q: %w", txnDate, err)
	}
	t.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}

	return &t, nil
}
