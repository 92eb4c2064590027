// Command generate produces demo fixtures: a seedable transactions.json plus
// one import file per provider. The set contains clean intercompany pairs,
// pairs sitting exactly on the amount and date tolerances, and deliberate
// mismatches (currency, date gap, same provider) that must stay pending.
package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/crossledger/reconciler/internal/domain"
)

func main() {
	rng := rand.New(rand.NewSource(42))
	baseDir := findTestdataDir()

	all := buildFixtures(rng)

	writeJSONFile(filepath.Join(baseDir, "transactions.json"), all)
	fmt.Printf("Generated %d transactions -> transactions.json\n", len(all))

	generateXeroJSON(all, baseDir)
	generateQuickBooksCSV(all, baseDir)

	fmt.Println("Test data generation complete.")
}

// buildFixtures produces the full demo set. The first 30 pairs are clean
// matches; everything after them probes a tolerance boundary or a deliberate
// mismatch.
func buildFixtures(rng *rand.Rand) []domain.Transaction {
	startDate := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	currencies := []string{"USD", "EUR", "GBP"}

	var all []domain.Transaction

	newTxn := func(provider domain.Provider, amount string, cur string, dayOffset int, seq int) domain.Transaction {
		day := startDate.AddDate(0, 0, dayOffset)
		return domain.Transaction{
			ID:              uuid.NewString(),
			ExternalID:      fmt.Sprintf("%s-%04d", provider, seq),
			Provider:        provider,
			Amount:          decimal.RequireFromString(amount),
			Currency:        cur,
			Description:     fmt.Sprintf("Intercompany transfer %04d", seq),
			Reference:       fmt.Sprintf("IC-%04d", seq),
			TransactionDate: day,
			Status:          domain.StatusPending,
			CreatedAt:       day.Add(time.Duration(rng.Intn(720)) * time.Minute),
		}
	}

	seq := 0
	amount := func() string {
		return fmt.Sprintf("%d.%02d", 50+rng.Intn(950), rng.Intn(100))
	}

	// Clean pairs: same amount, 0-2 days apart.
	for i := 0; i < 30; i++ {
		seq++
		cur := currencies[rng.Intn(len(currencies))]
		amt := amount()
		day := rng.Intn(7)
		all = append(all,
			newTxn(domain.ProviderXero, amt, cur, day, seq),
			newTxn(domain.ProviderQuickBooks, amt, cur, day+rng.Intn(3), seq),
		)
	}

	// Boundary pairs: amount off by exactly one cent, dates exactly 3 apart.
	for i := 0; i < 5; i++ {
		seq++
		a := decimal.RequireFromString(amount())
		day := rng.Intn(7)
		all = append(all,
			newTxn(domain.ProviderXero, a.StringFixed(2), "USD", day, seq),
			newTxn(domain.ProviderQuickBooks, a.Add(decimal.RequireFromString("0.01")).StringFixed(2), "USD", day+3, seq),
		)
	}

	// Currency mismatches: stay pending forever.
	for i := 0; i < 5; i++ {
		seq++
		amt := amount()
		all = append(all,
			newTxn(domain.ProviderXero, amt, "EUR", rng.Intn(10), seq),
			newTxn(domain.ProviderQuickBooks, amt, "GBP", rng.Intn(10), seq),
		)
	}

	// Date gaps beyond the window.
	for i := 0; i < 5; i++ {
		seq++
		amt := amount()
		day := rng.Intn(5)
		all = append(all,
			newTxn(domain.ProviderXero, amt, "USD", day, seq),
			newTxn(domain.ProviderQuickBooks, amt, "USD", day+4+rng.Intn(5), seq),
		)
	}

	// Same-provider duplicates.
	for i := 0; i < 5; i++ {
		seq++
		amt := amount()
		day := rng.Intn(10)
		all = append(all,
			newTxn(domain.ProviderXero, amt, "USD", day, seq),
			newTxn(domain.ProviderXero, amt, "USD", day, seq),
		)
	}

	return all
}

// generateXeroJSON writes the Xero half of the fixture in the bank
// transactions export shape the importer accepts.
func generateXeroJSON(txns []domain.Transaction, baseDir string) {
	type xeroTxn struct {
		BankTransactionID string  `json:"BankTransactionID"`
		Reference         string  `json:"Reference"`
		Total             float64 `json:"Total"`
		CurrencyCode      string  `json:"CurrencyCode"`
		DateString        string  `json:"DateString"`
		Contact           struct {
			Name string `json:"Name"`
		} `json:"Contact"`
	}

	var out struct {
		BankTransactions []xeroTxn `json:"BankTransactions"`
	}
	for _, t := range txns {
		if t.Provider != domain.ProviderXero {
			continue
		}
		x := xeroTxn{
			BankTransactionID: t.ExternalID,
			Reference:         t.Reference,
			Total:             t.Amount.InexactFloat64(),
			CurrencyCode:      t.Currency,
			DateString:        t.TransactionDate.Format("2006-01-02T15:04:05"),
		}
		x.Contact.Name = t.Description
		out.BankTransactions = append(out.BankTransactions, x)
	}

	writeJSONFile(filepath.Join(baseDir, "xero_bank_transactions.json"), out)
	fmt.Printf("Generated %d Xero entries -> xero_bank_transactions.json\n", len(out.BankTransactions))
}

func generateQuickBooksCSV(txns []domain.Transaction, baseDir string) {
	filePath := filepath.Join(baseDir, "quickbooks_transactions.csv")
	f, err := os.Create(filePath)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Write([]string{"Transaction ID", "Date", "Amount", "Currency", "Memo", "Ref Number"})
	count := 0
	for _, t := range txns {
		if t.Provider != domain.ProviderQuickBooks {
			continue
		}
		w.Write([]string{
			t.ExternalID,
			t.TransactionDate.Format("01/02/2006"),
			t.Amount.StringFixed(2),
			t.Currency,
			t.Description,
			t.Reference,
		})
		count++
	}
	w.Flush()
	if err := w.Error(); err != nil {
		panic(err)
	}
	fmt.Printf("Generated %d QuickBooks rows -> quickbooks_transactions.csv\n", count)
}

func writeJSONFile(path string, v any) {
	f, err := os.Create(path)
	if err != nil {
		panic(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		panic(err)
	}
}

func findTestdataDir() string {
	for _, dir := range []string{"testdata", ".", filepath.Join("..", "..")} {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() {
			if filepath.Base(dir) == "testdata" {
				return dir
			}
			if fi, err := os.Stat(filepath.Join(dir, "testdata")); err == nil && fi.IsDir() {
				return filepath.Join(dir, "testdata")
			}
		}
	}
	return "."
}
