// Package matchindex keeps an in-memory index of pending transactions,
// partitioned by (currency, provider), for fast counterparty candidate
// lookup during reconciliation.
package matchindex

import (
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/crossledger/reconciler/internal/domain"
)

type partitionKey struct {
	currency string
	provider domain.Provider
}

type entry struct {
	id        string
	date      time.Time // calendar date, midnight UTC
	amount    decimal.Decimal
	createdAt time.Time
}

// Index holds pending transactions awaiting a counterpart. All methods are
// safe for concurrent use; a Query never observes a half-applied mutation.
type Index struct {
	mu             sync.RWMutex
	partitions     map[partitionKey][]entry
	dateWindowDays int
}

// New creates an empty index with the given candidate date window.
func New(dateWindowDays int) *Index {
	if dateWindowDays <= 0 {
		dateWindowDays = domain.DefaultDateWindowDays
	}
	return &Index{
		partitions:     make(map[partitionKey][]entry),
		dateWindowDays: dateWindowDays,
	}
}

// Insert adds a pending transaction to its (currency, provider) partition.
// The partition stays ordered by date, then amount, then created_at.
// Transactions that are not pending must not be inserted; they are ignored.
func (x *Index) Insert(t *domain.Transaction) {
	if t.Status != domain.StatusPending {
		return
	}

	e := entry{
		id:        t.ID,
		date:      domain.DayDate(t.TransactionDate),
		amount:    t.Amount,
		createdAt: t.CreatedAt,
	}
	k := partitionKey{currency: t.Currency, provider: t.Provider}

	x.mu.Lock()
	defer x.mu.Unlock()

	part := x.partitions[k]
	for _, existing := range part {
		if existing.id == e.id {
			return
		}
	}
	at := sort.Search(len(part), func(i int) bool { return lessEntry(e, part[i]) })
	part = append(part, entry{})
	copy(part[at+1:], part[at:])
	part[at] = e
	x.partitions[k] = part
}

// Remove drops a transaction from its partition. No-op if absent.
func (x *Index) Remove(t *domain.Transaction) {
	x.RemoveID(t.Currency, t.Provider, t.ID)
}

// RemoveID drops a transaction by coordinates without needing the full record.
func (x *Index) RemoveID(currency string, provider domain.Provider, id string) {
	k := partitionKey{currency: currency, provider: provider}

	x.mu.Lock()
	defer x.mu.Unlock()

	part := x.partitions[k]
	for i := range part {
		if part[i].id == id {
			x.partitions[k] = append(part[:i], part[i+1:]...)
			return
		}
	}
}

// Query returns a snapshot of eligible counterpart ids for t: transactions
// from the opposite provider in the same currency whose date falls within
// the index's day window. Candidates are ordered by ascending date distance,
// then ascending amount distance, then earliest created_at, so the engine's
// first acceptable candidate is deterministic. The snapshot is finite and
// the call is repeatable; it does not mutate the index.
func (x *Index) Query(t *domain.Transaction) []string {
	k := partitionKey{currency: t.Currency, provider: t.Provider.Counterpart()}
	date := domain.DayDate(t.TransactionDate)

	x.mu.RLock()
	var eligible []entry
	for _, e := range x.partitions[k] {
		if dayDistance(date, e.date) <= x.dateWindowDays {
			eligible = append(eligible, e)
		}
	}
	x.mu.RUnlock()

	sort.SliceStable(eligible, func(i, j int) bool {
		di, dj := dayDistance(date, eligible[i].date), dayDistance(date, eligible[j].date)
		if di != dj {
			return di < dj
		}
		ai := t.Amount.Sub(eligible[i].amount).Abs()
		aj := t.Amount.Sub(eligible[j].amount).Abs()
		if c := ai.Cmp(aj); c != 0 {
			return c < 0
		}
		return eligible[i].createdAt.Before(eligible[j].createdAt)
	})

	ids := make([]string, len(eligible))
	for i, e := range eligible {
		ids[i] = e.id
	}
	return ids
}

// DateWindowDays reports the candidate window the index filters with. The
// engine reads its window from here so filter and predicate cannot diverge.
func (x *Index) DateWindowDays() int {
	return x.dateWindowDays
}

// Len returns the total number of indexed transactions.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	n := 0
	for _, part := range x.partitions {
		n += len(part)
	}
	return n
}

// lessEntry orders a partition by date, then amount, then created_at.
func lessEntry(a, b entry) bool {
	if !a.date.Equal(b.date) {
		return a.date.Before(b.date)
	}
	if c := a.amount.Cmp(b.amount); c != 0 {
		return c < 0
	}
	return a.createdAt.Before(b.createdAt)
}

func dayDistance(a, b time.Time) int {
	days := int(a.Sub(b).Hours() / 24)
	if days < 0 {
		return -days
	}
	return days
}
