package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(dayOfJan int) time.Time {
	return time.Date(2024, 1, dayOfJan, 0, 0, 0, 0, time.UTC)
}

func pendingTxn(id string, provider Provider, amount, cur string, date time.Time) *Transaction {
	return &Transaction{
		ID:              id,
		Provider:        provider,
		Amount:          d(amount),
		Currency:        cur,
		TransactionDate: date,
		Status:          StatusPending,
	}
}

func TestProviderCounterpart(t *testing.T) {
	assert.Equal(t, ProviderQuickBooks, ProviderXero.Counterpart())
	assert.Equal(t, ProviderXero, ProviderQuickBooks.Counterpart())
}

func TestDateDistanceDays_IgnoresTimeOfDay(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 59, 0, 0, time.UTC)
	b := time.Date(2024, 1, 2, 0, 1, 0, 0, time.UTC)
	assert.Equal(t, 1, DateDistanceDays(a, b))
	assert.Equal(t, 1, DateDistanceDays(b, a))
	assert.Equal(t, 0, DateDistanceDays(a, a))
}

func TestAmountsWithin_Boundary(t *testing.T) {
	tol := d("0.01")
	assert.True(t, AmountsWithin(d("100.00"), d("100.01"), tol))
	assert.True(t, AmountsWithin(d("100.01"), d("100.00"), tol))
	assert.False(t, AmountsWithin(d("100.00"), d("100.02"), tol))
}

func TestCanMatch(t *testing.T) {
	base := pendingTxn("a", ProviderXero, "100.00", "USD", day(1))

	tests := []struct {
		name  string
		other *Transaction
		want  bool
	}{
		{
			name:  "compatible counterpart",
			other: pendingTxn("b", ProviderQuickBooks, "100.00", "USD", day(2)),
			want:  true,
		},
		{
			name:  "amount off by exactly the tolerance",
			other: pendingTxn("b", ProviderQuickBooks, "100.01", "USD", day(1)),
			want:  true,
		},
		{
			name:  "amount off by two cents",
			other: pendingTxn("b", ProviderQuickBooks, "100.02", "USD", day(1)),
			want:  false,
		},
		{
			name:  "date exactly three days out",
			other: pendingTxn("b", ProviderQuickBooks, "100.00", "USD", day(4)),
			want:  true,
		},
		{
			name:  "date four days out",
			other: pendingTxn("b", ProviderQuickBooks, "100.00", "USD", day(5)),
			want:  false,
		},
		{
			name:  "same provider",
			other: pendingTxn("b", ProviderXero, "100.00", "USD", day(1)),
			want:  false,
		},
		{
			name:  "different currency",
			other: pendingTxn("b", ProviderQuickBooks, "100.00", "EUR", day(1)),
			want:  false,
		},
		{
			name:  "same transaction",
			other: pendingTxn("a", ProviderQuickBooks, "100.00", "USD", day(1)),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CanMatch(base, tt.other, DefaultAmountTolerance, DefaultDateWindowDays)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanMatch_RequiresBothPending(t *testing.T) {
	a := pendingTxn("a", ProviderXero, "100.00", "USD", day(1))
	b := pendingTxn("b", ProviderQuickBooks, "100.00", "USD", day(1))
	b.Status = StatusMatched
	assert.False(t, CanMatch(a, b, DefaultAmountTolerance, DefaultDateWindowDays))

	b.Status = StatusPending
	a.Status = StatusMatched
	assert.False(t, CanMatch(a, b, DefaultAmountTolerance, DefaultDateWindowDays))
}
