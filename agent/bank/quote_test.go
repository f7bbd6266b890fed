package bank

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanpawarit/autocredit-bot/agent/catalog"
)

func TestAnnuityPayment(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1066.19, annuityPayment(12000, 12, 12), 0.01)
	assert.InDelta(t, 1000, annuityPayment(12000, 0, 12), 1e-9)
}

func TestProductQuote(t *testing.T) {
	t.Parallel()

	p, ok := ProductFor(catalog.BankOschadbank)
	require.True(t, ok)

	q, err := p.Quote(15000, 20, 36)
	require.NoError(t, err)
	assert.Equal(t, catalog.BankOschadbank, q.Bank)
	assert.InDelta(t, 3000, q.DownPayment, 1e-9)
	assert.InDelta(t, 12000, q.LoanAmount, 1e-9)
	assert.InDelta(t, 12.99, q.AnnualRate, 1e-9)
	assert.InDelta(t, 180, q.Commission, 1e-9)
	assert.InDelta(t, q.MonthlyPayment*36+q.Commission, q.TotalPaid, 1e-9)
	assert.InDelta(t, q.TotalPaid-q.LoanAmount, q.Overpayment, 1e-9)
	assert.Greater(t, q.MonthlyPayment, 12000.0/36)
}

func TestProductPreferredRate(t *testing.T) {
	t.Parallel()

	p, _ := ProductFor(catalog.BankPrivatBank)
	assert.InDelta(t, 14.9, p.Rate(39.99), 1e-9)
	assert.InDelta(t, 10.9, p.Rate(40), 1e-9)
}

func TestProductQuoteErrors(t *testing.T) {
	t.Parallel()

	p, _ := ProductFor(catalog.BankCreditAgricole)

	tests := []struct {
		name    string
		price   float64
		pct     float64
		term    int
		wantErr error
	}{
		{name: "zero price", price: 0, pct: 20, term: 24, wantErr: ErrInvalidArgument},
		{name: "percent above hundred", price: 1000, pct: 101, term: 24, wantErr: ErrInvalidArgument},
		{name: "zero term", price: 1000, pct: 20, term: 0, wantErr: ErrInvalidArgument},
		{name: "low down payment", price: 1000, pct: 5, term: 24, wantErr: ErrDownPaymentTooLow},
		{name: "term too short", price: 1000, pct: 20, term: 6, wantErr: ErrTermOutOfRange},
		{name: "term too long", price: 1000, pct: 20, term: 120, wantErr: ErrTermOutOfRange},
		{name: "paid in full", price: 1000, pct: 100, term: 24, wantErr: ErrNothingToFinance},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := p.Quote(tc.price, tc.pct, tc.term)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestRegistryResolvesEveryBank(t *testing.T) {
	t.Parallel()

	r := NewRegistry(nil)
	for _, b := range catalog.AllBanks() {
		s, ok := r.Strategy(b)
		require.True(t, ok, "bank %s", b)

		text, err := s.Calculate(15000, 20, 36)
		require.NoError(t, err, "bank %s", b)
		assert.True(t, strings.HasPrefix(text, string(b)+":"), "text %q", text)
	}

	_, ok := r.Strategy("monobank")
	assert.False(t, ok)
}

func TestStrategyUsesFormatter(t *testing.T) {
	t.Parallel()

	var got Quote
	format := func(q Quote) (string, error) {
		got = q
		return "formatted", nil
	}
	p, _ := ProductFor(catalog.BankPrivatBank)

	text, err := NewStrategy(p, format).Calculate(20000, 50, 24)
	require.NoError(t, err)
	assert.Equal(t, "formatted", text)
	assert.Equal(t, 24, got.TermMonths)
	assert.InDelta(t, 10000, got.LoanAmount, 1e-9)

	boom := errors.New("boom")
	_, err = NewStrategy(p, func(Quote) (string, error) { return "", boom }).Calculate(20000, 50, 24)
	assert.ErrorIs(t, err, boom)
}
