package contract

import "github.com/tanpawarit/autocredit-bot/agent/catalog"

// QuoteStrategy computes a bank-specific financing quote. Implementations
// are pure and safe for concurrent use.
type QuoteStrategy interface {
	Calculate(carPrice, downPaymentPercent float64, termMonths int) (string, error)
}

// StrategyResolver looks up the strategy for a bank.
type StrategyResolver interface {
	Strategy(bank catalog.Bank) (QuoteStrategy, bool)
}
