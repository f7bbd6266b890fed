package bank

import (
	"github.com/tanpawarit/autocredit-bot/agent/catalog"
	contractx "github.com/tanpawarit/autocredit-bot/agent/contract"
)

var products = map[catalog.Bank]Product{
	catalog.BankOschadbank: {
		Bank:              catalog.BankOschadbank,
		MinDownPercent:    20,
		MinTermMonths:     12,
		MaxTermMonths:     84,
		BaseRate:          12.99,
		PreferredRate:     9.99,
		PreferredFrom:     30,
		CommissionPercent: 1.5,
	},
	catalog.BankPrivatBank: {
		Bank:              catalog.BankPrivatBank,
		MinDownPercent:    15,
		MinTermMonths:     6,
		MaxTermMonths:     60,
		BaseRate:          14.9,
		PreferredRate:     10.9,
		PreferredFrom:     40,
		CommissionPercent: 2.5,
	},
	catalog.BankCreditAgricole: {
		Bank:           catalog.BankCreditAgricole,
		MinDownPercent: 10,
		MinTermMonths:  12,
		MaxTermMonths:  96,
		BaseRate:       11.5,
		PreferredRate:  8.9,
		PreferredFrom:  30,
	},
}

// ProductFor returns the lending terms of a bank.
func ProductFor(b catalog.Bank) (Product, bool) {
	p, ok := products[b]
	return p, ok
}

// Strategy quotes one bank's product.
type Strategy struct {
	product Product
	format  Formatter
}

var _ contractx.QuoteStrategy = Strategy{}

func NewStrategy(p Product, format Formatter) Strategy {
	if format == nil {
		format = PlainFormatter
	}
	return Strategy{product: p, format: format}
}

func (s Strategy) Calculate(carPrice, downPaymentPercent float64, termMonths int) (string, error) {
	q, err := s.product.Quote(carPrice, downPaymentPercent, termMonths)
	if err != nil {
		return "", err
	}
	return s.format(q)
}

// Registry resolves the strategy for each supported bank.
type Registry struct {
	strategies map[catalog.Bank]contractx.QuoteStrategy
}

var _ contractx.StrategyResolver = (*Registry)(nil)

func NewRegistry(format Formatter) *Registry {
	r := &Registry{strategies: make(map[catalog.Bank]contractx.QuoteStrategy, len(products))}
	for _, b := range catalog.AllBanks() {
		if p, ok := products[b]; ok {
			r.strategies[b] = NewStrategy(p, format)
		}
	}
	return r
}

func (r *Registry) Strategy(b catalog.Bank) (contractx.QuoteStrategy, bool) {
	s, ok := r.strategies[b]
	return s, ok
}
