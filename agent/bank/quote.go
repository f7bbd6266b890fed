// Package bank implements the per-bank loan quote strategies.
package bank

import (
	"errors"
	"fmt"
	"math"

	"github.com/tanpawarit/autocredit-bot/agent/catalog"
)

var (
	ErrInvalidArgument   = errors.New("invalid quote argument")
	ErrDownPaymentTooLow = errors.New("down payment below bank minimum")
	ErrTermOutOfRange    = errors.New("loan term outside bank range")
	ErrNothingToFinance  = errors.New("down payment covers the full price")
)

// percentTolerance absorbs float noise from deriving the percentage.
const percentTolerance = 1e-9

// Quote is a computed annuity loan offer.
type Quote struct {
	Bank               catalog.Bank
	CarPrice           float64
	DownPayment        float64
	DownPaymentPercent float64
	LoanAmount         float64
	TermMonths         int
	AnnualRate         float64
	MonthlyPayment     float64
	Commission         float64
	TotalPaid          float64
	Overpayment        float64
}

// Formatter renders a quote for the user.
type Formatter func(Quote) (string, error)

// PlainFormatter is the fallback used when no localized formatter is given.
func PlainFormatter(q Quote) (string, error) {
	return fmt.Sprintf(
		"%s: loan %.2f for %d months at %.2f%%, monthly payment %.2f, commission %.2f, total %.2f",
		q.Bank, q.LoanAmount, q.TermMonths, q.AnnualRate, q.MonthlyPayment, q.Commission, q.TotalPaid,
	), nil
}

// Product holds the lending terms of one bank.
type Product struct {
	Bank              catalog.Bank
	MinDownPercent    float64
	MinTermMonths     int
	MaxTermMonths     int
	BaseRate          float64
	PreferredRate     float64
	PreferredFrom     float64
	CommissionPercent float64
}

// Rate returns the annual rate for a down payment share.
func (p Product) Rate(downPaymentPercent float64) float64 {
	if p.PreferredFrom > 0 && downPaymentPercent >= p.PreferredFrom {
		return p.PreferredRate
	}
	return p.BaseRate
}

func (p Product) Quote(carPrice, downPaymentPercent float64, termMonths int) (Quote, error) {
	switch {
	case math.IsNaN(carPrice) || math.IsInf(carPrice, 0) || carPrice <= 0:
		return Quote{}, fmt.Errorf("%w: car price %v", ErrInvalidArgument, carPrice)
	case math.IsNaN(downPaymentPercent) || downPaymentPercent < 0 || downPaymentPercent > 100:
		return Quote{}, fmt.Errorf("%w: down payment %v%%", ErrInvalidArgument, downPaymentPercent)
	case termMonths <= 0:
		return Quote{}, fmt.Errorf("%w: term %d", ErrInvalidArgument, termMonths)
	}

	if downPaymentPercent+percentTolerance < p.MinDownPercent {
		return Quote{}, fmt.Errorf("%w: %.2f%% < %.0f%%", ErrDownPaymentTooLow, downPaymentPercent, p.MinDownPercent)
	}
	if termMonths < p.MinTermMonths || termMonths > p.MaxTermMonths {
		return Quote{}, fmt.Errorf("%w: %d not in %d-%d", ErrTermOutOfRange, termMonths, p.MinTermMonths, p.MaxTermMonths)
	}

	down := carPrice * downPaymentPercent / 100
	loan := carPrice - down
	if loan < 0.01 {
		return Quote{}, ErrNothingToFinance
	}

	rate := p.Rate(downPaymentPercent)
	monthly := annuityPayment(loan, rate, termMonths)
	commission := loan * p.CommissionPercent / 100
	total := monthly*float64(termMonths) + commission

	return Quote{
		Bank:               p.Bank,
		CarPrice:           carPrice,
		DownPayment:        down,
		DownPaymentPercent: downPaymentPercent,
		LoanAmount:         loan,
		TermMonths:         termMonths,
		AnnualRate:         rate,
		MonthlyPayment:     monthly,
		Commission:         commission,
		TotalPaid:          total,
		Overpayment:        total - loan,
	}, nil
}

// annuityPayment is the fixed monthly payment that repays principal over
// months at annualRate percent.
func annuityPayment(principal, annualRate float64, months int) float64 {
	r := annualRate / 12 / 100
	if r == 0 {
		return principal / float64(months)
	}
	return principal * r / (1 - math.Pow(1+r, -float64(months)))
}
