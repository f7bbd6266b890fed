package state

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/tanpawarit/autocredit-bot/agent/catalog"
)

// Stage is the input the dialogue expects next.
type Stage string

const (
	StageIdle                  Stage = "idle"
	StageAwaitingCarPrice      Stage = "awaiting_car_price"
	StageAwaitingFirstPayment  Stage = "awaiting_first_payment"
	StageAwaitingBankSelection Stage = "awaiting_bank_selection"
	StageAwaitingLoanTerm      Stage = "awaiting_loan_term"
	StageComplete              Stage = "complete"
)

func (s Stage) Valid() bool {
	switch s {
	case StageIdle,
		StageAwaitingCarPrice,
		StageAwaitingFirstPayment,
		StageAwaitingBankSelection,
		StageAwaitingLoanTerm,
		StageComplete:
		return true
	default:
		return false
	}
}

// Session is one user's in-progress dialogue toward a single quote.
// Each field is written once, by the setter that moves the session out of
// the stage collecting it. Reset is the only way to clear them.
type Session struct {
	UserID int64 `json:"user_id"`
	Stage  Stage `json:"stage"`

	Brand          catalog.Brand `json:"brand,omitempty"`
	CarPrice       *float64      `json:"car_price,omitempty"`
	FirstPayment   *float64      `json:"first_payment,omitempty"`
	Bank           catalog.Bank  `json:"bank,omitempty"`
	LoanTermMonths *int          `json:"loan_term_months,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrInvalidTransition       = errors.New("invalid stage transition")
	ErrFieldAlreadySet         = errors.New("session field already set")
	ErrInvalidValue            = errors.New("invalid session value")
	ErrIncompleteSession       = errors.New("session is incomplete")
	ErrDownPaymentExceedsPrice = errors.New("first payment exceeds car price")
)

func NewSession(userID int64, now time.Time) Session {
	return Session{
		UserID:    userID,
		Stage:     StageIdle,
		UpdatedAt: now.UTC(),
	}
}

// Clone returns a copy that shares no pointers with s.
func (s Session) Clone() Session {
	out := s
	if s.CarPrice != nil {
		v := *s.CarPrice
		out.CarPrice = &v
	}
	if s.FirstPayment != nil {
		v := *s.FirstPayment
		out.FirstPayment = &v
	}
	if s.LoanTermMonths != nil {
		v := *s.LoanTermMonths
		out.LoanTermMonths = &v
	}
	return out
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// Reset discards every collected field and returns the session to idle.
func (s *Session) Reset(now time.Time) {
	*s = NewSession(s.UserID, now)
}

func (s *Session) SelectBrand(b catalog.Brand, now time.Time) error {
	if err := s.expect(StageIdle); err != nil {
		return err
	}
	if !b.Valid() {
		return fmt.Errorf("%w: brand=%q", ErrInvalidValue, b)
	}
	if s.Brand != "" {
		return fmt.Errorf("%w: brand", ErrFieldAlreadySet)
	}
	s.Brand = b
	s.advance(StageAwaitingCarPrice, now)
	return nil
}

func (s *Session) SetCarPrice(v float64, now time.Time) error {
	if err := s.expect(StageAwaitingCarPrice); err != nil {
		return err
	}
	if !finite(v) || v <= 0 {
		return fmt.Errorf("%w: car price must be positive, got %v", ErrInvalidValue, v)
	}
	if s.CarPrice != nil {
		return fmt.Errorf("%w: car price", ErrFieldAlreadySet)
	}
	s.CarPrice = &v
	s.advance(StageAwaitingFirstPayment, now)
	return nil
}

func (s *Session) SetFirstPayment(v float64, now time.Time) error {
	if err := s.expect(StageAwaitingFirstPayment); err != nil {
		return err
	}
	if !finite(v) || v < 0 {
		return fmt.Errorf("%w: first payment must not be negative, got %v", ErrInvalidValue, v)
	}
	if s.FirstPayment != nil {
		return fmt.Errorf("%w: first payment", ErrFieldAlreadySet)
	}
	s.FirstPayment = &v
	s.advance(StageAwaitingBankSelection, now)
	return nil
}

func (s *Session) SetBank(b catalog.Bank, now time.Time) error {
	if err := s.expect(StageAwaitingBankSelection); err != nil {
		return err
	}
	if !b.Valid() {
		return fmt.Errorf("%w: bank=%q", ErrInvalidValue, b)
	}
	if s.Bank != "" {
		return fmt.Errorf("%w: bank", ErrFieldAlreadySet)
	}
	s.Bank = b
	s.advance(StageAwaitingLoanTerm, now)
	return nil
}

// SetLoanTerm stores the term and marks the session complete.
func (s *Session) SetLoanTerm(months int, now time.Time) error {
	if err := s.expect(StageAwaitingLoanTerm); err != nil {
		return err
	}
	if months <= 0 {
		return fmt.Errorf("%w: loan term must be positive, got %d", ErrInvalidValue, months)
	}
	if s.LoanTermMonths != nil {
		return fmt.Errorf("%w: loan term", ErrFieldAlreadySet)
	}
	s.LoanTermMonths = &months
	s.advance(StageComplete, now)
	return nil
}

// Ready reports whether every field a quote needs is populated.
func (s Session) Ready() error {
	switch {
	case s.CarPrice == nil:
		return fmt.Errorf("%w: car price missing", ErrIncompleteSession)
	case s.FirstPayment == nil:
		return fmt.Errorf("%w: first payment missing", ErrIncompleteSession)
	case s.Bank == "":
		return fmt.Errorf("%w: bank missing", ErrIncompleteSession)
	case s.LoanTermMonths == nil:
		return fmt.Errorf("%w: loan term missing", ErrIncompleteSession)
	case *s.CarPrice <= 0:
		return fmt.Errorf("%w: car price must be positive", ErrInvalidValue)
	}
	return nil
}

// DownPaymentPercent is the first payment as a percentage of the car price.
func (s Session) DownPaymentPercent() (float64, error) {
	if s.CarPrice == nil || s.FirstPayment == nil {
		return 0, fmt.Errorf("%w: car price and first payment required", ErrIncompleteSession)
	}
	if *s.CarPrice <= 0 {
		return 0, fmt.Errorf("%w: car price must be positive", ErrInvalidValue)
	}
	if *s.FirstPayment > *s.CarPrice {
		return 0, fmt.Errorf("%w: %.2f > %.2f", ErrDownPaymentExceedsPrice, *s.FirstPayment, *s.CarPrice)
	}
	return *s.FirstPayment / *s.CarPrice * 100, nil
}

// Validate checks that the collected fields agree with the stage.
func (s Session) Validate() error {
	if !s.Stage.Valid() {
		return fmt.Errorf("%w: unknown stage %q", ErrInvalidTransition, s.Stage)
	}
	want := map[Stage]int{
		StageIdle:                  0,
		StageAwaitingCarPrice:      1,
		StageAwaitingFirstPayment:  2,
		StageAwaitingBankSelection: 3,
		StageAwaitingLoanTerm:      4,
		StageComplete:              5,
	}[s.Stage]
	if got := s.filled(); got != want {
		return fmt.Errorf("%w: stage %s has %d fields set, want %d", ErrInvalidTransition, s.Stage, got, want)
	}
	return nil
}

// filled returns how many fields are set in collection order, or -1 when a
// later field is set while an earlier one is missing.
func (s Session) filled() int {
	n, gap := 0, false
	for _, set := range []bool{
		s.Brand != "",
		s.CarPrice != nil,
		s.FirstPayment != nil,
		s.Bank != "",
		s.LoanTermMonths != nil,
	} {
		switch {
		case set && gap:
			return -1
		case set:
			n++
		default:
			gap = true
		}
	}
	return n
}

func (s *Session) expect(stage Stage) error {
	if s.Stage != stage {
		return fmt.Errorf("%w: at %s, want %s", ErrInvalidTransition, s.Stage, stage)
	}
	return nil
}

func (s *Session) advance(next Stage, now time.Time) {
	s.Stage = next
	s.Touch(now)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
