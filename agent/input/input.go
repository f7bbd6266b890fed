// Package input coerces free-text replies into amounts and loan terms.
package input

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrEmpty     = errors.New("input is empty")
	ErrNotNumber = errors.New("input is not a number")
	// ErrAmbiguous marks "15,000"-shaped input, which reads as either a
	// grouped integer or a decimal.
	ErrAmbiguous = errors.New("ambiguous comma separator")
)

var (
	decimalPattern   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)$`)
	ambiguousPattern = regexp.MustCompile(`^[+-]?\d+,\d{3}$`)
	integerPattern   = regexp.MustCompile(`^[+-]?\d+$`)
)

// groupSeparators are dropped before parsing, so "15 000" reads as 15000.
var groupSeparators = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", "_", "", "'", "")

// ParseAmount parses a decimal amount such as "15000", "15 000.50" or
// "2500,75". A lone comma is a decimal separator unless exactly three
// digits follow it, which is rejected as ambiguous. When a dot is present
// commas group thousands. Sign checks are left to the caller.
func ParseAmount(s string) (float64, error) {
	raw, err := normalize(s)
	if err != nil {
		return 0, err
	}

	switch commas := strings.Count(raw, ","); {
	case commas == 0:
	case strings.Contains(raw, "."), commas > 1:
		raw = strings.ReplaceAll(raw, ",", "")
	case ambiguousPattern.MatchString(raw):
		return 0, fmt.Errorf("%w: %w: %q", ErrNotNumber, ErrAmbiguous, s)
	default:
		raw = strings.Replace(raw, ",", ".", 1)
	}

	if !decimalPattern.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	return v, nil
}

// ParseTerm parses a whole number of months.
func ParseTerm(s string) (int, error) {
	raw, err := normalize(s)
	if err != nil {
		return 0, err
	}
	if !integerPattern.MatchString(raw) {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrNotNumber, s)
	}
	return v, nil
}

func normalize(s string) (string, error) {
	raw := groupSeparators.Replace(strings.TrimSpace(s))
	if raw == "" {
		return "", ErrEmpty
	}
	return raw, nil
}
