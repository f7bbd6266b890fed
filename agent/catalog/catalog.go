// Package catalog holds the closed sets of car brands and banks the bot
// offers, together with the callback tokens used by menu selections.
package catalog

import (
	"slices"
	"strings"
)

type Brand string

const (
	BrandToyota Brand = "toyota"
	BrandMazda  Brand = "mazda"
	BrandMG     Brand = "mg"
)

type Bank string

const (
	BankOschadbank     Bank = "oschadbank"
	BankPrivatBank     Bank = "privatbank"
	BankCreditAgricole Bank = "credit_agricole"
)

var (
	brands = []Brand{BrandToyota, BrandMazda, BrandMG}
	banks  = []Bank{BankOschadbank, BankPrivatBank, BankCreditAgricole}
)

// menuRowWidth is the number of buttons per menu row.
const menuRowWidth = 2

func AllBrands() []Brand {
	out := make([]Brand, len(brands))
	copy(out, brands)
	return out
}

func AllBanks() []Bank {
	out := make([]Bank, len(banks))
	copy(out, banks)
	return out
}

// ParseBrand maps a callback token to a brand. Tokens are matched exactly
// after trimming surrounding whitespace.
func ParseBrand(token string) (Brand, bool) {
	token = strings.TrimSpace(token)
	for _, b := range brands {
		if string(b) == token {
			return b, true
		}
	}
	return "", false
}

// ParseBank maps a callback token to a bank.
func ParseBank(token string) (Bank, bool) {
	token = strings.TrimSpace(token)
	for _, b := range banks {
		if string(b) == token {
			return b, true
		}
	}
	return "", false
}

// Valid reports whether b is exactly one of the known brands.
func (b Brand) Valid() bool {
	return slices.Contains(brands, b)
}

func (b Bank) Valid() bool {
	return slices.Contains(banks, b)
}

// BrandRows lays brands out as menu rows of two.
func BrandRows() [][]Brand {
	return chunk(brands)
}

// BankRows lays banks out as menu rows of two.
func BankRows() [][]Bank {
	return chunk(banks)
}

func chunk[T any](items []T) [][]T {
	rows := make([][]T, 0, (len(items)+menuRowWidth-1)/menuRowWidth)
	for start := 0; start < len(items); start += menuRowWidth {
		end := min(start+menuRowWidth, len(items))
		row := make([]T, end-start)
		copy(row, items[start:end])
		rows = append(rows, row)
	}
	return rows
}
