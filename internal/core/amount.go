// Package core provides amount parsing and handling utilities.
//
// Amounts are stored as floating point numbers in the ledger tables, but every
// conversion from user input and every balance computation goes through
// decimal arithmetic so that values like 0.1 + 0.2 do not drift.
package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrNegativeAmount = errors.New("amount cannot be negative")
	ErrAmountTooLarge = errors.New("amount too large")
)

// MaxAmount is the largest amount a single entry may carry (10^15).
var MaxAmount = decimal.New(1, 15)

var maxAmount = MaxAmount.InexactFloat64()

// ParseAmount converts user input into a non-negative amount.
//
// Blank input is zero. Both dot (12.34) and comma (12,34) decimal separators
// are accepted.
//
// Examples:
//
//	ParseAmount("")       -> 0, nil
//	ParseAmount("12.5")   -> 12.5, nil
//	ParseAmount("12,50")  -> 12.5, nil
//	ParseAmount("-3")     -> 0, ErrNegativeAmount
//	ParseAmount("1e400")  -> 0, ErrAmountTooLarge
//	ParseAmount("abc")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrNegativeAmount, s)
	}
	if d.GreaterThan(MaxAmount) {
		return 0, fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrAmountTooLarge, s)
	}
	return d.InexactFloat64(), nil
}

// Finite reports whether every value is a real number.
func Finite(values ...float64) bool {
	for _, v := range values {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Balance returns credit minus debit.
// Non-finite inputs fall back to float arithmetic.
func Balance(totalDebit, totalCredit float64) float64 {
	if !Finite(totalDebit, totalCredit) {
		return totalCredit - totalDebit
	}
	return decimal.NewFromFloat(totalCredit).Sub(decimal.NewFromFloat(totalDebit)).InexactFloat64()
}

// SumAmounts adds amounts with decimal precision.
func SumAmounts(values ...float64) float64 {
	if !Finite(values...) {
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum
	}
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.InexactFloat64()
}

// FormatAmount renders an amount the shortest way that round-trips,
// e.g. 100 -> "100", 12.5 -> "12.5".
func FormatAmount(v float64) string {
	if !Finite(v) {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return decimal.NewFromFloat(v).String()
}
