// Package parse converts user-entered currency, percent, and integer strings
// into typed values with strict validation.
package parse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when the input contains no value after trimming.
var ErrEmpty = errors.New("empty value")

// Currency parses a dollar amount such as "$12,345.67", "12345.67" or
// "$1,200". The leading dollar sign and thousands separators are optional.
// Negative amounts are rejected.
func Currency(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid currency amount %q", input)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative currency amount %q", input)
	}
	if d.Exponent() < -2 {
		return decimal.Zero, fmt.Errorf("currency amount %q has more than two decimal places", input)
	}
	return d, nil
}

// Percent parses a percentage such as "12.5%" or "12.5" into its decimal
// value. The trailing percent sign is optional. Values must fall in [0, 100].
func Percent(input string) (decimal.Decimal, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}
	s = strings.TrimSuffix(s, "%")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmpty
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid percent %q", input)
	}
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, fmt.Errorf("percent %q out of range", input)
	}
	return d, nil
}

// Int parses a non-negative integer count such as "3" or "1,200".
func Int(input string) (int, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, ErrEmpty
	}
	s = strings.ReplaceAll(s, ",", "")

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", input)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative integer %q", input)
	}
	return n, nil
}
