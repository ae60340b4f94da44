// Package core holds the domain types shared by every fintrack component.
//
// This file contains money and calendar helpers. Amounts are always
// decimal.Decimal; floats never carry money.
package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept when dividing
// amounts or rates. Together with the integer part this is well above the
// 25 significant digits required for exchange-rate arithmetic.
const DivisionPrecision int32 = 28

// ReportPlaces is the number of fractional digits shown in reports.
const ReportPlaces int32 = 2

// ParseAmount parses a non-negative decimal amount.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Unlike the
// report layer, no rounding happens here: the value is stored as entered.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// HasCents reports whether d has no more than two fractional digits.
func HasCents(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(ReportPlaces))
}

// Div divides a by b at DivisionPrecision.
func Div(a, b decimal.Decimal) decimal.Decimal {
	return a.DivRound(b, DivisionPrecision)
}

// Round2 rounds half away from zero to two places.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(ReportPlaces)
}

// DaysInMonth returns the number of days in the given month, honouring leap years.
func DaysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ParsePeriod parses a "YYYY-MM" budget period into the first day of that month.
func ParsePeriod(s string) (Date, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return NewDate(t.Year(), int(t.Month()), 1), nil
}

// FormatPeriod is the inverse of ParsePeriod.
func FormatPeriod(d Date) string {
	return d.Format("2006-01")
}
