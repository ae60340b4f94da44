package rates

import (
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// fallbackRates are approximate units per 1 GBP, used only when the API is unreachable.
var fallbackRates = map[string]string{
	"GBP": "1",
	"USD": "1.27",
	"EUR": "1.17",
	"JPY": "190.00",
	"AUD": "1.93",
	"CAD": "1.73",
	"CHF": "1.12",
	"CNY": "9.20",
	"INR": "105.50",
	"HKD": "9.90",
	"NZD": "2.10",
	"SEK": "13.40",
}

// Fallback returns a constant approximate rate for well-known codes.
func Fallback(code string) (decimal.Decimal, bool) {
	s, ok := fallbackRates[core.NormalizeCode(code)]
	if !ok {
		return decimal.Zero, false
	}
	return decimal.RequireFromString(s), true
}

// FallbackAll fills every code it knows, reporting the ones it could not.
func FallbackAll(codes []string) (map[string]decimal.Decimal, []string) {
	out := make(map[string]decimal.Decimal, len(codes))
	var unknown []string
	for _, code := range codes {
		code = core.NormalizeCode(code)
		if r, ok := Fallback(code); ok {
			out[code] = r
		} else {
			unknown = append(unknown, code)
		}
	}
	return out, unknown
}
