package rates

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMissingRates = errors.New("invalid API response: rates field missing")
	ErrRateNotFound = errors.New("currency rates not found in response")
	ErrZeroBaseRate = errors.New("base currency rate is zero")
)

// LookupError is returned for any failure to obtain a rate: network errors,
// timeouts, bad status codes, malformed bodies and missing currencies.
// Callers may fall back to Fallback rates.
type LookupError struct {
	Codes []string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("rate lookup for %s failed: %v", strings.Join(e.Codes, ","), e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

// StatusError carries a non-2xx upstream response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

// IsLookupError reports whether err wraps a LookupError.
func IsLookupError(err error) bool {
	var le *LookupError
	return errors.As(err, &le)
}
