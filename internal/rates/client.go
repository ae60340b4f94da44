// Package rates looks up exchange rates relative to core.BaseCurrency.
//
// The upstream API (Open Exchange Rates) only publishes rates against USD on
// its free tier, so every rate is derived as a cross rate:
//
//	rate(GBP -> X) = rate(USD -> X) / rate(USD -> GBP)
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const (
	// DefaultURL is the Open Exchange Rates latest endpoint.
	DefaultURL = "https://openexchangerates.org/api/latest.json"
	// FetchBase is the only base currency the upstream API accepts.
	FetchBase      = "USD"
	DefaultTimeout = 10 * time.Second
)

// Provider is implemented by Client and by test fakes.
type Provider interface {
	RateFor(ctx context.Context, code string) (decimal.Decimal, error)
	RatesFor(ctx context.Context, codes []string) (map[string]decimal.Decimal, error)
}

type Config struct {
	URL     string
	AppID   string
	Timeout time.Duration
	// HTTPClient overrides the default client; its Timeout is left untouched.
	HTTPClient *http.Client
	Logger     *log.Logger
}

type Client struct {
	url     string
	appID   string
	timeout time.Duration
	http    *http.Client
	logger  *log.Logger
	group   singleflight.Group
}

type latestResponse struct {
	Base  string                     `json:"base"`
	Rates map[string]decimal.Decimal `json:"rates"`
}

var _ Provider = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Client{
		url:     cfg.URL,
		appID:   cfg.AppID,
		timeout: cfg.Timeout,
		http:    httpClient,
		logger:  logger.WithComponent(log.ComponentRates),
	}
}

// RateFor returns the rate of code against the base currency.
// The base currency itself is always exactly 1 and never touches the network.
func (c *Client) RateFor(ctx context.Context, code string) (decimal.Decimal, error) {
	code = core.NormalizeCode(code)
	if code == core.BaseCurrency {
		return decimal.NewFromInt(1), nil
	}

	symbols := []string{core.BaseCurrency, code}
	rates, err := c.fetch(ctx, symbols)
	if err != nil {
		return decimal.Zero, &LookupError{Codes: []string{code}, Err: err}
	}

	var missing []string
	baseRate, okBase := rates[core.BaseCurrency]
	target, okTarget := rates[code]
	if !okBase {
		missing = append(missing, core.BaseCurrency)
	}
	if !okTarget {
		missing = append(missing, code)
	}
	if len(missing) > 0 {
		return decimal.Zero, &LookupError{
			Codes: []string{code},
			Err:   fmt.Errorf("%w: %s", ErrRateNotFound, strings.Join(missing, ", ")),
		}
	}
	if baseRate.IsZero() {
		return decimal.Zero, &LookupError{Codes: []string{code}, Err: ErrZeroBaseRate}
	}

	rate := core.Div(target, baseRate)
	c.logger.DebugContext(ctx, "Calculated rate", log.FieldCurrency, code, log.FieldRate, rate.String())
	return rate, nil
}

// RatesFor looks up several rates in a single request.
//
// The result always contains the base currency mapped to 1. Codes missing
// from the upstream response are logged and omitted rather than failing the
// whole batch.
func (c *Client) RatesFor(ctx context.Context, codes []string) (map[string]decimal.Decimal, error) {
	wanted := uniqueCodes(codes)
	result := map[string]decimal.Decimal{core.BaseCurrency: decimal.NewFromInt(1)}
	if len(wanted) == 0 {
		return result, nil
	}

	symbols := append([]string{core.BaseCurrency}, wanted...)
	rates, err := c.fetch(ctx, symbols)
	if err != nil {
		return nil, &LookupError{Codes: wanted, Err: err}
	}

	baseRate, ok := rates[core.BaseCurrency]
	if !ok {
		return nil, &LookupError{
			Codes: wanted,
			Err:   fmt.Errorf("%w: %s", ErrRateNotFound, core.BaseCurrency),
		}
	}
	if baseRate.IsZero() {
		return nil, &LookupError{Codes: wanted, Err: ErrZeroBaseRate}
	}

	for _, code := range wanted {
		target, ok := rates[code]
		if !ok {
			c.logger.WarnContext(ctx, "Currency not found in rates response", log.FieldCurrency, code)
			continue
		}
		result[code] = core.Div(target, baseRate)
	}
	return result, nil
}

// fetch returns the raw USD-based rates for symbols. Identical concurrent
// requests share one round trip. The shared request runs detached from any
// single caller's cancellation, bounded by the client timeout, and each
// caller stops waiting when its own ctx ends.
func (c *Client) fetch(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	key := strings.Join(symbols, ",")
	ch := c.group.DoChan(key, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.doFetch(fetchCtx, key)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.logger.DebugContext(ctx, "Shared in-flight rates request", "symbols", key)
		}
		return res.Val.(map[string]decimal.Decimal), nil
	}
}

func (c *Client) doFetch(ctx context.Context, symbols string) (map[string]decimal.Decimal, error) {
	q := url.Values{}
	q.Set("app_id", c.appID)
	q.Set("base", FetchBase)
	q.Set("symbols", symbols)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "Rates request failed", log.FieldError, err)
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var payload latestResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if payload.Rates == nil {
		c.logger.ErrorContext(ctx, "Invalid rates response", "base", payload.Base)
		return nil, ErrMissingRates
	}

	c.logger.DebugContext(ctx, "Fetched rates",
		"symbols", symbols,
		log.FieldDuration, time.Since(start).Milliseconds(),
	)
	return payload.Rates, nil
}

// uniqueCodes normalizes, de-duplicates and sorts codes, dropping the base currency.
func uniqueCodes(codes []string) []string {
	seen := make(map[string]struct{}, len(codes))
	out := make([]string, 0, len(codes))
	for _, code := range codes {
		code = core.NormalizeCode(code)
		if code == "" || code == core.BaseCurrency {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
