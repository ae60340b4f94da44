package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/log"
)

const sampleBody = `{"base":"USD","rates":{"GBP":0.75,"EUR":0.90,"JPY":115,"AUD":1.35}}`

type fakeAPI struct {
	server *httptest.Server
	calls  atomic.Int32
	last   atomic.Value
}

func newFakeAPI(t *testing.T, status int, body string) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		f.last.Store(r.URL.Query())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(f.server.Close)
	return f
}

func newTestClient(endpoint string) *Client {
	return NewClient(Config{URL: endpoint, AppID: "test-key", Timeout: 2 * time.Second, Logger: log.Discard()})
}

func TestRateForBaseCurrencyNoNetwork(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	rate, err := c.RateFor(context.Background(), "GBP")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int32(0), api.calls.Load())

	rate, err = c.RateFor(context.Background(), " gbp ")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestRateForCrossRate(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	rate, err := c.RateFor(context.Background(), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "1.2", rate.String())

	q := api.last.Load().(url.Values)
	assert.Equal(t, []string{"test-key"}, q["app_id"])
	assert.Equal(t, []string{"USD"}, q["base"])
	assert.Equal(t, []string{"GBP,EUR"}, q["symbols"])
}

func TestRateForPrecision(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	rate, err := c.RateFor(context.Background(), "JPY")
	require.NoError(t, err)
	// 115 / 0.75 = 153.333...; at least 25 significant digits must survive.
	want := decimal.RequireFromString("153.3333333333333333333333333")
	assert.True(t, rate.Sub(want).Abs().LessThan(decimal.New(1, -24)), "got %s", rate)
	assert.GreaterOrEqual(t, len(strings.Replace(rate.String(), ".", "", 1)), 25)
}

func TestRateForIsDeterministic(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	first, err := c.RateFor(context.Background(), "JPY")
	require.NoError(t, err)
	second, err := c.RateFor(context.Background(), "JPY")
	require.NoError(t, err)
	assert.Equal(t, first.String(), second.String())
}

func TestRateForErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   string
		target error
	}{
		{"missing rates", http.StatusOK, `{"base":"USD"}`, "EUR", ErrMissingRates},
		{"missing target", http.StatusOK, `{"rates":{"GBP":0.75}}`, "XYZ", ErrRateNotFound},
		{"missing base", http.StatusOK, `{"rates":{"EUR":0.9}}`, "EUR", ErrRateNotFound},
		{"zero base", http.StatusOK, `{"rates":{"GBP":0,"EUR":0.9}}`, "EUR", ErrZeroBaseRate},
		{"bad status", http.StatusUnauthorized, `{"error":true}`, "EUR", nil},
		{"bad json", http.StatusOK, `not json`, "EUR", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			api := newFakeAPI(t, tc.status, tc.body)
			c := newTestClient(api.server.URL)

			_, err := c.RateFor(context.Background(), tc.code)
			require.Error(t, err)

			var le *LookupError
			require.True(t, errors.As(err, &le), "expected LookupError, got %T", err)
			if tc.target != nil {
				assert.ErrorIs(t, err, tc.target)
			}
		})
	}
}

func TestRateForMissingNamesCodes(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"rates":{}}`)
	c := newTestClient(api.server.URL)

	_, err := c.RateFor(context.Background(), "EUR")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GBP, EUR")
}

func TestRateForTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	c := NewClient(Config{URL: server.URL, Timeout: 50 * time.Millisecond, Logger: log.Discard()})
	_, err := c.RateFor(context.Background(), "EUR")
	require.Error(t, err)
	assert.True(t, IsLookupError(err))
}

func TestRatesForOnlyBase(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	got, err := c.RatesFor(context.Background(), []string{"GBP"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got["GBP"].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, int32(0), api.calls.Load())

	got, err = c.RatesFor(context.Background(), nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, int32(0), api.calls.Load())
}

func TestRatesForBatch(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, sampleBody)
	c := newTestClient(api.server.URL)

	codes := []string{"EUR", "jpy", "GBP", "EUR", "XYZ"}
	got, err := c.RatesFor(context.Background(), codes)
	require.NoError(t, err)
	assert.Equal(t, int32(1), api.calls.Load())

	assert.True(t, got["GBP"].Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "1.2", got["EUR"].String())
	assert.True(t, got["JPY"].Sub(decimal.RequireFromString("153.3333333333")).Abs().LessThan(decimal.New(1, -9)))
	_, hasXYZ := got["XYZ"]
	assert.False(t, hasXYZ, "codes missing upstream are omitted")

	allowed := map[string]bool{"EUR": true, "JPY": true, "GBP": true, "XYZ": true}
	for k := range got {
		assert.True(t, allowed[k], "unexpected key %s", k)
	}

	q := api.last.Load().(url.Values)
	assert.Equal(t, []string{"GBP,EUR,JPY,XYZ"}, q["symbols"])
}

func TestRatesForMissingBaseFails(t *testing.T) {
	api := newFakeAPI(t, http.StatusOK, `{"rates":{"EUR":0.9}}`)
	c := newTestClient(api.server.URL)

	_, err := c.RatesFor(context.Background(), []string{"EUR"})
	require.Error(t, err)
	assert.True(t, IsLookupError(err))
}

func TestFallback(t *testing.T) {
	r, ok := Fallback("eur")
	require.True(t, ok)
	assert.True(t, r.IsPositive())

	_, ok = Fallback("XYZ")
	assert.False(t, ok)

	got, unknown := FallbackAll([]string{"USD", "XYZ", "GBP"})
	assert.Len(t, got, 2)
	assert.Equal(t, []string{"XYZ"}, unknown)
}

func TestSharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	arrived := make(chan struct{}, 4)
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		arrived <- struct{}{}
		<-release
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleBody))
	}))
	defer server.Close()
	c := newTestClient(server.URL)

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.RateFor(firstCtx, "EUR")
		firstErr <- err
	}()
	<-arrived

	type result struct {
		rate decimal.Decimal
		err  error
	}
	second := make(chan result, 1)
	go func() {
		r, err := c.RateFor(context.Background(), "EUR")
		second <- result{r, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	err := <-firstErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	close(release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "1.2", res.rate.String())
	case <-time.After(time.Second):
		t.Fatal("second caller did not finish")
	}
}
