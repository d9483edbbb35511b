package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/rate/domain"
)

func testLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 100)
}

// fakeSource is a scriptable Source for exercising the dispatch strategies
// without a live price feed.
type fakeSource struct {
	fiat          map[string]bool
	fiatToUSDT    map[string]decimal.Decimal
	cryptoPrice   map[string]decimal.Decimal
	marketPrice   map[string]decimal.Decimal
	cryptoToUSD   map[string]decimal.Decimal
	cryptoPriceErr error
	calls         int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		fiat:        map[string]bool{"USD": true, "EUR": true, "GBP": true},
		fiatToUSDT:  map[string]decimal.Decimal{},
		cryptoPrice: map[string]decimal.Decimal{},
		marketPrice: map[string]decimal.Decimal{},
		cryptoToUSD: map[string]decimal.Decimal{},
	}
}

func (f *fakeSource) IsFiat(code string) bool { return f.fiat[code] }

func (f *fakeSource) FiatToUSDT(ctx context.Context, code string) (decimal.Decimal, error) {
	f.calls++
	return f.fiatToUSDT[code], nil
}

func (f *fakeSource) CryptoPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	f.calls++
	if f.cryptoPriceErr != nil {
		return decimal.Zero, f.cryptoPriceErr
	}
	return f.cryptoPrice[crypto+fiat], nil
}

func (f *fakeSource) MarketPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	price, ok := f.marketPrice[crypto+fiat]
	if !ok {
		return decimal.Zero, assertErr{}
	}
	return price, nil
}

func (f *fakeSource) CryptoToUSD(ctx context.Context, crypto string) (decimal.Decimal, error) {
	return f.cryptoToUSD[crypto], nil
}

func (f *fakeSource) HasValidConfiguration() bool { return true }

type nilStore struct{}

func (nilStore) Get(ctx context.Context, from, to string) (*domain.RateRecord, error) { return nil, nil }
func (nilStore) Upsert(ctx context.Context, rec *domain.RateRecord) error              { return nil }

func newTestService(src Source) *service {
	return &service{
		source:  src,
		store:   nilStore{},
		limiter: testLimiter(),
		cache:   make(map[pairKey]domain.CachedRate),
	}
}

func TestFetchRate_Identity(t *testing.T) {
	svc := newTestService(newFakeSource())
	q, err := svc.FetchRate(context.Background(), "USD", "USD")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(1)))
}

func TestFetchRate_StablecoinSet(t *testing.T) {
	svc := newTestService(newFakeSource())
	q, err := svc.FetchRate(context.Background(), "USD", "USDT")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(1)))
}

func TestFetchRate_FiatToFiat(t *testing.T) {
	src := newFakeSource()
	src.fiatToUSDT["EUR"] = decimal.RequireFromString("1.1")
	src.fiatToUSDT["USD"] = decimal.RequireFromString("1.0")
	svc := newTestService(src)

	q, err := svc.FetchRate(context.Background(), "EUR", "USD")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("1.1")), "got %s", q.Rate)
}

func TestFetchRate_CryptoToFiat_FallsBackToMarketPrice(t *testing.T) {
	src := newFakeSource()
	src.fiat = map[string]bool{"USD": true}
	src.cryptoPriceErr = assertErr{}
	src.marketPrice["BTCUSD"] = decimal.RequireFromString("65000")
	svc := newTestService(src)

	q, err := svc.FetchRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("65000")))
}

func TestFetchRate_FiatToCrypto_IsReciprocal(t *testing.T) {
	src := newFakeSource()
	src.fiat = map[string]bool{"USD": true}
	src.cryptoPrice["BTCUSD"] = decimal.RequireFromString("50000")
	svc := newTestService(src)

	q, err := svc.FetchRate(context.Background(), "USD", "BTC")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("0.00002")), "got %s", q.Rate)
}

func TestFetchRate_CryptoToCrypto_ViaUSD(t *testing.T) {
	src := newFakeSource()
	src.fiat = map[string]bool{}
	src.cryptoToUSD["BTC"] = decimal.RequireFromString("50000")
	src.cryptoToUSD["ETH"] = decimal.RequireFromString("2500")
	svc := newTestService(src)

	q, err := svc.FetchRate(context.Background(), "BTC", "ETH")
	require.NoError(t, err)
	assert.True(t, q.Rate.Equal(decimal.NewFromInt(20)), "got %s", q.Rate)
}

func TestFetchRate_CacheHitAvoidsSourceCall(t *testing.T) {
	src := newFakeSource()
	src.fiat = map[string]bool{"USD": true}
	src.cryptoPrice["BTCUSD"] = decimal.RequireFromString("50000")
	svc := newTestService(src)

	_, err := svc.FetchRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	calls := src.calls

	q, err := svc.FetchRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)
	assert.Equal(t, calls, src.calls, "cache hit must not dispatch again")
	assert.Equal(t, "cache", q.Source)
}

func TestFetchRate_StaleFallbackOnFailure(t *testing.T) {
	src := newFakeSource()
	src.fiat = map[string]bool{"USD": true}
	src.cryptoPrice["BTCUSD"] = decimal.RequireFromString("50000")
	src.marketPrice["BTCUSD"] = decimal.RequireFromString("50000")
	svc := newTestService(src)

	_, err := svc.FetchRate(context.Background(), "BTC", "USD")
	require.NoError(t, err)

	// Force the cache stale and make the next dispatch fail entirely.
	svc.mu.Lock()
	entry := svc.cache[pairKey{"BTC", "USD"}]
	entry.FetchedAt -= calendar.EpochMillis(FreshWindow.Milliseconds() + 1000)
	svc.cache[pairKey{"BTC", "USD"}] = entry
	svc.mu.Unlock()

	src.cryptoPriceErr = assertErr{}
	src.marketPrice = map[string]decimal.Decimal{}

	q, err := svc.FetchRate(context.Background(), "BTC", "USD")
	require.NoError(t, err, "a stale cached value must be served, not an error")
	assert.True(t, q.Stale)
	assert.True(t, q.Rate.Equal(decimal.RequireFromString("50000")))
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
