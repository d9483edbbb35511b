// Package service implements the rate provider: an in-memory
// (from, to) -> rate cache with a 5-minute freshness window, a token-bucket
// limiter gating upstream dispatch, a singleflight group collapsing
// concurrent cache misses for the same pair, and a durable write-through
// store so a restart doesn't start cold.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"savingsplanner/internal/core"
	"savingsplanner/internal/module/savings/calendar"
	"savingsplanner/internal/module/savings/rate/domain"
	"savingsplanner/internal/module/savings/rate/repository"
	"savingsplanner/internal/savingserr"
)

// FreshWindow is how long a cached rate counts as fresh.
const FreshWindow = 5 * time.Minute

// Sentinel errors a Source implementation wraps its failures in, so the
// service can classify a transient failure without depending on the
// source's own error types.
var (
	ErrSourceRateLimited  = errors.New("rate source: quota exceeded")
	ErrSourceAPIKeyMissing = errors.New("rate source: api key missing")
	ErrSourceNetwork      = errors.New("rate source: network error")
)

// Source is the upstream price feed the rate provider dispatches to on a
// cache miss. Every price lookup is context-first and returns a typed value, the
// same shape as broker/client.BrokerClient, without requiring a live broker
// connection to exist for fiat-only deployments.
type Source interface {
	// IsFiat reports whether code names a fiat currency (vs. a crypto
	// symbol). Used only to classify a pair; it is never itself cached.
	IsFiat(code string) bool
	// FiatToUSDT returns the USDT value of one unit of the given fiat
	// currency.
	FiatToUSDT(ctx context.Context, fiatCode string) (decimal.Decimal, error)
	// CryptoPrice returns the direct price of one unit of crypto in fiat.
	CryptoPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error)
	// MarketPrice is the markets-endpoint fallback for CryptoPrice.
	MarketPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error)
	// CryptoToUSD returns the USD value of one unit of the given crypto.
	CryptoToUSD(ctx context.Context, crypto string) (decimal.Decimal, error)
	// HasValidConfiguration reports whether the source has the credentials
	// it needs to dispatch a live request.
	HasValidConfiguration() bool
}

type service struct {
	source Source
	store  repository.Repository
	logger *zap.Logger

	limiter *rate.Limiter
	group   singleflight.Group

	mu    sync.Mutex
	cache map[pairKey]domain.CachedRate
}

type pairKey struct{ From, To string }

// New constructs the rate Service. ratePerSecond/burst size the token
// bucket gating upstream dispatch.
func New(source Source, store repository.Repository, logger *zap.Logger, ratePerSecond float64, burst int) core.RateProvider {
	return &service{
		source:  source,
		store:   store,
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		cache:   make(map[pairKey]domain.CachedRate),
	}
}

func (s *service) HasValidConfiguration() bool {
	return s.source.HasValidConfiguration()
}

// FetchRate resolves the unit conversion rate from `from` to `to`, per the
// provider contract: identity pairs and stablecoin pairs short-circuit to 1.0,
// a fresh cache entry is returned directly, and a miss dispatches through
// the rate limiter to the pair-kind-appropriate strategy, falling back to
// the most recent stale value on a transient failure.
func (s *service) FetchRate(ctx context.Context, from, to string) (core.RateQuote, error) {
	if from == to {
		return core.RateQuote{Rate: decimal.NewFromInt(1), Source: "identity", FetchedAt: calendar.Now()}, nil
	}
	if domain.IsStablePair(from, to) {
		return core.RateQuote{Rate: decimal.NewFromInt(1), Source: "stablecoin", FetchedAt: calendar.Now()}, nil
	}

	if cached, ok := s.freshCache(from, to); ok {
		return core.RateQuote{Rate: cached.Rate, Source: "cache", FetchedAt: cached.FetchedAt}, nil
	}

	key := from + "/" + to
	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.resolveMiss(ctx, from, to)
	})
	if err != nil {
		return core.RateQuote{}, err
	}
	return result.(core.RateQuote), nil
}

func (s *service) freshCache(from, to string) (domain.CachedRate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.cache[pairKey{from, to}]
	if !ok {
		return domain.CachedRate{}, false
	}
	return cached, cached.FreshWithin(calendar.Now(), FreshWindow)
}

func (s *service) staleCache(from, to string) (domain.CachedRate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cached, ok := s.cache[pairKey{from, to}]
	return cached, ok
}

func (s *service) storeCache(from, to string, rate decimal.Decimal, fetchedAt calendar.EpochMillis) {
	s.mu.Lock()
	s.cache[pairKey{from, to}] = domain.CachedRate{Rate: rate, FetchedAt: fetchedAt}
	s.mu.Unlock()
}

// resolveMiss performs the rate-limited dispatch and fallback. It runs
// inside the singleflight group, so concurrent misses for the same pair
// share one dispatch.
func (s *service) resolveMiss(ctx context.Context, from, to string) (core.RateQuote, error) {
	// A second check in case another goroutine populated the cache while
	// this one waited to enter the singleflight group.
	if cached, ok := s.freshCache(from, to); ok {
		return core.RateQuote{Rate: cached.Rate, Source: "cache", FetchedAt: cached.FetchedAt}, nil
	}

	// After a restart the in-memory cache is empty: seed it from the durable
	// store so the last known rate is served while fresh and otherwise stays
	// available as the stale fallback.
	if _, ok := s.staleCache(from, to); !ok && s.store != nil {
		if rec, err := s.store.Get(ctx, from, to); err == nil && rec != nil {
			s.storeCache(from, to, rec.Rate, rec.FetchedAt)
			if cached, ok := s.freshCache(from, to); ok {
				return core.RateQuote{Rate: cached.Rate, Source: "cache", FetchedAt: cached.FetchedAt}, nil
			}
		}
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return s.fallbackOrError(from, to, err)
	}

	rateValue, err := s.dispatch(ctx, from, to)
	if err != nil {
		return s.fallbackOrError(from, to, err)
	}

	fetchedAt := calendar.Now()
	s.storeCache(from, to, rateValue, fetchedAt)
	if s.store != nil {
		rec := &domain.RateRecord{FromCurrency: from, ToCurrency: to, Rate: rateValue, FetchedAt: fetchedAt}
		if writeErr := s.store.Upsert(ctx, rec); writeErr != nil && s.logger != nil {
			s.logger.Warn("rate provider: durable write-through failed", zap.String("from", from), zap.String("to", to), zap.Error(writeErr))
		}
	}
	return core.RateQuote{Rate: rateValue, Source: "live", FetchedAt: fetchedAt}, nil
}

// dispatch routes to the conversion strategy for the pair's kind.
func (s *service) dispatch(ctx context.Context, from, to string) (decimal.Decimal, error) {
	kind := domain.ClassifyPair(s.source.IsFiat(from), s.source.IsFiat(to))
	switch kind {
	case domain.KindFiatToFiat:
		fromRate, err := s.source.FiatToUSDT(ctx, from)
		if err != nil {
			return decimal.Zero, err
		}
		toRate, err := s.source.FiatToUSDT(ctx, to)
		if err != nil {
			return decimal.Zero, err
		}
		if toRate.IsZero() {
			return decimal.Zero, savingserr.ErrRateUnavailable.WithDetails("reason", "zero cross rate")
		}
		return core.RoundRate(fromRate.Div(toRate)), nil

	case domain.KindCryptoToFiat:
		price, err := s.source.CryptoPrice(ctx, from, to)
		if err == nil {
			return core.RoundRate(price), nil
		}
		price, fallbackErr := s.source.MarketPrice(ctx, from, to)
		if fallbackErr != nil {
			return decimal.Zero, fallbackErr
		}
		return core.RoundRate(price), nil

	case domain.KindFiatToCrypto:
		price, err := s.dispatch(ctx, to, from)
		if err != nil {
			return decimal.Zero, err
		}
		if price.IsZero() {
			return decimal.Zero, savingserr.ErrRateUnavailable.WithDetails("reason", "zero reciprocal rate")
		}
		return core.RoundRate(decimal.NewFromInt(1).Div(price)), nil

	default: // crypto-to-crypto
		fromUSD, err := s.source.CryptoToUSD(ctx, from)
		if err != nil {
			return decimal.Zero, err
		}
		toUSD, err := s.source.CryptoToUSD(ctx, to)
		if err != nil {
			return decimal.Zero, err
		}
		if toUSD.IsZero() {
			return decimal.Zero, savingserr.ErrRateUnavailable.WithDetails("reason", "zero usd rate")
		}
		return core.RoundRate(fromUSD.Div(toUSD)), nil
	}
}

// fallbackOrError implements the fallback policy: a transient
// failure recovers locally to the most recent stale value when one exists,
// otherwise it surfaces a typed error classified from the failure.
func (s *service) fallbackOrError(from, to string, cause error) (core.RateQuote, error) {
	if stale, ok := s.staleCache(from, to); ok {
		if s.logger != nil {
			s.logger.Warn("rate provider: serving stale rate after fetch failure", zap.String("from", from), zap.String("to", to), zap.Error(cause))
		}
		return core.RateQuote{Rate: stale.Rate, Source: "stale", FetchedAt: stale.FetchedAt, Stale: true}, nil
	}

	switch {
	case errors.Is(cause, ErrSourceRateLimited):
		return core.RateQuote{}, savingserr.ErrRateLimited.WithError(cause)
	case errors.Is(cause, ErrSourceAPIKeyMissing):
		return core.RateQuote{}, savingserr.ErrAPIKeyMissing.WithError(cause)
	case errors.Is(cause, ErrSourceNetwork):
		return core.RateQuote{}, savingserr.ErrNetworkError.WithError(cause)
	case errors.Is(cause, context.Canceled), errors.Is(cause, context.DeadlineExceeded):
		return core.RateQuote{}, savingserr.ErrRateUnavailable.WithError(cause)
	default:
		return core.RateQuote{}, savingserr.ErrRateUnavailable.WithError(cause)
	}
}
