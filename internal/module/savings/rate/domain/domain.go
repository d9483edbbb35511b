// Package domain holds the rate-provider's wire-independent types: the
// cached rate shape, the durable record it's written through to, and the
// pair classification that picks a conversion strategy.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
)

// Stablecoins is the USD-pegged set any pair within which resolves to
// exactly 1.0.
var Stablecoins = map[string]bool{"USD": true, "USDT": true, "USDC": true}

// IsStablePair reports whether from and to are both in the stablecoin set.
func IsStablePair(from, to string) bool {
	return Stablecoins[from] && Stablecoins[to]
}

// PairKind classifies a (from, to) currency pair to pick a conversion
// strategy. Classification needs to know which side(s) are crypto; the
// service asks its Source for that via Source.IsFiat.
type PairKind int

const (
	KindFiatToFiat PairKind = iota
	KindCryptoToFiat
	KindFiatToCrypto
	KindCryptoToCrypto
)

// ClassifyPair returns the PairKind for (from, to) given whether each side
// is a fiat currency.
func ClassifyPair(fromIsFiat, toIsFiat bool) PairKind {
	switch {
	case fromIsFiat && toIsFiat:
		return KindFiatToFiat
	case !fromIsFiat && toIsFiat:
		return KindCryptoToFiat
	case fromIsFiat && !toIsFiat:
		return KindFiatToCrypto
	default:
		return KindCryptoToCrypto
	}
}

// CachedRate is an in-memory resolved rate plus the instant it was fetched,
// the unit the in-process cache (guarded by the service's mutex) stores.
type CachedRate struct {
	Rate      decimal.Decimal
	FetchedAt calendar.EpochMillis
}

// FreshWithin reports whether the cached rate is still fresh at `now` given
// a max-age window. The provider calls it with its 5-minute TTL; the stale
// fallback does not call it and serves a cached rate of any age.
func (c CachedRate) FreshWithin(now calendar.EpochMillis, window time.Duration) bool {
	age := time.Duration(int64(now)-int64(c.FetchedAt)) * time.Millisecond
	return age >= 0 && age <= window
}

// RateRecord is the durable write-through row: the rate provider's restart
// recovery mechanism. One row per (from, to) pair.
type RateRecord struct {
	ID           uuid.UUID       `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	FromCurrency string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_rate_pair;column:from_currency" json:"from_currency"`
	ToCurrency   string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_rate_pair;column:to_currency" json:"to_currency"`
	Rate         decimal.Decimal `gorm:"type:decimal(36,18);not null;column:rate" json:"rate"`
	FetchedAt    calendar.EpochMillis `gorm:"not null;column:fetched_at" json:"fetched_at"`
	UpdatedAt    time.Time       `gorm:"autoUpdateTime;column:updated_at" json:"updated_at"`
}

func (RateRecord) TableName() string { return "savings_rate_cache" }
