package core

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/calendar"
)

// RateProvider resolves a unit conversion rate between two currency or asset
// codes (fiat-to-fiat, fiat-to-crypto, or crypto-to-crypto). Implementations
// are expected to cache, rate-limit, and fall back to a stale cached value
// per the rate provider's fallback policy; FetchRate itself always
// returns the freshest value it has or a RATE_UNAVAILABLE/RATE_LIMITED/
// API_KEY_MISSING/NETWORK_ERROR AppError.
type RateProvider interface {
	FetchRate(ctx context.Context, from, to string) (RateQuote, error)
	HasValidConfiguration() bool
}

// RateQuote is a resolved conversion rate plus its provenance.
type RateQuote struct {
	Rate      decimal.Decimal
	Source    string
	FetchedAt calendar.EpochMillis
	Stale     bool
}

// OnChainBalanceProvider resolves an asset's live balance from its backing
// chain or custodian, when the asset is configured for automatic tracking.
type OnChainBalanceProvider interface {
	GetBalance(ctx context.Context, assetID uuid.UUID, address, chain string, forceRefresh bool) (BalanceResult, error)
}

// BalanceResult is a resolved balance plus staleness/provenance metadata.
type BalanceResult struct {
	Balance   decimal.Decimal
	FetchedAt calendar.EpochMillis
	Stale     bool
}

// TransactionProvider resolves manually-tracked balances and deduplicates
// externally-sourced transactions by their external identifier.
type TransactionProvider interface {
	GetManualBalance(ctx context.Context, assetID uuid.UUID) (decimal.Decimal, error)
	GetByExternalID(ctx context.Context, externalID string) (bool, error)
}
