// Package okx implements the rate provider's Source against OKX's public
// market-data API. Only unauthenticated endpoints are used: spot tickers
// for crypto pricing and the USDT fiat markets for fiat crossing, so the
// source works without credentials.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"savingsplanner/internal/module/savings/rate/service"
)

const baseURL = "https://www.okx.com"

// fiatCodes is the set of currency codes treated as fiat when classifying
// a conversion pair. Everything else is assumed to be a crypto symbol.
var fiatCodes = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "JPY": true, "CHF": true,
	"AUD": true, "CAD": true, "NZD": true, "SEK": true, "NOK": true,
	"DKK": true, "PLN": true, "CZK": true, "HUF": true, "SGD": true,
	"HKD": true, "KRW": true, "CNY": true, "INR": true, "BRL": true,
	"MXN": true, "TRY": true, "ZAR": true, "AED": true, "VND": true,
}

// Source fetches rates from OKX market data.
type Source struct {
	httpClient *http.Client
	baseURL    string
}

// New constructs the OKX-backed Source.
func New() *Source {
	return &Source{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

// tickerResponse is the envelope OKX wraps every market response in.
type tickerResponse struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		InstID  string `json:"instId"`
		Last    string `json:"last"`
		IdxPx   string `json:"idxPx"`
	} `json:"data"`
}

func (s *Source) IsFiat(code string) bool {
	return fiatCodes[code]
}

// HasValidConfiguration is always true: the market endpoints used here are
// public and need no credentials.
func (s *Source) HasValidConfiguration() bool { return true }

func (s *Source) fetch(ctx context.Context, path string) (*tickerResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", service.ErrSourceNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, service.ErrSourceRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", service.ErrSourceNetwork, resp.StatusCode, string(body))
	}

	var parsed tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", service.ErrSourceNetwork, err)
	}
	if parsed.Code != "0" {
		return nil, fmt.Errorf("%w: okx error %s: %s", service.ErrSourceNetwork, parsed.Code, parsed.Msg)
	}
	if len(parsed.Data) == 0 {
		return nil, fmt.Errorf("%w: empty ticker data", service.ErrSourceNetwork)
	}
	return &parsed, nil
}

func (s *Source) lastPrice(ctx context.Context, instID string) (decimal.Decimal, error) {
	parsed, err := s.fetch(ctx, "/api/v5/market/ticker?instId="+instID)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(parsed.Data[0].Last)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad price %q", service.ErrSourceNetwork, parsed.Data[0].Last)
	}
	return price, nil
}

// FiatToUSDT returns the USDT value of one unit of fiat, via the USDT-fiat
// spot market (the price of one USDT in that fiat).
func (s *Source) FiatToUSDT(ctx context.Context, fiatCode string) (decimal.Decimal, error) {
	if fiatCode == "USD" {
		return decimal.NewFromInt(1), nil
	}
	usdtInFiat, err := s.lastPrice(ctx, "USDT-"+fiatCode)
	if err != nil {
		return decimal.Zero, err
	}
	if usdtInFiat.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero USDT-%s price", service.ErrSourceNetwork, fiatCode)
	}
	return decimal.NewFromInt(1).Div(usdtInFiat), nil
}

// CryptoPrice returns the direct fiat price of one unit of crypto: the
// crypto's USDT ticker crossed into the fiat.
func (s *Source) CryptoPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	inUSDT, err := s.lastPrice(ctx, crypto+"-USDT")
	if err != nil {
		return decimal.Zero, err
	}
	fiatRate, err := s.FiatToUSDT(ctx, fiat)
	if err != nil {
		return decimal.Zero, err
	}
	if fiatRate.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: zero fiat rate for %s", service.ErrSourceNetwork, fiat)
	}
	return inUSDT.Div(fiatRate), nil
}

// MarketPrice is the fallback path: the index ticker, which aggregates
// across venues and exists for pairs with no direct spot market.
func (s *Source) MarketPrice(ctx context.Context, crypto, fiat string) (decimal.Decimal, error) {
	parsed, err := s.fetch(ctx, "/api/v5/market/index-tickers?instId="+crypto+"-"+fiat)
	if err != nil {
		return decimal.Zero, err
	}
	price, err := decimal.NewFromString(parsed.Data[0].IdxPx)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: bad index price %q", service.ErrSourceNetwork, parsed.Data[0].IdxPx)
	}
	return price, nil
}

// CryptoToUSD returns the USD value of one unit of crypto via its USDT
// market, with USDT pegged 1:1 to USD.
func (s *Source) CryptoToUSD(ctx context.Context, crypto string) (decimal.Decimal, error) {
	return s.lastPrice(ctx, crypto+"-USDT")
}
