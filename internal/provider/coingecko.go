package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const coingeckoBaseURL = "https://api.coingecko.com/api/v3/simple/price"

// coingeckoIDs maps common crypto symbols to CoinGecko coin IDs. Symbols
// not in the map are reported as fetch errors rather than guessed.
var coingeckoIDs = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"ADA":   "cardano",
	"DOT":   "polkadot",
	"XRP":   "ripple",
	"LTC":   "litecoin",
	"DOGE":  "dogecoin",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
	"ATOM":  "cosmos",
}

// CoinGeckoProvider fetches prices from CoinGecko for cryptocurrencies.
type CoinGeckoProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewCoinGeckoProvider creates a new CoinGecko price provider.
func NewCoinGeckoProvider(httpClient *http.Client) *CoinGeckoProvider {
	return &CoinGeckoProvider{httpClient: httpClient, baseURL: coingeckoBaseURL}
}

// Name returns the provider's display name.
func (p *CoinGeckoProvider) Name() string { return "CoinGecko" }

// Supports returns true for crypto asset type only.
func (p *CoinGeckoProvider) Supports(assetType string) bool {
	return assetType == "crypto"
}

// FetchBars fetches current prices from CoinGecko in a single batched
// request, one vs_currency per quote currency.
func (p *CoinGeckoProvider) FetchBars(ctx context.Context, assets []Asset) ([]Bar, []FetchError) {
	if len(assets) == 0 {
		return nil, nil
	}

	var fetchErrors []FetchError
	idToAssets := make(map[string][]Asset)
	ids := make([]string, 0, len(assets))
	currencies := make(map[string]bool)

	for _, asset := range assets {
		id, ok := coingeckoIDs[strings.ToUpper(asset.Symbol)]
		if !ok {
			fetchErrors = append(fetchErrors, FetchError{
				AssetID: asset.ID,
				Symbol:  asset.Symbol,
				Err:     fmt.Errorf("no CoinGecko ID mapping for symbol %s", asset.Symbol),
			})
			continue
		}
		if len(idToAssets[id]) == 0 {
			ids = append(ids, id)
		}
		idToAssets[id] = append(idToAssets[id], asset)
		currencies[strings.ToLower(asset.QuoteCurrency)] = true
	}
	if len(ids) == 0 {
		return nil, fetchErrors
	}

	vsCurrencies := make([]string, 0, len(currencies))
	for c := range currencies {
		vsCurrencies = append(vsCurrencies, c)
	}

	url := p.baseURL + "?ids=" + strings.Join(ids, ",") + "&vs_currencies=" + strings.Join(vsCurrencies, ",")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, append(fetchErrors, batchErrors(idToAssets, fmt.Errorf("building request: %w", err))...)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, append(fetchErrors, batchErrors(idToAssets, fmt.Errorf("http request: %w", err))...)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, append(fetchErrors, batchErrors(idToAssets, fmt.Errorf("unexpected status %d", resp.StatusCode))...)
	}

	// coin id -> currency -> price
	var prices map[string]map[string]float64
	if err := json.NewDecoder(resp.Body).Decode(&prices); err != nil {
		return nil, append(fetchErrors, batchErrors(idToAssets, fmt.Errorf("decoding response: %w", err))...)
	}

	var bars []Bar
	date := time.Now().UTC().Truncate(24 * time.Hour)

	for id, group := range idToAssets {
		quotes, ok := prices[id]
		for _, asset := range group {
			price := quotes[strings.ToLower(asset.QuoteCurrency)]
			if !ok || price <= 0 {
				fetchErrors = append(fetchErrors, FetchError{
					AssetID: asset.ID,
					Symbol:  asset.Symbol,
					Err:     fmt.Errorf("no %s price for %s in response", asset.QuoteCurrency, id),
				})
				continue
			}
			bars = append(bars, Bar{AssetID: asset.ID, Date: date, Close: price})
		}
	}

	return bars, fetchErrors
}

// batchErrors creates FetchErrors for every asset in a failed batch.
func batchErrors(idToAssets map[string][]Asset, err error) []FetchError {
	var errors []FetchError
	for _, group := range idToAssets {
		for _, asset := range group {
			errors = append(errors, FetchError{AssetID: asset.ID, Symbol: asset.Symbol, Err: err})
		}
	}
	return errors
}
