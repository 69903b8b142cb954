package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const (
	yahooBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"
	yahooUA      = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
)

// exchangeSuffixes maps exchange codes to Yahoo Finance ticker suffixes.
var exchangeSuffixes = map[string]string{
	"BIT":      ".MI",
	"LSE":      ".L",
	"XETRA":    ".DE",
	"FRA":      ".F",
	"EURONEXT": ".PA",
	"AMS":      ".AS",
	"SIX":      ".SW",
	"TSX":      ".TO",
	"HKEX":     ".HK",
	"ASX":      ".AX",
	"JPX":      ".T",
	"SGX":      ".SI",
}

// yahooChartResponse is the v8 chart API response for a single ticker.
type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				RegularMarketTime  int64   `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// YahooProvider fetches closes from Yahoo Finance for stocks, ETFs, bonds,
// and funds.
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
}

// NewYahooProvider creates a new Yahoo Finance price provider.
func NewYahooProvider(httpClient *http.Client) *YahooProvider {
	return &YahooProvider{httpClient: httpClient, baseURL: yahooBaseURL}
}

// Name returns the provider's display name.
func (p *YahooProvider) Name() string { return "Yahoo Finance" }

// Supports returns true for stock, etf, bond, and fund asset types.
func (p *YahooProvider) Supports(assetType string) bool {
	switch assetType {
	case "stock", "etf", "bond", "fund":
		return true
	default:
		return false
	}
}

// buildYahooTicker combines the symbol with the exchange suffix, when the
// exchange has one.
func buildYahooTicker(asset Asset) string {
	if suffix, ok := exchangeSuffixes[asset.ExchangeCode]; ok {
		return asset.Symbol + suffix
	}
	return asset.Symbol
}

// FetchBars fetches the latest close for each asset from Yahoo Finance.
// The chart endpoint serves one ticker per request.
func (p *YahooProvider) FetchBars(ctx context.Context, assets []Asset) ([]Bar, []FetchError) {
	var bars []Bar
	var fetchErrors []FetchError

	for _, asset := range assets {
		bar, err := p.fetchOne(ctx, asset)
		if err != nil {
			fetchErrors = append(fetchErrors, FetchError{
				AssetID: asset.ID,
				Symbol:  asset.Symbol,
				Err:     err,
			})
			continue
		}
		bars = append(bars, bar)
	}

	return bars, fetchErrors
}

// fetchOne fetches the latest daily bar for a single asset.
func (p *YahooProvider) fetchOne(ctx context.Context, asset Asset) (Bar, error) {
	ticker := buildYahooTicker(asset)
	url := p.baseURL + "/" + ticker + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Bar{}, fmt.Errorf("building request for %s: %w", ticker, err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return Bar{}, fmt.Errorf("http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Bar{}, fmt.Errorf("request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var chartResp yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return Bar{}, fmt.Errorf("decoding response for %s: %w", ticker, err)
	}

	if chartResp.Chart.Error != nil {
		return Bar{}, fmt.Errorf("chart error for %s: %s: %s",
			ticker, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}
	if len(chartResp.Chart.Result) == 0 {
		return Bar{}, fmt.Errorf("no chart results for %s", ticker)
	}

	meta := chartResp.Chart.Result[0].Meta
	if meta.RegularMarketPrice <= 0 {
		return Bar{}, fmt.Errorf("invalid price for %s: %f", ticker, meta.RegularMarketPrice)
	}

	date := time.Now().UTC()
	if meta.RegularMarketTime > 0 {
		date = time.Unix(meta.RegularMarketTime, 0).UTC()
	}

	return Bar{
		AssetID: asset.ID,
		Date:    date.Truncate(24 * time.Hour),
		Close:   meta.RegularMarketPrice,
	}, nil
}
