package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

// FxObservation is one fetched daily FX rate: one unit of Base expressed
// in Quote.
type FxObservation struct {
	BaseCurrency  string
	QuoteCurrency string
	Date          time.Time
	Rate          float64
}

// ForexFetcher fetches exchange rates from Yahoo Finance. Rates are cached
// in-memory for the lifetime of the fetcher instance, so a single instance
// should be used per pipeline run.
type ForexFetcher struct {
	httpClient *http.Client
	baseURL    string // overridable for tests
	mu         sync.RWMutex
	rates      map[string]float64 // "USDEUR" -> 0.92
}

// NewForexFetcher creates a new ForexFetcher.
func NewForexFetcher(httpClient *http.Client) *ForexFetcher {
	return &ForexFetcher{
		httpClient: httpClient,
		baseURL:    yahooBaseURL,
		rates:      make(map[string]float64),
	}
}

// FetchRate fetches (or returns cached) the rate from base to quote.
// For example, FetchRate(ctx, "USD", "EUR") fetches USDEUR=X from Yahoo
// and returns how many EUR one USD buys.
func (f *ForexFetcher) FetchRate(ctx context.Context, base, quote string) (float64, error) {
	base = strings.ToUpper(base)
	quote = strings.ToUpper(quote)
	if base == quote {
		return 1.0, nil
	}

	key := base + quote
	f.mu.RLock()
	rate, ok := f.rates[key]
	f.mu.RUnlock()
	if ok {
		return rate, nil
	}

	rate, err := f.fetchRate(ctx, base, quote)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.rates[key] = rate
	f.mu.Unlock()

	return rate, nil
}

// FetchRates fetches one observation per requested pair. Pairs that fail
// are reported as errors; the rest are still returned.
func (f *ForexFetcher) FetchRates(ctx context.Context, pairs [][2]string) ([]FxObservation, []error) {
	date := time.Now().UTC().Truncate(24 * time.Hour)

	var observations []FxObservation
	var errs []error

	for _, pair := range pairs {
		rate, err := f.FetchRate(ctx, pair[0], pair[1])
		if err != nil {
			errs = append(errs, err)
			continue
		}
		observations = append(observations, FxObservation{
			BaseCurrency:  strings.ToUpper(pair[0]),
			QuoteCurrency: strings.ToUpper(pair[1]),
			Date:          date,
			Rate:          rate,
		})
	}

	return observations, errs
}

// fetchRate fetches the rate for one currency pair from Yahoo Finance.
// Yahoo uses tickers like "USDEUR=X" for forex pairs.
func (f *ForexFetcher) fetchRate(ctx context.Context, base, quote string) (float64, error) {
	ticker := base + quote + "=X"
	url := f.baseURL + "/" + ticker + "?interval=1d&range=1d"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building forex request: %w", err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("forex http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("forex request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var chartResp yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chartResp); err != nil {
		return 0, fmt.Errorf("decoding forex response for %s: %w", ticker, err)
	}

	if chartResp.Chart.Error != nil {
		return 0, fmt.Errorf("forex chart error for %s: %s: %s",
			ticker, chartResp.Chart.Error.Code, chartResp.Chart.Error.Description)
	}
	if len(chartResp.Chart.Result) == 0 {
		return 0, fmt.Errorf("no forex results for %s", ticker)
	}

	rate := chartResp.Chart.Result[0].Meta.RegularMarketPrice
	if rate <= 0 {
		return 0, fmt.Errorf("invalid forex rate for %s: %f", ticker, rate)
	}

	return rate, nil
}
