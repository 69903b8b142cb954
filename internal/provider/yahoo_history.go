package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// HistoricalProvider is implemented by providers that can serve a daily
// close series over a date range, not just the latest close.
type HistoricalProvider interface {
	FetchBarsRange(ctx context.Context, asset Asset, from, to time.Time) ([]Bar, error)
}

// yahooHistoryResponse is the v8 chart API response shape for range
// queries, where closes come as parallel timestamp/close arrays.
type yahooHistoryResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchBarsRange fetches daily closes for one asset between from and to,
// both inclusive. Days without a close (market holidays, nulls in the
// feed) are skipped.
func (p *YahooProvider) FetchBarsRange(ctx context.Context, asset Asset, from, to time.Time) ([]Bar, error) {
	ticker := buildYahooTicker(asset)
	url := fmt.Sprintf("%s/%s?interval=1d&period1=%d&period2=%d",
		p.baseURL, ticker, from.UTC().Unix(), to.UTC().Add(24*time.Hour).Unix())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", ticker, err)
	}
	req.Header.Set("User-Agent", yahooUA)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request for %s: %w", ticker, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request for %s: unexpected status %d", ticker, resp.StatusCode)
	}

	var histResp yahooHistoryResponse
	if err := json.NewDecoder(resp.Body).Decode(&histResp); err != nil {
		return nil, fmt.Errorf("decoding response for %s: %w", ticker, err)
	}

	if histResp.Chart.Error != nil {
		return nil, fmt.Errorf("chart error for %s: %s: %s",
			ticker, histResp.Chart.Error.Code, histResp.Chart.Error.Description)
	}
	if len(histResp.Chart.Result) == 0 {
		return nil, fmt.Errorf("no chart results for %s", ticker)
	}

	result := histResp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("no quote series for %s", ticker)
	}
	closes := result.Indicators.Quote[0].Close

	var bars []Bar
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		bars = append(bars, Bar{
			AssetID: asset.ID,
			Date:    time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Close:   *closes[i],
		})
	}
	return bars, nil
}
