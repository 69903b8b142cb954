package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Asset represents an asset returned by the Valore pipeline API.
type Asset struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	AssetType     string `json:"asset_type"`
	ExchangeCode  string `json:"exchange_code"`
	QuoteCurrency string `json:"quote_currency"`
}

// BarEntry is a single daily close to submit to the pipeline API.
type BarEntry struct {
	AssetID string  `json:"asset_id"`
	Date    string  `json:"date"` // RFC3339
	Close   float64 `json:"close"`
}

// FxEntry is a single daily FX observation to submit to the pipeline API.
type FxEntry struct {
	BaseCurrency  string  `json:"base_currency"`
	QuoteCurrency string  `json:"quote_currency"`
	Date          string  `json:"date"` // RFC3339
	Rate          float64 `json:"rate"`
}

// SchedulerResult reports one recurring-plan scheduler pass.
type SchedulerResult struct {
	Generated int `json:"generated"`
	Executed  int `json:"executed"`
}

// ValoreClient communicates with the Valore pipeline API.
type ValoreClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewValoreClient creates a new Valore pipeline API client.
func NewValoreClient(baseURL, apiKey string, httpClient *http.Client) *ValoreClient {
	return &ValoreClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// GetAssets fetches all active assets from the pipeline API.
func (c *ValoreClient) GetAssets(ctx context.Context) ([]Asset, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/pipeline/assets", nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching assets: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching assets: unexpected status %d", resp.StatusCode)
	}

	var result struct {
		Assets []Asset `json:"assets"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding assets response: %w", err)
	}
	return result.Assets, nil
}

// RecordBars submits daily closes to the pipeline API and returns how many
// were newly recorded.
func (c *ValoreClient) RecordBars(ctx context.Context, bars []BarEntry) (int, error) {
	body := struct {
		Bars []BarEntry `json:"bars"`
	}{Bars: bars}

	var result struct {
		Recorded int `json:"recorded"`
	}
	if err := c.post(ctx, "/api/v1/pipeline/prices", body, &result); err != nil {
		return 0, fmt.Errorf("recording bars: %w", err)
	}
	return result.Recorded, nil
}

// RecordFxRates submits FX observations to the pipeline API and returns how
// many were newly recorded.
func (c *ValoreClient) RecordFxRates(ctx context.Context, rates []FxEntry) (int, error) {
	body := struct {
		Rates []FxEntry `json:"rates"`
	}{Rates: rates}

	var result struct {
		Recorded int `json:"recorded"`
	}
	if err := c.post(ctx, "/api/v1/pipeline/fx-rates", body, &result); err != nil {
		return 0, fmt.Errorf("recording fx rates: %w", err)
	}
	return result.Recorded, nil
}

// RunPacScheduler triggers one recurring-plan scheduler pass.
func (c *ValoreClient) RunPacScheduler(ctx context.Context) (SchedulerResult, error) {
	var result SchedulerResult
	if err := c.post(ctx, "/api/v1/pipeline/pac/run", nil, &result); err != nil {
		return SchedulerResult{}, fmt.Errorf("running plan scheduler: %w", err)
	}
	return result, nil
}

func (c *ValoreClient) post(ctx context.Context, path string, body, out interface{}) error {
	var reader *strings.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = strings.NewReader(string(jsonBody))
	} else {
		reader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// FormatDate renders a bar or FX date the way the pipeline API expects.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
