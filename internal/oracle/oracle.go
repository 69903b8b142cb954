// Package oracle orchestrates fetching market data from providers and
// pushing it to the Valore pipeline API.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"valore/internal/provider"
)

// PipelineClient defines the Valore API operations needed by the runner.
type PipelineClient interface {
	GetAssets(ctx context.Context) ([]Asset, error)
	RecordBars(ctx context.Context, bars []BarEntry) (int, error)
	RecordFxRates(ctx context.Context, rates []FxEntry) (int, error)
	RunPacScheduler(ctx context.Context) (SchedulerResult, error)
}

// FxSource fetches daily FX observations for currency pairs.
type FxSource interface {
	FetchRates(ctx context.Context, pairs [][2]string) ([]provider.FxObservation, []error)
}

// RunResult contains the outcome of one pipeline run.
type RunResult struct {
	AssetsFetched  int
	BarsRecorded   int
	FxRecorded     int
	PlansGenerated int
	PlansExecuted  int
	Errors         []provider.FetchError
	Duration       time.Duration
}

// Oracle fetches asset closes and FX rates from external providers and
// records them via the Valore API.
type Oracle struct {
	client    PipelineClient
	providers []provider.Provider
	forex     FxSource
	config    *Config
	logger    *slog.Logger
}

// NewOracle creates a new Oracle instance.
func NewOracle(client PipelineClient, providers []provider.Provider, forex FxSource, cfg *Config, logger *slog.Logger) *Oracle {
	return &Oracle{
		client:    client,
		providers: providers,
		forex:     forex,
		config:    cfg,
		logger:    logger,
	}
}

// Run executes a single pipeline cycle: fetch assets, get closes and FX
// rates, record the results, and trigger the plan scheduler if configured.
func (o *Oracle) Run(ctx context.Context) (*RunResult, error) {
	start := time.Now()
	result := &RunResult{}

	assets, err := o.client.GetAssets(ctx)
	if err != nil {
		return nil, err
	}
	result.AssetsFetched = len(assets)

	if len(assets) == 0 {
		o.logger.Info("no assets found, nothing to do")
		result.Duration = time.Since(start)
		return result, nil
	}

	providerAssets := make([]provider.Asset, len(assets))
	for i, a := range assets {
		providerAssets[i] = provider.Asset{
			ID:            a.ID,
			Symbol:        a.Symbol,
			AssetType:     a.AssetType,
			ExchangeCode:  a.ExchangeCode,
			QuoteCurrency: a.QuoteCurrency,
		}
	}

	// Group by the first provider that supports each asset type.
	groups := make(map[int][]provider.Asset)
	for _, asset := range providerAssets {
		matched := false
		for i, p := range o.providers {
			if p.Supports(asset.AssetType) {
				groups[i] = append(groups[i], asset)
				matched = true
				break
			}
		}
		if !matched {
			o.logger.Warn("no provider supports asset type", "symbol", asset.Symbol, "asset_type", asset.AssetType)
		}
	}

	// Fetch bars from each provider concurrently.
	var mu sync.Mutex
	var allBars []provider.Bar
	var allErrors []provider.FetchError

	var wg sync.WaitGroup
	for i, group := range groups {
		wg.Add(1)
		go func(p provider.Provider, assets []provider.Asset) {
			defer wg.Done()
			o.logger.Info("fetching closes", "provider", p.Name(), "count", len(assets))
			bars, fetchErrors := p.FetchBars(ctx, assets)
			mu.Lock()
			allBars = append(allBars, bars...)
			allErrors = append(allErrors, fetchErrors...)
			mu.Unlock()
		}(o.providers[i], group)
	}
	wg.Wait()

	result.Errors = allErrors

	if len(allBars) > 0 {
		entries := make([]BarEntry, len(allBars))
		for i, b := range allBars {
			entries[i] = BarEntry{
				AssetID: b.AssetID,
				Date:    FormatDate(b.Date),
				Close:   b.Close,
			}
		}
		recorded, err := o.client.RecordBars(ctx, entries)
		if err != nil {
			return nil, err
		}
		result.BarsRecorded = recorded
	} else {
		o.logger.Info("no closes fetched")
	}

	if o.forex != nil {
		recorded, err := o.recordFxRates(ctx, providerAssets)
		if err != nil {
			o.logger.Warn("failed to record fx rates", "error", err)
		} else {
			result.FxRecorded = recorded
		}
	}

	if o.config.RunScheduler {
		scheduler, err := o.client.RunPacScheduler(ctx)
		if err != nil {
			o.logger.Warn("failed to run plan scheduler", "error", err)
		} else {
			result.PlansGenerated = scheduler.Generated
			result.PlansExecuted = scheduler.Executed
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// Backfill fetches daily closes for one asset over a date range and
// records them. Only providers with historical series support can serve
// a backfill.
func (o *Oracle) Backfill(ctx context.Context, assetID string, from, to time.Time) (int, error) {
	assets, err := o.client.GetAssets(ctx)
	if err != nil {
		return 0, err
	}

	var target *Asset
	for i := range assets {
		if assets[i].ID == assetID {
			target = &assets[i]
			break
		}
	}
	if target == nil {
		return 0, fmt.Errorf("asset %s not found", assetID)
	}

	asset := provider.Asset{
		ID:            target.ID,
		Symbol:        target.Symbol,
		AssetType:     target.AssetType,
		ExchangeCode:  target.ExchangeCode,
		QuoteCurrency: target.QuoteCurrency,
	}

	for _, p := range o.providers {
		if !p.Supports(asset.AssetType) {
			continue
		}
		hist, ok := p.(provider.HistoricalProvider)
		if !ok {
			return 0, fmt.Errorf("provider %s has no historical series for %s", p.Name(), asset.Symbol)
		}

		o.logger.Info("backfilling closes",
			"provider", p.Name(), "symbol", asset.Symbol,
			"from", from.Format("2006-01-02"), "to", to.Format("2006-01-02"))

		bars, err := hist.FetchBarsRange(ctx, asset, from, to)
		if err != nil {
			return 0, err
		}
		if len(bars) == 0 {
			return 0, nil
		}

		entries := make([]BarEntry, len(bars))
		for i, b := range bars {
			entries[i] = BarEntry{
				AssetID: b.AssetID,
				Date:    FormatDate(b.Date),
				Close:   b.Close,
			}
		}
		return o.client.RecordBars(ctx, entries)
	}
	return 0, fmt.Errorf("no provider supports asset type %s", asset.AssetType)
}

// recordFxRates fetches and records one observation per distinct quote
// currency that differs from the configured base currency.
func (o *Oracle) recordFxRates(ctx context.Context, assets []provider.Asset) (int, error) {
	seen := make(map[string]bool)
	var pairs [][2]string
	for _, asset := range assets {
		if asset.QuoteCurrency == "" || asset.QuoteCurrency == o.config.BaseCurrency {
			continue
		}
		if seen[asset.QuoteCurrency] {
			continue
		}
		seen[asset.QuoteCurrency] = true
		pairs = append(pairs, [2]string{asset.QuoteCurrency, o.config.BaseCurrency})
	}
	if len(pairs) == 0 {
		return 0, nil
	}

	observations, errs := o.forex.FetchRates(ctx, pairs)
	for _, err := range errs {
		o.logger.Warn("fx fetch failed", "error", err)
	}
	if len(observations) == 0 {
		return 0, nil
	}

	entries := make([]FxEntry, len(observations))
	for i, obs := range observations {
		entries[i] = FxEntry{
			BaseCurrency:  obs.BaseCurrency,
			QuoteCurrency: obs.QuoteCurrency,
			Date:          FormatDate(obs.Date),
			Rate:          obs.Rate,
		}
	}
	return o.client.RecordFxRates(ctx, entries)
}
