package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"valore/internal/oracle"
	"valore/internal/provider"
)

var (
	backfillAsset = flag.String("backfill", "", "asset ID to backfill instead of running a normal cycle")
	backfillFrom  = flag.String("from", "", "backfill start date (YYYY-MM-DD)")
	backfillTo    = flag.String("to", "", "backfill end date (YYYY-MM-DD), defaults to today")
)

func main() {
	flag.Parse()
	cfg, err := oracle.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	valoreClient := oracle.NewValoreClient(cfg.APIBaseURL, cfg.PipelineAPIKey, httpClient)

	providers := []provider.Provider{
		provider.NewYahooProvider(httpClient),
		provider.NewCoinGeckoProvider(httpClient),
	}
	forex := provider.NewForexFetcher(httpClient)

	orc := oracle.NewOracle(valoreClient, providers, forex, cfg, logger)
	ctx := context.Background()

	if *backfillAsset != "" {
		runBackfill(ctx, orc, logger)
		return
	}

	result, err := orc.Run(ctx)
	if err != nil {
		logger.Error("oracle run failed", "error", err)
		os.Exit(1)
	}

	logger.Info("oracle run completed",
		"assets_fetched", result.AssetsFetched,
		"bars_recorded", result.BarsRecorded,
		"fx_recorded", result.FxRecorded,
		"plans_generated", result.PlansGenerated,
		"plans_executed", result.PlansExecuted,
		"errors", len(result.Errors),
		"duration", result.Duration.String(),
	)

	for _, fetchErr := range result.Errors {
		logger.Warn("close fetch failed",
			"symbol", fetchErr.Symbol,
			"asset_id", fetchErr.AssetID,
			"error", fetchErr.Err.Error(),
		)
	}

	if len(result.Errors) > 0 {
		os.Exit(2)
	}
}

func runBackfill(ctx context.Context, orc *oracle.Oracle, logger *slog.Logger) {
	if *backfillFrom == "" {
		fmt.Fprintln(os.Stderr, "-from is required for a backfill")
		os.Exit(1)
	}
	from, err := time.Parse("2006-01-02", *backfillFrom)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -from date: %v\n", err)
		os.Exit(1)
	}
	to := time.Now().UTC()
	if *backfillTo != "" {
		to, err = time.Parse("2006-01-02", *backfillTo)
		if err != nil {
			fmt.Fprintf(os.Stderr, "invalid -to date: %v\n", err)
			os.Exit(1)
		}
	}

	recorded, err := orc.Backfill(ctx, *backfillAsset, from, to)
	if err != nil {
		logger.Error("backfill failed", "asset_id", *backfillAsset, "error", err)
		os.Exit(1)
	}
	logger.Info("backfill completed", "asset_id", *backfillAsset, "bars_recorded", recorded)
}
