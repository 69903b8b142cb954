package analytics

import (
	"math"
	"testing"
	"time"
)

func pricedAt(current, previous float64) AssetPricing {
	now := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	return AssetPricing{
		Current:  PricePoint{Price: current, AsOf: now, OK: true},
		Previous: PricePoint{Price: previous, AsOf: now.AddDate(0, 0, -1), OK: true},
		FxRate:   1, FxOK: true,
		PrevFx: 1, PrevFxOK: true,
	}
}

func TestComputeSummary(t *testing.T) {
	t.Run("empty_portfolio_is_cash_only", func(t *testing.T) {
		s := ComputeSummary(nil, nil, 500)
		if s.MarketValue != 500 {
			t.Errorf("market value = %v, want cash balance 500", s.MarketValue)
		}
		if s.CostBasis != 0 || s.UnrealizedPL != 0 || s.UnrealizedPLPct != 0 {
			t.Errorf("expected zero P&L figures, got %+v", s)
		}
	})

	t.Run("single_position_gain", func(t *testing.T) {
		positions := []Position{{AssetID: "a1", Quantity: 10, AvgCost: 100}}
		pricing := map[string]AssetPricing{"a1": pricedAt(120, 115)}

		s := ComputeSummary(positions, pricing, 0)
		if math.Abs(s.MarketValue-1200) > 1e-9 {
			t.Errorf("market value = %v, want 1200", s.MarketValue)
		}
		if math.Abs(s.CostBasis-1000) > 1e-9 {
			t.Errorf("cost basis = %v, want 1000", s.CostBasis)
		}
		if math.Abs(s.UnrealizedPL-200) > 1e-9 {
			t.Errorf("unrealized pl = %v, want 200", s.UnrealizedPL)
		}
		if math.Abs(s.UnrealizedPLPct-20) > 1e-9 {
			t.Errorf("unrealized pl pct = %v, want 20", s.UnrealizedPLPct)
		}
		if math.Abs(s.DayChange-50) > 1e-9 {
			t.Errorf("day change = %v, want 50", s.DayChange)
		}
	})

	t.Run("fx_conversion_applies_to_value_and_cost", func(t *testing.T) {
		positions := []Position{{AssetID: "us1", Quantity: 10, AvgCost: 100}}
		pricing := map[string]AssetPricing{"us1": {
			Current:  PricePoint{Price: 120, OK: true},
			Previous: PricePoint{Price: 120, OK: true},
			FxRate:   0.9, FxOK: true,
			PrevFx: 0.9, PrevFxOK: true,
		}}

		s := ComputeSummary(positions, pricing, 0)
		if math.Abs(s.MarketValue-1080) > 1e-9 {
			t.Errorf("market value = %v, want 1080", s.MarketValue)
		}
		// Cost converts at the same current rate as market value.
		if math.Abs(s.CostBasis-900) > 1e-9 {
			t.Errorf("cost basis = %v, want 900", s.CostBasis)
		}
	})

	t.Run("unpriced_asset_excluded_with_warning", func(t *testing.T) {
		positions := []Position{
			{AssetID: "a1", Quantity: 10, AvgCost: 100},
			{AssetID: "a2", Quantity: 5, AvgCost: 10},
		}
		pricing := map[string]AssetPricing{"a1": pricedAt(110, 110)}

		s := ComputeSummary(positions, pricing, 0)
		if math.Abs(s.MarketValue-1100) > 1e-9 {
			t.Errorf("market value = %v, want 1100 from the priced asset only", s.MarketValue)
		}
		if len(s.Warnings) != 1 || s.Warnings[0].Code != WarnPriceUnavailable {
			t.Errorf("expected %s warning, got %v", WarnPriceUnavailable, s.Warnings)
		}
	})

	t.Run("missing_fx_excluded_with_warning", func(t *testing.T) {
		positions := []Position{{AssetID: "a1", Quantity: 10, AvgCost: 100}}
		pricing := map[string]AssetPricing{"a1": {
			Current: PricePoint{Price: 110, OK: true},
			FxOK:    false,
		}}

		s := ComputeSummary(positions, pricing, 250)
		if s.MarketValue != 250 {
			t.Errorf("market value = %v, want cash only", s.MarketValue)
		}
		if len(s.Warnings) != 1 || s.Warnings[0].Code != WarnFxUnavailable {
			t.Errorf("expected %s warning, got %v", WarnFxUnavailable, s.Warnings)
		}
	})

	t.Run("day_change_compares_same_subset", func(t *testing.T) {
		positions := []Position{
			{AssetID: "a1", Quantity: 10, AvgCost: 100},
			{AssetID: "a2", Quantity: 2, AvgCost: 50},
		}
		noPrior := pricedAt(60, 0)
		noPrior.Previous = PricePoint{}
		pricing := map[string]AssetPricing{
			"a1": pricedAt(120, 100),
			"a2": noPrior,
		}

		s := ComputeSummary(positions, pricing, 0)
		// a2 counts toward market value but not day change.
		if math.Abs(s.MarketValue-1320) > 1e-9 {
			t.Errorf("market value = %v, want 1320", s.MarketValue)
		}
		if math.Abs(s.DayChange-200) > 1e-9 {
			t.Errorf("day change = %v, want 200 from a1 only", s.DayChange)
		}
	})

	t.Run("closed_positions_contribute_realized_pl_only", func(t *testing.T) {
		positions := []Position{{AssetID: "a1", Quantity: 0, AvgCost: 100, RealizedPL: 75}}

		s := ComputeSummary(positions, nil, 0)
		if s.RealizedPL != 75 {
			t.Errorf("realized pl = %v, want 75", s.RealizedPL)
		}
		if s.MarketValue != 0 || len(s.Warnings) != 0 {
			t.Errorf("closed position must not need pricing: %+v", s)
		}
	})
}

func TestComputeAllocation(t *testing.T) {
	t.Run("weights_sum_to_hundred", func(t *testing.T) {
		positions := []Position{
			{AssetID: "a1", Quantity: 10, AvgCost: 100},
			{AssetID: "a2", Quantity: 40, AvgCost: 10},
		}
		pricing := map[string]AssetPricing{
			"a1": pricedAt(120, 120),
			"a2": pricedAt(10, 10),
		}

		entries := ComputeAllocation(positions, pricing)
		if len(entries) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(entries))
		}
		var sum float64
		for _, e := range entries {
			sum += e.WeightPct
		}
		if math.Abs(sum-100) > 1e-9 {
			t.Errorf("weights sum = %v, want 100", sum)
		}
		if math.Abs(entries[0].WeightPct-75) > 1e-9 {
			t.Errorf("a1 weight = %v, want 75", entries[0].WeightPct)
		}
	})

	t.Run("empty_when_nothing_valued", func(t *testing.T) {
		entries := ComputeAllocation([]Position{{AssetID: "a1", Quantity: 5}}, nil)
		if len(entries) != 0 {
			t.Errorf("expected empty allocation, got %v", entries)
		}
	})
}
