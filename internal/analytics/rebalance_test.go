package analytics

import (
	"errors"
	"math"
	"testing"
)

func planItem(t *testing.T, preview Preview, assetID string) PlanItem {
	t.Helper()
	for _, item := range preview.Items {
		if item.AssetID == assetID {
			return item
		}
	}
	t.Fatalf("no plan item for asset %s", assetID)
	return PlanItem{}
}

func TestPreviewRebalance(t *testing.T) {
	t.Run("buy_only_requires_cash", func(t *testing.T) {
		_, err := PreviewRebalance(nil, Constraints{Mode: ModeBuyOnly})
		if !errors.Is(err, ErrBuyOnlyNeedsCash) {
			t.Errorf("err = %v, want ErrBuyOnlyNeedsCash", err)
		}
	})

	t.Run("transaction_cap_enforced", func(t *testing.T) {
		_, err := PreviewRebalance(nil, Constraints{Mode: ModeRebalance, MaxTransactions: 101})
		if !errors.Is(err, ErrTooManyTransactions) {
			t.Errorf("err = %v, want ErrTooManyTransactions", err)
		}
	})

	t.Run("overweight_sold_underweight_bought", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "aapl", Symbol: "AAPL", Quantity: 80, Price: 10, SupportsFractions: true, TargetPct: 60},
			{AssetID: "msft", Symbol: "MSFT", Quantity: 20, Price: 10, SupportsFractions: true, TargetPct: 40},
		}
		preview, err := PreviewRebalance(holdings, Constraints{Mode: ModeRebalance})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		aapl := planItem(t, preview, "aapl")
		if aapl.Side != "sell" {
			t.Errorf("aapl side = %s, want sell", aapl.Side)
		}
		if math.Abs(aapl.DriftPct-20) > 1e-9 {
			t.Errorf("aapl drift = %v, want 20 (current 80 - target 60)", aapl.DriftPct)
		}
		if math.Abs(aapl.EstimatedValue-200) > 1e-9 {
			t.Errorf("aapl order value = %v, want 200", aapl.EstimatedValue)
		}

		msft := planItem(t, preview, "msft")
		if msft.Side != "buy" {
			t.Errorf("msft side = %s, want buy", msft.Side)
		}
		if math.Abs(msft.DriftPct-(-20)) > 1e-9 {
			t.Errorf("msft drift = %v, want -20", msft.DriftPct)
		}
	})

	t.Run("buy_only_respects_cash_budget", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 10, Price: 10, SupportsFractions: true, TargetPct: 50},
			{AssetID: "a2", Symbol: "A2", Quantity: 0, Price: 7, SupportsFractions: true, TargetPct: 30},
			{AssetID: "a3", Symbol: "A3", Quantity: 0, Price: 3, SupportsFractions: true, TargetPct: 20},
		}
		cash := 333.0
		preview, err := PreviewRebalance(holdings, Constraints{Mode: ModeBuyOnly, CashToAllocate: cash})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if preview.TotalBuyValue > cash+1e-9 {
			t.Errorf("buy total %v exceeds cash budget %v", preview.TotalBuyValue, cash)
		}
		if preview.EstimatedCashResidual < -1e-9 {
			t.Errorf("residual = %v, must not be negative", preview.EstimatedCashResidual)
		}
		if math.Abs(preview.TotalBuyValue+preview.EstimatedCashResidual-cash) > 1e-9 {
			t.Errorf("buys %v + residual %v must equal cash %v",
				preview.TotalBuyValue, preview.EstimatedCashResidual, cash)
		}
		for _, item := range preview.Items {
			if item.Side == "sell" && !item.Skipped {
				t.Errorf("buy_only produced a sell order: %+v", item)
			}
		}
	})

	t.Run("rebalance_budget_survives_skipped_sell", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 100, Price: 1, SupportsFractions: true, TargetPct: 20},
			{AssetID: "a2", Symbol: "A2", Quantity: 0, Price: 1, SupportsFractions: true, TargetPct: 80},
		}
		preview, err := PreviewRebalance(holdings, Constraints{
			Mode: ModeRebalance, CashToAllocate: 10, MinOrderValue: 80,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The 78 sell falls below the minimum order value, so the 88 buy
		// it would have funded must not go through on a 10 budget.
		a1 := planItem(t, preview, "a1")
		if !a1.Skipped || a1.SkipReason != "below minimum order value" {
			t.Errorf("expected the funding sell skipped, got %+v", a1)
		}
		a2 := planItem(t, preview, "a2")
		if !a2.Skipped || a2.SkipReason != "insufficient remaining cash" {
			t.Errorf("expected the buy dropped for lack of cash, got %+v", a2)
		}
		if preview.TotalBuyValue-preview.TotalSellValue > 10+1e-9 {
			t.Errorf("net consumption %v exceeds the 10 budget",
				preview.TotalBuyValue-preview.TotalSellValue)
		}
		if preview.EstimatedCashResidual < -1e-9 {
			t.Errorf("residual = %v, must not be negative", preview.EstimatedCashResidual)
		}
	})

	t.Run("rebalance_budget_spends_kept_sell_proceeds", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 100, Price: 1, SupportsFractions: true, TargetPct: 20},
			{AssetID: "a2", Symbol: "A2", Quantity: 0, Price: 1, SupportsFractions: true, TargetPct: 80},
		}
		preview, err := PreviewRebalance(holdings, Constraints{
			Mode: ModeRebalance, CashToAllocate: 10,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		// The kept 78 sell plus the 10 budget fully funds the 88 buy.
		if math.Abs(preview.TotalSellValue-78) > 1e-9 {
			t.Errorf("sell total = %v, want 78", preview.TotalSellValue)
		}
		if math.Abs(preview.TotalBuyValue-88) > 1e-9 {
			t.Errorf("buy total = %v, want 88", preview.TotalBuyValue)
		}
		if math.Abs(preview.EstimatedCashResidual) > 1e-9 {
			t.Errorf("residual = %v, want 0", preview.EstimatedCashResidual)
		}
	})

	t.Run("min_order_value_skips_small_orders", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 99, Price: 1, SupportsFractions: true, TargetPct: 98},
			{AssetID: "a2", Symbol: "A2", Quantity: 1, Price: 1, SupportsFractions: true, TargetPct: 2},
		}
		preview, err := PreviewRebalance(holdings, Constraints{Mode: ModeRebalance, MinOrderValue: 50})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, item := range preview.Items {
			if !item.Skipped {
				t.Errorf("expected all tiny orders skipped, got %+v", item)
			}
			if item.SkipReason == "" {
				t.Errorf("skipped item missing reason: %+v", item)
			}
		}
	})

	t.Run("integer_rounding_floors_quantity", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 0, Price: 7, SupportsFractions: true, TargetPct: 100},
		}
		preview, err := PreviewRebalance(holdings, Constraints{
			Mode: ModeBuyOnly, CashToAllocate: 100, Rounding: RoundInteger,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		item := planItem(t, preview, "a1")
		if item.Quantity != 14 {
			t.Errorf("quantity = %v, want floor(100/7) = 14", item.Quantity)
		}
		if math.Abs(preview.EstimatedCashResidual-2) > 1e-9 {
			t.Errorf("residual = %v, want 2", preview.EstimatedCashResidual)
		}
	})

	t.Run("whole_unit_assets_always_floored", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 0, Price: 7, SupportsFractions: false, TargetPct: 100},
		}
		preview, err := PreviewRebalance(holdings, Constraints{
			Mode: ModeBuyOnly, CashToAllocate: 100, Rounding: RoundFractional,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		item := planItem(t, preview, "a1")
		if item.Quantity != math.Floor(item.Quantity) {
			t.Errorf("quantity = %v, want whole units", item.Quantity)
		}
	})

	t.Run("largest_drift_selected_first_under_limit", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "big", Symbol: "BIG", Quantity: 90, Price: 10, SupportsFractions: true, TargetPct: 40},
			{AssetID: "small", Symbol: "SML", Quantity: 10, Price: 10, SupportsFractions: true, TargetPct: 60},
		}
		preview, err := PreviewRebalance(holdings, Constraints{Mode: ModeRebalance, MaxTransactions: 1})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		big := planItem(t, preview, "big")
		if big.Skipped {
			t.Errorf("largest drift item must be kept: %+v", big)
		}
		small := planItem(t, preview, "small")
		if !small.Skipped || small.SkipReason != "transaction limit reached" {
			t.Errorf("expected smaller drift item skipped by limit, got %+v", small)
		}
	})

	t.Run("sell_only_emits_no_buys", func(t *testing.T) {
		holdings := []Holding{
			{AssetID: "a1", Symbol: "A1", Quantity: 80, Price: 10, SupportsFractions: true, TargetPct: 50},
			{AssetID: "a2", Symbol: "A2", Quantity: 20, Price: 10, SupportsFractions: true, TargetPct: 50},
		}
		preview, err := PreviewRebalance(holdings, Constraints{Mode: ModeSellOnly})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(preview.Items) != 1 {
			t.Fatalf("expected only the overweight asset, got %+v", preview.Items)
		}
		if preview.Items[0].Side != "sell" {
			t.Errorf("side = %s, want sell", preview.Items[0].Side)
		}
	})

	t.Run("empty_portfolio_no_cash", func(t *testing.T) {
		preview, err := PreviewRebalance(nil, Constraints{Mode: ModeRebalance})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(preview.Items) != 0 {
			t.Errorf("expected empty plan, got %+v", preview.Items)
		}
	})
}
