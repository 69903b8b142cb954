package analytics

import (
	"math"
	"reflect"
	"testing"
	"time"

	"valore/internal/models"
)

var baseTime = time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)

func trade(assetID string, side models.TxnSide, daysOffset int, qty, price float64) models.Transaction {
	return models.Transaction{
		PortfolioID:   "p1",
		AssetID:       &assetID,
		Side:          side,
		TradeAt:       baseTime.AddDate(0, 0, daysOffset),
		Quantity:      qty,
		Price:         price,
		TradeCurrency: "EUR",
	}
}

func tradeWithFees(assetID string, side models.TxnSide, daysOffset int, qty, price, fees, taxes float64) models.Transaction {
	txn := trade(assetID, side, daysOffset, qty, price)
	txn.Fees = fees
	txn.Taxes = taxes
	return txn
}

func cashMovement(side models.TxnSide, daysOffset int, amount float64) models.Transaction {
	return models.Transaction{
		PortfolioID:   "p1",
		Side:          side,
		TradeAt:       baseTime.AddDate(0, 0, daysOffset),
		Quantity:      1,
		Price:         amount,
		TradeCurrency: "EUR",
	}
}

func findPosition(t *testing.T, positions []Position, assetID string) Position {
	t.Helper()
	for _, p := range positions {
		if p.AssetID == assetID {
			return p
		}
	}
	t.Fatalf("no position for asset %s", assetID)
	return Position{}
}

func TestComputePositions(t *testing.T) {
	t.Run("empty_ledger", func(t *testing.T) {
		positions, warnings := ComputePositions(nil)
		if len(positions) != 0 {
			t.Errorf("expected no positions, got %d", len(positions))
		}
		if len(warnings) != 0 {
			t.Errorf("expected no warnings, got %d", len(warnings))
		}
	})

	t.Run("moving_average_over_buys", func(t *testing.T) {
		positions, _ := ComputePositions([]models.Transaction{
			trade("a1", models.SideBuy, 0, 10, 100),
			trade("a1", models.SideBuy, 1, 10, 200),
		})
		pos := findPosition(t, positions, "a1")
		if pos.Quantity != 20 {
			t.Errorf("quantity = %v, want 20", pos.Quantity)
		}
		// (10*100 + 10*200) / 20
		if math.Abs(pos.AvgCost-150) > 1e-9 {
			t.Errorf("avg cost = %v, want 150", pos.AvgCost)
		}
	})

	t.Run("fees_capitalized_into_cost", func(t *testing.T) {
		positions, _ := ComputePositions([]models.Transaction{
			tradeWithFees("a1", models.SideBuy, 0, 10, 100, 5, 5),
		})
		pos := findPosition(t, positions, "a1")
		if math.Abs(pos.AvgCost-101) > 1e-9 {
			t.Errorf("avg cost = %v, want 101", pos.AvgCost)
		}
	})

	t.Run("sell_realizes_pl_and_keeps_avg_cost", func(t *testing.T) {
		positions, warnings := ComputePositions([]models.Transaction{
			trade("a1", models.SideBuy, 0, 10, 100),
			trade("a1", models.SideSell, 1, 4, 120),
		})
		if len(warnings) != 0 {
			t.Fatalf("unexpected warnings: %v", warnings)
		}
		pos := findPosition(t, positions, "a1")
		if pos.Quantity != 6 {
			t.Errorf("quantity = %v, want 6", pos.Quantity)
		}
		if math.Abs(pos.RealizedPL-80) > 1e-9 {
			t.Errorf("realized pl = %v, want 80", pos.RealizedPL)
		}
		if math.Abs(pos.AvgCost-100) > 1e-9 {
			t.Errorf("avg cost = %v, want 100", pos.AvgCost)
		}
	})

	t.Run("full_sell_keeps_closed_position", func(t *testing.T) {
		positions, _ := ComputePositions([]models.Transaction{
			trade("a1", models.SideBuy, 0, 10, 100),
			trade("a1", models.SideSell, 1, 10, 110),
		})
		pos := findPosition(t, positions, "a1")
		if pos.Quantity != 0 {
			t.Errorf("quantity = %v, want exactly 0", pos.Quantity)
		}
		if math.Abs(pos.AvgCost-100) > 1e-9 {
			t.Errorf("avg cost = %v, want 100 preserved for display", pos.AvgCost)
		}
		if math.Abs(pos.RealizedPL-100) > 1e-9 {
			t.Errorf("realized pl = %v, want 100", pos.RealizedPL)
		}
	})

	t.Run("flat_position_without_history_omitted", func(t *testing.T) {
		positions, _ := ComputePositions([]models.Transaction{
			trade("a1", models.SideBuy, 0, 10, 100),
			trade("a1", models.SideSell, 1, 10, 100),
		})
		// Realized P&L is exactly zero, so the entry disappears.
		if len(positions) != 0 {
			t.Errorf("expected flat zero-P&L position to be omitted, got %+v", positions)
		}
	})

	t.Run("oversell_clamped_with_warning", func(t *testing.T) {
		positions, warnings := ComputePositions([]models.Transaction{
			trade("a1", models.SideBuy, 0, 5, 100),
			trade("a1", models.SideSell, 1, 8, 110),
		})
		pos := findPosition(t, positions, "a1")
		if pos.Quantity != 0 {
			t.Errorf("quantity = %v, want 0 after clamped sell", pos.Quantity)
		}
		if math.Abs(pos.RealizedPL-50) > 1e-9 {
			t.Errorf("realized pl = %v, want 50 (5 units, not 8)", pos.RealizedPL)
		}
		if len(warnings) != 1 || warnings[0].Code != WarnOversell {
			t.Errorf("expected single %s warning, got %v", WarnOversell, warnings)
		}
	})

	t.Run("sell_without_holding_skipped", func(t *testing.T) {
		positions, warnings := ComputePositions([]models.Transaction{
			trade("a1", models.SideSell, 0, 3, 50),
		})
		if len(positions) != 0 {
			t.Errorf("expected no positions, got %+v", positions)
		}
		if len(warnings) != 1 || warnings[0].Code != WarnSellWithoutHold {
			t.Errorf("expected single %s warning, got %v", WarnSellWithoutHold, warnings)
		}
	})

	t.Run("cash_movements_ignored", func(t *testing.T) {
		positions, _ := ComputePositions([]models.Transaction{
			cashMovement(models.SideDeposit, 0, 1000),
			trade("a1", models.SideBuy, 1, 10, 50),
			cashMovement(models.SideDividend, 2, 25),
			cashMovement(models.SideFee, 3, 2),
		})
		if len(positions) != 1 {
			t.Fatalf("expected one position, got %d", len(positions))
		}
		if positions[0].Quantity != 10 {
			t.Errorf("quantity = %v, want 10", positions[0].Quantity)
		}
	})

	t.Run("out_of_order_input_sorted_by_trade_time", func(t *testing.T) {
		positions, warnings := ComputePositions([]models.Transaction{
			trade("a1", models.SideSell, 5, 5, 120),
			trade("a1", models.SideBuy, 0, 10, 100),
		})
		if len(warnings) != 0 {
			t.Fatalf("sell after buy in trade time must not warn: %v", warnings)
		}
		pos := findPosition(t, positions, "a1")
		if pos.Quantity != 5 {
			t.Errorf("quantity = %v, want 5", pos.Quantity)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		ledger := []models.Transaction{
			trade("a1", models.SideBuy, 0, 10, 100),
			trade("a2", models.SideBuy, 1, 3, 40),
			trade("a1", models.SideSell, 2, 4, 110),
		}
		first, _ := ComputePositions(ledger)
		second, _ := ComputePositions(ledger)
		if !reflect.DeepEqual(first, second) {
			t.Errorf("repeated computation differs:\n%+v\n%+v", first, second)
		}
	})
}
