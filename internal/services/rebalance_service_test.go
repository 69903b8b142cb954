package services

import (
	"context"
	"testing"
	"time"

	"valore/internal/analytics"
	"valore/internal/models"
	"valore/internal/testutil"
)

func TestRebalancePreview(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewRebalanceService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	assetA := testutil.CreateTestAsset(t, db)
	assetB := testutil.CreateTestAsset(t, db)

	now := time.Now()
	testutil.CreateTestTrade(t, db, portfolio.ID, assetA.ID, models.SideBuy, now.AddDate(0, 0, -5), 70, 10)
	testutil.CreateTestTrade(t, db, portfolio.ID, assetB.ID, models.SideBuy, now.AddDate(0, 0, -5), 30, 10)
	testutil.CreateTestPriceBar(t, db, assetA.ID, now, 10)
	testutil.CreateTestPriceBar(t, db, assetB.ID, now, 10)

	t.Run("requires targets", func(t *testing.T) {
		_, err := service.Preview(context.Background(), user.ID, portfolio.ID, analytics.Constraints{Mode: analytics.ModeRebalance})
		testutil.AssertAppError(t, err, "ALLOCATION_NOT_FOUND")
	})

	testutil.CreateTestTargetAllocation(t, db, portfolio.ID, assetA.ID, 50)
	testutil.CreateTestTargetAllocation(t, db, portfolio.ID, assetB.ID, 50)

	t.Run("plans toward target weights", func(t *testing.T) {
		preview, err := service.Preview(context.Background(), user.ID, portfolio.ID, analytics.Constraints{Mode: analytics.ModeRebalance})
		testutil.AssertNoError(t, err)

		if len(preview.Items) != 2 {
			t.Fatalf("expected 2 plan items, got %d", len(preview.Items))
		}
		for _, item := range preview.Items {
			switch item.AssetID {
			case assetA.ID:
				if item.Side != "sell" {
					t.Errorf("expected sell for overweight asset, got %q", item.Side)
				}
				testutil.AssertInDelta(t, 20, item.Quantity, 1e-9, "sell quantity")
			case assetB.ID:
				if item.Side != "buy" {
					t.Errorf("expected buy for underweight asset, got %q", item.Side)
				}
				testutil.AssertInDelta(t, 20, item.Quantity, 1e-9, "buy quantity")
			}
		}
		testutil.AssertInDelta(t, 200, preview.TotalBuyValue, 1e-9, "total buys")
		testutil.AssertInDelta(t, 200, preview.TotalSellValue, 1e-9, "total sells")
	})

	t.Run("buy_only requires cash", func(t *testing.T) {
		_, err := service.Preview(context.Background(), user.ID, portfolio.ID, analytics.Constraints{Mode: analytics.ModeBuyOnly})
		testutil.AssertAppError(t, err, "CASH_REQUIRED")
	})

	t.Run("rejects transaction limit above the cap", func(t *testing.T) {
		_, err := service.Preview(context.Background(), user.ID, portfolio.ID, analytics.Constraints{
			Mode:            analytics.ModeRebalance,
			MaxTransactions: analytics.MaxPlanTransactions + 1,
		})
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestRebalanceCommit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewRebalanceService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	asset := testutil.CreateTestAsset(t, db)

	t.Run("records selected orders with rebalance provenance", func(t *testing.T) {
		result, err := service.Commit(user.ID, portfolio.ID, time.Now(), []RebalanceCommitItem{
			{AssetID: asset.ID, Side: "buy", Quantity: 5, Price: 100},
		})
		testutil.AssertNoError(t, err)
		if result.Created != 1 || result.Failed != 0 {
			t.Fatalf("expected 1 created / 0 failed, got %d / %d", result.Created, result.Failed)
		}
		if result.Items[0].Source != models.SourceRebalance {
			t.Errorf("expected source rebalance, got %q", result.Items[0].Source)
		}
	})

	t.Run("partial failure keeps the successes", func(t *testing.T) {
		result, err := service.Commit(user.ID, portfolio.ID, time.Now(), []RebalanceCommitItem{
			{AssetID: asset.ID, Side: "buy", Quantity: 2, Price: 100},
			{AssetID: "00000000-0000-7000-8000-000000000000", Side: "buy", Quantity: 1, Price: 50},
			{AssetID: asset.ID, Side: "sell", Quantity: 1, Price: 110},
		})
		testutil.AssertNoError(t, err)
		if result.Requested != 3 || result.Created != 2 || result.Failed != 1 {
			t.Fatalf("expected 3/2/1 requested/created/failed, got %d/%d/%d",
				result.Requested, result.Created, result.Failed)
		}
		if len(result.Errors) != 1 || result.Errors[0].AssetID != "00000000-0000-7000-8000-000000000000" {
			t.Error("expected the unknown asset to be reported")
		}
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		_, err := service.Commit(user.ID, portfolio.ID, time.Now(), nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("hides other users' portfolios", func(t *testing.T) {
		other := testutil.CreateTestUser(t, db)
		_, err := service.Commit(other.ID, portfolio.ID, time.Now(), []RebalanceCommitItem{
			{AssetID: asset.ID, Side: "buy", Quantity: 1, Price: 100},
		})
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}
