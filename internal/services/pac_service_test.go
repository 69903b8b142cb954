package services

import (
	"testing"
	"time"

	"valore/internal/models"
	"valore/internal/testutil"
)

func TestCreatePacRule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewPacService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	asset := testutil.CreateTestAsset(t, db)
	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	t.Run("creates a monthly amount plan", func(t *testing.T) {
		rule, err := service.CreateRule(user.ID, portfolio.ID, PacRuleInput{
			AssetID:    asset.ID,
			Mode:       models.PacModeAmount,
			Amount:     200,
			Frequency:  models.PacMonthly,
			DayOfMonth: 15,
			StartDate:  start,
		})
		testutil.AssertNoError(t, err)
		if !rule.Active {
			t.Error("expected new rule to be active")
		}
	})

	tests := []struct {
		name  string
		input PacRuleInput
	}{
		{"amount mode without amount", PacRuleInput{
			AssetID: asset.ID, Mode: models.PacModeAmount,
			Frequency: models.PacMonthly, DayOfMonth: 1, StartDate: start,
		}},
		{"quantity mode without quantity", PacRuleInput{
			AssetID: asset.ID, Mode: models.PacModeQuantity,
			Frequency: models.PacMonthly, DayOfMonth: 1, StartDate: start,
		}},
		{"day of month out of range", PacRuleInput{
			AssetID: asset.ID, Mode: models.PacModeAmount, Amount: 100,
			Frequency: models.PacMonthly, DayOfMonth: 32, StartDate: start,
		}},
		{"day of week out of range", PacRuleInput{
			AssetID: asset.ID, Mode: models.PacModeAmount, Amount: 100,
			Frequency: models.PacWeekly, DayOfWeek: 7, StartDate: start,
		}},
		{"missing start date", PacRuleInput{
			AssetID: asset.ID, Mode: models.PacModeAmount, Amount: 100,
			Frequency: models.PacMonthly, DayOfMonth: 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.CreateRule(user.ID, portfolio.ID, tt.input)
			testutil.AssertAppError(t, err, "INVALID_INPUT")
		})
	}

	t.Run("rejects unknown asset", func(t *testing.T) {
		_, err := service.CreateRule(user.ID, portfolio.ID, PacRuleInput{
			AssetID: "00000000-0000-7000-8000-000000000000", Mode: models.PacModeAmount, Amount: 100,
			Frequency: models.PacMonthly, DayOfMonth: 1, StartDate: start,
		})
		testutil.AssertAppError(t, err, "ASSET_NOT_FOUND")
	})
}

func TestGenerateDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewPacService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	asset := testutil.CreateTestAsset(t, db)

	t.Run("monthly schedule is idempotent", func(t *testing.T) {
		start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)
		rule := testutil.CreateTestPacRule(t, db, portfolio.ID, asset.ID, start)

		now := time.Date(2025, 4, 20, 0, 0, 0, 0, time.UTC)
		created, err := service.GenerateDue(user.ID, rule.ID, now)
		testutil.AssertNoError(t, err)
		if len(created) != 4 {
			t.Fatalf("expected 4 due dates (Jan-Apr), got %d", len(created))
		}

		again, err := service.GenerateDue(user.ID, rule.ID, now)
		testutil.AssertNoError(t, err)
		if len(again) != 0 {
			t.Errorf("expected repeated generation to create nothing, got %d", len(again))
		}
	})

	t.Run("day 31 clamps to short months", func(t *testing.T) {
		start := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
		rule := testutil.CreateTestPacRule(t, db, portfolio.ID, asset.ID, start)

		created, err := service.GenerateDue(user.ID, rule.ID, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
		testutil.AssertNoError(t, err)
		if len(created) != 2 {
			t.Fatalf("expected 2 due dates, got %d", len(created))
		}
		feb := created[1].DueDate
		if feb.Month() != time.February || feb.Day() != 28 {
			t.Errorf("expected February due date clamped to the 28th, got %v", feb)
		}
	})

	t.Run("weekly schedule", func(t *testing.T) {
		// 2025-06-02 is a Monday.
		start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
		rule := &models.PacRule{
			PortfolioID: portfolio.ID,
			AssetID:     asset.ID,
			Mode:        models.PacModeQuantity,
			Quantity:    1,
			Frequency:   models.PacWeekly,
			DayOfWeek:   int(time.Wednesday),
			StartDate:   start,
			Active:      true,
		}
		if err := db.Create(rule).Error; err != nil {
			t.Fatalf("failed to create rule: %v", err)
		}

		created, err := service.GenerateDue(user.ID, rule.ID, start.AddDate(0, 0, 20))
		testutil.AssertNoError(t, err)
		if len(created) != 3 {
			t.Fatalf("expected 3 Wednesdays in the window, got %d", len(created))
		}
		for _, exec := range created {
			if exec.DueDate.Weekday() != time.Wednesday {
				t.Errorf("expected Wednesday, got %v", exec.DueDate.Weekday())
			}
		}
	})

	t.Run("inactive rule generates nothing", func(t *testing.T) {
		start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		rule := testutil.CreateTestPacRule(t, db, portfolio.ID, asset.ID, start)
		if err := db.Model(rule).Update("active", false).Error; err != nil {
			t.Fatalf("failed to deactivate rule: %v", err)
		}

		created, err := service.GenerateDue(user.ID, rule.ID, start.AddDate(0, 6, 0))
		testutil.AssertNoError(t, err)
		if len(created) != 0 {
			t.Errorf("expected no executions for an inactive rule, got %d", len(created))
		}
	})
}

func TestConfirmExecution(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewPacService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	asset := testutil.CreateTestAsset(t, db)

	start := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)
	rule := testutil.CreateTestPacRule(t, db, portfolio.ID, asset.ID, start)
	testutil.CreateTestPriceBar(t, db, asset.ID, start, 50)

	created, err := service.GenerateDue(user.ID, rule.ID, start)
	testutil.AssertNoError(t, err)
	if len(created) != 1 {
		t.Fatalf("expected 1 pending execution, got %d", len(created))
	}
	execID := created[0].ID

	t.Run("settles into a pac-sourced buy", func(t *testing.T) {
		exec, err := service.ConfirmExecution(user.ID, execID)
		testutil.AssertNoError(t, err)
		if exec.Status != models.PacExecExecuted {
			t.Fatalf("expected executed status, got %q", exec.Status)
		}
		if exec.TransactionID == nil {
			t.Fatal("expected a linked transaction")
		}

		txn, err := transactions.GetTransactionByID(user.ID, *exec.TransactionID)
		testutil.AssertNoError(t, err)
		if txn.Source != models.SourcePac {
			t.Errorf("expected source pac, got %q", txn.Source)
		}
		// 100 EUR at the latest close of 50 buys 2 units.
		testutil.AssertInDelta(t, 2, txn.Quantity, 1e-9, "quantity")
		testutil.AssertInDelta(t, 50, txn.Price, 1e-9, "price")
	})

	t.Run("rejects double settlement", func(t *testing.T) {
		_, err := service.ConfirmExecution(user.ID, execID)
		testutil.AssertAppError(t, err, "PAC_EXECUTION_SETTLED")
	})

	t.Run("skip requires a pending execution", func(t *testing.T) {
		_, err := service.SkipExecution(user.ID, execID)
		testutil.AssertAppError(t, err, "PAC_EXECUTION_SETTLED")
	})
}

func TestRunScheduler(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)

	prices := NewPriceService(db, 4, 5*time.Second)
	transactions := NewTransactionService(db)
	service := NewPacService(db, prices, transactions)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
	asset := testutil.CreateTestAsset(t, db)

	start := time.Date(2025, 2, 5, 0, 0, 0, 0, time.UTC)
	rule := testutil.CreateTestPacRule(t, db, portfolio.ID, asset.ID, start)
	if err := db.Model(rule).Update("auto_execute", true).Error; err != nil {
		t.Fatalf("failed to enable auto-execute: %v", err)
	}
	testutil.CreateTestPriceBar(t, db, asset.ID, start, 25)

	now := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	generated, executed, err := service.RunScheduler(now)
	testutil.AssertNoError(t, err)
	if generated != 3 {
		t.Errorf("expected 3 generated executions (Feb-Apr), got %d", generated)
	}
	if executed != 3 {
		t.Errorf("expected 3 auto-executed purchases, got %d", executed)
	}

	var count int64
	if err := db.Model(&models.Transaction{}).
		Where("portfolio_id = ? AND source = ?", portfolio.ID, models.SourcePac).
		Count(&count).Error; err != nil {
		t.Fatalf("failed to count transactions: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 pac transactions, got %d", count)
	}
}
