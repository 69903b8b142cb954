package services

import (
	"testing"
	"time"

	"valore/internal/models"
	"valore/internal/pagination"
	"valore/internal/testutil"
)

func TestCreatePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)

	t.Run("applies defaults", func(t *testing.T) {
		portfolio, err := service.CreatePortfolio(user.ID, "Long Term", "", "", nil, nil)
		testutil.AssertNoError(t, err)
		if portfolio.BaseCurrency != "EUR" || portfolio.Timezone != "UTC" {
			t.Errorf("expected EUR/UTC defaults, got %q/%q", portfolio.BaseCurrency, portfolio.Timezone)
		}
		if portfolio.CashBalance != 0 {
			t.Errorf("expected zero cash balance, got %v", portfolio.CashBalance)
		}
	})

	t.Run("stores the opening cash balance", func(t *testing.T) {
		cash := 2500.0
		portfolio, err := service.CreatePortfolio(user.ID, "Funded", "EUR", "UTC", &cash, nil)
		testutil.AssertNoError(t, err)
		testutil.AssertInDelta(t, 2500, portfolio.CashBalance, 1e-9, "cash balance")
	})

	t.Run("rejects blank name", func(t *testing.T) {
		_, err := service.CreatePortfolio(user.ID, "   ", "EUR", "UTC", nil, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects negative cash balance", func(t *testing.T) {
		negative := -100.0
		_, err := service.CreatePortfolio(user.ID, "Bad Cash", "EUR", "UTC", &negative, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})

	t.Run("rejects negative target notional", func(t *testing.T) {
		negative := -1.0
		_, err := service.CreatePortfolio(user.ID, "Bad Target", "EUR", "UTC", nil, &negative)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestUpdatePortfolioCashBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)

	t.Run("updates the stored balance", func(t *testing.T) {
		cash := 750.0
		updated, err := service.UpdatePortfolio(user.ID, portfolio.ID, nil, nil, &cash, nil)
		testutil.AssertNoError(t, err)
		testutil.AssertInDelta(t, 750, updated.CashBalance, 1e-9, "cash balance")

		reloaded, err := service.GetPortfolioByID(user.ID, portfolio.ID)
		testutil.AssertNoError(t, err)
		testutil.AssertInDelta(t, 750, reloaded.CashBalance, 1e-9, "persisted cash balance")
	})

	t.Run("rejects a negative balance", func(t *testing.T) {
		negative := -1.0
		_, err := service.UpdatePortfolio(user.ID, portfolio.ID, nil, nil, &negative, nil)
		testutil.AssertAppError(t, err, "INVALID_INPUT")
	})
}

func TestGetUserPortfolios(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	testutil.CreateTestPortfolio(t, db, user.ID)
	testutil.CreateTestPortfolio(t, db, user.ID)
	testutil.CreateTestPortfolio(t, db, other.ID)

	page, err := service.GetUserPortfolios(user.ID, pagination.PageRequest{})
	testutil.AssertNoError(t, err)
	if page.TotalItems != 2 {
		t.Errorf("expected 2 portfolios, got %d", page.TotalItems)
	}
}

func TestGetPortfolioByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)
	other := testutil.CreateTestUser(t, db)
	portfolio := testutil.CreateTestPortfolio(t, db, user.ID)

	t.Run("owner can read", func(t *testing.T) {
		got, err := service.GetPortfolioByID(user.ID, portfolio.ID)
		testutil.AssertNoError(t, err)
		if got.ID != portfolio.ID {
			t.Error("returned the wrong portfolio")
		}
	})

	t.Run("other users see not found", func(t *testing.T) {
		_, err := service.GetPortfolioByID(other.ID, portfolio.ID)
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})
}

func TestDeletePortfolio(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.TeardownTestDB(t, db)
	service := NewPortfolioService(db)

	user := testutil.CreateTestUser(t, db)

	t.Run("deletes an empty portfolio", func(t *testing.T) {
		portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
		testutil.AssertNoError(t, service.DeletePortfolio(user.ID, portfolio.ID))

		_, err := service.GetPortfolioByID(user.ID, portfolio.ID)
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_FOUND")
	})

	t.Run("refuses a portfolio with history", func(t *testing.T) {
		portfolio := testutil.CreateTestPortfolio(t, db, user.ID)
		testutil.CreateTestCashMovement(t, db, portfolio.ID, models.SideDeposit, time.Now(), 100)

		err := service.DeletePortfolio(user.ID, portfolio.ID)
		testutil.AssertAppError(t, err, "PORTFOLIO_NOT_EMPTY")
	})
}
