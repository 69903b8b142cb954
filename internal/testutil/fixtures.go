package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"valore/internal/models"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:        fmt.Sprintf("user%d@test.com", nextID()),
		PasswordHash: string(hash),
		Name:         "Test User",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateTestPortfolio creates a EUR portfolio for the given user.
func CreateTestPortfolio(t *testing.T, db *gorm.DB, userID string) *models.Portfolio {
	t.Helper()
	return CreateTestPortfolioWithCurrency(t, db, userID, "EUR")
}

// CreateTestPortfolioWithCurrency creates a portfolio with the given base currency.
func CreateTestPortfolioWithCurrency(t *testing.T, db *gorm.DB, userID, currency string) *models.Portfolio {
	t.Helper()

	portfolio := &models.Portfolio{
		UserID:       userID,
		Name:         fmt.Sprintf("Test Portfolio %d", nextID()),
		BaseCurrency: currency,
		Timezone:     "UTC",
	}
	if err := db.Create(portfolio).Error; err != nil {
		t.Fatalf("failed to create test portfolio: %v", err)
	}
	return portfolio
}

// CreateTestAsset creates a EUR-quoted stock with a unique symbol.
func CreateTestAsset(t *testing.T, db *gorm.DB) *models.Asset {
	t.Helper()
	return CreateTestAssetWithCurrency(t, db, "EUR")
}

// CreateTestAssetWithCurrency creates a stock quoted in the given currency.
func CreateTestAssetWithCurrency(t *testing.T, db *gorm.DB, currency string) *models.Asset {
	t.Helper()

	n := nextID()
	asset := &models.Asset{
		Symbol:            fmt.Sprintf("TST%d", n),
		Name:              fmt.Sprintf("Test Asset %d", n),
		AssetType:         models.AssetTypeStock,
		QuoteCurrency:     currency,
		Active:            true,
		SupportsFractions: true,
	}
	if err := db.Create(asset).Error; err != nil {
		t.Fatalf("failed to create test asset: %v", err)
	}
	return asset
}

// CreateTestTrade creates a buy or sell transaction for the given asset.
func CreateTestTrade(t *testing.T, db *gorm.DB, portfolioID, assetID string, side models.TxnSide, tradeAt time.Time, qty, price float64) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		PortfolioID:   portfolioID,
		AssetID:       &assetID,
		Side:          side,
		TradeAt:       tradeAt,
		Quantity:      qty,
		Price:         price,
		TradeCurrency: "EUR",
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test trade: %v", err)
	}
	return txn
}

// CreateTestCashMovement creates a cash-movement transaction (deposit,
// withdrawal, dividend, fee, or interest) with quantity 1 and the given amount
// as price.
func CreateTestCashMovement(t *testing.T, db *gorm.DB, portfolioID string, side models.TxnSide, tradeAt time.Time, amount float64) *models.Transaction {
	t.Helper()

	txn := &models.Transaction{
		PortfolioID:   portfolioID,
		Side:          side,
		TradeAt:       tradeAt,
		Quantity:      1,
		Price:         amount,
		TradeCurrency: "EUR",
	}
	if err := db.Create(txn).Error; err != nil {
		t.Fatalf("failed to create test cash movement: %v", err)
	}
	return txn
}

// CreateTestPriceBar records a daily close for the asset.
func CreateTestPriceBar(t *testing.T, db *gorm.DB, assetID string, date time.Time, close float64) *models.PriceBar {
	t.Helper()

	bar := &models.PriceBar{
		AssetID: assetID,
		Date:    date.Truncate(24 * time.Hour),
		Close:   close,
	}
	if err := db.Create(bar).Error; err != nil {
		t.Fatalf("failed to create test price bar: %v", err)
	}
	return bar
}

// CreateTestFxRate records a daily FX rate for the currency pair.
func CreateTestFxRate(t *testing.T, db *gorm.DB, base, quote string, date time.Time, rate float64) *models.FxRate {
	t.Helper()

	fx := &models.FxRate{
		BaseCurrency:  base,
		QuoteCurrency: quote,
		Date:          date.Truncate(24 * time.Hour),
		Rate:          rate,
	}
	if err := db.Create(fx).Error; err != nil {
		t.Fatalf("failed to create test fx rate: %v", err)
	}
	return fx
}

// CreateTestTargetAllocation sets a target weight for an asset in a portfolio.
func CreateTestTargetAllocation(t *testing.T, db *gorm.DB, portfolioID, assetID string, weightPct float64) *models.TargetAllocation {
	t.Helper()

	target := &models.TargetAllocation{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		WeightPct:   weightPct,
	}
	if err := db.Create(target).Error; err != nil {
		t.Fatalf("failed to create test target allocation: %v", err)
	}
	return target
}

// CreateTestPacRule creates an active monthly amount-mode plan.
func CreateTestPacRule(t *testing.T, db *gorm.DB, portfolioID, assetID string, startDate time.Time) *models.PacRule {
	t.Helper()

	rule := &models.PacRule{
		PortfolioID: portfolioID,
		AssetID:     assetID,
		Mode:        models.PacModeAmount,
		Amount:      100,
		Frequency:   models.PacMonthly,
		DayOfMonth:  startDate.Day(),
		StartDate:   startDate,
		Active:      true,
	}
	if err := db.Create(rule).Error; err != nil {
		t.Fatalf("failed to create test pac rule: %v", err)
	}
	return rule
}
