package services

import (
	"context"
	"io"
	"time"

	"valore/internal/analytics"
	"valore/internal/models"
	"valore/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(email, password, name string) (*models.User, error)
	GetUserByID(id string) (*models.User, error)
	AttemptLogin(email, password string) (*models.User, error)
	StoreRefreshTokenHash(userID, tokenHash string) error
	GetRefreshTokenHash(userID string) (string, error)
}

// AssetUpdate holds optional metadata corrections for an asset. Nil fields
// are left untouched.
type AssetUpdate struct {
	Name              *string
	ExchangeCode      *string
	ExchangeName      *string
	ISIN              *string
	Active            *bool
	SupportsFractions *bool
}

// AssetServicer defines the contract for asset-related business logic.
type AssetServicer interface {
	CreateAsset(symbol, name string, assetType models.AssetType, exchangeCode, exchangeName, quoteCurrency, isin string, supportsFractions bool) (*models.Asset, error)
	GetAssetByID(id string) (*models.Asset, error)
	GetAssetBySymbol(symbol string) (*models.Asset, error)
	SearchAssets(query string, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error)
	UpdateAsset(id string, update AssetUpdate) (*models.Asset, error)
	DeactivateAsset(id string) error
	ListActiveAssets() ([]models.Asset, error)
}

// PortfolioServicer defines the contract for portfolio-related business logic.
type PortfolioServicer interface {
	CreatePortfolio(userID, name, baseCurrency, timezone string, cashBalance, targetNotional *float64) (*models.Portfolio, error)
	GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error)
	GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error)
	UpdatePortfolio(userID, portfolioID string, name, timezone *string, cashBalance, targetNotional *float64) (*models.Portfolio, error)
	DeletePortfolio(userID, portfolioID string) error
}

// TransactionInput holds the fields needed to create a ledger entry.
type TransactionInput struct {
	AssetID       *string
	Side          models.TxnSide
	TradeAt       time.Time
	Quantity      float64
	Price         float64
	Fees          float64
	Taxes         float64
	TradeCurrency string
	Notes         string
	Source        models.TxnSource
}

// TransactionUpdate holds optional mutations of a ledger entry. Nil fields
// are left untouched.
type TransactionUpdate struct {
	TradeAt  *time.Time
	Quantity *float64
	Price    *float64
	Fees     *float64
	Taxes    *float64
	Notes    *string
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	Side     *models.TxnSide
	AssetID  *string
	FromDate *time.Time
	ToDate   *time.Time
}

// TransactionServicer defines the contract for ledger business logic,
// including the ordered reads the analytics computations are built on.
type TransactionServicer interface {
	CreateTransaction(userID, portfolioID string, input TransactionInput) (*models.Transaction, error)
	GetPortfolioTransactions(userID, portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(userID, transactionID string) error

	LoadTransactions(portfolioID string) ([]models.Transaction, error)
	LoadCashMovements(portfolioID string) ([]models.Transaction, error)
}

// PriceBarInput is one daily close to record.
type PriceBarInput struct {
	AssetID string    `json:"asset_id" binding:"required"`
	Date    time.Time `json:"date" binding:"required"`
	Close   float64   `json:"close" binding:"required,gt=0"`
}

// FxRateInput is one daily FX observation to record.
type FxRateInput struct {
	BaseCurrency  string    `json:"base_currency" binding:"required,iso4217"`
	QuoteCurrency string    `json:"quote_currency" binding:"required,iso4217"`
	Date          time.Time `json:"date" binding:"required"`
	Rate          float64   `json:"rate" binding:"required,gt=0"`
}

// PriceServicer resolves prices and FX rates from recorded observations
// and accepts new observations from the pipeline.
type PriceServicer interface {
	LatestPrice(assetID string) (analytics.PricePoint, error)
	PriceOnOrBefore(assetID string, date time.Time) (analytics.PricePoint, error)
	FxRateOnOrBefore(base, quote string, date time.Time) (float64, bool, error)
	ResolvePricing(ctx context.Context, assets []models.Asset, baseCurrency string, asOf time.Time) (map[string]analytics.AssetPricing, error)
	RecordBars(bars []PriceBarInput) (int, error)
	RecordFxRates(rates []FxRateInput) (int, error)
}

// PositionView is a position enriched with asset metadata and valuation.
type PositionView struct {
	analytics.Position
	Symbol         string   `json:"symbol"`
	Name           string   `json:"name"`
	AssetType      string   `json:"asset_type"`
	QuoteCurrency  string   `json:"quote_currency"`
	CurrentPrice   *float64 `json:"current_price,omitempty"`
	MarketValue    *float64 `json:"market_value,omitempty"`
	UnrealizedPL   *float64 `json:"unrealized_pl,omitempty"`
	UnrealizedPLPc *float64 `json:"unrealized_pl_pct,omitempty"`
}

// PositionsResponse pairs positions with the warnings produced while
// folding and valuing them.
type PositionsResponse struct {
	Positions []PositionView      `json:"positions"`
	Warnings  []analytics.Warning `json:"warnings,omitempty"`
}

// AllocationView is an allocation entry enriched with asset metadata and
// the configured target weight, if any.
type AllocationView struct {
	analytics.AllocationEntry
	Symbol    string   `json:"symbol"`
	Name      string   `json:"name"`
	TargetPct *float64 `json:"target_pct,omitempty"`
	DriftPct  *float64 `json:"drift_pct,omitempty"`
}

// AnalyticsServicer computes derived portfolio views by wiring the ledger,
// the price resolver, and the analytics engine together.
type AnalyticsServicer interface {
	GetPositions(ctx context.Context, userID, portfolioID string) (*PositionsResponse, error)
	GetSummary(ctx context.Context, userID, portfolioID string) (*analytics.Summary, error)
	GetAllocation(ctx context.Context, userID, portfolioID string) ([]AllocationView, error)
	GetPerformance(ctx context.Context, userID, portfolioID, period string) (*analytics.PerformanceResult, error)
}

// TargetInput is one target weight to upsert.
type TargetInput struct {
	AssetID   string  `json:"asset_id" binding:"required"`
	WeightPct float64 `json:"weight_pct" binding:"min=0,max=100"`
}

// TargetsResponse lists a portfolio's target weights and the residual to
// 100%, which is surfaced rather than enforced.
type TargetsResponse struct {
	Targets     []models.TargetAllocation `json:"targets"`
	TotalPct    float64                   `json:"total_pct"`
	ResidualPct float64                   `json:"residual_pct"`
}

// TargetServicer defines the contract for target-allocation business logic.
type TargetServicer interface {
	SetTargets(userID, portfolioID string, entries []TargetInput) (*TargetsResponse, error)
	GetTargets(userID, portfolioID string) (*TargetsResponse, error)
	DeleteTarget(userID, portfolioID, assetID string) error
}

// RebalanceCommitItem is one previewed order the user selected to execute.
type RebalanceCommitItem struct {
	AssetID  string  `json:"asset_id" binding:"required"`
	Side     string  `json:"side" binding:"required,oneof=buy sell"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
	Price    float64 `json:"price" binding:"required,gt=0"`
}

// RebalanceCommitError records the failure of a single commit item.
type RebalanceCommitError struct {
	AssetID string `json:"asset_id"`
	Message string `json:"message"`
}

// RebalanceCommitResult reports partial-success commit outcomes. Items
// that fail never roll back the ones already created.
type RebalanceCommitResult struct {
	Requested int                    `json:"requested"`
	Created   int                    `json:"created"`
	Failed    int                    `json:"failed"`
	Items     []models.Transaction   `json:"items"`
	Errors    []RebalanceCommitError `json:"errors"`
}

// RebalanceServicer defines the contract for rebalance planning.
type RebalanceServicer interface {
	Preview(ctx context.Context, userID, portfolioID string, constraints analytics.Constraints) (*analytics.Preview, error)
	Commit(userID, portfolioID string, tradeAt time.Time, items []RebalanceCommitItem) (*RebalanceCommitResult, error)
}

// PacRuleInput holds the fields needed to create a recurring plan.
type PacRuleInput struct {
	AssetID     string
	Mode        models.PacMode
	Amount      float64
	Quantity    float64
	Frequency   models.PacFrequency
	DayOfMonth  int
	DayOfWeek   int
	StartDate   time.Time
	EndDate     *time.Time
	AutoExecute bool
}

// PacRuleUpdate holds optional mutations of a recurring plan.
type PacRuleUpdate struct {
	Amount      *float64
	Quantity    *float64
	DayOfMonth  *int
	DayOfWeek   *int
	EndDate     *time.Time
	AutoExecute *bool
	Active      *bool
}

// PacServicer defines the contract for recurring-plan business logic.
type PacServicer interface {
	CreateRule(userID, portfolioID string, input PacRuleInput) (*models.PacRule, error)
	GetPortfolioRules(userID, portfolioID string, page pagination.PageRequest) (*pagination.PageResponse[models.PacRule], error)
	UpdateRule(userID, ruleID string, update PacRuleUpdate) (*models.PacRule, error)
	DeleteRule(userID, ruleID string) error
	GenerateDue(userID, ruleID string, now time.Time) ([]models.PacExecution, error)
	ListExecutions(userID, ruleID string, page pagination.PageRequest) (*pagination.PageResponse[models.PacExecution], error)
	ConfirmExecution(userID, executionID string) (*models.PacExecution, error)
	SkipExecution(userID, executionID string) (*models.PacExecution, error)
	RunScheduler(now time.Time) (generated, executed int, err error)
}

// ImportCommitError records the failure of a single import row.
type ImportCommitError struct {
	RowNumber int    `json:"row_number"`
	Message   string `json:"message"`
}

// ImportCommitResult reports partial-success import outcomes.
type ImportCommitResult struct {
	Requested int                 `json:"requested"`
	Created   int                 `json:"created"`
	Failed    int                 `json:"failed"`
	Errors    []ImportCommitError `json:"errors"`
}

// ImportServicer defines the contract for CSV import business logic.
type ImportServicer interface {
	CreateBatch(userID, portfolioID, filename string, csv io.Reader) (*models.ImportBatch, error)
	GetBatch(userID, batchID string) (*models.ImportBatch, error)
	CommitBatch(userID, batchID string) (*ImportCommitResult, error)
	DiscardBatch(userID, batchID string) (*models.ImportBatch, error)
}
