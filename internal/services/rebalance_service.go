package services

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"valore/internal/analytics"
	apperrors "valore/internal/errors"
	"valore/internal/logger"
	"valore/internal/models"
)

// rebalanceService plans trades that move a portfolio toward its target
// weights and records the orders the user chooses to execute.
type rebalanceService struct {
	db           *gorm.DB
	prices       PriceServicer
	transactions TransactionServicer
}

// NewRebalanceService creates a new RebalanceServicer.
func NewRebalanceService(db *gorm.DB, prices PriceServicer, transactions TransactionServicer) RebalanceServicer {
	return &rebalanceService{db: db, prices: prices, transactions: transactions}
}

// Preview computes a rebalance plan from the current positions, the target
// weights, and the latest pricing. Nothing is persisted.
func (s *rebalanceService) Preview(ctx context.Context, userID, portfolioID string, constraints analytics.Constraints) (*analytics.Preview, error) {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	var targets []models.TargetAllocation
	if err := s.db.Where("portfolio_id = ?", portfolioID).Find(&targets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if len(targets) == 0 {
		return nil, apperrors.ErrAllocationNotFound
	}
	targetByAsset := make(map[string]float64, len(targets))
	for _, t := range targets {
		targetByAsset[t.AssetID] = t.WeightPct
	}

	txns, err := s.transactions.LoadTransactions(portfolioID)
	if err != nil {
		return nil, err
	}
	positions, _ := analytics.ComputePositions(txns)

	// Every targeted asset participates, held or not; a target on an asset
	// with no position is a pure deficit.
	qtyByAsset := make(map[string]float64, len(positions))
	for _, pos := range positions {
		if pos.Quantity != 0 {
			qtyByAsset[pos.AssetID] = pos.Quantity
		}
	}
	assetIDs := make([]string, 0, len(targets)+len(positions))
	seen := make(map[string]bool)
	for _, t := range targets {
		if !seen[t.AssetID] {
			seen[t.AssetID] = true
			assetIDs = append(assetIDs, t.AssetID)
		}
	}
	for id := range qtyByAsset {
		if !seen[id] {
			seen[id] = true
			assetIDs = append(assetIDs, id)
		}
	}

	var assets []models.Asset
	if err := s.db.Where("id IN ?", assetIDs).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	pricing, err := s.prices.ResolvePricing(ctx, assets, portfolio.BaseCurrency, time.Now())
	if err != nil {
		return nil, err
	}

	holdings := make([]analytics.Holding, 0, len(assets))
	for _, asset := range assets {
		p, ok := pricing[asset.ID]
		if !ok || !p.Current.OK || !p.FxOK {
			logger.Get().Warnw("asset excluded from rebalance plan, no price",
				"asset_id", asset.ID, "symbol", asset.Symbol)
			continue
		}
		holdings = append(holdings, analytics.Holding{
			AssetID:           asset.ID,
			Symbol:            asset.Symbol,
			Quantity:          qtyByAsset[asset.ID],
			Price:             p.Current.Price * p.FxRate,
			SupportsFractions: asset.SupportsFractions,
			TargetPct:         targetByAsset[asset.ID],
		})
	}

	preview, err := analytics.PreviewRebalance(holdings, constraints)
	if err != nil {
		switch {
		case errors.Is(err, analytics.ErrBuyOnlyNeedsCash):
			return nil, apperrors.ErrCashRequired
		case errors.Is(err, analytics.ErrTooManyTransactions):
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Transaction limit out of range")
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &preview, nil
}

// Commit records the selected plan items as ledger entries. Each item is
// created independently; a failure reports the item and moves on rather
// than rolling back the entries already written.
func (s *rebalanceService) Commit(userID, portfolioID string, tradeAt time.Time, items []RebalanceCommitItem) (*RebalanceCommitResult, error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "No items to commit")
	}
	if len(items) > analytics.MaxPlanTransactions {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Too many items to commit")
	}
	if tradeAt.IsZero() {
		tradeAt = time.Now()
	}

	result := &RebalanceCommitResult{Requested: len(items)}
	for _, item := range items {
		assetID := item.AssetID
		txn, err := s.transactions.CreateTransaction(userID, portfolioID, TransactionInput{
			AssetID:  &assetID,
			Side:     models.TxnSide(item.Side),
			TradeAt:  tradeAt,
			Quantity: item.Quantity,
			Price:    item.Price,
			Source:   models.SourceRebalance,
		})
		if err != nil {
			result.Failed++
			result.Errors = append(result.Errors, RebalanceCommitError{
				AssetID: item.AssetID,
				Message: err.Error(),
			})
			continue
		}
		result.Created++
		result.Items = append(result.Items, *txn)
	}
	return result, nil
}
