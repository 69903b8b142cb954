package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"valore/internal/analytics"
	apperrors "valore/internal/errors"
	"valore/internal/logger"
	"valore/internal/models"
)

// analyticsService wires the ledger, the price resolver, and the pure
// computation engine together into the derived portfolio views.
type analyticsService struct {
	db     *gorm.DB
	prices PriceServicer
}

// NewAnalyticsService creates a new AnalyticsServicer.
func NewAnalyticsService(db *gorm.DB, prices PriceServicer) AnalyticsServicer {
	return &analyticsService{db: db, prices: prices}
}

// loadLedger returns the owned portfolio and its full ledger in
// chronological order.
func (s *analyticsService) loadLedger(userID, portfolioID string) (*models.Portfolio, []models.Transaction, error) {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, nil, err
	}

	var txns []models.Transaction
	if err := s.db.Where("portfolio_id = ?", portfolioID).
		Order("trade_at ASC, created_at ASC").Find(&txns).Error; err != nil {
		return nil, nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, txns, nil
}

// heldAssets loads the asset rows referenced anywhere in the ledger.
func (s *analyticsService) heldAssets(txns []models.Transaction) (map[string]models.Asset, error) {
	ids := make([]string, 0, len(txns))
	seen := make(map[string]bool, len(txns))
	for _, txn := range txns {
		if txn.AssetID != nil && !seen[*txn.AssetID] {
			seen[*txn.AssetID] = true
			ids = append(ids, *txn.AssetID)
		}
	}
	if len(ids) == 0 {
		return map[string]models.Asset{}, nil
	}

	var assets []models.Asset
	if err := s.db.Where("id IN ?", ids).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	byID := make(map[string]models.Asset, len(assets))
	for _, a := range assets {
		byID[a.ID] = a
	}
	return byID, nil
}

// cashBalanceAt layers the ledger's cash movements on top of the
// portfolio's stored cash balance, converting each entry to the base
// currency at its trade-date FX rate. Trades settle externally and never
// touch cash. Entries whose rate is missing are skipped with a warning
// rather than poisoning the balance.
func (s *analyticsService) cashBalanceAt(portfolio *models.Portfolio, txns []models.Transaction, at time.Time) (float64, []analytics.Warning) {
	balance := portfolio.CashBalance
	var warnings []analytics.Warning

	for i := range txns {
		txn := &txns[i]
		if txn.TradeAt.After(at) {
			break
		}
		if !txn.Side.IsCashMovement() {
			continue
		}
		rate, ok, err := s.prices.FxRateOnOrBefore(txn.TradeCurrency, portfolio.BaseCurrency, txn.TradeAt)
		if err != nil || !ok {
			warnings = append(warnings, analytics.Warning{
				Code:    analytics.WarnFxUnavailable,
				Message: "no FX rate for " + txn.TradeCurrency + " entry, excluded from cash balance",
			})
			continue
		}
		balance += txn.CashImpact() * rate
	}
	return balance, warnings
}

// GetPositions returns the folded positions enriched with asset metadata
// and, where pricing allows, base-currency valuation.
func (s *analyticsService) GetPositions(ctx context.Context, userID, portfolioID string) (*PositionsResponse, error) {
	portfolio, txns, err := s.loadLedger(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	positions, warnings := analytics.ComputePositions(txns)
	assets, err := s.heldAssets(txns)
	if err != nil {
		return nil, err
	}

	open := make([]models.Asset, 0, len(positions))
	for _, pos := range positions {
		if asset, ok := assets[pos.AssetID]; ok && pos.Quantity != 0 {
			open = append(open, asset)
		}
	}
	pricing, err := s.prices.ResolvePricing(ctx, open, portfolio.BaseCurrency, time.Now())
	if err != nil {
		return nil, err
	}

	views := make([]PositionView, 0, len(positions))
	for _, pos := range positions {
		view := PositionView{Position: pos}
		if asset, ok := assets[pos.AssetID]; ok {
			view.Symbol = asset.Symbol
			view.Name = asset.Name
			view.AssetType = string(asset.AssetType)
			view.QuoteCurrency = asset.QuoteCurrency
		}
		if p, ok := pricing[pos.AssetID]; ok && pos.Quantity != 0 && p.Current.OK && p.FxOK {
			price := p.Current.Price * p.FxRate
			value := pos.Quantity * price
			cost := pos.Quantity * pos.AvgCost * p.FxRate
			unrealized := value - cost
			view.CurrentPrice = &price
			view.MarketValue = &value
			view.UnrealizedPL = &unrealized
			if cost != 0 {
				pct := unrealized / cost * 100
				view.UnrealizedPLPc = &pct
			}
		}
		views = append(views, view)
	}

	return &PositionsResponse{Positions: views, Warnings: warnings}, nil
}

// GetSummary returns the portfolio-level valuation snapshot.
func (s *analyticsService) GetSummary(ctx context.Context, userID, portfolioID string) (*analytics.Summary, error) {
	portfolio, txns, err := s.loadLedger(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	positions, posWarnings := analytics.ComputePositions(txns)
	assets, err := s.heldAssets(txns)
	if err != nil {
		return nil, err
	}

	open := make([]models.Asset, 0, len(positions))
	for _, pos := range positions {
		if asset, ok := assets[pos.AssetID]; ok && pos.Quantity != 0 {
			open = append(open, asset)
		}
	}
	pricing, err := s.prices.ResolvePricing(ctx, open, portfolio.BaseCurrency, time.Now())
	if err != nil {
		return nil, err
	}

	cash, cashWarnings := s.cashBalanceAt(portfolio, txns, time.Now())

	summary := analytics.ComputeSummary(positions, pricing, cash)
	summary.Warnings = append(append(posWarnings, cashWarnings...), summary.Warnings...)
	return &summary, nil
}

// GetAllocation returns each open position's weight of the position market
// value, joined against the configured target weights.
func (s *analyticsService) GetAllocation(ctx context.Context, userID, portfolioID string) ([]AllocationView, error) {
	portfolio, txns, err := s.loadLedger(userID, portfolioID)
	if err != nil {
		return nil, err
	}

	positions, _ := analytics.ComputePositions(txns)
	assets, err := s.heldAssets(txns)
	if err != nil {
		return nil, err
	}

	open := make([]models.Asset, 0, len(positions))
	for _, pos := range positions {
		if asset, ok := assets[pos.AssetID]; ok && pos.Quantity != 0 {
			open = append(open, asset)
		}
	}
	pricing, err := s.prices.ResolvePricing(ctx, open, portfolio.BaseCurrency, time.Now())
	if err != nil {
		return nil, err
	}

	var targets []models.TargetAllocation
	if err := s.db.Where("portfolio_id = ?", portfolioID).Find(&targets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	targetByAsset := make(map[string]float64, len(targets))
	for _, t := range targets {
		targetByAsset[t.AssetID] = t.WeightPct
	}

	entries := analytics.ComputeAllocation(positions, pricing)
	views := make([]AllocationView, 0, len(entries))
	for _, entry := range entries {
		view := AllocationView{AllocationEntry: entry}
		if asset, ok := assets[entry.AssetID]; ok {
			view.Symbol = asset.Symbol
			view.Name = asset.Name
		}
		if target, ok := targetByAsset[entry.AssetID]; ok {
			t := target
			drift := entry.WeightPct - target
			view.TargetPct = &t
			view.DriftPct = &drift
		}
		views = append(views, view)
	}
	return views, nil
}

// GetPerformance computes time-weighted and money-weighted returns over
// the requested period.
func (s *analyticsService) GetPerformance(ctx context.Context, userID, portfolioID, period string) (*analytics.PerformanceResult, error) {
	portfolio, txns, err := s.loadLedger(userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if len(txns) == 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Portfolio has no transactions")
	}

	now := time.Now()
	firstTxn := txns[0].TradeAt
	start, ok := analytics.ResolvePeriodStart(period, now, firstTxn)
	if !ok {
		return nil, apperrors.ErrInvalidPeriod
	}

	flows := make([]analytics.Flow, 0)
	for i := range txns {
		txn := &txns[i]
		flow := txn.ExternalFlow()
		if flow == 0 {
			continue
		}
		if !txn.TradeAt.After(start) || txn.TradeAt.After(now) {
			continue
		}
		rate, fxOK, fxErr := s.prices.FxRateOnOrBefore(txn.TradeCurrency, portfolio.BaseCurrency, txn.TradeAt)
		if fxErr != nil || !fxOK {
			logger.Get().Warnw("external flow skipped, no FX rate",
				"transaction_id", txn.ID, "currency", txn.TradeCurrency)
			continue
		}
		flows = append(flows, analytics.Flow{At: txn.TradeAt, Amount: flow * rate})
	}

	valueAt := func(t time.Time) float64 {
		return s.valuationAt(portfolio, txns, t)
	}

	result := analytics.ComputePerformance(analytics.PerformanceInput{
		StartAt:    start,
		EndAt:      now,
		StartValue: valueAt(start),
		EndValue:   valueAt(now),
		Flows:      flows,
		ValueAt:    valueAt,
	})
	return &result, nil
}

// valuationAt reconstructs the portfolio's total value, positions plus
// cash, at an arbitrary point in time from the ledger and the recorded
// price history. Assets without an observation at that time are omitted.
func (s *analyticsService) valuationAt(portfolio *models.Portfolio, txns []models.Transaction, at time.Time) float64 {
	past := make([]models.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.TradeAt.After(at) {
			break
		}
		past = append(past, txn)
	}

	positions, _ := analytics.ComputePositions(past)

	var total float64
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		point, err := s.prices.PriceOnOrBefore(pos.AssetID, at)
		if err != nil || !point.OK {
			continue
		}

		var asset models.Asset
		if err := s.db.Select("quote_currency").First(&asset, "id = ?", pos.AssetID).Error; err != nil {
			continue
		}
		rate, ok, err := s.prices.FxRateOnOrBefore(asset.QuoteCurrency, portfolio.BaseCurrency, at)
		if err != nil || !ok {
			continue
		}
		total += pos.Quantity * point.Price * rate
	}

	cash, _ := s.cashBalanceAt(portfolio, past, at)
	return total + cash
}
