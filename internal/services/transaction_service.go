package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/models"
	"valore/internal/pagination"
)

// transactionService handles ledger business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// validateInput enforces the ledger invariants: trades require an asset
// and positive quantity and price; cash movements must not reference one.
func validateInput(input *TransactionInput) error {
	switch {
	case !input.Side.IsTrade() && !input.Side.IsCashMovement():
		return apperrors.ErrInvalidSide
	case input.Side.IsTrade() && input.AssetID == nil:
		return apperrors.ErrAssetRequired
	case input.Quantity <= 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity must be positive")
	case input.Price < 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Price cannot be negative")
	case input.Side.IsTrade() && input.Price == 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Trades require a positive price")
	case input.Fees < 0 || input.Taxes < 0:
		return apperrors.WithMessage(apperrors.ErrInvalidInput, "Fees and taxes cannot be negative")
	}
	return nil
}

// CreateTransaction appends a ledger entry to the portfolio.
func (s *transactionService) CreateTransaction(userID, portfolioID string, input TransactionInput) (*models.Transaction, error) {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}
	if err := validateInput(&input); err != nil {
		return nil, err
	}

	if input.AssetID != nil {
		var asset models.Asset
		if err := s.db.First(&asset, "id = ?", *input.AssetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrAssetNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	if input.TradeCurrency == "" {
		input.TradeCurrency = portfolio.BaseCurrency
	}
	if input.Source == "" {
		input.Source = models.SourceManual
	}

	txn := &models.Transaction{
		PortfolioID:   portfolioID,
		AssetID:       input.AssetID,
		Side:          input.Side,
		TradeAt:       input.TradeAt,
		Quantity:      input.Quantity,
		Price:         input.Price,
		Fees:          input.Fees,
		Taxes:         input.Taxes,
		TradeCurrency: input.TradeCurrency,
		Notes:         input.Notes,
		Source:        input.Source,
	}
	if err := s.db.Create(txn).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txn, nil
}

// GetPortfolioTransactions returns a filtered, paginated slice of the
// ledger, newest first.
func (s *transactionService) GetPortfolioTransactions(userID, portfolioID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}
	page.Defaults()

	base := s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID)
	if filter.Side != nil {
		base = base.Where("side = ?", *filter.Side)
	}
	if filter.AssetID != nil {
		base = base.Where("asset_id = ?", *filter.AssetID)
	}
	if filter.FromDate != nil {
		base = base.Where("trade_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		base = base.Where("trade_at <= ?", *filter.ToDate)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var txns []models.Transaction
	if err := base.Preload("Asset").Order("trade_at DESC").
		Scopes(pagination.Paginate(page)).Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(txns, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetTransactionByID returns a single ledger entry owned by the user.
func (s *transactionService) GetTransactionByID(userID, transactionID string) (*models.Transaction, error) {
	var txn models.Transaction
	err := s.db.Joins("JOIN portfolios ON portfolios.id = transactions.portfolio_id").
		Where("transactions.id = ? AND portfolios.user_id = ?", transactionID, userID).
		First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &txn, nil
}

// UpdateTransaction mutates an entry's editable fields. Side and asset are
// immutable; delete and recreate to change them.
func (s *transactionService) UpdateTransaction(userID, transactionID string, update TransactionUpdate) (*models.Transaction, error) {
	txn, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.TradeAt != nil {
		updates["trade_at"] = *update.TradeAt
	}
	if update.Quantity != nil {
		if *update.Quantity <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Quantity must be positive")
		}
		updates["quantity"] = *update.Quantity
	}
	if update.Price != nil {
		if *update.Price < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Price cannot be negative")
		}
		updates["price"] = *update.Price
	}
	if update.Fees != nil {
		if *update.Fees < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Fees cannot be negative")
		}
		updates["fees"] = *update.Fees
	}
	if update.Taxes != nil {
		if *update.Taxes < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Taxes cannot be negative")
		}
		updates["taxes"] = *update.Taxes
	}
	if update.Notes != nil {
		updates["notes"] = *update.Notes
	}
	if len(updates) == 0 {
		return txn, nil
	}

	if err := s.db.Model(txn).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txn, nil
}

// DeleteTransaction removes a ledger entry.
func (s *transactionService) DeleteTransaction(userID, transactionID string) error {
	txn, err := s.GetTransactionByID(userID, transactionID)
	if err != nil {
		return err
	}
	return s.db.Delete(txn).Error
}

// LoadTransactions returns the portfolio's full ledger in chronological
// order. This is the read every analytics computation starts from.
func (s *transactionService) LoadTransactions(portfolioID string) ([]models.Transaction, error) {
	var exists int64
	if err := s.db.Model(&models.Portfolio{}).Where("id = ?", portfolioID).Count(&exists).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if exists == 0 {
		return nil, apperrors.ErrPortfolioNotFound
	}

	var txns []models.Transaction
	if err := s.db.Where("portfolio_id = ?", portfolioID).
		Order("trade_at ASC, created_at ASC").Find(&txns).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return txns, nil
}

// LoadCashMovements returns the chronological subset of the ledger that
// moves cash without trading an asset.
func (s *transactionService) LoadCashMovements(portfolioID string) ([]models.Transaction, error) {
	txns, err := s.LoadTransactions(portfolioID)
	if err != nil {
		return nil, err
	}
	movements := make([]models.Transaction, 0, len(txns))
	for _, txn := range txns {
		if txn.Side.IsCashMovement() {
			movements = append(movements, txn)
		}
	}
	return movements, nil
}
