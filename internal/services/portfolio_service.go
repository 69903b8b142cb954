package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/models"
	"valore/internal/pagination"
)

// portfolioService handles portfolio-related business logic.
type portfolioService struct {
	db *gorm.DB
}

// NewPortfolioService creates a new PortfolioServicer.
func NewPortfolioService(db *gorm.DB) PortfolioServicer {
	return &portfolioService{db: db}
}

// CreatePortfolio creates a new investment account for the user.
func (s *portfolioService) CreatePortfolio(userID, name, baseCurrency, timezone string, cashBalance, targetNotional *float64) (*models.Portfolio, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if baseCurrency == "" {
		baseCurrency = "EUR"
	}
	if timezone == "" {
		timezone = "UTC"
	}
	if cashBalance != nil && *cashBalance < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Cash balance cannot be negative")
	}
	if targetNotional != nil && *targetNotional < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Target notional cannot be negative")
	}

	portfolio := &models.Portfolio{
		UserID:         userID,
		Name:           name,
		BaseCurrency:   baseCurrency,
		Timezone:       timezone,
		TargetNotional: targetNotional,
	}
	if cashBalance != nil {
		portfolio.CashBalance = *cashBalance
	}
	if err := s.db.Create(portfolio).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// GetUserPortfolios returns a paginated list of the user's portfolios.
func (s *portfolioService) GetUserPortfolios(userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Portfolio], error) {
	page.Defaults()

	base := s.db.Model(&models.Portfolio{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var portfolios []models.Portfolio
	if err := base.Order("created_at ASC").Scopes(pagination.Paginate(page)).Find(&portfolios).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(portfolios, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// GetPortfolioByID returns a portfolio owned by the user. Ownership
// mismatches report NotFound so portfolio IDs are not enumerable.
func (s *portfolioService) GetPortfolioByID(userID, portfolioID string) (*models.Portfolio, error) {
	return getOwnedPortfolio(s.db, userID, portfolioID)
}

// UpdatePortfolio mutates name, timezone, cash balance, or target notional.
func (s *portfolioService) UpdatePortfolio(userID, portfolioID string, name, timezone *string, cashBalance, targetNotional *float64) (*models.Portfolio, error) {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if name != nil {
		if strings.TrimSpace(*name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
		}
		updates["name"] = *name
	}
	if timezone != nil {
		updates["timezone"] = *timezone
	}
	if cashBalance != nil {
		if *cashBalance < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Cash balance cannot be negative")
		}
		updates["cash_balance"] = *cashBalance
	}
	if targetNotional != nil {
		if *targetNotional < 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Target notional cannot be negative")
		}
		updates["target_notional"] = *targetNotional
	}
	if len(updates) == 0 {
		return portfolio, nil
	}

	if err := s.db.Model(portfolio).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return portfolio, nil
}

// DeletePortfolio removes a portfolio that has no transactions.
func (s *portfolioService) DeletePortfolio(userID, portfolioID string) error {
	portfolio, err := getOwnedPortfolio(s.db, userID, portfolioID)
	if err != nil {
		return err
	}

	var refs int64
	if err := s.db.Model(&models.Transaction{}).Where("portfolio_id = ?", portfolioID).Count(&refs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if refs > 0 {
		return apperrors.ErrPortfolioNotEmpty
	}

	return s.db.Delete(portfolio).Error
}

// getOwnedPortfolio loads a portfolio and checks ownership. Shared by
// every portfolio-scoped service.
func getOwnedPortfolio(db *gorm.DB, userID, portfolioID string) (*models.Portfolio, error) {
	var portfolio models.Portfolio
	if err := db.First(&portfolio, "id = ? AND user_id = ?", portfolioID, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPortfolioNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &portfolio, nil
}
