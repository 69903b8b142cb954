package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/models"
	"valore/internal/pagination"
)

// assetService handles asset-related business logic.
type assetService struct {
	db *gorm.DB
}

// NewAssetService creates a new AssetServicer.
func NewAssetService(db *gorm.DB) AssetServicer {
	return &assetService{db: db}
}

// CreateAsset registers a new tradable instrument.
func (s *assetService) CreateAsset(
	symbol, name string,
	assetType models.AssetType,
	exchangeCode, exchangeName, quoteCurrency, isin string,
	supportsFractions bool,
) (*models.Asset, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || len(symbol) > 32 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Symbol must be 1-32 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name is required")
	}
	if quoteCurrency == "" {
		quoteCurrency = "EUR"
	}
	if isin != "" && len(isin) != 12 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ISIN must be 12 characters")
	}

	asset := &models.Asset{
		Symbol:            symbol,
		Name:              name,
		AssetType:         assetType,
		ExchangeCode:      exchangeCode,
		ExchangeName:      exchangeName,
		QuoteCurrency:     quoteCurrency,
		ISIN:              strings.ToUpper(isin),
		Active:            true,
		SupportsFractions: supportsFractions,
	}
	if err := s.db.Create(asset).Error; err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.ErrDuplicateSymbol
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return asset, nil
}

// GetAssetByID returns an asset by its ID.
func (s *assetService) GetAssetByID(id string) (*models.Asset, error) {
	var asset models.Asset
	if err := s.db.First(&asset, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// GetAssetBySymbol returns an asset by its unique symbol.
func (s *assetService) GetAssetBySymbol(symbol string) (*models.Asset, error) {
	var asset models.Asset
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if err := s.db.First(&asset, "symbol = ?", symbol).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrAssetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &asset, nil
}

// SearchAssets returns a paginated list of assets matching the query on
// symbol or name, ordered by symbol. An empty query lists everything.
func (s *assetService) SearchAssets(query string, page pagination.PageRequest) (*pagination.PageResponse[models.Asset], error) {
	page.Defaults()

	base := s.db.Model(&models.Asset{})
	if q := strings.TrimSpace(query); q != "" {
		pattern := "%" + strings.ToUpper(q) + "%"
		base = base.Where("UPPER(symbol) LIKE ? OR UPPER(name) LIKE ?", pattern, pattern)
	}

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var assets []models.Asset
	if err := base.Order("symbol ASC").Scopes(pagination.Paginate(page)).Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(assets, page.Page, page.PageSize, totalItems)
	return &result, nil
}

// UpdateAsset applies metadata corrections to an asset.
func (s *assetService) UpdateAsset(id string, update AssetUpdate) (*models.Asset, error) {
	asset, err := s.GetAssetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if update.Name != nil {
		if strings.TrimSpace(*update.Name) == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Name cannot be empty")
		}
		updates["name"] = *update.Name
	}
	if update.ExchangeCode != nil {
		updates["exchange_code"] = *update.ExchangeCode
	}
	if update.ExchangeName != nil {
		updates["exchange_name"] = *update.ExchangeName
	}
	if update.ISIN != nil {
		if *update.ISIN != "" && len(*update.ISIN) != 12 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "ISIN must be 12 characters")
		}
		updates["isin"] = strings.ToUpper(*update.ISIN)
	}
	if update.Active != nil {
		updates["active"] = *update.Active
	}
	if update.SupportsFractions != nil {
		updates["supports_fractions"] = *update.SupportsFractions
	}
	if len(updates) == 0 {
		return asset, nil
	}

	if err := s.db.Model(asset).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return asset, nil
}

// DeactivateAsset retires an asset. Assets referenced by transactions are
// never physically deleted; deactivation only stops price refreshes and
// hides the asset from search defaults.
func (s *assetService) DeactivateAsset(id string) error {
	asset, err := s.GetAssetByID(id)
	if err != nil {
		return err
	}

	var refs int64
	if err := s.db.Model(&models.Transaction{}).Where("asset_id = ?", id).Count(&refs).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	if refs > 0 {
		// Referenced assets are deactivated in place.
		return s.db.Model(asset).Update("active", false).Error
	}

	return s.db.Delete(asset).Error
}

// ListActiveAssets returns all active assets, for the price pipeline.
func (s *assetService) ListActiveAssets() ([]models.Asset, error) {
	var assets []models.Asset
	if err := s.db.Where("active = ?", true).Order("symbol ASC").Find(&assets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return assets, nil
}
