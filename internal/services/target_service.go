package services

import (
	"errors"

	"gorm.io/gorm"

	apperrors "valore/internal/errors"
	"valore/internal/models"
)

// targetService handles target-allocation business logic.
type targetService struct {
	db *gorm.DB
}

// NewTargetService creates a new TargetServicer.
func NewTargetService(db *gorm.DB) TargetServicer {
	return &targetService{db: db}
}

// SetTargets replaces the portfolio's target weights with the supplied
// set. Weights do not have to sum to 100; the residual is reported back so
// the caller can surface it.
func (s *targetService) SetTargets(userID, portfolioID string, entries []TargetInput) (*TargetsResponse, error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	var total float64
	for _, entry := range entries {
		if entry.WeightPct < 0 || entry.WeightPct > 100 {
			return nil, apperrors.ErrInvalidWeight
		}
		if seen[entry.AssetID] {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "Duplicate asset in targets")
		}
		seen[entry.AssetID] = true
		total += entry.WeightPct
	}
	if total > 100.000001 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidWeight, "Target weights exceed 100%")
	}

	for _, entry := range entries {
		var asset models.Asset
		if err := s.db.First(&asset, "id = ?", entry.AssetID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apperrors.ErrAssetNotFound
			}
			return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
		}
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("portfolio_id = ?", portfolioID).
			Delete(&models.TargetAllocation{}).Error; err != nil {
			return err
		}
		for _, entry := range entries {
			target := models.TargetAllocation{
				PortfolioID: portfolioID,
				AssetID:     entry.AssetID,
				WeightPct:   entry.WeightPct,
			}
			if err := tx.Create(&target).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return s.GetTargets(userID, portfolioID)
}

// GetTargets returns the portfolio's target weights and the residual to
// 100%.
func (s *targetService) GetTargets(userID, portfolioID string) (*TargetsResponse, error) {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return nil, err
	}

	var targets []models.TargetAllocation
	if err := s.db.Where("portfolio_id = ?", portfolioID).
		Preload("Asset").Order("weight_pct DESC").Find(&targets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var total float64
	for _, t := range targets {
		total += t.WeightPct
	}
	return &TargetsResponse{
		Targets:     targets,
		TotalPct:    total,
		ResidualPct: 100 - total,
	}, nil
}

// DeleteTarget removes one asset's target weight.
func (s *targetService) DeleteTarget(userID, portfolioID, assetID string) error {
	if _, err := getOwnedPortfolio(s.db, userID, portfolioID); err != nil {
		return err
	}

	result := s.db.Where("portfolio_id = ? AND asset_id = ?", portfolioID, assetID).
		Delete(&models.TargetAllocation{})
	if result.Error != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrAllocationNotFound
	}
	return nil
}
