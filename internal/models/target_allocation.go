package models

// TargetAllocation maps an asset to its desired weight within a portfolio.
// Weights are percentages in [0,100]; the sum across a portfolio is not
// enforced to be 100.
type TargetAllocation struct {
	Base
	PortfolioID string  `gorm:"type:uuid;not null;uniqueIndex:idx_target_portfolio_asset" json:"portfolio_id"`
	AssetID     string  `gorm:"type:uuid;not null;uniqueIndex:idx_target_portfolio_asset" json:"asset_id"`
	WeightPct   float64 `gorm:"not null" json:"weight_pct"`

	Asset *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}
