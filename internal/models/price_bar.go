package models

import (
	"time"

	"valore/internal/uuid"

	"gorm.io/gorm"
)

// PriceBar is a daily closing price observation for an asset, in the
// asset's quote currency. Bars are immutable once recorded, so this model
// deliberately omits soft deletes and update tracking.
type PriceBar struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	AssetID   string    `gorm:"type:uuid;not null;uniqueIndex:idx_price_bar_asset_date" json:"asset_id"`
	Date      time.Time `gorm:"not null;uniqueIndex:idx_price_bar_asset_date" json:"date"`
	Close     float64   `gorm:"not null" json:"close"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (p *PriceBar) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New()
	}
	return nil
}
