package models

import (
	"time"

	"valore/internal/uuid"

	"gorm.io/gorm"
)

// FxRate is a daily exchange-rate observation: one unit of BaseCurrency
// equals Rate units of QuoteCurrency. Immutable once recorded.
type FxRate struct {
	ID            string    `gorm:"type:uuid;primaryKey" json:"id"`
	BaseCurrency  string    `gorm:"size:3;not null;uniqueIndex:idx_fx_rate_pair_date" json:"base_currency"`
	QuoteCurrency string    `gorm:"size:3;not null;uniqueIndex:idx_fx_rate_pair_date" json:"quote_currency"`
	Date          time.Time `gorm:"not null;uniqueIndex:idx_fx_rate_pair_date" json:"date"`
	Rate          float64   `gorm:"not null" json:"rate"`
	CreatedAt     time.Time `json:"created_at"`
}

// BeforeCreate hook generates a UUIDv7 for new records
func (r *FxRate) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New()
	}
	return nil
}
