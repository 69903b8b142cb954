package models

import "time"

// ImportRow is one parsed CSV line within an import batch. Rows that fail
// parsing are kept with RowError set so the preview can show them; only
// error-free rows become transactions on commit.
type ImportRow struct {
	Base
	BatchID       string     `gorm:"type:uuid;index;not null" json:"batch_id"`
	RowNumber     int        `gorm:"not null" json:"row_number"`
	TradeAt       *time.Time `json:"trade_at,omitempty"`
	Symbol        string     `gorm:"size:32" json:"symbol"`
	Side          string     `gorm:"size:20" json:"side"`
	Quantity      float64    `json:"quantity"`
	Price         float64    `json:"price"`
	Fees          float64    `json:"fees"`
	Taxes         float64    `json:"taxes"`
	TradeCurrency string     `gorm:"size:3" json:"trade_currency"`
	Notes         string     `gorm:"size:500" json:"notes,omitempty"`
	RowError      string     `gorm:"size:500" json:"row_error,omitempty"`
}
