package models

import "time"

// PacMode selects how a recurring plan sizes each purchase.
type PacMode string

// Plan sizing modes: a fixed currency amount per execution, or a fixed
// quantity of the asset.
const (
	PacModeAmount   PacMode = "amount"
	PacModeQuantity PacMode = "quantity"
)

// PacFrequency is the recurrence schedule of a plan.
type PacFrequency string

// Supported recurrence frequencies.
const (
	PacWeekly   PacFrequency = "weekly"
	PacBiweekly PacFrequency = "biweekly"
	PacMonthly  PacFrequency = "monthly"
)

// PacRule is a recurring investment plan (piano di accumulo) for one asset
// in a portfolio. Monthly plans fire on DayOfMonth; weekly and biweekly
// plans fire on DayOfWeek (0 = Sunday, matching time.Weekday).
type PacRule struct {
	Base
	PortfolioID string       `gorm:"type:uuid;index;not null" json:"portfolio_id"`
	AssetID     string       `gorm:"type:uuid;index;not null" json:"asset_id"`
	Mode        PacMode      `gorm:"size:20;not null" json:"mode"`
	Amount      float64      `json:"amount"`
	Quantity    float64      `json:"quantity"`
	Frequency   PacFrequency `gorm:"size:20;not null" json:"frequency"`
	DayOfMonth  int          `json:"day_of_month"`
	DayOfWeek   int          `json:"day_of_week"`
	StartDate   time.Time    `gorm:"not null" json:"start_date"`
	EndDate     *time.Time   `json:"end_date,omitempty"`
	AutoExecute bool         `gorm:"default:false" json:"auto_execute"`
	Active      bool         `gorm:"default:true" json:"active"`

	Asset *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}
