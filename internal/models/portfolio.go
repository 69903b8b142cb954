package models

// Portfolio represents an investment account owned by a user.
// CashBalance is set by the owner and never mutated by trades; cash-movement
// ledger entries layer on top of it in the summary views.
type Portfolio struct {
	Base
	UserID         string   `gorm:"type:uuid;index;not null" json:"user_id"`
	Name           string   `gorm:"size:100;not null" json:"name"`
	BaseCurrency   string   `gorm:"size:3;not null" json:"base_currency"`
	Timezone       string   `gorm:"size:64;default:'UTC'" json:"timezone"`
	CashBalance    float64  `gorm:"not null;default:0" json:"cash_balance"`
	TargetNotional *float64 `json:"target_notional,omitempty"`

	Transactions []Transaction `gorm:"foreignKey:PortfolioID" json:"-"`
}
