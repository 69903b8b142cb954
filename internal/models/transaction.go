package models

import "time"

// TxnSide identifies a ledger entry's direction. Buy and sell are trades
// against an asset; the remaining sides are pure cash movements.
type TxnSide string

// Supported transaction sides.
const (
	SideBuy        TxnSide = "buy"
	SideSell       TxnSide = "sell"
	SideDeposit    TxnSide = "deposit"
	SideWithdrawal TxnSide = "withdrawal"
	SideDividend   TxnSide = "dividend"
	SideFee        TxnSide = "fee"
	SideInterest   TxnSide = "interest"
)

// IsTrade reports whether the side moves asset quantity.
func (s TxnSide) IsTrade() bool {
	return s == SideBuy || s == SideSell
}

// IsCashMovement reports whether the side is an external cash flow or
// income entry rather than a trade.
func (s TxnSide) IsCashMovement() bool {
	switch s {
	case SideDeposit, SideWithdrawal, SideDividend, SideFee, SideInterest:
		return true
	}
	return false
}

// TxnSource records how a transaction entered the ledger.
type TxnSource string

// Transaction provenance values.
const (
	SourceManual    TxnSource = "manual"
	SourceCSV       TxnSource = "csv"
	SourcePac       TxnSource = "pac"
	SourceRebalance TxnSource = "rebalance"
)

// Transaction is a ledger entry. AssetID is nil for pure cash movements.
// Gross amount = Quantity * Price; a buy costs gross + fees + taxes, a
// sell yields gross - fees - taxes.
type Transaction struct {
	Base
	PortfolioID   string    `gorm:"type:uuid;index;not null" json:"portfolio_id"`
	AssetID       *string   `gorm:"type:uuid;index" json:"asset_id,omitempty"`
	Side          TxnSide   `gorm:"size:20;not null;index" json:"side"`
	TradeAt       time.Time `gorm:"index;not null" json:"trade_at"`
	Quantity      float64   `gorm:"not null" json:"quantity"`
	Price         float64   `gorm:"not null" json:"price"`
	Fees          float64   `gorm:"default:0" json:"fees"`
	Taxes         float64   `gorm:"default:0" json:"taxes"`
	TradeCurrency string    `gorm:"size:3;not null" json:"trade_currency"`
	Notes         string    `gorm:"size:500" json:"notes,omitempty"`
	Source        TxnSource `gorm:"size:20;default:'manual'" json:"source"`

	Asset *Asset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

// GrossAmount returns quantity times price.
func (t *Transaction) GrossAmount() float64 {
	return t.Quantity * t.Price
}

// CashImpact returns the signed effect of this entry on the portfolio's
// cash balance, in the trade currency. Trades settle against external
// funds and leave the balance untouched.
func (t *Transaction) CashImpact() float64 {
	switch t.Side {
	case SideDeposit, SideDividend, SideInterest:
		return t.GrossAmount() - t.Fees - t.Taxes
	case SideWithdrawal, SideFee:
		return -(t.GrossAmount() + t.Fees + t.Taxes)
	}
	return 0
}

// ExternalFlow returns this entry's external cash flow from the investor's
// perspective, in the trade currency. Money entering the portfolio is
// positive: a buy brings in its total cost, a sell takes out its net
// proceeds, deposits and withdrawals move cash directly. Dividends,
// fees, and interest are investment returns rather than flows.
func (t *Transaction) ExternalFlow() float64 {
	switch t.Side {
	case SideBuy:
		return t.GrossAmount() + t.Fees + t.Taxes
	case SideSell:
		return -(t.GrossAmount() - t.Fees - t.Taxes)
	case SideDeposit:
		return t.GrossAmount() - t.Fees - t.Taxes
	case SideWithdrawal:
		return -(t.GrossAmount() + t.Fees + t.Taxes)
	}
	return 0
}
