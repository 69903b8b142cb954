package models

// AssetType identifies the kind of tradable instrument.
type AssetType string

// Supported asset types.
const (
	AssetTypeStock  AssetType = "stock"
	AssetTypeETF    AssetType = "etf"
	AssetTypeCrypto AssetType = "crypto"
	AssetTypeBond   AssetType = "bond"
	AssetTypeCash   AssetType = "cash"
	AssetTypeFund   AssetType = "fund"
)

// Asset represents a tradable instrument. Assets are created on first
// discovery or import and are never physically deleted while transactions
// reference them; the Active flag retires them instead.
type Asset struct {
	Base
	Symbol            string    `gorm:"uniqueIndex;size:32;not null" json:"symbol"`
	Name              string    `gorm:"size:200;not null" json:"name"`
	AssetType         AssetType `gorm:"size:20;not null" json:"asset_type"`
	ExchangeCode      string    `gorm:"size:20" json:"exchange_code"`
	ExchangeName      string    `gorm:"size:100" json:"exchange_name"`
	QuoteCurrency     string    `gorm:"size:3;not null" json:"quote_currency"`
	ISIN              string    `gorm:"size:12" json:"isin,omitempty"`
	Active            bool      `gorm:"default:true" json:"active"`
	SupportsFractions bool      `gorm:"default:false" json:"supports_fractions"`
}
