// Package provider defines the interface for fetching daily closes from
// external market-data sources.
package provider

import (
	"context"
	"fmt"
	"time"
)

// Asset carries the fields a price provider needs to fetch quotes for one
// instrument.
type Asset struct {
	ID            string
	Symbol        string
	AssetType     string
	ExchangeCode  string
	QuoteCurrency string
}

// Bar is one fetched daily close, in the asset's quote currency.
type Bar struct {
	AssetID string
	Date    time.Time
	Close   float64
}

// FetchError represents a failed fetch for a specific asset.
type FetchError struct {
	AssetID string
	Symbol  string
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch price for %s (ID %s): %v", e.Symbol, e.AssetID, e.Err)
}

// Provider fetches current daily closes for a set of assets.
type Provider interface {
	// Name returns the provider's display name (e.g., "Yahoo Finance").
	Name() string

	// Supports returns true if this provider can fetch prices for the
	// given asset type.
	Supports(assetType string) bool

	// FetchBars fetches the latest daily close for each asset. A provider
	// should return as many bars as possible, even if some assets fail.
	FetchBars(ctx context.Context, assets []Asset) ([]Bar, []FetchError)
}
