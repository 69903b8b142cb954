// Package analytics turns raw ledger facts into derived portfolio views:
// positions, valuations, allocations, performance figures, and rebalance
// plans. The package is pure computation. It never touches storage or the
// network, and callers supply every price and FX rate it needs, so results
// are deterministic for a given input.
package analytics

import "time"

// Position is the folded state of one asset after replaying the ledger.
// AvgCost is a moving average in the asset's quote currency. A position
// with zero quantity but nonzero realized P&L is a closed position and is
// retained for display.
type Position struct {
	AssetID    string  `json:"asset_id"`
	Quantity   float64 `json:"quantity"`
	AvgCost    float64 `json:"avg_cost"`
	RealizedPL float64 `json:"realized_pl"`
}

// Warning reports a non-fatal data problem encountered during a
// computation. Multi-asset operations collect warnings instead of failing.
type Warning struct {
	AssetID string `json:"asset_id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Warning codes.
const (
	WarnOversell         = "OVERSELL_CLAMPED"
	WarnSellWithoutHold  = "SELL_WITHOUT_HOLDING"
	WarnPriceUnavailable = "PRICE_UNAVAILABLE"
	WarnFxUnavailable    = "FX_UNAVAILABLE"
	WarnNoPriorClose     = "NO_PRIOR_CLOSE"
	WarnZeroStartValue   = "ZERO_START_VALUE"
)

// PricePoint is a resolved price observation. OK is false when no
// observation exists at or before the requested time.
type PricePoint struct {
	Price float64   `json:"price"`
	AsOf  time.Time `json:"as_of"`
	OK    bool      `json:"-"`
}

// AssetPricing carries everything needed to value one asset in the
// portfolio's base currency: the current and previous-trading-day quotes
// in the asset's quote currency, and the FX rates that convert each of
// them to base. FxRate is 1 with FxOK true when no conversion is needed.
type AssetPricing struct {
	Current   PricePoint
	Previous  PricePoint
	FxRate    float64
	FxOK      bool
	PrevFx    float64
	PrevFxOK  bool
}

// Flow is an external cash flow in base currency. Money entering the
// portfolio is positive.
type Flow struct {
	At     time.Time `json:"at"`
	Amount float64   `json:"amount"`
}
