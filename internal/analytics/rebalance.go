package analytics

import (
	"errors"
	"math"
	"sort"
)

// RebalanceMode selects the direction(s) a plan may trade in.
type RebalanceMode string

// Plan modes.
const (
	ModeBuyOnly   RebalanceMode = "buy_only"
	ModeSellOnly  RebalanceMode = "sell_only"
	ModeRebalance RebalanceMode = "rebalance"
)

// RoundingMode controls order-quantity rounding.
type RoundingMode string

// Rounding modes. Integer flooring always applies to assets that do not
// support fractional units, regardless of the requested mode.
const (
	RoundFractional RoundingMode = "fractional"
	RoundInteger    RoundingMode = "integer"
)

// MaxPlanTransactions caps how many orders a single plan may propose.
const MaxPlanTransactions = 100

// Constraints bound a rebalance plan.
type Constraints struct {
	Mode            RebalanceMode `json:"mode"`
	CashToAllocate  float64       `json:"cash_to_allocate"`
	MaxTransactions int           `json:"max_transactions"`
	MinOrderValue   float64       `json:"min_order_value"`
	Rounding        RoundingMode  `json:"rounding"`
}

// Holding is one asset's current state plus its target weight, with the
// price already converted to base currency. Assets without a resolvable
// price must be filtered out by the caller before planning.
type Holding struct {
	AssetID           string
	Symbol            string
	Quantity          float64
	Price             float64
	SupportsFractions bool
	TargetPct         float64
}

// PlanItem is one proposed order. Skipped items document why they were
// dropped instead of silently disappearing.
type PlanItem struct {
	AssetID        string  `json:"asset_id"`
	Symbol         string  `json:"symbol"`
	Side           string  `json:"side"`
	Quantity       float64 `json:"quantity"`
	EstimatedPrice float64 `json:"estimated_price"`
	EstimatedValue float64 `json:"estimated_value"`
	CurrentPct     float64 `json:"current_pct"`
	TargetPct      float64 `json:"target_pct"`
	DriftPct       float64 `json:"drift_pct"`
	Skipped        bool    `json:"skipped,omitempty"`
	SkipReason     string  `json:"skip_reason,omitempty"`

	wholeUnits bool
}

// Preview is a computed rebalance plan. It is never persisted; committing
// selected items is a separate, explicit operation.
type Preview struct {
	Items                 []PlanItem `json:"items"`
	TotalBuyValue         float64    `json:"total_buy_value"`
	TotalSellValue        float64    `json:"total_sell_value"`
	EstimatedCashResidual float64    `json:"estimated_cash_residual"`
}

// Plan validation errors, mapped to API errors by the service layer.
var (
	ErrBuyOnlyNeedsCash    = errors.New("buy_only mode requires cash to allocate")
	ErrTooManyTransactions = errors.New("max_transactions exceeds the plan limit")
)

// PreviewRebalance proposes orders that move current weights toward target
// weights under the given constraints. Selection is largest drift first.
// Buy-order gross totals never exceed the cash budget; whatever cannot be
// allocated (rounding, minimum order size, skipped assets) is surfaced as
// EstimatedCashResidual.
func PreviewRebalance(holdings []Holding, c Constraints) (Preview, error) {
	if c.Mode == ModeBuyOnly && c.CashToAllocate <= 0 {
		return Preview{}, ErrBuyOnlyNeedsCash
	}
	if c.MaxTransactions < 0 || c.MaxTransactions > MaxPlanTransactions {
		return Preview{}, ErrTooManyTransactions
	}
	if c.MaxTransactions == 0 {
		c.MaxTransactions = MaxPlanTransactions
	}
	if c.Rounding == "" {
		c.Rounding = RoundFractional
	}

	var positionValue float64
	for _, h := range holdings {
		positionValue += h.Quantity * h.Price
	}

	// The investable total decides what a target percentage is worth in
	// currency. Buy-only and full rebalancing grow it by the fresh cash.
	total := positionValue
	if c.Mode != ModeSellOnly && c.CashToAllocate > 0 {
		total += c.CashToAllocate
	}
	if total <= 0 {
		return Preview{Items: []PlanItem{}}, nil
	}

	items := buildCandidates(holdings, positionValue, total, c)

	sort.SliceStable(items, func(i, j int) bool {
		return math.Abs(items[i].DriftPct) > math.Abs(items[j].DriftPct)
	})

	return selectItems(items, c), nil
}

// buildCandidates computes drift and a desired order per asset, before
// selection and budget trimming.
func buildCandidates(holdings []Holding, positionValue, total float64, c Constraints) []PlanItem {
	var deficitSum float64
	if c.Mode == ModeBuyOnly {
		for _, h := range holdings {
			currentPct := weightOf(h, positionValue)
			if d := h.TargetPct - currentPct; d > 0 {
				deficitSum += d
			}
		}
	}

	items := make([]PlanItem, 0, len(holdings))
	for _, h := range holdings {
		if h.Price <= 0 {
			continue
		}
		currentPct := weightOf(h, positionValue)
		drift := currentPct - h.TargetPct

		var orderValue float64
		switch c.Mode {
		case ModeBuyOnly:
			deficit := h.TargetPct - currentPct
			if deficit <= 0 || deficitSum <= 0 {
				continue
			}
			orderValue = c.CashToAllocate * deficit / deficitSum
		case ModeSellOnly:
			ideal := h.TargetPct / 100 * total
			orderValue = ideal - h.Quantity*h.Price
			if orderValue >= 0 {
				continue
			}
		case ModeRebalance:
			ideal := h.TargetPct / 100 * total
			orderValue = ideal - h.Quantity*h.Price
			if orderValue == 0 {
				continue
			}
		}

		item := PlanItem{
			AssetID:        h.AssetID,
			Symbol:         h.Symbol,
			EstimatedPrice: h.Price,
			CurrentPct:     currentPct,
			TargetPct:      h.TargetPct,
			DriftPct:       drift,
			wholeUnits:     c.Rounding == RoundInteger || !h.SupportsFractions,
		}
		if orderValue > 0 {
			item.Side = "buy"
		} else {
			item.Side = "sell"
			orderValue = -orderValue
		}

		qty := orderValue / h.Price
		if item.wholeUnits {
			qty = math.Floor(qty)
		}
		if item.Side == "sell" && qty > h.Quantity {
			qty = h.Quantity
		}
		item.Quantity = qty
		item.EstimatedValue = qty * h.Price

		if item.EstimatedValue <= 0 {
			item.Skipped = true
			item.SkipReason = "rounds to zero quantity"
		} else if c.MinOrderValue > 0 && item.EstimatedValue < c.MinOrderValue {
			item.Skipped = true
			item.SkipReason = "below minimum order value"
		}
		items = append(items, item)
	}
	return items
}

// selectItems applies the transaction cap and the cash budget, largest
// drift first, and computes totals and the unallocated residual. In full
// rebalancing a budget bounds net consumption: kept sells fund buys on
// top of the fresh cash, and a skipped sell never lets its buys through.
func selectItems(items []PlanItem, c Constraints) Preview {
	preview := Preview{Items: make([]PlanItem, 0, len(items))}

	cashLimited := c.Mode == ModeBuyOnly && c.CashToAllocate > 0
	remainingCash := c.CashToAllocate
	active := 0

	for _, item := range items {
		if !item.Skipped {
			if active >= c.MaxTransactions {
				item.Skipped = true
				item.SkipReason = "transaction limit reached"
			} else if cashLimited && item.Side == "buy" && item.EstimatedValue > remainingCash {
				// Shrink the last buy to the remaining budget when it
				// still clears the minimum order value.
				qty := remainingCash / item.EstimatedPrice
				if item.wholeUnits {
					qty = math.Floor(qty)
				}
				value := qty * item.EstimatedPrice
				if qty <= 0 || (c.MinOrderValue > 0 && value < c.MinOrderValue) {
					item.Skipped = true
					item.SkipReason = "insufficient remaining cash"
				} else {
					item.Quantity = qty
					item.EstimatedValue = value
				}
			}
		}

		if !item.Skipped {
			active++
			switch item.Side {
			case "buy":
				preview.TotalBuyValue += item.EstimatedValue
				if cashLimited {
					remainingCash -= item.EstimatedValue
				}
			case "sell":
				preview.TotalSellValue += item.EstimatedValue
			}
		}
		preview.Items = append(preview.Items, item)
	}

	if c.Mode == ModeRebalance && c.CashToAllocate > 0 {
		capBuysToBudget(&preview, c)
	}

	if cashLimited {
		preview.EstimatedCashResidual = remainingCash
	} else if c.CashToAllocate > 0 {
		preview.EstimatedCashResidual = c.CashToAllocate - (preview.TotalBuyValue - preview.TotalSellValue)
	}
	return preview
}

// capBuysToBudget shrinks or drops buy orders until their total stays
// within the fresh cash plus the proceeds of the sells that survived
// selection. Runs after the transaction cap, so a dropped buy never
// readmits a lower-priority order.
func capBuysToBudget(preview *Preview, c Constraints) {
	budget := c.CashToAllocate + preview.TotalSellValue
	preview.TotalBuyValue = 0

	for i := range preview.Items {
		item := &preview.Items[i]
		if item.Skipped || item.Side != "buy" {
			continue
		}
		if item.EstimatedValue > budget {
			qty := budget / item.EstimatedPrice
			if item.wholeUnits {
				qty = math.Floor(qty)
			}
			value := qty * item.EstimatedPrice
			if qty <= 0 || (c.MinOrderValue > 0 && value < c.MinOrderValue) {
				item.Skipped = true
				item.SkipReason = "insufficient remaining cash"
				continue
			}
			item.Quantity = qty
			item.EstimatedValue = value
		}
		budget -= item.EstimatedValue
		preview.TotalBuyValue += item.EstimatedValue
	}
}

func weightOf(h Holding, positionValue float64) float64 {
	if positionValue <= 0 {
		return 0
	}
	return h.Quantity * h.Price / positionValue * 100
}
