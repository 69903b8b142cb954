package analytics

// Summary is a portfolio-level valuation snapshot in the portfolio's base
// currency. Percentages are 0 when their denominator is 0.
type Summary struct {
	MarketValue     float64   `json:"market_value"`
	CostBasis       float64   `json:"cost_basis"`
	UnrealizedPL    float64   `json:"unrealized_pl"`
	UnrealizedPLPct float64   `json:"unrealized_pl_pct"`
	RealizedPL      float64   `json:"realized_pl"`
	DayChange       float64   `json:"day_change"`
	DayChangePct    float64   `json:"day_change_pct"`
	CashBalance     float64   `json:"cash_balance"`
	Warnings        []Warning `json:"warnings,omitempty"`
}

// AllocationEntry is one asset's share of the total position market value.
type AllocationEntry struct {
	AssetID     string  `json:"asset_id"`
	MarketValue float64 `json:"market_value"`
	WeightPct   float64 `json:"weight_pct"`
}

// ComputeSummary values positions with the supplied pricing and combines
// them with the cash balance. Assets whose price or FX rate is unavailable
// are excluded from valuation with a warning rather than failing the whole
// computation. Cost basis is converted at the current FX rate, the same
// rate used for market value, so unrealized P&L is free of FX noise from
// historical conversion.
func ComputeSummary(positions []Position, pricing map[string]AssetPricing, cashBalance float64) Summary {
	s := Summary{CashBalance: cashBalance}

	var prevValue float64
	dayChangeComplete := true

	for _, pos := range positions {
		s.RealizedPL += pos.RealizedPL
		if pos.Quantity == 0 {
			continue
		}

		p, ok := pricing[pos.AssetID]
		if !ok || !p.Current.OK {
			s.Warnings = append(s.Warnings, Warning{
				AssetID: pos.AssetID,
				Code:    WarnPriceUnavailable,
				Message: "no price observation, asset excluded from valuation",
			})
			dayChangeComplete = false
			continue
		}
		if !p.FxOK {
			s.Warnings = append(s.Warnings, Warning{
				AssetID: pos.AssetID,
				Code:    WarnFxUnavailable,
				Message: "no FX rate to base currency, asset excluded from valuation",
			})
			dayChangeComplete = false
			continue
		}

		value := pos.Quantity * p.Current.Price * p.FxRate
		s.MarketValue += value
		s.CostBasis += pos.Quantity * pos.AvgCost * p.FxRate

		// Day change needs both legs for the asset; an asset without a
		// prior close drops out of both sides.
		if p.Previous.OK && p.PrevFxOK {
			prevValue += pos.Quantity * p.Previous.Price * p.PrevFx
		} else {
			s.Warnings = append(s.Warnings, Warning{
				AssetID: pos.AssetID,
				Code:    WarnNoPriorClose,
				Message: "no prior close, asset excluded from day change",
			})
			dayChangeComplete = false
		}
	}

	s.UnrealizedPL = s.MarketValue - s.CostBasis
	if s.CostBasis != 0 {
		s.UnrealizedPLPct = s.UnrealizedPL / s.CostBasis * 100
	}

	if prevValue > 0 {
		// When some assets lack a prior close, compare only the priced
		// subset against its own prior value.
		current := s.MarketValue
		if !dayChangeComplete {
			current = repriceSubset(positions, pricing)
		}
		s.DayChange = current - prevValue
		s.DayChangePct = s.DayChange / prevValue * 100
	}

	s.MarketValue += cashBalance
	return s
}

// repriceSubset sums current market value over only those assets that also
// have a prior close, keeping day change an apples-to-apples difference.
func repriceSubset(positions []Position, pricing map[string]AssetPricing) float64 {
	var total float64
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		p, ok := pricing[pos.AssetID]
		if !ok || !p.Current.OK || !p.FxOK || !p.Previous.OK || !p.PrevFxOK {
			continue
		}
		total += pos.Quantity * p.Current.Price * p.FxRate
	}
	return total
}

// ComputeAllocation returns each open position's weight of the total
// position market value. The result is empty when nothing can be valued.
func ComputeAllocation(positions []Position, pricing map[string]AssetPricing) []AllocationEntry {
	entries := make([]AllocationEntry, 0, len(positions))
	var total float64

	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		p, ok := pricing[pos.AssetID]
		if !ok || !p.Current.OK || !p.FxOK {
			continue
		}
		value := pos.Quantity * p.Current.Price * p.FxRate
		entries = append(entries, AllocationEntry{AssetID: pos.AssetID, MarketValue: value})
		total += value
	}

	if total <= 0 {
		return []AllocationEntry{}
	}
	for i := range entries {
		entries[i].WeightPct = entries[i].MarketValue / total * 100
	}
	return entries
}
