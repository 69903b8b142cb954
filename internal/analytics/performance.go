package analytics

import (
	"math"
	"sort"
	"time"
)

// Period keys accepted by ResolvePeriodStart.
const (
	Period1M  = "1m"
	Period3M  = "3m"
	Period6M  = "6m"
	PeriodYTD = "ytd"
	Period1Y  = "1y"
	Period3Y  = "3y"
	PeriodAll = "all"
)

// ResolvePeriodStart maps a period key to its concrete start time relative
// to now. firstTxn anchors the "all" period; it is also the floor for every
// other period so a young portfolio never reports a window predating its
// own history. ok is false for unknown keys.
func ResolvePeriodStart(key string, now, firstTxn time.Time) (start time.Time, ok bool) {
	switch key {
	case Period1M:
		start = now.AddDate(0, 0, -30)
	case Period3M:
		start = now.AddDate(0, 0, -90)
	case Period6M:
		start = now.AddDate(0, 0, -180)
	case Period1Y:
		start = now.AddDate(0, 0, -365)
	case Period3Y:
		start = now.AddDate(0, 0, -1095)
	case PeriodYTD:
		start = time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
	case PeriodAll:
		start = firstTxn
	default:
		return time.Time{}, false
	}
	if !firstTxn.IsZero() && start.Before(firstTxn) {
		start = firstTxn
	}
	return start, true
}

// PerformanceInput carries everything the return calculations need. Flows
// are external cash flows that occurred inside the period, in base
// currency, with money entering the portfolio positive. ValueAt values the
// portfolio at an arbitrary time inside the period and is used to split
// the TWR chain at each flow date.
type PerformanceInput struct {
	StartAt    time.Time
	EndAt      time.Time
	StartValue float64
	EndValue   float64
	Flows      []Flow
	ValueAt    func(time.Time) float64
}

// PerformanceResult reports period returns. TwrAnnualizedPct is nil for
// periods shorter than a year. MwrPct is nil when the IRR solver did not
// converge; Converged mirrors that.
type PerformanceResult struct {
	TwrPct           float64   `json:"twr_pct"`
	TwrAnnualizedPct *float64  `json:"twr_annualized_pct,omitempty"`
	MwrPct           *float64  `json:"mwr_pct"`
	Converged        bool      `json:"converged"`
	NetInvested      float64   `json:"net_invested"`
	TotalDeposits    float64   `json:"total_deposits"`
	TotalWithdrawals float64   `json:"total_withdrawals"`
	AbsoluteGain     float64   `json:"absolute_gain"`
	Warnings         []Warning `json:"warnings,omitempty"`
}

// ComputePerformance computes time-weighted and money-weighted returns for
// the period described by in.
func ComputePerformance(in PerformanceInput) PerformanceResult {
	flows := make([]Flow, len(in.Flows))
	copy(flows, in.Flows)
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].At.Before(flows[j].At) })

	var result PerformanceResult
	for _, f := range flows {
		if f.Amount >= 0 {
			result.TotalDeposits += f.Amount
		} else {
			result.TotalWithdrawals += -f.Amount
		}
	}
	result.NetInvested = result.TotalDeposits - result.TotalWithdrawals
	result.AbsoluteGain = in.EndValue - in.StartValue - result.NetInvested

	result.TwrPct, result.TwrAnnualizedPct, result.Warnings = computeTWR(in, flows)

	if rate, converged := SolveIRR(irrFlows(in, flows)); converged {
		pct := rate * 100
		result.MwrPct = &pct
		result.Converged = true
	}

	return result
}

// computeTWR chain-links sub-period returns split at each external flow
// date. Each sub-period return is (endValue - flow)/startValue - 1, where
// the flow lands at the sub-period's end. Sub-periods that start from a
// zero or negative value cannot produce a meaningful return and are
// skipped with a warning.
func computeTWR(in PerformanceInput, flows []Flow) (float64, *float64, []Warning) {
	var warnings []Warning

	cumulative := 1.0
	startValue := in.StartValue
	startAt := in.StartAt

	link := func(endValue, flow float64) {
		if startValue <= 0 {
			if flow != 0 || endValue != 0 {
				warnings = append(warnings, Warning{
					Code:    WarnZeroStartValue,
					Message: "sub-period skipped: start value is zero",
				})
			}
			return
		}
		cumulative *= (endValue - flow) / startValue
	}

	for _, f := range flows {
		if !f.At.After(startAt) || f.At.After(in.EndAt) {
			continue
		}
		endValue := in.EndValue
		if in.ValueAt != nil && f.At.Before(in.EndAt) {
			endValue = in.ValueAt(f.At)
		}
		link(endValue, f.Amount)
		startValue = endValue
		startAt = f.At
	}
	link(in.EndValue, 0)

	twr := cumulative - 1
	twrPct := twr * 100

	days := in.EndAt.Sub(in.StartAt).Hours() / 24
	if days >= 365 && cumulative > 0 {
		annualized := (math.Pow(cumulative, 365/days) - 1) * 100
		return twrPct, &annualized, warnings
	}
	return twrPct, nil, warnings
}

// irrFlows builds the investor-perspective cash-flow series for the IRR:
// buying into the portfolio at the start, matching each external flow, and
// liquidating at the end.
func irrFlows(in PerformanceInput, flows []Flow) []Flow {
	series := make([]Flow, 0, len(flows)+2)
	if in.StartValue != 0 {
		series = append(series, Flow{At: in.StartAt, Amount: -in.StartValue})
	}
	for _, f := range flows {
		if !f.At.After(in.StartAt) || f.At.After(in.EndAt) {
			continue
		}
		series = append(series, Flow{At: f.At, Amount: -f.Amount})
	}
	series = append(series, Flow{At: in.EndAt, Amount: in.EndValue})
	return series
}
