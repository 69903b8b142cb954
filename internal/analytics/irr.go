package analytics

import (
	"math"
	"time"
)

const (
	irrTolerance     = 1e-7
	irrMaxIterations = 100
	irrMinRate       = -0.999
	irrMaxRate       = 100.0
)

// SolveIRR finds the annualized internal rate of return for a dated
// cash-flow series: the rate r at which the discounted flows sum to zero,
// with time measured in years of 365 days from the first flow.
//
// Newton-Raphson runs first; when it diverges or lands outside sane
// bounds, a bisection over a bracketing scan takes over. converged is
// false when neither method finds a root, in which case callers must
// report the rate as unavailable rather than using the returned value.
func SolveIRR(flows []Flow) (rate float64, converged bool) {
	if len(flows) < 2 {
		return 0, false
	}

	hasPositive, hasNegative := false, false
	for _, f := range flows {
		if f.Amount > 0 {
			hasPositive = true
		}
		if f.Amount < 0 {
			hasNegative = true
		}
	}
	// A root requires flows in both directions.
	if !hasPositive || !hasNegative {
		return 0, false
	}

	t0 := flows[0].At
	if r, ok := newton(flows, t0, 0.1); ok {
		return r, true
	}
	return bisect(flows, t0)
}

// npv discounts the series at rate r: sum of amount/(1+r)^years.
func npv(flows []Flow, t0 time.Time, r float64) float64 {
	var sum float64
	for _, f := range flows {
		years := f.At.Sub(t0).Hours() / 24 / 365
		sum += f.Amount / math.Pow(1+r, years)
	}
	return sum
}

// npvDerivative is d(npv)/dr, used by the Newton step.
func npvDerivative(flows []Flow, t0 time.Time, r float64) float64 {
	var sum float64
	for _, f := range flows {
		years := f.At.Sub(t0).Hours() / 24 / 365
		if years == 0 {
			continue
		}
		sum -= years * f.Amount / math.Pow(1+r, years+1)
	}
	return sum
}

func newton(flows []Flow, t0 time.Time, guess float64) (float64, bool) {
	rate := guess
	for i := 0; i < irrMaxIterations; i++ {
		value := npv(flows, t0, rate)
		if math.Abs(value) < irrTolerance {
			return rate, true
		}

		derivative := npvDerivative(flows, t0, rate)
		if derivative == 0 || math.IsNaN(derivative) || math.IsInf(derivative, 0) {
			return 0, false
		}

		next := rate - value/derivative
		if math.IsNaN(next) || math.IsInf(next, 0) {
			return 0, false
		}
		if next < irrMinRate {
			next = irrMinRate
		}
		if next > irrMaxRate {
			next = irrMaxRate
		}

		if math.Abs(next-rate) < irrTolerance {
			rate = next
			if math.Abs(npv(flows, t0, rate)) < 1e-4 {
				return rate, true
			}
			return 0, false
		}
		rate = next
	}
	return 0, false
}

// bisect scans for a sign change over a geometric-ish grid of rates, then
// narrows the bracket by halving.
func bisect(flows []Flow, t0 time.Time) (float64, bool) {
	grid := []float64{-0.99, -0.9, -0.75, -0.5, -0.25, -0.1, 0, 0.1, 0.25, 0.5, 1, 2, 5, 10}

	lo, hi := math.NaN(), math.NaN()
	prev := grid[0]
	prevVal := npv(flows, t0, prev)
	for _, r := range grid[1:] {
		val := npv(flows, t0, r)
		if prevVal == 0 {
			return prev, true
		}
		if prevVal*val < 0 {
			lo, hi = prev, r
			break
		}
		prev, prevVal = r, val
	}
	if math.IsNaN(lo) {
		return 0, false
	}

	loVal := npv(flows, t0, lo)
	for i := 0; i < irrMaxIterations; i++ {
		mid := (lo + hi) / 2
		midVal := npv(flows, t0, mid)
		if math.Abs(midVal) < irrTolerance || (hi-lo)/2 < irrTolerance {
			return mid, true
		}
		if loVal*midVal < 0 {
			hi = mid
		} else {
			lo, loVal = mid, midVal
		}
	}
	return 0, false
}
