package analytics

import (
	"math"
	"testing"
	"time"
)

func TestSolveIRR(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("simple_one_year_gain", func(t *testing.T) {
		rate, converged := SolveIRR([]Flow{
			{At: t0, Amount: -1000},
			{At: t0.AddDate(0, 0, 365), Amount: 1100},
		})
		if !converged {
			t.Fatal("expected convergence")
		}
		if math.Abs(rate-0.1) > 1e-4 {
			t.Errorf("rate = %v, want 0.10", rate)
		}
	})

	t.Run("negative_return", func(t *testing.T) {
		rate, converged := SolveIRR([]Flow{
			{At: t0, Amount: -1000},
			{At: t0.AddDate(0, 0, 365), Amount: 800},
		})
		if !converged {
			t.Fatal("expected convergence")
		}
		if math.Abs(rate-(-0.2)) > 1e-4 {
			t.Errorf("rate = %v, want -0.20", rate)
		}
	})

	t.Run("multiple_flows", func(t *testing.T) {
		flows := []Flow{
			{At: t0, Amount: -1000},
			{At: t0.AddDate(0, 3, 0), Amount: -500},
			{At: t0.AddDate(0, 6, 0), Amount: -500},
			{At: t0.AddDate(1, 0, 0), Amount: 2200},
		}
		rate, converged := SolveIRR(flows)
		if !converged {
			t.Fatal("expected convergence")
		}
		// The solution must actually zero the NPV.
		if residual := npv(flows, t0, rate); math.Abs(residual) > 1e-4 {
			t.Errorf("npv at solved rate = %v, want ~0", residual)
		}
	})

	t.Run("all_same_sign_fails", func(t *testing.T) {
		_, converged := SolveIRR([]Flow{
			{At: t0, Amount: 100},
			{At: t0.AddDate(0, 6, 0), Amount: 200},
		})
		if converged {
			t.Error("flows without a sign change must not converge")
		}
	})

	t.Run("too_few_flows", func(t *testing.T) {
		if _, converged := SolveIRR([]Flow{{At: t0, Amount: -100}}); converged {
			t.Error("a single flow must not converge")
		}
	})

	t.Run("near_total_loss", func(t *testing.T) {
		rate, converged := SolveIRR([]Flow{
			{At: t0, Amount: -1000},
			{At: t0.AddDate(0, 0, 365), Amount: 10},
		})
		if !converged {
			t.Fatal("expected convergence via bisection fallback")
		}
		if math.Abs(rate-(-0.99)) > 0.01 {
			t.Errorf("rate = %v, want about -0.99", rate)
		}
	})

	t.Run("sub_year_period", func(t *testing.T) {
		// 5% over half a year compounds to about 10.25% annualized.
		rate, converged := SolveIRR([]Flow{
			{At: t0, Amount: -1000},
			{At: t0.AddDate(0, 0, 182), Amount: 1050},
		})
		if !converged {
			t.Fatal("expected convergence")
		}
		if rate < 0.09 || rate > 0.12 {
			t.Errorf("rate = %v, want annualized value near 0.103", rate)
		}
	})
}
