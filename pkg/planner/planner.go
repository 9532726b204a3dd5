// Package planner derives LSH band/row parameters (K, B, R) from a target
// Jaccard threshold and false-positive/false-negative error bounds, by
// numerically integrating the banding technique's probability curves.
package planner

import (
	"math"

	"github.com/dupefind/dupefind/pkg/dferr"
)

// maxK is the hard ceiling on the number of hash functions the planner will
// try before giving up and returning its best candidate so far.
const maxK = 16384

// quadratureSteps controls the number of Simpson's-rule subintervals used
// per integral; at this resolution the approximation error over [0,1] is
// well under 1e-6 for the smooth polynomial integrands here.
const quadratureSteps = 4000

// Plan is a resolved LSH parameterization. R is K/B rounded down, so B*R
// equals K only when B divides K and is smaller than K otherwise.
type Plan struct {
	K int
	B int
	R int
}

// Warning is a non-fatal condition the planner encountered while searching;
// callers should surface it through their own logging rather than treat it
// as failure. Solve returns a nil *Warning when none occurred.
type Warning struct {
	Kind    dferr.Kind
	Message string
}

// falsePositiveDensity is the probability that two items at Jaccard
// similarity s collide in at least one of B bands of R rows, for s ranging
// over the region below threshold (where collision is an error).
func falsePositiveDensity(b, r int) func(s float64) float64 {
	return func(s float64) float64 {
		return 1.0 - math.Pow(1.0-math.Pow(s, float64(r)), float64(b))
	}
}

// falseNegativeDensity is the probability that two items at Jaccard
// similarity s fail to collide in any band, for s ranging over the region
// at or above threshold (where a miss is an error).
func falseNegativeDensity(b, r int) func(s float64) float64 {
	return func(s float64) float64 {
		return 1.0 - (1.0 - math.Pow(1.0-math.Pow(s, float64(r)), float64(b)))
	}
}

// simpson integrates f over [lo, hi] using composite Simpson's rule with n
// (even) subintervals.
func simpson(f func(float64) float64, lo, hi float64, n int) float64 {
	if hi <= lo {
		return 0
	}
	if n%2 != 0 {
		n++
	}
	h := (hi - lo) / float64(n)
	sum := f(lo) + f(hi)
	for i := 1; i < n; i++ {
		x := lo + float64(i)*h
		if i%2 == 0 {
			sum += 2 * f(x)
		} else {
			sum += 4 * f(x)
		}
	}
	return sum * h / 3
}

// falsePositiveProbability is P_FP(tau,B,R) = integral over [0,tau] of the
// false-positive density.
func falsePositiveProbability(tau float64, b, r int) float64 {
	return simpson(falsePositiveDensity(b, r), 0, tau, quadratureSteps)
}

// falseNegativeProbability is P_FN(tau,B,R) = integral over [tau,1] of the
// false-negative density.
func falseNegativeProbability(tau float64, b, r int) float64 {
	return simpson(falseNegativeDensity(b, r), tau, 1.0, quadratureSteps)
}

// Solve searches for the smallest (K, B, R) meeting P_FN <= maxFN and
// P_FP <= maxFP at Jaccard threshold tau, doubling K from 2 until both
// bounds are satisfied or the K cap is reached. It returns the chosen plan
// and a non-nil warning if the search could not fully satisfy both bounds.
func Solve(tau, maxFN, maxFP float64) (Plan, *Warning) {
	k := 2
	var best Plan
	var warn *Warning

	for {
		b, r, reached := scanBands(tau, maxFN, k)
		best = Plan{K: k, B: b, R: r}
		if !reached {
			warn = &Warning{
				Kind:    dferr.PlannerUnreachable,
				Message: "no band count satisfied the false-negative bound at this K",
			}
		} else if falsePositiveProbability(tau, b, r) <= maxFP {
			return best, nil
		}

		if k >= maxK {
			warn = &Warning{
				Kind:    dferr.PlannerUnreachable,
				Message: "planner reached the K cap without satisfying both error bounds",
			}
			return best, warn
		}
		k *= 2
	}
}

// scanBands scans B = 1..K (R = K/B, integer division) for the first band
// count satisfying the false-negative bound, returning the chosen (B,R) and
// whether the bound was actually reached. If none qualifies, it falls back
// to (K, 1).
func scanBands(tau, maxFN float64, k int) (b, r int, reached bool) {
	for candidateB := 1; candidateB <= k; candidateB++ {
		candidateR := k / candidateB
		if candidateR == 0 {
			continue
		}
		if falseNegativeProbability(tau, candidateB, candidateR) <= maxFN {
			return candidateB, candidateR, true
		}
	}
	return k, 1, false
}
