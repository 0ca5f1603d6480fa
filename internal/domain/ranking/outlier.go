package ranking

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Rule is the outlier rule chosen for a sample.
type Rule string

// Outlier rules.
const (
	// RuleNormal keeps values inside the fitted normal's central 95% interval.
	RuleNormal Rule = "normal"
	// RuleTukey keeps values inside [Q1 - 1.5 IQR, Q3 + 1.5 IQR].
	RuleTukey Rule = "tukey"
	// RuleConstant keeps every value of a zero variance sample.
	RuleConstant Rule = "constant"
)

const (
	// Significance is the goodness of fit level below which normality is rejected.
	Significance = 0.05
	tukeyK       = 1.5
	normalTail   = 0.025
)

// Bounds is a closed interval of retained values.
type Bounds struct {
	Lo, Hi float64
}

// Contains reports whether v lies inside the bounds.
func (b Bounds) Contains(v float64) bool {
	return v >= b.Lo && v <= b.Hi
}

// ChooseRule fits Normal(mean, std) to values and returns the rule and bounds
// to apply. values must not be empty.
func ChooseRule(values []float64) (Rule, Bounds) {
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mean, variance := stat.PopMeanVariance(sorted, nil)
	if variance == 0 || math.IsNaN(variance) {
		return RuleConstant, Bounds{Lo: sorted[0], Hi: sorted[len(sorted)-1]}
	}
	fit := distuv.Normal{Mu: mean, Sigma: math.Sqrt(variance)}

	if KSPValue(sorted, fit.CDF) >= Significance {
		return RuleNormal, Bounds{Lo: fit.Quantile(normalTail), Hi: fit.Quantile(1 - normalTail)}
	}
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	return RuleTukey, Bounds{Lo: q1 - tukeyK*iqr, Hi: q3 + tukeyK*iqr}
}

// Filter returns the values inside the bounds of the chosen rule, in input
// order, together with the rule.
func Filter(values []float64) ([]float64, Rule) {
	if len(values) == 0 {
		return nil, RuleConstant
	}
	rule, b := ChooseRule(values)
	kept := make([]float64, 0, len(values))
	for _, v := range values {
		if b.Contains(v) {
			kept = append(kept, v)
		}
	}
	return kept, rule
}

// KSStatistic returns the one sample Kolmogorov-Smirnov distance between the
// empirical distribution of sorted and cdf.
func KSStatistic(sorted []float64, cdf func(float64) float64) float64 {
	n := float64(len(sorted))
	var d float64
	for i, x := range sorted {
		f := cdf(x)
		lo := f - float64(i)/n
		hi := float64(i+1)/n - f
		d = math.Max(d, math.Max(lo, hi))
	}
	return d
}

// KSPValue returns the probability of a KS distance at least as large as the
// observed one under the null hypothesis that sorted was drawn from cdf.
func KSPValue(sorted []float64, cdf func(float64) float64) float64 {
	n := float64(len(sorted))
	if n == 0 {
		return 1
	}
	d := KSStatistic(sorted, cdf)
	sqrtN := math.Sqrt(n)
	return kolmogorovQ((sqrtN + 0.12 + 0.11/sqrtN) * d)
}

// kolmogorovQ is the complementary Kolmogorov distribution
// Q(λ) = 2 Σ (-1)^(j-1) exp(-2 j² λ²).
func kolmogorovQ(lambda float64) float64 {
	const (
		eps1  = 0.001
		eps2  = 1e-8
		terms = 100
	)
	a2 := -2 * lambda * lambda
	fac := 2.0
	var sum, prev float64
	for j := 1; j <= terms; j++ {
		term := fac * math.Exp(a2*float64(j*j))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return math.Min(math.Max(sum, 0), 1)
		}
		fac = -fac
		prev = math.Abs(term)
	}
	// The series only fails to converge for λ near 0, where Q is 1.
	return 1
}
