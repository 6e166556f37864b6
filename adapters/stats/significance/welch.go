package significance

import (
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"claimstat/domain/core"
)

// WelchResult is the outcome of a two-sample t-test with unequal variances
type WelchResult struct {
	T      float64 `json:"t"`
	DF     float64 `json:"df"`
	PValue float64 `json:"p_value"`
	Mean1  float64 `json:"mean1"`
	Mean2  float64 `json:"mean2"`
	Var1   float64 `json:"var1"`
	Var2   float64 `json:"var2"`
	N1     int     `json:"n1"`
	N2     int     `json:"n2"`
	// CohensD uses the pooled standard deviation.
	CohensD float64 `json:"cohens_d"`
}

// WelchTTest compares the means of a and b without assuming equal
// variances. The p-value is two-sided.
func WelchTTest(a, b []float64) (WelchResult, error) {
	if len(a) == 0 || len(b) == 0 {
		return WelchResult{}, precondition(MethodWelch, core.ErrEmptyGroup, "group sizes %d and %d", len(a), len(b))
	}
	if len(a) < 2 || len(b) < 2 {
		return WelchResult{}, precondition(MethodWelch, core.ErrInsufficientData, "each group needs at least 2 values, got %d and %d", len(a), len(b))
	}

	n1, n2 := float64(len(a)), float64(len(b))
	m1, v1 := stat.MeanVariance(a, nil)
	m2, v2 := stat.MeanVariance(b, nil)

	se1, se2 := v1/n1, v2/n2
	se := se1 + se2
	if se == 0 {
		return WelchResult{}, errDegenerate(MethodWelch, "both groups have zero variance")
	}

	t := (m1 - m2) / math.Sqrt(se)
	// Welch-Satterthwaite
	df := se * se / (se1*se1/(n1-1) + se2*se2/(n2-1))

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p := clampP(2 * dist.Survival(math.Abs(t)))

	var d float64
	if pooled := math.Sqrt(((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2)); pooled > 0 {
		d = (m1 - m2) / pooled
	}

	return WelchResult{
		T:       t,
		DF:      df,
		PValue:  p,
		Mean1:   m1,
		Mean2:   m2,
		Var1:    v1,
		Var2:    v2,
		N1:      len(a),
		N2:      len(b),
		CohensD: d,
	}, nil
}
