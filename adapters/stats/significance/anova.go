package significance

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat/distuv"

	"claimstat/domain/core"
)

// ANOVAResult is the outcome of a one-way analysis of variance
type ANOVAResult struct {
	F          float64   `json:"f"`
	PValue     float64   `json:"p_value"`
	DFBetween  int       `json:"df_between"`
	DFWithin   int       `json:"df_within"`
	GroupMeans []float64 `json:"group_means"`
	GroupSizes []int     `json:"group_sizes"`
	N          int       `json:"n"`
	// EtaSquared is the share of variance explained by the grouping.
	EtaSquared float64 `json:"eta_squared"`
}

// OneWayANOVA tests whether all groups share the same mean
func OneWayANOVA(groups ...[]float64) (ANOVAResult, error) {
	k := len(groups)
	if k < 2 {
		return ANOVAResult{}, precondition(MethodANOVA, core.ErrInsufficientGroups, "need at least 2 groups, got %d", k)
	}

	res := ANOVAResult{
		GroupMeans: make([]float64, k),
		GroupSizes: make([]int, k),
	}
	var total float64
	for i, g := range groups {
		if len(g) == 0 {
			return ANOVAResult{}, precondition(MethodANOVA, core.ErrEmptyGroup, "group %d is empty", i)
		}
		sum := floats.Sum(g)
		res.GroupMeans[i] = sum / float64(len(g))
		res.GroupSizes[i] = len(g)
		res.N += len(g)
		total += sum
	}
	if res.N-k < 1 {
		return ANOVAResult{}, precondition(MethodANOVA, core.ErrInsufficientData, "%d values across %d groups leave no within-group degrees of freedom", res.N, k)
	}

	grand := total / float64(res.N)
	var ssb, ssw float64
	for i, g := range groups {
		d := res.GroupMeans[i] - grand
		ssb += float64(len(g)) * d * d
		for _, x := range g {
			e := x - res.GroupMeans[i]
			ssw += e * e
		}
	}

	res.DFBetween = k - 1
	res.DFWithin = res.N - k
	if ssb+ssw > 0 {
		res.EtaSquared = ssb / (ssb + ssw)
	}

	switch {
	case ssw == 0 && ssb == 0:
		return ANOVAResult{}, errDegenerate(MethodANOVA, "all values are identical")
	case ssw == 0:
		// Perfect separation: no within-group spread at all.
		res.F = math.Inf(1)
		res.PValue = 0
		return res, nil
	}

	res.F = (ssb / float64(res.DFBetween)) / (ssw / float64(res.DFWithin))
	dist := distuv.F{D1: float64(res.DFBetween), D2: float64(res.DFWithin)}
	res.PValue = clampP(dist.Survival(res.F))
	return res, nil
}
