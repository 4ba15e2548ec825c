package monitoring

import (
	"math"
	"sort"
)

// psiBins is the bin count for population stability comparisons. Bin edges
// come from reference-distribution quantiles, so each reference bin holds
// roughly a tenth of the mass.
const psiBins = 10

// psiEpsilon floors bin proportions so empty bins do not produce infinities.
const psiEpsilon = 1e-6

// PSIStatus discretizes a PSI value against the conventional thresholds.
type PSIStatus string

const (
	PSIOk      PSIStatus = "OK"
	PSIWarning PSIStatus = "WARNING"
	PSIAlert   PSIStatus = "ALERT"
)

const psiWarningThreshold = 0.10

// ClassifyPSI maps a PSI value to a status. The alert threshold is
// configurable; the warning threshold is the conventional 0.10.
func ClassifyPSI(value, alertThreshold float64) PSIStatus {
	switch {
	case value > alertThreshold:
		return PSIAlert
	case value > psiWarningThreshold:
		return PSIWarning
	default:
		return PSIOk
	}
}

// PSI computes the population stability index between a reference
// distribution and a current one. Returns 0 when either side lacks data.
func PSI(reference, current []float64) float64 {
	if len(reference) == 0 || len(current) == 0 {
		return 0
	}

	edges := quantileEdges(reference, psiBins)
	refProps := binProportions(reference, edges)
	curProps := binProportions(current, edges)

	var psi float64
	for i := range refProps {
		r := math.Max(refProps[i], psiEpsilon)
		c := math.Max(curProps[i], psiEpsilon)
		psi += (c - r) * math.Log(c/r)
	}
	return psi
}

// quantileEdges returns the n-1 interior quantile cut points of the values.
// Duplicate edges collapse, which degenerates gracefully for near-constant
// features.
func quantileEdges(values []float64, n int) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	edges := make([]float64, 0, n-1)
	for i := 1; i < n; i++ {
		q := sorted[(len(sorted)-1)*i/n]
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	return edges
}

// binProportions buckets values by the edges (edge value closes the bin on
// the right) and returns each bin's share.
func binProportions(values []float64, edges []float64) []float64 {
	counts := make([]float64, len(edges)+1)
	for _, v := range values {
		// Bin i covers (edges[i-1], edges[i]]; SearchFloat64s lands values
		// on edges in the bin the edge closes.
		idx := sort.SearchFloat64s(edges, v)
		counts[idx]++
	}

	total := float64(len(values))
	props := make([]float64, len(counts))
	for i, c := range counts {
		props[i] = c / total
	}
	return props
}
