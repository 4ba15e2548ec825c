package ml

import "sort"

// Evaluate computes the standard evaluation metrics for calibrated
// probabilities against binary labels.
func Evaluate(y, p []float64) map[string]float64 {
	return map[string]float64{
		"roc_auc":          ROCAUC(y, p),
		"pr_auc":           PRAUC(y, p),
		"brier_score":      Brier(y, p),
		"precision_at_20p": PrecisionAtFraction(y, p, 0.20),
	}
}

// ROCAUC computes the area under the ROC curve via the rank statistic.
// Ties receive half credit.
func ROCAUC(y, p []float64) float64 {
	type pair struct{ p, y float64 }
	pairs := make([]pair, len(y))
	for i := range y {
		pairs[i] = pair{p[i], y[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].p < pairs[j].p })

	var rankSum float64
	var nPos, nNeg float64
	i := 0
	for i < len(pairs) {
		j := i
		for j < len(pairs) && pairs[j].p == pairs[i].p {
			j++
		}
		// Average rank for the tie group (1-based ranks)
		avgRank := float64(i+j+1) / 2.0
		for k := i; k < j; k++ {
			if pairs[k].y == 1 {
				rankSum += avgRank
			}
		}
		i = j
	}
	for _, pr := range pairs {
		if pr.y == 1 {
			nPos++
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - nPos*(nPos+1)/2) / (nPos * nNeg)
}

// PRAUC computes average precision (area under the precision-recall curve).
func PRAUC(y, p []float64) float64 {
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] > p[idx[b]] })

	var nPos float64
	for _, v := range y {
		if v == 1 {
			nPos++
		}
	}
	if nPos == 0 {
		return 0
	}

	var tp, ap float64
	for rank, i := range idx {
		if y[i] == 1 {
			tp++
			precision := tp / float64(rank+1)
			ap += precision / nPos
		}
	}
	return ap
}

// Brier computes the mean squared error of probabilities, the standard
// calibration-quality score (lower is better).
func Brier(y, p []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	var sum float64
	for i := range y {
		d := p[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(y))
}

// PrecisionAtFraction computes precision within the top fraction of rows
// ranked by predicted probability.
func PrecisionAtFraction(y, p []float64, fraction float64) float64 {
	n := int(float64(len(p)) * fraction)
	if n == 0 {
		return 0
	}
	idx := make([]int, len(p))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return p[idx[a]] > p[idx[b]] })

	var hits float64
	for _, i := range idx[:n] {
		if y[i] == 1 {
			hits++
		}
	}
	return hits / float64(n)
}
