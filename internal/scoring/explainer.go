package scoring

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/ml"
)

// topReasons is how many explanatory factors each prediction carries.
const topReasons = 3

// ExplainReasons turns model contributions into the top operator-facing
// reasons, largest risk contribution first.
func ExplainReasons(contribs []ml.Contribution, v *feature.Vector) []prediction.Reason {
	sorted := make([]ml.Contribution, len(contribs))
	copy(sorted, contribs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].Impact) > math.Abs(sorted[j].Impact)
	})

	reasons := make([]prediction.Reason, 0, topReasons)
	for _, c := range sorted {
		if len(reasons) == topReasons {
			break
		}
		msg := renderTemplate(c.Feature, v)
		if msg == "" {
			continue
		}
		reasons = append(reasons, prediction.Reason{
			Feature: c.Feature,
			Impact:  c.Impact,
			Message: msg,
		})
	}
	return reasons
}

// renderTemplate fills the feature's explanation template with the member's
// value. Features without data get no reason line.
func renderTemplate(name string, v *feature.Vector) string {
	value, ok := v.Value(name)
	if !ok {
		return ""
	}

	tpl, found := feature.Templates[name]
	if !found {
		tpl = strings.ReplaceAll(feature.FallbackTemplate, "{name}", name)
	}
	if tpl == "" {
		return ""
	}
	return strings.ReplaceAll(tpl, "{value}", formatValue(value))
}

// formatValue renders whole numbers without a fraction and everything else
// with two decimals.
func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.2f", v)
}
