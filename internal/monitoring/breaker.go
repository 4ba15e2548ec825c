package monitoring

import (
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// CheckNullRates runs the data-quality circuit breaker over a scoring batch.
// Visit-derived features tolerate a much higher null rate: a large share of
// members simply never attends, so missing values there are population fact
// rather than pipeline failure. A non-nil result means the scoring run must
// halt before persisting anything.
func CheckNullRates(vectors []*feature.Vector, cfg config.MonitoringConfig) *errors.CircuitBreakerError {
	if len(vectors) == 0 {
		return nil
	}

	var failed []errors.BreakerCheck
	total := float64(len(vectors))

	for _, name := range feature.AllFeatures {
		nulls := 0
		for _, v := range vectors {
			if _, ok := v.Value(name); !ok {
				nulls++
			}
		}

		rate := float64(nulls) / total
		threshold := cfg.NullRateBreaker
		if feature.IsVisitFeature(name) {
			threshold = cfg.VisitNullRateBreaker
		}
		if rate > threshold {
			failed = append(failed, errors.BreakerCheck{
				Name:      "null_rate:" + name,
				Value:     rate,
				Threshold: threshold,
			})
		}
	}

	if len(failed) == 0 {
		return nil
	}
	return errors.NewCircuitBreakerError(failed)
}

// NullRates returns the per-feature null rate of a scoring batch, for the
// null-rate gauges.
func NullRates(vectors []*feature.Vector) map[string]float64 {
	rates := make(map[string]float64, len(feature.AllFeatures))
	if len(vectors) == 0 {
		return rates
	}

	total := float64(len(vectors))
	for _, name := range feature.AllFeatures {
		nulls := 0
		for _, v := range vectors {
			if _, ok := v.Value(name); !ok {
				nulls++
			}
		}
		rates[name] = float64(nulls) / total
	}
	return rates
}
