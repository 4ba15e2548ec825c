package scoring

import (
	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/feature"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
)

// ClassifyChurnType derives the rule-based churn category for an at-risk
// member. Low-tier members always get NONE: the category drives intervention
// playbooks, and there is no playbook for someone the model does not flag.
//
// Precedence matters. A defaulter is blocked at the turnstile, so their
// absence is forced, and attributing it to voluntary disengagement would route
// the retention team at the wrong conversation. DEFAULT therefore wins over
// everything, and FULL (both signals, not yet defaulted) over the single
// signal categories.
func ClassifyChurnType(v *feature.Vector, tier prediction.RiskTier, cfg config.PipelineConfig) prediction.ChurnType {
	if !tier.AtRisk() {
		return prediction.TypeNone
	}

	if v.IsDefaulter > 0 {
		return prediction.TypeDefault
	}

	behavioral := isAbsent(v, cfg)
	financial := v.HasOpenBalance > 0

	switch {
	case behavioral && financial:
		return prediction.TypeFull
	case behavioral:
		return prediction.TypeBehavioral
	case financial:
		return prediction.TypeFinancial
	default:
		return prediction.TypeNone
	}
}

// isAbsent reports a behavioral disengagement signal: a visit gap beyond the
// absence threshold, or no visit on record at all.
func isAbsent(v *feature.Vector, cfg config.PipelineConfig) bool {
	if v.HasEverVisited == 0 {
		return true
	}
	return v.DaysSinceLastVisit != nil && *v.DaysSinceLastVisit >= float64(cfg.BehavioralAbsenceDays)
}

// TierFor maps a calibrated probability to its risk tier.
func TierFor(probability float64, cfg config.PipelineConfig) prediction.RiskTier {
	switch {
	case probability >= cfg.HighRiskThreshold:
		return prediction.TierHigh
	case probability >= cfg.MediumRiskThreshold:
		return prediction.TierMedium
	default:
		return prediction.TierLow
	}
}
