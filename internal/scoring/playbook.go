package scoring

import (
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
)

// Playbook identifiers consumed by the retention CRM. DEFAULT shares the
// financial playbooks: the conversation is about the unpaid balance either
// way, the tier just sets its urgency.
const (
	PlaybookHighBehavioral   = "PB_HIGH_BEHAVIORAL"
	PlaybookHighFinancial    = "PB_HIGH_FINANCIAL"
	PlaybookHighFull         = "PB_HIGH_FULL"
	PlaybookMediumBehavioral = "PB_MEDIUM_BEHAVIORAL"
	PlaybookMediumFinancial  = "PB_MEDIUM_FINANCIAL"
	PlaybookMediumFull       = "PB_MEDIUM_FULL"
	PlaybookLowActive        = "PB_LOW_ACTIVE"
)

var playbooks = map[prediction.RiskTier]map[prediction.ChurnType]string{
	prediction.TierHigh: {
		prediction.TypeBehavioral: PlaybookHighBehavioral,
		prediction.TypeFinancial:  PlaybookHighFinancial,
		prediction.TypeDefault:    PlaybookHighFinancial,
		prediction.TypeFull:       PlaybookHighFull,
	},
	prediction.TierMedium: {
		prediction.TypeBehavioral: PlaybookMediumBehavioral,
		prediction.TypeFinancial:  PlaybookMediumFinancial,
		prediction.TypeDefault:    PlaybookMediumFinancial,
		prediction.TypeFull:       PlaybookMediumFull,
	},
}

// PlaybookFor resolves the intervention playbook for a scored member. Every
// (tier, type) combination resolves; unmapped combinations mean "no
// intervention" and fall back to the low-risk monitoring playbook.
func PlaybookFor(tier prediction.RiskTier, churnType prediction.ChurnType) string {
	if byType, ok := playbooks[tier]; ok {
		if id, ok := byType[churnType]; ok {
			return id
		}
	}
	return PlaybookLowActive
}
