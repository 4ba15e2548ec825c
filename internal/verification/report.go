package verification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/prediction"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
)

// TierSummary aggregates verified outcomes for one risk tier.
type TierSummary struct {
	Tier           prediction.RiskTier
	Total          int
	TruePositives  int
	TrueNegatives  int
	Recovered      int
	FalsePositives int
	FalseNegatives int
	Improved       int
	Worsened       int
}

// HitRate is (true positives + recovered) / total for at-risk tiers. A
// recovered member is a hit: the model flagged them, the team acted, they
// stayed.
func (s *TierSummary) HitRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.TruePositives+s.Recovered) / float64(s.Total)
}

// Report aggregates verified outcomes per tier since a date.
type Report struct {
	Since    time.Time
	Tiers    []*TierSummary
	Verified int
}

// BuildReport aggregates verified history records since the date into
// per-tier summaries, highest tier first.
func BuildReport(ctx context.Context, history prediction.HistoryRepository, since time.Time) (*Report, error) {
	records, err := history.ListVerifiedSince(ctx, since)
	if err != nil {
		return nil, errors.Wrap(err, "list verified records")
	}

	byTier := map[prediction.RiskTier]*TierSummary{}
	for _, r := range records {
		if r.OutcomeCategory == nil {
			continue
		}
		s, ok := byTier[r.Tier]
		if !ok {
			s = &TierSummary{Tier: r.Tier}
			byTier[r.Tier] = s
		}
		s.Total++
		switch *r.OutcomeCategory {
		case prediction.OutcomeTruePositive:
			s.TruePositives++
		case prediction.OutcomeTrueNegative:
			s.TrueNegatives++
		case prediction.OutcomeRecovered:
			s.Recovered++
		case prediction.OutcomeFalsePositive:
			s.FalsePositives++
		case prediction.OutcomeFalseNegative:
			s.FalseNegatives++
		}
		if r.TierMovement != nil {
			switch *r.TierMovement {
			case prediction.MovementImproved:
				s.Improved++
			case prediction.MovementWorsened:
				s.Worsened++
			}
		}
	}

	report := &Report{Since: since, Verified: len(records)}
	for _, tier := range []prediction.RiskTier{prediction.TierHigh, prediction.TierMedium, prediction.TierLow} {
		if s, ok := byTier[tier]; ok {
			report.Tiers = append(report.Tiers, s)
		}
	}
	return report, nil
}

// String renders the report for the CLI and log output.
func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Verified outcomes since %s (%s predictions)\n",
		r.Since.Format("2006-01-02"), humanize.Comma(int64(r.Verified)))

	for _, s := range r.Tiers {
		fmt.Fprintf(&b, "  %-6s total=%s", s.Tier, humanize.Comma(int64(s.Total)))
		if s.Tier.AtRisk() {
			fmt.Fprintf(&b, " hit_rate=%.1f%% tp=%d recovered=%d fp=%d",
				s.HitRate()*100, s.TruePositives, s.Recovered, s.FalsePositives)
		} else {
			fmt.Fprintf(&b, " tn=%d fn=%d", s.TrueNegatives, s.FalseNegatives)
		}
		fmt.Fprintf(&b, " improved=%d worsened=%d", s.Improved, s.Worsened)
		b.WriteByte('\n')
	}
	return b.String()
}
