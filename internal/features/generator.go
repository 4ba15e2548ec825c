package features

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/joaocordova/MLOps-Churn-Framework/internal/adapters/config"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/member"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/sample"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/domain/spell"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/events"
	"github.com/joaocordova/MLOps-Churn-Framework/internal/metrics"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/errors"
	"github.com/joaocordova/MLOps-Churn-Framework/pkg/logger"
)

// Generator produces the full training-sample set from scratch. No
// incremental append: each rebuild replaces the store wholesale, so a sample
// set is always internally consistent with one cutoff date.
//
// Class imbalance is deliberately preserved: the generator never resamples,
// duplicates, or synthesizes minority rows. Imbalance is the classifier's
// problem, handled by loss weighting.
type Generator struct {
	computer  *Computer
	spells    spell.Repository
	members   member.Repository
	visits    member.VisitRepository
	samples   sample.Repository
	publisher *events.Publisher
	cfg       config.PipelineConfig
	log       *logger.Logger
}

// NewGenerator creates a new sample generator
func NewGenerator(
	computer *Computer,
	spells spell.Repository,
	members member.Repository,
	visits member.VisitRepository,
	samples sample.Repository,
	publisher *events.Publisher,
	cfg config.PipelineConfig,
) *Generator {
	return &Generator{
		computer:  computer,
		spells:    spells,
		members:   members,
		visits:    visits,
		samples:   samples,
		publisher: publisher,
		cfg:       cfg,
		log:       logger.Get().With("component", "sample_generator"),
	}
}

// RebuildStats summarizes one rebuild run.
type RebuildStats struct {
	Positives          int
	Negatives          int
	ExcludedColdStart  int
	ExcludedCutoff     int
	ExcludedMigration  int
	ExcludedNoVisits   int
	ExcludedShortSpell int
	FeatureFailures    int
}

// Excluded sums every exclusion bucket of the run.
func (s *RebuildStats) Excluded() int {
	return s.ExcludedColdStart + s.ExcludedCutoff + s.ExcludedMigration +
		s.ExcludedNoVisits + s.ExcludedShortSpell
}

// Rebuild regenerates all training samples for spells classified within
// [earliest, cutoff]. Idempotent: identical inputs produce an equivalent
// sample set.
func (g *Generator) Rebuild(ctx context.Context, earliest, cutoff time.Time) (*RebuildStats, error) {
	classified, err := g.spells.ListClassified(ctx, earliest, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "list classified spells")
	}

	g.log.Infof("Rebuilding training samples: %d spells in scope [%s, %s]",
		len(classified), earliest.Format("2006-01-02"), cutoff.Format("2006-01-02"))

	stats := &RebuildStats{}
	var out []*sample.TrainingSample
	now := time.Now().UTC()
	started := now

	for i := range classified {
		cs := &classified[i]

		// Migration is explicitly not churn; migrated spells contribute no
		// samples of either class.
		if cs.Outcome == spell.OutcomeMigration {
			stats.ExcludedMigration++
			continue
		}

		m, err := g.members.GetByID(ctx, cs.MemberID)
		if err != nil {
			return nil, errors.Wrapf(err, "load member %d", cs.MemberID)
		}
		if m == nil {
			stats.FeatureFailures++
			g.log.Warnf("Spell %d: member %d has no registration record, excluded", cs.ID, cs.MemberID)
			continue
		}

		everVisited, err := g.everVisited(ctx, cs.MemberID, cutoff)
		if err != nil {
			return nil, err
		}
		if !everVisited {
			stats.ExcludedNoVisits++
			continue
		}

		if cs.Outcome == spell.OutcomeChurn && cs.EndDate != nil {
			g.emitPositives(ctx, cs, m, cutoff, now, &out, stats)
		}

		g.emitNegatives(ctx, cs, m, earliest, cutoff, now, &out, stats)
	}

	// Stable order keeps rebuilds comparable run to run.
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ReferenceDate.Equal(b.ReferenceDate) {
			return a.ReferenceDate.Before(b.ReferenceDate)
		}
		if a.MemberID != b.MemberID {
			return a.MemberID < b.MemberID
		}
		return a.Horizon < b.Horizon
	})

	if err := g.samples.ReplaceAll(ctx, out); err != nil {
		return nil, errors.Wrap(err, "replace training samples")
	}

	metrics.TrainingSamples.WithLabelValues("churn").Set(float64(stats.Positives))
	metrics.TrainingSamples.WithLabelValues("active").Set(float64(stats.Negatives))

	event := &events.FeatureRebuildCompletedEvent{
		BaseEvent:    events.NewBaseEvent("features.rebuild_completed"),
		Cutoff:       cutoff.Format("2006-01-02"),
		Positives:    stats.Positives,
		Negatives:    stats.Negatives,
		Excluded:     stats.Excluded(),
		DurationSecs: time.Since(started).Seconds(),
	}
	if err := g.publisher.PublishFeatureRebuildCompleted(ctx, event); err != nil {
		g.log.Errorf("Failed to publish rebuild summary: %v", err)
	}

	g.log.Infof("Sample rebuild complete: %d positives, %d negatives (cold_start=%d cutoff=%d migration=%d no_visits=%d short_spell=%d feature_failures=%d)",
		stats.Positives, stats.Negatives,
		stats.ExcludedColdStart, stats.ExcludedCutoff, stats.ExcludedMigration,
		stats.ExcludedNoVisits, stats.ExcludedShortSpell, stats.FeatureFailures)

	return stats, nil
}

// emitPositives emits up to three churn-labeled samples at reference dates
// {spell_end, spell_end-15d, spell_end-30d}. A horizon that would fall
// before the spell's own start is rejected: a member cannot have a
// 30-days-before-end sample when the spell lasted fewer than 30 days.
func (g *Generator) emitPositives(
	ctx context.Context,
	cs *spell.ClassifiedSpell,
	m *member.Member,
	cutoff time.Time,
	now time.Time,
	out *[]*sample.TrainingSample,
	stats *RebuildStats,
) {
	horizons := []struct {
		tag    sample.Horizon
		offset int
	}{
		{sample.HorizonAtSpellEnd, 0},
		{sample.Horizon15DaysBefore, g.cfg.MidHorizonDays},
		{sample.Horizon30DaysBefore, g.cfg.ChurnHorizonDays},
	}

	for _, h := range horizons {
		ref := cs.EndDate.AddDate(0, 0, -h.offset)
		if ref.Before(cs.StartDate) {
			stats.ExcludedShortSpell++
			continue
		}
		if !g.admissible(m, ref, cutoff, stats) {
			continue
		}

		s := g.buildSample(ctx, cs.MemberID, ref, h.tag, sample.LabelChurn, true, now, stats)
		if s != nil {
			*out = append(*out, s)
			stats.Positives++
		}
	}
}

// emitNegatives emits one stayed-labeled sample per calendar month start the
// spell covers, but only when the spell verifiably remains active for at
// least the full label horizon after that date, so "stayed" is checked,
// never assumed.
func (g *Generator) emitNegatives(
	ctx context.Context,
	cs *spell.ClassifiedSpell,
	m *member.Member,
	earliest, cutoff time.Time,
	now time.Time,
	out *[]*sample.TrainingSample,
	stats *RebuildStats,
) {
	for ref := firstMonthStartAfter(maxTime(cs.StartDate, earliest)); !ref.After(cutoff); ref = ref.AddDate(0, 1, 0) {
		if !cs.ActiveOn(ref) {
			if cs.EndDate != nil && ref.After(*cs.EndDate) {
				break
			}
			continue
		}

		survivesUntil := ref.AddDate(0, 0, g.cfg.ChurnHorizonDays)
		if cs.EndDate != nil {
			if cs.Outcome == spell.OutcomeChurn {
				// A churn landing exactly on the horizon day is the churn
				// emitter's sample; this date must not also read as stayed.
				if !cs.EndDate.After(survivesUntil) {
					continue
				}
			} else if cs.EndDate.Before(survivesUntil) {
				continue // label not verifiable from spell data
			}
		}
		if !g.admissible(m, ref, cutoff, stats) {
			continue
		}

		s := g.buildSample(ctx, cs.MemberID, ref, sample.HorizonMonthly, sample.LabelActive, false, now, stats)
		if s != nil {
			*out = append(*out, s)
			stats.Negatives++
		}
	}
}

// admissible applies the exclusion rules shared by both classes.
func (g *Generator) admissible(m *member.Member, ref, cutoff time.Time, stats *RebuildStats) bool {
	// Cold start: the first weeks after registration are noise.
	if daysBetween(m.RegisteredAt, ref) < g.cfg.ColdStartDays {
		stats.ExcludedColdStart++
		return false
	}
	// Too close to the cutoff: the forward label cannot be verified yet.
	if daysBetween(ref, cutoff) < g.cfg.ChurnHorizonDays {
		stats.ExcludedCutoff++
		return false
	}
	return true
}

func (g *Generator) buildSample(
	ctx context.Context,
	memberID int64,
	ref time.Time,
	horizon sample.Horizon,
	label sample.LabelType,
	churned bool,
	now time.Time,
	stats *RebuildStats,
) *sample.TrainingSample {
	vec, err := g.computer.Compute(ctx, memberID, ref)
	if err != nil {
		// A single member's failure excludes that sample, never the batch.
		if errors.Is(err, errors.ErrFeatureComputation) {
			stats.FeatureFailures++
			g.log.Warnf("Excluding sample (member=%d ref=%s): %v", memberID, ref.Format("2006-01-02"), err)
			return nil
		}
		g.log.Errorf("Feature computation error (member=%d ref=%s): %v", memberID, ref.Format("2006-01-02"), err)
		stats.FeatureFailures++
		return nil
	}

	return &sample.TrainingSample{
		ID:            uuid.New(),
		MemberID:      memberID,
		ReferenceDate: ref,
		Horizon:       horizon,
		LabelType:     label,
		Churned:       churned,
		Vector:        *vec,
		GeneratedAt:   now,
	}
}

// everVisited checks the zero-visits-ever exclusion against the cutoff.
// This is an eligibility filter, not a feature; bounding it by the cutoff
// rather than each reference date cannot leak labels, it only removes rows.
func (g *Generator) everVisited(ctx context.Context, memberID int64, cutoff time.Time) (bool, error) {
	last, err := g.visits.LastVisitAt(ctx, memberID, cutoff)
	if err != nil {
		return false, errors.Wrapf(err, "visit history for member %d", memberID)
	}
	return last != nil, nil
}

// firstMonthStartAfter returns t itself when t is a month start, otherwise
// the first day of the following month.
func firstMonthStartAfter(t time.Time) time.Time {
	monthStart := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	if monthStart.Equal(t) {
		return t
	}
	return monthStart.AddDate(0, 1, 0)
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}
	return b
}
