// Package scoring holds the pure priority arithmetic: urgency mapping, raw
// and weighted scores, and the effective-value resolution that every scoring
// and display path must share.
package scoring

import (
	"fmt"

	"github.com/OSPRERA-Gerencia/SGPD/pkg/db"
)

// UrgencyScore maps an urgency level to its numeric score. An unrecognized
// value is a programming error (levels are validated at parse time) and
// fails with db.ErrInvalidEnum.
func UrgencyScore(level db.UrgencyLevel) (int, error) {
	switch level {
	case db.UrgencyHigh:
		return 3, nil
	case db.UrgencyMedium:
		return 2, nil
	case db.UrgencyLow:
		return 1, nil
	}
	return 0, fmt.Errorf("%w: urgency level %q", db.ErrInvalidEnum, level)
}

// RawScore is the unweighted sum of the three criterion scores.
func RawScore(impact, frequency, urgencyScore int) int {
	return impact + frequency + urgencyScore
}

// WeightedScore is the linear combination of the criterion scores under the
// given weights. It is the backlog's primary ranking key.
func WeightedScore(impact, frequency int, urgency db.UrgencyLevel, w db.PriorityWeights) (float64, error) {
	urgencyScore, err := UrgencyScore(urgency)
	if err != nil {
		return 0, err
	}
	return float64(impact)*w.ImpactWeight +
		float64(frequency)*w.FrequencyWeight +
		float64(urgencyScore)*w.UrgencyWeight, nil
}

// EffectiveInputs resolves the criterion inputs for a project: a considered
// (team-reviewed) value supersedes the submitted one, independently per field.
func EffectiveInputs(p *db.Project) (impact, frequency int, urgency db.UrgencyLevel) {
	impact = p.ImpactScore
	if p.ImpactScoreConsidered != nil {
		impact = *p.ImpactScoreConsidered
	}
	frequency = p.FrequencyScore
	if p.FrequencyScoreConsidered != nil {
		frequency = *p.FrequencyScoreConsidered
	}
	urgency = p.UrgencyLevel
	if p.UrgencyLevelConsidered != nil {
		urgency = *p.UrgencyLevelConsidered
	}
	return impact, frequency, urgency
}

// EffectiveWeights resolves the weights for a project: a custom weight
// supersedes the global one for that criterion only.
func EffectiveWeights(p *db.Project, global db.PriorityWeights) db.PriorityWeights {
	w := global
	if p.ImpactWeightCustom != nil {
		w.ImpactWeight = *p.ImpactWeightCustom
	}
	if p.FrequencyWeightCustom != nil {
		w.FrequencyWeight = *p.FrequencyWeightCustom
	}
	if p.UrgencyWeightCustom != nil {
		w.UrgencyWeight = *p.UrgencyWeightCustom
	}
	return w
}

// ProjectWeightedScore computes a project's current weighted score from its
// effective inputs and effective weights. This is the single source of truth
// for "current" score: creation, review, recalculation and display all go
// through here.
func ProjectWeightedScore(p *db.Project, global db.PriorityWeights) (float64, error) {
	impact, frequency, urgency := EffectiveInputs(p)
	return WeightedScore(impact, frequency, urgency, EffectiveWeights(p, global))
}

// ProjectRawScore computes a project's raw score from its effective inputs.
func ProjectRawScore(p *db.Project) (int, error) {
	impact, frequency, urgency := EffectiveInputs(p)
	urgencyScore, err := UrgencyScore(urgency)
	if err != nil {
		return 0, err
	}
	return RawScore(impact, frequency, urgencyScore), nil
}
