package explainer

import "trustcart/models"

// EscalationPolicy decides whether a fast-model result should be re-checked
// by the strong model.
type EscalationPolicy interface {
	ShouldEscalate(level models.RiskLevel, first *models.ExplanationResult) bool
}

// UncertainHigh escalates HIGH-risk listings whose scam probability falls in
// the inclusive [Low, High] band.
type UncertainHigh struct {
	Low  float64
	High float64
}

func (p UncertainHigh) ShouldEscalate(level models.RiskLevel, first *models.ExplanationResult) bool {
	if level != models.RiskHigh || first == nil {
		return false
	}
	return first.ScamProbability >= p.Low && first.ScamProbability <= p.High
}

// AllHigh escalates every HIGH-risk listing.
type AllHigh struct{}

func (AllHigh) ShouldEscalate(level models.RiskLevel, first *models.ExplanationResult) bool {
	return level == models.RiskHigh && first != nil
}

// Never disables escalation.
type Never struct{}

func (Never) ShouldEscalate(models.RiskLevel, *models.ExplanationResult) bool { return false }

// PolicyByName resolves a configured policy name. Unknown names fall back to
// UncertainHigh with the given band.
func PolicyByName(name string, low, high float64) EscalationPolicy {
	switch name {
	case "all_high":
		return AllHigh{}
	case "never", "none":
		return Never{}
	}
	return UncertainHigh{Low: low, High: high}
}
