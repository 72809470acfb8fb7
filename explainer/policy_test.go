package explainer

import (
	"testing"

	"trustcart/models"
)

func TestUncertainHighBandIsInclusive(t *testing.T) {
	p := UncertainHigh{Low: 0.4, High: 0.6}
	tests := []struct {
		level models.RiskLevel
		prob  float64
		want  bool
	}{
		{models.RiskHigh, 0.4, true},
		{models.RiskHigh, 0.5, true},
		{models.RiskHigh, 0.6, true},
		{models.RiskHigh, 0.61, false},
		{models.RiskHigh, 0.39, false},
		{models.RiskMedium, 0.5, false},
	}
	for _, tt := range tests {
		got := p.ShouldEscalate(tt.level, &models.ExplanationResult{ScamProbability: tt.prob})
		if got != tt.want {
			t.Errorf("ShouldEscalate(%s, %v) = %v; want %v", tt.level, tt.prob, got, tt.want)
		}
	}
	if p.ShouldEscalate(models.RiskHigh, nil) {
		t.Error("nil first result must not escalate")
	}
}

func TestPolicyByName(t *testing.T) {
	if _, ok := PolicyByName("all_high", 0, 0).(AllHigh); !ok {
		t.Error("all_high should resolve to AllHigh")
	}
	if _, ok := PolicyByName("never", 0, 0).(Never); !ok {
		t.Error("never should resolve to Never")
	}
	p, ok := PolicyByName("bogus", 0.3, 0.7).(UncertainHigh)
	if !ok || p.Low != 0.3 || p.High != 0.7 {
		t.Errorf("unknown name should fall back to UncertainHigh{0.3,0.7}, got %#v", p)
	}
	if !(AllHigh{}).ShouldEscalate(models.RiskHigh, &models.ExplanationResult{ScamProbability: 0.99}) {
		t.Error("AllHigh should escalate any HIGH result")
	}
}
