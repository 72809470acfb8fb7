package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"trustcart/explainer"
	"trustcart/models"
)

// fakeExplainer returns a scripted probability per title and records calls.
type fakeExplainer struct {
	mu      sync.Mutex
	enabled bool
	probs   map[string]float64
	err     error
	delay   time.Duration
	calls   []string
}

func (f *fakeExplainer) Enabled() bool { return f.enabled }

func (f *fakeExplainer) Model(strong bool) string {
	if strong {
		return "strong"
	}
	return "fast"
}

func (f *fakeExplainer) ExplainRisk(_ context.Context, req explainer.Request) (*models.ExplanationResult, error) {
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	model := f.Model(req.UseStrongModel)
	f.calls = append(f.calls, req.Listing.Title+"@"+model)
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.probs[req.Listing.Title]
	if !ok {
		p = 0.9
	}
	if req.UseStrongModel {
		p = 0.95
	}
	return &models.ExplanationResult{
		ScamProbability: p,
		RedFlags:        []string{"scripted"},
		Reasoning:       "scripted",
		Recommendation:  models.RecommendAvoid,
		Origin:          models.OriginGenerated,
		Model:           model,
	}, nil
}

func (f *fakeExplainer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func riskBatch() []*models.Listing {
	mk := func(title string, level models.RiskLevel, score float64) *models.Listing {
		return &models.Listing{
			Title: title, Price: 100, IsValid: true, RiskLevel: level, RiskScore: score,
			RiskFactors: []string{"factor of " + title},
		}
	}
	return []*models.Listing{
		mk("H1", models.RiskHigh, 0.70),
		mk("M1", models.RiskMedium, 0.30),
		mk("H2", models.RiskHigh, 0.90),
		mk("L1", models.RiskLow, 0.10),
		mk("M2", models.RiskMedium, 0.40),
		mk("H3", models.RiskHigh, 0.70),
		mk("M3", models.RiskMedium, 0.50),
		mk("H4", models.RiskHigh, 0.60),
		mk("M4", models.RiskMedium, 0.26),
		mk("M5", models.RiskMedium, 0.50),
	}
}

func byTitle(listings []*models.Listing) map[string]*models.Listing {
	out := make(map[string]*models.Listing, len(listings))
	for _, l := range listings {
		out[l.Title] = l
	}
	return out
}

func TestBudgeterSelect(t *testing.T) {
	b := NewBudgeter(&fakeExplainer{enabled: true}, BudgetOptions{MaxHigh: 3, MaxMedium: 2})
	var got []string
	for _, l := range b.Select(riskBatch()) {
		got = append(got, l.Title)
	}
	want := []string{"H2", "H1", "H3", "M3", "M5"}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("Select = %v; want %v", got, want)
	}
}

func TestBudgeterEnrichBudget(t *testing.T) {
	fake := &fakeExplainer{enabled: true}
	b := NewBudgeter(fake, BudgetOptions{MaxHigh: 3, MaxMedium: 2, Policy: explainer.Never{}})
	batch := b.Enrich(context.Background(), riskBatch(), models.PriceStats{})

	if n := fake.callCount(); n != 5 {
		t.Fatalf("calls: got %d, want 5 (%v)", n, fake.calls)
	}
	got := byTitle(batch)
	for _, title := range []string{"H1", "H2", "H3", "M3", "M5"} {
		if o := got[title].FraudAnalysis.Origin; o != models.OriginGenerated {
			t.Errorf("%s: origin %s; want generated", title, o)
		}
	}
	for _, title := range []string{"H4", "M1", "M2", "M4", "L1"} {
		if o := got[title].FraudAnalysis.Origin; o != models.OriginDefault {
			t.Errorf("%s: origin %s; want default", title, o)
		}
	}
}

func TestBudgeterEveryValidListingGetsOneAnalysis(t *testing.T) {
	for _, enabled := range []bool{true, false} {
		b := NewBudgeter(&fakeExplainer{enabled: enabled}, BudgetOptions{})
		for _, l := range b.Enrich(context.Background(), riskBatch(), models.PriceStats{}) {
			if l.FraudAnalysis == nil {
				t.Errorf("enabled=%v: %s has no analysis", enabled, l.Title)
			}
		}
	}
}

func TestBudgeterDisabledMakesNoCalls(t *testing.T) {
	fake := &fakeExplainer{enabled: false}
	batch := NewBudgeter(fake, BudgetOptions{}).Enrich(context.Background(), riskBatch(), models.PriceStats{})
	if n := fake.callCount(); n != 0 {
		t.Errorf("calls: got %d, want 0", n)
	}
	h := byTitle(batch)["H2"].FraudAnalysis
	if h.Recommendation != models.RecommendAvoid || h.ScamProbability != 0.90 || h.RedFlags[0] != "factor of H2" {
		t.Errorf("default HIGH analysis: got %+v", h)
	}
}

func TestBudgeterEscalation(t *testing.T) {
	fake := &fakeExplainer{enabled: true, probs: map[string]float64{"H2": 0.5, "H1": 0.6, "H3": 0.61, "M3": 0.5}}
	b := NewBudgeter(fake, BudgetOptions{Policy: explainer.UncertainHigh{Low: 0.4, High: 0.6}})
	got := byTitle(b.Enrich(context.Background(), riskBatch(), models.PriceStats{}))

	for title, wantModel := range map[string]string{"H2": "strong", "H1": "strong", "H3": "fast", "M3": "fast"} {
		if m := got[title].FraudAnalysis.Model; m != wantModel {
			t.Errorf("%s: model %s; want %s", title, m, wantModel)
		}
	}
	if n := fake.callCount(); n != 7 {
		t.Errorf("calls: got %d, want 7 (%v)", n, fake.calls)
	}
}

func TestBudgeterUnavailableStopsCalls(t *testing.T) {
	fake := &fakeExplainer{enabled: true, err: fmt.Errorf("dial: %w", explainer.ErrUnavailable)}
	batch := NewBudgeter(fake, BudgetOptions{}).Enrich(context.Background(), riskBatch(), models.PriceStats{})

	if n := fake.callCount(); n != 1 {
		t.Errorf("calls: got %d, want 1", n)
	}
	for _, l := range batch {
		if l.FraudAnalysis == nil || l.FraudAnalysis.Origin != models.OriginDefault {
			t.Errorf("%s: want default analysis, got %+v", l.Title, l.FraudAnalysis)
		}
	}
}

func TestBudgeterOtherErrorsKeepGoing(t *testing.T) {
	fake := &fakeExplainer{enabled: true, err: errors.New("boom")}
	NewBudgeter(fake, BudgetOptions{}).Enrich(context.Background(), riskBatch(), models.PriceStats{})
	if n := fake.callCount(); n != 5 {
		t.Errorf("calls: got %d, want 5", n)
	}
}

func TestBudgeterCacheAvoidsDuplicateCalls(t *testing.T) {
	fake := &fakeExplainer{enabled: true}
	cache := explainer.NewMemoryCache(100, time.Hour)
	b := NewBudgeter(fake, BudgetOptions{Cache: cache, Policy: explainer.Never{}})

	b.Enrich(context.Background(), riskBatch(), models.PriceStats{})
	b.Enrich(context.Background(), riskBatch(), models.PriceStats{})
	if n := fake.callCount(); n != 5 {
		t.Errorf("calls: got %d, want 5 across two identical runs", n)
	}

	dup := []*models.Listing{
		{Title: "Same", Price: 10, IsValid: true, RiskLevel: models.RiskHigh, RiskScore: 0.9},
		{Title: "Same", Price: 10, IsValid: true, RiskLevel: models.RiskHigh, RiskScore: 0.8},
	}
	b.Enrich(context.Background(), dup, models.PriceStats{})
	if n := fake.callCount(); n != 6 {
		t.Errorf("calls: got %d, want 6 after duplicate listings", n)
	}
}

func TestBudgeterConcurrentDuplicatesCallOnce(t *testing.T) {
	fake := &fakeExplainer{enabled: true, delay: 50 * time.Millisecond}
	b := NewBudgeter(fake, BudgetOptions{
		MaxConcurrency: 3,
		Cache:          explainer.NewMemoryCache(100, time.Hour),
		Policy:         explainer.Never{},
	})

	dup := []*models.Listing{
		{Title: "Same phone", Price: 10, IsValid: true, RiskLevel: models.RiskHigh, RiskScore: 0.9},
		{Title: "Same phone", Price: 10, IsValid: true, RiskLevel: models.RiskHigh, RiskScore: 0.8},
		{Title: "Same phone", Price: 10, IsValid: true, RiskLevel: models.RiskHigh, RiskScore: 0.7},
	}
	b.Enrich(context.Background(), dup, models.PriceStats{})

	if n := fake.callCount(); n != 1 {
		t.Errorf("calls: got %d, want 1 for identical concurrent listings", n)
	}
	for i, l := range dup {
		if l.FraudAnalysis == nil || l.FraudAnalysis.Origin != models.OriginGenerated {
			t.Errorf("listing %d: analysis = %+v; want generated", i, l.FraudAnalysis)
		}
	}
	if dup[0].FraudAnalysis == dup[1].FraudAnalysis || dup[1].FraudAnalysis == dup[2].FraudAnalysis {
		t.Error("listings share one analysis value")
	}
}

func TestBudgeterConcurrentMatchesSequential(t *testing.T) {
	fake := &fakeExplainer{enabled: true, probs: map[string]float64{"H2": 0.5}}
	b := NewBudgeter(fake, BudgetOptions{MaxConcurrency: 4})
	got := byTitle(b.Enrich(context.Background(), riskBatch(), models.PriceStats{}))

	if n := fake.callCount(); n != 6 {
		t.Errorf("calls: got %d, want 6", n)
	}
	if got["H2"].FraudAnalysis.Model != "strong" {
		t.Errorf("H2 should be escalated, got %+v", got["H2"].FraudAnalysis)
	}
	if got["H4"].FraudAnalysis.Origin != models.OriginDefault {
		t.Error("H4 is over budget and should get a default")
	}
}

func TestDefaultExplanation(t *testing.T) {
	tests := []struct {
		level     models.RiskLevel
		want      models.Recommendation
		wantFlags int
	}{
		{models.RiskLow, models.RecommendSafe, 0},
		{models.RiskMedium, models.RecommendCaution, 2},
		{models.RiskHigh, models.RecommendAvoid, 2},
	}
	for _, tt := range tests {
		l := &models.Listing{RiskLevel: tt.level, RiskScore: 0.42, RiskFactors: []string{"a", "b"}}
		got := DefaultExplanation(l)
		if got.Recommendation != tt.want || len(got.RedFlags) != tt.wantFlags {
			t.Errorf("DefaultExplanation(%s) = %+v", tt.level, got)
		}
		if got.ScamProbability != 0.42 || got.Origin != models.OriginDefault {
			t.Errorf("DefaultExplanation(%s): probability %v origin %s", tt.level, got.ScamProbability, got.Origin)
		}
	}
}
