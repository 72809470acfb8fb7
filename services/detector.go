package services

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"trustcart/models"
	"trustcart/telemetry"
	"trustcart/utils"
)

const levelInvalid = "invalid"

// Detector runs the full analysis of one batch: validity gate, cohort
// pricing, risk scoring, banding and explanation budgeting.
type Detector struct {
	gate     *ValidityGate
	scorer   *RiskScorer
	bands    RiskBands
	budgeter *Budgeter
	metrics  *telemetry.Metrics
	logger   *utils.Logger
}

// NewDetector wires a Detector. A nil budgeter gives every valid listing a
// default explanation.
func NewDetector(gate *ValidityGate, scorer *RiskScorer, bands RiskBands, budgeter *Budgeter, metrics *telemetry.Metrics, logger *utils.Logger) *Detector {
	if budgeter == nil {
		budgeter = NewBudgeter(nil, BudgetOptions{Logger: logger})
	}
	if logger == nil {
		logger = utils.Discard()
	}
	return &Detector{
		gate:     gate,
		scorer:   scorer,
		bands:    bands,
		budgeter: budgeter,
		metrics:  metrics,
		logger:   logger,
	}
}

// AnalyzeBatch annotates every listing in place and returns the same slice.
// Invalid listings carry only their verdict. The cohort for pricing is the
// set of valid listings of this batch.
func (d *Detector) AnalyzeBatch(ctx context.Context, listings []*models.Listing, query string) []*models.Listing {
	ctx, span := telemetry.Tracer().Start(ctx, "detector.AnalyzeBatch",
		trace.WithAttributes(
			attribute.String("query", query),
			attribute.Int("listings", len(listings)),
		))
	defer span.End()

	valid := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		d.gate.Annotate(l, query)
		resetRisk(l)
		if l.IsValid {
			valid = append(valid, l)
		} else {
			d.metrics.Listing(ctx, levelInvalid)
		}
	}

	cohort := make([]float64, len(valid))
	for i, l := range valid {
		cohort[i] = l.Price
	}

	var summary models.RiskSummary
	for _, l := range valid {
		a := d.scorer.Assess(l, cohort)
		l.RiskScore = a.Score
		l.RiskFactors = a.Factors
		l.PriceTier = a.Tier.Tier
		l.PricePercentile = a.Tier.Percentile
		l.RiskLevel = d.bands.Level(a.Score)
		countLevel(&summary, l.RiskLevel)
		d.metrics.Listing(ctx, string(l.RiskLevel))
	}
	d.logger.Info("[detector] %d/%d valid, risk HIGH=%d MEDIUM=%d LOW=%d",
		len(valid), len(listings), summary.High, summary.Medium, summary.Low)
	span.SetAttributes(attribute.Int("valid", len(valid)))

	d.budgeter.Enrich(ctx, valid, PriceStatistics(valid))
	return listings
}

// PriceStatistics summarises the prices of listings.
func (d *Detector) PriceStatistics(listings []*models.Listing) models.PriceStats {
	return PriceStatistics(listings)
}

// SmartRecommendations derives buying hints from analyzed listings.
func (d *Detector) SmartRecommendations(listings []*models.Listing) models.Recommendations {
	return SmartRecommendations(listings)
}

// Summarise counts valid listings per risk band.
func Summarise(listings []*models.Listing) models.RiskSummary {
	var s models.RiskSummary
	for _, l := range listings {
		if l.IsValid {
			countLevel(&s, l.RiskLevel)
		}
	}
	return s
}

func countLevel(s *models.RiskSummary, level models.RiskLevel) {
	switch level {
	case models.RiskHigh:
		s.High++
	case models.RiskMedium:
		s.Medium++
	case models.RiskLow:
		s.Low++
	}
}

func resetRisk(l *models.Listing) {
	l.RiskScore = 0
	l.RiskFactors = []string{}
	l.RiskLevel = ""
	l.PriceTier = ""
	l.PricePercentile = 0
	l.FraudAnalysis = nil
}
