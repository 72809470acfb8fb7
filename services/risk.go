package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"trustcart/config"
	"trustcart/models"
)

const minCohortForPriceRisk = 5

// Penalty weights. Each scoring term adds at most one of these.
const (
	penaltyOutlierHigh       = 0.05
	penaltyClearance         = 0.10
	penaltyExtremelyCheap    = 0.50
	penaltyBudget            = 0.30
	penaltyHighValueNoReview = 0.15
	penaltyNoRatingTrusted   = 0.05
	penaltyNoRating          = 0.15
	penaltyLowRating         = 0.20
	penaltyNoReviewsTrusted  = 0.05
	penaltyNoReviews         = 0.15
	penaltyFewReviews        = 0.10
	penaltyLowSellerRating   = 0.15

	lowRatingCutoff = 3.0
	fewReviewsLimit = 5
)

// RiskBands maps a score onto a risk level.
type RiskBands struct {
	High   float64
	Medium float64
}

// BandsFromProfile builds bands from a configured profile.
func BandsFromProfile(p config.RiskProfile) RiskBands {
	return RiskBands{High: p.High, Medium: p.Medium}
}

// Level returns the band for score.
func (b RiskBands) Level(score float64) models.RiskLevel {
	switch {
	case score >= b.High:
		return models.RiskHigh
	case score >= b.Medium:
		return models.RiskMedium
	}
	return models.RiskLow
}

// Assessment is the full output of scoring one listing.
type Assessment struct {
	Score   float64
	Factors []string
	Tier    models.PriceTierResult
}

// RiskScorer combines price tier, rating, reviews and seller trust into a
// bounded score with an ordered list of human-readable factors.
type RiskScorer struct {
	lexicon    *config.LexiconStore
	classifier *PriceTierClassifier
}

// NewRiskScorer creates a scorer.
func NewRiskScorer(lexicon *config.LexiconStore, classifier *PriceTierClassifier) *RiskScorer {
	return &RiskScorer{lexicon: lexicon, classifier: classifier}
}

// Score returns the clamped risk score and its factors for l against the
// prices of its cohort.
func (s *RiskScorer) Score(l *models.Listing, cohortPrices []float64) (float64, []string) {
	a := s.Assess(l, cohortPrices)
	return a.Score, a.Factors
}

// Assess scores l and also returns the price tier it was judged against.
// Factor order follows evaluation order: price, rating, reviews, seller.
func (s *RiskScorer) Assess(l *models.Listing, cohortPrices []float64) Assessment {
	lex := s.lexicon.Current()
	trusted := IsTrusted(lex, l)

	// Summed in decimal so combinations landing on a band threshold hit it exactly.
	score := decimal.Zero
	factors := make([]string, 0, 4)
	add := func(penalty float64, factor string) {
		score = score.Add(decimal.NewFromFloat(penalty))
		if factor != "" {
			factors = append(factors, factor)
		}
	}

	tier := s.classifier.Classify(l.Price, cohortPrices)

	if len(positive(cohortPrices)) >= minCohortForPriceRisk {
		switch tier.Tier {
		case models.TierOutlierHigh:
			add(penaltyOutlierHigh, "Price far above typical range (verify authenticity)")
		case models.TierExtremelyCheap:
			if trusted && isRetailPlatform(lex, l.Platform) {
				add(penaltyClearance, "Low price (possible clearance sale)")
			} else {
				add(penaltyExtremelyCheap, fmt.Sprintf("Extremely cheap: %d%% below typical price",
					percentBelow(l.Price, tier.ReferenceMedian)))
			}
		case models.TierBudget:
			if !trusted {
				add(penaltyBudget, fmt.Sprintf("Price %d%% below typical price",
					percentBelow(l.Price, tier.ReferenceMedian)))
			}
		case models.TierPremium, models.TierLuxury:
			if !trusted && l.ReviewCount == 0 {
				add(penaltyHighValueNoReview, "High-value item with no reviews")
			}
		}
	}

	switch {
	case l.Rating == 0 && trusted:
		add(penaltyNoRatingTrusted, "No rating available")
	case l.Rating == 0:
		add(penaltyNoRating, "No rating available")
	case l.Rating < lowRatingCutoff:
		add(penaltyLowRating, fmt.Sprintf("Low rating: %.1f/5", l.Rating))
	}

	switch {
	case l.ReviewCount == 0 && trusted:
		add(penaltyNoReviewsTrusted, "Very few reviews (0)")
	case l.ReviewCount == 0:
		add(penaltyNoReviews, "Very few reviews (0)")
	case l.ReviewCount < fewReviewsLimit:
		add(penaltyFewReviews, fmt.Sprintf("Few reviews (%d)", l.ReviewCount))
	}

	if l.Seller.Rating > 0 && l.Seller.Rating < lowRatingCutoff {
		add(penaltyLowSellerRating, fmt.Sprintf("Low seller rating (%.1f/5)", l.Seller.Rating))
	}

	return Assessment{Score: clamp01(score.Round(2).InexactFloat64()), Factors: factors, Tier: tier}
}

// IsTrusted reports whether the seller name or source names a major retailer.
func IsTrusted(lex *config.Lexicon, l *models.Listing) bool {
	seller := strings.ToLower(l.Seller.Name)
	source := strings.ToLower(l.Source)
	for _, t := range lex.TrustedSellers {
		if t == "" {
			continue
		}
		if strings.Contains(seller, t) || strings.Contains(source, t) {
			return true
		}
	}
	return false
}

func isRetailPlatform(lex *config.Lexicon, platform string) bool {
	p := strings.ToLower(platform)
	for _, rp := range lex.RetailPlatforms {
		if p == rp {
			return true
		}
	}
	return false
}

func percentBelow(price, ref float64) int {
	if ref <= 0 || price >= ref {
		return 0
	}
	return int((ref - price) / ref * 100)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
