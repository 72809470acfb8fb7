package services

import (
	"math"
	"sort"

	"trustcart/models"
)

// PriceBaseline selects how a price is compared with its cohort.
type PriceBaseline string

const (
	// BaselinePercentile ranks the price inside the outlier-filtered cohort.
	BaselinePercentile PriceBaseline = "percentile"
	// BaselineMedian compares the price with the filtered median as a ratio.
	BaselineMedian PriceBaseline = "median"
	// BaselineMean compares the price with the filtered mean as a ratio.
	BaselineMean PriceBaseline = "mean"
)

const (
	minCohortForTier = 3
	outlierMultiple  = 10.0
)

// ParseBaseline maps a config value onto a baseline, defaulting to percentile.
func ParseBaseline(s string) PriceBaseline {
	switch PriceBaseline(s) {
	case BaselineMedian, BaselineMean:
		return PriceBaseline(s)
	}
	return BaselinePercentile
}

// PriceTierClassifier buckets a price against the prices of its cohort.
type PriceTierClassifier struct {
	baseline PriceBaseline
}

// NewPriceTierClassifier creates a classifier using the given baseline.
func NewPriceTierClassifier(baseline PriceBaseline) *PriceTierClassifier {
	return &PriceTierClassifier{baseline: ParseBaseline(string(baseline))}
}

// Classify returns the tier of price within cohort. The cohort slice is not
// modified. Fewer than three positive cohort prices yields TierUnknown.
func (c *PriceTierClassifier) Classify(price float64, cohort []float64) models.PriceTierResult {
	prices := positive(cohort)
	if len(prices) < minCohortForTier {
		return models.PriceTierResult{Tier: models.TierUnknown, Percentile: 50}
	}

	rawMedian := median(prices)
	if price > outlierMultiple*rawMedian {
		return models.PriceTierResult{
			Tier:            models.TierOutlierHigh,
			Percentile:      100,
			IsOutlierHigh:   true,
			ReferenceMedian: rawMedian,
		}
	}

	filtered := FilterOutliers(prices)
	ref := median(filtered)

	rank := 0
	for _, p := range filtered {
		if p <= price {
			rank++
		}
	}
	percentile := float64(rank) / float64(len(filtered)) * 100

	var tier models.PriceTier
	switch c.baseline {
	case BaselineMedian:
		tier = tierFromRatio(price / ref)
	case BaselineMean:
		tier = tierFromRatio(price / mean(filtered))
	default:
		tier = tierFromPercentile(percentile)
	}

	return models.PriceTierResult{
		Tier:            tier,
		Percentile:      percentile,
		ReferenceMedian: ref,
	}
}

func tierFromPercentile(p float64) models.PriceTier {
	switch {
	case p <= 10:
		return models.TierExtremelyCheap
	case p <= 25:
		return models.TierBudget
	case p <= 75:
		return models.TierMid
	case p <= 90:
		return models.TierPremium
	}
	return models.TierLuxury
}

func tierFromRatio(r float64) models.PriceTier {
	switch {
	case math.IsNaN(r) || math.IsInf(r, 0):
		return models.TierUnknown
	case r <= 0.5:
		return models.TierExtremelyCheap
	case r <= 0.7:
		return models.TierBudget
	case r <= 1.5:
		return models.TierMid
	case r <= 3:
		return models.TierPremium
	}
	return models.TierLuxury
}

// FilterOutliers drops prices above ten times the median of the positive
// prices. When fewer than three prices would survive, the positive prices are
// returned unfiltered.
func FilterOutliers(prices []float64) []float64 {
	pos := positive(prices)
	if len(pos) == 0 {
		return pos
	}
	limit := outlierMultiple * median(pos)
	kept := make([]float64, 0, len(pos))
	for _, p := range pos {
		if p <= limit {
			kept = append(kept, p)
		}
	}
	if len(kept) < minCohortForTier {
		return pos
	}
	return kept
}

func positive(prices []float64) []float64 {
	out := make([]float64, 0, len(prices))
	for _, p := range prices {
		if p > 0 {
			out = append(out, p)
		}
	}
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
