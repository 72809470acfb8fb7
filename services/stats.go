package services

import (
	"math"

	"github.com/shopspring/decimal"

	"trustcart/models"
)

const bestDealReason = "Lowest price among low-risk products"

// PriceStatistics summarises the positive prices of listings after dropping
// prices above ten times their median. Std dev is the sample deviation and is
// zero for a single price. No priced listings yields empty statistics.
func PriceStatistics(listings []*models.Listing) models.PriceStats {
	prices := make([]float64, 0, len(listings))
	for _, l := range listings {
		prices = append(prices, l.Price)
	}
	prices = FilterOutliers(prices)
	if len(prices) == 0 {
		return models.PriceStats{}
	}

	lo, hi := prices[0], prices[0]
	for _, p := range prices[1:] {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	avg := mean(prices)

	var stdDev float64
	if len(prices) > 1 {
		var ss float64
		for _, p := range prices {
			ss += (p - avg) * (p - avg)
		}
		stdDev = math.Sqrt(ss / float64(len(prices)-1))
	}

	return models.PriceStats{
		Count:  len(prices),
		Min:    round2(lo),
		Max:    round2(hi),
		Mean:   round2(avg),
		Median: round2(median(prices)),
		StdDev: round2(stdDev),
		Range:  round2(hi - lo),
	}
}

// SmartRecommendations picks the cheapest LOW-risk listing as the best deal
// (first one wins on equal prices) and counts MEDIUM-risk listings.
func SmartRecommendations(listings []*models.Listing) models.Recommendations {
	var rec models.Recommendations
	var best *models.Listing
	for _, l := range listings {
		switch l.RiskLevel {
		case models.RiskLow:
			if best == nil || l.Price < best.Price {
				best = l
			}
		case models.RiskMedium:
			rec.CautionCount++
		}
	}
	if best != nil {
		rec.BestDeal = &models.BestDeal{
			Title:  best.Title,
			Price:  best.Price,
			Link:   best.Link,
			Reason: bestDealReason,
		}
	}
	return rec
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}
