package services

import (
	"testing"

	"trustcart/models"
)

func priced(prices ...float64) []*models.Listing {
	out := make([]*models.Listing, len(prices))
	for i, p := range prices {
		out[i] = &models.Listing{Title: "item", Price: p}
	}
	return out
}

func TestPriceStatistics(t *testing.T) {
	got := PriceStatistics(priced(10, 10, 11, 12, 10000, 0))
	want := models.PriceStats{Count: 4, Min: 10, Max: 12, Mean: 10.75, Median: 10.5, StdDev: 0.96, Range: 2}
	if got != want {
		t.Errorf("PriceStatistics = %+v; want %+v", got, want)
	}
}

func TestPriceStatisticsEdgeCases(t *testing.T) {
	if s := PriceStatistics(nil); !s.Empty() {
		t.Errorf("no listings: got %+v, want empty", s)
	}
	if s := PriceStatistics(priced(0, -1)); !s.Empty() {
		t.Errorf("no positive prices: got %+v, want empty", s)
	}
	s := PriceStatistics(priced(42))
	if s.Count != 1 || s.StdDev != 0 || s.Median != 42 || s.Range != 0 {
		t.Errorf("single price: got %+v", s)
	}
}

func TestSmartRecommendations(t *testing.T) {
	listings := []*models.Listing{
		{Title: "A", Price: 50, RiskLevel: models.RiskLow, Link: "a"},
		{Title: "B", Price: 30, RiskLevel: models.RiskMedium},
		{Title: "C", Price: 40, RiskLevel: models.RiskLow, Link: "c"},
		{Title: "D", Price: 40, RiskLevel: models.RiskLow, Link: "d"},
		{Title: "E", Price: 10, RiskLevel: models.RiskHigh},
		{Title: "F", Price: 60, RiskLevel: models.RiskMedium},
	}
	rec := SmartRecommendations(listings)
	if rec.BestDeal == nil || rec.BestDeal.Title != "C" || rec.BestDeal.Reason != bestDealReason {
		t.Errorf("BestDeal: got %+v, want C", rec.BestDeal)
	}
	if rec.CautionCount != 2 {
		t.Errorf("CautionCount: got %d, want 2", rec.CautionCount)
	}

	if rec := SmartRecommendations(listings[4:5]); rec.BestDeal != nil || rec.CautionCount != 0 {
		t.Errorf("no LOW/MEDIUM listings: got %+v", rec)
	}
}
