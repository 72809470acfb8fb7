package services

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"trustcart/models"
	"trustcart/utils"
)

const topRiskyCount = 5

// Insights are the console-oriented aggregates of one search report.
type Insights struct {
	TopRisky   []*models.Listing
	ByPlatform map[string]int
	ByTier     map[models.PriceTier]int
	Generated  int
}

type InsightService struct {
	logger *utils.Logger
}

func NewInsightService(logger *utils.Logger) *InsightService {
	return &InsightService{logger: logger}
}

// Generate aggregates the valid listings of r.
func (s *InsightService) Generate(r *models.SearchReport) *Insights {
	in := &Insights{
		ByPlatform: make(map[string]int),
		ByTier:     make(map[models.PriceTier]int),
	}
	if r == nil {
		return in
	}

	var valid []*models.Listing
	for _, l := range r.Products {
		if !l.IsValid {
			continue
		}
		valid = append(valid, l)
		in.ByPlatform[l.Platform]++
		if l.PriceTier != "" {
			in.ByTier[l.PriceTier]++
		}
		if l.FraudAnalysis != nil && l.FraudAnalysis.Origin == models.OriginGenerated {
			in.Generated++
		}
	}

	sort.SliceStable(valid, func(i, j int) bool { return valid[i].RiskScore > valid[j].RiskScore })
	if len(valid) > topRiskyCount {
		valid = valid[:topRiskyCount]
	}
	in.TopRisky = valid
	return in
}

// Print renders r and its insights as a coloured console summary.
func (s *InsightService) Print(w io.Writer, r *models.SearchReport, in *Insights) {
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  TRUSTCART RISK REPORT: %q\033[0m\n", r.Query)
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	// Overview
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Run id             : %s\n", r.RunID)
	fmt.Fprintf(w, "  Platforms          : %s\n", strings.Join(r.PlatformsSearched, ", "))
	fmt.Fprintf(w, "  Listings fetched   : \033[1m%d\033[0m\n", r.TotalResults)
	fmt.Fprintf(w, "  Valid / filtered   : \033[1m%d\033[0m / %d\n", r.ValidProducts, r.FilteredOut)
	fmt.Fprintf(w, "  Risk profile       : %s\n", r.RiskProfile)
	fmt.Fprintf(w, "  AI explanations    : %d\n", in.Generated)
	if r.Message != "" {
		fmt.Fprintf(w, "  %s\n", r.Message)
	}
	if r.CategoryWarning != "" {
		fmt.Fprintf(w, "  \033[33m%s\033[0m\n", r.CategoryWarning)
	}
	fmt.Fprintln(w)

	// Price Stats
	fmt.Fprintf(w, "\033[1;33m  Price Statistics (outliers removed)\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if st := r.PriceStatistics; !st.Empty() {
		fmt.Fprintf(w, "  Median : \033[1;32m$%.2f\033[0m   Mean : $%.2f   Std dev : $%.2f\n", st.Median, st.Mean, st.StdDev)
		fmt.Fprintf(w, "  Range  : $%.2f to $%.2f (%d prices)\n", st.Min, st.Max, st.Count)
	} else {
		fmt.Fprintf(w, "  No price data available\n")
	}
	fmt.Fprintln(w)

	// Risk summary
	fmt.Fprintf(w, "\033[1;33m  Risk Summary\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  \033[1;31mHIGH %d\033[0m   \033[1;33mMEDIUM %d\033[0m   \033[1;32mLOW %d\033[0m\n",
		r.RiskSummary.High, r.RiskSummary.Medium, r.RiskSummary.Low)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Riskiest Listings\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(in.TopRisky) == 0 {
		fmt.Fprintf(w, "  No valid listings\n")
	}
	for i, l := range in.TopRisky {
		fmt.Fprintf(w, "  \033[1m%d.\033[0m %-40s $%9.2f  %-6s %.2f\n",
			i+1, truncate(l.Title, 38), l.Price, l.RiskLevel, l.RiskScore)
		if a := l.FraudAnalysis; a != nil {
			fmt.Fprintf(w, "     %s (%s): %s\n", a.Recommendation, a.Origin, truncate(a.Reasoning, 70))
		}
	}
	fmt.Fprintln(w)

	if d := r.Recommendations.BestDeal; d != nil {
		fmt.Fprintf(w, "\033[1;33m  Best Deal\033[0m\n")
		fmt.Fprintf(w, "  %s\n", thin)
		fmt.Fprintf(w, "  %s  \033[1;32m$%.2f\033[0m\n  %s\n", truncate(d.Title, 50), d.Price, d.Link)
		fmt.Fprintln(w)
	}

	// Listings by platform
	fmt.Fprintf(w, "\033[1;33m  Listings by Platform\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(in.ByPlatform) == 0 {
		fmt.Fprintf(w, "  No platform data\n")
	} else {
		type platformCount struct {
			platform string
			count    int
		}
		var counts []platformCount
		for p, n := range in.ByPlatform {
			counts = append(counts, platformCount{p, n})
		}
		sort.Slice(counts, func(i, j int) bool {
			if counts[i].count != counts[j].count {
				return counts[i].count > counts[j].count
			}
			return counts[i].platform < counts[j].platform
		})
		for _, pc := range counts {
			bar := strings.Repeat("█", pc.count)
			fmt.Fprintf(w, "  %-20s %s (%d)\n", pc.platform, bar, pc.count)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
