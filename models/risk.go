package models

// RiskLevel is the discrete band derived from a risk score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// PriceTier is a percentile-derived price bucket.
type PriceTier string

const (
	TierExtremelyCheap PriceTier = "extremely_cheap"
	TierBudget         PriceTier = "budget"
	TierMid            PriceTier = "mid"
	TierPremium        PriceTier = "premium"
	TierLuxury         PriceTier = "luxury"
	TierOutlierHigh    PriceTier = "outlier_high"
	TierUnknown        PriceTier = "unknown"
)

// PriceTierResult is the classification of one price against its cohort.
type PriceTierResult struct {
	Tier            PriceTier `json:"tier"`
	Percentile      float64   `json:"percentile"`
	IsOutlierHigh   bool      `json:"is_outlier_high"`
	ReferenceMedian float64   `json:"reference_median"`
}

// Recommendation is the buyer-facing verdict of an explanation.
type Recommendation string

const (
	RecommendAvoid   Recommendation = "AVOID"
	RecommendCaution Recommendation = "CAUTION"
	RecommendSafe    Recommendation = "SAFE"
)

// Origin records whether an explanation was generated or synthesised.
type Origin string

const (
	OriginGenerated Origin = "generated"
	OriginDefault   Origin = "default"
)

// ExplanationResult is the structured fraud explanation attached to a listing.
type ExplanationResult struct {
	ScamProbability float64        `json:"scam_probability"`
	RedFlags        []string       `json:"red_flags"`
	Reasoning       string         `json:"reasoning"`
	Recommendation  Recommendation `json:"recommendation"`
	Origin          Origin         `json:"origin"`
	Model           string         `json:"model,omitempty"`
}

// PriceStats summarises the outlier-filtered prices of a cohort.
// A zero Count means no statistics could be computed.
type PriceStats struct {
	Count  int     `json:"count"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"average"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
	Range  float64 `json:"range"`
}

// Empty reports whether the statistics carry no data.
func (s PriceStats) Empty() bool { return s.Count == 0 }

// BestDeal is the cheapest low-risk listing of a batch.
type BestDeal struct {
	Title  string  `json:"title"`
	Price  float64 `json:"price"`
	Link   string  `json:"link"`
	Reason string  `json:"reason"`
}

// Recommendations are the batch-level buying hints.
type Recommendations struct {
	BestDeal     *BestDeal `json:"best_deal,omitempty"`
	CautionCount int       `json:"proceed_with_caution,omitempty"`
}
