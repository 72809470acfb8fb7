package models

import (
	"encoding/json"
	"time"
)

// Condition is the advertised state of the item.
type Condition string

const (
	ConditionNew         Condition = "new"
	ConditionUsed        Condition = "used"
	ConditionRefurbished Condition = "refurbished"
	ConditionUnknown     Condition = "unknown"
)

// Seller identifies who offers a listing.
type Seller struct {
	Name   string  `json:"name"`
	Rating float64 `json:"rating"`
}

// RawListing is the normalised record a source hands to the pipeline.
// Price is still the marketplace's display string ("$1,299.99", "US $45").
type RawListing struct {
	Title       string
	Price       string
	Link        string
	Thumbnail   string
	Source      string
	Platform    string
	Rating      float64
	ReviewCount int
	Seller      Seller
	Condition   Condition
	ProductID   string
	ScrapedAt   time.Time
}

// Specs holds attributes parsed out of a listing title. Zero values mean "not found".
type Specs struct {
	StorageGB    int       `json:"storage_gb,omitempty"`
	RAMGB        int       `json:"ram_gb,omitempty"`
	ScreenInches float64   `json:"screen_size_inches,omitempty"`
	Year         int       `json:"year,omitempty"`
	MileageMiles int       `json:"mileage,omitempty"`
	Weight       float64   `json:"weight,omitempty"`
	WeightUnit   string    `json:"weight_unit,omitempty"`
	Dimensions   string    `json:"dimensions,omitempty"`
	Power        int       `json:"power,omitempty"`
	PowerUnit    string    `json:"power_unit,omitempty"`
	Capacity     int       `json:"capacity,omitempty"`
	CapacityUnit string    `json:"capacity_unit,omitempty"`
	Condition    Condition `json:"condition,omitempty"`
	Brand        string    `json:"brand,omitempty"`
}

// Listing is one marketplace offer plus the annotations the pipeline adds.
// Annotation fields are written once per analysis run.
type Listing struct {
	Title       string    `json:"title"`
	Price       float64   `json:"price"`
	PriceRaw    string    `json:"price_raw,omitempty"`
	Link        string    `json:"link"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
	Source      string    `json:"source"`
	Platform    string    `json:"platform"`
	Rating      float64   `json:"rating"`
	ReviewCount int       `json:"reviews"`
	Seller      Seller    `json:"seller"`
	Condition   Condition `json:"condition"`
	ProductID   string    `json:"product_id,omitempty"`

	IsValid         bool               `json:"is_valid_product"`
	InvalidReason   string             `json:"invalid_reason,omitempty"`
	ValidationNote  string             `json:"validation_note,omitempty"`
	Specs           Specs              `json:"specs"`
	Features        []string           `json:"features"`
	RiskScore       float64            `json:"risk_score"`
	RiskFactors     []string           `json:"risk_factors"`
	RiskLevel       RiskLevel          `json:"risk_level,omitempty"`
	PriceTier       PriceTier          `json:"price_tier,omitempty"`
	PricePercentile float64            `json:"price_percentile"`
	FraudAnalysis   *ExplanationResult `json:"fraud_analysis,omitempty"`
}

// MarshalJSON leaves out the score fields of listings the validity gate
// rejected, since those were never scored.
func (l Listing) MarshalJSON() ([]byte, error) {
	type plain Listing
	out := struct {
		plain
		RiskScore       *float64 `json:"risk_score,omitempty"`
		PricePercentile *float64 `json:"price_percentile,omitempty"`
	}{plain: plain(l)}
	if l.IsValid {
		out.RiskScore = &l.RiskScore
		out.PricePercentile = &l.PricePercentile
	}
	return json.Marshal(out)
}
