package models

import "time"

// RiskSummary counts valid listings per risk band.
type RiskSummary struct {
	High   int `json:"high_risk_count"`
	Medium int `json:"medium_risk_count"`
	Low    int `json:"low_risk_count"`
}

// SearchReport is the result of one search across marketplaces.
type SearchReport struct {
	RunID             string          `json:"run_id"`
	Query             string          `json:"query"`
	PlatformsSearched []string        `json:"platforms_searched"`
	CategoryWarning   string          `json:"category_warning,omitempty"`
	RiskProfile       string          `json:"risk_profile,omitempty"`
	TotalResults      int             `json:"total_results"`
	ValidProducts     int             `json:"valid_products"`
	FilteredOut       int             `json:"filtered_out"`
	FilteredReasons   map[string]int  `json:"filtered_reasons"`
	PriceStatistics   PriceStats      `json:"price_statistics"`
	RiskSummary       RiskSummary     `json:"risk_summary"`
	Products          []*Listing      `json:"products"`
	InvalidProducts   []*Listing      `json:"invalid_products"`
	Recommendations   Recommendations `json:"recommendations"`
	Message           string          `json:"message,omitempty"`
	GeneratedAt       time.Time       `json:"generated_at"`
}
