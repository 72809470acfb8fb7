package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestListingJSONScoreFields(t *testing.T) {
	tests := []struct {
		name    string
		listing *Listing
		want    []string
		absent  []string
	}{
		{
			name:    "invalid listing carries no score",
			listing: &Listing{Title: "Toy phone", Price: 5, InvalidReason: "Product is a toy (contains toy indicators)", RiskFactors: []string{}},
			want:    []string{`"is_valid_product":false`, `"invalid_reason":"Product is a toy (contains toy indicators)"`},
			absent:  []string{`"risk_score"`, `"price_percentile"`},
		},
		{
			name:    "valid zero-risk listing keeps its score",
			listing: &Listing{Title: "iPhone 14", Price: 600, IsValid: true, RiskLevel: RiskLow, RiskFactors: []string{}},
			want:    []string{`"risk_score":0`, `"price_percentile":0`, `"risk_level":"LOW"`},
		},
		{
			name:    "valid scored listing",
			listing: &Listing{Title: "iPhone 14", Price: 95, IsValid: true, RiskScore: 0.55, PricePercentile: 12.5, RiskLevel: RiskHigh},
			want:    []string{`"risk_score":0.55`, `"price_percentile":12.5`},
		},
	}
	for _, tt := range tests {
		b, err := json.Marshal(tt.listing)
		if err != nil {
			t.Fatalf("%s: Marshal: %v", tt.name, err)
		}
		got := string(b)
		for _, w := range tt.want {
			if !strings.Contains(got, w) {
				t.Errorf("%s: %s missing %s", tt.name, got, w)
			}
		}
		for _, a := range tt.absent {
			if strings.Contains(got, a) {
				t.Errorf("%s: %s should not contain %s", tt.name, got, a)
			}
		}
		if strings.Count(got, `"title"`) != 1 {
			t.Errorf("%s: duplicated fields in %s", tt.name, got)
		}
	}
}

func TestListingJSONValueAndPointerAgree(t *testing.T) {
	l := Listing{Title: "x", IsValid: true, RiskScore: 0.3}
	a, _ := json.Marshal(l)
	b, _ := json.Marshal(&l)
	if string(a) != string(b) {
		t.Errorf("value %s != pointer %s", a, b)
	}
}
