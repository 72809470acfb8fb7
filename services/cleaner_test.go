package services

import (
	"bytes"
	"strings"
	"testing"

	"trustcart/models"
	"trustcart/utils"
)

func newTestLogger() *utils.Logger { return utils.Discard() }

func TestParsePrice(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"$120", 120},
		{"$1,299.99", 1299.99},
		{"US $45.00", 45},
		{"€12", 12},
		{"", 0},
		{"free", 0},
		{"$20.00 to $30.00", 20},
		{"1.005", 1.01},
	}

	for _, tt := range tests {
		if got := ParsePrice(tt.raw); got != tt.want {
			t.Errorf("ParsePrice(%q) = %.2f; want %.2f", tt.raw, got, tt.want)
		}
	}
}

func TestParseCondition(t *testing.T) {
	tests := []struct {
		raw  string
		want models.Condition
	}{
		{"Brand New", models.ConditionNew},
		{"Pre-Owned", models.ConditionUsed},
		{"Certified - Refurbished", models.ConditionRefurbished},
		{"renewed", models.ConditionRefurbished},
		{"", models.ConditionUnknown},
		{"for parts", models.ConditionUnknown},
	}
	for _, tt := range tests {
		if got := ParseCondition(tt.raw); got != tt.want {
			t.Errorf("ParseCondition(%q) = %q; want %q", tt.raw, got, tt.want)
		}
	}
}

func TestCleanerKeepsInvalidFields(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{Title: "  No   link ", Price: "n/a", Platform: "eBay"},
		{Title: "Has link", Price: "$200", Link: "https://ebay.com/itm/1", Platform: "ebay", Rating: 7},
	}

	cleaned := c.Clean(raw)
	if len(cleaned) != 2 {
		t.Fatalf("expected 2 listings, got %d", len(cleaned))
	}
	if cleaned[0].Title != "No link" || cleaned[0].Price != 0 || cleaned[0].Platform != "ebay" {
		t.Errorf("unexpected normalisation: %+v", cleaned[0])
	}
	if cleaned[1].Rating != 0 {
		t.Errorf("out of range rating should be zeroed, got %.1f", cleaned[1].Rating)
	}
}

func TestCleanerCollapsesSameLinkSamePlatform(t *testing.T) {
	c := NewCleaner(newTestLogger())
	raw := []*models.RawListing{
		{Title: "A", Link: "https://x.com/1", Platform: "ebay"},
		{Title: "B", Link: "https://x.com/1", Platform: "ebay"},
		{Title: "C", Link: "https://x.com/1", Platform: "google_shopping"},
	}

	if cleaned := c.Clean(raw); len(cleaned) != 2 {
		t.Errorf("expected 2 listings, got %d", len(cleaned))
	}
}

func TestCleanerLogsUniqueAndDuplicateCounts(t *testing.T) {
	var buf bytes.Buffer
	c := NewCleaner(utils.NewLoggerTo(&buf, "info", false))
	c.Clean([]*models.RawListing{
		{Title: "A", Link: "https://x.com/1", Platform: "ebay"},
		{Title: "B", Link: "https://x.com/1", Platform: "ebay"},
		{Title: "C", Link: "https://x.com/2", Platform: "ebay"},
		nil,
	})
	if !strings.Contains(buf.String(), "(2 unique links, dropped 1 duplicates)") {
		t.Errorf("log = %q", buf.String())
	}
}
