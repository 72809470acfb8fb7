package services

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"trustcart/models"
	"trustcart/utils"
)

// priceRegexp captures the first numeric amount once thousands separators are gone.
var priceRegexp = regexp.MustCompile(`\d+(?:\.\d+)?`)

// Cleaner turns source records into Listings ready for analysis.
type Cleaner struct {
	logger *utils.Logger
}

// NewCleaner creates a Cleaner with the given logger.
func NewCleaner(logger *utils.Logger) *Cleaner {
	return &Cleaner{logger: logger}
}

// Clean normalises raw listings. Records are never dropped for bad fields:
// the validity gate is responsible for rejecting them. Only exact repeats of
// the same link on the same platform are collapsed.
func (c *Cleaner) Clean(raw []*models.RawListing) []*models.Listing {
	seen := utils.NewKeySet()
	result := make([]*models.Listing, 0, len(raw))
	duplicates := 0

	for _, r := range raw {
		if r == nil {
			continue
		}
		platform := normalisePlatform(r.Platform)
		link := strings.TrimSpace(r.Link)
		if link != "" && !seen.Add(platform+"|"+link) {
			c.logger.Debug("[cleaner] Duplicate link skipped: %s", link)
			duplicates++
			continue
		}

		result = append(result, &models.Listing{
			Title:       normaliseText(r.Title),
			Price:       ParsePrice(r.Price),
			PriceRaw:    strings.TrimSpace(r.Price),
			Link:        link,
			Thumbnail:   strings.TrimSpace(r.Thumbnail),
			Source:      normaliseText(r.Source),
			Platform:    platform,
			Rating:      clampRating(r.Rating),
			ReviewCount: maxInt(r.ReviewCount, 0),
			Seller: models.Seller{
				Name:   normaliseText(r.Seller.Name),
				Rating: clampRating(r.Seller.Rating),
			},
			Condition: ParseCondition(string(r.Condition)),
			ProductID: r.ProductID,
		})
	}

	c.logger.Info("[cleaner] Cleaned %d → %d listings (%d unique links, dropped %d duplicates)",
		len(raw), len(result), seen.Size(), duplicates)
	return result
}

// ParsePrice extracts an amount from a display price such as "$1,299.99",
// "US $45.00" or "€12". Unparseable input yields 0.
func ParsePrice(raw string) float64 {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	match := priceRegexp.FindString(cleaned)
	if match == "" {
		return 0
	}
	d, err := decimal.NewFromString(match)
	if err != nil {
		return 0
	}
	return d.Round(2).InexactFloat64()
}

// ParseCondition maps free-form condition text onto the known conditions.
func ParseCondition(s string) models.Condition {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "":
		return models.ConditionUnknown
	case strings.Contains(s, "refurb") || strings.Contains(s, "renewed") || strings.Contains(s, "restored"):
		return models.ConditionRefurbished
	case strings.Contains(s, "used") || strings.Contains(s, "pre-owned") || strings.Contains(s, "preowned"):
		return models.ConditionUsed
	case strings.Contains(s, "new"):
		return models.ConditionNew
	}
	return models.ConditionUnknown
}

func clampRating(r float64) float64 {
	if r < 0 || r > 5 {
		return 0
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// normaliseText strips leading/trailing whitespace and collapses internal whitespace.
func normaliseText(s string) string {
	fields := strings.FieldsFunc(strings.TrimSpace(s), unicode.IsSpace)
	return strings.Join(fields, " ")
}

func normalisePlatform(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
