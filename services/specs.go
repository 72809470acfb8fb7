package services

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"trustcart/config"
	"trustcart/models"
)

var (
	memoryRegexp    = regexp.MustCompile(`(\d+)\s*(gb|tb)(?:\s+(ram|ssd|storage|memory|emmc))?`)
	screenRegexp    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:-?inch|"|”|')`)
	yearRegexp      = regexp.MustCompile(`\b(19\d{2}|20[0-2]\d)\b`)
	mileageRegexp   = regexp.MustCompile(`(\d+)(k)?\s*(miles?|mi\b|km)`)
	weightRegexp    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(lbs?|kg|oz|pounds?)\b`)
	dimensionRegexp = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)\s*x\s*(\d+(?:\.\d+)?)`)
	powerRegexp     = regexp.MustCompile(`(\d+)\s*(volts?|watts?|v|w)\b`)
	batteryAfter    = regexp.MustCompile(`^\s*battery`)
	capacityRegexp  = regexp.MustCompile(`(\d+)\s*(mah|ah|ml|l|oz)\b`)
)

const kmToMiles = 0.621371

// ExtractSpecs parses numeric attributes out of the listing title. The result
// is informational only and never affects validity.
func ExtractSpecs(l *models.Listing) models.Specs {
	title := strings.ToLower(l.Title)
	var specs models.Specs

	for _, m := range memoryRegexp.FindAllStringSubmatch(title, -1) {
		amount, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if m[2] == "tb" {
			amount *= 1000
		}
		if m[3] == "ram" || m[3] == "memory" {
			specs.RAMGB = amount
		} else {
			specs.StorageGB = amount
		}
	}

	if m := screenRegexp.FindStringSubmatch(title); m != nil {
		specs.ScreenInches, _ = strconv.ParseFloat(m[1], 64)
	}

	if m := yearRegexp.FindStringSubmatch(title); m != nil {
		specs.Year, _ = strconv.Atoi(m[1])
	}

	if m := mileageRegexp.FindStringSubmatch(title); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			if m[2] == "k" {
				n *= 1000
			}
			if m[3] == "km" {
				n = int(math.Round(float64(n) * kmToMiles))
			}
			specs.MileageMiles = n
		}
	}

	if m := weightRegexp.FindStringSubmatch(title); m != nil {
		specs.Weight, _ = strconv.ParseFloat(m[1], 64)
		specs.WeightUnit = m[2]
	}

	if m := dimensionRegexp.FindStringSubmatch(title); m != nil {
		specs.Dimensions = m[1] + "x" + m[2] + "x" + m[3]
	}

	// "12v battery" describes a ride-on toy's pack, not the product's rating.
	for _, idx := range powerRegexp.FindAllStringSubmatchIndex(title, -1) {
		if batteryAfter.MatchString(title[idx[1]:]) {
			continue
		}
		specs.Power, _ = strconv.Atoi(title[idx[2]:idx[3]])
		specs.PowerUnit = title[idx[4]:idx[5]]
		break
	}

	if m := capacityRegexp.FindStringSubmatch(title); m != nil {
		specs.Capacity, _ = strconv.Atoi(m[1])
		specs.CapacityUnit = m[2]
	}

	specs.Condition = detectCondition(l.Condition, title)
	specs.Brand = guessBrand(l.Title)
	return specs
}

func detectCondition(c models.Condition, title string) models.Condition {
	if c != "" && c != models.ConditionUnknown {
		return c
	}
	switch {
	case containsAny(title, []string{"refurbished", "restored", "renewed", "refurb"}):
		return models.ConditionRefurbished
	case containsAny(title, []string{"used", "pre-owned"}):
		return models.ConditionUsed
	case strings.Contains(title, "new"):
		return models.ConditionNew
	}
	return models.ConditionUnknown
}

// guessBrand returns the first capitalised word among the first three.
func guessBrand(title string) string {
	words := strings.Fields(title)
	if len(words) > 3 {
		words = words[:3]
	}
	for _, w := range words {
		r := []rune(w)
		if len(r) > 2 && unicode.IsUpper(r[0]) {
			return w
		}
	}
	return ""
}

// ExtractFeatures lists the lexicon feature keywords present in title, in
// lexicon order.
func ExtractFeatures(lex *config.Lexicon, title string) []string {
	t := strings.ToLower(title)
	found := make([]string, 0, 4)
	for _, kw := range lex.FeatureKeywords {
		if strings.Contains(t, kw) {
			found = append(found, kw)
		}
	}
	return found
}
