package services

import (
	"fmt"
	"strings"

	"trustcart/config"
	"trustcart/models"
)

const (
	minTitleLength = 5

	reasonInvalidTitle = "Invalid or missing title"
	reasonNoPrice      = "No valid price found"
	reasonSpam         = "Contains multiple spam/scam keywords"
	reasonToyIndicator = "Product is a toy (contains toy indicators)"
	noteDigital        = "Warning: Digital product detected"
)

// ValidityGate rejects listings that are not genuine instances of the
// searched product. Verdicts depend only on title, price and query.
type ValidityGate struct {
	lexicon *config.LexiconStore
}

// NewValidityGate creates a gate reading its word lists from lexicon.
func NewValidityGate(lexicon *config.LexiconStore) *ValidityGate {
	return &ValidityGate{lexicon: lexicon}
}

// Validate returns whether l is a genuine listing for query and, when it is
// not, why. The first failing rule wins.
func (g *ValidityGate) Validate(l *models.Listing, query string) (bool, string) {
	lex := g.lexicon.Current()
	title := strings.ToLower(strings.TrimSpace(l.Title))

	if len([]rune(title)) < minTitleLength {
		return false, reasonInvalidTitle
	}
	if l.Price <= 0 {
		return false, reasonNoPrice
	}
	if countMatches(title, lex.SpamKeywords) >= lex.SpamThreshold {
		return false, reasonSpam
	}

	q := strings.ToLower(query)
	if !containsAny(q, lex.ToySearchTerms) {
		if isToy, reason := detectToy(lex, title, l.Price, q); isToy {
			return false, reason
		}
	}
	return true, ""
}

// Annotate runs Validate and records the verdict, the parsed specs and the
// feature keywords on l.
func (g *ValidityGate) Annotate(l *models.Listing, query string) {
	valid, reason := g.Validate(l, query)
	l.IsValid = valid
	l.InvalidReason = reason
	l.ValidationNote = ""

	lex := g.lexicon.Current()
	if valid && containsAny(strings.ToLower(l.Title), lex.DigitalIndicators) {
		l.ValidationNote = noteDigital
	}
	l.Specs = ExtractSpecs(l)
	l.Features = ExtractFeatures(lex, l.Title)
}

// detectToy applies three strategies in order: the general toy lexicon, the
// toy patterns of whichever category the query names, then price heuristics.
func detectToy(lex *config.Lexicon, title string, price float64, query string) (bool, string) {
	if containsAny(title, lex.ToyIndicators) {
		return true, reasonToyIndicator
	}

	for _, cat := range lex.Categories {
		if containsAny(query, cat.QueryKeywords) && containsAny(title, cat.ToyPatterns) {
			return true, fmt.Sprintf("Product is a toy %s, not a real %s", cat.Name, cat.Name)
		}
	}

	for _, rule := range lex.ToyPriceRules {
		if !containsAny(query, rule.QueryKeywords) {
			continue
		}
		if price <= 0 || price >= rule.MaxPrice {
			continue
		}
		if matchesEveryGroup(title, rule.TitleTerms) {
			return true, rule.Reason
		}
	}
	return false, ""
}

func matchesEveryGroup(title string, groups [][]string) bool {
	if len(groups) == 0 {
		return false
	}
	for _, group := range groups {
		if !containsAny(title, group) {
			return false
		}
	}
	return true
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}

// countMatches counts distinct terms found in s.
func countMatches(s string, terms []string) int {
	seen := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		if strings.Contains(s, t) {
			seen[t] = struct{}{}
		}
	}
	return len(seen)
}
