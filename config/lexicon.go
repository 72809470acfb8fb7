package config

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"
)

// CategoryRule ties a product category to the query words that select it and
// the title patterns that mark a toy version of that category.
type CategoryRule struct {
	Name          string   `yaml:"name"`
	QueryKeywords []string `yaml:"query_keywords"`
	ToyPatterns   []string `yaml:"toy_patterns"`
}

// ToyPriceRule flags a cheap listing as a toy when the query names the
// category, the price is under MaxPrice and the title hits every term group.
type ToyPriceRule struct {
	Name          string     `yaml:"name"`
	QueryKeywords []string   `yaml:"query_keywords"`
	MaxPrice      float64    `yaml:"max_price"`
	TitleTerms    [][]string `yaml:"title_terms"`
	Reason        string     `yaml:"reason"`
}

// Lexicon holds every word list the validity gate and risk scorer consult.
// All terms are matched as lower-case substrings.
type Lexicon struct {
	SpamKeywords      []string       `yaml:"spam_keywords"`
	SpamThreshold     int            `yaml:"spam_threshold"`
	ToyIndicators     []string       `yaml:"toy_indicators"`
	ToySearchTerms    []string       `yaml:"toy_search_terms"`
	Categories        []CategoryRule `yaml:"categories"`
	ToyPriceRules     []ToyPriceRule `yaml:"toy_price_rules"`
	DigitalIndicators []string       `yaml:"digital_indicators"`
	TrustedSellers    []string       `yaml:"trusted_sellers"`
	RetailPlatforms   []string       `yaml:"retail_platforms"`
	FeatureKeywords   []string       `yaml:"feature_keywords"`
}

// DefaultLexicon returns the built-in word lists.
func DefaultLexicon() *Lexicon {
	return &Lexicon{
		SpamKeywords: []string{
			"click here", "limited time offer", "act now",
			"guarantee", "100% free", "no risk",
			"buy now", "order now", "call now",
			"amazing deal", "unbelievable price",
		},
		SpamThreshold: 2,
		ToyIndicators: []string{
			"toy", "pretend", "play set", "playset", "playhouse",
			"kids", "children", "toddler", "child", "baby",
			"for kids", "for children", "kids'",
			"leapfrog", "vtech", "fisher-price", "little tikes",
			"step2", "melissa & doug", "kidkraft", "power wheels",
			"educational toy", "learning toy", "stem toy",
			"miniature", "mini version", "dollhouse", "doll house",
			"pretend play", "role play", "imaginative play",
			"play kitchen", "play food", "play tools",
			"wooden toy", "plastic toy",
		},
		ToySearchTerms: []string{"toy", "toys", "kids", "children", "toddler", "baby"},
		Categories: []CategoryRule{
			{
				Name:          "vehicle",
				QueryKeywords: []string{"car", "cars", "truck", "vehicle", "auto", "suv", "van"},
				ToyPatterns: []string{
					"ride on", "ride-on", "push car", "pedal car",
					"remote control", "rc ", "r/c", "r.c.",
					"12v", "6v", "24v battery",
					"electric car for kids", "kids electric",
					"model car", "die-cast", "diecast", "scale model",
					"1:24", "1:18", "1:12", "1:64", "1:43",
					"hot wheels", "matchbox", "tonka",
				},
			},
			{
				Name:          "furniture",
				QueryKeywords: []string{"furniture", "table", "chair", "desk", "sofa", "couch", "bed", "kitchen"},
				ToyPatterns: []string{
					"play kitchen", "toy kitchen", "kids kitchen",
					"play table", "kids table", "toddler table",
					"play chair", "kids chair", "toddler chair",
					"toy storage", "kids storage",
					"play tent", "kids tent", "play house",
					"doll furniture", "dollhouse furniture",
					"plastic furniture", "foam furniture",
				},
			},
			{
				Name:          "electronics",
				QueryKeywords: []string{"laptop", "computer", "tablet", "phone", "iphone", "ipad"},
				ToyPatterns: []string{
					"toy laptop", "kids laptop", "learning laptop",
					"toy tablet", "kids tablet", "learning tablet",
					"toy phone", "kids phone", "play phone",
					"toy computer", "kids computer",
					"electronic learning", "learning system",
					"educational tablet", "kidizoom",
				},
			},
			{
				Name:          "appliances",
				QueryKeywords: []string{"blender", "vacuum", "microwave", "washer", "dryer", "refrigerator"},
				ToyPatterns: []string{
					"toy blender", "play blender", "kids blender",
					"toy vacuum", "play vacuum", "kids vacuum",
					"toy microwave", "play microwave",
					"toy washing machine", "play washer",
					"play appliance", "toy appliance",
				},
			},
		},
		ToyPriceRules: []ToyPriceRule{
			{
				Name:          "toy car",
				QueryKeywords: []string{"car", "vehicle", "auto"},
				MaxPrice:      1000,
				TitleTerms: [][]string{
					{"electric", "battery", "12v", "6v", "rechargeable"},
					{"aosom", "costway", "best ride on", "kid trax"},
				},
				Reason: "Product is a battery-powered toy car",
			},
			{
				Name:          "toy laptop",
				QueryKeywords: []string{"laptop", "tablet", "computer"},
				MaxPrice:      50,
				TitleTerms:    [][]string{{"kids", "learning", "educational"}},
				Reason:        "Product is a toy laptop/tablet",
			},
			{
				Name:          "toy furniture",
				QueryKeywords: []string{"furniture", "table", "chair", "kitchen"},
				MaxPrice:      100,
				TitleTerms:    [][]string{{"plastic", "play", "kids", "little tikes"}},
				Reason:        "Product is toy furniture",
			},
		},
		DigitalIndicators: []string{
			"download", "digital code", "gift card",
			"e-book", "ebook", "software license",
			"digital download", "instant download",
		},
		TrustedSellers: []string{
			"target", "walmart", "best buy", "amazon", "ulta", "kohl",
			"dyson", "macy", "laifen", "ikea", "west elm", "crate & barrel",
		},
		RetailPlatforms: []string{"google_shopping"},
		FeatureKeywords: []string{
			"wireless", "bluetooth", "wifi", "smart", "digital",
			"automatic", "manual", "portable", "compact", "lightweight",
			"heavy duty", "professional", "premium", "deluxe",
			"certified", "unlocked", "sealed", "brand new", "refurbished",
		},
	}
}

// LoadLexicon reads a YAML lexicon file. Groups missing from the file keep
// their built-in values.
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lexicon: read %q: %w", path, err)
	}
	return ParseLexicon(data)
}

// ParseLexicon decodes YAML on top of the built-in lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	lex := DefaultLexicon()
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("lexicon: decode: %w", err)
	}
	lex.normalise()
	return lex, nil
}

func (l *Lexicon) normalise() {
	if l.SpamThreshold < 1 {
		l.SpamThreshold = 2
	}
	lowerAll(l.SpamKeywords)
	lowerAll(l.ToyIndicators)
	lowerAll(l.ToySearchTerms)
	lowerAll(l.DigitalIndicators)
	lowerAll(l.TrustedSellers)
	lowerAll(l.RetailPlatforms)
	lowerAll(l.FeatureKeywords)
	for i := range l.Categories {
		lowerAll(l.Categories[i].QueryKeywords)
		lowerAll(l.Categories[i].ToyPatterns)
	}
	for i := range l.ToyPriceRules {
		lowerAll(l.ToyPriceRules[i].QueryKeywords)
		for _, group := range l.ToyPriceRules[i].TitleTerms {
			lowerAll(group)
		}
	}
}

func lowerAll(terms []string) {
	for i, t := range terms {
		terms[i] = strings.ToLower(t)
	}
}

// LexiconStore hands out the current lexicon and lets a watcher swap it.
type LexiconStore struct {
	ptr atomic.Pointer[Lexicon]
}

// NewLexiconStore wraps lex. A nil lex stores the built-in lexicon.
func NewLexiconStore(lex *Lexicon) *LexiconStore {
	if lex == nil {
		lex = DefaultLexicon()
	}
	s := &LexiconStore{}
	s.ptr.Store(lex)
	return s
}

// Current returns the active lexicon. Callers must treat it as read-only.
func (s *LexiconStore) Current() *Lexicon {
	return s.ptr.Load()
}

// Swap replaces the active lexicon.
func (s *LexiconStore) Swap(lex *Lexicon) {
	if lex != nil {
		s.ptr.Store(lex)
	}
}
