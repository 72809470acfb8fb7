package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"trustcart/models"
	"trustcart/scraper"
	"trustcart/storage"
	"trustcart/telemetry"
	"trustcart/utils"
)

const (
	PlatformAll = "all"

	defaultPlatform   = "google"
	defaultNumResults = 10
	maxNumResults     = 50

	msgNoProducts = "No products found"
)

var (
	ErrEmptyQuery      = errors.New("search: query is required")
	ErrUnknownPlatform = errors.New("search: unknown platform")
	ErrBadCondition    = errors.New("search: condition must be new, used or refurbished")
)

var vehicleQueryWords = []string{"car", "cars", "vehicle", "auto"}

// SearchRequest describes one search across marketplaces.
type SearchRequest struct {
	Query      string
	Platform   string
	NumResults int
	MaxPrice   float64
	Condition  models.Condition
	// FilterInvalid drops rejected listings from Products.
	FilterInvalid bool
}

// SearchOptions carries the optional collaborators of a SearchService.
type SearchOptions struct {
	Recorder       storage.RunRecorder
	RiskProfile    string
	DefaultResults int
	Logger         *utils.Logger
}

// SearchService fetches listings from the configured sources, runs them
// through the detector and assembles a SearchReport.
type SearchService struct {
	sources        []scraper.Source
	cleaner        *Cleaner
	detector       *Detector
	recorder       storage.RunRecorder
	riskProfile    string
	defaultResults int
	logger         *utils.Logger
	now            func() time.Time
}

func NewSearchService(sources []scraper.Source, cleaner *Cleaner, detector *Detector, opts SearchOptions) *SearchService {
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	n := opts.DefaultResults
	if n <= 0 {
		n = defaultNumResults
	}
	return &SearchService{
		sources:        sources,
		cleaner:        cleaner,
		detector:       detector,
		recorder:       opts.Recorder,
		riskProfile:    opts.RiskProfile,
		defaultResults: clampResults(n),
		logger:         logger,
		now:            time.Now,
	}
}

// Platforms lists the request keys of the configured sources.
func (s *SearchService) Platforms() []string {
	out := make([]string, 0, len(s.sources))
	for _, src := range s.sources {
		out = append(out, src.Name())
	}
	return out
}

func (s *SearchService) selectSources(platform string) ([]scraper.Source, error) {
	if platform == PlatformAll {
		return s.sources, nil
	}
	for _, src := range s.sources {
		if src.Name() == platform {
			return []scraper.Source{src}, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
}

// Search runs req. Only malformed requests return an error: failing sources
// are logged and skipped.
func (s *SearchService) Search(ctx context.Context, req SearchRequest) (*models.SearchReport, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		platform = defaultPlatform
	}
	sources, err := s.selectSources(platform)
	if err != nil {
		return nil, err
	}
	switch req.Condition {
	case "", models.ConditionNew, models.ConditionUsed, models.ConditionRefurbished:
	default:
		return nil, ErrBadCondition
	}
	num := s.defaultResults
	if req.NumResults > 0 {
		num = clampResults(req.NumResults)
	}

	ctx, span := telemetry.Tracer().Start(ctx, "search.Search")
	defer span.End()
	span.SetAttributes(attribute.String("query", query), attribute.String("platform", platform))

	report := &models.SearchReport{
		RunID:             uuid.NewString(),
		Query:             query,
		PlatformsSearched: []string{},
		RiskProfile:       s.riskProfile,
		FilteredReasons:   map[string]int{},
		Products:          []*models.Listing{},
		InvalidProducts:   []*models.Listing{},
		GeneratedAt:       s.now().UTC(),
	}

	params := scraper.SearchParams{
		Query:        query,
		NumResults:   num,
		MaxPrice:     req.MaxPrice,
		Condition:    req.Condition,
		BuyItNowOnly: true,
	}
	raw := s.fetch(ctx, sources, params, report)

	listings := s.cleaner.Clean(raw)
	report.TotalResults = len(listings)
	if len(listings) == 0 {
		report.Message = msgNoProducts
		s.record(ctx, report)
		return report, nil
	}

	s.detector.AnalyzeBatch(ctx, listings, query)

	valid := make([]*models.Listing, 0, len(listings))
	for _, l := range listings {
		if l.IsValid {
			valid = append(valid, l)
			continue
		}
		report.InvalidProducts = append(report.InvalidProducts, l)
		report.FilteredReasons[l.InvalidReason]++
	}

	report.ValidProducts = len(valid)
	report.FilteredOut = len(report.InvalidProducts)
	report.CategoryWarning = CategoryWarning(query, report.InvalidProducts)
	report.PriceStatistics = s.detector.PriceStatistics(valid)
	report.RiskSummary = Summarise(valid)
	report.Recommendations = s.detector.SmartRecommendations(valid)
	if req.FilterInvalid {
		report.Products = valid
	} else {
		report.Products = listings
	}

	s.logger.Info("[search] %s %q: %d results, %d valid, HIGH=%d MEDIUM=%d LOW=%d",
		report.RunID, query, report.TotalResults, report.ValidProducts,
		report.RiskSummary.High, report.RiskSummary.Medium, report.RiskSummary.Low)
	s.record(ctx, report)
	return report, nil
}

// fetch queries every source concurrently. Results keep source order.
func (s *SearchService) fetch(ctx context.Context, sources []scraper.Source, params scraper.SearchParams, report *models.SearchReport) []*models.RawListing {
	results := make([][]*models.RawListing, len(sources))
	ok := make([]bool, len(sources))

	var g errgroup.Group
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			listings, err := src.Search(ctx, params)
			if err != nil {
				s.logger.Warn("[search] %s failed: %v", src.Name(), err)
				return nil
			}
			results[i] = listings
			ok[i] = true
			return nil
		})
	}
	_ = g.Wait()

	var raw []*models.RawListing
	for i, src := range sources {
		if ok[i] {
			report.PlatformsSearched = append(report.PlatformsSearched, src.Platform())
			raw = append(raw, results[i]...)
		}
	}
	return raw
}

func (s *SearchService) record(ctx context.Context, report *models.SearchReport) {
	if s.recorder == nil {
		return
	}
	if err := s.recorder.RecordRun(ctx, report); err != nil {
		s.logger.Warn("[search] record run %s: %v", report.RunID, err)
	}
}

// CategoryWarning explains how many toys were filtered and, for vehicle
// searches, how to reach real vehicles. It is empty when no toys were dropped.
func CategoryWarning(query string, invalid []*models.Listing) string {
	toys := 0
	for _, l := range invalid {
		if strings.Contains(strings.ToLower(l.InvalidReason), "toy") {
			toys++
		}
	}
	if toys == 0 {
		return ""
	}

	warnings := []string{fmt.Sprintf(
		"Filtered out %d toy product(s). To search for toys specifically, include 'toy' or 'kids' in your query.", toys)}
	if containsAny(strings.ToLower(query), vehicleQueryWords) {
		warnings = append(warnings,
			"Many toy cars were filtered. For real vehicles, try adding '?platform=ebay&condition=used' to search eBay.")
	}
	return strings.Join(warnings, " ")
}

func clampResults(n int) int {
	if n < 1 {
		return 1
	}
	if n > maxNumResults {
		return maxNumResults
	}
	return n
}
