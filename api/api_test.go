package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trustcart/config"
	"trustcart/explainer"
	"trustcart/models"
	"trustcart/scraper"
	"trustcart/services"
	"trustcart/storage"
	"trustcart/telemetry"
	"trustcart/utils"
)

type stubSource struct {
	name     string
	listings []*models.RawListing
	last     scraper.SearchParams
}

func (s *stubSource) Name() string     { return s.name }
func (s *stubSource) Platform() string { return s.name }

func (s *stubSource) Search(_ context.Context, p scraper.SearchParams) ([]*models.RawListing, error) {
	s.last = p
	return s.listings, nil
}

type stubRuns struct {
	query string
	limit int
	err   error
}

func (s *stubRuns) RecentRuns(_ context.Context, query string, limit int) ([]storage.RunSummary, error) {
	s.query, s.limit = query, limit
	if s.err != nil {
		return nil, s.err
	}
	return []storage.RunSummary{{RunID: "r1", Query: query}}, nil
}

type stubExplainer struct{ err error }

func (stubExplainer) Enabled() bool { return true }
func (stubExplainer) Model(strong bool) string {
	if strong {
		return "strong"
	}
	return "fast"
}
func (s stubExplainer) ExplainRisk(_ context.Context, req explainer.Request) (*models.ExplanationResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.ExplanationResult{
		ScamProbability: 0.8,
		RedFlags:        req.RiskFactors,
		Reasoning:       "too cheap",
		Recommendation:  models.RecommendAvoid,
		Origin:          models.OriginGenerated,
	}, nil
}

func newTestApp(t *testing.T, exp explainer.Explainer, opts Options) (http.Handler, *stubSource) {
	t.Helper()
	src := &stubSource{name: "google", listings: []*models.RawListing{
		{Title: "Apple iPhone 14 128GB", Price: "$600.00", Platform: "google", Link: "a", Rating: 4.6, ReviewCount: 120},
		{Title: "Apple iPhone 14 128GB Black", Price: "$620.00", Platform: "google", Link: "b", Rating: 4.5, ReviewCount: 80},
		{Title: "Kids Toy Phone iPhone", Price: "$15.00", Platform: "google", Link: "c"},
	}}
	lex := config.NewLexiconStore(config.DefaultLexicon())
	logger := utils.Discard()
	det := services.NewDetector(
		services.NewValidityGate(lex),
		services.NewRiskScorer(lex, services.NewPriceTierClassifier(services.BaselinePercentile)),
		services.BandsFromProfile(config.ProfileByName("v2")),
		nil, nil, logger,
	)
	svc := services.NewSearchService([]scraper.Source{src}, services.NewCleaner(logger), det, services.SearchOptions{Logger: logger})
	opts.Logger = logger
	return NewRouter(NewApp(svc, exp, opts)), src
}

func do(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestSearchHandler(t *testing.T) {
	h, src := newTestApp(t, nil, Options{})
	rr := do(t, h, "/api/search/iphone?num_results=5&max_price=900&condition=used")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body %s", rr.Code, rr.Body.String())
	}
	var report models.SearchReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if report.Query != "iphone" || report.TotalResults != 3 || report.ValidProducts != 2 {
		t.Errorf("report = %+v", report)
	}
	if len(report.Products) != 2 || len(report.InvalidProducts) != 1 {
		t.Errorf("products %d invalid %d; want 2 and 1", len(report.Products), len(report.InvalidProducts))
	}
	if src.last.NumResults != 5 || src.last.MaxPrice != 900 || src.last.Condition != models.ConditionUsed {
		t.Errorf("params = %+v", src.last)
	}
	if rr.Header().Get(headerRequestID) == "" {
		t.Error("missing request id header")
	}
}

func TestSearchHandlerKeepsInvalidWhenAsked(t *testing.T) {
	h, _ := newTestApp(t, nil, Options{})
	rr := do(t, h, "/api/search/iphone?filter_invalid=false")
	var report models.SearchReport
	if err := json.Unmarshal(rr.Body.Bytes(), &report); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(report.Products) != 3 {
		t.Errorf("len(Products) = %d; want 3", len(report.Products))
	}
}

func TestSearchHandlerRejectsBadInput(t *testing.T) {
	h, _ := newTestApp(t, nil, Options{})
	for _, target := range []string{
		"/api/search/iphone?num_results=0",
		"/api/search/iphone?num_results=51",
		"/api/search/iphone?num_results=abc",
		"/api/search/iphone?max_price=-1",
		"/api/search/iphone?platform=amazon",
		"/api/search/iphone?condition=broken",
		"/api/search/iphone?filter_invalid=maybe",
		"/api/search/%20",
	} {
		rr := do(t, h, target)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("GET %s = %d; want 400", target, rr.Code)
			continue
		}
		var body jsonError
		if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body.Error != "invalid_request" {
			t.Errorf("GET %s body = %s", target, rr.Body.String())
		}
	}
}

func TestPlatformsHandler(t *testing.T) {
	h, _ := newTestApp(t, nil, Options{})
	rr := do(t, h, "/api/platforms")
	var body struct {
		Platforms []platformInfo `json:"platforms"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	enabled := map[string]bool{}
	for _, p := range body.Platforms {
		enabled[p.Name] = p.Enabled
	}
	if !enabled["google"] || enabled["ebay"] {
		t.Errorf("enabled = %v; want only google", enabled)
	}
}

func TestHealthHandler(t *testing.T) {
	h, _ := newTestApp(t, stubExplainer{}, Options{Version: "1.2.3"})
	rr := do(t, h, "/api/health")
	var body healthResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "healthy" || body.Version != "1.2.3" || !body.ExplainerEnabled || body.RunsRecorded {
		t.Errorf("health = %+v", body)
	}
}

func TestTestExplainerHandler(t *testing.T) {
	tests := []struct {
		name   string
		exp    explainer.Explainer
		code   int
		status string
	}{
		{"disabled", nil, http.StatusOK, "disabled"},
		{"success", stubExplainer{}, http.StatusOK, "success"},
		{"failure", stubExplainer{err: explainer.ErrUnavailable}, http.StatusBadGateway, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestApp(t, tt.exp, Options{})
			rr := do(t, h, "/api/test-explainer")
			if rr.Code != tt.code {
				t.Fatalf("status = %d; want %d", rr.Code, tt.code)
			}
			var body map[string]any
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if tt.status != "" && body["status"] != tt.status {
				t.Errorf("status field = %v; want %s", body["status"], tt.status)
			}
		})
	}
}

func TestRunsHandler(t *testing.T) {
	h, _ := newTestApp(t, nil, Options{})
	if rr := do(t, h, "/api/runs"); rr.Code != http.StatusNotFound {
		t.Errorf("without recorder status = %d; want 404", rr.Code)
	}

	runs := &stubRuns{}
	h, _ = newTestApp(t, nil, Options{Runs: runs})
	rr := do(t, h, "/api/runs?query=iphone&limit=5")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if runs.query != "iphone" || runs.limit != 5 {
		t.Errorf("RecentRuns(%q, %d); want iphone, 5", runs.query, runs.limit)
	}
	if rr := do(t, h, fmt.Sprintf("/api/runs?limit=%d", storage.MaxRunsLimit)); rr.Code != http.StatusOK {
		t.Errorf("limit=%d status = %d; want 200", storage.MaxRunsLimit, rr.Code)
	}
	if runs.limit != storage.MaxRunsLimit {
		t.Errorf("RecentRuns limit = %d; want %d", runs.limit, storage.MaxRunsLimit)
	}
	if rr := do(t, h, fmt.Sprintf("/api/runs?limit=%d", storage.MaxRunsLimit+1)); rr.Code != http.StatusBadRequest {
		t.Errorf("limit above max status = %d; want 400", rr.Code)
	}

	runs.err = errors.New("db down")
	if rr := do(t, h, "/api/runs"); rr.Code != http.StatusInternalServerError {
		t.Errorf("failing store status = %d; want 500", rr.Code)
	}
}

func TestMetricsHandler(t *testing.T) {
	mp, reader := telemetry.NewInProcessProvider()
	defer mp.Shutdown(context.Background())
	telemetry.New(mp).Listing(context.Background(), "HIGH")

	h, _ := newTestApp(t, nil, Options{MetricsReader: reader})
	rr := do(t, h, "/api/metrics")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	var snap map[string]int64
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := snap[telemetry.ListingsTotal+"{risk_level=HIGH}"]; got != 1 {
		t.Errorf("listings HIGH = %d; want 1 (snapshot %v)", got, snap)
	}
}

func TestRequestIDPropagated(t *testing.T) {
	h, _ := newTestApp(t, nil, Options{})
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(headerRequestID, "abc-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get(headerRequestID); got != "abc-123" {
		t.Errorf("X-Request-Id = %q; want abc-123", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q", got)
	}
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), time.Second, utils.Discard()); err != nil {
		t.Errorf("Serve after cancel = %v; want nil", err)
	}
}
