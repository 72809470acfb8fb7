package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"trustcart/explainer"
	"trustcart/models"
	"trustcart/services"
	"trustcart/storage"
	"trustcart/telemetry"
	"trustcart/utils"
)

const (
	minResults     = 1
	maxResults     = 50
	defaultResults = 10
)

// RunLister reads back recorded search runs.
type RunLister interface {
	RecentRuns(ctx context.Context, query string, limit int) ([]storage.RunSummary, error)
}

// Options configures an App. Runs and MetricsReader are optional.
type Options struct {
	Version       string
	Runs          RunLister
	MetricsReader sdkmetric.Reader
	Logger        *utils.Logger
}

// App holds the dependencies shared by HTTP handlers.
type App struct {
	search    *services.SearchService
	explainer explainer.Explainer
	runs      RunLister
	reader    sdkmetric.Reader
	version   string
	logger    *utils.Logger
	started   time.Time
}

// NewApp creates an App serving search through svc.
func NewApp(svc *services.SearchService, exp explainer.Explainer, opts Options) *App {
	if exp == nil {
		exp = explainer.Disabled{}
	}
	if opts.Logger == nil {
		opts.Logger = utils.Discard()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &App{
		search:    svc,
		explainer: exp,
		runs:      opts.Runs,
		reader:    opts.MetricsReader,
		version:   opts.Version,
		logger:    opts.Logger,
		started:   time.Now(),
	}
}

func (a *App) searchHandler(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearchRequest(r)
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	report, err := a.search.Search(r.Context(), req)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, services.ErrEmptyQuery),
		errors.Is(err, services.ErrUnknownPlatform),
		errors.Is(err, services.ErrBadCondition):
		writeJSONError(w, r, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		a.logger.Error("[api] search %q failed: %v", req.Query, err)
		writeJSONError(w, r, http.StatusInternalServerError, "search_failed", err.Error())
	}
}

// parseSearchRequest reads the path query and the optional filters.
func parseSearchRequest(r *http.Request) (services.SearchRequest, error) {
	q := r.URL.Query()
	req := services.SearchRequest{
		Query:         strings.TrimSpace(r.PathValue("query")),
		Platform:      strings.ToLower(q.Get("platform")),
		NumResults:    defaultResults,
		FilterInvalid: true,
	}
	if req.Query == "" {
		return req, services.ErrEmptyQuery
	}

	if v := q.Get("num_results"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < minResults || n > maxResults {
			return req, errors.New("num_results must be an integer between 1 and 50")
		}
		req.NumResults = n
	}
	if v := q.Get("max_price"); v != "" {
		p, err := strconv.ParseFloat(v, 64)
		if err != nil || p < 0 {
			return req, errors.New("max_price must be a non-negative number")
		}
		req.MaxPrice = p
	}
	if v := q.Get("condition"); v != "" {
		req.Condition = models.Condition(strings.ToLower(v))
	}
	if v := q.Get("filter_invalid"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return req, errors.New("filter_invalid must be true or false")
		}
		req.FilterInvalid = b
	}
	return req, nil
}

type platformInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Features    string `json:"features"`
	Enabled     bool   `json:"enabled"`
}

var platformCatalogue = []platformInfo{
	{
		Name:        "google",
		Description: "Google Shopping aggregates listings from many retailers",
		Features:    "Price comparison, retailer ratings, broad coverage",
	},
	{
		Name:        "ebay",
		Description: "eBay marketplace, Buy It Now listings only",
		Features:    "Condition filters, seller feedback, used and refurbished items",
	},
}

func (a *App) platformsHandler(w http.ResponseWriter, r *http.Request) {
	active := map[string]bool{}
	for _, p := range a.search.Platforms() {
		active[p] = true
	}
	out := make([]platformInfo, 0, len(platformCatalogue))
	for _, p := range platformCatalogue {
		p.Enabled = active[p.Name]
		out = append(out, p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"platforms": out,
		"default":   "google",
		"all":       services.PlatformAll,
	})
}

type healthResponse struct {
	Status           string   `json:"status"`
	Version          string   `json:"version"`
	Platforms        []string `json:"platforms"`
	ExplainerEnabled bool     `json:"explainer_enabled"`
	ExplainerModel   string   `json:"explainer_model,omitempty"`
	RunsRecorded     bool     `json:"runs_recorded"`
	UptimeSeconds    int64    `json:"uptime_seconds"`
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "healthy",
		Version:          a.version,
		Platforms:        a.search.Platforms(),
		ExplainerEnabled: a.explainer.Enabled(),
		ExplainerModel:   a.explainer.Model(false),
		RunsRecorded:     a.runs != nil,
		UptimeSeconds:    int64(time.Since(a.started).Seconds()),
	})
}

// sampleListing is a deliberately suspicious listing used to probe the explainer.
func sampleListing() *models.Listing {
	return &models.Listing{
		Title:       "iPhone 13 Pro - AMAZING DEAL!!!",
		Price:       299,
		Source:      "Unknown Seller",
		Platform:    "google_shopping",
		Rating:      2.5,
		ReviewCount: 3,
		Seller:      models.Seller{Name: "Unknown Seller", Rating: 2.5},
		Condition:   models.ConditionNew,
		IsValid:     true,
		RiskScore:   0.75,
		RiskLevel:   models.RiskHigh,
		RiskFactors: []string{
			"Price is 70% below the typical price",
			"Low rating (2.5/5)",
			"Very few reviews (3)",
		},
	}
}

func (a *App) testExplainerHandler(w http.ResponseWriter, r *http.Request) {
	if !a.explainer.Enabled() {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "disabled",
			"message": "Explainer is not configured; set GROQ_API_KEY to enable it",
		})
		return
	}

	l := sampleListing()
	strong := r.URL.Query().Get("strong") == "true"
	res, err := a.explainer.ExplainRisk(r.Context(), explainer.Request{
		Listing:        l,
		RiskLevel:      l.RiskLevel,
		RiskScore:      l.RiskScore,
		RiskFactors:    l.RiskFactors,
		PriceStats:     models.PriceStats{Count: 8, Min: 850, Max: 1199, Mean: 999, Median: 999},
		UseStrongModel: strong,
	})
	if err != nil {
		a.logger.Warn("[api] explainer probe failed: %v", err)
		writeJSONError(w, r, http.StatusBadGateway, "explainer_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "success",
		"model":        a.explainer.Model(strong),
		"test_product": l.Title,
		"analysis":     res,
	})
}

func (a *App) runsHandler(w http.ResponseWriter, r *http.Request) {
	if a.runs == nil {
		writeJSONError(w, r, http.StatusNotFound, "runs_disabled", "run recording is not enabled")
		return
	}
	limit := storage.DefaultRunsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > storage.MaxRunsLimit {
			writeJSONError(w, r, http.StatusBadRequest, "invalid_request",
				fmt.Sprintf("limit must be an integer between 1 and %d", storage.MaxRunsLimit))
			return
		}
		limit = n
	}
	runs, err := a.runs.RecentRuns(r.Context(), r.URL.Query().Get("query"), limit)
	if err != nil {
		a.logger.Error("[api] listing runs failed: %v", err)
		writeJSONError(w, r, http.StatusInternalServerError, "runs_failed", err.Error())
		return
	}
	if runs == nil {
		runs = []storage.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (a *App) metricsHandler(w http.ResponseWriter, r *http.Request) {
	if a.reader == nil {
		writeJSONError(w, r, http.StatusNotFound, "metrics_disabled", "no in-process metric reader configured")
		return
	}
	snap, err := telemetry.Snapshot(r.Context(), a.reader)
	if err != nil {
		writeJSONError(w, r, http.StatusInternalServerError, "metrics_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
