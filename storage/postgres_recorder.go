package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"trustcart/models"
)

// RunSummary is one recorded search run.
type RunSummary struct {
	RunID           string         `json:"run_id"`
	Query           string         `json:"query"`
	Platforms       []string       `json:"platforms"`
	RiskProfile     string         `json:"risk_profile"`
	TotalResults    int            `json:"total_results"`
	ValidProducts   int            `json:"valid_products"`
	FilteredOut     int            `json:"filtered_out"`
	FilteredReasons map[string]int `json:"filtered_reasons"`
	HighRisk        int            `json:"high_risk_count"`
	MediumRisk      int            `json:"medium_risk_count"`
	LowRisk         int            `json:"low_risk_count"`
	MedianPrice     float64        `json:"median_price"`
	CreatedAt       time.Time      `json:"created_at"`
}

// SummaryFromReport reduces a report to the fields that are recorded.
func SummaryFromReport(r *models.SearchReport) RunSummary {
	reasons := r.FilteredReasons
	if reasons == nil {
		reasons = map[string]int{}
	}
	return RunSummary{
		RunID:           r.RunID,
		Query:           r.Query,
		Platforms:       append([]string{}, r.PlatformsSearched...),
		RiskProfile:     r.RiskProfile,
		TotalResults:    r.TotalResults,
		ValidProducts:   r.ValidProducts,
		FilteredOut:     r.FilteredOut,
		FilteredReasons: reasons,
		HighRisk:        r.RiskSummary.High,
		MediumRisk:      r.RiskSummary.Medium,
		LowRisk:         r.RiskSummary.Low,
		MedianPrice:     r.PriceStatistics.Median,
		CreatedAt:       r.GeneratedAt,
	}
}

// PostgresRecorder stores run summaries in PostgreSQL.
type PostgresRecorder struct {
	db *sql.DB
}

// NewPostgresRecorder opens a connection to PostgreSQL, runs schema
// migrations, and returns a ready-to-use recorder.
func NewPostgresRecorder(ctx context.Context, dsn string) (*PostgresRecorder, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 5; i++ {
		if err = db.PingContext(ctx); err == nil {
			break
		}
		select {
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("postgres: ping: %w", ctx.Err())
		case <-time.After(2 * time.Second):
		}
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pr := &PostgresRecorder{db: db}
	if err := pr.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pr, nil
}

func (pr *PostgresRecorder) migrate(ctx context.Context) error {
	_, err := pr.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_runs (
			run_id           UUID          PRIMARY KEY,
			query            TEXT          NOT NULL,
			platforms        TEXT[]        NOT NULL DEFAULT '{}',
			risk_profile     VARCHAR(16)   NOT NULL DEFAULT '',
			total_results    INTEGER       NOT NULL DEFAULT 0,
			valid_products   INTEGER       NOT NULL DEFAULT 0,
			filtered_out     INTEGER       NOT NULL DEFAULT 0,
			filtered_reasons JSONB         NOT NULL DEFAULT '{}',
			high_risk        INTEGER       NOT NULL DEFAULT 0,
			medium_risk      INTEGER       NOT NULL DEFAULT 0,
			low_risk         INTEGER       NOT NULL DEFAULT 0,
			median_price     NUMERIC(12,2) NOT NULL DEFAULT 0,
			created_at       TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_search_runs_created ON search_runs(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_search_runs_query   ON search_runs(lower(query));
	`)
	return err
}

// RecordRun inserts the summary of report. Re-recording a run id is a no-op.
func (pr *PostgresRecorder) RecordRun(ctx context.Context, report *models.SearchReport) error {
	s := SummaryFromReport(report)
	reasons, err := json.Marshal(s.FilteredReasons)
	if err != nil {
		return fmt.Errorf("postgres: encode reasons: %w", err)
	}
	created := s.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}

	_, err = pr.db.ExecContext(ctx, `
		INSERT INTO search_runs (run_id, query, platforms, risk_profile, total_results, valid_products,
			filtered_out, filtered_reasons, high_risk, medium_risk, low_risk, median_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		ON CONFLICT (run_id) DO NOTHING
	`, s.RunID, s.Query, pq.Array(s.Platforms), s.RiskProfile, s.TotalResults, s.ValidProducts,
		s.FilteredOut, string(reasons), s.HighRisk, s.MediumRisk, s.LowRisk, s.MedianPrice, created)
	if err != nil {
		return fmt.Errorf("postgres: record run %s: %w", s.RunID, err)
	}
	return nil
}

// Limits for RecentRuns. The HTTP layer validates against the same bounds.
const (
	DefaultRunsLimit = 20
	MaxRunsLimit     = 200
)

// ClampRunsLimit maps n into [1, MaxRunsLimit]. Non-positive n selects
// DefaultRunsLimit.
func ClampRunsLimit(n int) int {
	switch {
	case n <= 0:
		return DefaultRunsLimit
	case n > MaxRunsLimit:
		return MaxRunsLimit
	}
	return n
}

// RecentRuns returns the latest runs, newest first. A non-empty query
// restricts the result to runs of that query (case-insensitive).
func (pr *PostgresRecorder) RecentRuns(ctx context.Context, query string, limit int) ([]RunSummary, error) {
	limit = ClampRunsLimit(limit)
	rows, err := pr.db.QueryContext(ctx, `
		SELECT run_id, query, platforms, risk_profile, total_results, valid_products, filtered_out,
			filtered_reasons, high_risk, medium_risk, low_risk, median_price, created_at
		FROM search_runs
		WHERE $1 = '' OR lower(query) = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, strings.ToLower(strings.TrimSpace(query)), limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: recent runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0, limit)
	for rows.Next() {
		var s RunSummary
		var reasons []byte
		if err := rows.Scan(
			&s.RunID, &s.Query, pq.Array(&s.Platforms), &s.RiskProfile, &s.TotalResults,
			&s.ValidProducts, &s.FilteredOut, &reasons, &s.HighRisk, &s.MediumRisk,
			&s.LowRisk, &s.MedianPrice, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if err := json.Unmarshal(reasons, &s.FilteredReasons); err != nil {
			return nil, fmt.Errorf("postgres: decode reasons: %w", err)
		}
		runs = append(runs, s)
	}
	return runs, rows.Err()
}

func (pr *PostgresRecorder) Close() error {
	return pr.db.Close()
}
