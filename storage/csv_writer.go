package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"trustcart/models"
)

var csvHeader = []string{
	"platform", "title", "price", "price_raw", "condition", "rating", "reviews", "seller",
	"is_valid", "invalid_reason", "risk_score", "risk_level", "price_tier", "price_percentile",
	"risk_factors", "recommendation", "analysis_origin", "link",
}

// CSVWriter exports analyzed listings to a CSV file.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends one row per listing.
func (c *CSVWriter) Write(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		if err := c.writer.Write(listingRow(l)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func listingRow(l *models.Listing) []string {
	var recommendation, origin string
	if a := l.FraudAnalysis; a != nil {
		recommendation = string(a.Recommendation)
		origin = string(a.Origin)
	}
	return []string{
		l.Platform,
		l.Title,
		strconv.FormatFloat(l.Price, 'f', 2, 64),
		l.PriceRaw,
		string(l.Condition),
		strconv.FormatFloat(l.Rating, 'f', 1, 64),
		strconv.Itoa(l.ReviewCount),
		l.Seller.Name,
		strconv.FormatBool(l.IsValid),
		l.InvalidReason,
		strconv.FormatFloat(l.RiskScore, 'f', 2, 64),
		string(l.RiskLevel),
		string(l.PriceTier),
		strconv.FormatFloat(l.PricePercentile, 'f', 1, 64),
		strings.Join(l.RiskFactors, "; "),
		recommendation,
		origin,
		l.Link,
	}
}
