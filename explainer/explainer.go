// Package explainer produces natural-language fraud explanations for risky
// listings. The capability is optional: when disabled or unreachable callers
// fall back to deterministic defaults.
package explainer

import (
	"context"
	"errors"

	"trustcart/models"
)

var (
	// ErrDisabled is returned when no explanation backend is configured.
	ErrDisabled = errors.New("explainer: disabled")
	// ErrUnavailable wraps failures that mean the backend cannot be reached
	// for now (network, auth, rate limit, 5xx).
	ErrUnavailable = errors.New("explainer: unavailable")
	// ErrBadResponse wraps replies that could not be turned into a result.
	ErrBadResponse = errors.New("explainer: bad response")
)

// Request carries everything the backend sees about one listing.
type Request struct {
	Listing        *models.Listing
	RiskLevel      models.RiskLevel
	RiskScore      float64
	RiskFactors    []string
	PriceStats     models.PriceStats
	UseStrongModel bool
}

// Explainer maps a risky listing to a structured explanation.
type Explainer interface {
	Enabled() bool
	// Model names the backend variant a request would be served by.
	Model(strong bool) string
	ExplainRisk(ctx context.Context, req Request) (*models.ExplanationResult, error)
}

// Disabled is an Explainer that never produces anything.
type Disabled struct{}

func (Disabled) Enabled() bool     { return false }
func (Disabled) Model(bool) string { return "" }
func (Disabled) ExplainRisk(context.Context, Request) (*models.ExplanationResult, error) {
	return nil, ErrDisabled
}
