package storage

import (
	"context"

	"trustcart/models"
)

// ListingWriter exports analyzed listings.
type ListingWriter interface {
	Write(listings []*models.Listing) error
	Close() error
}

// RunRecorder keeps an aggregate summary of each search run. Individual
// listings and their scores are never stored.
type RunRecorder interface {
	RecordRun(ctx context.Context, report *models.SearchReport) error
	Close() error
}
