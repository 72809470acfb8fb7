// Package scraper defines the contract marketplace sources implement.
package scraper

import (
	"context"

	"trustcart/models"
)

// SearchParams narrows a marketplace search. Zero values mean "no filter".
type SearchParams struct {
	Query        string
	NumResults   int
	MaxPrice     float64
	Condition    models.Condition
	BuyItNowOnly bool
}

// Source fetches listings from one marketplace and normalises them into
// RawListings. Implementations must be safe for concurrent use.
type Source interface {
	// Name is the short key used in requests ("google", "ebay").
	Name() string
	// Platform is the value written to Listing.Platform.
	Platform() string
	Search(ctx context.Context, params SearchParams) ([]*models.RawListing, error)
}
