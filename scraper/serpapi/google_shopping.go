package serpapi

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"trustcart/models"
	"trustcart/scraper"
)

const (
	googleEngine   = "google_shopping"
	googlePlatform = "google_shopping"
)

// GoogleShopping searches Google Shopping. Results are assumed new.
type GoogleShopping struct {
	client *Client
	now    func() time.Time
}

func NewGoogleShopping(client *Client) *GoogleShopping {
	return &GoogleShopping{client: client, now: time.Now}
}

func (g *GoogleShopping) Name() string     { return "google" }
func (g *GoogleShopping) Platform() string { return googlePlatform }

type googleResponse struct {
	ShoppingResults []googleResult `json:"shopping_results"`
}

type googleResult struct {
	Title       string  `json:"title"`
	Price       string  `json:"price"`
	Source      string  `json:"source"`
	Link        string  `json:"link"`
	ProductLink string  `json:"product_link"`
	Thumbnail   string  `json:"thumbnail"`
	Rating      float64 `json:"rating"`
	Reviews     int     `json:"reviews"`
	ProductID   string  `json:"product_id"`
}

func (g *GoogleShopping) Search(ctx context.Context, p scraper.SearchParams) ([]*models.RawListing, error) {
	params := url.Values{}
	params.Set("q", p.Query)
	params.Set("gl", "us")
	params.Set("hl", "en")
	if p.NumResults > 0 {
		params.Set("num", strconv.Itoa(p.NumResults))
	}

	var resp googleResponse
	if err := g.client.Search(ctx, googleEngine, params, &resp); err != nil {
		return nil, fmt.Errorf("google shopping %q: %w", p.Query, err)
	}

	scrapedAt := g.now().UTC()
	out := make([]*models.RawListing, 0, len(resp.ShoppingResults))
	for _, r := range resp.ShoppingResults {
		if p.NumResults > 0 && len(out) >= p.NumResults {
			break
		}
		link := r.Link
		if link == "" {
			link = r.ProductLink
		}
		out = append(out, &models.RawListing{
			Title:       r.Title,
			Price:       r.Price,
			Link:        link,
			Thumbnail:   r.Thumbnail,
			Source:      r.Source,
			Platform:    googlePlatform,
			Rating:      r.Rating,
			ReviewCount: r.Reviews,
			Seller:      models.Seller{Name: r.Source, Rating: r.Rating},
			Condition:   models.ConditionNew,
			ProductID:   r.ProductID,
			ScrapedAt:   scrapedAt,
		})
	}
	return out, nil
}
