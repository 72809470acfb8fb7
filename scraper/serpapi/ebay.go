package serpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"trustcart/models"
	"trustcart/scraper"
)

const (
	ebayEngine        = "ebay"
	ebayPlatform      = "ebay"
	ebaySource        = "eBay"
	defaultEbaySeller = "eBay Seller"
)

// eBay LH_ItemCondition codes.
var ebayConditionCodes = map[models.Condition]string{
	models.ConditionNew:         "3",
	models.ConditionUsed:        "4",
	models.ConditionRefurbished: "2000",
}

// Ebay searches eBay.com organic results.
type Ebay struct {
	client *Client
	now    func() time.Time
}

func NewEbay(client *Client) *Ebay {
	return &Ebay{client: client, now: time.Now}
}

func (e *Ebay) Name() string     { return "ebay" }
func (e *Ebay) Platform() string { return ebayPlatform }

type ebayResponse struct {
	OrganicResults []ebayResult `json:"organic_results"`
}

type ebayResult struct {
	Title     string          `json:"title"`
	Price     json.RawMessage `json:"price"`
	Link      string          `json:"link"`
	Thumbnail string          `json:"thumbnail"`
	Condition string          `json:"condition"`
	Position  int             `json:"position"`
	Seller    struct {
		Name     string  `json:"name"`
		Username string  `json:"username"`
		Rating   float64 `json:"rating"`
	} `json:"seller"`
}

func (e *Ebay) Search(ctx context.Context, p scraper.SearchParams) ([]*models.RawListing, error) {
	params := url.Values{}
	params.Set("ebay_domain", "ebay.com")
	params.Set("_nkw", p.Query)
	if p.MaxPrice > 0 {
		params.Set("_udhi", strconv.FormatFloat(p.MaxPrice, 'f', -1, 64))
	}
	if p.BuyItNowOnly {
		params.Set("LH_BIN", "1")
	}
	if code, ok := ebayConditionCodes[p.Condition]; ok {
		params.Set("LH_ItemCondition", code)
	}

	var resp ebayResponse
	if err := e.client.Search(ctx, ebayEngine, params, &resp); err != nil {
		return nil, fmt.Errorf("ebay %q: %w", p.Query, err)
	}

	scrapedAt := e.now().UTC()
	out := make([]*models.RawListing, 0, len(resp.OrganicResults))
	for _, r := range resp.OrganicResults {
		if p.NumResults > 0 && len(out) >= p.NumResults {
			break
		}
		seller := r.Seller.Name
		if seller == "" {
			seller = r.Seller.Username
		}
		if seller == "" {
			seller = defaultEbaySeller
		}
		out = append(out, &models.RawListing{
			Title:     r.Title,
			Price:     ebayPrice(r.Price),
			Link:      r.Link,
			Thumbnail: r.Thumbnail,
			Source:    ebaySource,
			Platform:  ebayPlatform,
			Seller:    models.Seller{Name: seller, Rating: r.Seller.Rating},
			Condition: DetectEbayCondition(r.Condition, r.Title),
			ProductID: strconv.Itoa(r.Position),
			ScrapedAt: scrapedAt,
		})
	}
	return out, nil
}

// ebayPrice extracts the display price, which SerpAPI sends either as a plain
// string, as {"raw": ...} or as a {"from": {...}, "to": {...}} range.
func ebayPrice(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var obj struct {
		Raw  string `json:"raw"`
		From struct {
			Raw string `json:"raw"`
		} `json:"from"`
	}
	if json.Unmarshal(raw, &obj) == nil {
		if obj.Raw != "" {
			return obj.Raw
		}
		return obj.From.Raw
	}
	return ""
}

// DetectEbayCondition prefers eBay's condition field and falls back to
// keywords in the title.
func DetectEbayCondition(condition, title string) models.Condition {
	c := strings.ToLower(condition)
	switch {
	case strings.Contains(c, "new"):
		return models.ConditionNew
	case strings.Contains(c, "refurbished"), strings.Contains(c, "renewed"):
		return models.ConditionRefurbished
	case strings.Contains(c, "used"), strings.Contains(c, "pre-owned"):
		return models.ConditionUsed
	}

	t := strings.ToLower(title)
	switch {
	case containsAny(t, "brand new", "new in box", "nib", "sealed"):
		return models.ConditionNew
	case containsAny(t, "refurbished", "renewed", "restored"):
		return models.ConditionRefurbished
	case containsAny(t, "used", "pre-owned", "preowned"):
		return models.ConditionUsed
	}
	return models.ConditionUnknown
}

func containsAny(s string, terms ...string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}
