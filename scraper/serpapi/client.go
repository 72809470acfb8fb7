// Package serpapi implements marketplace sources on top of the SerpAPI
// search endpoint.
package serpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"trustcart/utils"
)

const defaultBaseURL = "https://serpapi.com/search.json"

// ErrNoAPIKey is returned by every search when no key is configured.
var ErrNoAPIKey = errors.New("serpapi: api key required")

// ClientOptions configures a Client.
type ClientOptions struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Logger     *utils.Logger
	HTTPClient *http.Client
}

// Client performs authenticated SerpAPI queries with retry.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	retry   *utils.RetryConfig
	logger  *utils.Logger
}

func NewClient(opts ClientOptions) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = time.Second
	}
	return &Client{
		apiKey:  opts.APIKey,
		baseURL: base,
		http:    hc,
		retry:   &utils.RetryConfig{MaxAttempts: opts.MaxRetries + 1, BaseDelay: delay, Logger: logger},
		logger:  logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Search runs one query and decodes the JSON body into out.
func (c *Client) Search(ctx context.Context, engine string, params url.Values, out any) error {
	if !c.Configured() {
		return ErrNoAPIKey
	}
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("engine", engine)
	q.Set("api_key", c.apiKey)
	endpoint := c.baseURL + "?" + q.Encode()

	return c.retry.Do(ctx, "serpapi "+engine, func() error {
		return c.fetch(ctx, endpoint, out)
	})
}

func (c *Client) fetch(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("serpapi: build request: %w: %w", redactKey(err), utils.ErrPermanent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("serpapi: request: %w", redactKey(err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("serpapi: read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("serpapi: status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("serpapi: status %d: %s: %w", resp.StatusCode, errorMessage(body), utils.ErrPermanent)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("serpapi: decode: %w: %w", err, utils.ErrPermanent)
	}
	return nil
}

// redactKey strips the api_key query parameter from the URL a *url.Error
// carries, so transport errors can be logged.
func redactKey(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	u, perr := url.Parse(ue.URL)
	if perr != nil {
		ue.URL = "<unparseable url>"
		return err
	}
	q := u.Query()
	if q.Has("api_key") {
		q.Set("api_key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	ue.URL = u.String()
	return err
}

func errorMessage(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return http.StatusText(http.StatusBadRequest)
}
