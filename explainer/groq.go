package explainer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"trustcart/models"
	"trustcart/utils"
)

const systemPrompt = `You are an expert fraud detection system analyzing online shopping listings.

Focus on these scam indicators:
- Unrealistic pricing (too cheap)
- Fake/missing reviews
- Poor grammar or exaggerated claims ("AMAZING DEAL!!!")
- Suspicious seller patterns (no rating, new account)
- Vague product descriptions

Return analysis as JSON with these exact fields:
{
  "scam_probability": <float 0.0-1.0>,
  "red_flags": [<list of specific red flags found>],
  "reasoning": "<2-3 sentence explanation>",
  "recommendation": "<AVOID/CAUTION/SAFE>"
}

Be specific, concise, and actionable.`

// GroqOptions configures a GroqClient.
type GroqOptions struct {
	APIKey      string
	BaseURL     string
	FastModel   string
	StrongModel string
	Timeout     time.Duration
	MaxRetries  int
	RetryDelay  time.Duration
	Logger      *utils.Logger
	HTTPClient  *http.Client
}

// GroqClient talks to an OpenAI-compatible chat completions endpoint.
type GroqClient struct {
	apiKey      string
	baseURL     string
	fastModel   string
	strongModel string
	http        *http.Client
	retry       *utils.RetryConfig
	logger      *utils.Logger
}

// NewGroqClient creates a client. An empty API key yields a disabled client.
func NewGroqClient(opts GroqOptions) *GroqClient {
	logger := opts.Logger
	if logger == nil {
		logger = utils.Discard()
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	delay := opts.RetryDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	return &GroqClient{
		apiKey:      strings.TrimSpace(opts.APIKey),
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		fastModel:   opts.FastModel,
		strongModel: opts.StrongModel,
		http:        hc,
		retry: &utils.RetryConfig{
			MaxAttempts: opts.MaxRetries + 1,
			BaseDelay:   delay,
			Logger:      logger,
		},
		logger: logger,
	}
}

func (c *GroqClient) Enabled() bool { return c.apiKey != "" }

func (c *GroqClient) Model(strong bool) string {
	if strong {
		return c.strongModel
	}
	return c.fastModel
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature"`
	MaxTokens      int               `json:"max_tokens"`
	ResponseFormat map[string]string `json:"response_format"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type analysisPayload struct {
	ScamProbability float64  `json:"scam_probability"`
	RedFlags        []string `json:"red_flags"`
	Reasoning       string   `json:"reasoning"`
	Recommendation  string   `json:"recommendation"`
}

// ExplainRisk asks the configured model for an explanation of req.
func (c *GroqClient) ExplainRisk(ctx context.Context, req Request) (*models.ExplanationResult, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	model := c.Model(req.UseStrongModel)

	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: BuildPrompt(req)},
		},
		Temperature:    0.3,
		MaxTokens:      200,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("groq: encode request: %w", err)
	}

	var content string
	err = c.retry.Do(ctx, "groq "+model, func() error {
		var callErr error
		content, callErr = c.complete(ctx, body)
		return callErr
	})
	if err != nil {
		return nil, err
	}

	var payload analysisPayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("groq: decode analysis: %w: %w", ErrBadResponse, err)
	}

	prob := clampProbability(payload.ScamProbability)
	return &models.ExplanationResult{
		ScamProbability: prob,
		RedFlags:        nonNil(payload.RedFlags),
		Reasoning:       strings.TrimSpace(payload.Reasoning),
		Recommendation:  NormaliseRecommendation(payload.Recommendation, prob),
		Origin:          models.OriginGenerated,
		Model:           model,
	}, nil
}

func (c *GroqClient) complete(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("groq: build request: %w: %w", ErrBadResponse, utils.ErrPermanent)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("groq: request: %w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("groq: read body: %w: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("groq: status %d: %w", resp.StatusCode, ErrUnavailable)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("groq: status %d: %w: %w", resp.StatusCode, ErrUnavailable, utils.ErrPermanent)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("groq: status %d: %w: %w", resp.StatusCode, ErrBadResponse, utils.ErrPermanent)
	}

	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("groq: decode response: %w: %w", ErrBadResponse, utils.ErrPermanent)
	}
	if len(cr.Choices) == 0 || strings.TrimSpace(cr.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("groq: empty completion: %w: %w", ErrBadResponse, utils.ErrPermanent)
	}
	return cr.Choices[0].Message.Content, nil
}

// BuildPrompt renders the user prompt for req.
func BuildPrompt(req Request) string {
	l := req.Listing
	var b strings.Builder
	b.WriteString("Analyze this product listing for fraud:\n\n")
	fmt.Fprintf(&b, "PRODUCT: %s\n", l.Title)
	fmt.Fprintf(&b, "PRICE: $%.2f\n", l.Price)
	fmt.Fprintf(&b, "PLATFORM: %s\n", l.Platform)
	fmt.Fprintf(&b, "SELLER: %s\n", l.Seller.Name)
	fmt.Fprintf(&b, "RATING: %.1f/5 (%d reviews)\n", l.Rating, l.ReviewCount)
	fmt.Fprintf(&b, "RISK LEVEL: %s (score %.2f)\n", req.RiskLevel, req.RiskScore)

	if s := req.PriceStats; !s.Empty() && s.Median > 0 && l.Price > 0 {
		deviation := int((s.Median - l.Price) / s.Median * 100)
		if deviation > 0 {
			fmt.Fprintf(&b, "Price is %d%% below the typical price ($%.2f median of %d listings)\n", deviation, s.Median, s.Count)
		} else {
			fmt.Fprintf(&b, "Price is %d%% above the typical price ($%.2f median of %d listings)\n", -deviation, s.Median, s.Count)
		}
	}

	b.WriteString("\nDETECTED RISK FACTORS:\n")
	if len(req.RiskFactors) == 0 {
		b.WriteString("- none\n")
	}
	for _, f := range req.RiskFactors {
		fmt.Fprintf(&b, "- %s\n", f)
	}
	b.WriteString("\nAnalyze and return JSON with scam_probability, red_flags, reasoning, and recommendation.")
	return b.String()
}

// NormaliseRecommendation maps free-form model output onto a Recommendation,
// falling back to the probability when the text is unrecognised.
func NormaliseRecommendation(s string, prob float64) models.Recommendation {
	u := strings.ToUpper(s)
	switch {
	case strings.Contains(u, "AVOID"):
		return models.RecommendAvoid
	case strings.Contains(u, "CAUTION"):
		return models.RecommendCaution
	case strings.Contains(u, "SAFE"):
		return models.RecommendSafe
	case prob >= 0.6:
		return models.RecommendAvoid
	case prob >= 0.3:
		return models.RecommendCaution
	}
	return models.RecommendSafe
}

func clampProbability(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
