package services

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"trustcart/explainer"
	"trustcart/models"
	"trustcart/telemetry"
	"trustcart/utils"
)

const (
	defaultMaxHigh   = 3
	defaultMaxMedium = 2

	reasoningLow    = "This listing appears legitimate with reasonable pricing and good seller reputation."
	reasoningMedium = "This listing has some minor concerns. Verify seller details before purchasing."
	reasoningHigh   = "This listing shows multiple warning signs. Exercise extreme caution or avoid."
)

// BudgetOptions tunes which listings receive a generated explanation and how
// the calls are made. Zero values select the defaults.
type BudgetOptions struct {
	MaxHigh        int
	MaxMedium      int
	Policy         explainer.EscalationPolicy
	Cache          explainer.Cache
	MaxConcurrency int
	RateLimitMs    int
	Metrics        *telemetry.Metrics
	Logger         *utils.Logger
}

// Budgeter spends a bounded number of explainer calls on the riskiest
// listings of a batch and gives every other valid listing a deterministic
// default explanation.
type Budgeter struct {
	explainer   explainer.Explainer
	maxHigh     int
	maxMedium   int
	policy      explainer.EscalationPolicy
	cache       explainer.Cache
	concurrency int
	rateLimitMs int
	metrics     *telemetry.Metrics
	logger      *utils.Logger

	// inflight collapses concurrent calls sharing a cache key.
	inflight singleflight.Group
}

// NewBudgeter creates a Budgeter. A nil explainer behaves as disabled.
func NewBudgeter(exp explainer.Explainer, opts BudgetOptions) *Budgeter {
	if exp == nil {
		exp = explainer.Disabled{}
	}
	if opts.MaxHigh <= 0 {
		opts.MaxHigh = defaultMaxHigh
	}
	if opts.MaxMedium <= 0 {
		opts.MaxMedium = defaultMaxMedium
	}
	if opts.Policy == nil {
		opts.Policy = explainer.UncertainHigh{Low: 0.4, High: 0.6}
	}
	if opts.Cache == nil {
		opts.Cache = explainer.NopCache{}
	}
	if opts.MaxConcurrency < 1 {
		opts.MaxConcurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = utils.Discard()
	}
	return &Budgeter{
		explainer:   exp,
		maxHigh:     opts.MaxHigh,
		maxMedium:   opts.MaxMedium,
		policy:      opts.Policy,
		cache:       opts.Cache,
		concurrency: opts.MaxConcurrency,
		rateLimitMs: opts.RateLimitMs,
		metrics:     opts.Metrics,
		logger:      opts.Logger,
	}
}

// Select returns the listings that qualify for a generated explanation:
// the top HIGH listings by score, then the top MEDIUM listings by score.
// Ties keep input order.
func (b *Budgeter) Select(valid []*models.Listing) []*models.Listing {
	var high, medium []*models.Listing
	for _, l := range valid {
		switch l.RiskLevel {
		case models.RiskHigh:
			high = append(high, l)
		case models.RiskMedium:
			medium = append(medium, l)
		}
	}
	byScore := func(s []*models.Listing) {
		sort.SliceStable(s, func(i, j int) bool { return s[i].RiskScore > s[j].RiskScore })
	}
	byScore(high)
	byScore(medium)

	selected := make([]*models.Listing, 0, b.maxHigh+b.maxMedium)
	selected = append(selected, high[:minInt(len(high), b.maxHigh)]...)
	selected = append(selected, medium[:minInt(len(medium), b.maxMedium)]...)
	return selected
}

// Enrich attaches exactly one FraudAnalysis to every listing in valid and
// returns the slice. Explainer failures never surface to the caller.
func (b *Budgeter) Enrich(ctx context.Context, valid []*models.Listing, stats models.PriceStats) []*models.Listing {
	for _, l := range valid {
		l.FraudAnalysis = nil
	}

	selected := b.Select(valid)
	if len(selected) > 0 && b.explainer.Enabled() {
		b.logger.Info("[budget] explaining %d of %d listings", len(selected), len(valid))
		b.explainAll(ctx, selected, stats)
	} else if len(selected) > 0 {
		b.logger.Debug("[budget] explainer disabled, using defaults for %d listings", len(valid))
	}

	for _, l := range valid {
		if l.FraudAnalysis == nil {
			l.FraudAnalysis = DefaultExplanation(l)
		}
	}
	return valid
}

func (b *Budgeter) explainAll(ctx context.Context, selected []*models.Listing, stats models.PriceStats) {
	var unavailable atomic.Bool

	if b.concurrency == 1 && b.rateLimitMs <= 0 {
		for _, l := range selected {
			l.FraudAnalysis = b.explainOne(ctx, l, stats, &unavailable)
		}
		return
	}

	pool := utils.NewWorkerPool(b.concurrency, b.rateLimitMs)
	for _, l := range selected {
		l := l
		pool.Submit(func() {
			l.FraudAnalysis = b.explainOne(ctx, l, stats, &unavailable)
		})
	}
	pool.Wait()
}

// explainOne runs the fast model and, when the policy asks for it, the strong
// model. A failed escalation keeps the fast result.
func (b *Budgeter) explainOne(ctx context.Context, l *models.Listing, stats models.PriceStats, unavailable *atomic.Bool) *models.ExplanationResult {
	first := b.call(ctx, l, stats, false, unavailable)
	if first == nil {
		return nil
	}
	if !b.policy.ShouldEscalate(l.RiskLevel, first) {
		return first
	}
	b.metrics.Escalation(ctx)
	b.logger.Debug("[budget] escalating %q (p=%.2f)", l.Title, first.ScamProbability)
	if second := b.call(ctx, l, stats, true, unavailable); second != nil {
		return second
	}
	return first
}

func (b *Budgeter) call(ctx context.Context, l *models.Listing, stats models.PriceStats, strong bool, unavailable *atomic.Bool) *models.ExplanationResult {
	model := b.explainer.Model(strong)
	key := explainer.CacheKey(l.Title, l.Price, l.RiskLevel, model)
	if cached, ok := b.cache.Get(ctx, key); ok {
		b.metrics.CacheHit(ctx)
		return cached
	}
	if unavailable.Load() || ctx.Err() != nil {
		return nil
	}

	v, _, shared := b.inflight.Do(key, func() (any, error) {
		// A flight that finished just before this one may have filled the cache.
		if cached, ok := b.cache.Get(ctx, key); ok {
			b.metrics.CacheHit(ctx)
			return cached, nil
		}
		return b.invoke(ctx, l, stats, strong, model, key, unavailable), nil
	})
	res, _ := v.(*models.ExplanationResult)
	if res == nil {
		return nil
	}
	if shared {
		return copyExplanation(res)
	}
	return res
}

func (b *Budgeter) invoke(ctx context.Context, l *models.Listing, stats models.PriceStats, strong bool, model, key string, unavailable *atomic.Bool) *models.ExplanationResult {
	if unavailable.Load() {
		return nil
	}
	res, err := b.explainer.ExplainRisk(ctx, explainer.Request{
		Listing:        l,
		RiskLevel:      l.RiskLevel,
		RiskScore:      l.RiskScore,
		RiskFactors:    l.RiskFactors,
		PriceStats:     stats,
		UseStrongModel: strong,
	})
	b.metrics.ExplainCall(ctx, model, err == nil && res != nil)
	if err != nil {
		if errors.Is(err, explainer.ErrUnavailable) {
			if unavailable.CompareAndSwap(false, true) {
				b.logger.Warn("[budget] explainer unavailable, skipping remaining calls: %v", err)
			}
		} else {
			b.logger.Warn("[budget] explain %q: %v", l.Title, err)
		}
		return nil
	}
	if res == nil {
		return nil
	}
	if res.Origin == "" {
		res.Origin = models.OriginGenerated
	}
	if res.Model == "" {
		res.Model = model
	}
	b.cache.Set(ctx, key, res)
	return res
}

func copyExplanation(r *models.ExplanationResult) *models.ExplanationResult {
	c := *r
	c.RedFlags = append([]string(nil), r.RedFlags...)
	return &c
}

// DefaultExplanation derives an explanation from the listing's own risk
// annotations. Its scam probability is the risk score.
func DefaultExplanation(l *models.Listing) *models.ExplanationResult {
	res := &models.ExplanationResult{
		ScamProbability: l.RiskScore,
		RedFlags:        []string{},
		Origin:          models.OriginDefault,
	}
	switch l.RiskLevel {
	case models.RiskHigh:
		res.Recommendation = models.RecommendAvoid
		res.Reasoning = reasoningHigh
		res.RedFlags = append(res.RedFlags, l.RiskFactors...)
	case models.RiskMedium:
		res.Recommendation = models.RecommendCaution
		res.Reasoning = reasoningMedium
		res.RedFlags = append(res.RedFlags, l.RiskFactors...)
	default:
		res.Recommendation = models.RecommendSafe
		res.Reasoning = reasoningLow
	}
	return res
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
