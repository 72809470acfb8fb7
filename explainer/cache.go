package explainer

import (
	"container/list"
	"context"
	"encoding/hex"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spaolacci/murmur3"

	"trustcart/models"
)

// Cache stores explanations by request key. Lookups that fail for any reason
// are reported as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*models.ExplanationResult, bool)
	Set(ctx context.Context, key string, r *models.ExplanationResult)
}

// CacheKey derives the lookup key for one explanation request. The model is
// part of the key so a fast-model answer never satisfies a strong-model call.
func CacheKey(title string, price float64, level models.RiskLevel, model string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(title)))
	b.WriteByte('|')
	b.WriteString(strconv.FormatFloat(price, 'f', 2, 64))
	b.WriteByte('|')
	b.WriteString(string(level))
	b.WriteByte('|')
	b.WriteString(model)

	h1, h2 := murmur3.Sum128([]byte(b.String()))
	var sum [16]byte
	for i := 0; i < 8; i++ {
		sum[i] = byte(h1 >> (56 - 8*i))
		sum[8+i] = byte(h2 >> (56 - 8*i))
	}
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	key     string
	value   models.ExplanationResult
	expires time.Time
}

// MemoryCache is a size-bounded LRU with per-entry expiry.
type MemoryCache struct {
	mu      sync.Mutex
	size    int
	ttl     time.Duration
	order   *list.List
	entries map[string]*list.Element
	now     func() time.Time
}

// NewMemoryCache creates a cache holding at most size entries for ttl each.
// A non-positive ttl keeps entries until they are evicted.
func NewMemoryCache(size int, ttl time.Duration) *MemoryCache {
	if size <= 0 {
		size = 1000
	}
	return &MemoryCache{
		size:    size,
		ttl:     ttl,
		order:   list.New(),
		entries: make(map[string]*list.Element),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.ExplanationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if c.expired(e) {
		c.removeElement(el)
		return nil, false
	}
	c.order.MoveToFront(el)
	return copyResult(&e.value), true
}

func (c *MemoryCache) Set(_ context.Context, key string, r *models.ExplanationResult) {
	if r == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	var expires time.Time
	if c.ttl > 0 {
		expires = c.now().Add(c.ttl)
	}
	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.value = *copyResult(r)
		e.expires = expires
		c.order.MoveToFront(el)
		return
	}

	el := c.order.PushFront(&cacheEntry{key: key, value: *copyResult(r), expires: expires})
	c.entries[key] = el
	for c.order.Len() > c.size {
		c.removeElement(c.order.Back())
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Prune drops expired entries and returns how many were removed.
func (c *MemoryCache) Prune() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if c.expired(el.Value.(*cacheEntry)) {
			c.removeElement(el)
			removed++
		}
		el = prev
	}
	return removed
}

// StartJanitor schedules Prune on a cron spec such as "@every 10m".
// The returned func stops the schedule.
func (c *MemoryCache) StartJanitor(spec string, onPrune func(removed int)) (func(), error) {
	sched := cron.New()
	_, err := sched.AddFunc(spec, func() {
		n := c.Prune()
		if onPrune != nil {
			onPrune(n)
		}
	})
	if err != nil {
		return nil, err
	}
	sched.Start()
	return func() { <-sched.Stop().Done() }, nil
}

func (c *MemoryCache) expired(e *cacheEntry) bool {
	return !e.expires.IsZero() && !c.now().Before(e.expires)
}

func (c *MemoryCache) removeElement(el *list.Element) {
	e := el.Value.(*cacheEntry)
	delete(c.entries, e.key)
	c.order.Remove(el)
}

func copyResult(r *models.ExplanationResult) *models.ExplanationResult {
	out := *r
	if r.RedFlags != nil {
		out.RedFlags = append([]string(nil), r.RedFlags...)
	}
	return &out
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) (*models.ExplanationResult, bool) { return nil, false }
func (NopCache) Set(context.Context, string, *models.ExplanationResult)        {}
