package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"quiz-forge-service/internal/domain"
)

// ResultsLoader fetches a frozen snapshot from the backing quiz store.
type ResultsLoader interface {
	LoadResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error)
}

// ResultsCache caches results snapshots with TTL to avoid repeated store hits.
// Snapshots never change once written, so staleness is not a concern; errors
// such as ErrResultsNotReady are never cached.
type ResultsCache struct {
	loader ResultsLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.Mutex
	rnd   *rand.Rand
	cache map[string]cachedResults
}

type cachedResults struct {
	snapshot  domain.ResultsSnapshot
	expiresAt time.Time
}

func NewResultsCache(loader ResultsLoader, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedResults),
	}
}

func (c *ResultsCache) GetResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error) {
	if snap, ok := c.lookup(quizID); ok {
		return snap, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		if snap, ok := c.lookup(quizID); ok {
			return snap, nil
		}
		snap, err := c.loader.LoadResults(ctx, quizID)
		if err != nil {
			return domain.ResultsSnapshot{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedResults{
			snapshot:  snap,
			expiresAt: c.clock().Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return snap, nil
	})
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	return result.(domain.ResultsSnapshot), nil
}

func (c *ResultsCache) lookup(quizID string) (domain.ResultsSnapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache[quizID]
	if !ok || !entry.expiresAt.After(c.clock()) {
		return domain.ResultsSnapshot{}, false
	}
	return entry.snapshot, true
}

// ttlWithJitter adds up to 10% to spread expirations. Called with c.mu held.
func (c *ResultsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
