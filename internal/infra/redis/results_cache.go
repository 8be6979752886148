package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-forge-service/internal/domain"
)

// ResultsLoader fetches a frozen snapshot from the backing quiz store.
type ResultsLoader interface {
	LoadResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error)
}

// ResultsCache caches results snapshots in Redis and falls back to a loader on
// a miss. A Redis read failure is treated as a miss. Loader errors are not cached.
type ResultsCache struct {
	client *redis.Client
	loader ResultsLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewResultsCache(client *redis.Client, loader ResultsLoader, ttl time.Duration) *ResultsCache {
	return &ResultsCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *ResultsCache) GetResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error) {
	if snap, ok := c.lookup(ctx, quizID); ok {
		return snap, nil
	}

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another caller filled it.
		if snap, ok := c.lookup(ctx, quizID); ok {
			return snap, nil
		}
		snap, err := c.loader.LoadResults(ctx, quizID)
		if err != nil {
			return domain.ResultsSnapshot{}, err
		}
		if data, err := json.Marshal(snap); err == nil {
			_ = c.client.Set(ctx, resultsKey(quizID), data, c.ttlWithJitter()).Err()
		}
		return snap, nil
	})
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	return result.(domain.ResultsSnapshot), nil
}

func (c *ResultsCache) lookup(ctx context.Context, quizID string) (domain.ResultsSnapshot, bool) {
	raw, err := c.client.Get(ctx, resultsKey(quizID)).Bytes()
	if err != nil {
		return domain.ResultsSnapshot{}, false
	}
	var snap domain.ResultsSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return domain.ResultsSnapshot{}, false
	}
	return snap, true
}

func (c *ResultsCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
