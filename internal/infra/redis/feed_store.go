package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/logger"
)

// FeedStore is a Redis-backed implementation of app.FeedRepository.
//   - Feeds and their subscribers live in this process, as in the memory store.
//   - Events go out over Redis pub/sub so answers accepted by any instance
//     reach subscribers connected to every other instance.
//   - quiz:{id}:viewers counts instances holding a feed, letting Publish skip
//     quizzes nobody is watching.
type FeedStore struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger

	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore(client *redis.Client, ttl time.Duration, log *logger.Logger) *FeedStore {
	if log == nil {
		log = logger.NewNop()
	}
	return &FeedStore{
		client: client,
		ttl:    ttl,
		log:    log,
		feeds:  make(map[string]*app.Feed),
	}
}

func (s *FeedStore) GetOrCreate(quizID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[quizID]; ok {
		return feed
	}
	feed := app.NewFeed(quizID)
	s.feeds[quizID] = feed

	ctx := context.Background()
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, viewersKey(quizID))
	if s.ttl > 0 {
		pipe.Expire(ctx, viewersKey(quizID), s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn("mark quiz viewer failed", "quiz_id", quizID, "error", err)
	}
	return feed
}

func (s *FeedStore) Get(quizID string) (*app.Feed, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	feed, ok := s.feeds[quizID]
	return feed, ok
}

func (s *FeedStore) DeleteIfEmpty(quizID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	feed, ok := s.feeds[quizID]
	if !ok || !feed.IsEmpty() {
		return
	}
	delete(s.feeds, quizID)

	ctx := context.Background()
	n, err := s.client.Decr(ctx, viewersKey(quizID)).Result()
	if err != nil {
		s.log.Warn("unmark quiz viewer failed", "quiz_id", quizID, "error", err)
		return
	}
	if n <= 0 {
		_ = s.client.Del(ctx, viewersKey(quizID)).Err()
	}
}

// Publish sends ev to every instance. Quizzes without viewers are skipped.
func (s *FeedStore) Publish(ctx context.Context, ev domain.QuizEvent) error {
	viewers, err := s.client.Get(ctx, viewersKey(ev.QuizID)).Int64()
	if errors.Is(err, redis.Nil) || (err == nil && viewers <= 0) {
		return nil
	}
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode quiz event: %w", err)
	}
	return s.client.Publish(ctx, eventsChannel(ev.QuizID), data).Err()
}

// Listen subscribes to quiz events and relays them to local feeds until ctx is
// done. It returns once the subscription is confirmed.
func (s *FeedStore) Listen(ctx context.Context) error {
	pubsub := s.client.PSubscribe(ctx, eventsPattern)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("subscribe %s: %w", eventsPattern, err)
	}

	go func() {
		defer pubsub.Close()
		messages := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				s.deliver(msg.Payload)
			}
		}
	}()
	return nil
}

func (s *FeedStore) deliver(payload string) {
	var ev domain.QuizEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.log.Warn("drop malformed quiz event", "error", err)
		return
	}
	if feed, ok := s.Get(ev.QuizID); ok {
		feed.Publish(ev)
	}
}
