package memory

import (
	"context"
	"sync"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/domain"
)

// FeedStore is an in-memory implementation of app.FeedRepository for a single
// process.
type FeedStore struct {
	mu    sync.RWMutex
	feeds map[string]*app.Feed
}

func NewFeedStore() *FeedStore {
	return &FeedStore{feeds: make(map[string]*app.Feed)}
}

func (s *FeedStore) GetOrCreate(quizID string) *app.Feed {
	s.mu.Lock()
	defer s.mu.Unlock()
	if feed, ok := s.feeds[quizID]; ok {
		return feed
	}
	feed := app.NewFeed(quizID)
	s.feeds[quizID] = feed
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
	if !ok {
		return
	}
	if feed.IsEmpty() {
		delete(s.feeds, quizID)
	}
}

// Publish delivers to local subscribers only. Nobody listening is not an error.
func (s *FeedStore) Publish(_ context.Context, ev domain.QuizEvent) error {
	if feed, ok := s.Get(ev.QuizID); ok {
		feed.Publish(ev)
	}
	return nil
}
