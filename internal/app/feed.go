package app

import (
	"context"
	"sync"

	"quiz-forge-service/internal/domain"
)

// FeedRepository tracks live feeds per quiz (in-memory, Redis relay, etc).
type FeedRepository interface {
	GetOrCreate(quizID string) *Feed
	Get(quizID string) (*Feed, bool)
	DeleteIfEmpty(quizID string)
	// Publish delivers ev to every subscriber of ev.QuizID, wherever they are connected.
	Publish(ctx context.Context, ev domain.QuizEvent) error
}

const feedBuffer = 16

// Feed fans quiz events out to subscribers. It holds no quiz state.
type Feed struct {
	quizID      string
	mu          sync.Mutex
	subscribers map[chan domain.QuizEvent]struct{}
}

func NewFeed(quizID string) *Feed {
	return &Feed{
		quizID:      quizID,
		subscribers: make(map[chan domain.QuizEvent]struct{}),
	}
}

// Subscribe returns a channel of events for this quiz. The caller must invoke
// the returned cancel function to avoid leaks.
func (f *Feed) Subscribe() (<-chan domain.QuizEvent, func()) {
	ch := make(chan domain.QuizEvent, feedBuffer)

	f.mu.Lock()
	f.subscribers[ch] = struct{}{}
	f.mu.Unlock()

	cancel := func() {
		f.mu.Lock()
		if _, ok := f.subscribers[ch]; ok {
			delete(f.subscribers, ch)
			close(ch)
		}
		f.mu.Unlock()
	}
	return ch, cancel
}

// Publish never blocks. A subscriber whose buffer is full loses its oldest event.
func (f *Feed) Publish(ev domain.QuizEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subscribers {
		select {
		case ch <- ev:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- ev
		}
	}
}

func (f *Feed) IsEmpty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers) == 0
}
