package memory

import (
	"context"
	"testing"
	"time"

	"quiz-forge-service/internal/domain"
)

func TestFeedStoreLifecycle(t *testing.T) {
	store := NewFeedStore()

	feed := store.GetOrCreate("quiz-1")
	if feed == nil {
		t.Fatalf("expected feed")
	}
	if again := store.GetOrCreate("quiz-1"); again != feed {
		t.Fatalf("expected the same feed instance")
	}

	_, cancel := feed.Subscribe()
	store.DeleteIfEmpty("quiz-1")
	if _, ok := store.Get("quiz-1"); !ok {
		t.Fatalf("feed with subscribers must survive DeleteIfEmpty")
	}

	cancel()
	store.DeleteIfEmpty("quiz-1")
	if _, ok := store.Get("quiz-1"); ok {
		t.Fatalf("expected feed removed when empty")
	}
}

func TestFeedStorePublish(t *testing.T) {
	store := NewFeedStore()
	ch, cancel := store.GetOrCreate("quiz-1").Subscribe()
	defer cancel()

	fb := domain.Feedback{QuestionIndex: 1, IsCorrect: true}
	if err := store.Publish(context.Background(), domain.QuizEvent{Type: domain.EventFeedback, QuizID: "quiz-1", Feedback: &fb}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if err := store.Publish(context.Background(), domain.QuizEvent{Type: domain.EventFeedback, QuizID: "quiz-2"}); err != nil {
		t.Fatalf("publish without listeners: %v", err)
	}

	select {
	case ev := <-ch:
		if ev.Feedback == nil || ev.Feedback.QuestionIndex != 1 {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
	}
	select {
	case ev := <-ch:
		t.Fatalf("received event for another quiz: %+v", ev)
	default:
	}
}
