package redis

import (
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/quiz"
)

var baseTime = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

func newClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func sampleQuiz(t *testing.T, id, owner string, createdAt time.Time) domain.Quiz {
	t.Helper()
	content := domain.QuizContent{Title: "Sample Quiz"}
	for i := 0; i < domain.QuestionCount; i++ {
		content.Questions = append(content.Questions, domain.Question{
			Index:  i,
			Prompt: fmt.Sprintf("Question %d?", i+1),
			Options: []domain.Option{
				{Key: "A", Text: "Option A"},
				{Key: "B", Text: "Option B"},
				{Key: "C", Text: "Option C"},
				{Key: "D", Text: "Option D"},
			},
			CorrectOptionKey: "B",
			Explanation:      "Because B.",
		})
	}
	q, err := quiz.New(id, owner, "sample", content, createdAt)
	if err != nil {
		t.Fatalf("new quiz: %v", err)
	}
	return q
}
