package quiz

import (
	"fmt"
	"time"

	"quiz-forge-service/internal/domain"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// rawPayload builds a generator-shaped payload with the given correct keys.
func rawPayload(correct ...string) map[string]any {
	questions := make([]any, 0, len(correct))
	for i, key := range correct {
		questions = append(questions, map[string]any{
			"index":  i + 1,
			"prompt": fmt.Sprintf("Question %d?", i+1),
			"options": []any{
				map[string]any{"key": "A", "text": "Option A"},
				map[string]any{"key": "B", "text": "Option B"},
				map[string]any{"key": "C", "text": "Option C"},
				map[string]any{"key": "D", "text": "Option D"},
			},
			"correct_option_key": key,
			"explanation":        fmt.Sprintf("Because %s.", key),
		})
	}
	return map[string]any{"title": "Sample Quiz", "questions": questions}
}

func mustContent(correct ...string) domain.QuizContent {
	content, err := Normalize(rawPayload(correct...))
	if err != nil {
		panic(err)
	}
	return content
}

func newQuiz(correct ...string) domain.Quiz {
	q, err := New("quiz-1", "user-1", "Math", mustContent(correct...), fixedNow)
	if err != nil {
		panic(err)
	}
	return q
}
