package quiz

import (
	"fmt"
	"time"

	"quiz-forge-service/internal/domain"
)

// Score builds the results snapshot for a fully answered quiz.
// It is pure; the state machine calls it exactly once, on the completing answer.
func Score(q domain.Quiz, completedAt time.Time) (domain.ResultsSnapshot, error) {
	total := len(q.Content.Questions)
	if total == 0 || len(q.Answers) != total {
		return domain.ResultsSnapshot{}, fmt.Errorf("score quiz %s: %d of %d answered: %w", q.ID, len(q.Answers), total, domain.ErrResultsNotReady)
	}

	byIndex := make(map[int]domain.Answer, len(q.Answers))
	for _, a := range q.Answers {
		byIndex[a.QuestionIndex] = a
	}

	snapshot := domain.ResultsSnapshot{
		QuizID:         q.ID,
		OwnerID:        q.OwnerID,
		CompletedAt:    completedAt,
		TotalQuestions: total,
		Questions:      make([]domain.ReviewEntry, 0, total),
	}
	for _, question := range q.Content.Questions {
		answer := byIndex[question.Index]
		if answer.IsCorrect {
			snapshot.CorrectCount++
		}
		options := make([]domain.Option, len(question.Options))
		copy(options, question.Options)
		snapshot.Questions = append(snapshot.Questions, domain.ReviewEntry{
			Index:             question.Index,
			Prompt:            question.Prompt,
			Options:           options,
			SelectedOptionKey: answer.SelectedOptionKey,
			CorrectOptionKey:  question.CorrectOptionKey,
			IsCorrect:         answer.IsCorrect,
			Explanation:       question.Explanation,
		})
	}
	snapshot.ScorePercent = 100 * float64(snapshot.CorrectCount) / float64(total)
	return snapshot, nil
}
