package app

import (
	"context"

	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/quiz"
)

// ResultsCache serves frozen results snapshots, loading them on a miss.
type ResultsCache interface {
	GetResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error)
}

// QuizResults reads snapshots straight from the quiz store. The memory and
// Redis caches wrap it as their loader.
type QuizResults struct {
	quizzes QuizRepository
}

func NewQuizResults(quizzes QuizRepository) *QuizResults {
	return &QuizResults{quizzes: quizzes}
}

func (r *QuizResults) LoadResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error) {
	q, err := r.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	return quiz.Results(q)
}

// GetResults lets QuizResults stand in for a cache.
func (r *QuizResults) GetResults(ctx context.Context, quizID string) (domain.ResultsSnapshot, error) {
	return r.LoadResults(ctx, quizID)
}
