// Package quiz holds the quiz lifecycle: content normalization, the answer
// ledger, scoring and the generated -> in_progress -> completed state machine.
//
// Functions here mutate a *domain.Quiz in place and never touch storage. Callers
// must apply RecordAnswer under the per-quiz serialization point their store
// provides.
package quiz

import (
	"fmt"
	"time"

	"quiz-forge-service/internal/domain"
)

// New creates a quiz in the generated state. Content must already be normalized.
func New(id, ownerID, prompt string, content domain.QuizContent, now time.Time) (domain.Quiz, error) {
	if err := Validate(content); err != nil {
		return domain.Quiz{}, err
	}
	return domain.Quiz{
		ID:        id,
		OwnerID:   ownerID,
		Prompt:    prompt,
		Status:    domain.StatusGenerated,
		Content:   content,
		Answers:   []domain.Answer{},
		CreatedAt: now,
	}, nil
}

// PublicView strips answer keys and explanations. It is safe in any state.
func PublicView(q domain.Quiz) domain.QuizPublicView {
	view := domain.QuizPublicView{
		Title:     q.Content.Title,
		Questions: make([]domain.PublicQuestion, 0, len(q.Content.Questions)),
	}
	for _, question := range q.Content.Questions {
		options := make([]domain.Option, len(question.Options))
		copy(options, question.Options)
		view.Questions = append(view.Questions, domain.PublicQuestion{
			Index:   question.Index,
			Prompt:  question.Prompt,
			Options: options,
		})
	}
	return view
}

// Take builds the pre-results view of a quiz.
func Take(q domain.Quiz) domain.QuizTake {
	return domain.QuizTake{
		ID:             q.ID,
		Prompt:         q.Prompt,
		Status:         q.Status,
		TotalQuestions: len(q.Content.Questions),
		AnsweredCount:  len(q.Answers),
		Public:         PublicView(q),
	}
}

// StatusFor derives the lifecycle state from the number of distinct answers.
func StatusFor(answered, total int) domain.Status {
	switch {
	case answered <= 0:
		return domain.StatusGenerated
	case answered < total:
		return domain.StatusInProgress
	default:
		return domain.StatusCompleted
	}
}

// RecordAnswer applies one answer to q. On the answer that completes the quiz it
// scores and freezes the results snapshot. The snapshot is not returned here.
func RecordAnswer(q *domain.Quiz, index int, selectedKey string, now time.Time) (domain.Feedback, error) {
	if q.Status == domain.StatusCompleted || q.Results != nil {
		return domain.Feedback{}, domain.ErrQuizAlreadyCompleted
	}

	ledger := NewLedger(q.ID, q.Content, q.Answers)
	answer, err := ledger.Record(index, selectedKey, now)
	if err != nil {
		return domain.Feedback{}, err
	}
	q.Answers = ledger.Answers()

	total := len(q.Content.Questions)
	q.Status = StatusFor(ledger.Count(), total)
	if q.Status == domain.StatusCompleted {
		snapshot, err := Score(*q, now)
		if err != nil {
			return domain.Feedback{}, fmt.Errorf("complete quiz %s: %w", q.ID, err)
		}
		completedAt := now
		q.Results = &snapshot
		q.CompletedAt = &completedAt
	}

	return domain.Feedback{
		QuestionIndex:     answer.QuestionIndex,
		SelectedOptionKey: answer.SelectedOptionKey,
		IsCorrect:         answer.IsCorrect,
		Explanation:       answer.Explanation,
		Status:            q.Status,
		AnsweredCount:     ledger.Count(),
		TotalQuestions:    total,
	}, nil
}

// Results returns the frozen snapshot. It never recomputes.
func Results(q domain.Quiz) (domain.ResultsSnapshot, error) {
	if q.Status != domain.StatusCompleted || q.Results == nil {
		return domain.ResultsSnapshot{}, domain.ErrResultsNotReady
	}
	return *q.Results, nil
}

// Summary builds the list entry for a quiz.
func Summary(q domain.Quiz) domain.QuizSummary {
	s := domain.QuizSummary{
		ID:             q.ID,
		Prompt:         q.Prompt,
		Status:         q.Status,
		CreatedAt:      q.CreatedAt,
		CompletedAt:    q.CompletedAt,
		TotalQuestions: len(q.Content.Questions),
	}
	if q.Results != nil {
		correct := q.Results.CorrectCount
		percent := q.Results.ScorePercent
		s.CorrectCount = &correct
		s.ScorePercent = &percent
	}
	return s
}
