package quiz

import (
	"time"

	"quiz-forge-service/internal/domain"
)

// Ledger enforces one answer per question index and decides correctness.
// It appends to the answer slice it was built from and never rewrites an entry.
type Ledger struct {
	quizID  string
	content domain.QuizContent
	answers []domain.Answer
}

// NewLedger wraps the recorded answers of a quiz.
func NewLedger(quizID string, content domain.QuizContent, answers []domain.Answer) *Ledger {
	return &Ledger{quizID: quizID, content: content, answers: answers}
}

// Record validates and appends an answer. Correctness is plain key equality.
func (l *Ledger) Record(index int, selectedKey string, now time.Time) (domain.Answer, error) {
	question, ok := l.question(index)
	if !ok {
		return domain.Answer{}, domain.ErrInvalidQuestionIndex
	}
	if l.Answered(index) {
		return domain.Answer{}, domain.ErrDuplicateAnswer
	}
	if !question.HasOption(selectedKey) {
		return domain.Answer{}, domain.ErrInvalidOption
	}

	answer := domain.Answer{
		QuizID:            l.quizID,
		QuestionIndex:     index,
		SelectedOptionKey: selectedKey,
		IsCorrect:         selectedKey == question.CorrectOptionKey,
		Explanation:       question.Explanation,
		AnsweredAt:        now,
	}
	l.answers = append(l.answers, answer)
	return answer, nil
}

// Answered reports whether index already has an answer.
func (l *Ledger) Answered(index int) bool {
	for _, a := range l.answers {
		if a.QuestionIndex == index {
			return true
		}
	}
	return false
}

// Count is the number of distinct question indices answered.
func (l *Ledger) Count() int { return len(l.answers) }

// Answers returns the recorded answers in insertion order.
func (l *Ledger) Answers() []domain.Answer { return l.answers }

func (l *Ledger) question(index int) (domain.Question, bool) {
	for _, q := range l.content.Questions {
		if q.Index == index {
			return q, true
		}
	}
	return domain.Question{}, false
}
