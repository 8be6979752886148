package domain

import "time"

const (
	// QuestionCount is the fixed number of questions in every quiz.
	QuestionCount = 5
	// OptionCount is the fixed number of options per question.
	OptionCount = 4
)

// Status is the lifecycle state of a quiz.
type Status string

const (
	StatusGenerated  Status = "generated"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// Option is one answer choice of a question.
type Option struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// Question is a multiple-choice question with exactly one correct option.
type Question struct {
	Index            int      `json:"index"`
	Prompt           string   `json:"prompt"`
	Options          []Option `json:"options"`
	CorrectOptionKey string   `json:"correct_option_key"`
	Explanation      string   `json:"explanation"`
}

// HasOption reports whether key names one of the question's options.
func (q Question) HasOption(key string) bool {
	for _, opt := range q.Options {
		if opt.Key == key {
			return true
		}
	}
	return false
}

// QuizContent is the full, answer-bearing content of a quiz.
type QuizContent struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// PublicQuestion is a question without its answer key or explanation.
type PublicQuestion struct {
	Index   int      `json:"index"`
	Prompt  string   `json:"prompt"`
	Options []Option `json:"options"`
}

// QuizPublicView is the answer-stripped projection of QuizContent.
type QuizPublicView struct {
	Title     string           `json:"title"`
	Questions []PublicQuestion `json:"questions"`
}

// Answer is a recorded response to one question of a quiz.
type Answer struct {
	QuizID            string    `json:"quiz_id"`
	QuestionIndex     int       `json:"question_index"`
	SelectedOptionKey string    `json:"selected_option_key"`
	IsCorrect         bool      `json:"is_correct"`
	Explanation       string    `json:"explanation"`
	AnsweredAt        time.Time `json:"answered_at"`
}

// ReviewEntry is the per-question part of a results snapshot.
type ReviewEntry struct {
	Index             int      `json:"index"`
	Prompt            string   `json:"prompt"`
	Options           []Option `json:"options"`
	SelectedOptionKey string   `json:"selected_option_key"`
	CorrectOptionKey  string   `json:"correct_option_key"`
	IsCorrect         bool     `json:"is_correct"`
	Explanation       string   `json:"explanation"`
}

// ResultsSnapshot is the frozen scoring output of a completed quiz.
// ScorePercent is stored unrounded.
type ResultsSnapshot struct {
	QuizID         string        `json:"quiz_id"`
	OwnerID        string        `json:"owner_id"`
	CompletedAt    time.Time     `json:"completed_at"`
	CorrectCount   int           `json:"correct_count"`
	TotalQuestions int           `json:"total_questions"`
	ScorePercent   float64       `json:"score_percent"`
	Questions      []ReviewEntry `json:"questions"`
}

// Quiz is the aggregate root for one generated quiz and its answer history.
type Quiz struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Prompt      string           `json:"prompt"`
	Status      Status           `json:"status"`
	Content     QuizContent      `json:"content"`
	Answers     []Answer         `json:"answers"`
	Results     *ResultsSnapshot `json:"results,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
	Version     int64            `json:"version"`
}

// Clone returns a copy whose answer ledger can be mutated without affecting q.
// Content and the results snapshot are immutable and shared.
func (q Quiz) Clone() Quiz {
	out := q
	if q.Answers != nil {
		out.Answers = make([]Answer, len(q.Answers))
		copy(out.Answers, q.Answers)
	}
	if q.CompletedAt != nil {
		t := *q.CompletedAt
		out.CompletedAt = &t
	}
	return out
}

// Feedback is returned after each accepted answer for immediate display.
type Feedback struct {
	QuestionIndex     int    `json:"question_index"`
	SelectedOptionKey string `json:"selected_option_key"`
	IsCorrect         bool   `json:"is_correct"`
	Explanation       string `json:"explanation"`
	Status            Status `json:"status"`
	AnsweredCount     int    `json:"answered_count"`
	TotalQuestions    int    `json:"total_questions"`
}

// QuizTake is what a quiz taker may see before results are computed.
type QuizTake struct {
	ID             string         `json:"id"`
	Prompt         string         `json:"prompt"`
	Status         Status         `json:"status"`
	TotalQuestions int            `json:"total_questions"`
	AnsweredCount  int            `json:"answered_count"`
	Public         QuizPublicView `json:"quiz_public"`
	Message        string         `json:"message,omitempty"`
}

// QuizSummary is a list entry for a user's quiz history.
type QuizSummary struct {
	ID             string     `json:"id"`
	Prompt         string     `json:"prompt"`
	Status         Status     `json:"status"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	TotalQuestions int        `json:"total_questions"`
	CorrectCount   *int       `json:"correct_count,omitempty"`
	ScorePercent   *float64   `json:"score_percent,omitempty"`
}

// User is an account that owns quizzes.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is the outcome of a successful authentication.
type Session struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

// EventType tags messages pushed to live quiz subscribers.
type EventType string

const (
	EventFeedback EventType = "feedback"
	EventResults  EventType = "results"
)

// QuizEvent is fanned out to every subscriber of a quiz after an answer is
// accepted. Results is set only on the completing answer.
type QuizEvent struct {
	Type     EventType        `json:"type"`
	QuizID   string           `json:"quiz_id"`
	Feedback *Feedback        `json:"feedback,omitempty"`
	Results  *ResultsSnapshot `json:"results,omitempty"`
}
