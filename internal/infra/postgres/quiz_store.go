package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-forge-service/internal/domain"
)

// QuizStore keeps quiz rows plus one quiz_answers row per answered question.
// UpdateQuiz locks the quiz row; the unique (quiz_id, question_index) index
// backs up the one-answer-per-question rule.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

const selectQuiz = `SELECT id, owner_id, prompt, status, content, results, created_at, completed_at, version FROM quizzes`

func (s *QuizStore) CreateQuiz(ctx context.Context, q domain.Quiz) error {
	content, err := json.Marshal(q.Content)
	if err != nil {
		return fmt.Errorf("encode quiz content: %w", err)
	}
	results, err := encodeResults(q.Results)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO quizzes (id, owner_id, prompt, status, content, results, created_at, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		q.ID, q.OwnerID, q.Prompt, string(q.Status), content, results, q.CreatedAt, q.CompletedAt, q.Version)
	if err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	if err := insertAnswers(ctx, tx, q.ID, q.Answers); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *QuizStore) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	return loadQuiz(ctx, s.pool, quizID, false)
}

func (s *QuizStore) ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, selectQuiz+` WHERE owner_id = $1 ORDER BY created_at DESC, id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Quiz, 0)
	index := make(map[string]int)
	ids := make([]string, 0)
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		index[q.ID] = len(out)
		ids = append(ids, q.ID)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()
	if len(ids) == 0 {
		return out, nil
	}

	answers, err := s.pool.Query(ctx, `
		SELECT quiz_id, question_index, selected_option_key, is_correct, explanation, answered_at
		FROM quiz_answers WHERE quiz_id = ANY($1) ORDER BY answered_at, question_index`, ids)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer answers.Close()
	for answers.Next() {
		a, err := scanAnswer(answers)
		if err != nil {
			return nil, err
		}
		i := index[a.QuizID]
		out[i].Answers = append(out[i].Answers, a)
	}
	return out, answers.Err()
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Quiz{}, err
	}
	defer tx.Rollback(ctx)

	q, err := loadQuiz(ctx, tx, quizID, true)
	if err != nil {
		return domain.Quiz{}, err
	}
	before := make(map[int]bool, len(q.Answers))
	for _, a := range q.Answers {
		before[a.QuestionIndex] = true
	}

	if err := fn(&q); err != nil {
		return domain.Quiz{}, err
	}

	added := make([]domain.Answer, 0, 1)
	for _, a := range q.Answers {
		if !before[a.QuestionIndex] {
			added = append(added, a)
		}
	}
	if err := insertAnswers(ctx, tx, quizID, added); err != nil {
		return domain.Quiz{}, err
	}

	results, err := encodeResults(q.Results)
	if err != nil {
		return domain.Quiz{}, err
	}
	tag, err := tx.Exec(ctx, `
		UPDATE quizzes SET status = $2, results = $3, completed_at = $4, version = version + 1
		WHERE id = $1 AND status <> 'completed'`,
		quizID, string(q.Status), results, q.CompletedAt)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("update quiz: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Quiz{}, domain.ErrQuizAlreadyCompleted
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Quiz{}, err
	}
	q.Version++
	return q, nil
}

func loadQuiz(ctx context.Context, db querier, quizID string, forUpdate bool) (domain.Quiz, error) {
	query := selectQuiz + ` WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	q, err := scanQuiz(db.QueryRow(ctx, query, quizID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, err
	}

	rows, err := db.Query(ctx, `
		SELECT quiz_id, question_index, selected_option_key, is_correct, explanation, answered_at
		FROM quiz_answers WHERE quiz_id = $1 ORDER BY answered_at, question_index`, quizID)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load answers: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return domain.Quiz{}, err
		}
		q.Answers = append(q.Answers, a)
	}
	return q, rows.Err()
}

func insertAnswers(ctx context.Context, db querier, quizID string, answers []domain.Answer) error {
	for _, a := range answers {
		_, err := db.Exec(ctx, `
			INSERT INTO quiz_answers (quiz_id, question_index, selected_option_key, is_correct, explanation, answered_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			quizID, a.QuestionIndex, a.SelectedOptionKey, a.IsCorrect, a.Explanation, a.AnsweredAt)
		if isUniqueViolation(err) {
			return domain.ErrDuplicateAnswer
		}
		if err != nil {
			return fmt.Errorf("insert answer: %w", err)
		}
	}
	return nil
}

func scanQuiz(row pgx.Row) (domain.Quiz, error) {
	var (
		q       domain.Quiz
		status  string
		content []byte
		results []byte
	)
	if err := row.Scan(&q.ID, &q.OwnerID, &q.Prompt, &status, &content, &results, &q.CreatedAt, &q.CompletedAt, &q.Version); err != nil {
		return domain.Quiz{}, err
	}
	q.Status = domain.Status(status)
	q.Answers = []domain.Answer{}
	if err := json.Unmarshal(content, &q.Content); err != nil {
		return domain.Quiz{}, fmt.Errorf("decode quiz content: %w", err)
	}
	if len(results) > 0 {
		var snap domain.ResultsSnapshot
		if err := json.Unmarshal(results, &snap); err != nil {
			return domain.Quiz{}, fmt.Errorf("decode results: %w", err)
		}
		q.Results = &snap
	}
	return q, nil
}

func scanAnswer(row pgx.Row) (domain.Answer, error) {
	var a domain.Answer
	err := row.Scan(&a.QuizID, &a.QuestionIndex, &a.SelectedOptionKey, &a.IsCorrect, &a.Explanation, &a.AnsweredAt)
	return a, err
}

func encodeResults(snap *domain.ResultsSnapshot) ([]byte, error) {
	if snap == nil {
		return nil, nil
	}
	b, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode results: %w", err)
	}
	return b, nil
}
