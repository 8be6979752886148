package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-forge-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizRepository. Updates to
// one quiz are serialized by a per-quiz mutex; different quizzes never contend.
type QuizStore struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
	locks   map[string]*sync.Mutex
}

func NewQuizStore() *QuizStore {
	return &QuizStore{
		quizzes: make(map[string]domain.Quiz),
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *QuizStore) CreateQuiz(_ context.Context, q domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[q.ID] = q.Clone()
	s.locks[q.ID] = &sync.Mutex{}
	return nil
}

func (s *QuizStore) GetQuiz(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q.Clone(), nil
}

func (s *QuizStore) ListQuizzesByOwner(_ context.Context, ownerID string) ([]domain.Quiz, error) {
	s.mu.RLock()
	out := make([]domain.Quiz, 0)
	for _, q := range s.quizzes {
		if q.OwnerID == ownerID {
			out = append(out, q.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error) {
	s.mu.RLock()
	lock, ok := s.locks[quizID]
	s.mu.RUnlock()
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	current, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := fn(&current); err != nil {
		return domain.Quiz{}, err
	}
	current.Version++

	s.mu.Lock()
	s.quizzes[quizID] = current.Clone()
	s.mu.Unlock()
	return current, nil
}
