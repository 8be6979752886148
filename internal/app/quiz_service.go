package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/generator"
	"quiz-forge-service/internal/logger"
	"quiz-forge-service/internal/quiz"
)

// QuizRepository persists quiz aggregates (in-memory, Redis, Postgres).
type QuizRepository interface {
	CreateQuiz(ctx context.Context, q domain.Quiz) error
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
	// ListQuizzesByOwner returns the owner's quizzes newest first.
	ListQuizzesByOwner(ctx context.Context, ownerID string) ([]domain.Quiz, error)
	// UpdateQuiz applies fn to the current quiz under the store's per-quiz
	// serialization point. Nothing is written when fn fails.
	UpdateQuiz(ctx context.Context, quizID string, fn func(*domain.Quiz) error) (domain.Quiz, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, u domain.User) error
	GetUser(ctx context.Context, userID string) (domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (domain.User, error)
}

type Generator interface {
	Generate(ctx context.Context, topic string) (generator.Output, error)
}

const defaultGenerationTimeout = 30 * time.Second

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes   QuizRepository
	users     UserRepository
	generator Generator
	results   ResultsCache
	feeds     FeedRepository
	log       *logger.Logger

	now        func() time.Time
	newID      func() string
	genTimeout time.Duration
}

type Option func(*QuizService)

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *QuizService) { s.newID = newID }
}

func WithGenerationTimeout(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.genTimeout = d
		}
	}
}

func WithResultsCache(c ResultsCache) Option {
	return func(s *QuizService) { s.results = c }
}

func WithFeeds(f FeedRepository) Option {
	return func(s *QuizService) { s.feeds = f }
}

func WithLogger(l *logger.Logger) Option {
	return func(s *QuizService) { s.log = l }
}

func NewQuizService(quizzes QuizRepository, users UserRepository, gen Generator, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:    quizzes,
		users:      users,
		generator:  gen,
		log:        logger.NewNop(),
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
		genTimeout: defaultGenerationTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.results == nil {
		s.results = NewQuizResults(quizzes)
	}
	return s
}

// GenerateQuiz asks the generator for content on topic and stores a new quiz.
// Generator failures surface as *domain.GenerationError and malformed content
// as *domain.ContentValidationError; callers may retry the whole call.
func (s *QuizService) GenerateQuiz(ctx context.Context, ownerID, prompt string) (domain.QuizTake, error) {
	topic, err := quiz.ValidatePrompt(prompt)
	if err != nil {
		return domain.QuizTake{}, err
	}
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return domain.QuizTake{}, err
	}

	genCtx, cancel := context.WithTimeout(ctx, s.genTimeout)
	defer cancel()
	out, err := s.generator.Generate(genCtx, topic)
	if err != nil {
		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) {
			err = &domain.GenerationError{Provider: out.Provider, Err: err}
		}
		s.log.Warn("quiz generation failed", "topic", topic, "error", err)
		return domain.QuizTake{}, err
	}

	content, err := quiz.Normalize(out.Payload)
	if err != nil {
		s.log.Warn("generated quiz rejected", "topic", topic, "provider", out.Provider, "error", err)
		return domain.QuizTake{}, err
	}
	content = quiz.EnsurePromptCoverage(topic, content)

	q, err := s.store(ctx, ownerID, topic, content)
	if err != nil {
		return domain.QuizTake{}, err
	}
	s.log.Info("quiz generated", "quiz_id", q.ID, "owner_id", ownerID, "provider", out.Provider)
	take := quiz.Take(q)
	take.Message = out.Notice
	return take, nil
}

// CreateQuiz stores caller-supplied content after normalizing it.
func (s *QuizService) CreateQuiz(ctx context.Context, ownerID, prompt string, payload any) (domain.QuizSummary, error) {
	content, err := quiz.Normalize(payload)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	q, err := s.store(ctx, ownerID, strings.TrimSpace(prompt), content)
	if err != nil {
		return domain.QuizSummary{}, err
	}
	return quiz.Summary(q), nil
}

// CreatePlaceholderQuiz stores the deterministic placeholder quiz for prompt.
func (s *QuizService) CreatePlaceholderQuiz(ctx context.Context, ownerID, prompt string) (domain.QuizTake, error) {
	prompt = strings.TrimSpace(prompt)
	out, err := generator.Placeholder{}.Generate(ctx, prompt)
	if err != nil {
		return domain.QuizTake{}, err
	}
	content, err := quiz.Normalize(out.Payload)
	if err != nil {
		return domain.QuizTake{}, err
	}
	q, err := s.store(ctx, ownerID, prompt, content)
	if err != nil {
		return domain.QuizTake{}, err
	}
	return quiz.Take(q), nil
}

func (s *QuizService) store(ctx context.Context, ownerID, prompt string, content domain.QuizContent) (domain.Quiz, error) {
	if _, err := s.users.GetUser(ctx, ownerID); err != nil {
		return domain.Quiz{}, err
	}
	q, err := quiz.New(s.newID(), ownerID, prompt, content, s.now())
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.quizzes.CreateQuiz(ctx, q); err != nil {
		return domain.Quiz{}, err
	}
	return q, nil
}

// GetQuiz returns the answer-free view of a quiz owned by ownerID.
func (s *QuizService) GetQuiz(ctx context.Context, ownerID, quizID string) (domain.QuizTake, error) {
	q, err := s.owned(ctx, ownerID, quizID)
	if err != nil {
		return domain.QuizTake{}, err
	}
	return quiz.Take(q), nil
}

// SubmitAnswer records one answer atomically. The completing answer also
// freezes the results snapshot in the same update.
func (s *QuizService) SubmitAnswer(ctx context.Context, ownerID, quizID string, index int, selectedKey string) (domain.Feedback, error) {
	var feedback domain.Feedback
	updated, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		if q.OwnerID != ownerID {
			return domain.ErrQuizNotFound
		}
		fb, err := quiz.RecordAnswer(q, index, strings.TrimSpace(selectedKey), s.now())
		if err != nil {
			return err
		}
		feedback = fb
		return nil
	})
	if err != nil {
		return domain.Feedback{}, err
	}

	s.publish(ctx, domain.QuizEvent{Type: domain.EventFeedback, QuizID: quizID, Feedback: &feedback})
	if feedback.Status == domain.StatusCompleted && updated.Results != nil {
		s.log.Info("quiz completed",
			"quiz_id", quizID,
			"correct", updated.Results.CorrectCount,
			"score_percent", updated.Results.ScorePercent,
		)
		s.publish(ctx, domain.QuizEvent{Type: domain.EventResults, QuizID: quizID, Results: updated.Results})
	}
	return feedback, nil
}

// GetResults returns the frozen snapshot of a completed quiz.
func (s *QuizService) GetResults(ctx context.Context, ownerID, quizID string) (domain.ResultsSnapshot, error) {
	snapshot, err := s.results.GetResults(ctx, quizID)
	if errors.Is(err, domain.ErrResultsNotReady) {
		// keep non-owners from learning that the quiz exists
		if _, ownErr := s.owned(ctx, ownerID, quizID); ownErr != nil {
			return domain.ResultsSnapshot{}, ownErr
		}
		return domain.ResultsSnapshot{}, err
	}
	if err != nil {
		return domain.ResultsSnapshot{}, err
	}
	if snapshot.OwnerID != ownerID {
		return domain.ResultsSnapshot{}, domain.ErrQuizNotFound
	}
	return snapshot, nil
}

// ListQuizzes returns the owner's quiz history, newest first.
func (s *QuizService) ListQuizzes(ctx context.Context, ownerID string) ([]domain.QuizSummary, error) {
	quizzes, err := s.quizzes.ListQuizzesByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, quiz.Summary(q))
	}
	return out, nil
}

// Subscribe returns live events for a quiz owned by ownerID. The caller must
// invoke the returned cancel function.
func (s *QuizService) Subscribe(ctx context.Context, ownerID, quizID string) (<-chan domain.QuizEvent, func(), error) {
	if s.feeds == nil {
		return nil, nil, errors.New("live feeds are not configured")
	}
	if _, err := s.owned(ctx, ownerID, quizID); err != nil {
		return nil, nil, err
	}
	ch, cancel := s.feeds.GetOrCreate(quizID).Subscribe()
	return ch, func() {
		cancel()
		s.feeds.DeleteIfEmpty(quizID)
	}, nil
}

func (s *QuizService) owned(ctx context.Context, ownerID, quizID string) (domain.Quiz, error) {
	q, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if q.OwnerID != ownerID {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return q, nil
}

// publish is best effort: the answer is already committed.
func (s *QuizService) publish(ctx context.Context, ev domain.QuizEvent) {
	if s.feeds == nil {
		return
	}
	if err := s.feeds.Publish(ctx, ev); err != nil {
		s.log.Warn("publish quiz event failed", "quiz_id", ev.QuizID, "type", ev.Type, "error", err)
	}
}
