package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/generator"
	"quiz-forge-service/internal/infra/memory"
	"quiz-forge-service/internal/llm"
)

var fixedNow = time.Date(2024, 11, 22, 9, 0, 0, 0, time.UTC)

type stubGenerator struct {
	out   generator.Output
	err   error
	calls int
	topic string
}

func (g *stubGenerator) Generate(_ context.Context, topic string) (generator.Output, error) {
	g.calls++
	g.topic = topic
	return g.out, g.err
}

// payload builds raw generator content whose correct keys are given in order.
func payload(title string, correct ...string) json.RawMessage {
	questions := make([]map[string]any, 0, len(correct))
	for i, key := range correct {
		questions = append(questions, map[string]any{
			"prompt": fmt.Sprintf("Question %d?", i+1),
			"options": []map[string]string{
				{"key": "A", "text": "Option A"},
				{"key": "B", "text": "Option B"},
				{"key": "C", "text": "Option C"},
				{"key": "D", "text": "Option D"},
			},
			"correct_option_key": key,
			"explanation":        "Because " + key + ".",
		})
	}
	b, _ := json.Marshal(map[string]any{"title": title, "questions": questions})
	return b
}

type fixture struct {
	service *app.QuizService
	quizzes *memory.QuizStore
	users   *memory.UserStore
	feeds   *memory.FeedStore
	gen     *stubGenerator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		quizzes: memory.NewQuizStore(),
		users:   memory.NewUserStore(),
		feeds:   memory.NewFeedStore(),
		gen:     &stubGenerator{out: generator.Output{Payload: payload("Go Basics", "A", "B", "C", "D", "A"), Provider: "stub"}},
	}
	for _, id := range []string{"u1", "u2"} {
		if err := f.users.CreateUser(context.Background(), domain.User{ID: id, Username: id}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
	}
	seq := 0
	f.service = app.NewQuizService(f.quizzes, f.users, f.gen,
		app.WithClock(func() time.Time { return fixedNow }),
		app.WithIDGenerator(func() string { seq++; return fmt.Sprintf("quiz-%d", seq) }),
		app.WithFeeds(f.feeds),
		app.WithResultsCache(memory.NewResultsCache(app.NewQuizResults(f.quizzes), time.Minute)),
	)
	return f
}

func (f *fixture) generate(t *testing.T) domain.QuizTake {
	t.Helper()
	take, err := f.service.GenerateQuiz(context.Background(), "u1", "go")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	return take
}

func TestGenerateQuizReturnsPublicView(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)

	if take.ID != "quiz-1" || take.Status != domain.StatusGenerated || take.TotalQuestions != 5 {
		t.Fatalf("unexpected take %+v", take)
	}
	if f.gen.topic != "go" {
		t.Fatalf("generator got topic %q", f.gen.topic)
	}
	if take.Public.Title != "Go Basics" {
		t.Fatalf("title should be kept when it covers the topic, got %q", take.Public.Title)
	}
	raw, _ := json.Marshal(take)
	var decoded map[string]any
	_ = json.Unmarshal(raw, &decoded)
	questions := decoded["quiz_public"].(map[string]any)["questions"].([]any)
	for _, q := range questions {
		if _, ok := q.(map[string]any)["correct_option_key"]; ok {
			t.Fatalf("public view leaked correct_option_key")
		}
		if _, ok := q.(map[string]any)["explanation"]; ok {
			t.Fatalf("public view leaked explanation")
		}
	}
}

func TestGenerateQuizCoversTopic(t *testing.T) {
	f := newFixture(t)
	f.gen.out.Payload = payload("Sample Quiz", "A", "B", "C", "D", "A")

	take, err := f.service.GenerateQuiz(context.Background(), "u1", "  Photosynthesis  ")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if take.Public.Title != "Photosynthesis Quiz" || take.Prompt != "Photosynthesis" {
		t.Fatalf("unexpected take %+v", take)
	}
}

func TestGenerateQuizFailures(t *testing.T) {
	t.Run("invalid prompt", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.service.GenerateQuiz(context.Background(), "u1", "far too many words here")
		if !errors.Is(err, domain.ErrInvalidPrompt) {
			t.Fatalf("expected invalid prompt, got %v", err)
		}
		if f.gen.calls != 0 {
			t.Fatalf("generator must not be called")
		}
	})
	t.Run("unknown user", func(t *testing.T) {
		f := newFixture(t)
		if _, err := f.service.GenerateQuiz(context.Background(), "ghost", "go"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Fatalf("expected user not found, got %v", err)
		}
	})
	t.Run("upstream error", func(t *testing.T) {
		f := newFixture(t)
		cause := errors.New("connection refused")
		f.gen.out = generator.Output{Provider: "stub"}
		f.gen.err = cause
		_, err := f.service.GenerateQuiz(context.Background(), "u1", "go")
		var genErr *domain.GenerationError
		if !errors.As(err, &genErr) || !errors.Is(err, cause) {
			t.Fatalf("expected generation error wrapping cause, got %v", err)
		}
	})
	t.Run("malformed content", func(t *testing.T) {
		f := newFixture(t)
		f.gen.out.Payload = payload("Go", "A", "B", "C", "D")
		_, err := f.service.GenerateQuiz(context.Background(), "u1", "go")
		var cve *domain.ContentValidationError
		if !errors.As(err, &cve) || cve.Reason != domain.ReasonQuestionCount {
			t.Fatalf("expected question_count validation error, got %v", err)
		}
		list, _ := f.service.ListQuizzes(context.Background(), "u1")
		if len(list) != 0 {
			t.Fatalf("rejected content must not be stored")
		}
	})
}

// modelService runs GenerateQuiz against a scripted model behind the same
// retry wrapper production uses.
func modelService(f *fixture, replies ...llm.MockResponse) (*app.QuizService, *llm.MockProvider) {
	mock := llm.NewMockProvider(replies...)
	retry := llm.RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: time.Millisecond, Multiplier: 1}
	gen := generator.NewLLM(llm.WithRetry(mock, retry), "openai", 0)
	return app.NewQuizService(f.quizzes, f.users, gen, app.WithClock(func() time.Time { return fixedNow })), mock
}

func TestGenerateQuizModelOutputIsCheckedOnce(t *testing.T) {
	f := newFixture(t)
	service, mock := modelService(f,
		llm.MockResponse{Content: payload("Go", "A", "B", "C", "D")},
		llm.MockResponse{Content: payload("Go", "A", "B", "C", "D", "A")},
	)

	_, err := service.GenerateQuiz(context.Background(), "u1", "go")
	var cve *domain.ContentValidationError
	if !errors.As(err, &cve) || cve.Reason != domain.ReasonQuestionCount {
		t.Fatalf("expected question_count validation error, got %v", err)
	}
	var genErr *domain.GenerationError
	if errors.As(err, &genErr) {
		t.Fatalf("short quiz must not be reported as a generation failure: %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", mock.CallCount())
	}
	list, _ := service.ListQuizzes(context.Background(), "u1")
	if len(list) != 0 {
		t.Fatalf("rejected content must not be stored")
	}
}

func TestGenerateQuizReassignsModelIndices(t *testing.T) {
	f := newFixture(t)
	var doc map[string]any
	if err := json.Unmarshal(payload("Go", "A", "B", "C", "D", "A"), &doc); err != nil {
		t.Fatal(err)
	}
	for i, q := range doc["questions"].([]any) {
		q.(map[string]any)["index"] = 10 + i
	}
	body, _ := json.Marshal(doc)
	service, mock := modelService(f, llm.MockResponse{Content: body})

	take, err := service.GenerateQuiz(context.Background(), "u1", "go")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	for i, q := range take.Public.Questions {
		if q.Index != i {
			t.Fatalf("question %d kept index %d", i, q.Index)
		}
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", mock.CallCount())
	}
}

func TestGenerateQuizModelProseIsGenerationError(t *testing.T) {
	f := newFixture(t)
	service, mock := modelService(f,
		llm.MockResponse{Content: json.RawMessage("Sorry, I can't do that.")},
		llm.MockResponse{Content: payload("Go", "A", "B", "C", "D", "A")},
	)

	_, err := service.GenerateQuiz(context.Background(), "u1", "go")
	var genErr *domain.GenerationError
	if !errors.As(err, &genErr) || genErr.Provider != "openai" {
		t.Fatalf("expected generation error, got %v", err)
	}
	if mock.CallCount() != 1 {
		t.Fatalf("expected exactly 1 model call, got %d", mock.CallCount())
	}
}

func TestGenerateQuizPassesNotice(t *testing.T) {
	f := newFixture(t)
	svc := app.NewQuizService(f.quizzes, f.users, generator.Placeholder{Notice: "no key"})

	take, err := svc.GenerateQuiz(context.Background(), "u1", "Physics")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if take.Message != "no key" || take.Public.Title != "Physics Placeholder Quiz" {
		t.Fatalf("unexpected take %+v", take)
	}
}

func TestEightyPercentScenario(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)
	ctx := context.Background()

	submitted := []string{"A", "B", "C", "D", "B"}
	for i, key := range submitted {
		if _, err := f.service.GetResults(ctx, "u1", take.ID); !errors.Is(err, domain.ErrResultsNotReady) {
			t.Fatalf("expected results not ready before answer %d, got %v", i, err)
		}
		fb, err := f.service.SubmitAnswer(ctx, "u1", take.ID, i, key)
		if err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
		if fb.IsCorrect != (i < 4) {
			t.Fatalf("answer %d correctness %v", i, fb.IsCorrect)
		}
	}

	results, err := f.service.GetResults(ctx, "u1", take.ID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if results.CorrectCount != 4 || results.TotalQuestions != 5 || results.ScorePercent != 80 {
		t.Fatalf("unexpected score %+v", results)
	}
	if len(results.Questions) != 5 || results.Questions[4].SelectedOptionKey != "B" || results.Questions[4].CorrectOptionKey != "A" {
		t.Fatalf("unexpected review %+v", results.Questions)
	}

	again, _ := f.service.GetResults(ctx, "u1", take.ID)
	if !again.CompletedAt.Equal(results.CompletedAt) || again.ScorePercent != results.ScorePercent {
		t.Fatalf("results must be stable across reads")
	}

	if _, err := f.service.SubmitAnswer(ctx, "u1", take.ID, 0, "A"); !errors.Is(err, domain.ErrQuizAlreadyCompleted) {
		t.Fatalf("expected already completed, got %v", err)
	}

	list, err := f.service.ListQuizzes(ctx, "u1")
	if err != nil || len(list) != 1 {
		t.Fatalf("list: %+v %v", list, err)
	}
	if list[0].ScorePercent == nil || *list[0].ScorePercent != 80 {
		t.Fatalf("summary should carry the score, got %+v", list[0])
	}
}

func TestSubmitAnswerRejections(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)
	ctx := context.Background()

	if _, err := f.service.SubmitAnswer(ctx, "u1", take.ID, 1, "C"); err != nil {
		t.Fatalf("submit: %v", err)
	}

	cases := []struct {
		name  string
		index int
		key   string
		want  error
	}{
		{"duplicate", 1, "A", domain.ErrDuplicateAnswer},
		{"index out of range", 5, "A", domain.ErrInvalidQuestionIndex},
		{"negative index", -1, "A", domain.ErrInvalidQuestionIndex},
		{"unknown option", 2, "E", domain.ErrInvalidOption},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := f.service.SubmitAnswer(ctx, "u1", take.ID, tc.index, tc.key); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}

	q, _ := f.quizzes.GetQuiz(ctx, take.ID)
	if len(q.Answers) != 1 || q.Answers[0].SelectedOptionKey != "C" {
		t.Fatalf("original answer must be unchanged, got %+v", q.Answers)
	}
}

func TestQuizzesAreOwnerScoped(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)
	ctx := context.Background()

	if _, err := f.service.GetQuiz(ctx, "u2", take.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found for non-owner, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, "u2", take.ID, 0, "A"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found for non-owner answer, got %v", err)
	}
	if _, err := f.service.GetResults(ctx, "u2", take.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("non-owner must not learn results readiness, got %v", err)
	}
	if list, _ := f.service.ListQuizzes(ctx, "u2"); len(list) != 0 {
		t.Fatalf("expected empty list for u2")
	}

	for i, key := range []string{"A", "B", "C", "D", "A"} {
		if _, err := f.service.SubmitAnswer(ctx, "u1", take.ID, i, key); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := f.service.GetResults(ctx, "u2", take.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("cached results must still be owner checked, got %v", err)
	}
}

func TestConcurrentDuplicateAnswer(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, key := range []string{"C", "D"} {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			_, errs[i] = f.service.SubmitAnswer(context.Background(), "u1", take.ID, 2, key)
		}(i, key)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case !errors.Is(err, domain.ErrDuplicateAnswer):
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("expected exactly one success, got %d", ok)
	}
}

func TestCompletionScoredOnce(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)
	events, cancel, err := f.service.Subscribe(context.Background(), "u1", take.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < domain.QuestionCount; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := f.service.SubmitAnswer(context.Background(), "u1", take.ID, i, "A"); err != nil {
				t.Errorf("submit %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	feedback, results := 0, 0
	timeout := time.After(time.Second)
	for feedback+results < domain.QuestionCount+1 {
		select {
		case ev := <-events:
			switch ev.Type {
			case domain.EventFeedback:
				feedback++
			case domain.EventResults:
				results++
				if ev.Results.CorrectCount != 2 {
					t.Fatalf("unexpected results %+v", ev.Results)
				}
			}
		case <-timeout:
			t.Fatalf("timed out: %d feedback, %d results", feedback, results)
		}
	}
	if results != 1 {
		t.Fatalf("expected a single results event, got %d", results)
	}

	q, _ := f.quizzes.GetQuiz(context.Background(), take.ID)
	if q.Status != domain.StatusCompleted || q.Version != domain.QuestionCount {
		t.Fatalf("unexpected final quiz state %s v%d", q.Status, q.Version)
	}
}

func TestSubscribeRequiresOwner(t *testing.T) {
	f := newFixture(t)
	take := f.generate(t)
	if _, _, err := f.service.Subscribe(context.Background(), "u2", take.ID); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	_, cancel, err := f.service.Subscribe(context.Background(), "u1", take.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()
	if _, ok := f.feeds.Get(take.ID); ok {
		t.Fatalf("feed should be dropped after the last subscriber leaves")
	}
}

func TestCreateQuizFromContent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	summary, err := f.service.CreateQuiz(ctx, "u1", " my quiz ", payload("Mine", "D", "C", "B", "A", "D"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if summary.Prompt != "my quiz" || summary.Status != domain.StatusGenerated || summary.TotalQuestions != 5 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	_, err = f.service.CreateQuiz(ctx, "u1", "bad", map[string]any{"questions": []any{}})
	if !errors.Is(err, domain.ErrInvalidContent) {
		t.Fatalf("expected invalid content, got %v", err)
	}
}

func TestCreatePlaceholderQuiz(t *testing.T) {
	f := newFixture(t)
	take, err := f.service.CreatePlaceholderQuiz(context.Background(), "u1", "History")
	if err != nil {
		t.Fatalf("placeholder: %v", err)
	}
	if take.Public.Title != "History Placeholder Quiz" || len(take.Public.Questions) != 5 {
		t.Fatalf("unexpected take %+v", take)
	}
	if f.gen.calls != 0 {
		t.Fatalf("placeholder must not call the generator")
	}
}
