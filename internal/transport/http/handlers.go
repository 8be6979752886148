package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"quiz-forge-service/internal/app"
	"quiz-forge-service/internal/domain"
	"quiz-forge-service/internal/logger"
)

// API holds the JSON handlers.
type API struct {
	quizzes  *app.QuizService
	accounts *app.AccountService
	log      *logger.Logger
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
	Message   string    `json:"message"`
}

type promptRequest struct {
	Prompt string `json:"prompt"`
}

type createQuizRequest struct {
	Prompt      string          `json:"prompt"`
	QuizContent json.RawMessage `json:"quiz_content"`
}

type answerRequest struct {
	QuestionIndex     *int   `json:"question_index"`
	SelectedOptionKey string `json:"selected_option_key"`
}

type scoreView struct {
	CorrectCount   int     `json:"correct_count"`
	TotalQuestions int     `json:"total_questions"`
	ScorePercent   float64 `json:"score_percent"`
}

type resultsResponse struct {
	QuizID      string               `json:"quiz_id"`
	CompletedAt time.Time            `json:"completed_at"`
	Score       scoreView            `json:"score"`
	Questions   []domain.ReviewEntry `json:"questions"`
}

func (a *API) createUser(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	u, err := a.accounts.CreateUser(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{
		ID:        u.ID,
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
		Message:   "User created",
	})
}

func (a *API) authenticate(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !decode(w, r, &req) {
		return
	}
	session, err := a.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

func (a *API) generateQuiz(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req) {
		return
	}
	take, err := a.quizzes.GenerateQuiz(r.Context(), userIDFrom(r.Context()), req.Prompt)
	if errors.Is(err, domain.ErrInvalidContent) {
		// the upstream produced it, so it is a gateway failure here
		writeError(w, http.StatusBadGateway, "invalid_generated_content", err)
		return
	}
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, take)
}

func (a *API) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if !decode(w, r, &req) {
		return
	}
	var payload any
	if len(req.QuizContent) > 0 {
		payload = req.QuizContent
	}
	summary, err := a.quizzes.CreateQuiz(r.Context(), userIDFrom(r.Context()), req.Prompt, payload)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

func (a *API) placeholderQuiz(w http.ResponseWriter, r *http.Request) {
	var req promptRequest
	if !decode(w, r, &req) {
		return
	}
	take, err := a.quizzes.CreatePlaceholderQuiz(r.Context(), userIDFrom(r.Context()), req.Prompt)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, take)
}

func (a *API) listQuizzes(w http.ResponseWriter, r *http.Request) {
	list, err := a.quizzes.ListQuizzes(r.Context(), userIDFrom(r.Context()))
	if err != nil {
		a.fail(w, err)
		return
	}
	for i := range list {
		if list[i].ScorePercent != nil {
			p := roundPercent(*list[i].ScorePercent)
			list[i].ScorePercent = &p
		}
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *API) getQuiz(w http.ResponseWriter, r *http.Request) {
	take, err := a.quizzes.GetQuiz(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, take)
}

func (a *API) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.QuestionIndex == nil {
		writeError(w, http.StatusBadRequest, "invalid_question_index", errors.New("question_index is required"))
		return
	}
	fb, err := a.quizzes.SubmitAnswer(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"), *req.QuestionIndex, req.SelectedOptionKey)
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fb)
}

func (a *API) getResults(w http.ResponseWriter, r *http.Request) {
	snap, err := a.quizzes.GetResults(r.Context(), userIDFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		a.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newResultsResponse(snap))
}

func (a *API) fail(w http.ResponseWriter, err error) {
	status, code := classify(err)
	if status == http.StatusInternalServerError {
		a.log.Error("request failed", "error", err)
		writeError(w, status, code, errors.New("internal error"))
		return
	}
	writeError(w, status, code, err)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

func newResultsResponse(s domain.ResultsSnapshot) resultsResponse {
	return resultsResponse{
		QuizID:      s.QuizID,
		CompletedAt: s.CompletedAt,
		Score: scoreView{
			CorrectCount:   s.CorrectCount,
			TotalQuestions: s.TotalQuestions,
			ScorePercent:   roundPercent(s.ScorePercent),
		},
		Questions: s.Questions,
	}
}

// roundPercent rounds to two decimals for presentation only.
func roundPercent(p float64) float64 {
	return math.Round(p*100) / 100
}
