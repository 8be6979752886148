package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-forge-service/internal/domain"
)

type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type errorEnvelope struct {
	Error apiError `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorEnvelope{Error: apiError{Message: msg, Code: code}})
}

// classify maps service errors to an HTTP status and a stable error code.
// Unknown errors are reported as 500 with code "internal".
func classify(err error) (int, string) {
	var genErr *domain.GenerationError
	switch {
	case errors.Is(err, domain.ErrInvalidContent):
		return http.StatusBadRequest, "invalid_content"
	case errors.As(err, &genErr):
		return http.StatusBadGateway, "generation_failed"
	case errors.Is(err, domain.ErrInvalidPrompt):
		return http.StatusBadRequest, "invalid_prompt"
	case errors.Is(err, domain.ErrInvalidUsername):
		return http.StatusBadRequest, "invalid_credentials"
	case errors.Is(err, domain.ErrInvalidQuestionIndex):
		return http.StatusBadRequest, "invalid_question_index"
	case errors.Is(err, domain.ErrInvalidOption):
		return http.StatusBadRequest, "invalid_option"
	case errors.Is(err, domain.ErrQuizAlreadyCompleted):
		return http.StatusConflict, "quiz_completed"
	case errors.Is(err, domain.ErrDuplicateAnswer):
		return http.StatusConflict, "duplicate_answer"
	case errors.Is(err, domain.ErrResultsNotReady):
		return http.StatusConflict, "results_not_ready"
	case errors.Is(err, domain.ErrUsernameTaken):
		return http.StatusConflict, "username_taken"
	case errors.Is(err, domain.ErrConcurrentUpdate):
		return http.StatusConflict, "concurrent_update"
	case errors.Is(err, domain.ErrAuthFailed):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, domain.ErrQuizNotFound), errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "not_found"
	default:
		return http.StatusInternalServerError, "internal"
	}
}
