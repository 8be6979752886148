package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuizNotFound is returned for unknown quiz ids and for quizzes owned by someone else.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound is returned for unknown user ids or usernames.
	ErrUserNotFound = errors.New("user not found")
	// ErrQuizAlreadyCompleted rejects answers once all questions are answered.
	ErrQuizAlreadyCompleted = errors.New("quiz already completed")
	// ErrDuplicateAnswer rejects a second answer for the same question index.
	ErrDuplicateAnswer = errors.New("answer already submitted")
	// ErrInvalidOption indicates the selected key is not an option of the question.
	ErrInvalidOption = errors.New("option not found for question")
	// ErrInvalidQuestionIndex indicates the question index does not exist in the quiz.
	ErrInvalidQuestionIndex = errors.New("question_index not found")
	// ErrResultsNotReady is returned when results are requested before completion.
	ErrResultsNotReady = errors.New("quiz not completed")
	// ErrAuthFailed covers unknown accounts, wrong passwords and bad tokens.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already exists")
	// ErrInvalidUsername rejects empty usernames or passwords.
	ErrInvalidUsername = errors.New("username and password are required")
	// ErrInvalidPrompt rejects topics that are not 1-3 simple words.
	ErrInvalidPrompt = errors.New("prompt must be 1-3 words")
	// ErrConcurrentUpdate is returned when an optimistic update keeps losing races.
	ErrConcurrentUpdate = errors.New("quiz updated concurrently, retry")
	// ErrInvalidContent matches any *ContentValidationError via errors.Is.
	ErrInvalidContent = errors.New("invalid quiz content")
)

// ValidationReason names the content invariant that failed.
type ValidationReason string

const (
	ReasonMalformed          ValidationReason = "malformed"
	ReasonQuestionCount      ValidationReason = "question_count"
	ReasonOptionCount        ValidationReason = "option_count"
	ReasonDuplicateOptionKey ValidationReason = "duplicate_option_key"
	ReasonOptionKey          ValidationReason = "option_key"
	ReasonOptionText         ValidationReason = "option_text"
	ReasonCorrectKeyNotFound ValidationReason = "correct_key_not_found"
	ReasonMissingPrompt      ValidationReason = "missing_prompt"
)

// ContentValidationError reports generator output that violates the quiz shape.
// Question is the 0-based position of the offending question, or -1.
type ContentValidationError struct {
	Reason   ValidationReason
	Question int
	Detail   string
}

func (e *ContentValidationError) Error() string {
	if e.Question >= 0 {
		return fmt.Sprintf("invalid quiz content: question %d: %s", e.Question, e.Detail)
	}
	return fmt.Sprintf("invalid quiz content: %s", e.Detail)
}

func (e *ContentValidationError) Is(target error) bool {
	return target == ErrInvalidContent
}

// GenerationError wraps a failed or unusable upstream generator call.
// It is retryable by the caller.
type GenerationError struct {
	Provider string
	Err      error
}

func (e *GenerationError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("quiz generation failed: %v", e.Err)
	}
	return fmt.Sprintf("quiz generation failed (%s): %v", e.Provider, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
