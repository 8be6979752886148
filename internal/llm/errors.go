package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Failure classifies a model call that produced no usable reply.
type Failure int

const (
	// Unavailable covers transport errors and non-429 API errors.
	Unavailable Failure = iota
	RateLimited
	// Truncated means generation stopped at MaxTokens.
	Truncated
	// NotJSON means the reply was empty or not a JSON document.
	NotJSON
)

func (f Failure) String() string {
	switch f {
	case RateLimited:
		return "rate limited"
	case Truncated:
		return "reply truncated at max tokens"
	case NotJSON:
		return "reply is not JSON"
	default:
		return "provider unavailable"
	}
}

// Error is the error type returned by every Provider in this package.
type Error struct {
	Failure Failure
	Model   string
	// RetryAfter is the provider's backoff hint for RateLimited, if it sent one.
	RetryAfter time.Duration
	// Content is the partial or unparseable reply, if any.
	Content json.RawMessage
	Err     error
}

func (e *Error) Error() string {
	msg := e.Failure.String()
	if e.Model != "" {
		msg = e.Model + ": " + msg
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Transient reports whether resending the same request may succeed.
func (e *Error) Transient() bool {
	return e.Failure == Unavailable || e.Failure == RateLimited
}

// FailureOf returns the failure class of a provider error.
func FailureOf(err error) (Failure, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Failure, true
	}
	return 0, false
}

// apiFailure classifies an SDK error from its HTTP status.
func apiFailure(model string, status int, header http.Header, err error) *Error {
	if status != http.StatusTooManyRequests {
		return &Error{Failure: Unavailable, Model: model, Err: err}
	}
	return &Error{Failure: RateLimited, Model: model, RetryAfter: retryAfter(header), Err: err}
}

// retryAfter reads a Retry-After header given in seconds.
func retryAfter(h http.Header) time.Duration {
	if h == nil {
		return 0
	}
	secs, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
