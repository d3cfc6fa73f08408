package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// TimeoutError reports an attempt that exceeded its deadline.
type TimeoutError struct {
	Timeout time.Duration
	Err     error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("LLM call timed out after %s", e.Timeout)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// ParseError reports a response that is not valid JSON.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse LLM response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ShapeError reports valid JSON that does not match the expected output shape.
type ShapeError struct {
	Problems []string
}

func (e *ShapeError) Error() string {
	return "unexpected LLM response shape: " + strings.Join(e.Problems, "; ")
}

// APIError reports a failed call to the model endpoint.
type APIError struct {
	Err error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("LLM API call: %v", e.Err)
}

func (e *APIError) Unwrap() error { return e.Err }

// ExhaustedRetriesError is returned once every attempt has failed. It wraps
// the error of the last attempt.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("generation failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// IsRetryable reports whether err is a failure worth another attempt.
func IsRetryable(err error) bool {
	var (
		te *TimeoutError
		pe *ParseError
		se *ShapeError
		ae *APIError
	)
	return errors.As(err, &te) || errors.As(err, &pe) || errors.As(err, &se) || errors.As(err, &ae)
}
