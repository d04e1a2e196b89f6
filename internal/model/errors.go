package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrMalformedResponse is returned when a collaborator answers with output that cannot be parsed
var ErrMalformedResponse = errors.New("malformed collaborator response")

// InputError means no usable article content was supplied
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	if e.Field == "" {
		return "invalid input: " + e.Message
	}
	return fmt.Sprintf("invalid input on field '%s': %s", e.Field, e.Message)
}

// ExtractionError means the claim extraction collaborator failed
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("claim extraction failed: %v", e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// RetrievalError means the search collaborator failed for one claim
type RetrievalError struct {
	ClaimID string
	Err     error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("source retrieval failed for %s: %v", e.ClaimID, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// ComparisonError means stance comparison failed for one claim/source pair
type ComparisonError struct {
	ClaimID   string
	SourceURL string
	Err       error
}

func (e *ComparisonError) Error() string {
	return fmt.Sprintf("stance comparison failed for %s against %s: %v", e.ClaimID, e.SourceURL, e.Err)
}

func (e *ComparisonError) Unwrap() error { return e.Err }

// TimeoutError marks a per-claim or whole-request deadline
type TimeoutError struct {
	Scope string // "claim" or "request"
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timeout: %v", e.Scope, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// CollaboratorError represents an error response from an external service
type CollaboratorError struct {
	Service    string
	StatusCode int
	Message    string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// IsInput checks if an error is an InputError
func IsInput(err error) bool {
	var target *InputError
	return errors.As(err, &target)
}

// IsExtraction checks if an error is an ExtractionError
func IsExtraction(err error) bool {
	var target *ExtractionError
	return errors.As(err, &target)
}

// IsTimeout checks if an error is a TimeoutError or a context deadline
func IsTimeout(err error) bool {
	var target *TimeoutError
	return errors.As(err, &target) || errors.Is(err, context.DeadlineExceeded)
}

// IsRetryable reports whether a collaborator failure is worth another attempt
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var collab *CollaboratorError
	if errors.As(err, &collab) {
		return collab.StatusCode == http.StatusTooManyRequests || collab.StatusCode >= 500
	}
	if errors.Is(err, ErrMalformedResponse) || IsInput(err) {
		return false
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection refused") || strings.Contains(msg, "connection reset")
}
