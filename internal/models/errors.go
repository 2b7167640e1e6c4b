package models

import "errors"

// Scrape and delivery errors shared across the pipeline.
var (
	ErrNavigation      = errors.New("navigation failed")
	ErrElementNotFound = errors.New("element not found")
	ErrParseMismatch   = errors.New("no recognizable tax data")
	ErrTimeoutExceeded = errors.New("property timeout exceeded")
	ErrDeliveryFailure = errors.New("callback delivery failed")
	ErrWorkerFailure   = errors.New("adapter worker failed")
)

// ErrorCode is the stable, machine-readable form of a pipeline error.
type ErrorCode string

// Error codes.
const (
	CodeNavigation      ErrorCode = "navigation_error"
	CodeElementNotFound ErrorCode = "element_not_found"
	CodeParseMismatch   ErrorCode = "parse_mismatch"
	CodeTimeoutExceeded ErrorCode = "timeout_exceeded"
	CodeDeliveryFailure ErrorCode = "delivery_failure"
	CodeWorkerFailure   ErrorCode = "worker_failure"
)

// CodeFor classifies err into an ErrorCode.
func CodeFor(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTimeoutExceeded):
		return CodeTimeoutExceeded
	case errors.Is(err, ErrElementNotFound):
		return CodeElementNotFound
	case errors.Is(err, ErrNavigation):
		return CodeNavigation
	case errors.Is(err, ErrParseMismatch):
		return CodeParseMismatch
	case errors.Is(err, ErrDeliveryFailure):
		return CodeDeliveryFailure
	}

	return CodeWorkerFailure
}
