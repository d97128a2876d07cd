package statement

import (
	"errors"
	"fmt"
)

// ErrorCode identifies a specific ingestion failure class.
type ErrorCode string

const (
	ErrCodeExtractionFailed   ErrorCode = "EXTRACTION_FAILED"
	ErrCodeInvalidDocument    ErrorCode = "INVALID_DOCUMENT"
	ErrCodeLLMUnavailable     ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMRateLimited     ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeUnparsableResponse ErrorCode = "UNPARSABLE_MODEL_RESPONSE"
)

// PipelineError is a structured error for ingestion failures. RawResponse
// keeps the sanitized model text when parsing failed so it can be logged for
// diagnostics; it is never retried automatically.
type PipelineError struct {
	Code        ErrorCode
	Message     string
	Retryable   bool
	RawResponse string
	Cause       error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// AsPipelineError unwraps err into a *PipelineError if possible.
func AsPipelineError(err error) (*PipelineError, bool) {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
