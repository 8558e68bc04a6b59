package extraction

import "fmt"

// ErrorCode categorizes pipeline failures. These are recorded into the
// invoice record, never thrown at an event caller.
type ErrorCode string

const (
	ErrDocumentFetch ErrorCode = "DOCUMENT_FETCH_FAILED"
	ErrProcessorCall ErrorCode = "PROCESSOR_CALL_FAILED"
	ErrNormalization ErrorCode = "NORMALIZATION_FAILED"
)

// Error is a structured extraction pipeline failure.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
