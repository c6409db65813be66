package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeValidation          ErrorCode = "VALIDATION_ERROR"
	CodeContactNotFound     ErrorCode = "CONTACT_NOT_FOUND"
	CodeExamNotFound        ErrorCode = "EXAM_NOT_FOUND"
	CodeExamNotActive       ErrorCode = "EXAM_NOT_ACTIVE"
	CodeExamFull            ErrorCode = "EXAM_FULL"
	CodeDuplicateBooking    ErrorCode = "DUPLICATE_BOOKING"
	CodeInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"
	CodeInvalidTokenType    ErrorCode = "INVALID_TOKEN_TYPE"
	CodePayloadTooLarge     ErrorCode = "PAYLOAD_TOO_LARGE"
)

// AdmissionError is the caller-facing error for every gating failure in the
// admission and bulk-import paths. Handlers map Code to an HTTP status.
type AdmissionError struct {
	Code    ErrorCode
	Message string
}

func (e *AdmissionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func Errorf(code ErrorCode, format string, args ...interface{}) *AdmissionError {
	return &AdmissionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the admission error code, or "" for plain errors.
func CodeOf(err error) ErrorCode {
	var ae *AdmissionError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
