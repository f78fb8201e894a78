package qerr

import (
	"errors"
	"fmt"
)

// Code represents a stable error category that callers can switch on.
type Code string

const (
	CodeUnknown          Code = "unknown"
	CodeUnauthorized     Code = "unauthorized"
	CodeRateLimited      Code = "rate_limited"
	CodeTransport        Code = "transport"
	CodeAPI              Code = "api"
	CodeValidation       Code = "validation"
	CodeTimeout          Code = "timeout"
	CodeSensitiveContent Code = "sensitive_content"
	CodePredictionFailed Code = "prediction_failed"
	CodeCanceled         Code = "canceled"
	CodeConfig           Code = "config"
	CodeNotFound         Code = "not_found"
)

// Error carries a Code plus the underlying error. Status and Body are set for
// errors produced from an HTTP response.
type Error struct {
	Code   Code
	Status int
	Body   string
	err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// New wraps an error with the provided code. If err is nil a nil is returned.
func New(code Code, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, err: err}
}

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, err: fmt.Errorf(format, args...)}
}

// HTTP builds an error for a non-success response.
func HTTP(code Code, status int, body string) error {
	return &Error{
		Code:   code,
		Status: status,
		Body:   body,
		err:    fmt.Errorf("API request failed: %d - %s", status, body),
	}
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the first *Error in the chain, or CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Validation is shorthand for a CodeValidation error.
func Validation(format string, args ...any) error {
	return Newf(CodeValidation, format, args...)
}
