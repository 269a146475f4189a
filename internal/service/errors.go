package service

import (
	"errors"
	"fmt"
)

const (
	CodeInvalidPayload   = "INVALID_PAYLOAD"
	CodeMissingTopic     = "MISSING_TOPIC"
	CodeNoSequenceNumber = "NO_SEQUENCE_NUMBER"
	CodeNoConsensusTime  = "NO_CONSENSUS_TIMESTAMP"
	CodeOpenNotAnchored  = "OPEN_NOT_ANCHORED"
	CodeLedger           = "LEDGER_ERROR"
)

type AppError struct {
	Code      string
	Message   string
	Retryable bool
	Cause     error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so the sentinels below work
// with errors.Is regardless of message or cause.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

func NewAppError(code, msg string, retryable bool, cause error) *AppError {
	return &AppError{
		Code:      code,
		Message:   msg,
		Retryable: retryable,
		Cause:     cause,
	}
}

var (
	ErrMissingTopic     = NewAppError(CodeMissingTopic, "topic id is required", false, nil)
	ErrNoSequenceNumber = NewAppError(CodeNoSequenceNumber, "failed to submit message to topic", true, nil)
	ErrOpenNotAnchored  = NewAppError(CodeOpenNotAnchored, "open proof not anchored yet", true, nil)
)

func IsCode(err error, code string) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Code == code
}

// IsRetryable reports whether err is worth another attempt. Errors that are
// not AppErrors come from the network client and are treated as transient.
func IsRetryable(err error) bool {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		return true
	}
	return appErr.Retryable
}

func invalidPayload(cause error) *AppError {
	return NewAppError(CodeInvalidPayload, "invalid payload", false, cause)
}

func ledgerError(msg string, cause error) *AppError {
	return NewAppError(CodeLedger, msg, true, cause)
}
