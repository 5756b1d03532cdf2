package types

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	ErrValidation ErrorKind = iota
	ErrSubmission
	ErrSend
	ErrBlock
	ErrAccessDenied
	ErrTransient
)

func (k ErrorKind) String() string {
	switch k {
	case ErrValidation:
		return "validation error"
	case ErrSubmission:
		return "submission error"
	case ErrSend:
		return "send error"
	case ErrBlock:
		return "block error"
	case ErrAccessDenied:
		return "access denied"
	case ErrTransient:
		return "transient error"
	default:
		return "unknown error"
	}
}

type Error struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Err.Error())
	}

	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same kind, so call sites can test
// errors.Is(err, &Error{Kind: ErrAccessDenied}).
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

func NewValidationError(msg string) *Error {
	return &Error{Kind: ErrValidation, Message: msg}
}

func NewSubmissionError(err error) *Error {
	return &Error{Kind: ErrSubmission, Message: "request could not be submitted", Err: err}
}

func NewSendError(err error) *Error {
	return &Error{Kind: ErrSend, Message: "message could not be sent", Err: err}
}

func NewBlockError(err error) *Error {
	return &Error{Kind: ErrBlock, Message: "block could not be completed", Err: err}
}

func NewAccessDeniedError() *Error {
	return &Error{Kind: ErrAccessDenied, Message: "access denied"}
}

func NewTransientError(err error) *Error {
	return &Error{Kind: ErrTransient, Message: "backend temporarily unavailable", Err: err}
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, &Error{Kind: ErrAccessDenied})
}
