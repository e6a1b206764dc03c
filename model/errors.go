package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure. Kinds are stable strings that also
// appear at the start of failed Result messages.
type ErrorKind string

const (
	KindNoModulePath      ErrorKind = "no-module-path"
	KindParse             ErrorKind = "parse-error"
	KindMissingModule     ErrorKind = "missing-module"
	KindValidation        ErrorKind = "validation-failed"
	KindDirtyJSON         ErrorKind = "dirty-json"
	KindUnknownTargetKind ErrorKind = "unknown-target-kind"
	KindMiss              ErrorKind = "miss"
	KindFormatter         ErrorKind = "formatter-failed"
	KindIO                ErrorKind = "io-error"
)

// Recoverable reports whether processing continues after this kind.
func (k ErrorKind) Recoverable() bool {
	switch k {
	case KindMiss, KindUnknownTargetKind, KindFormatter:
		return true
	}
	return false
}

// Sentinels for errors.Is checks against a kind.
var (
	ErrNoModulePath      = &Error{Kind: KindNoModulePath}
	ErrParse             = &Error{Kind: KindParse}
	ErrMissingModule     = &Error{Kind: KindMissingModule}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrDirtyJSON         = &Error{Kind: KindDirtyJSON}
	ErrUnknownTargetKind = &Error{Kind: KindUnknownTargetKind}
	ErrMiss              = &Error{Kind: KindMiss}
	ErrFormatter         = &Error{Kind: KindFormatter}
	ErrIO                = &Error{Kind: KindIO}
)

// Error is a classified failure. Line is 1-based and zero when unknown.
type Error struct {
	Kind   ErrorKind
	Module string
	Line   int
	Msg    string
	Err    error
}

// NewError builds an Error of the given kind.
func NewError(kind ErrorKind, module, format string, a ...interface{}) *Error {
	return &Error{Kind: kind, Module: module, Msg: fmt.Sprintf(format, a...)}
}

// WrapError classifies an underlying error.
func WrapError(kind ErrorKind, module string, err error) *Error {
	return &Error{Kind: kind, Module: module, Err: err}
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Module != "" {
		msg += ": " + e.Module
		if e.Line > 0 {
			msg += fmt.Sprintf(":%d", e.Line)
		}
	}
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf returns the kind of err, or an empty kind when err is not classified.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
