// SPDX-FileCopyrightText: 2025 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package apperrors

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error.
type Kind string

const (
	KindUnknown    Kind = ""
	KindConfig     Kind = "ConfigError"
	KindSource     Kind = "SourceError"
	KindConnection Kind = "ConnectionError"
	KindRender     Kind = "RenderError"
	KindSend       Kind = "SendError"
)

// Process exit codes. Per-contact failures do not change the exit code.
const (
	ExitOK          = 0
	ExitGeneric     = 1
	ExitConfig      = 2
	ExitSource      = 3
	ExitConnection  = 4
	ExitRender      = 5
	ExitInterrupted = 130
)

// Error is a classified error. Msg describes the failed operation and Err,
// when set, is the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg == "" && e.Err == nil:
		return string(e.Kind)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Msg == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// New returns an Error of the given kind without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with fmt.Sprintf formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. It returns nil when err is nil.
func Wrap(kind Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// Wrapf is Wrap with fmt.Sprintf formatting.
func Wrapf(kind Kind, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFatal reports whether an error of this kind aborts the whole run.
// Render errors are fatal only when they happen while parsing templates,
// which callers signal by returning them from setup rather than per contact.
func IsFatal(kind Kind) bool {
	switch kind {
	case KindConfig, KindSource, KindConnection:
		return true
	default:
		return false
	}
}

// ExitCode maps an error returned from a run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}
	switch KindOf(err) {
	case KindConfig:
		return ExitConfig
	case KindSource:
		return ExitSource
	case KindConnection:
		return ExitConnection
	case KindRender:
		return ExitRender
	default:
		return ExitGeneric
	}
}
