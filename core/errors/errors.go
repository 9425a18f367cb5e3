// Package errors classifies failures raised by the recording and
// verification pipelines into the stable taxonomy of spec §7, so a caller
// can branch on Kind without string-matching messages.
package errors

import "errors"

type Kind string

const (
	KindCrypto  Kind = "crypto"
	KindThreshold Kind = "threshold"
	KindRule    Kind = "rule"
	KindExpired Kind = "expired"
	KindSchema  Kind = "schema"
	KindIO      Kind = "io"
	KindRuntime Kind = "runtime"
	KindTimeout Kind = "timeout"
)

// Context carries the structural pinpoint of a failure: which step, which
// rule, and which path it concerns, when applicable.
type Context struct {
	Step string
	Rule int
	Path string
}

type classifiedError struct {
	kind    Kind
	code    string
	hint    string
	context Context
	cause   error
}

func (e *classifiedError) Error() string {
	if e.cause == nil {
		return "unknown error"
	}
	return e.cause.Error()
}

func (e *classifiedError) Unwrap() error {
	return e.cause
}

func (e *classifiedError) Kind() Kind {
	return e.kind
}

func (e *classifiedError) Code() string {
	return e.code
}

func (e *classifiedError) Hint() string {
	return e.hint
}

func (e *classifiedError) Context() Context {
	return e.context
}

// Wrap classifies cause under kind, with a machine code, a human hint, and
// structural context. Returns nil if cause is nil, so call sites can wrap
// unconditionally.
func Wrap(cause error, kind Kind, code, hint string, ctx Context) error {
	if cause == nil {
		return nil
	}
	return &classifiedError{kind: kind, code: code, hint: hint, context: ctx, cause: cause}
}

// New is Wrap with an ad hoc message instead of an existing cause.
func New(kind Kind, code, hint string, ctx Context, message string) error {
	return Wrap(errors.New(message), kind, code, hint, ctx)
}

func KindOf(err error) Kind {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.kind
	}
	return ""
}

func CodeOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.code
	}
	return ""
}

func HintOf(err error) string {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.hint
	}
	return ""
}

func ContextOf(err error) Context {
	var classified *classifiedError
	if errors.As(err, &classified) {
		return classified.context
	}
	return Context{}
}
