package argparse

import (
	"errors"
	"fmt"
)

var (
	ErrTruncatedSplat         = errors.New("argparse: truncated splat")
	ErrMissingValueForKey     = errors.New("argparse: missing value for key")
	ErrTooManyPositional      = errors.New("argparse: too many positional arguments")
	ErrPositionalAfterKeyword = errors.New("argparse: positional argument after keyword")
	ErrMalformedObject        = errors.New("argparse: malformed object literal")
	ErrMalformedNumericArray  = errors.New("argparse: malformed numeric array")
	ErrAmbiguousSplat         = errors.New("argparse: unbounded splat before last positional parameter")
)

// ParseError carries the failing parameter and token position. errors.Is
// matches the sentinel in Kind; Unwrap exposes the underlying cause.
type ParseError struct {
	Kind  error
	Param string
	Index int
	Token string
	Err   error
}

func (e *ParseError) Error() string {
	msg := e.Kind.Error()
	if e.Param != "" {
		msg += fmt.Sprintf(" (param %q)", e.Param)
	}
	if e.Token != "" {
		msg += fmt.Sprintf(" at token %d %s", e.Index, e.Token)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ParseError) Is(target error) bool {
	return target == e.Kind
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
