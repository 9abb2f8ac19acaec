package command

import (
	"errors"
	"fmt"
)

// Detail classifies the pipeline stage that produced a failure.
type Detail int

const (
	// DetailInternal marks a framework defect, never an expected outcome.
	DetailInternal Detail = iota
	// DetailParse marks a grammar mismatch; to an end user this only
	// means "try a different command".
	DetailParse
	// DetailValidate marks a typed or domain validation failure after a
	// grammar match; the user must correct the input.
	DetailValidate
	// DetailExecute marks a business failure on a validated command;
	// retry policy belongs to the caller.
	DetailExecute
	// DetailFormat marks a rendering-only failure after the business
	// effect has already committed.
	DetailFormat
)

// String returns the detail name.
func (d Detail) String() string {
	switch d {
	case DetailParse:
		return "parse"
	case DetailValidate:
		return "validate"
	case DetailExecute:
		return "execute"
	case DetailFormat:
		return "format"
	default:
		return "internal"
	}
}

// Error is a pipeline failure tagged with the stage that produced it.
// Each stage tags only its own failures; higher layers forward the tag
// unchanged.
type Error struct {
	Detail  Detail
	Message string
	Cause   error
}

// Error returns the failure message.
func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Cause != nil:
		return e.Message + ": " + e.Cause.Error()
	case e.Message != "":
		return e.Message
	case e.Cause != nil:
		return e.Cause.Error()
	default:
		return e.Detail.String() + " failure"
	}
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Errorf builds a tagged failure from a format string.
func Errorf(detail Detail, format string, args ...any) *Error {
	return &Error{Detail: detail, Message: fmt.Sprintf(format, args...)}
}

// Tag wraps err with the given detail. An error already carrying a
// detail is forwarded unchanged.
func Tag(detail Detail, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	return &Error{Detail: detail, Cause: err}
}

// DetailOf reports the stage tag carried by err. Untagged errors
// classify as internal, the defect bucket.
func DetailOf(err error) Detail {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Detail
	}
	return DetailInternal
}
