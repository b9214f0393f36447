package errors

import "fmt"

// FSError is an error that can have extra context attached to it.
// WithMessage keeps the current error as the parent, so a sentinel [Errno]
// stays visible to errors.Is/errors.As; WrapError makes the wrapped error
// the parent instead.
type FSError interface {
	error
	WithMessage(message string) FSError
	WrapError(err error) FSError
}

// contextualError pairs a formatted message with whichever error it was
// built from, preserving that error for errors.Unwrap/errors.Is.
type contextualError struct {
	message string
	parent  error
}

func (e contextualError) Error() string {
	return e.message
}

func (e contextualError) WithMessage(message string) FSError {
	return contextualError{
		message: fmt.Sprintf("%s: %s", e.message, message),
		parent:  e,
	}
}

func (e contextualError) WrapError(err error) FSError {
	return contextualError{
		message: fmt.Sprintf("%s: %s", e.Error(), err.Error()),
		parent:  err,
	}
}

func (e contextualError) Unwrap() error {
	return e.parent
}
