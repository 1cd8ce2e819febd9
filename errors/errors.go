package errors

import (
	stderrors "errors"
	"fmt"
)

type AppError struct {
	Code Code
	Op   string
	Err  error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func WrapWithCode(code Code, op string, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Code: code,
		Op:   op,
		Err:  err,
	}
}

// New builds an AppError from a message.
func New(code Code, op, msg string) error {
	return &AppError{Code: code, Op: op, Err: stderrors.New(msg)}
}

// CodeOf returns the code of the outermost AppError in the chain, or
// CodeInternal when err carries none.
func CodeOf(err error) Code {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	return err != nil && CodeOf(err) == code
}

// Message returns the innermost message without the code/op prefix, suitable
// for API responses.
func Message(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Err != nil {
		var inner *AppError
		if stderrors.As(appErr.Err, &inner) {
			return Message(appErr.Err)
		}
		return appErr.Err.Error()
	}
	return err.Error()
}
