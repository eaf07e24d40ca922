package apperror

import (
	"errors"
)

const (
	ExitInternal = 1
	ExitConfig   = 2
	ExitEngine   = 3
)

type Error struct {
	Code     string
	Message  string
	ExitCode int
	Internal error
}

func (e *Error) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Internal
}

var (
	// ErrConfig covers incomplete or invalid caller configuration.
	ErrConfig = &Error{
		Code:     "config_error",
		Message:  "invalid configuration",
		ExitCode: ExitConfig,
	}

	// ErrEngine covers failures to read, decode, transform or write an image.
	ErrEngine = &Error{
		Code:     "engine_error",
		Message:  "image engine failed",
		ExitCode: ExitEngine,
	}

	ErrInternal = &Error{
		Code:     "internal_error",
		Message:  "an unexpected error occurred",
		ExitCode: ExitInternal,
	}
)

func New(code, message string, exitCode int) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		ExitCode: exitCode,
	}
}

func Wrap(err error, appErr *Error) *Error {
	return &Error{
		Code:     appErr.Code,
		Message:  appErr.Message,
		ExitCode: appErr.ExitCode,
		Internal: err,
	}
}

func WrapWithMessage(err error, appErr *Error, message string) *Error {
	return &Error{
		Code:     appErr.Code,
		Message:  message,
		ExitCode: appErr.ExitCode,
		Internal: err,
	}
}

func Is(err error, target *Error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == target.Code
	}
	return false
}

func IsConfig(err error) bool {
	return Is(err, ErrConfig)
}

func IsEngine(err error) bool {
	return Is(err, ErrEngine)
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.ExitCode
	}
	return ExitInternal
}

func SafeMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return ErrInternal.Message
}

func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrInternal.Code
}
