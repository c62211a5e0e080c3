package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	ErrCounterViewNotFound = errors.New("counter view not found")
	ErrInvalidCounterName  = errors.New("invalid counter name")
	ErrInvalidViewID       = errors.New("invalid counter view id")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsCounterViewNotFound(err error) bool {
	return errors.Is(err, ErrCounterViewNotFound)
}

func IsInvalidCounterName(err error) bool {
	return errors.Is(err, ErrInvalidCounterName)
}

func IsInvalidViewID(err error) bool {
	return errors.Is(err, ErrInvalidViewID)
}
