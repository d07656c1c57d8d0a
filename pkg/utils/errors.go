package utils

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrAlreadyExists          = errors.New("resource already exists")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInternal               = errors.New("internal error")
	ErrTimeout                = errors.New("operation timeout")
	ErrValidation             = errors.New("validation failed")
	ErrInvalidQuery           = errors.New("invalid query")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrUnavailable            = errors.New("service unavailable")
	ErrUnknownCollection      = errors.New("unknown collection")
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeInternal               = "INTERNAL_ERROR"
	CodeTimeout                = "TIMEOUT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidQuery           = "INVALID_QUERY"
	CodeUnauthorized           = "UNAUTHORIZED"
	CodeUnavailable            = "SERVICE_UNAVAILABLE"
	CodeUnknownCollection      = "UNKNOWN_COLLECTION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
)

type AppError struct {
	Code    string
	Message string
	Err     error
	Details map[string]interface{}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: make(map[string]interface{}),
	}
}

func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound, CodeNotFound)
}

func IsAlreadyExists(err error) bool {
	return hasCode(err, ErrAlreadyExists, CodeAlreadyExists)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation, CodeValidation)
}

func IsInvalidQuery(err error) bool {
	return hasCode(err, ErrInvalidQuery, CodeInvalidQuery)
}

func hasCode(err, sentinel error, code string) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	return errors.Is(err, sentinel) || (errors.As(err, &appErr) && appErr.Code == code)
}
