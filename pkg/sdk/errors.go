package sdk

import (
	"errors"
	"fmt"
)

// Error codes returned in the "code" field of API error envelopes.
const (
	CodeNotFound               = "NOT_FOUND"
	CodeAlreadyExists          = "ALREADY_EXISTS"
	CodeInvalidInput           = "INVALID_INPUT"
	CodeValidation             = "VALIDATION_ERROR"
	CodeInvalidQuery           = "INVALID_QUERY"
	CodeUnknownCollection      = "UNKNOWN_COLLECTION"
	CodeConcurrentModification = "CONCURRENT_MODIFICATION"
	CodeInternal               = "INTERNAL_ERROR"
	CodeUnknown                = "UNKNOWN"
)

// APIError represents an error response from the farmstore API
type APIError struct {
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
	RequestID  string         `json:"request_id,omitempty"`
	StatusCode int            `json:"-"`
}

type errorEnvelope struct {
	Error *APIError `json:"error"`
}

func (e *APIError) Error() string {
	if len(e.Details) > 0 {
		return fmt.Sprintf("%s: %s (details: %v)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsValidation reports a rejected document, cart or request body.
func (e *APIError) IsValidation() bool {
	return e.Code == CodeValidation || e.Code == CodeInvalidInput
}

// IsInvalidQuery reports a raw query that referenced unknown fields or bad bounds.
func (e *APIError) IsInvalidQuery() bool {
	return e.Code == CodeInvalidQuery
}

func (e *APIError) IsNotFound() bool {
	return e.Code == CodeNotFound || e.Code == CodeUnknownCollection
}

func (e *APIError) IsAlreadyExists() bool {
	return e.Code == CodeAlreadyExists
}

// IsConflict reports an update whose expected version was stale.
func (e *APIError) IsConflict() bool {
	return e.Code == CodeConcurrentModification
}

func (e *APIError) IsInternal() bool {
	return e.Code == CodeInternal
}

// AsAPIError unwraps err to an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

func IsAPIError(err error) bool {
	_, ok := AsAPIError(err)
	return ok
}
