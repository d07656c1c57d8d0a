package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/sumandas0/farmstore/pkg/utils"
)

// ErrorResponse represents the standard error response format
// @Description Standard error response format for all API errors
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains detailed error information
// @Description Detailed error information including code, message, and optional details
type ErrorDetail struct {
	Code      string         `json:"code" example:"NOT_FOUND"`
	Message   string         `json:"message" example:"document not found"`
	Details   map[string]any `json:"details,omitempty" swaggertype:"object"`
	Timestamp time.Time      `json:"timestamp" example:"2024-01-15T00:00:00Z"`
	RequestID string         `json:"request_id,omitempty" example:"host/abc-000001"`
}

// ErrorHandler recovers panics from later handlers, logs them with their
// stack and answers with a 500 envelope.
func ErrorHandler(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error().
						Str("method", r.Method).
						Str("path", r.URL.Path).
						Str("request_id", getRequestID(r)).
						Interface("panic", rec).
						Bytes("stack", debug.Stack()).
						Msg("Recovered from panic")
					SendInternalError(w, r, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, statusCode int, detail ErrorDetail) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: detail})
}

// SendError writes err using its AppError code when it carries one. Other
// errors are reported as INTERNAL_ERROR.
func SendError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	detail := ErrorDetail{
		Code:      utils.CodeInternal,
		Message:   err.Error(),
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(r),
	}

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		detail.Code = appErr.Code
		detail.Message = appErr.Message
		detail.Details = appErr.Details
	}

	writeError(w, statusCode, detail)
}

// SendAppError picks the status code from the error itself.
func SendAppError(w http.ResponseWriter, r *http.Request, err error) {
	SendError(w, r, err, HTTPErrorFromAppError(err))
}

func SendValidationError(w http.ResponseWriter, r *http.Request, message string, details map[string]any) {
	writeError(w, http.StatusBadRequest, ErrorDetail{
		Code:      utils.CodeValidation,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(r),
	})
}

func SendNotFoundError(w http.ResponseWriter, r *http.Request, resource string) {
	writeError(w, http.StatusNotFound, ErrorDetail{
		Code:      utils.CodeNotFound,
		Message:   fmt.Sprintf("%s not found", resource),
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(r),
	})
}

func SendInternalError(w http.ResponseWriter, r *http.Request, message string) {
	writeError(w, http.StatusInternalServerError, ErrorDetail{
		Code:      utils.CodeInternal,
		Message:   message,
		Timestamp: time.Now().UTC(),
		RequestID: getRequestID(r),
	})
}

func getRequestID(r *http.Request) string {
	if requestID := r.Header.Get("X-Request-ID"); requestID != "" {
		return requestID
	}
	return chiMiddleware.GetReqID(r.Context())
}

func HTTPErrorFromAppError(err error) int {
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case utils.CodeNotFound, utils.CodeUnknownCollection:
			return http.StatusNotFound
		case utils.CodeAlreadyExists, utils.CodeConcurrentModification:
			return http.StatusConflict
		case utils.CodeInvalidInput, utils.CodeValidation, utils.CodeInvalidQuery:
			return http.StatusBadRequest
		case utils.CodeUnauthorized:
			return http.StatusUnauthorized
		case utils.CodeTimeout:
			return http.StatusGatewayTimeout
		case utils.CodeUnavailable:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}

	switch {
	case utils.IsNotFound(err):
		return http.StatusNotFound
	case utils.IsAlreadyExists(err):
		return http.StatusConflict
	case utils.IsValidation(err), utils.IsInvalidQuery(err):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}
