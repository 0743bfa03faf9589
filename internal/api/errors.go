package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/casino-engine/internal/logger"
)

// ErrorBuilder helps construct structured errors with context
type ErrorBuilder struct {
	errType   string
	message   string
	context   map[string]interface{}
	requestID string
}

// NewError creates a new error builder
func NewError(errType, message string) *ErrorBuilder {
	return &ErrorBuilder{
		errType: errType,
		message: message,
		context: make(map[string]interface{}),
	}
}

// WithContext adds context information to the error
func (eb *ErrorBuilder) WithContext(key string, value interface{}) *ErrorBuilder {
	eb.context[key] = value
	return eb
}

// WithRequestID adds request ID to the error
func (eb *ErrorBuilder) WithRequestID(requestID string) *ErrorBuilder {
	eb.requestID = requestID
	return eb
}

// WithCause records the underlying error message
func (eb *ErrorBuilder) WithCause(err error) *ErrorBuilder {
	if err != nil {
		eb.context["cause"] = err.Error()
	}
	return eb
}

// Build creates the final EngineError
func (eb *ErrorBuilder) Build() EngineError {
	if len(eb.context) == 0 {
		eb.context = nil
	}
	return EngineError{
		Type:      eb.errType,
		Message:   eb.message,
		Context:   eb.context,
		RequestID: eb.requestID,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// statusFor maps an error type to its HTTP status
func statusFor(errType string) int {
	switch errType {
	case ErrTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrTypeNotFound:
		return http.StatusNotFound
	case ErrTypeConflict:
		return http.StatusConflict
	case ErrTypeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs engineErr and writes it with the status of its type
func writeError(w http.ResponseWriter, r *http.Request, eb *ErrorBuilder) {
	engineErr := eb.
		WithRequestID(middleware.GetReqID(r.Context())).
		WithContext("path", r.URL.Path).
		WithContext("method", r.Method).
		Build()
	status := statusFor(engineErr.Type)

	ev := logger.Warn(r.Context())
	if status >= http.StatusInternalServerError {
		ev = logger.Error(r.Context())
	}
	ev.Str("type", engineErr.Type).
		Str("category", string(GetErrorCategory(engineErr.Type))).
		Int("status", status).
		Interface("context", engineErr.Context).
		Msg(engineErr.Message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", EngineVersion)
	w.Header().Set("X-Error-Type", engineErr.Type)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(engineErr); err != nil {
		logger.Error(r.Context()).Err(err).Msg("encode error response")
	}
}

// validationError reports a bad request field
func validationError(w http.ResponseWriter, r *http.Request, field, message string) {
	writeError(w, r, NewError(ErrTypeValidation, fmt.Sprintf("Validation failed: %s", message)).
		WithContext("field", field))
}

// internalError reports an infrastructure failure
func internalError(w http.ResponseWriter, r *http.Request, message string, err error) {
	writeError(w, r, NewError(ErrTypeInternal, message).WithCause(err))
}

// recoveryHandler turns panics into structured 500 responses
func recoveryHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rvr := recover(); rvr != nil {
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				logger.Error(r.Context()).
					Interface("panic", rvr).
					Str("path", r.URL.Path).
					Msg("panic recovered")
				writeError(w, r, NewError(ErrTypeInternal, "Internal server error").
					WithContext("panic", fmt.Sprintf("%v", rvr)))
			}
		}()
		next.ServeHTTP(w, r)
	})
}
