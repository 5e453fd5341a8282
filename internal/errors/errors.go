// Package errors provides centralized error definitions and error handling utilities
// for gentle. It defines the client's error taxonomy, error constructors with
// context wrapping, and classification helpers used by the retry policy and
// by the views when deciding what to show the user.
//
// # Error Types
//
// Transport errors come from talking to the backend:
//   - NetworkError: the request never produced an HTTP response
//   - HTTPError: the backend answered with a non-2xx status
//   - TimeoutError: the request exceeded the configured timeout
//   - FormatError: the response body had a shape the client does not accept
//
// Semantic errors represent local conditions:
//   - ValidationError: invalid user input, handled without any network call
//   - NotFoundError: a task or step the backend no longer knows about
//
// # Usage
//
//	err := errors.NewHTTPError(http.StatusNotFound, "Task not found").WithRequest("GET", "/v1/tasks/abc")
//
//	if errors.IsRetryable(err) { ... }
//	msg := errors.UserMessage(err, "Something went wrong. Let's try again.")
package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that require immediate attention.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
	// ErrInvalidResponse indicates the backend returned a body the client cannot use.
	ErrInvalidResponse = New("invalid response format")
	// ErrUnauthenticated indicates that the backend rejected the session token.
	ErrUnauthenticated = New("not signed in")
	// ErrNoSession indicates that no stored session exists.
	ErrNoSession = New("no session")
	// ErrMutationPending indicates a mutation was started while another run was in flight.
	ErrMutationPending = New("request already in progress")
	// ErrViewClosed indicates a result arrived after its owning view was torn down.
	ErrViewClosed = New("view closed")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// GentleError is the base interface for all gentle errors.
type GentleError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if the error is transient and the operation
	// may succeed on retry.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// Transport Errors
// -----------------------------------------------------------------------------

// NetworkError represents a transport failure: DNS, connection refused,
// TLS, a reset connection. No HTTP status was received.
//
// Example:
//
//	err := errors.NewNetworkError(dialErr).WithRequest("POST", "http://localhost:8000/v1/tasks")
//	fmt.Println(err) // "network error [POST http://localhost:8000/v1/tasks]: dial tcp ...: connection refused"
type NetworkError struct {
	baseError
	Method string
	URL    string
}

// NewNetworkError creates a new NetworkError wrapping the transport failure.
func NewNetworkError(cause error) *NetworkError {
	return &NetworkError{
		baseError: baseError{
			message:    "could not reach the server",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: false,
		},
	}
}

// WithRequest records the method and URL of the failed request.
func (e *NetworkError) WithRequest(method, url string) *NetworkError {
	e.Method = method
	e.URL = url
	return e
}

// Error returns the formatted error message.
func (e *NetworkError) Error() string {
	prefix := "network error"
	if e.Method != "" || e.URL != "" {
		prefix = fmt.Sprintf("network error [%s]", strings.TrimSpace(e.Method+" "+e.URL))
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", prefix, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.message)
}

// Is checks if this error matches the target.
func (e *NetworkError) Is(target error) bool {
	_, ok := target.(*NetworkError)
	return ok
}

// HTTPError represents a non-2xx response from the backend.
//
// Example:
//
//	err := errors.NewHTTPError(404, "Step not found").WithRequest("POST", "/v1/steps/abc/complete")
//	fmt.Println(err) // "http error 404 [POST /v1/steps/abc/complete]: Step not found"
type HTTPError struct {
	baseError
	Status        int
	ServerMessage string
	Method        string
	Path          string
}

// NewHTTPError creates a new HTTPError. serverMessage is the message the
// backend supplied in its error body, if any.
func NewHTTPError(status int, serverMessage string) *HTTPError {
	severity := SeverityError
	if status >= 400 && status < 500 {
		severity = SeverityWarning
	}
	return &HTTPError{
		baseError: baseError{
			message:    serverMessage,
			severity:   severity,
			retryable:  retryableStatus(status),
			userFacing: serverMessage != "",
		},
		Status:        status,
		ServerMessage: serverMessage,
	}
}

// WithRequest records the method and path of the failed request.
func (e *HTTPError) WithRequest(method, path string) *HTTPError {
	e.Method = method
	e.Path = path
	return e
}

// Error returns the formatted error message.
func (e *HTTPError) Error() string {
	prefix := fmt.Sprintf("http error %d", e.Status)
	if e.Method != "" || e.Path != "" {
		prefix = fmt.Sprintf("%s [%s]", prefix, strings.TrimSpace(e.Method+" "+e.Path))
	}
	msg := e.ServerMessage
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *HTTPError) Is(target error) bool {
	if _, ok := target.(*HTTPError); ok {
		return true
	}
	if e.Status == http.StatusUnauthorized && target == ErrUnauthenticated {
		return true
	}
	return false
}

// retryableStatus reports whether a status code describes a transient condition.
func retryableStatus(status int) bool {
	switch {
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	default:
		return false
	}
}

// FormatError represents a response body whose shape is not one the client accepts.
//
// Example:
//
//	err := errors.NewFormatError("too-big response", cause)
//	fmt.Println(err) // "format error: invalid response format from too-big response: ..."
type FormatError struct {
	baseError
	What string
}

// NewFormatError creates a new FormatError for the named payload.
func NewFormatError(what string, cause error) *FormatError {
	return &FormatError{
		baseError: baseError{
			message:    "invalid response format",
			cause:      cause,
			severity:   SeverityError,
			retryable:  false,
			userFacing: true,
		},
		What: what,
	}
}

// Error returns the formatted error message.
func (e *FormatError) Error() string {
	base := "format error: invalid response format"
	if e.What != "" {
		base = fmt.Sprintf("%s from %s", base, e.What)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *FormatError) Is(target error) bool {
	if _, ok := target.(*FormatError); ok {
		return true
	}
	return target == ErrInvalidResponse
}

// -----------------------------------------------------------------------------
// Semantic Errors
// -----------------------------------------------------------------------------

// NotFoundError represents a task or step the backend does not know.
type NotFoundError struct {
	baseError
	ResourceType string
	ResourceID   string
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(resourceType, resourceID string) *NotFoundError {
	return &NotFoundError{
		baseError: baseError{
			message:    fmt.Sprintf("%s not found", resourceType),
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
		ResourceType: resourceType,
		ResourceID:   resourceID,
	}
}

// WithCause adds a cause to the error.
func (e *NotFoundError) WithCause(cause error) *NotFoundError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *NotFoundError) Error() string {
	base := fmt.Sprintf("%s not found: %s", e.ResourceType, e.ResourceID)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}

// ValidationError represents invalid user input. Validation happens locally
// and always blocks the transition that requested it.
//
// Example:
//
//	err := errors.NewValidationError("Please enter what feels big today").WithField("task")
type ValidationError struct {
	baseError
	Field string
	Value any
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField adds a field name to the error context.
func (e *ValidationError) WithField(field string) *ValidationError {
	e.Field = field
	return e
}

// WithValue adds the invalid value to the error context.
func (e *ValidationError) WithValue(value any) *ValidationError {
	e.Value = value
	return e
}

// Message returns the bare message without field context, suitable for
// an inline field error.
func (e *ValidationError) Message() string {
	return e.message
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation error [field=%s]: %s", e.Field, e.message)
	}
	return fmt.Sprintf("validation error: %s", e.message)
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	return target == ErrInvalidInput
}

// TimeoutError represents an operation that timed out.
//
// Example:
//
//	err := errors.NewTimeoutError("POST /v1/tasks", 15*time.Second)
//	fmt.Println(err) // "timeout error: POST /v1/tasks (timeout: 15s)"
type TimeoutError struct {
	baseError
	Operation string
	Duration  time.Duration
}

// NewTimeoutError creates a new TimeoutError.
func NewTimeoutError(operation string, duration time.Duration) *TimeoutError {
	return &TimeoutError{
		baseError: baseError{
			message:    operation,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: false,
		},
		Operation: operation,
		Duration:  duration,
	}
}

// WithCause adds a cause to the error.
func (e *TimeoutError) WithCause(cause error) *TimeoutError {
	e.cause = cause
	return e
}

// Error returns the formatted error message.
func (e *TimeoutError) Error() string {
	base := fmt.Sprintf("timeout error: %s (timeout: %s)", e.Operation, e.Duration)
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", base, e.cause)
	}
	return base
}

// Is checks if this error matches the target.
func (e *TimeoutError) Is(target error) bool {
	if _, ok := target.(*TimeoutError); ok {
		return true
	}
	return target == ErrTimeout
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if the error represents a transient condition
// that may succeed on retry. Cancellation is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if Is(err, ErrCanceled) || Is(err, context.Canceled) || Is(err, ErrViewClosed) || Is(err, ErrMutationPending) {
		return false
	}

	var gentleErr GentleError
	if As(err, &gentleErr) {
		return gentleErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var gentleErr GentleError
	if As(err, &gentleErr) {
		return gentleErr.IsUserFacing()
	}
	return false
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement GentleError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var gentleErr GentleError
	if As(err, &gentleErr) {
		return gentleErr.Severity()
	}
	return SeverityError
}

// StatusCode returns the HTTP status carried by err, or 0 when err did not
// come from an HTTP response.
func StatusCode(err error) int {
	var httpErr *HTTPError
	if As(err, &httpErr) {
		return httpErr.Status
	}
	return 0
}

// UserMessage returns the text to show the user for err. Validation errors
// and server-provided messages are shown as-is; everything else falls back
// to the supplied generic message.
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var validation *ValidationError
	if As(err, &validation) {
		return validation.Message()
	}

	var httpErr *HTTPError
	if As(err, &httpErr) && httpErr.ServerMessage != "" {
		return httpErr.ServerMessage
	}

	var formatErr *FormatError
	if As(err, &formatErr) {
		if formatErr.What != "" {
			return fmt.Sprintf("Invalid response format from %s", formatErr.What)
		}
		return "Invalid response format"
	}

	var notFound *NotFoundError
	if As(err, &notFound) {
		return fmt.Sprintf("That %s no longer exists", notFound.ResourceType)
	}

	return fallback
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
// Unlike a bare string, this preserves the GentleError chain for As/Is.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
