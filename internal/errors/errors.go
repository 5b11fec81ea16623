package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & signatures
	ErrCodeUnauthorized     ErrorCode = "UNAUTHORIZED"
	ErrCodeInvalidSignature ErrorCode = "INVALID_SIGNATURE"
	ErrCodeSignatureExpired ErrorCode = "SIGNATURE_EXPIRED"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeAlreadyExists ErrorCode = "ALREADY_EXISTS"
	ErrCodeConflict      ErrorCode = "CONFLICT"

	// Live sessions
	ErrCodeSessionExists   ErrorCode = "SESSION_EXISTS"
	ErrCodeSessionNotFound ErrorCode = "SESSION_NOT_FOUND"

	// Tool calls
	ErrCodeCallNotFound          ErrorCode = "CALL_NOT_FOUND"
	ErrCodeAgentNotAssociated    ErrorCode = "AGENT_NOT_ASSOCIATED"
	ErrCodeTransferNotConfigured ErrorCode = "TRANSFER_NOT_CONFIGURED"

	// Reconciliation & billing
	ErrCodeUnreconcilable ErrorCode = "UNRECONCILABLE_EVENT"
	ErrCodeBillingFailed  ErrorCode = "BILLING_FAILED"

	// Rate limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
	ErrCodeExternal ErrorCode = "EXTERNAL_SERVICE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.cause
}

func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

func (e *AppError) WithDetails(details any) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func InvalidSignature(message string) *AppError {
	return New(ErrCodeInvalidSignature, message)
}

func SignatureExpired() *AppError {
	return New(ErrCodeSignatureExpired, "Signature timestamp is too old")
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func AlreadyExists(resource string) *AppError {
	return New(ErrCodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

func SessionExists(callID string) *AppError {
	return New(ErrCodeSessionExists, fmt.Sprintf("Session already registered for call %s", callID))
}

func SessionNotFound(callID string) *AppError {
	return New(ErrCodeSessionNotFound, fmt.Sprintf("No live session for call %s", callID))
}

func CallNotFound() *AppError {
	return New(ErrCodeCallNotFound, "Call record not found")
}

func AgentNotAssociated() *AppError {
	return New(ErrCodeAgentNotAssociated, "Call has no associated agent")
}

func TransferNotConfigured() *AppError {
	return New(ErrCodeTransferNotConfigured, "No transfer destination configured for agent")
}

func Unreconcilable(reason string) *AppError {
	return New(ErrCodeUnreconcilable, fmt.Sprintf("Completion event cannot be reconciled: %s", reason))
}

func BillingFailed(cause error) *AppError {
	return Wrap(ErrCodeBillingFailed, "Credit deduction failed", cause)
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

func External(service string, cause error) *AppError {
	return Wrap(ErrCodeExternal, fmt.Sprintf("External service error: %s", service), cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
