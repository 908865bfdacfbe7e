package internal

import (
	"encoding/json"
	"fmt"
	"net/http"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeIllegalState ErrorType = "ILLEGAL_STATE"
	ErrorTypeLogging      ErrorType = "LOGGING_ERROR"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"
	ErrCodeInvalidAmount    ErrorCode = "INVALID_AMOUNT"
	ErrCodeReceiptRequired  ErrorCode = "RECEIPT_REQUIRED"
	ErrCodeInvalidDecision  ErrorCode = "INVALID_DECISION"
	ErrCodeInvalidType      ErrorCode = "INVALID_EXPENSE_TYPE"

	ErrCodeAccountNotFound        ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeExpenseNotFound        ErrorCode = "EXPENSE_NOT_FOUND"
	ErrCodeTopUpNotFound          ErrorCode = "TOPUP_NOT_FOUND"
	ErrCodeReconciliationNotFound ErrorCode = "RECONCILIATION_NOT_FOUND"
	ErrCodeNotificationNotFound   ErrorCode = "NOTIFICATION_NOT_FOUND"
	ErrCodeStatusNotFound         ErrorCode = "STATUS_NOT_FOUND"

	ErrCodeActiveAccountExists ErrorCode = "ACTIVE_ACCOUNT_EXISTS"
	ErrCodeInsufficientBalance ErrorCode = "INSUFFICIENT_BALANCE"

	ErrCodeIllegalTransition ErrorCode = "ILLEGAL_STATUS_TRANSITION"
	ErrCodeImmutableRecord   ErrorCode = "RECORD_NOT_MUTABLE"

	ErrCodeUnknownEventType ErrorCode = "UNKNOWN_EVENT_TYPE"
	ErrCodeAuditWriteFailed ErrorCode = "AUDIT_WRITE_FAILED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) WithCause(cause error) *AppError {
	clone := *e
	clone.Cause = cause
	return &clone
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	clone := *e
	clone.Details = details
	return &clone
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewIllegalStateError reports an operation invoked from a status that does
// not permit it. The caller should refresh entity state before retrying.
func NewIllegalStateError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeIllegalState,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusConflict,
	}
}

// NewLoggingError reports an audit-ledger write failure. It is distinct from
// business errors so callers can tell "operation failed" apart from
// "operation would have succeeded but could not be audited". Ledger writes
// share the business transaction, so this error always rolls the whole
// operation back.
func NewLoggingError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeLogging,
		Code:       ErrCodeAuditWriteFailed,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       "INTERNAL_ERROR",
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrAccountNotFound        = NewNotFoundError("Petty cash account not found", ErrCodeAccountNotFound)
	ErrExpenseNotFound        = NewNotFoundError("Expense request not found", ErrCodeExpenseNotFound)
	ErrTopUpNotFound          = NewNotFoundError("Top-up request not found", ErrCodeTopUpNotFound)
	ErrReconciliationNotFound = NewNotFoundError("Disbursement reconciliation not found", ErrCodeReconciliationNotFound)
	ErrNotificationNotFound   = NewNotFoundError("Notification not found", ErrCodeNotificationNotFound)
	ErrStatusNotFound         = NewNotFoundError("Status code not found", ErrCodeStatusNotFound)

	ErrActiveAccountExists = NewConflictError("An active petty cash account already exists", ErrCodeActiveAccountExists)
	ErrInsufficientBalance = NewConflictError("Petty cash balance cannot go negative", ErrCodeInsufficientBalance)
)

func IsAppError(err error) (*AppError, bool) {
	if appErr, ok := err.(*AppError); ok {
		return appErr, true
	}
	return nil, false
}

type Response struct {
	Error *AppError `json:"error"`
}

func (e *AppError) ToHTTPResponse() (int, interface{}) {
	return e.StatusCode, Response{Error: e}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
