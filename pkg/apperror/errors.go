package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError is a structured error carrying a stable code.
// Codes group into families: VAL_* (terminal business rejections),
// ENR_* (enrichment failures, retryable), SYS_* (infrastructure, retryable).
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Transfer Validation (VAL) — terminal, never retried ----

func ErrInvalidAmount() *AppError {
	return New("VAL_001", "Transfer amount must be positive", http.StatusBadRequest)
}

func ErrAccountNotFound(accountID string) *AppError {
	return New("VAL_002", fmt.Sprintf("Account %s not found", accountID), http.StatusNotFound)
}

func ErrInsufficientBalance() *AppError {
	return New("VAL_003", "Sender balance is insufficient", http.StatusPaymentRequired)
}

// ---- Enrichment (ENR) — transient, retryable up to a cap ----

func ErrEnrichmentTimeout(err error) *AppError {
	return Wrap("ENR_001", "Incentive service timed out", http.StatusGatewayTimeout, err)
}

func ErrEnrichmentUnreachable(err error) *AppError {
	return Wrap("ENR_002", "Incentive service unreachable", http.StatusBadGateway, err)
}

func ErrEnrichmentMalformed(err error) *AppError {
	return Wrap("ENR_003", "Incentive service returned a malformed response", http.StatusBadGateway, err)
}

// ---- System & Infrastructure (SYS) — transient, retryable ----

func ErrDatabase(err error) *AppError {
	return Wrap("SYS_001", "Internal database error", http.StatusInternalServerError, err)
}

func ErrStoreUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Ledger store unavailable", http.StatusServiceUnavailable, err)
}

// Validation returns a request-level validation error for the HTTP read
// path. REQ is a separate family from VAL so malformed query parameters
// never show up in metrics as business rejections.
func Validation(message string) *AppError {
	return New("REQ_001", message, http.StatusBadRequest)
}

// Code extracts the stable code from err, or "" if err is not an AppError.
func Code(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// IsRetryable reports whether err represents a transient failure worth
// redelivering. Validation rejections are terminal; everything else,
// including unclassified errors, is assumed transient.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return !strings.HasPrefix(appErr.Code, "VAL_") && !strings.HasPrefix(appErr.Code, "REQ_")
	}
	return true
}
